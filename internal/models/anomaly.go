package models

import "time"

// Camera identifies the device an anomaly was attributed to.
type Camera struct {
	ID       string `json:"id,omitempty"`
	Name     string `json:"name"`
	Location string `json:"location,omitempty"`
}

// AnomalyRecord is one detected event as delivered by the anomaly-graph source.
type AnomalyRecord struct {
	ID          string    `json:"id"`
	Camera      Camera    `json:"camera"`
	Timestamp   time.Time `json:"timestamp"`
	Duration    string    `json:"duration"`
	Type        string    `json:"type"`
	Status      string    `json:"status"`
	Description string    `json:"description,omitempty"`
}

// DateBucket holds the anomalies that started on a single YYYY-MM-DD date, in source order.
type DateBucket struct {
	Date      string          `json:"date"`
	Anomalies []AnomalyRecord `json:"anomalies"`
}

// QuarantinedEntry is a source entry rejected at the data-source boundary.
type QuarantinedEntry struct {
	Date   string `json:"date"`
	Index  int    `json:"index"`
	ID     string `json:"id,omitempty"`
	Reason string `json:"reason"`
}

// Quarantine reasons.
const (
	ReasonNotObject         = "not_object"
	ReasonMissingID         = "missing_id"
	ReasonMissingCameraName = "missing_camera_name"
	ReasonBadTimestamp      = "bad_timestamp"
	ReasonBadDateKey        = "bad_date_key"
	ReasonMalformedDuration = "malformed_duration"
	ReasonDurationRange     = "duration_out_of_range"
	ReasonUndecodable       = "undecodable"
)

// AnomalyGraph is a decoded data-source snapshot.
type AnomalyGraph struct {
	Buckets    []DateBucket
	Quarantine []QuarantinedEntry
	FetchedAt  time.Time
}

// Equal compares two records field by field, treating timestamps as instants.
func (r AnomalyRecord) Equal(o AnomalyRecord) bool {
	return r.ID == o.ID &&
		r.Camera == o.Camera &&
		r.Timestamp.Equal(o.Timestamp) &&
		r.Duration == o.Duration &&
		r.Type == o.Type &&
		r.Status == o.Status &&
		r.Description == o.Description
}
