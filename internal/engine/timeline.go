package engine

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/miradorstack/anomaly-timeline/internal/models"
	"github.com/miradorstack/anomaly-timeline/internal/utils"
)

// DurationPolicy selects what happens to a record whose duration does not parse.
type DurationPolicy string

const (
	// PolicySkip drops the record from its bucket.
	PolicySkip DurationPolicy = "skip"
	// PolicyZero keeps the record with a zero-minute interval.
	PolicyZero DurationPolicy = "zero"
)

// maxDurationMinutes keeps timestamp + duration inside time.Duration range.
const maxDurationMinutes = math.MaxInt64 / int64(time.Minute)

// ParseDurationPolicy validates a configured policy name. Empty means skip.
func ParseDurationPolicy(value string) (DurationPolicy, error) {
	switch DurationPolicy(strings.ToLower(strings.TrimSpace(value))) {
	case "", PolicySkip:
		return PolicySkip, nil
	case PolicyZero:
		return PolicyZero, nil
	default:
		return "", fmt.Errorf("unknown malformed duration policy %q", value)
	}
}

// Rejection describes one record left out of the timeline.
type Rejection struct {
	Date      string
	AnomalyID string
	Reason    string
	Err       error
}

// Report summarises an aggregation run.
type Report struct {
	Emitted     int
	Substituted int
	Rejected    []Rejection
}

// Aggregator converts date buckets of anomaly records into per-camera timeline tasks.
// It holds no mutable state and is safe for concurrent use.
type Aggregator struct {
	location *time.Location
	policy   DurationPolicy
}

// NewAggregator builds an aggregator rendering times in loc (time.Local when nil).
func NewAggregator(loc *time.Location, policy DurationPolicy) *Aggregator {
	if loc == nil {
		loc = time.Local
	}
	if policy == "" {
		policy = PolicySkip
	}
	return &Aggregator{location: loc, policy: policy}
}

// Policy returns the malformed duration policy in effect.
func (a *Aggregator) Policy() DurationPolicy { return a.policy }

// Location returns the zone used for time-of-day rendering.
func (a *Aggregator) Location() *time.Location { return a.location }

// Aggregate emits one CameraTask per valid record, preserving source order within each
// date. Dates that end up with no tasks are omitted. The input is never modified.
func (a *Aggregator) Aggregate(buckets []models.DateBucket) (models.TaskBuckets, Report) {
	tasks := make(models.TaskBuckets, len(buckets))
	var report Report

	for _, bucket := range buckets {
		if len(bucket.Anomalies) == 0 {
			continue
		}
		day, err := utils.ParseDate(bucket.Date)
		if err != nil {
			for _, record := range bucket.Anomalies {
				report.Rejected = append(report.Rejected, Rejection{
					Date:      bucket.Date,
					AnomalyID: record.ID,
					Reason:    models.ReasonBadDateKey,
					Err:       err,
				})
			}
			continue
		}

		out := make([]models.CameraTask, 0, len(bucket.Anomalies))
		for _, record := range bucket.Anomalies {
			task, substituted, rejection := a.buildTask(day, bucket.Date, record)
			if rejection != nil {
				report.Rejected = append(report.Rejected, *rejection)
				continue
			}
			if substituted {
				report.Substituted++
			}
			out = append(out, task)
		}
		if len(out) == 0 {
			continue
		}
		tasks[bucket.Date] = append(tasks[bucket.Date], out...)
		report.Emitted += len(out)
	}

	return tasks, report
}

func (a *Aggregator) buildTask(day time.Time, date string, record models.AnomalyRecord) (models.CameraTask, bool, *Rejection) {
	reject := func(reason string, err error) (models.CameraTask, bool, *Rejection) {
		return models.CameraTask{}, false, &Rejection{Date: date, AnomalyID: record.ID, Reason: reason, Err: err}
	}

	switch {
	case strings.TrimSpace(record.ID) == "":
		return reject(models.ReasonMissingID, fmt.Errorf("anomaly has no id"))
	case strings.TrimSpace(record.Camera.Name) == "":
		return reject(models.ReasonMissingCameraName, fmt.Errorf("anomaly %s has no camera name", record.ID))
	case record.Timestamp.IsZero():
		return reject(models.ReasonBadTimestamp, fmt.Errorf("anomaly %s has no timestamp", record.ID))
	}

	substituted := false
	reason := models.ReasonMalformedDuration
	minutes, err := utils.ParseDuration(record.Duration)
	if err == nil && int64(minutes) > maxDurationMinutes {
		reason = models.ReasonDurationRange
		err = fmt.Errorf("anomaly %s: %d minutes exceeds the representable interval", record.ID, minutes)
	}
	if err != nil {
		if a.policy != PolicyZero {
			return reject(reason, err)
		}
		minutes = 0
		substituted = true
	}

	start := record.Timestamp.In(a.location)
	end := start.Add(time.Duration(minutes) * time.Minute)
	endDate := day.AddDate(0, 0, utils.CalendarDaysBetween(start, end))

	return models.CameraTask{
		Camera:      record.Camera.Name,
		Date:        date,
		Start:       start.Format(utils.ClockLayout),
		End:         end.Format(utils.ClockLayout),
		EndDate:     endDate.Format(utils.DateLayout),
		Type:        record.Type,
		Status:      record.Status,
		AnomalyID:   record.ID,
		AnomalyData: record,
	}, substituted, nil
}
