package api

import "time"

// Anomaly is the detail view payload of one anomaly record.
type Anomaly struct {
	ID             string    `json:"id"`
	CameraID       string    `json:"camera_id,omitempty"`
	CameraName     string    `json:"camera_name"`
	CameraLocation string    `json:"camera_location,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
	Duration       string    `json:"duration"`
	Type           string    `json:"type"`
	Status         string    `json:"status"`
	Description    string    `json:"description,omitempty"`
}

// Task is one timeline interval.
type Task struct {
	AnomalyID  string  `json:"anomaly_id"`
	Camera     string  `json:"camera"`
	Date       string  `json:"date"`
	Start      string  `json:"start"`
	End        string  `json:"end"`
	EndDate    string  `json:"end_date"`
	StartLabel string  `json:"start_label"`
	EndLabel   string  `json:"end_label"`
	Type       string  `json:"type"`
	Status     string  `json:"status"`
	Anomaly    Anomaly `json:"anomaly"`
}

// TimelineDay groups the tasks of one date.
type TimelineDay struct {
	Date  string `json:"date"`
	Tasks []Task `json:"tasks"`
}

// Timeline is a published snapshot, days ordered by date.
type Timeline struct {
	Version     uint64        `json:"version"`
	GeneratedAt time.Time     `json:"generated_at"`
	Days        []TimelineDay `json:"days"`
}

// View carries the props of one alerts view.
type View struct {
	ViewID       string   `json:"view_id"`
	Phase        string   `json:"phase"`
	SelectedDate string   `json:"selected_date,omitempty"`
	DisplayDate  string   `json:"display_date,omitempty"`
	Detail       *Anomaly `json:"detail,omitempty"`
	Timeline     Timeline `json:"timeline"`
}

// GetTimelineRequest asks for the current snapshot.
type GetTimelineRequest struct{}

// OpenViewRequest opens a view, optionally on a date.
type OpenViewRequest struct {
	InitialDate string `json:"initial_date,omitempty"`
}

// ViewRequest addresses an existing view.
type ViewRequest struct {
	ViewID string `json:"view_id"`
}

// SelectDateRequest picks a date on a view.
type SelectDateRequest struct {
	ViewID string `json:"view_id"`
	Date   string `json:"date"`
}

// SelectAnomalyRequest picks a task on a view's selected date.
type SelectAnomalyRequest struct {
	ViewID    string `json:"view_id"`
	AnomalyID string `json:"anomaly_id"`
}

// CloseViewResponse acknowledges a closed view.
type CloseViewResponse struct {
	ViewID string `json:"view_id"`
	Closed bool   `json:"closed"`
}
