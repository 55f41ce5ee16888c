package models

import "time"

// CameraTask is a display-ready timeline interval derived from one AnomalyRecord.
type CameraTask struct {
	Camera      string        `json:"camera"`
	Date        string        `json:"date"`
	Start       string        `json:"start"`
	End         string        `json:"end"`
	EndDate     string        `json:"endDate"`
	Type        string        `json:"type"`
	Status      string        `json:"status"`
	AnomalyID   string        `json:"anomalyId"`
	AnomalyData AnomalyRecord `json:"anomalyData"`
}

// StartLabel renders the date-qualified start, e.g. "2024-03-01 09:00".
func (t CameraTask) StartLabel() string {
	return t.Date + " " + t.Start
}

// EndLabel renders the date-qualified end. The date differs from Date when the interval crosses midnight.
func (t CameraTask) EndLabel() string {
	return t.EndDate + " " + t.End
}

// CrossesMidnight reports whether the end falls on a later calendar date than the start.
func (t CameraTask) CrossesMidnight() bool {
	return t.EndDate != t.Date
}

// TaskBuckets maps a date key to its ordered tasks. Dates without tasks are absent.
type TaskBuckets map[string][]CameraTask

// Find returns the task for anomalyID under date.
func (b TaskBuckets) Find(date, anomalyID string) (CameraTask, bool) {
	for _, task := range b[date] {
		if task.AnomalyID == anomalyID {
			return task, true
		}
	}
	return CameraTask{}, false
}

// Count returns the total number of tasks across all dates.
func (b TaskBuckets) Count() int {
	n := 0
	for _, tasks := range b {
		n += len(tasks)
	}
	return n
}

// TimelineSnapshot is one published aggregation result.
type TimelineSnapshot struct {
	Version     uint64
	Fingerprint uint64
	GeneratedAt time.Time
	Tasks       TaskBuckets
}
