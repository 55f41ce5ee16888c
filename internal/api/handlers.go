package api

import (
	"sort"

	"github.com/miradorstack/anomaly-timeline/internal/models"
	"github.com/miradorstack/anomaly-timeline/internal/views"
)

// ToTimeline converts a published snapshot into its transport shape.
func ToTimeline(snapshot *models.TimelineSnapshot) *Timeline {
	if snapshot == nil {
		return &Timeline{Days: []TimelineDay{}}
	}
	out := &Timeline{
		Version:     snapshot.Version,
		GeneratedAt: snapshot.GeneratedAt,
		Days:        make([]TimelineDay, 0, len(snapshot.Tasks)),
	}
	dates := make([]string, 0, len(snapshot.Tasks))
	for date := range snapshot.Tasks {
		dates = append(dates, date)
	}
	sort.Strings(dates)
	for _, date := range dates {
		tasks := snapshot.Tasks[date]
		day := TimelineDay{Date: date, Tasks: make([]Task, 0, len(tasks))}
		for _, task := range tasks {
			day.Tasks = append(day.Tasks, ToTask(task))
		}
		out.Days = append(out.Days, day)
	}
	return out
}

// ToTask converts a CameraTask.
func ToTask(task models.CameraTask) Task {
	return Task{
		AnomalyID:  task.AnomalyID,
		Camera:     task.Camera,
		Date:       task.Date,
		Start:      task.Start,
		End:        task.End,
		EndDate:    task.EndDate,
		StartLabel: task.StartLabel(),
		EndLabel:   task.EndLabel(),
		Type:       task.Type,
		Status:     task.Status,
		Anomaly:    ToAnomaly(task.AnomalyData),
	}
}

// ToAnomaly converts an AnomalyRecord for the detail view.
func ToAnomaly(record models.AnomalyRecord) Anomaly {
	return Anomaly{
		ID:             record.ID,
		CameraID:       record.Camera.ID,
		CameraName:     record.Camera.Name,
		CameraLocation: record.Camera.Location,
		Timestamp:      record.Timestamp,
		Duration:       record.Duration,
		Type:           record.Type,
		Status:         record.Status,
		Description:    record.Description,
	}
}

// ToView converts the props of an alerts view.
func ToView(view views.View) *View {
	out := &View{
		ViewID:       view.ID,
		Phase:        view.State.Phase().String(),
		SelectedDate: view.SelectedDate(),
		DisplayDate:  view.DisplayDate,
		Timeline: *ToTimeline(&models.TimelineSnapshot{
			Version:     view.Version,
			GeneratedAt: view.GeneratedAt,
			Tasks:       view.Timeline,
		}),
	}
	if view.Detail != nil {
		detail := ToAnomaly(*view.Detail)
		out.Detail = &detail
	}
	return out
}
