package api

import (
	"context"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/miradorstack/anomaly-timeline/internal/models"
)

var sampleSnapshot = &models.TimelineSnapshot{
	Version:     3,
	GeneratedAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	Tasks: models.TaskBuckets{
		"2024-03-02": {{
			Camera: "Cam-2", Date: "2024-03-02", Start: "23:30", End: "00:30", EndDate: "2024-03-03",
			Type: "intrusion", Status: "open", AnomalyID: "b1",
			AnomalyData: models.AnomalyRecord{ID: "b1", Camera: models.Camera{Name: "Cam-2", Location: "Gate"}, Duration: "1:00"},
		}},
		"2024-03-01": {{
			Camera: "Cam-1", Date: "2024-03-01", Start: "09:00", End: "10:00", EndDate: "2024-03-01",
			Type: "loitering", Status: "resolved", AnomalyID: "a1",
			AnomalyData: models.AnomalyRecord{ID: "a1", Camera: models.Camera{ID: "c1", Name: "Cam-1"}, Duration: "1:00"},
		}},
	},
}

// stubServer records the last request of each kind and answers from canned values.
type stubServer struct {
	err        error
	lastDate   *SelectDateRequest
	lastPick   *SelectAnomalyRequest
	lastOpen   *OpenViewRequest
	lastViewID string
}

func (s *stubServer) view(id string) (*View, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.lastViewID = id
	if id == "missing" {
		return nil, status.Error(codes.NotFound, "view not found")
	}
	return &View{ViewID: id, Phase: "date_selected", SelectedDate: "2024-03-01", DisplayDate: "01-03-2024"}, nil
}

func (s *stubServer) GetTimeline(context.Context, *GetTimelineRequest) (*Timeline, error) {
	if s.err != nil {
		return nil, s.err
	}
	return ToTimeline(sampleSnapshot), nil
}

func (s *stubServer) OpenView(_ context.Context, req *OpenViewRequest) (*View, error) {
	s.lastOpen = req
	if req.InitialDate == "bad" {
		return nil, status.Error(codes.InvalidArgument, "invalid date")
	}
	return s.view("view-1")
}

func (s *stubServer) GetView(_ context.Context, req *ViewRequest) (*View, error) {
	return s.view(req.ViewID)
}

func (s *stubServer) SelectDate(_ context.Context, req *SelectDateRequest) (*View, error) {
	s.lastDate = req
	return s.view(req.ViewID)
}

func (s *stubServer) ClearDate(_ context.Context, req *ViewRequest) (*View, error) {
	return s.view(req.ViewID)
}

func (s *stubServer) SelectAnomaly(_ context.Context, req *SelectAnomalyRequest) (*View, error) {
	s.lastPick = req
	return s.view(req.ViewID)
}

func (s *stubServer) CloseAnomaly(_ context.Context, req *ViewRequest) (*View, error) {
	return s.view(req.ViewID)
}

func (s *stubServer) CloseView(_ context.Context, req *ViewRequest) (*CloseViewResponse, error) {
	if _, err := s.view(req.ViewID); err != nil {
		return nil, err
	}
	return &CloseViewResponse{ViewID: req.ViewID, Closed: true}, nil
}
