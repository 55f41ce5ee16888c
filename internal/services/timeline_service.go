package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/miradorstack/anomaly-timeline/internal/api"
	"github.com/miradorstack/anomaly-timeline/internal/selection"
	"github.com/miradorstack/anomaly-timeline/internal/views"
)

// TimelineService implements api.TimelineServer on top of the view manager.
type TimelineService struct {
	logger *slog.Logger
	views  *views.Manager
}

var _ api.TimelineServer = (*TimelineService)(nil)

// NewTimelineService constructs the timeline service facade.
func NewTimelineService(logger *slog.Logger, manager *views.Manager) *TimelineService {
	if logger == nil {
		logger = slog.Default()
	}
	return &TimelineService{logger: logger, views: manager}
}

// GetTimeline returns the latest published snapshot.
func (s *TimelineService) GetTimeline(ctx context.Context, req *api.GetTimelineRequest) (*api.Timeline, error) {
	if s.views == nil {
		return nil, status.Error(codes.FailedPrecondition, "view manager not configured")
	}
	return api.ToTimeline(s.views.Snapshot()), nil
}

// OpenView creates an alerts view.
func (s *TimelineService) OpenView(ctx context.Context, req *api.OpenViewRequest) (*api.View, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request cannot be nil")
	}
	if s.views == nil {
		return nil, status.Error(codes.FailedPrecondition, "view manager not configured")
	}
	view, err := s.views.Open(req.InitialDate)
	if err != nil {
		return nil, s.statusError("open view", err)
	}
	s.logger.Debug("OpenView called", slog.String("view_id", view.ID), slog.String("initial_date", req.InitialDate))
	return api.ToView(view), nil
}

// GetView returns the current props of a view.
func (s *TimelineService) GetView(ctx context.Context, req *api.ViewRequest) (*api.View, error) {
	return s.viewCall(req, "get view", s.views.Get)
}

// SelectDate handles a date pick.
func (s *TimelineService) SelectDate(ctx context.Context, req *api.SelectDateRequest) (*api.View, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request cannot be nil")
	}
	if strings.TrimSpace(req.Date) == "" {
		return nil, status.Error(codes.InvalidArgument, "date is required")
	}
	return s.viewCall(&api.ViewRequest{ViewID: req.ViewID}, "select date", func(id string) (views.View, error) {
		return s.views.SelectDate(id, req.Date)
	})
}

// ClearDate handles "clear selection".
func (s *TimelineService) ClearDate(ctx context.Context, req *api.ViewRequest) (*api.View, error) {
	return s.viewCall(req, "clear date", s.views.ClearDate)
}

// SelectAnomaly handles a task pick on the selected date.
func (s *TimelineService) SelectAnomaly(ctx context.Context, req *api.SelectAnomalyRequest) (*api.View, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request cannot be nil")
	}
	if strings.TrimSpace(req.AnomalyID) == "" {
		return nil, status.Error(codes.InvalidArgument, "anomaly_id is required")
	}
	return s.viewCall(&api.ViewRequest{ViewID: req.ViewID}, "select anomaly", func(id string) (views.View, error) {
		return s.views.SelectAnomaly(id, req.AnomalyID)
	})
}

// CloseAnomaly closes the detail view.
func (s *TimelineService) CloseAnomaly(ctx context.Context, req *api.ViewRequest) (*api.View, error) {
	return s.viewCall(req, "close anomaly", s.views.CloseAnomaly)
}

// CloseView discards a view.
func (s *TimelineService) CloseView(ctx context.Context, req *api.ViewRequest) (*api.CloseViewResponse, error) {
	if req == nil || strings.TrimSpace(req.ViewID) == "" {
		return nil, status.Error(codes.InvalidArgument, "view_id is required")
	}
	if s.views == nil {
		return nil, status.Error(codes.FailedPrecondition, "view manager not configured")
	}
	if err := s.views.Close(req.ViewID); err != nil {
		return nil, s.statusError("close view", err)
	}
	return &api.CloseViewResponse{ViewID: req.ViewID, Closed: true}, nil
}

func (s *TimelineService) viewCall(req *api.ViewRequest, op string, call func(string) (views.View, error)) (*api.View, error) {
	if req == nil || strings.TrimSpace(req.ViewID) == "" {
		return nil, status.Error(codes.InvalidArgument, "view_id is required")
	}
	if s.views == nil {
		return nil, status.Error(codes.FailedPrecondition, "view manager not configured")
	}
	view, err := call(req.ViewID)
	if err != nil {
		return nil, s.statusError(op, err)
	}
	return api.ToView(view), nil
}

func (s *TimelineService) statusError(op string, err error) error {
	switch {
	case errors.Is(err, views.ErrInvalidDate):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, views.ErrViewNotFound), errors.Is(err, views.ErrUnknownAnomaly):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, selection.ErrNoActiveDate):
		return status.Error(codes.FailedPrecondition, err.Error())
	default:
		s.logger.Error(op+" failed", slog.Any("error", err))
		return status.Error(codes.Internal, op+" failed")
	}
}
