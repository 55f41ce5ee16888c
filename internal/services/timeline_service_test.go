package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/miradorstack/anomaly-timeline/internal/api"
	"github.com/miradorstack/anomaly-timeline/internal/models"
	"github.com/miradorstack/anomaly-timeline/internal/views"
)

func newTestService(t *testing.T) *TimelineService {
	t.Helper()
	manager := views.NewManager(nil, time.Minute, 0)
	source := &sourceStub{graphs: []models.AnomalyGraph{
		graphWith(anomalyRecord("a1", "1:00"), anomalyRecord("a2", "0:30")),
	}}
	_, err := newTestRefresher(t, source, manager).Refresh(context.Background())
	require.NoError(t, err)
	return NewTimelineService(nil, manager)
}

func TestGetTimeline(t *testing.T) {
	svc := newTestService(t)

	timeline, err := svc.GetTimeline(context.Background(), &api.GetTimelineRequest{})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), timeline.Version)
	require.Len(t, timeline.Days, 1)
	assert.Equal(t, "2024-03-01", timeline.Days[0].Date)
	require.Len(t, timeline.Days[0].Tasks, 2)
	assert.Equal(t, "09:00", timeline.Days[0].Tasks[0].Start)
	assert.Equal(t, "10:00", timeline.Days[0].Tasks[0].End)
	assert.Equal(t, "2024-03-01 10:00", timeline.Days[0].Tasks[0].EndLabel)
}

func TestViewLifecycle(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	view, err := svc.OpenView(ctx, &api.OpenViewRequest{})
	require.NoError(t, err)
	assert.Equal(t, "idle", view.Phase)

	view, err = svc.SelectDate(ctx, &api.SelectDateRequest{ViewID: view.ViewID, Date: "2024-03-01"})
	require.NoError(t, err)
	assert.Equal(t, "date_selected", view.Phase)
	assert.Equal(t, "01-03-2024", view.DisplayDate)

	view, err = svc.SelectAnomaly(ctx, &api.SelectAnomalyRequest{ViewID: view.ViewID, AnomalyID: "a2"})
	require.NoError(t, err)
	assert.Equal(t, "anomaly_selected", view.Phase)
	require.NotNil(t, view.Detail)
	assert.Equal(t, "a2", view.Detail.ID)
	assert.Equal(t, "Cam-1", view.Detail.CameraName)

	view, err = svc.CloseAnomaly(ctx, &api.ViewRequest{ViewID: view.ViewID})
	require.NoError(t, err)
	assert.Equal(t, "date_selected", view.Phase)
	assert.Nil(t, view.Detail)

	view, err = svc.ClearDate(ctx, &api.ViewRequest{ViewID: view.ViewID})
	require.NoError(t, err)
	assert.Equal(t, "idle", view.Phase)
	assert.Empty(t, view.SelectedDate)

	closed, err := svc.CloseView(ctx, &api.ViewRequest{ViewID: view.ViewID})
	require.NoError(t, err)
	assert.True(t, closed.Closed)

	_, err = svc.GetView(ctx, &api.ViewRequest{ViewID: view.ViewID})
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestStatusCodes(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.OpenView(ctx, &api.OpenViewRequest{InitialDate: "1 March"})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = svc.OpenView(ctx, nil)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = svc.GetView(ctx, &api.ViewRequest{})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	view, err := svc.OpenView(ctx, &api.OpenViewRequest{InitialDate: "2024-03-01"})
	require.NoError(t, err)

	_, err = svc.SelectDate(ctx, &api.SelectDateRequest{ViewID: view.ViewID})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = svc.SelectDate(ctx, &api.SelectDateRequest{ViewID: view.ViewID, Date: "2024-02-30"})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = svc.SelectAnomaly(ctx, &api.SelectAnomalyRequest{ViewID: view.ViewID})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = svc.SelectAnomaly(ctx, &api.SelectAnomalyRequest{ViewID: view.ViewID, AnomalyID: "missing"})
	assert.Equal(t, codes.NotFound, status.Code(err))

	_, err = svc.CloseView(ctx, &api.ViewRequest{ViewID: "missing"})
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestSelectAnomalyWhileIdleIsNoop(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	view, err := svc.OpenView(ctx, &api.OpenViewRequest{})
	require.NoError(t, err)
	view, err = svc.SelectAnomaly(ctx, &api.SelectAnomalyRequest{ViewID: view.ViewID, AnomalyID: "a1"})
	require.NoError(t, err)
	assert.Equal(t, "idle", view.Phase)
	assert.Nil(t, view.Detail)
}

func TestServiceWithoutManager(t *testing.T) {
	svc := NewTimelineService(nil, nil)

	_, err := svc.GetTimeline(context.Background(), &api.GetTimelineRequest{})
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))
	_, err = svc.GetView(context.Background(), &api.ViewRequest{ViewID: "v"})
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))
}
