package api

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miradorstack/anomaly-timeline/internal/models"
)

func startHub(t *testing.T) (*Hub, string) {
	t.Helper()
	hub := NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)

	srv := httptest.NewServer(NewRouter(nil, &stubServer{}, hub))
	t.Cleanup(srv.Close)
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/timeline/stream"
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readTimeline(t *testing.T, conn *websocket.Conn) Timeline {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var timeline Timeline
	require.NoError(t, json.Unmarshal(data, &timeline))
	return timeline
}

func TestHubBroadcastsSnapshots(t *testing.T) {
	hub, url := startHub(t)
	conn := dial(t, url)
	require.Eventually(t, func() bool { return hub.Subscribers() == 1 }, time.Second, 5*time.Millisecond)

	require.True(t, hub.Publish(sampleSnapshot))
	timeline := readTimeline(t, conn)
	assert.Equal(t, uint64(3), timeline.Version)
	assert.Len(t, timeline.Days, 2)

	next := &models.TimelineSnapshot{Version: 4, Tasks: models.TaskBuckets{}}
	require.True(t, hub.Publish(next))
	assert.Equal(t, uint64(4), readTimeline(t, conn).Version)
}

func TestHubSendsLatestSnapshotOnConnect(t *testing.T) {
	hub, url := startHub(t)
	require.True(t, hub.Publish(sampleSnapshot))

	conn := dial(t, url)
	assert.Equal(t, uint64(3), readTimeline(t, conn).Version)
}

func TestHubUnregistersClosedClients(t *testing.T) {
	hub, url := startHub(t)
	conn := dial(t, url)
	require.Eventually(t, func() bool { return hub.Subscribers() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return hub.Subscribers() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHubPublishNil(t *testing.T) {
	assert.False(t, NewHub(nil).Publish(nil))
}

func TestHubPublishKeepsNewestWhenQueued(t *testing.T) {
	hub := NewHub(nil)

	for v := uint64(1); v <= 3; v++ {
		require.True(t, hub.Publish(&models.TimelineSnapshot{Version: v, Tasks: models.TaskBuckets{}}))
	}
	require.True(t, hub.Publish(&models.TimelineSnapshot{Version: 2, Tasks: models.TaskBuckets{}}))

	queued := <-hub.broadcast
	assert.Equal(t, uint64(3), queued.version)
	var timeline Timeline
	require.NoError(t, json.Unmarshal(queued.payload, &timeline))
	assert.Equal(t, uint64(3), timeline.Version)

	select {
	case extra := <-hub.broadcast:
		t.Fatalf("unexpected queued snapshot %d", extra.version)
	default:
	}
}

func TestHubIgnoresOlderSnapshots(t *testing.T) {
	hub, url := startHub(t)
	conn := dial(t, url)
	require.Eventually(t, func() bool { return hub.Subscribers() == 1 }, time.Second, 5*time.Millisecond)

	require.True(t, hub.Publish(sampleSnapshot))
	assert.Equal(t, uint64(3), readTimeline(t, conn).Version)

	require.True(t, hub.Publish(&models.TimelineSnapshot{Version: 2, Tasks: models.TaskBuckets{}}))
	require.True(t, hub.Publish(&models.TimelineSnapshot{Version: 5, Tasks: models.TaskBuckets{}}))
	assert.Equal(t, uint64(5), readTimeline(t, conn).Version)
}
