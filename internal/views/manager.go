package views

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/miradorstack/anomaly-timeline/internal/metrics"
	"github.com/miradorstack/anomaly-timeline/internal/models"
	"github.com/miradorstack/anomaly-timeline/internal/selection"
	"github.com/miradorstack/anomaly-timeline/internal/utils"
)

var (
	// ErrViewNotFound is returned for unknown, closed or expired views.
	ErrViewNotFound = errors.New("view not found")
	// ErrInvalidDate is returned when a date is not YYYY-MM-DD.
	ErrInvalidDate = errors.New("invalid date")
	// ErrUnknownAnomaly is returned when a picked task is not on the selected date's timeline.
	ErrUnknownAnomaly = errors.New("unknown anomaly")
)

// View is what the timeline and detail collaborators render for one alerts view.
type View struct {
	ID          string
	Version     uint64
	GeneratedAt time.Time
	State       selection.State
	Timeline    models.TaskBuckets
	DisplayDate string
	Detail      *models.AnomalyRecord
}

// SelectedDate returns the date to highlight on the timeline, or "".
func (v View) SelectedDate() string {
	date, _ := v.State.Date()
	return date
}

type session struct {
	mu    sync.Mutex
	coord *selection.Coordinator
	seen  uint64
}

// Manager owns the selection session of every open alerts view and the latest timeline snapshot.
type Manager struct {
	logger   *slog.Logger
	sessions *gocache.Cache
	snapshot atomic.Pointer[models.TimelineSnapshot]
	newID    func() string
}

// NewManager creates a manager whose views expire after idleTTL without access.
func NewManager(logger *slog.Logger, idleTTL, cleanupInterval time.Duration) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if idleTTL <= 0 {
		idleTTL = 30 * time.Minute
	}
	sessions := gocache.New(idleTTL, cleanupInterval)
	sessions.OnEvicted(func(id string, _ interface{}) {
		metrics.ViewClosed()
		logger.Debug("view closed", slog.String("view_id", id))
	})
	return &Manager{
		logger:   logger,
		sessions: sessions,
		newID:    uuid.NewString,
	}
}

// Publish installs snapshot if it is newer than the current one and reconciles every open
// view against it. Older or equal versions are ignored.
func (m *Manager) Publish(snapshot *models.TimelineSnapshot) bool {
	if snapshot == nil {
		return false
	}
	for {
		current := m.snapshot.Load()
		if current != nil && snapshot.Version <= current.Version {
			return false
		}
		if m.snapshot.CompareAndSwap(current, snapshot) {
			break
		}
	}
	for id, item := range m.sessions.Items() {
		s, ok := item.Object.(*session)
		if !ok {
			continue
		}
		s.mu.Lock()
		m.reconcile(id, s, m.Snapshot())
		s.mu.Unlock()
	}
	return true
}

// Snapshot returns the current timeline snapshot, never nil.
func (m *Manager) Snapshot() *models.TimelineSnapshot {
	if s := m.snapshot.Load(); s != nil {
		return s
	}
	return &models.TimelineSnapshot{Tasks: models.TaskBuckets{}}
}

// Count returns the number of open views.
func (m *Manager) Count() int { return m.sessions.ItemCount() }

// Open creates a view, seeded with initialDate when it is non-empty.
func (m *Manager) Open(initialDate string) (View, error) {
	initialDate = strings.TrimSpace(initialDate)
	if initialDate != "" {
		if err := validateDate(initialDate); err != nil {
			return View{}, err
		}
	}
	id := m.newID()
	s := &session{coord: selection.NewCoordinator(initialDate)}
	m.sessions.Set(id, s, gocache.DefaultExpiration)
	metrics.ViewOpened()
	m.logger.Debug("view opened", slog.String("view_id", id), slog.String("initial_date", initialDate))

	s.mu.Lock()
	defer s.mu.Unlock()
	return m.render(id, s, m.Snapshot()), nil
}

// Get returns the current props of a view.
func (m *Manager) Get(id string) (View, error) {
	return m.with(id, func(*selection.Coordinator, models.TaskBuckets) error { return nil })
}

// SelectDate handles "user picked date D".
func (m *Manager) SelectDate(id, date string) (View, error) {
	date = strings.TrimSpace(date)
	if err := validateDate(date); err != nil {
		return View{}, err
	}
	return m.with(id, func(c *selection.Coordinator, _ models.TaskBuckets) error {
		metrics.SelectionTransition("select_date")
		c.SelectDate(date)
		return nil
	})
}

// ClearDate handles "clear selection".
func (m *Manager) ClearDate(id string) (View, error) {
	return m.with(id, func(c *selection.Coordinator, _ models.TaskBuckets) error {
		metrics.SelectionTransition("clear_date")
		c.ClearDate()
		return nil
	})
}

// SelectAnomaly handles "user picked task T" by resolving T on the selected date's timeline.
// Picking while no date is selected is ignored.
func (m *Manager) SelectAnomaly(id, anomalyID string) (View, error) {
	return m.with(id, func(c *selection.Coordinator, tasks models.TaskBuckets) error {
		date, ok := c.State().Date()
		if !ok {
			metrics.SelectionTransition("select_anomaly_ignored")
			m.logger.Debug("anomaly picked without active date", slog.String("view_id", id), slog.String("anomaly_id", anomalyID))
			return nil
		}
		task, found := tasks.Find(date, anomalyID)
		if !found {
			return fmt.Errorf("%w: %s on %s", ErrUnknownAnomaly, anomalyID, date)
		}
		metrics.SelectionTransition("select_anomaly")
		return c.SelectAnomaly(task.AnomalyData)
	})
}

// CloseAnomaly handles the detail view's close action.
func (m *Manager) CloseAnomaly(id string) (View, error) {
	return m.with(id, func(c *selection.Coordinator, _ models.TaskBuckets) error {
		metrics.SelectionTransition("close_anomaly")
		c.CloseAnomaly()
		return nil
	})
}

// Close discards a view's selection state.
func (m *Manager) Close(id string) error {
	if _, ok := m.sessions.Get(id); !ok {
		return ErrViewNotFound
	}
	m.sessions.Delete(id)
	return nil
}

// with runs fn under the session lock. fn sees the same snapshot the session was reconciled
// against and the returned view is rendered from.
func (m *Manager) with(id string, fn func(*selection.Coordinator, models.TaskBuckets) error) (View, error) {
	value, ok := m.sessions.Get(id)
	if !ok {
		return View{}, ErrViewNotFound
	}
	s := value.(*session)
	// Replace only refreshes live entries, so a concurrently closed view stays closed.
	_ = m.sessions.Replace(id, s, gocache.DefaultExpiration)

	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := m.Snapshot()
	m.reconcile(id, s, snapshot)
	if err := fn(s.coord, snapshot.Tasks); err != nil {
		return View{}, err
	}
	return m.render(id, s, snapshot), nil
}

// reconcile must be called with s.mu held.
func (m *Manager) reconcile(id string, s *session, snapshot *models.TimelineSnapshot) {
	if snapshot.Version <= s.seen {
		return
	}
	if s.coord.Reconcile(snapshot.Tasks) {
		m.logger.Debug("selection reconciled with new snapshot", slog.String("view_id", id), slog.Uint64("version", snapshot.Version))
	}
	s.seen = snapshot.Version
}

// render must be called with s.mu held.
func (m *Manager) render(id string, s *session, snapshot *models.TimelineSnapshot) View {
	state := s.coord.State()
	view := View{
		ID:          id,
		Version:     snapshot.Version,
		GeneratedAt: snapshot.GeneratedAt,
		State:       state,
		Timeline:    snapshot.Tasks,
	}
	if date, ok := state.Date(); ok {
		view.DisplayDate = DisplayDate(date)
	}
	if anomaly, ok := state.Anomaly(); ok {
		view.Detail = &anomaly
	}
	return view
}

func validateDate(date string) error {
	if _, err := utils.ParseDate(date); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}
	return nil
}

// DisplayDate renders a YYYY-MM-DD key as DD-MM-YYYY for the "showing timeline for" banner.
func DisplayDate(date string) string {
	parts := strings.Split(date, "-")
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, "-")
}
