package selection

import (
	"errors"

	"github.com/miradorstack/anomaly-timeline/internal/models"
)

// ErrNoActiveDate is returned by SelectAnomaly while Idle.
var ErrNoActiveDate = errors.New("no active date")

// Coordinator owns the selection state of a single alerts view. It performs no I/O and
// is not safe for concurrent use; the owning view serialises calls.
type Coordinator struct {
	state State
}

// NewCoordinator starts Idle, or DateSelected(initialDate) when a seed date is given.
func NewCoordinator(initialDate string) *Coordinator {
	c := &Coordinator{}
	if initialDate != "" {
		c.SelectDate(initialDate)
	}
	return c
}

// State returns the current selection.
func (c *Coordinator) State() State { return c.state }

// SelectDate moves to DateSelected(date) from any state and always closes an open detail.
func (c *Coordinator) SelectDate(date string) {
	c.state = DateState(date)
}

// ClearDate returns to Idle.
func (c *Coordinator) ClearDate() {
	c.state = IdleState()
}

// SelectAnomaly opens the detail for anomaly under the current date. While Idle the state
// is left untouched and ErrNoActiveDate is returned.
func (c *Coordinator) SelectAnomaly(anomaly models.AnomalyRecord) error {
	date, ok := c.state.Date()
	if !ok {
		return ErrNoActiveDate
	}
	c.state = AnomalyState(date, anomaly)
	return nil
}

// CloseAnomaly returns from AnomalySelected(d, _) to DateSelected(d). No-op otherwise.
func (c *Coordinator) CloseAnomaly() {
	if c.state.phase != AnomalySelected {
		return
	}
	c.state = DateState(c.state.date)
}

// Reconcile aligns an open detail with a refreshed timeline: the anomaly is re-bound to the
// fresh record with the same id under the selected date, or the detail is closed if that
// record is gone. The date selection itself is kept. It reports whether the state changed.
func (c *Coordinator) Reconcile(tasks models.TaskBuckets) bool {
	current, ok := c.state.Anomaly()
	if !ok {
		return false
	}
	task, found := tasks.Find(c.state.date, current.ID)
	if !found {
		c.CloseAnomaly()
		return true
	}
	if task.AnomalyData.Equal(current) {
		return false
	}
	c.state = AnomalyState(c.state.date, task.AnomalyData)
	return true
}
