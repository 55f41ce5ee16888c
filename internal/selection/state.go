package selection

import "github.com/miradorstack/anomaly-timeline/internal/models"

// Phase tags the variant held by a State.
type Phase int

const (
	// Idle means no date is chosen.
	Idle Phase = iota
	// DateSelected means a date is chosen and no detail is open.
	DateSelected
	// AnomalySelected means a date is chosen and one anomaly's detail is open.
	AnomalySelected
)

func (p Phase) String() string {
	switch p {
	case DateSelected:
		return "date_selected"
	case AnomalySelected:
		return "anomaly_selected"
	default:
		return "idle"
	}
}

// State is an immutable selection value. The zero value is Idle. States can only be
// built through the constructors below, so an anomaly never exists without a date.
type State struct {
	phase   Phase
	date    string
	anomaly models.AnomalyRecord
}

// IdleState returns the Idle variant.
func IdleState() State { return State{} }

// DateState returns DateSelected(date).
func DateState(date string) State {
	return State{phase: DateSelected, date: date}
}

// AnomalyState returns AnomalySelected(date, anomaly).
func AnomalyState(date string, anomaly models.AnomalyRecord) State {
	return State{phase: AnomalySelected, date: date, anomaly: anomaly}
}

// Phase returns the active variant.
func (s State) Phase() Phase { return s.phase }

// Date returns the selected date, if any.
func (s State) Date() (string, bool) {
	if s.phase == Idle {
		return "", false
	}
	return s.date, true
}

// Anomaly returns the anomaly whose detail is open, if any.
func (s State) Anomaly() (models.AnomalyRecord, bool) {
	if s.phase != AnomalySelected {
		return models.AnomalyRecord{}, false
	}
	return s.anomaly, true
}
