// Package streak detects sustained losing runs of a recommendation system and
// measures whether the games right after the run show any recovery.
package streak

import (
	"time"

	"github.com/sawpanic/streakrun/internal/domain/ou"
)

// Marker annotates a single row of a (system, team) history.
type Marker uint8

const (
	NoMarker          Marker = iota
	EighthLoss               // the row completing the loss run
	RecoveryWin              // first win inside the recovery window
	RecoveryExhausted        // last row of a window without any win
)

func (m Marker) String() string {
	switch m {
	case EighthLoss:
		return "X"
	case RecoveryWin:
		return "W"
	case RecoveryExhausted:
		return "L"
	default:
		return ""
	}
}

func (m Marker) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// Config holds the thresholds of the state machine.
type Config struct {
	LossStreak     int       // consecutive losses that open a recovery window
	RecoveryWindow int       // non-push games evaluated after the run
	Reset          ou.Period // state is discarded whenever this period changes
}

// DefaultConfig returns the classic 8 losses, 2 game window, yearly reset.
func DefaultConfig() Config {
	return Config{LossStreak: 8, RecoveryWindow: 2, Reset: ou.Yearly}
}

// Phase is the state machine mode.
type Phase uint8

const (
	Accumulating Phase = iota
	Recovering
)

func (p Phase) String() string {
	if p == Recovering {
		return "recovering"
	}
	return "accumulating"
}

// State is the per (system, team) state. It is replaced wholesale on reset.
type State struct {
	Phase             Phase
	ConsecutiveLosses int
	StreakStart       time.Time
	RecoveryGames     int
	RecoveryWins      int
}

// Event records one completed recovery window.
type Event struct {
	System    string    `json:"system"`
	Team      string    `json:"team"`
	Year      int       `json:"year"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	Recovered bool      `json:"recovered"`
}

// OpenWindow is a recovery window still in progress when the data ran out.
type OpenWindow struct {
	System    string    `json:"system"`
	Team      string    `json:"team"`
	Year      int       `json:"year"`
	StartDate time.Time `json:"start_date"`
	GamesSeen int       `json:"games_seen"`
	Wins      int       `json:"wins"`
}

// Machine runs the loss-streak / recovery scan for one (system, team) pair.
type Machine struct {
	cfg    Config
	system string
	team   string
	state  State
	key    int
	primed bool
}

// NewMachine creates a machine in the accumulating phase.
func NewMachine(cfg Config, system, team string) *Machine {
	return &Machine{cfg: cfg, system: system, team: team}
}

// State returns a copy of the current state.
func (m *Machine) State() State { return m.state }

// Step feeds the next chronological row and returns its marker and, when the
// row closes a recovery window, the finished event.
func (m *Machine) Step(date time.Time, rec ou.Recommendation, out ou.Outcome) (Marker, *Event) {
	if k := m.cfg.Reset.Key(date); !m.primed || k != m.key {
		// An unfinished window is dropped here, never finalized.
		m.key = k
		m.primed = true
		m.state = State{}
	}

	if !rec.Actionable() || out == ou.Skip {
		return NoMarker, nil
	}

	if m.state.Phase == Recovering {
		return m.stepRecovery(date, rec, out)
	}

	if out == ou.Push {
		return NoMarker, nil
	}
	if !ou.IsLoss(rec, out) {
		m.state.ConsecutiveLosses = 0
		return NoMarker, nil
	}

	if m.state.ConsecutiveLosses == 0 {
		m.state.StreakStart = date
	}
	m.state.ConsecutiveLosses++
	if m.state.ConsecutiveLosses < m.cfg.LossStreak {
		return NoMarker, nil
	}

	m.state = State{Phase: Recovering, StreakStart: m.state.StreakStart}
	return EighthLoss, nil
}

func (m *Machine) stepRecovery(date time.Time, rec ou.Recommendation, out ou.Outcome) (Marker, *Event) {
	if out == ou.Push {
		return NoMarker, nil
	}

	marker := NoMarker
	m.state.RecoveryGames++
	if ou.IsWin(rec, out) {
		if m.state.RecoveryWins == 0 {
			marker = RecoveryWin
		}
		m.state.RecoveryWins++
	}

	if m.state.RecoveryGames < m.cfg.RecoveryWindow {
		return marker, nil
	}

	recovered := m.state.RecoveryWins > 0
	if !recovered {
		marker = RecoveryExhausted
	}
	ev := &Event{
		System:    m.system,
		Team:      m.team,
		Year:      date.Year(),
		StartDate: m.state.StreakStart,
		EndDate:   date,
		Recovered: recovered,
	}
	m.state = State{}
	return marker, ev
}

// Open reports the window in progress, if any.
func (m *Machine) Open() *OpenWindow {
	if m.state.Phase != Recovering {
		return nil
	}
	return &OpenWindow{
		System:    m.system,
		Team:      m.team,
		Year:      m.state.StreakStart.Year(),
		StartDate: m.state.StreakStart,
		GamesSeen: m.state.RecoveryGames,
		Wins:      m.state.RecoveryWins,
	}
}
