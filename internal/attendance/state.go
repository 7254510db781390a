// Package attendance drives one attendance cycle per captured image:
// verify the face, record the attendance event, then show the result.
//
// State changes go through Reduce, a pure function of the current state and
// an event. Results of remote calls carry the cycle token they were started
// under; results whose token no longer matches are discarded.
package attendance

import (
	"fmt"
	"strings"
	"time"

	"github.com/kozaktomas/bundy-kiosk/internal/roster"
)

// Mode is the kind of attendance event the kiosk records.
type Mode string

// Modes.
const (
	TimeIn  Mode = "TIME_IN"
	TimeOut Mode = "TIME_OUT"
)

// ParseMode accepts TIME_IN/TIME_OUT in any case, with "-" for "_".
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(s)), "-", "_"))
	switch m {
	case TimeIn, TimeOut:
		return m, nil
	}
	return "", fmt.Errorf("invalid mode %q: expected TIME_IN or TIME_OUT", s)
}

// Label is the operator-facing name of the mode.
func (m Mode) Label() string {
	if m == TimeOut {
		return "Time-Out"
	}
	return "Time-In"
}

// Phase of the current cycle.
type Phase int

// Phases.
const (
	Idle Phase = iota
	Verifying
	Recording
	Success
	Error
)

var phaseNames = [...]string{"idle", "verifying", "recording", "success", "error"}

func (p Phase) String() string {
	if int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// MarshalText encodes the phase by name.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText decodes a phase name.
func (p *Phase) UnmarshalText(text []byte) error {
	for i, name := range phaseNames {
		if name == string(text) {
			*p = Phase(i)
			return nil
		}
	}
	return fmt.Errorf("unknown phase %q", text)
}

// Busy reports whether a remote call is in flight.
func (p Phase) Busy() bool {
	return p == Verifying || p == Recording
}

// CompletedAction is the last attendance event the kiosk recorded.
type CompletedAction struct {
	Mode       Mode            `json:"mode"`
	Employee   roster.Employee `json:"employee"`
	Timestamp  time.Time       `json:"timestamp"`
	RecordID   string          `json:"record_id,omitempty"`
	Confidence *float64        `json:"confidence,omitempty"`
}

// State is the orchestrator state. Employee and Confidence are set only in
// Recording and Success; Failure only in Error.
type State struct {
	Mode       Mode             `json:"mode"`
	Phase      Phase            `json:"phase"`
	Token      uint64           `json:"cycle"`
	Employee   *roster.Employee `json:"employee,omitempty"`
	Confidence *float64         `json:"confidence,omitempty"`
	LastAction *CompletedAction `json:"last_action,omitempty"`
	Failure    *Failure         `json:"error,omitempty"`
}

// NewState returns the idle state for mode.
func NewState(mode Mode) State {
	return State{Mode: mode, Phase: Idle}
}

// Event is an input to Reduce.
type Event interface {
	event()
}

// Captured starts a new cycle with a freshly captured image.
type Captured struct{}

// Matched is a successful verification.
type Matched struct {
	Token      uint64
	Employee   roster.Employee
	Confidence *float64
}

// Failed ends the cycle with an error.
type Failed struct {
	Token   uint64
	Failure Failure
}

// Recorded is a successful attendance record.
type Recorded struct {
	Token  uint64
	Action CompletedAction
}

// Retaken abandons the current cycle and returns to Idle.
type Retaken struct{}

// ModeSwitched changes the mode and abandons the current cycle.
type ModeSwitched struct {
	Mode Mode
}

func (Captured) event()     {}
func (Matched) event()      {}
func (Failed) event()       {}
func (Recorded) event()     {}
func (Retaken) event()      {}
func (ModeSwitched) event() {}

// Reduce applies e to s. The second result is false when e does not apply
// to s (wrong phase or stale token) and s is returned unchanged.
func Reduce(s State, e Event) (State, bool) {
	switch e := e.(type) {
	case Captured:
		if s.Phase.Busy() {
			return s, false
		}
		return State{Mode: s.Mode, Phase: Verifying, Token: s.Token + 1, LastAction: s.LastAction}, true

	case Matched:
		if e.Token != s.Token || s.Phase != Verifying {
			return s, false
		}
		employee := e.Employee
		next := s
		next.Phase = Recording
		next.Employee = &employee
		next.Confidence = e.Confidence
		return next, true

	case Failed:
		if e.Token != s.Token || !s.Phase.Busy() {
			return s, false
		}
		failure := e.Failure
		return State{Mode: s.Mode, Phase: Error, Token: s.Token, LastAction: s.LastAction, Failure: &failure}, true

	case Recorded:
		if e.Token != s.Token || s.Phase != Recording {
			return s, false
		}
		action := e.Action
		next := s
		next.Phase = Success
		next.LastAction = &action
		return next, true

	case Retaken:
		if s.Phase == Idle {
			return s, false
		}
		return State{Mode: s.Mode, Phase: Idle, Token: s.Token + 1, LastAction: s.LastAction}, true

	case ModeSwitched:
		if e.Mode == s.Mode && s.Phase == Idle {
			return s, false
		}
		return State{Mode: e.Mode, Phase: Idle, Token: s.Token + 1, LastAction: s.LastAction}, true
	}
	return s, false
}
