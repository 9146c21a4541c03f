package pipeline

import "slices"

// State is the lifecycle position of one document within a batch
type State int

const (
	StateIdle State = iota
	StateOpening
	StatePerPage
	StateFinalizing
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateOpening:
		return "opening"
	case StatePerPage:
		return "processing"
	case StateFinalizing:
		return "finalizing"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// MarshalText lets states appear by name in JSON responses
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Terminal reports whether the document has finished, successfully or not
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// allowed lists the legal transitions of the document state machine
var allowed = map[State][]State{
	StateIdle:       {StateOpening, StateFailed},
	StateOpening:    {StatePerPage, StateFailed},
	StatePerPage:    {StateFinalizing, StateFailed},
	StateFinalizing: {StateDone, StateFailed},
}

func canTransition(from, to State) bool {
	return slices.Contains(allowed[from], to)
}
