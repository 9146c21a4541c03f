package pipeline

// Progress is the position of the page loop within one document
type Progress struct {
	Current int `json:"current"`
	Total   int `json:"total"`
}

// Percent returns progress as a whole percentage
func (p Progress) Percent() int {
	if p.Total <= 0 {
		return 0
	}
	return p.Current * 100 / p.Total
}

// ProgressFunc receives (current page, total pages) after each page of a
// document. It must not block.
type ProgressFunc func(current, total int)

// EventKind tags the payload carried by an Event
type EventKind int

const (
	// EventState is sent when a document changes State
	EventState EventKind = iota
	// EventProgress is sent after each page of a document
	EventProgress
	// EventPageSkipped is sent when a page is left out of the output
	EventPageSkipped
)

func (k EventKind) String() string {
	switch k {
	case EventState:
		return "state"
	case EventProgress:
		return "progress"
	case EventPageSkipped:
		return "page_skipped"
	default:
		return "unknown"
	}
}

// Event is delivered to session subscribers. Only the fields relevant to Kind
// are set.
type Event struct {
	Kind      EventKind
	SessionID string

	// Document is the 0-based position of the document in the batch
	Document int
	Name     string

	// EventState
	State State

	// EventProgress
	Progress Progress

	// EventPageSkipped
	Page int

	// EventState (on failure) and EventPageSkipped
	Err error
}
