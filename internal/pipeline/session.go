package pipeline

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DocumentStatus is the observable state of one document in a session
type DocumentStatus struct {
	Name         string   `json:"name"`
	State        State    `json:"state"`
	Progress     Progress `json:"progress"`
	SkippedPages []int    `json:"skipped_pages,omitempty"`
	Error        string   `json:"error,omitempty"`
}

// Session tracks one batch conversion from start to completion. It is the
// only place per-document status lives; the presentation layer reads it via
// Snapshot or Subscribe.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu      sync.Mutex
	docs    []DocumentStatus
	subs    map[int]func(Event)
	nextSub int
}

// NewSession creates a session with one idle entry per document name
func NewSession(names []string) *Session {
	docs := make([]DocumentStatus, len(names))
	for i, name := range names {
		docs[i] = DocumentStatus{Name: name, State: StateIdle}
	}
	return &Session{
		ID:        uuid.NewString(),
		CreatedAt: time.Now(),
		docs:      docs,
		subs:      make(map[int]func(Event)),
	}
}

// Subscribe registers fn for every subsequent event and returns a function
// that removes it. Subscribers run synchronously on the pipeline goroutine
// and must not block; a panicking subscriber is dropped.
func (s *Session) Subscribe(fn func(Event)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// Len returns the number of documents in the session
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.docs)
}

// Transition moves document doc to state to. Illegal transitions are
// rejected so a reporting bug cannot resurrect a failed document.
func (s *Session) Transition(doc int, to State, cause error) error {
	s.mu.Lock()
	if doc < 0 || doc >= len(s.docs) {
		s.mu.Unlock()
		return fmt.Errorf("document index %d out of range", doc)
	}
	d := &s.docs[doc]
	if !canTransition(d.State, to) {
		from := d.State
		s.mu.Unlock()
		return fmt.Errorf("illegal transition for %s: %s -> %s", d.Name, from, to)
	}
	d.State = to
	if cause != nil {
		d.Error = cause.Error()
	}
	ev := Event{Kind: EventState, Document: doc, Name: d.Name, State: to, Err: cause}
	s.mu.Unlock()

	s.notify(ev)
	return nil
}

// Advance records page progress for doc. Progress never moves backwards
// within a document.
func (s *Session) Advance(doc, current, total int) {
	s.mu.Lock()
	if doc < 0 || doc >= len(s.docs) {
		s.mu.Unlock()
		return
	}
	d := &s.docs[doc]
	if current < d.Progress.Current && total == d.Progress.Total {
		s.mu.Unlock()
		return
	}
	d.Progress = Progress{Current: current, Total: total}
	ev := Event{Kind: EventProgress, Document: doc, Name: d.Name, Progress: d.Progress}
	s.mu.Unlock()

	s.notify(ev)
}

// Skip records that page was omitted from doc's output
func (s *Session) Skip(doc, page int, cause error) {
	s.mu.Lock()
	if doc < 0 || doc >= len(s.docs) {
		s.mu.Unlock()
		return
	}
	d := &s.docs[doc]
	d.SkippedPages = append(d.SkippedPages, page)
	ev := Event{Kind: EventPageSkipped, Document: doc, Name: d.Name, Page: page, Err: cause}
	s.mu.Unlock()

	s.notify(ev)
}

// Snapshot returns a copy of every document's status
func (s *Session) Snapshot() []DocumentStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]DocumentStatus, len(s.docs))
	for i, d := range s.docs {
		d.SkippedPages = append([]int(nil), d.SkippedPages...)
		out[i] = d
	}
	return out
}

// Status returns a copy of one document's status
func (s *Session) Status(doc int) (DocumentStatus, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if doc < 0 || doc >= len(s.docs) {
		return DocumentStatus{}, false
	}
	d := s.docs[doc]
	d.SkippedPages = append([]int(nil), d.SkippedPages...)
	return d, true
}

// Reset discards all document status and subscribers
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.docs {
		s.docs[i] = DocumentStatus{Name: s.docs[i].Name, State: StateIdle}
	}
	s.subs = make(map[int]func(Event))
}

func (s *Session) notify(ev Event) {
	ev.SessionID = s.ID

	s.mu.Lock()
	subs := make(map[int]func(Event), len(s.subs))
	for id, fn := range s.subs {
		subs[id] = fn
	}
	s.mu.Unlock()

	for id, fn := range subs {
		if !s.deliver(fn, ev) {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		}
	}
}

func (s *Session) deliver(fn func(Event), ev Event) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	fn(ev)
	return true
}
