// Package gradebook holds the edit buffer used when a professor changes many
// marks before committing them, and the per class gradebook preferences.
package gradebook

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/noah-isme/campus-gradebook-api/internal/models"
)

var (
	// ErrUnknownEntry is returned when staging a value for an entry that was
	// never loaded into the session.
	ErrUnknownEntry = errors.New("entry is not part of this gradebook session")
	// ErrShapeMismatch is returned when a staged mark has a different kind
	// than the persisted one.
	ErrShapeMismatch = errors.New("mark kind does not match entry")
)

// MarkWriter persists one mark.
type MarkWriter interface {
	WriteMark(ctx context.Context, entryID int64, mark models.Mark) error
}

// MarkWriterFunc adapts a function to MarkWriter.
type MarkWriterFunc func(ctx context.Context, entryID int64, mark models.Mark) error

// WriteMark implements MarkWriter.
func (f MarkWriterFunc) WriteMark(ctx context.Context, entryID int64, mark models.Mark) error {
	return f(ctx, entryID, mark)
}

// Snapshot is the persisted state of one entry as loaded into a session.
type Snapshot struct {
	EntryID     int64
	Mark        models.Mark
	StudentName string
	EntryName   string
}

// Change is a buffered edit awaiting save.
type Change struct {
	EntryID     int64       `json:"entry_id"`
	Value       models.Mark `json:"value"`
	Previous    models.Mark `json:"previous"`
	StudentName string      `json:"student_name"`
	EntryName   string      `json:"entry_name"`
}

// Outcome is the per item result of a save.
type Outcome string

const (
	OutcomeOK    Outcome = "ok"
	OutcomeError Outcome = "error"
)

// ItemResult reports what happened to one buffered change.
type ItemResult struct {
	EntryID     int64   `json:"entry_id"`
	StudentName string  `json:"student_name"`
	EntryName   string  `json:"entry_name"`
	Outcome     Outcome `json:"outcome"`
	Reason      string  `json:"reason,omitempty"`
	Err         error   `json:"-"`
}

// SaveReport aggregates a save attempt.
type SaveReport struct {
	SuccessCount int          `json:"success_count"`
	ErrorCount   int          `json:"error_count"`
	Results      []ItemResult `json:"results"`
}

// Failed returns the failing items.
func (r SaveReport) Failed() []ItemResult {
	out := make([]ItemResult, 0, r.ErrorCount)
	for _, item := range r.Results {
		if item.Outcome == OutcomeError {
			out = append(out, item)
		}
	}
	return out
}

// Session buffers mark edits against a baseline of persisted values. The
// buffer alone decides whether unsaved work exists.
type Session struct {
	mu       sync.Mutex
	baseline map[int64]Snapshot
	pending  map[int64]Change
	order    []int64
}

// NewSession builds a session over the given persisted values.
func NewSession(snapshots ...Snapshot) *Session {
	s := &Session{
		baseline: make(map[int64]Snapshot, len(snapshots)),
		pending:  make(map[int64]Change),
	}
	for _, snap := range snapshots {
		s.baseline[snap.EntryID] = snap
	}
	return s
}

// Stage buffers a new value for an entry. Staging the persisted value drops
// any pending change for that entry.
func (s *Session) Stage(entryID int64, value models.Mark) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	base, ok := s.baseline[entryID]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownEntry, entryID)
	}
	if value == nil || base.Mark == nil || value.Kind() != base.Mark.Kind() {
		return fmt.Errorf("%w: %d", ErrShapeMismatch, entryID)
	}
	if value.Equal(base.Mark) {
		s.drop(entryID)
		return nil
	}
	if _, exists := s.pending[entryID]; !exists {
		s.order = append(s.order, entryID)
	}
	s.pending[entryID] = Change{
		EntryID:     entryID,
		Value:       value,
		Previous:    base.Mark,
		StudentName: base.StudentName,
		EntryName:   base.EntryName,
	}
	return nil
}

// Value returns the displayed mark: the pending value if any, else the
// persisted one.
func (s *Session) Value(entryID int64) (models.Mark, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if change, ok := s.pending[entryID]; ok {
		return change.Value, true
	}
	base, ok := s.baseline[entryID]
	return base.Mark, ok
}

// Pending lists buffered changes in staging order.
func (s *Session) Pending() []Change {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Change, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.pending[id])
	}
	return out
}

// HasUnsavedChanges reports whether the buffer is non-empty.
func (s *Session) HasUnsavedChanges() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending) > 0
}

// Discard empties the buffer and returns the persisted values of the entries
// that had pending edits.
func (s *Session) Discard() map[int64]models.Mark {
	s.mu.Lock()
	defer s.mu.Unlock()
	reverted := make(map[int64]models.Mark, len(s.pending))
	for id := range s.pending {
		reverted[id] = s.baseline[id].Mark
	}
	s.pending = make(map[int64]Change)
	s.order = nil
	return reverted
}

// Save writes every buffered change independently. Successful writes become
// the new baseline and leave the buffer; failures stay buffered for retry.
func (s *Session) Save(ctx context.Context, w MarkWriter) SaveReport {
	changes := s.Pending()
	report := SaveReport{Results: make([]ItemResult, 0, len(changes))}

	for _, change := range changes {
		item := ItemResult{
			EntryID:     change.EntryID,
			StudentName: change.StudentName,
			EntryName:   change.EntryName,
			Outcome:     OutcomeOK,
		}
		if err := w.WriteMark(ctx, change.EntryID, change.Value); err != nil {
			item.Outcome = OutcomeError
			item.Reason = err.Error()
			item.Err = err
			report.ErrorCount++
		} else {
			s.commit(change)
			report.SuccessCount++
		}
		report.Results = append(report.Results, item)
	}
	return report
}

func (s *Session) commit(change Change) {
	s.mu.Lock()
	defer s.mu.Unlock()
	base := s.baseline[change.EntryID]
	base.Mark = change.Value
	s.baseline[change.EntryID] = base
	// a newer edit staged while saving stays buffered
	if current, ok := s.pending[change.EntryID]; ok && current.Value.Equal(change.Value) {
		s.drop(change.EntryID)
	}
}

func (s *Session) drop(entryID int64) {
	if _, ok := s.pending[entryID]; !ok {
		return
	}
	delete(s.pending, entryID)
	for i, id := range s.order {
		if id == entryID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}
