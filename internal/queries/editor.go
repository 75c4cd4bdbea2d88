// Package queries holds the editable list of search queries a visitor confirms before analysis starts.
package queries

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/myrjola/aivisibility/internal/errors"
)

// MaxQueries bounds how many queries a single analysis may contain.
const MaxQueries = 10

var (
	ErrIndexOutOfRange = errors.NewSentinel("query index out of range")
	// ErrFrozen is returned when editing after the list was handed over to analysis. Indexes of a frozen
	// list are shared with the analysis results, so changing them would misalign both.
	ErrFrozen = errors.NewSentinel("query list is frozen")
)

// Editor is an ordered, bounded list of queries. It is safe for concurrent use.
type Editor struct {
	mu      sync.Mutex
	queries []string
	frozen  bool
}

// NewEditor starts with the given queries. Blank entries are dropped and the list is truncated to
// [MaxQueries].
func NewEditor(initial []string) *Editor {
	e := &Editor{queries: make([]string, 0, MaxQueries)}
	for _, q := range initial {
		e.add(q)
	}
	return e
}

// Add appends trimmed text. Blank text or a full list is silently ignored and reported as false.
func (e *Editor) Add(text string) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.frozen {
		return false, ErrFrozen
	}
	return e.add(text), nil
}

func (e *Editor) add(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" || len(e.queries) >= MaxQueries {
		return false
	}
	e.queries = append(e.queries, text)
	return true
}

// Edit replaces the query at index. Blank text is rejected as a no-op.
func (e *Editor) Edit(index int, text string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.frozen {
		return ErrFrozen
	}
	if index < 0 || index >= len(e.queries) {
		return errors.Wrap(ErrIndexOutOfRange, "edit query", slog.Int("index", index), slog.Int("len", len(e.queries)))
	}
	if text = strings.TrimSpace(text); text != "" {
		e.queries[index] = text
	}
	return nil
}

// Remove deletes the query at index, shifting later queries down by one.
func (e *Editor) Remove(index int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.frozen {
		return ErrFrozen
	}
	if index < 0 || index >= len(e.queries) {
		return errors.Wrap(ErrIndexOutOfRange, "remove query", slog.Int("index", index), slog.Int("len", len(e.queries)))
	}
	e.queries = append(e.queries[:index], e.queries[index+1:]...)
	return nil
}

// Freeze stops further edits and returns the final list.
func (e *Editor) Freeze() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.frozen = true
	return append([]string(nil), e.queries...)
}

// Frozen reports whether [Editor.Freeze] has been called.
func (e *Editor) Frozen() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.frozen
}

// Queries returns a copy of the current list.
func (e *Editor) Queries() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.queries...)
}

func (e *Editor) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.queries)
}

// Full reports whether another query can still be added.
func (e *Editor) Full() bool {
	return e.Len() >= MaxQueries
}
