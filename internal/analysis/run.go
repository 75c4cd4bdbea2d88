// Package analysis fans a confirmed list of queries out to the backend and tracks every query's progress
// independently.
package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/myrjola/aivisibility/internal/backend"
	"github.com/myrjola/aivisibility/internal/errors"
	"github.com/myrjola/aivisibility/internal/models"
	"github.com/sourcegraph/conc"
)

var (
	ErrIndexOutOfRange = errors.NewSentinel("query index out of range")
	ErrNotAnalyzed     = errors.NewSentinel("query has not been analysed yet")
	ErrInterrupted     = errors.NewSentinel("analysis interrupted")
)

// Status is the lifecycle state of one query: Idle → Loading → Done | Failed, and Failed → Loading on retry.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusDone
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusDone:
		return "done"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Entry is everything known about one query of a run.
type Entry struct {
	Index  int
	Query  string
	Status Status
	// Item is set once Status is StatusDone and never changes afterwards.
	Item *models.AnalysisItem
	// Err is the most recent failure while Status is StatusFailed.
	Err error
	// Recommendations are generated on demand and kept apart from Item.Recommendations.
	Recommendations           []string
	GeneratingRecommendations bool
}

// Backend is the part of the remote service a run needs.
type Backend interface {
	AnalyzeQuery(ctx context.Context, params backend.AnalyzeQueryParams) (models.AnalysisItem, error)
	GenerateRecommendations(ctx context.Context, id string, index int) ([]string, error)
}

// Run analyses a fixed brand and query list. It is safe for concurrent use.
//
// Requests are never cancelled once dispatched. A run that is discarded while requests are in flight keeps
// receiving their results, nobody reads them anymore.
type Run struct {
	brand   models.BrandInput
	docID   string
	backend Backend
	logger  *slog.Logger

	mu       sync.Mutex
	entries  []Entry
	started  bool
	observer func(index int)
	// inflight holds a channel per dispatched entry that is closed once its fetch resolved.
	inflight map[int]chan struct{}

	settled     chan struct{}
	settledOnce sync.Once
}

// NewRun prepares a run. Nothing is sent to the backend before [Run.Start].
func NewRun(brand models.BrandInput, docID string, queries []string, b Backend, logger *slog.Logger) *Run {
	entries := make([]Entry, len(queries))
	for i, q := range queries {
		entries[i] = Entry{Index: i, Query: q, Status: StatusIdle}
	}
	return &Run{
		brand:    brand,
		docID:    docID,
		backend:  b,
		logger:   logger.With(slog.String("source", "analysis"), slog.String("doc_id", docID)),
		entries:  entries,
		inflight: make(map[int]chan struct{}),
		settled:  make(chan struct{}),
	}
}

// Rehydrate builds a finished run from a stored report without contacting the analysis endpoint.
func Rehydrate(docID string, report models.Report, b Backend, logger *slog.Logger) *Run {
	r := NewRun(report.Brand(), docID, report.Queries(), b, logger)
	for i := range report.Analysis {
		item := report.Analysis[i]
		r.entries[i].Status = StatusDone
		r.entries[i].Item = &item
	}
	r.started = true
	r.markSettled()
	return r
}

// Observe registers fn to be called with the index of every entry that changed. fn runs without the run's
// lock held and must not block for long.
func (r *Run) Observe(fn func(index int)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observer = fn
}

// Start dispatches one analysis request per query that is neither done nor in flight, all at once.
//
// Calling Start again never re-fetches completed entries. The settled signal belongs to the first call and
// fires once every request of that call has resolved. Start returns the number of dispatched requests.
func (r *Run) Start(ctx context.Context) int {
	ctx = context.WithoutCancel(ctx)

	r.mu.Lock()
	first := !r.started
	r.started = true
	dispatch := make([]int, 0, len(r.entries))
	for i := range r.entries {
		if s := r.entries[i].Status; s == StatusIdle || s == StatusFailed {
			r.begin(i)
			dispatch = append(dispatch, i)
		}
	}
	r.mu.Unlock()

	r.logger.LogAttrs(ctx, slog.LevelDebug, "start analysis",
		slog.Int("dispatched", len(dispatch)), slog.Int("total_queries", r.Len()))
	r.notify(dispatch...)

	r.dispatch(ctx, dispatch, func() {
		if first {
			r.markSettled()
			r.logger.LogAttrs(ctx, slog.LevelInfo, "analysis settled")
		}
	})

	return len(dispatch)
}

// Retry re-runs the analysis of a single query. It is a no-op for entries that are done or in flight.
// [Run.Await] waits for the outcome.
func (r *Run) Retry(ctx context.Context, index int) (bool, error) {
	ctx = context.WithoutCancel(ctx)

	r.mu.Lock()
	if index < 0 || index >= len(r.entries) {
		r.mu.Unlock()
		return false, errors.Wrap(ErrIndexOutOfRange, "retry", slog.Int("index", index))
	}
	if s := r.entries[index].Status; s == StatusDone || s == StatusLoading {
		r.mu.Unlock()
		return false, nil
	}
	r.begin(index)
	r.mu.Unlock()

	r.notify(index)
	r.dispatch(ctx, []int{index}, nil)
	return true, nil
}

// Await blocks until the entry at index is no longer in flight or ctx is done.
func (r *Run) Await(ctx context.Context, index int) error {
	r.mu.Lock()
	if index < 0 || index >= len(r.entries) {
		r.mu.Unlock()
		return errors.Wrap(ErrIndexOutOfRange, "await", slog.Int("index", index))
	}
	resolved, ok := r.inflight[index]
	r.mu.Unlock()
	if !ok {
		return nil
	}

	select {
	case <-resolved:
		return nil
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "await", slog.Int("index", index))
	}
}

// begin marks the entry at index in flight. r.mu must be held.
func (r *Run) begin(index int) {
	r.entries[index].Status = StatusLoading
	r.entries[index].Err = nil
	r.inflight[index] = make(chan struct{})
}

// dispatch fetches every index on its own goroutine and calls then, if set, once all have resolved. A
// panicking fetch fails its entry instead of crashing the process.
func (r *Run) dispatch(ctx context.Context, indexes []int, then func()) {
	var wg conc.WaitGroup
	for _, i := range indexes {
		wg.Go(func() {
			defer r.resolve(i)
			r.fetch(ctx, i)
		})
	}
	go func() {
		if recovered := wg.WaitAndRecover(); recovered != nil {
			r.logger.LogAttrs(ctx, slog.LevelError, "analysis worker panicked",
				slog.String("panic", fmt.Sprint(recovered.Value)))
		}
		if then != nil {
			then()
		}
	}()
}

// resolve ends the flight of the entry at index. An entry that is still loading lost its fetch to a panic.
func (r *Run) resolve(index int) {
	r.mu.Lock()
	entry := &r.entries[index]
	interrupted := entry.Status == StatusLoading
	if interrupted {
		entry.Status = StatusFailed
		entry.Err = ErrInterrupted
	}
	if resolved, ok := r.inflight[index]; ok {
		close(resolved)
		delete(r.inflight, index)
	}
	r.mu.Unlock()

	if interrupted {
		r.notify(index)
	}
}

func (r *Run) fetch(ctx context.Context, index int) {
	// Queries never change after NewRun so reading without the lock is fine.
	query := r.entries[index].Query
	params := backend.AnalyzeQueryParams{
		Name:         r.brand.Name,
		Domain:       r.brand.Domain,
		Keywords:     r.brand.Keywords,
		Query:        query,
		DocID:        r.docID,
		NumQuery:     index,
		TotalQueries: len(r.entries),
	}
	r.logger.LogAttrs(ctx, slog.LevelDebug, "dispatch analysis", slog.Int("index", index))

	item, err := r.backend.AnalyzeQuery(ctx, params)

	r.mu.Lock()
	entry := &r.entries[index]
	if err != nil {
		entry.Status = StatusFailed
		entry.Err = err
	} else {
		entry.Status = StatusDone
		entry.Item = &item
		entry.Err = nil
	}
	r.mu.Unlock()

	if err != nil {
		r.logger.LogAttrs(ctx, slog.LevelWarn, "analysis failed", slog.Int("index", index), errors.SlogError(err))
	}
	r.notify(index)
}

// GenerateRecommendations fetches improvement ideas for an analysed query and stores them on its entry.
func (r *Run) GenerateRecommendations(ctx context.Context, index int) ([]string, error) {
	r.mu.Lock()
	if index < 0 || index >= len(r.entries) {
		r.mu.Unlock()
		return nil, errors.Wrap(ErrIndexOutOfRange, "generate recommendations", slog.Int("index", index))
	}
	if r.entries[index].Status != StatusDone {
		r.mu.Unlock()
		return nil, errors.Wrap(ErrNotAnalyzed, "generate recommendations", slog.Int("index", index))
	}
	r.entries[index].GeneratingRecommendations = true
	r.mu.Unlock()
	r.notify(index)

	recommendations, err := r.backend.GenerateRecommendations(ctx, r.docID, index)

	r.mu.Lock()
	r.entries[index].GeneratingRecommendations = false
	if err == nil {
		r.entries[index].Recommendations = recommendations
	}
	r.mu.Unlock()
	r.notify(index)

	if err != nil {
		return nil, errors.Wrap(err, "generate recommendations", slog.Int("index", index))
	}
	return recommendations, nil
}

func (r *Run) notify(indexes ...int) {
	r.mu.Lock()
	observer := r.observer
	r.mu.Unlock()
	if observer == nil {
		return
	}
	for _, i := range indexes {
		observer(i)
	}
}

func (r *Run) markSettled() {
	r.settledOnce.Do(func() {
		close(r.settled)
	})
}

// Settled is closed once every request of the first [Run.Start] call has resolved.
func (r *Run) Settled() <-chan struct{} {
	return r.settled
}

// IsSettled reports whether [Run.Settled] is closed.
func (r *Run) IsSettled() bool {
	select {
	case <-r.settled:
		return true
	default:
		return false
	}
}

// Started reports whether [Run.Start] was called or the run was rehydrated.
func (r *Run) Started() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.started
}

func (r *Run) Brand() models.BrandInput {
	return r.brand
}

func (r *Run) DocID() string {
	return r.docID
}

// Len returns the total number of queries.
func (r *Run) Len() int {
	return len(r.entries)
}

// Queries returns the queries in display order.
func (r *Run) Queries() []string {
	queries := make([]string, len(r.entries))
	for i := range r.entries {
		queries[i] = r.entries[i].Query
	}
	return queries
}

// Entry returns a snapshot of the entry at index.
func (r *Run) Entry(index int) (Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if index < 0 || index >= len(r.entries) {
		return Entry{}, errors.Wrap(ErrIndexOutOfRange, "entry", slog.Int("index", index))
	}
	return r.entries[index], nil
}

// Entries returns a snapshot of all entries.
func (r *Run) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	entries := make([]Entry, len(r.entries))
	copy(entries, r.entries)
	return entries
}

// Results returns the analysis items available so far keyed by query index.
func (r *Run) Results() ResultSet {
	r.mu.Lock()
	defer r.mu.Unlock()
	results := make(ResultSet, len(r.entries))
	for _, e := range r.entries {
		if e.Status == StatusDone && e.Item != nil {
			results[e.Index] = *e.Item
		}
	}
	return results
}

// Metrics summarises the results available so far.
func (r *Run) Metrics() Metrics {
	return ComputeMetrics(r.Results(), r.Len())
}
