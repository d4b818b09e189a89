package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"propsearch/internal/logger"
	"propsearch/internal/metrics"
	"propsearch/internal/model"

	"github.com/rs/zerolog"
)

// History write outcomes
const (
	HistoryAppended  = "appended"
	HistoryDuplicate = "duplicate"
	HistoryFailed    = "failed"
	HistorySkipped   = "skipped"
)

// DefaultHistoryTimeout bounds a detached history write
const DefaultHistoryTimeout = 3 * time.Second

// HistoryStore persists per-user search history
type HistoryStore interface {
	// LastQuery returns the user's most recently stored query; false when the
	// user has no history.
	LastQuery(ctx context.Context, userID string) (string, bool, error)
	Append(ctx context.Context, entry *model.SearchHistoryEntry) error
	Recent(ctx context.Context, userID string, limit int) ([]model.SearchHistoryEntry, error)
}

// HistoryRecorder appends queries to a user's history, skipping a query that
// repeats the user's previous one. Failures are logged and never returned.
//
// Writes for the same user run one at a time in the order they were
// submitted, so the lookup of the last query and the append act as one step.
type HistoryRecorder struct {
	store   HistoryStore
	timeout time.Duration
	logger  zerolog.Logger
	metrics *metrics.Metrics
	wg      sync.WaitGroup

	mu    sync.Mutex
	tails map[string]chan struct{} // last queued write per user
}

// NewHistoryRecorder creates a recorder. m may be nil.
func NewHistoryRecorder(store HistoryStore, timeout time.Duration, log zerolog.Logger, m *metrics.Metrics) *HistoryRecorder {
	if timeout <= 0 {
		timeout = DefaultHistoryTimeout
	}
	return &HistoryRecorder{
		store:   store,
		timeout: timeout,
		logger:  log,
		metrics: m,
		tails:   make(map[string]chan struct{}),
	}
}

// Record stores query for userID unless it equals the user's last stored
// query, and reports the outcome
func (r *HistoryRecorder) Record(ctx context.Context, userID, query string) string {
	query = strings.TrimSpace(query)
	if userID == "" || query == "" {
		return HistorySkipped
	}

	prev, done := r.enqueue(userID)
	defer r.release(userID, done)

	outcome := HistoryFailed
	if r.waitTurn(ctx, userID, prev) {
		outcome = r.record(ctx, userID, query)
	}
	r.metrics.HistoryWrite(outcome)
	return outcome
}

// enqueue registers a write for userID and returns the channel of the write
// queued before it, or nil
func (r *HistoryRecorder) enqueue(userID string) (prev, done chan struct{}) {
	done = make(chan struct{})
	r.mu.Lock()
	prev = r.tails[userID]
	r.tails[userID] = done
	r.mu.Unlock()
	return prev, done
}

func (r *HistoryRecorder) release(userID string, done chan struct{}) {
	close(done)
	r.mu.Lock()
	if r.tails[userID] == done {
		delete(r.tails, userID)
	}
	r.mu.Unlock()
}

func (r *HistoryRecorder) waitTurn(ctx context.Context, userID string, prev chan struct{}) bool {
	if prev == nil {
		return true
	}
	select {
	case <-prev:
		return true
	case <-ctx.Done():
		log := logger.FromContext(ctx, r.logger)
		log.Warn().Err(ctx.Err()).Str("user_id", userID).Msg("history write timed out waiting for previous write")
		return false
	}
}

func (r *HistoryRecorder) record(ctx context.Context, userID, query string) string {
	log := logger.FromContext(ctx, r.logger)

	last, ok, err := r.store.LastQuery(ctx, userID)
	if err != nil {
		log.Warn().Err(err).Str("user_id", userID).Msg("history lookup failed")
		return HistoryFailed
	}
	if ok && last == query {
		return HistoryDuplicate
	}

	err = r.store.Append(ctx, &model.SearchHistoryEntry{
		UserID: userID,
		Query:  query,
	})
	if err != nil {
		log.Warn().Err(err).Str("user_id", userID).Msg("history append failed")
		return HistoryFailed
	}
	return HistoryAppended
}

// RecordAsync queues the write and runs it in the background, detached from
// ctx cancellation but bounded by the recorder timeout
func (r *HistoryRecorder) RecordAsync(ctx context.Context, userID, query string) {
	if userID == "" {
		return
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return
	}

	// Queue before returning so a later search by the same user is ordered
	// after this one.
	prev, done := r.enqueue(userID)
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer r.release(userID, done)

		ctx := context.WithoutCancel(ctx)
		if prev != nil {
			<-prev
		}
		ctx, cancel := context.WithTimeout(ctx, r.timeout)
		defer cancel()
		r.metrics.HistoryWrite(r.record(ctx, userID, query))
	}()
}

// Wait blocks until every background write has finished
func (r *HistoryRecorder) Wait() {
	r.wg.Wait()
}

// Recent lists the user's latest searches, newest first
func (r *HistoryRecorder) Recent(ctx context.Context, userID string, limit int) ([]model.SearchHistoryEntry, error) {
	return r.store.Recent(ctx, userID, limit)
}
