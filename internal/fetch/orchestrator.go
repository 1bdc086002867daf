package fetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/petrend/petrend/internal/model"
	"github.com/petrend/petrend/internal/ratelimit"
	"github.com/petrend/petrend/internal/retry"
)

// ErrSessionActive is returned when an operation requires exclusive access
// to the store while a fetch session is still running.
var ErrSessionActive = errors.New("a fetch session is already running")

// Store is the subset of the record store the orchestrator needs.
type Store interface {
	Upsert(model.Posting) error
	Count() (int, error)
	ClearAll() error
}

// Orchestrator drives fetch sessions: round-robin batches across the
// configured sources, upserting each batch into the store before requesting
// the next one. One session runs at a time per store instance.
type Orchestrator struct {
	adapters map[model.Source]model.SourceAdapter
	store    Store
	limiter  *ratelimit.Limiter
	retry    retry.Policy
	logger   *slog.Logger

	mu     sync.Mutex // guards active
	active *Session
}

// New creates an orchestrator over the given source adapters.
func New(adapters []model.SourceAdapter, store Store, limiter *ratelimit.Limiter, retryPolicy retry.Policy, logger *slog.Logger) *Orchestrator {
	bysource := make(map[model.Source]model.SourceAdapter, len(adapters))
	for _, a := range adapters {
		bysource[a.Source()] = a
	}
	return &Orchestrator{
		adapters: bysource,
		store:    store,
		limiter:  limiter,
		retry:    retryPolicy,
		logger:   logger,
	}
}

// sourceCursor tracks pagination progress for one source within a session.
type sourceCursor struct {
	adapter   model.SourceAdapter
	offset    int
	exhausted bool
}

// Start validates the request and launches the session goroutine. The
// returned Session is already Running; callers poll Status and wait on
// Done.
func (o *Orchestrator) Start(ctx context.Context, req model.FetchRequest) (*Session, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var cursors []*sourceCursor
	for _, src := range req.Sources {
		a, ok := o.adapters[src]
		if !ok {
			return nil, &model.ValidationError{Field: "sources", Reason: fmt.Sprintf("no adapter configured for %q", src)}
		}
		cursors = append(cursors, &sourceCursor{adapter: a})
	}

	o.mu.Lock()
	if o.active != nil && !o.active.Status().State.Terminal() {
		o.mu.Unlock()
		return nil, ErrSessionActive
	}
	session := newSession()
	o.active = session
	o.mu.Unlock()

	o.logger.Info("fetch session started",
		"max_listings", req.MaxListings,
		"batch_size", req.BatchSize,
		"sources", len(cursors),
		"from", req.From.Format("2006-01-02"),
		"to", req.To.Format("2006-01-02"),
	)

	go o.run(ctx, session, req, cursors)
	return session, nil
}

// ClearAll empties the store. It is rejected while a session is running;
// clear must not race a fetch or classify writing into the table.
func (o *Orchestrator) ClearAll() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.active != nil && !o.active.Status().State.Terminal() {
		return ErrSessionActive
	}
	return o.store.ClearAll()
}

// run is the session loop. Cancellation and the listing target are checked
// only at batch boundaries, so at most one in-flight request completes
// after Cancel is called.
func (o *Orchestrator) run(ctx context.Context, s *Session, req model.FetchRequest, cursors []*sourceCursor) {
	anyStored := false

	for {
		remaining := false
		for _, c := range cursors {
			if c.exhausted {
				continue
			}

			if s.isCancelled() || ctx.Err() != nil {
				s.finish(StateCancelled, s.errorCount() > 0)
				o.logger.Info("fetch session cancelled", "fetched", s.fetchedCount())
				return
			}

			fetched := s.fetchedCount()
			if fetched >= req.MaxListings {
				s.finish(StateCompleted, s.errorCount() > 0)
				o.logger.Info("fetch session reached target", "fetched", fetched)
				return
			}

			source := c.adapter.Source()
			limit := req.BatchSize
			if left := req.MaxListings - fetched; left < limit {
				limit = left
			}

			if err := o.limiter.Wait(ctx, string(source)); err != nil {
				s.finish(StateCancelled, s.errorCount() > 0)
				return
			}

			var page model.Page
			err := o.retry.Do(ctx, "fetch page "+string(source), func(ctx context.Context) error {
				var err error
				page, err = c.adapter.FetchPage(ctx, model.PageQuery{
					Location: req.Location,
					From:     req.From,
					To:       req.To,
					Offset:   c.offset,
					Limit:    limit,
				})
				return err
			})
			if err != nil {
				if errors.Is(err, context.Canceled) {
					s.finish(StateCancelled, s.errorCount() > 0)
					return
				}
				// Batch failed: record it and stop asking this source, but
				// keep the remaining sources going.
				s.recordError(err)
				c.exhausted = true
				o.logger.Warn("source exhausted after fetch error", "source", source, "error", err)
				continue
			}

			for _, p := range page.Postings {
				if err := o.store.Upsert(p); err != nil {
					// Store failures are fatal to the session; a partial
					// batch already written stays (upserts are idempotent).
					s.recordError(err)
					s.finish(StateFailed, anyStored)
					o.logger.Error("fetch session failed on store write", "error", err)
					return
				}
			}
			if len(page.Postings) > 0 {
				anyStored = true
			}
			s.addFetched(len(page.Postings))

			o.logger.Debug("batch stored",
				"source", source,
				"postings", len(page.Postings),
				"fetched", s.fetchedCount(),
			)

			if page.NextOffset == nil {
				c.exhausted = true
			} else {
				c.offset = *page.NextOffset
			}

			if !c.exhausted {
				remaining = true
			}
		}

		if !remaining {
			break
		}
	}

	// Every source is exhausted. Failed only when nothing at all was
	// stored and at least one source errored; partial progress still
	// completes, carrying the errors in the status.
	if s.errorCount() > 0 && !anyStored {
		s.finish(StateFailed, false)
		o.logger.Error("fetch session failed", "errors", s.errorCount())
		return
	}
	s.finish(StateCompleted, s.errorCount() > 0)
	o.logger.Info("fetch session completed",
		"fetched", s.fetchedCount(),
		"errors", s.errorCount(),
	)
}
