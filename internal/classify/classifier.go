package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/petrend/petrend/internal/llm"
	"github.com/petrend/petrend/internal/model"
)

// Store is the subset of the record store the classifier needs. The
// classifier owns only the label and keyword fields of a posting.
type Store interface {
	ListUnclassified(r model.DateRange) ([]model.Posting, error)
	SetClassification(id string, source model.Source, isPE bool, keywords []string) error
}

// Result is one classification outcome.
type Result struct {
	IsPE     bool
	Keywords []string
}

// Summary reports one ClassifyUnclassified run. Per-posting failures are
// collected here; they never abort sibling work.
type Summary struct {
	Processed  int
	Classified int
	Errors     []error
}

type cacheKey struct {
	id     string
	source model.Source
}

// Classifier labels postings as PE-related or not and extracts their skill
// keywords through an LLM backend. Results are cached per posting so a
// posting is never sent to the backend twice.
type Classifier struct {
	provider llm.Provider
	store    Store
	workers  int
	logger   *slog.Logger

	mu    sync.Mutex
	cache map[cacheKey]Result
}

// New creates a classifier over the given backend. workers bounds the
// number of concurrent backend calls in ClassifyUnclassified.
func New(provider llm.Provider, store Store, workers int, logger *slog.Logger) *Classifier {
	if workers < 1 {
		workers = 1
	}
	return &Classifier{
		provider: provider,
		store:    store,
		workers:  workers,
		logger:   logger,
		cache:    make(map[cacheKey]Result),
	}
}

// Classify labels one posting. The cache is consulted first; on a miss the
// backend is called and the result written to both the cache and the store.
func (c *Classifier) Classify(ctx context.Context, p model.Posting) (Result, error) {
	key := cacheKey{id: p.ID, source: p.Source}

	c.mu.Lock()
	if res, ok := c.cache[key]; ok {
		c.mu.Unlock()
		return res, nil
	}
	c.mu.Unlock()

	res, err := c.classifyRemote(ctx, p)
	if err != nil {
		return Result{}, err
	}

	if err := c.store.SetClassification(p.ID, p.Source, res.IsPE, res.Keywords); err != nil {
		return Result{}, err
	}

	c.mu.Lock()
	c.cache[key] = res
	c.mu.Unlock()

	return res, nil
}

// Invalidate drops the cached result for a posting so the next Classify
// call asks the backend again. Classification is otherwise sticky.
func (c *Classifier) Invalidate(id string, source model.Source) {
	c.mu.Lock()
	delete(c.cache, cacheKey{id: id, source: source})
	c.mu.Unlock()
}

func (c *Classifier) classifyRemote(ctx context.Context, p model.Posting) (Result, error) {
	var promptBuf bytes.Buffer
	err := classifyTemplate.Execute(&promptBuf, struct {
		Title       string
		Description string
	}{
		Title:       p.Title,
		Description: p.Description,
	})
	if err != nil {
		return Result{}, &model.ClassificationError{PostingID: p.ID, Err: fmt.Errorf("render prompt: %w", err)}
	}

	raw, err := c.provider.Complete(ctx, promptBuf.String())
	if err != nil {
		return Result{}, &model.ClassificationError{PostingID: p.ID, Err: fmt.Errorf("llm complete: %w", err)}
	}

	res, err := parseResult(raw)
	if err != nil {
		return Result{}, &model.ClassificationError{PostingID: p.ID, Err: fmt.Errorf("parse response: %w", err)}
	}
	return res, nil
}

// ClassifyUnclassified labels every stored posting in range that has no
// classification yet, running up to the configured worker count in
// parallel. A posting that fails stays unclassified and is picked up again
// on the next run; a store integrity failure aborts the batch.
func (c *Classifier) ClassifyUnclassified(ctx context.Context, r model.DateRange) (Summary, error) {
	postings, err := c.store.ListUnclassified(r)
	if err != nil {
		return Summary{}, err
	}

	summary := Summary{Processed: len(postings)}
	if len(postings) == 0 {
		return summary, nil
	}

	c.logger.Info("classifying postings",
		"count", len(postings),
		"backend", c.provider.Name(),
		"workers", c.workers,
	)

	var (
		mu         sync.Mutex
		classified int
		errs       []error
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)
	for _, p := range postings {
		g.Go(func() error {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if _, err := c.Classify(ctx, p); err != nil {
				var classErr *model.ClassificationError
				if errors.As(err, &classErr) {
					c.logger.Warn("posting left unclassified", "posting", p.ID, "error", err)
					mu.Lock()
					errs = append(errs, err)
					mu.Unlock()
					return nil
				}
				// Store-level failures are not per-posting noise.
				return err
			}
			mu.Lock()
			classified++
			mu.Unlock()
			return nil
		})
	}
	err = g.Wait()

	summary.Classified = classified
	summary.Errors = errs

	c.logger.Info("classification run finished",
		"processed", summary.Processed,
		"classified", summary.Classified,
		"failed", len(summary.Errors),
	)
	return summary, err
}

// rawResult is the JSON shape the prompt instructs every backend to return.
type rawResult struct {
	IsPE     *bool    `json:"is_pe"`
	Keywords []string `json:"keywords"`
}

// parseResult deserializes a backend completion. Local backends sometimes
// wrap the object in a markdown fence; that is tolerated, anything else
// that fails to parse is a classification failure, never coerced to a
// label.
func parseResult(raw string) (Result, error) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var rr rawResult
	if err := json.Unmarshal([]byte(cleaned), &rr); err != nil {
		return Result{}, fmt.Errorf("unmarshal classification JSON: %w", err)
	}
	if rr.IsPE == nil {
		return Result{}, fmt.Errorf("classification JSON missing is_pe")
	}

	keywords := make([]string, 0, len(rr.Keywords))
	for _, kw := range rr.Keywords {
		kw = strings.TrimSpace(kw)
		if kw != "" {
			keywords = append(keywords, strings.ToLower(kw))
		}
	}
	return Result{IsPE: *rr.IsPE, Keywords: keywords}, nil
}
