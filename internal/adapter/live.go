package adapter

import (
	"context"
	"net/http"

	"github.com/petrend/petrend/internal/model"
)

const liveBaseURL = "https://jobsearch.api.jobtechdev.se/search"

// LiveAdapter fetches currently active listings from the Platsbanken
// JobSearch API.
type LiveAdapter struct {
	baseURL string
	query   string
	client  *http.Client
}

// NewLiveAdapter creates an adapter for the live JobSearch API. query is the
// base search term (e.g. "utvecklare"); the per-request location is appended
// to it.
func NewLiveAdapter(query string, client *http.Client) *LiveAdapter {
	return &LiveAdapter{
		baseURL: liveBaseURL,
		query:   query,
		client:  client,
	}
}

// Source reports the source tag stamped on fetched postings.
func (a *LiveAdapter) Source() model.Source {
	return model.SourceLive
}

// FetchPage retrieves one page of active listings.
func (a *LiveAdapter) FetchPage(ctx context.Context, q model.PageQuery) (model.Page, error) {
	return fetchSearchPage(ctx, a.client, a.baseURL, a.query, model.SourceLive, q)
}
