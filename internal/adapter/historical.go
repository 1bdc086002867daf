package adapter

import (
	"context"
	"net/http"

	"github.com/petrend/petrend/internal/model"
)

const historicalBaseURL = "https://historical.api.jobtechdev.se/search"

// HistoricalAdapter fetches expired listings from the historical JobSearch
// API. The response shape matches the live API, but older ads may lack
// live-only attributes such as the workplace address.
type HistoricalAdapter struct {
	baseURL string
	query   string
	client  *http.Client
}

// NewHistoricalAdapter creates an adapter for the historical JobSearch API.
func NewHistoricalAdapter(query string, client *http.Client) *HistoricalAdapter {
	return &HistoricalAdapter{
		baseURL: historicalBaseURL,
		query:   query,
		client:  client,
	}
}

// Source reports the source tag stamped on fetched postings.
func (a *HistoricalAdapter) Source() model.Source {
	return model.SourceHistorical
}

// FetchPage retrieves one page of expired listings.
func (a *HistoricalAdapter) FetchPage(ctx context.Context, q model.PageQuery) (model.Page, error) {
	return fetchSearchPage(ctx, a.client, a.baseURL, a.query, model.SourceHistorical, q)
}
