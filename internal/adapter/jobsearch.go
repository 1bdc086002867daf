package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/petrend/petrend/internal/model"
)

// The JobSearch API caps pagination: offset + limit must stay at or below
// this value. Pages beyond it are unreachable, so the source is reported
// exhausted once the next offset would cross it.
const maxOffset = 2000

const timestampLayout = "2006-01-02T15:04:05"

// searchHit mirrors one ad in a JobSearch-style response. Both the live and
// the historical API use this shape; unknown fields are ignored.
type searchHit struct {
	ID          string `json:"id"`
	Headline    string `json:"headline"`
	Description struct {
		Text string `json:"text"`
	} `json:"description"`
	PublicationDate  string `json:"publication_date"`
	WorkplaceAddress *struct {
		Municipality string `json:"municipality"`
	} `json:"workplace_address"`
}

// searchResponse is the top-level JobSearch response.
type searchResponse struct {
	Total struct {
		Value int `json:"value"`
	} `json:"total"`
	Hits []searchHit `json:"hits"`
}

// fetchSearchPage performs one round trip against a JobSearch-style endpoint
// and normalizes the hits. It never retries; retry policy belongs to the
// fetch orchestrator.
func fetchSearchPage(ctx context.Context, client *http.Client, baseURL, query string, source model.Source, q model.PageQuery) (model.Page, error) {
	searchTerm := query
	if q.Location != "" {
		searchTerm += " " + q.Location
	}

	params := url.Values{}
	params.Set("q", searchTerm)
	params.Set("published-after", q.From.Format(timestampLayout))
	params.Set("published-before", q.To.Format(timestampLayout))
	params.Set("limit", strconv.Itoa(q.Limit))
	params.Set("offset", strconv.Itoa(q.Offset))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return model.Page{}, &model.SourceFetchError{Source: source, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return model.Page{}, &model.SourceFetchError{Source: source, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return model.Page{}, &model.SourceFetchError{
			Source:     source,
			StatusCode: resp.StatusCode,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
			Err:        errors.New("unexpected status"),
		}
	}

	var sr searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return model.Page{}, &model.SourceFetchError{
			Source:     source,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("decoding response: %w", err),
		}
	}

	postings := make([]model.Posting, 0, len(sr.Hits))
	for _, hit := range sr.Hits {
		if hit.ID == "" {
			continue
		}
		p := model.Posting{
			ID:          hit.ID,
			Source:      source,
			Title:       hit.Headline,
			Description: extractText(hit.Description.Text),
		}
		// Historical ads often lack a workplace address; leave Location
		// empty rather than inventing one.
		if hit.WorkplaceAddress != nil {
			p.Location = hit.WorkplaceAddress.Municipality
		}
		p.PostedDate = parsePublicationDate(hit.PublicationDate)
		postings = append(postings, p)
	}

	page := model.Page{Postings: postings}
	if len(sr.Hits) == q.Limit && len(sr.Hits) > 0 {
		next := q.Offset + q.Limit
		if next <= maxOffset {
			page.NextOffset = &next
		}
	}
	return page, nil
}

// parsePublicationDate handles both the API's second-precision local
// timestamps and full RFC 3339. An unparseable value yields the zero time.
func parsePublicationDate(raw string) time.Time {
	if t, err := time.Parse(timestampLayout, raw); err == nil {
		return t.Truncate(24 * time.Hour)
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.Truncate(24 * time.Hour)
	}
	return time.Time{}
}
