package model

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Source identifies which job-board API a posting came from.
type Source string

const (
	SourceLive       Source = "live"       // currently active Platsbanken listings
	SourceHistorical Source = "historical" // expired listings from the historical API
)

// ParseSources parses a comma-separated source list from the CLI.
func ParseSources(raw string) ([]Source, error) {
	var sources []Source
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		switch Source(part) {
		case SourceLive, SourceHistorical:
			sources = append(sources, Source(part))
		case "":
		default:
			return nil, fmt.Errorf("unknown source %q (want %q or %q)", part, SourceLive, SourceHistorical)
		}
	}
	return sources, nil
}

// Posting is the unified representation of a job ad from any source.
// Identity and text fields are owned by the fetch pipeline; IsPE and
// Keywords are owned by the classifier and survive re-fetches.
type Posting struct {
	ID          string    // source API's own identifier
	Source      Source    // which API the ad came from; (ID, Source) is the dedup key
	PostedDate  time.Time // publication date, date precision
	Title       string    // role title, free text
	Description string    // full ad text used for classification
	Location    string    // municipality, may be empty (historical ads often lack it)
	IsPE        *bool     // nil until classified
	Keywords    []string  // extracted skill tokens, empty until classified
	FirstSeen   time.Time // our clock, set on first upsert
}

// FetchRequest describes one fetch session.
type FetchRequest struct {
	Location    string // optional location appended to the search query
	MaxListings int
	BatchSize   int
	From        time.Time
	To          time.Time
	Sources     []Source
}

// Validate checks the request before any network or store activity.
func (r FetchRequest) Validate() error {
	if r.MaxListings <= 0 {
		return &ValidationError{Field: "max_listings", Reason: "must be positive"}
	}
	if r.BatchSize <= 0 {
		return &ValidationError{Field: "batch_size", Reason: "must be positive"}
	}
	if r.BatchSize > r.MaxListings {
		return &ValidationError{Field: "batch_size", Reason: fmt.Sprintf("must not exceed max_listings (%d > %d)", r.BatchSize, r.MaxListings)}
	}
	if r.To.Before(r.From) {
		return &ValidationError{Field: "date_range", Reason: "start must not be after end"}
	}
	if len(r.Sources) == 0 {
		return &ValidationError{Field: "sources", Reason: "at least one source is required"}
	}
	return nil
}

// PageQuery is one paginated request to a source.
type PageQuery struct {
	Location string
	From     time.Time
	To       time.Time
	Offset   int
	Limit    int
}

// Page is the result of one fetch_page round trip. A nil NextOffset means
// the source is exhausted for the queried range.
type Page struct {
	Postings   []Posting
	NextOffset *int
}

// SourceAdapter fetches one page of postings from a job-board API.
// Adapters never retry internally; retry policy belongs to the orchestrator.
type SourceAdapter interface {
	Source() Source
	FetchPage(ctx context.Context, q PageQuery) (Page, error)
}

// DateRange is a closed interval of publication dates.
type DateRange struct {
	From time.Time
	To   time.Time
}

// Filter narrows a store listing. Zero value matches everything in range.
type Filter struct {
	Sources []Source
	IsPE    *bool  // nil = any classification state
	Search  string // substring match on title or description
}
