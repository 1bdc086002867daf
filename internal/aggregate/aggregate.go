package aggregate

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/petrend/petrend/internal/model"
)

// Kind selects the shape of the output table.
type Kind string

const (
	KindTime Kind = "time" // per-keyword counts bucketed by month
	KindBar  Kind = "bar"  // per-keyword totals over the whole range
	KindPie  Kind = "pie"  // PE vs non-PE posting counts
)

// ParseKind parses a chart kind from the CLI.
func ParseKind(raw string) (Kind, error) {
	switch Kind(raw) {
	case KindTime, KindBar, KindPie:
		return Kind(raw), nil
	default:
		return "", fmt.Errorf("unknown chart kind %q (want time, bar or pie)", raw)
	}
}

// Keyword categories in the output. The table only tags; rendering is the
// chart consumer's business.
const (
	CategoryLLM   = "llm"
	CategoryOther = "other"
)

const monthLayout = "2006-01"

// Row is one line of an aggregation table.
type Row struct {
	Label    string // keyword, or pe/non_pe for the pie table
	Bucket   string // YYYY-MM for the time table, empty otherwise
	Count    int
	Category string // llm or other, empty for the pie table
}

// Table is a deterministic aggregation result, ordered by label then
// bucket, ready for CSV export or chart rendering.
type Table struct {
	Kind Kind
	Rows []Row
}

// Store is the read-only slice of the record store the aggregator scans.
type Store interface {
	ListClassified(r model.DateRange) ([]model.Posting, error)
}

// Aggregator produces keyword-frequency tables over classified postings.
// It never mutates the store.
type Aggregator struct {
	store      Store
	llmRelated map[string]bool
}

// New creates an aggregator. llmRelated is the injectable set of keywords
// tagged as LLM-related in the output; matching is case-insensitive.
func New(store Store, llmRelated []string) *Aggregator {
	set := make(map[string]bool, len(llmRelated))
	for _, kw := range llmRelated {
		set[strings.ToLower(strings.TrimSpace(kw))] = true
	}
	return &Aggregator{store: store, llmRelated: set}
}

// Aggregate scans classified postings in range and builds the table for
// the requested kind.
func (a *Aggregator) Aggregate(r model.DateRange, kind Kind) (*Table, error) {
	postings, err := a.store.ListClassified(r)
	if err != nil {
		return nil, fmt.Errorf("aggregating %s: %w", kind, err)
	}

	switch kind {
	case KindTime:
		return a.timeTable(postings), nil
	case KindBar:
		return a.barTable(postings), nil
	case KindPie:
		return pieTable(postings), nil
	default:
		return nil, fmt.Errorf("unknown chart kind %q", kind)
	}
}

func (a *Aggregator) category(keyword string) string {
	if a.llmRelated[strings.ToLower(keyword)] {
		return CategoryLLM
	}
	return CategoryOther
}

func (a *Aggregator) timeTable(postings []model.Posting) *Table {
	type cell struct {
		label  string
		bucket string
	}
	counts := make(map[cell]int)
	for _, p := range postings {
		bucket := p.PostedDate.Format(monthLayout)
		for _, kw := range p.Keywords {
			counts[cell{label: kw, bucket: bucket}]++
		}
	}

	rows := make([]Row, 0, len(counts))
	for c, n := range counts {
		rows = append(rows, Row{Label: c.label, Bucket: c.bucket, Count: n, Category: a.category(c.label)})
	}
	sortRows(rows)
	return &Table{Kind: KindTime, Rows: rows}
}

func (a *Aggregator) barTable(postings []model.Posting) *Table {
	counts := make(map[string]int)
	for _, p := range postings {
		for _, kw := range p.Keywords {
			counts[kw]++
		}
	}

	rows := make([]Row, 0, len(counts))
	for kw, n := range counts {
		rows = append(rows, Row{Label: kw, Count: n, Category: a.category(kw)})
	}
	sortRows(rows)
	return &Table{Kind: KindBar, Rows: rows}
}

func pieTable(postings []model.Posting) *Table {
	var pe, nonPE int
	for _, p := range postings {
		if p.IsPE != nil && *p.IsPE {
			pe++
		} else {
			nonPE++
		}
	}
	return &Table{Kind: KindPie, Rows: []Row{
		{Label: "non_pe", Count: nonPE},
		{Label: "pe", Count: pe},
	}}
}

func sortRows(rows []Row) {
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Label != rows[j].Label {
			return rows[i].Label < rows[j].Label
		}
		return rows[i].Bucket < rows[j].Bucket
	})
}

// WriteCSV writes the table as delimited text. The exporter ships it
// verbatim; no formatting beyond CSV quoting happens here.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)

	var header []string
	switch t.Kind {
	case KindTime:
		header = []string{"keyword", "month", "count", "category"}
	case KindBar:
		header = []string{"keyword", "count", "category"}
	case KindPie:
		header = []string{"label", "count"}
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}

	for _, row := range t.Rows {
		var record []string
		switch t.Kind {
		case KindTime:
			record = []string{row.Label, row.Bucket, strconv.Itoa(row.Count), row.Category}
		case KindBar:
			record = []string{row.Label, strconv.Itoa(row.Count), row.Category}
		case KindPie:
			record = []string{row.Label, strconv.Itoa(row.Count)}
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("writing csv row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}
