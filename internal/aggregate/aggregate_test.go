package aggregate

import (
	"strings"
	"testing"
	"time"

	"github.com/petrend/petrend/internal/model"
)

type staticStore struct {
	postings []model.Posting
}

func (s *staticStore) ListClassified(r model.DateRange) ([]model.Posting, error) {
	return s.postings, nil
}

func classified(id string, posted time.Time, isPE bool, keywords ...string) model.Posting {
	return model.Posting{
		ID:         id,
		Source:     model.SourceLive,
		PostedDate: posted,
		IsPE:       &isPE,
		Keywords:   keywords,
	}
}

func anyRange() model.DateRange {
	return model.DateRange{
		From: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC),
	}
}

func newTestAggregator(postings ...model.Posting) *Aggregator {
	return New(&staticStore{postings: postings}, []string{"prompt engineering", "LLM"})
}

func TestBarTableCountsAndTags(t *testing.T) {
	agg := newTestAggregator(
		classified("a", time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC), true, "llm", "go"),
		classified("b", time.Date(2024, 2, 5, 0, 0, 0, 0, time.UTC), true, "llm", "prompt engineering"),
		classified("c", time.Date(2024, 2, 20, 0, 0, 0, 0, time.UTC), false, "go"),
	)

	table, err := agg.Aggregate(anyRange(), KindBar)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}

	want := []Row{
		{Label: "go", Count: 2, Category: CategoryOther},
		{Label: "llm", Count: 2, Category: CategoryLLM},
		{Label: "prompt engineering", Count: 1, Category: CategoryLLM},
	}
	if len(table.Rows) != len(want) {
		t.Fatalf("expected %d rows, got %+v", len(want), table.Rows)
	}
	for i, w := range want {
		if table.Rows[i] != w {
			t.Errorf("row %d: expected %+v, got %+v", i, w, table.Rows[i])
		}
	}
}

func TestTimeTableBucketsByMonth(t *testing.T) {
	agg := newTestAggregator(
		classified("a", time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC), true, "llm"),
		classified("b", time.Date(2024, 1, 25, 0, 0, 0, 0, time.UTC), true, "llm"),
		classified("c", time.Date(2024, 2, 5, 0, 0, 0, 0, time.UTC), false, "llm", "go"),
	)

	table, err := agg.Aggregate(anyRange(), KindTime)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}

	want := []Row{
		{Label: "go", Bucket: "2024-02", Count: 1, Category: CategoryOther},
		{Label: "llm", Bucket: "2024-01", Count: 2, Category: CategoryLLM},
		{Label: "llm", Bucket: "2024-02", Count: 1, Category: CategoryLLM},
	}
	if len(table.Rows) != len(want) {
		t.Fatalf("expected %d rows, got %+v", len(want), table.Rows)
	}
	for i, w := range want {
		if table.Rows[i] != w {
			t.Errorf("row %d: expected %+v, got %+v", i, w, table.Rows[i])
		}
	}
}

func TestPieTableSumsToClassifiedCount(t *testing.T) {
	postings := []model.Posting{
		classified("a", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), true),
		classified("b", time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), false),
		classified("c", time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), false),
	}
	agg := newTestAggregator(postings...)

	table, err := agg.Aggregate(anyRange(), KindPie)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if len(table.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(table.Rows))
	}
	total := table.Rows[0].Count + table.Rows[1].Count
	if total != len(postings) {
		t.Errorf("pie counts sum to %d, want %d", total, len(postings))
	}
	if table.Rows[0].Label != "non_pe" || table.Rows[0].Count != 2 {
		t.Errorf("unexpected non_pe row: %+v", table.Rows[0])
	}
	if table.Rows[1].Label != "pe" || table.Rows[1].Count != 1 {
		t.Errorf("unexpected pe row: %+v", table.Rows[1])
	}
}

func TestLLMRelatedSetIsCaseInsensitive(t *testing.T) {
	agg := newTestAggregator(
		classified("a", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), true, "LLM"),
	)
	table, err := agg.Aggregate(anyRange(), KindBar)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if table.Rows[0].Category != CategoryLLM {
		t.Errorf("expected llm category regardless of case, got %+v", table.Rows[0])
	}
}

func TestParseKind(t *testing.T) {
	if _, err := ParseKind("scatter"); err == nil {
		t.Error("expected error for unknown kind")
	}
	kind, err := ParseKind("pie")
	if err != nil || kind != KindPie {
		t.Errorf("expected pie, got %v (%v)", kind, err)
	}
}

func TestWriteCSV(t *testing.T) {
	agg := newTestAggregator(
		classified("a", time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC), true, "llm", "go"),
	)
	table, err := agg.Aggregate(anyRange(), KindBar)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}

	var buf strings.Builder
	if err := table.WriteCSV(&buf); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	got := buf.String()
	want := "keyword,count,category\ngo,1,other\nllm,1,llm\n"
	if got != want {
		t.Errorf("unexpected csv:\n%s\nwant:\n%s", got, want)
	}
}
