package store

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/petrend/petrend/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func testPosting(id string, posted time.Time) model.Posting {
	return model.Posting{
		ID:          id,
		Source:      model.SourceLive,
		PostedDate:  posted,
		Title:       "Systemutvecklare",
		Description: "Vi söker en utvecklare med erfarenhet av LLM.",
		Location:    "Stockholm",
	}
}

func fullRange() model.DateRange {
	return model.DateRange{From: date(2022, 1, 1), To: date(2030, 1, 1)}
}

func TestUpsertThenCount(t *testing.T) {
	s := newTestStore(t)

	if err := s.Upsert(testPosting("a1", date(2024, 3, 10))); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	count, err := s.Count()
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 1 {
		t.Errorf("expected count 1, got %d", count)
	}
}

func TestUpsertDeduplicatesByIDAndSource(t *testing.T) {
	s := newTestStore(t)

	p := testPosting("a1", date(2024, 3, 10))
	if err := s.Upsert(p); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := s.Upsert(p); err != nil {
		t.Fatalf("second Upsert: %v", err)
	}

	// Same ID from the other source is a distinct posting.
	p.Source = model.SourceHistorical
	if err := s.Upsert(p); err != nil {
		t.Fatalf("Upsert historical: %v", err)
	}

	count, err := s.Count()
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 2 {
		t.Errorf("expected count 2, got %d", count)
	}
}

func TestUpsertKeepsClassificationSticky(t *testing.T) {
	s := newTestStore(t)

	p := testPosting("a1", date(2024, 3, 10))
	if err := s.Upsert(p); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := s.SetClassification("a1", model.SourceLive, true, []string{"prompt engineering", "rag"}); err != nil {
		t.Fatalf("SetClassification: %v", err)
	}

	// Re-fetch with changed text must update the text but not the label.
	p.Description = "Updated description text."
	if err := s.Upsert(p); err != nil {
		t.Fatalf("re-Upsert: %v", err)
	}

	got, err := s.List(fullRange(), model.Filter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 posting, got %d", len(got))
	}
	if got[0].Description != "Updated description text." {
		t.Errorf("description not updated: %q", got[0].Description)
	}
	if got[0].IsPE == nil || !*got[0].IsPE {
		t.Error("classification lost after re-upsert")
	}
	if len(got[0].Keywords) != 2 || got[0].Keywords[0] != "prompt engineering" {
		t.Errorf("keywords lost after re-upsert: %v", got[0].Keywords)
	}
}

func TestUpsertRejectsMissingIdentity(t *testing.T) {
	s := newTestStore(t)

	err := s.Upsert(model.Posting{Source: model.SourceLive, PostedDate: date(2024, 1, 1)})
	var integrityErr *model.StoreIntegrityError
	if !errors.As(err, &integrityErr) {
		t.Fatalf("expected StoreIntegrityError, got %v", err)
	}
}

func TestSetClassificationMissingRow(t *testing.T) {
	s := newTestStore(t)

	err := s.SetClassification("nope", model.SourceLive, false, nil)
	var integrityErr *model.StoreIntegrityError
	if !errors.As(err, &integrityErr) {
		t.Fatalf("expected StoreIntegrityError, got %v", err)
	}
}

func TestListOrderingAndRange(t *testing.T) {
	s := newTestStore(t)

	for _, p := range []model.Posting{
		testPosting("b", date(2024, 2, 1)),
		testPosting("a", date(2024, 2, 1)),
		testPosting("c", date(2024, 1, 15)),
		testPosting("d", date(2025, 6, 1)), // outside range
	} {
		if err := s.Upsert(p); err != nil {
			t.Fatalf("Upsert %s: %v", p.ID, err)
		}
	}

	got, err := s.List(model.DateRange{From: date(2024, 1, 1), To: date(2024, 12, 31)}, model.Filter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	var ids []string
	for _, p := range got {
		ids = append(ids, p.ID)
	}
	want := []string{"c", "a", "b"}
	if len(ids) != len(want) {
		t.Fatalf("expected %v, got %v", want, ids)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("position %d: expected %s, got %s", i, want[i], ids[i])
		}
	}
}

func TestListFilters(t *testing.T) {
	s := newTestStore(t)

	pe := testPosting("pe1", date(2024, 3, 1))
	other := testPosting("x1", date(2024, 3, 2))
	other.Title = "Ekonomiassistent"
	hist := testPosting("h1", date(2024, 3, 3))
	hist.Source = model.SourceHistorical

	for _, p := range []model.Posting{pe, other, hist} {
		if err := s.Upsert(p); err != nil {
			t.Fatalf("Upsert: %v", err)
		}
	}
	if err := s.SetClassification("pe1", model.SourceLive, true, []string{"llm"}); err != nil {
		t.Fatalf("SetClassification: %v", err)
	}

	yes := true
	got, err := s.List(fullRange(), model.Filter{IsPE: &yes})
	if err != nil {
		t.Fatalf("List by PE: %v", err)
	}
	if len(got) != 1 || got[0].ID != "pe1" {
		t.Errorf("PE filter: expected [pe1], got %v", got)
	}

	got, err = s.List(fullRange(), model.Filter{Sources: []model.Source{model.SourceHistorical}})
	if err != nil {
		t.Fatalf("List by source: %v", err)
	}
	if len(got) != 1 || got[0].ID != "h1" {
		t.Errorf("source filter: expected [h1], got %v", got)
	}

	got, err = s.List(fullRange(), model.Filter{Search: "Ekonomi"})
	if err != nil {
		t.Fatalf("List by search: %v", err)
	}
	if len(got) != 1 || got[0].ID != "x1" {
		t.Errorf("search filter: expected [x1], got %v", got)
	}
}

func TestListUnclassified(t *testing.T) {
	s := newTestStore(t)

	if err := s.Upsert(testPosting("a", date(2024, 1, 1))); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := s.Upsert(testPosting("b", date(2024, 1, 2))); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := s.SetClassification("a", model.SourceLive, false, nil); err != nil {
		t.Fatalf("SetClassification: %v", err)
	}

	got, err := s.ListUnclassified(fullRange())
	if err != nil {
		t.Fatalf("ListUnclassified: %v", err)
	}
	if len(got) != 1 || got[0].ID != "b" {
		t.Errorf("expected [b], got %v", got)
	}

	n, err := s.CountClassified(fullRange())
	if err != nil {
		t.Fatalf("CountClassified: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 classified, got %d", n)
	}
}

func TestClearAll(t *testing.T) {
	s := newTestStore(t)

	for _, id := range []string{"a", "b", "c"} {
		if err := s.Upsert(testPosting(id, date(2024, 1, 1))); err != nil {
			t.Fatalf("Upsert: %v", err)
		}
	}
	if err := s.ClearAll(); err != nil {
		t.Fatalf("ClearAll: %v", err)
	}
	count, err := s.Count()
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 0 {
		t.Errorf("expected empty store, got %d", count)
	}
}

func TestStoreSurvivesReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	if err := s.Upsert(testPosting("a", date(2024, 1, 1))); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := s.SetClassification("a", model.SourceLive, true, []string{"llm"}); err != nil {
		t.Fatalf("SetClassification: %v", err)
	}
	s.Close()

	s2, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()

	got, err := s2.List(fullRange(), model.Filter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 1 || got[0].IsPE == nil || !*got[0].IsPE {
		t.Fatalf("classification did not survive reopen: %+v", got)
	}
}
