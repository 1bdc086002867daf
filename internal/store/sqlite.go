package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/petrend/petrend/internal/model"
)

const dateLayout = "2006-01-02"

// SQLiteStore is the persistent, deduplicated table of job postings.
// (id, source) is the primary key; re-fetching an already-stored posting
// updates the fetch-owned fields and leaves classification untouched.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and ensures
// the postings table exists.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Verify the connection is alive.
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sqlite db: %w", err)
	}

	createTable := `CREATE TABLE IF NOT EXISTS postings (
		id          TEXT NOT NULL,
		source      TEXT NOT NULL,
		posted_date TEXT NOT NULL,
		title       TEXT NOT NULL,
		description TEXT NOT NULL,
		location    TEXT NOT NULL DEFAULT '',
		is_pe       INTEGER,
		keywords    TEXT NOT NULL DEFAULT '[]',
		first_seen  DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (id, source)
	)`
	if _, err := db.Exec(createTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating postings table: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Upsert inserts a posting, or refreshes its fetch-owned fields if the
// (id, source) pair already exists. Classification fields are sticky: once
// set they are never touched by a re-fetch.
func (s *SQLiteStore) Upsert(p model.Posting) error {
	if p.ID == "" || p.Source == "" {
		return &model.StoreIntegrityError{Op: "upsert", Err: fmt.Errorf("posting missing identity (id=%q, source=%q)", p.ID, p.Source)}
	}
	_, err := s.db.Exec(`INSERT INTO postings (id, source, posted_date, title, description, location)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id, source) DO UPDATE SET
			posted_date = excluded.posted_date,
			title       = excluded.title,
			description = excluded.description,
			location    = excluded.location`,
		p.ID, string(p.Source), p.PostedDate.Format(dateLayout), p.Title, p.Description, p.Location)
	if err != nil {
		return fmt.Errorf("upserting posting %s/%s: %w", p.Source, p.ID, err)
	}
	return nil
}

// SetClassification fills the classifier-owned fields of a stored posting.
// The posting must already exist; classifying a missing row indicates the
// store and the classifier have diverged.
func (s *SQLiteStore) SetClassification(id string, source model.Source, isPE bool, keywords []string) error {
	if keywords == nil {
		keywords = []string{}
	}
	kw, err := json.Marshal(keywords)
	if err != nil {
		return fmt.Errorf("encoding keywords for %s/%s: %w", source, id, err)
	}
	res, err := s.db.Exec(`UPDATE postings SET is_pe = ?, keywords = ? WHERE id = ? AND source = ?`,
		boolToInt(isPE), string(kw), id, string(source))
	if err != nil {
		return fmt.Errorf("classifying posting %s/%s: %w", source, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("classifying posting %s/%s: %w", source, id, err)
	}
	if n == 0 {
		return &model.StoreIntegrityError{Op: "classify", Err: fmt.Errorf("posting %s/%s not in store", source, id)}
	}
	return nil
}

// List returns postings in the date range matching the filter, ordered by
// posted_date ascending with ties broken by id. Each call runs a fresh
// query; no cursor state is retained.
func (s *SQLiteStore) List(r model.DateRange, f model.Filter) ([]model.Posting, error) {
	query := `SELECT id, source, posted_date, title, description, location, is_pe, keywords, first_seen
		FROM postings WHERE posted_date >= ? AND posted_date <= ?`
	args := []any{r.From.Format(dateLayout), r.To.Format(dateLayout)}

	if len(f.Sources) > 0 {
		marks := make([]string, len(f.Sources))
		for i, src := range f.Sources {
			marks[i] = "?"
			args = append(args, string(src))
		}
		query += " AND source IN (" + strings.Join(marks, ", ") + ")"
	}
	if f.IsPE != nil {
		query += " AND is_pe = ?"
		args = append(args, boolToInt(*f.IsPE))
	}
	if f.Search != "" {
		query += " AND (title LIKE ? OR description LIKE ?)"
		like := "%" + f.Search + "%"
		args = append(args, like, like)
	}
	query += " ORDER BY posted_date ASC, id ASC"

	return s.queryPostings(query, args...)
}

// ListUnclassified returns postings in range with no classification yet.
func (s *SQLiteStore) ListUnclassified(r model.DateRange) ([]model.Posting, error) {
	return s.queryPostings(`SELECT id, source, posted_date, title, description, location, is_pe, keywords, first_seen
		FROM postings WHERE posted_date >= ? AND posted_date <= ? AND is_pe IS NULL
		ORDER BY posted_date ASC, id ASC`,
		r.From.Format(dateLayout), r.To.Format(dateLayout))
}

// ListClassified returns postings in range that have a classification.
func (s *SQLiteStore) ListClassified(r model.DateRange) ([]model.Posting, error) {
	return s.queryPostings(`SELECT id, source, posted_date, title, description, location, is_pe, keywords, first_seen
		FROM postings WHERE posted_date >= ? AND posted_date <= ? AND is_pe IS NOT NULL
		ORDER BY posted_date ASC, id ASC`,
		r.From.Format(dateLayout), r.To.Format(dateLayout))
}

func (s *SQLiteStore) queryPostings(query string, args ...any) ([]model.Posting, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing postings: %w", err)
	}
	defer rows.Close()

	var postings []model.Posting
	for rows.Next() {
		p, err := scanPosting(rows)
		if err != nil {
			return nil, err
		}
		postings = append(postings, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing postings: %w", err)
	}
	return postings, nil
}

func scanPosting(rows *sql.Rows) (model.Posting, error) {
	var (
		p         model.Posting
		source    string
		posted    string
		isPE      sql.NullInt64
		keywords  string
		firstSeen time.Time
	)
	if err := rows.Scan(&p.ID, &source, &posted, &p.Title, &p.Description, &p.Location, &isPE, &keywords, &firstSeen); err != nil {
		return model.Posting{}, fmt.Errorf("scanning posting: %w", err)
	}
	p.Source = model.Source(source)
	p.FirstSeen = firstSeen

	t, err := time.Parse(dateLayout, posted)
	if err != nil {
		return model.Posting{}, fmt.Errorf("parsing posted_date %q for %s: %w", posted, p.ID, err)
	}
	p.PostedDate = t

	if isPE.Valid {
		v := isPE.Int64 != 0
		p.IsPE = &v
	}
	if err := json.Unmarshal([]byte(keywords), &p.Keywords); err != nil {
		return model.Posting{}, fmt.Errorf("decoding keywords for %s: %w", p.ID, err)
	}
	return p, nil
}

// Count returns the total number of stored postings.
func (s *SQLiteStore) Count() (int, error) {
	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM postings").Scan(&count); err != nil {
		return 0, fmt.Errorf("counting postings: %w", err)
	}
	return count, nil
}

// CountClassified returns the number of classified postings in range.
func (s *SQLiteStore) CountClassified(r model.DateRange) (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM postings
		WHERE posted_date >= ? AND posted_date <= ? AND is_pe IS NOT NULL`,
		r.From.Format(dateLayout), r.To.Format(dateLayout)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting classified postings: %w", err)
	}
	return count, nil
}

// ClearAll removes every stored posting inside a single transaction: either
// the store empties completely or it is left untouched.
func (s *SQLiteStore) ClearAll() error {
	tx, err := s.db.Begin()
	if err != nil {
		return &model.StoreIntegrityError{Op: "clear", Err: err}
	}
	if _, err := tx.Exec("DELETE FROM postings"); err != nil {
		tx.Rollback()
		return &model.StoreIntegrityError{Op: "clear", Err: err}
	}
	if err := tx.Commit(); err != nil {
		return &model.StoreIntegrityError{Op: "clear", Err: err}
	}
	return nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
