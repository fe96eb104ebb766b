// Package sqlstore implements store.Store over database/sql. Drivers only
// differ in how they open the database and in placeholder syntax.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cognicore/termex/pkg/termex/aggregate"
	"github.com/cognicore/termex/pkg/termex/annotate"
	"github.com/cognicore/termex/pkg/termex/internalerr"
	"github.com/cognicore/termex/pkg/termex/store"
)

// Dialect adapts queries written with '?' placeholders.
type Dialect int

const (
	QuestionMark Dialect = iota // sqlite
	Dollar                      // postgres
)

// Schema is portable between sqlite and postgres.
const Schema = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	digest TEXT NOT NULL,
	language TEXT NOT NULL,
	started_at TEXT NOT NULL,
	duration_ms BIGINT NOT NULL,
	documents INTEGER NOT NULL,
	terms INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS terms (
	run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	term_rank INTEGER NOT NULL,
	text TEXT NOT NULL,
	lemma TEXT NOT NULL,
	kind TEXT NOT NULL,
	label TEXT NOT NULL,
	length INTEGER NOT NULL,
	document_count INTEGER NOT NULL,
	PRIMARY KEY(run_id, text)
);

CREATE INDEX IF NOT EXISTS idx_terms_rank ON terms(run_id, term_rank);

CREATE TABLE IF NOT EXISTS doc_terms (
	run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	doc_index TEXT NOT NULL,
	ord INTEGER NOT NULL,
	text TEXT NOT NULL,
	PRIMARY KEY(run_id, doc_index, ord)
);
`

// DB is a store.Store over an open *sql.DB.
type DB struct {
	db      *sql.DB
	dialect Dialect
}

// New creates the schema and wraps db.
func New(ctx context.Context, db *sql.DB, dialect Dialect) (*DB, error) {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &DB{db: db, dialect: dialect}, nil
}

var _ store.Store = (*DB)(nil)

func (s *DB) Close() error {
	return s.db.Close()
}

func (s *DB) q(query string) string {
	if s.dialect != Dollar {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// SaveRun implements store.Store.
func (s *DB) SaveRun(ctx context.Context, run store.Run) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, s.q(`
INSERT INTO runs (id, digest, language, started_at, duration_ms, documents, terms)
VALUES (?, ?, ?, ?, ?, ?, ?)`),
		run.ID,
		run.Digest,
		run.Language,
		run.StartedAt.UTC().Format(timeLayout),
		run.Duration.Milliseconds(),
		run.Documents,
		len(run.Records),
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", run.ID, err)
	}

	if err := insertTerms(ctx, tx, s.q(`
INSERT INTO terms (run_id, term_rank, text, lemma, kind, label, length, document_count)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`), run); err != nil {
		return err
	}
	if err := insertDocTerms(ctx, tx, s.q(`
INSERT INTO doc_terms (run_id, doc_index, ord, text) VALUES (?, ?, ?, ?)`), run); err != nil {
		return err
	}

	return tx.Commit()
}

func insertTerms(ctx context.Context, tx *sql.Tx, query string, run store.Run) error {
	if len(run.Records) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for rank, rec := range run.Records {
		if _, err := stmt.ExecContext(ctx, run.ID, rank, rec.Text, rec.Lemma, rec.Kind.String(), rec.Label, rec.Length, rec.DocumentCount); err != nil {
			return fmt.Errorf("insert term %q: %w", rec.Text, err)
		}
	}
	return nil
}

func insertDocTerms(ctx context.Context, tx *sql.Tx, query string, run store.Run) error {
	if len(run.Index) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, entry := range run.Index {
		for ord, text := range entry.Terms {
			if _, err := stmt.ExecContext(ctx, run.ID, entry.DocIndex, ord, text); err != nil {
				return fmt.Errorf("insert terms of document %q: %w", entry.DocIndex, err)
			}
		}
	}
	return nil
}

// timeLayout has fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const runColumns = `id, digest, language, started_at, duration_ms, documents, terms`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (store.RunInfo, error) {
	var (
		info       store.RunInfo
		startedAt  string
		durationMS int64
	)
	if err := row.Scan(&info.ID, &info.Digest, &info.Language, &startedAt, &durationMS, &info.Documents, &info.Terms); err != nil {
		return store.RunInfo{}, err
	}
	t, err := time.Parse(timeLayout, startedAt)
	if err != nil {
		return store.RunInfo{}, fmt.Errorf("run %s: bad started_at %q: %w", info.ID, startedAt, err)
	}
	info.StartedAt = t
	info.Duration = time.Duration(durationMS) * time.Millisecond
	return info, nil
}

// GetRun implements store.Store.
func (s *DB) GetRun(ctx context.Context, id string) (store.RunInfo, error) {
	row := s.db.QueryRowContext(ctx, s.q(`SELECT `+runColumns+` FROM runs WHERE id = ?`), id)
	info, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return store.RunInfo{}, fmt.Errorf("run %s: %w", id, internalerr.ErrNotFound)
	}
	return info, err
}

// ListRuns implements store.Store, newest first.
func (s *DB) ListRuns(ctx context.Context, limit int) ([]store.RunInfo, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC, id DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.RunInfo
	for rows.Next() {
		info, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, info)
	}
	return out, rows.Err()
}

// TopTerms implements store.Store.
func (s *DB) TopTerms(ctx context.Context, runID string, k int) ([]aggregate.TermRecord, error) {
	if _, err := s.GetRun(ctx, runID); err != nil {
		return nil, err
	}

	query := `SELECT text, lemma, kind, label, length, document_count FROM terms WHERE run_id = ? ORDER BY term_rank`
	args := []any{runID}
	if k > 0 {
		query += ` LIMIT ?`
		args = append(args, k)
	}
	rows, err := s.db.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []aggregate.TermRecord
	for rows.Next() {
		var (
			rec  aggregate.TermRecord
			kind string
		)
		if err := rows.Scan(&rec.Text, &rec.Lemma, &kind, &rec.Label, &rec.Length, &rec.DocumentCount); err != nil {
			return nil, err
		}
		if rec.Kind, err = annotate.ParseKind(kind); err != nil {
			return nil, internalerr.Integrityf("run %s term %q: %v", runID, rec.Text, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// DocumentTerms implements store.Store.
func (s *DB) DocumentTerms(ctx context.Context, runID, docIndex string) ([]string, error) {
	if _, err := s.GetRun(ctx, runID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, s.q(`SELECT text FROM doc_terms WHERE run_id = ? AND doc_index = ? ORDER BY ord`), runID, docIndex)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var text string
		if err := rows.Scan(&text); err != nil {
			return nil, err
		}
		out = append(out, text)
	}
	return out, rows.Err()
}
