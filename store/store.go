// Package store keeps finished runs and their Top-K words in sqlite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"

	"wordfreq/wc"
)

var ErrNotFound = errors.New("store: run not found")

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	mode        TEXT    NOT NULL,
	path        TEXT    NOT NULL,
	digest      TEXT    NOT NULL,
	nodes       INTEGER NOT NULL,
	threads     INTEGER NOT NULL,
	total_bytes INTEGER NOT NULL,
	chunks      INTEGER NOT NULL,
	elapsed_ns  INTEGER NOT NULL,
	created_at  INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS top_words (
	run_id INTEGER NOT NULL REFERENCES runs(id),
	rank   INTEGER NOT NULL,
	word   TEXT    NOT NULL,
	count  INTEGER NOT NULL,
	PRIMARY KEY (run_id, rank)
);
CREATE INDEX IF NOT EXISTS runs_digest ON runs(digest);
`

// Run is one finished run as stored.
type Run struct {
	ID         int64
	Mode       string
	Path       string
	Digest     uint64
	Nodes      int
	Threads    int
	TotalBytes int
	Chunks     int
	Elapsed    time.Duration
	CreatedAt  time.Time
	Top        []wc.Entry
}

type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the sqlite database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	// sqlite allows a single writer; ":memory:" databases are per connection.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// SaveRun inserts r and its Top-K rows and returns the new run id.
func (s *Store) SaveRun(ctx context.Context, r Run) (int64, error) {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO runs (mode, path, digest, nodes, threads, total_bytes, chunks, elapsed_ns, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.Mode, r.Path, formatDigest(r.Digest), r.Nodes, r.Threads, r.TotalBytes, r.Chunks,
		int64(r.Elapsed), r.CreatedAt.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO top_words (run_id, rank, word, count) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()
	for rank, e := range r.Top {
		if _, err := stmt.ExecContext(ctx, id, rank, e.Word, int64(e.Count)); err != nil {
			return 0, fmt.Errorf("insert word %q: %w", e.Word, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	logrus.WithFields(logrus.Fields{
		"run":   id,
		"mode":  r.Mode,
		"words": len(r.Top),
	}).Info("Saved run")
	return id, nil
}

// LoadRun returns the run with the given id and its Top-K rows in rank
// order.
func (s *Store) LoadRun(ctx context.Context, id int64) (Run, error) {
	var (
		r       Run
		digest  string
		elapsed int64
		created int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, mode, path, digest, nodes, threads, total_bytes, chunks, elapsed_ns, created_at
		 FROM runs WHERE id = ?`, id).
		Scan(&r.ID, &r.Mode, &r.Path, &digest, &r.Nodes, &r.Threads, &r.TotalBytes, &r.Chunks, &elapsed, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	if err != nil {
		return Run{}, err
	}
	if r.Digest, err = strconv.ParseUint(digest, 16, 64); err != nil {
		return Run{}, fmt.Errorf("run %d digest %q: %w", id, digest, err)
	}
	r.Elapsed = time.Duration(elapsed)
	r.CreatedAt = time.Unix(0, created)

	rows, err := s.db.QueryContext(ctx, `SELECT word, count FROM top_words WHERE run_id = ? ORDER BY rank`, id)
	if err != nil {
		return Run{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			e     wc.Entry
			count int64
		)
		if err := rows.Scan(&e.Word, &count); err != nil {
			return Run{}, err
		}
		e.Count = uint64(count)
		r.Top = append(r.Top, e)
	}
	return r, rows.Err()
}

// RunsByDigest returns the ids of all runs over a corpus with the given
// digest, oldest first.
func (s *Store) RunsByDigest(ctx context.Context, digest uint64) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM runs WHERE digest = ? ORDER BY id`, formatDigest(digest))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// sqlite integers are signed, so digests are kept as hex text.
func formatDigest(d uint64) string {
	return strconv.FormatUint(d, 16)
}
