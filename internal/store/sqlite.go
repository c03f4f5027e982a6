package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

type SQLiteStore struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("sqlite path is required")
	}
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return err
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return err
	}

	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return err
	}

	s.db = db
	return nil
}

func (s *SQLiteStore) Save(ctx context.Context, e Entry) (Entry, error) {
	db, err := s.getDB()
	if err != nil {
		return Entry{}, err
	}
	e, err = prepare(e)
	if err != nil {
		return Entry{}, err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO behaviors (id, name, definition, rating, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			definition = excluded.definition,
			rating = excluded.rating,
			created_at = excluded.created_at
	`, e.ID, e.Name, string(e.Definition), e.Rating, e.CreatedAt.UnixNano())
	if err != nil {
		return Entry{}, fmt.Errorf("save behavior %s: %w", e.ID, err)
	}
	return e, nil
}

const selectEntry = `SELECT id, name, definition, rating, created_at FROM behaviors`

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (Entry, error) {
	var (
		e          Entry
		definition string
		createdAt  int64
	)
	if err := row.Scan(&e.ID, &e.Name, &definition, &e.Rating, &createdAt); err != nil {
		return Entry{}, err
	}
	e.Definition = []byte(definition)
	e.CreatedAt = time.Unix(0, createdAt).UTC()
	return e, nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (Entry, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return Entry{}, false, err
	}

	e, err := scanEntry(db.QueryRowContext(ctx, selectEntry+` WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, false, nil
		}
		return Entry{}, false, err
	}
	return e, true, nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]Entry, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, selectEntry+` ORDER BY created_at, seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Rate(ctx context.Context, id string, rating int) (bool, error) {
	if err := checkRating(rating); err != nil {
		return false, err
	}
	db, err := s.getDB()
	if err != nil {
		return false, err
	}

	res, err := db.ExecContext(ctx, `UPDATE behaviors SET rating = ? WHERE id = ?`, rating, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *SQLiteStore) NextUnrated(ctx context.Context) (Entry, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return Entry{}, false, err
	}

	e, err := scanEntry(db.QueryRowContext(ctx,
		selectEntry+` WHERE rating = ? ORDER BY created_at, seq LIMIT 1`, Unrated))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, false, nil
		}
		return Entry{}, false, err
	}
	return e, true, nil
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteStore) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, ErrNotInitialized
	}
	return s.db, nil
}

// seq keeps insertion order for entries created in the same nanosecond.
func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS behaviors (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL,
			definition TEXT NOT NULL,
			rating INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS behaviors_unrated ON behaviors (rating, created_at);
	`)
	return err
}
