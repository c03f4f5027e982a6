// Package store persists the behavior library: generated or hand-written
// definitions together with the rating a listener gave them.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Unrated is the rating of an entry nobody has judged yet.
const Unrated = 0

var ErrNotInitialized = errors.New("store is not initialized")

// Entry is one stored behavior.
type Entry struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	// Definition holds the records exactly as behavior.Encode wrote them.
	Definition json.RawMessage `json:"definition"`
	Rating     int             `json:"rating"`
	CreatedAt  time.Time       `json:"created_at"`
}

// Store is implemented by every backend. Lookups report absence through
// the bool result rather than an error.
type Store interface {
	Init(ctx context.Context) error
	// Save inserts or replaces e. A missing ID or creation time is filled
	// in and the stored entry is returned.
	Save(ctx context.Context, e Entry) (Entry, error)
	Get(ctx context.Context, id string) (Entry, bool, error)
	// List returns every entry, oldest first.
	List(ctx context.Context) ([]Entry, error)
	Rate(ctx context.Context, id string, rating int) (bool, error)
	// NextUnrated returns the oldest entry still at Unrated.
	NextUnrated(ctx context.Context) (Entry, bool, error)
	Close() error
}

func prepare(e Entry) (Entry, error) {
	if e.Rating < 0 {
		return Entry{}, fmt.Errorf("negative rating %d", e.Rating)
	}
	if !json.Valid(e.Definition) {
		return Entry{}, errors.New("definition is not valid JSON")
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	e.CreatedAt = e.CreatedAt.UTC()
	return e, nil
}

func checkRating(rating int) error {
	if rating < 0 {
		return fmt.Errorf("negative rating %d", rating)
	}
	return nil
}
