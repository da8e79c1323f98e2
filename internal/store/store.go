// Package store persists enriched conversation records. The primary
// backend is an embedded SQLite table keyed by conversation id; when it
// cannot be opened the loader falls back to a delimited flat file carrying
// the same columns, so both backends look identical to readers.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"spa-insights-go/internal/config"
	"spa-insights-go/internal/types"
)

// ErrUnavailable marks a persistence backend that cannot be reached.
var ErrUnavailable = errors.New("store unavailable")

// Store is the persistence contract shared by the SQLite and CSV backends.
type Store interface {
	// Upsert writes the batch keyed by conversation id; re-running with the
	// same id replaces the row. Each record is written as a unit.
	Upsert(ctx context.Context, records []types.EnrichedRecord) error
	// List returns every persisted record.
	List(ctx context.Context) ([]types.EnrichedRecord, error)
	Backend() string
	Close() error
}

// Open returns the SQLite store, or the CSV fallback with a warning when
// SQLite cannot be opened. Data is never dropped silently: if the fallback
// cannot be created either, the error is returned.
func Open(cfg config.Config, log *logrus.Entry) (Store, bool, error) {
	var s *SQLiteStore
	op := func() error {
		var err error
		s, err = OpenSQLite(cfg.SQLitePath)
		return err
	}
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = 5 * time.Second
	if err := backoff.Retry(op, b); err != nil {
		log.WithError(err).Warn("sqlite unavailable, falling back to flat file")
		fs, ferr := OpenCSV(cfg.FallbackCSVPath)
		if ferr != nil {
			return nil, false, errors.Join(ErrUnavailable, ferr)
		}
		return fs, true, nil
	}
	return s, false, nil
}
