// ABOUTME: Store interface for the soreness core's persisted state.
// ABOUTME: Implemented by the SQLite DB and the Badger KV backends.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/harperreed/liftlog/internal/catalog"
	"github.com/harperreed/liftlog/internal/models"
)

// ErrUnknownGranularity is returned for ledger calls with an invalid granularity.
var ErrUnknownGranularity = errors.New("unknown ledger granularity")

// Store defines the storage contract consumed by the soreness service.
// This interface allows swapping implementations (e.g., for testing).
type Store interface {
	// Catalog
	LoadCatalog(ctx context.Context) (*catalog.Catalog, error)

	// Logged sets
	AddSets(ctx context.Context, sets []*models.LoggedSet) error
	ListSets(ctx context.Context, userID string, from, to time.Time) ([]*models.LoggedSet, error)

	// Derived state reads
	ListSoreness(ctx context.Context, userID string) ([]models.MuscleSoreness, error)
	ListMaxSoreness(ctx context.Context, userID string, g models.Granularity) ([]models.MaxSoreness, error)
	ListHistory(ctx context.Context, userID, group string, since time.Time) ([]models.HistoryEntry, error)

	// Update runs fn in a single transaction. If fn or the commit fails,
	// nothing fn wrote is visible afterwards.
	Update(ctx context.Context, fn func(tx Tx) error) error

	// Data clearing
	ResetLedger(ctx context.Context, userID string) error
	WipeUser(ctx context.Context, userID string) error

	// Lifecycle
	Close() error
}

// Tx is the write side of a Store, valid only inside Update.
type Tx interface {
	// ReadMax returns ledger rows for keys; absent keys are missing from the map.
	// A nil keys slice reads every row for the user.
	ReadMax(ctx context.Context, userID string, g models.Granularity, keys []string) (map[string]models.MaxSoreness, error)
	WriteMax(ctx context.Context, rows []models.MaxSoreness) error

	// ReplaceSoreness swaps the user's whole soreness snapshot for rows.
	ReplaceSoreness(ctx context.Context, userID string, rows []models.MuscleSoreness) error
	// UpsertSoreness overwrites only the given (user, muscle) rows.
	UpsertSoreness(ctx context.Context, rows []models.MuscleSoreness) error

	// InsertSets writes sets whose id is not stored yet and returns how many
	// were written.
	InsertSets(ctx context.Context, sets []*models.LoggedSet) (int, error)

	// AppendHistory inserts samples; a sample whose id is already stored is
	// left as it was.
	AppendHistory(ctx context.Context, entries []models.HistoryEntry) error
}

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}
