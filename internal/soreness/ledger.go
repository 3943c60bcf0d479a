// ABOUTME: Generic max-soreness ledger shared by the per-muscle and per-group granularities.
// ABOUTME: Stored values only ever rise: max(existing or 0, observed).
package soreness

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/harperreed/liftlog/internal/models"
)

// MuscleKey identifies a per-muscle ledger row.
type MuscleKey string

// GroupKey identifies a per-muscle-group ledger row.
type GroupKey string

// LedgerReader reads ledger rows. A nil keys slice reads all of the user's rows.
type LedgerReader interface {
	ReadMax(ctx context.Context, userID string, g models.Granularity, keys []string) (map[string]models.MaxSoreness, error)
}

// LedgerTx is the transactional read-write surface a Ledger needs.
// storage.Tx satisfies it.
type LedgerTx interface {
	LedgerReader
	WriteMax(ctx context.Context, rows []models.MaxSoreness) error
}

// Ledger applies the running-maximum rule at one key granularity.
type Ledger[K ~string] struct {
	granularity models.Granularity
}

// NewMuscleLedger returns the per-muscle ledger.
func NewMuscleLedger() *Ledger[MuscleKey] {
	return &Ledger[MuscleKey]{granularity: models.GranularityMuscle}
}

// NewGroupLedger returns the per-muscle-group ledger.
func NewGroupLedger() *Ledger[GroupKey] {
	return &Ledger[GroupKey]{granularity: models.GranularityGroup}
}

// Granularity returns the ledger's key granularity.
func (l *Ledger[K]) Granularity() models.Granularity {
	return l.granularity
}

// Apply sets every observed key to max(existing or 0, observed) in one pass
// and stamps last_updated with at, creating missing rows. It returns the
// keys whose stored value went up, sorted. The caller owns the transaction,
// so either the whole batch commits or none of it does.
func (l *Ledger[K]) Apply(ctx context.Context, tx LedgerTx, userID string, observed map[K]float64, at time.Time) ([]K, error) {
	if len(observed) == 0 {
		return nil, nil
	}

	keys := make([]string, 0, len(observed))
	for k := range observed {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)

	existing, err := tx.ReadMax(ctx, userID, l.granularity, keys)
	if err != nil {
		return nil, fmt.Errorf("read %s ledger: %w", l.granularity, err)
	}

	rows := make([]models.MaxSoreness, 0, len(keys))
	var raised []K
	for _, key := range keys {
		prev := existing[key].MaxSoreness
		next := math.Max(prev, 0)
		if v := observed[K(key)]; v > next {
			next = v
		}
		if next > prev {
			raised = append(raised, K(key))
		}
		rows = append(rows, models.MaxSoreness{
			UserID:      userID,
			Granularity: l.granularity,
			Key:         key,
			MaxSoreness: next,
			LastUpdated: at,
		})
	}

	if err := tx.WriteMax(ctx, rows); err != nil {
		return nil, fmt.Errorf("write %s ledger: %w", l.granularity, err)
	}
	return raised, nil
}

// Update applies a single observation and returns the stored maximum.
func (l *Ledger[K]) Update(ctx context.Context, tx LedgerTx, userID string, key K, observed float64, at time.Time) (float64, error) {
	if _, err := l.Apply(ctx, tx, userID, map[K]float64{key: observed}, at); err != nil {
		return 0, err
	}
	return l.Get(ctx, tx, userID, key)
}

// Get returns the stored maximum for key, or 0 when it was never observed.
func (l *Ledger[K]) Get(ctx context.Context, r LedgerReader, userID string, key K) (float64, error) {
	rows, err := r.ReadMax(ctx, userID, l.granularity, []string{string(key)})
	if err != nil {
		return 0, fmt.Errorf("read %s ledger: %w", l.granularity, err)
	}
	return rows[string(key)].MaxSoreness, nil
}
