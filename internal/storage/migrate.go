// ABOUTME: Data migration between liftlog storage backends.
// ABOUTME: Copies one user's sets, soreness, baselines, and history from source to destination.

package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/harperreed/liftlog/internal/models"
)

// ErrDestinationNotEmpty is returned when the destination already holds data for the user.
var ErrDestinationNotEmpty = errors.New("destination already has data for this user")

// MigrateSummary holds counts of migrated entities.
type MigrateSummary struct {
	Sets      int
	Soreness  int
	MuscleMax int
	GroupMax  int
	History   int
}

// MigrateData copies all of userID's data from src to dst in one destination
// transaction, so a failed migration writes nothing. The destination must
// have no sets or soreness for userID.
func MigrateData(ctx context.Context, src, dst Store, userID string) (*MigrateSummary, error) {
	if err := checkEmpty(ctx, dst, userID); err != nil {
		return nil, err
	}

	data, err := GetAllData(ctx, src, userID)
	if err != nil {
		return nil, fmt.Errorf("read source: %w", err)
	}

	summary := &MigrateSummary{
		Sets:      len(data.Sets),
		Soreness:  len(data.Soreness),
		MuscleMax: len(data.MuscleMax),
		GroupMax:  len(data.GroupMax),
		History:   len(data.History),
	}

	err = dst.Update(ctx, func(tx Tx) error {
		if _, err := tx.InsertSets(ctx, data.Sets); err != nil {
			return fmt.Errorf("copy sets: %w", err)
		}
		if err := tx.ReplaceSoreness(ctx, userID, data.Soreness); err != nil {
			return fmt.Errorf("copy soreness: %w", err)
		}
		ledger := make([]models.MaxSoreness, 0, len(data.MuscleMax)+len(data.GroupMax))
		ledger = append(ledger, data.MuscleMax...)
		ledger = append(ledger, data.GroupMax...)
		if err := tx.WriteMax(ctx, ledger); err != nil {
			return fmt.Errorf("copy baselines: %w", err)
		}
		if err := tx.AppendHistory(ctx, data.History); err != nil {
			return fmt.Errorf("copy history: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return summary, nil
}

// Count reports what MigrateData would copy for userID without writing anything.
func Count(ctx context.Context, s Store, userID string) (*MigrateSummary, error) {
	data, err := GetAllData(ctx, s, userID)
	if err != nil {
		return nil, err
	}
	return &MigrateSummary{
		Sets:      len(data.Sets),
		Soreness:  len(data.Soreness),
		MuscleMax: len(data.MuscleMax),
		GroupMax:  len(data.GroupMax),
		History:   len(data.History),
	}, nil
}

func checkEmpty(ctx context.Context, s Store, userID string) error {
	sets, err := s.ListSets(ctx, userID, time.Time{}, time.Now().Add(100*365*24*time.Hour))
	if err != nil {
		return fmt.Errorf("check destination: %w", err)
	}
	rows, err := s.ListSoreness(ctx, userID)
	if err != nil {
		return fmt.Errorf("check destination: %w", err)
	}
	if len(sets) > 0 || len(rows) > 0 {
		return ErrDestinationNotEmpty
	}
	return nil
}
