// ABOUTME: Import of an exported snapshot into a user's soreness state.
// ABOUTME: Sets, baselines, and history commit together; re-importing a file adds nothing new.
package soreness

import (
	"context"
	"errors"
	"fmt"

	"github.com/harperreed/liftlog/internal/metrics"
	"github.com/harperreed/liftlog/internal/models"
	"github.com/harperreed/liftlog/internal/storage"
	"github.com/sirupsen/logrus"
)

// ImportResult counts what an Import wrote.
type ImportResult struct {
	SetsAdded   int
	SetsSkipped int
	Baselines   int
	History     int
	// Recompute is the full recompute that ran after the import committed.
	Recompute *Result
}

// Import folds data into userID's state. Every set is validated before
// anything is written. Sets and history samples whose id is already stored
// are skipped, and baselines go through the ledger max rule, so they can
// only raise existing values. The soreness snapshot in data is not copied;
// it is recomputed from the sets. If only that recompute fails, the import
// stays committed and the error wraps ErrRecompute.
func (s *Service) Import(ctx context.Context, userID string, data *storage.ExportData) (*ImportResult, error) {
	if userID == "" {
		return nil, ErrNoUser
	}
	if data == nil {
		return nil, errors.New("no data to import")
	}

	sets := make([]*models.LoggedSet, 0, len(data.Sets))
	for i, set := range data.Sets {
		if set == nil {
			return nil, fmt.Errorf("set %d: missing", i+1)
		}
		if err := set.Validate(); err != nil {
			return nil, fmt.Errorf("set %d: %w", i+1, err)
		}
		copied := *set
		copied.UserID = userID
		sets = append(sets, &copied)
	}

	muscleObs := make(map[MuscleKey]float64, len(data.MuscleMax))
	for _, row := range data.MuscleMax {
		muscleObs[MuscleKey(row.Key)] = max(muscleObs[MuscleKey(row.Key)], row.MaxSoreness)
	}
	groupObs := make(map[GroupKey]float64, len(data.GroupMax))
	for _, row := range data.GroupMax {
		groupObs[GroupKey(row.Key)] = max(groupObs[GroupKey(row.Key)], row.MaxSoreness)
	}

	history := make([]models.HistoryEntry, len(data.History))
	for i, e := range data.History {
		e.UserID = userID
		history[i] = e
	}

	res := &ImportResult{
		Baselines: len(muscleObs) + len(groupObs),
		History:   len(history),
	}
	now := s.now()
	err := s.store.Update(ctx, func(tx storage.Tx) error {
		added, err := tx.InsertSets(ctx, sets)
		if err != nil {
			return fmt.Errorf("import sets: %w", err)
		}
		res.SetsAdded = added
		res.SetsSkipped = len(sets) - added

		if _, err := s.muscles.Apply(ctx, tx, userID, muscleObs, now); err != nil {
			return err
		}
		if _, err := s.groups.Apply(ctx, tx, userID, groupObs, now); err != nil {
			return err
		}
		if err := tx.AppendHistory(ctx, history); err != nil {
			return fmt.Errorf("import history: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if s.metrics != nil && res.SetsAdded > 0 {
		s.metrics.CounterSetsLogged.Add(float64(res.SetsAdded))
	}

	s.log.WithFields(logrus.Fields{
		"user_id":      userID,
		"sets_added":   res.SetsAdded,
		"sets_skipped": res.SetsSkipped,
		"baselines":    res.Baselines,
		"history":      res.History,
	}).Info("export imported")

	res.Recompute, err = s.recompute(ctx, userID, metrics.ModeFull, nil)
	if err != nil {
		return res, fmt.Errorf("%w: %w", ErrRecompute, err)
	}
	return res, nil
}
