// ABOUTME: Service wiring accumulator, ledgers, normalizer, and aggregator to a Store.
// ABOUTME: Recompute runs in one storage transaction; reads return normalized values.
package soreness

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/harperreed/liftlog/internal/catalog"
	"github.com/harperreed/liftlog/internal/metrics"
	"github.com/harperreed/liftlog/internal/models"
	"github.com/harperreed/liftlog/internal/storage"
	"github.com/sirupsen/logrus"
)

var (
	// ErrNoUser is returned when an operation is called without a user id.
	ErrNoUser = errors.New("user id is required")
	// ErrRecompute marks a failure after the input sets were already saved.
	ErrRecompute = errors.New("recompute soreness")
)

// Options configures a Service. Zero values select the defaults.
type Options struct {
	Scorer  Scorer
	Window  time.Duration
	Metrics *metrics.Manager
	Logger  *logrus.Entry
	Now     func() time.Time
}

// Service is the soreness core. Create one per process with NewService.
type Service struct {
	store   storage.Store
	catalog *catalog.Catalog
	acc     *Accumulator
	agg     *Aggregator
	muscles *Ledger[MuscleKey]
	groups  *Ledger[GroupKey]
	metrics *metrics.Manager
	log     *logrus.Entry
	now     func() time.Time
}

// Result summarizes one committed recompute.
type Result struct {
	UserID        string                  `json:"user_id"`
	Mode          string                  `json:"mode"`
	At            time.Time               `json:"at"`
	SetsCounted   int                     `json:"sets_counted"`
	SetsUnmapped  int                     `json:"sets_unmapped"`
	Muscles       []models.MuscleSoreness `json:"muscles"`
	GroupScores   map[string]float64      `json:"group_scores"`
	RaisedMuscles []string                `json:"raised_muscles,omitempty"`
	RaisedGroups  []string                `json:"raised_groups,omitempty"`
}

// NewService loads the catalog from store and builds a Service.
func NewService(ctx context.Context, store storage.Store, opts Options) (*Service, error) {
	cat, err := store.LoadCatalog(ctx)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	return NewServiceWithCatalog(store, cat, opts), nil
}

// NewServiceWithCatalog builds a Service around an already loaded catalog.
func NewServiceWithCatalog(store storage.Store, cat *catalog.Catalog, opts Options) *Service {
	log := opts.Logger
	if log == nil {
		log = logrus.WithField("component", "soreness")
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	window := opts.Window
	if window == 0 {
		window = DefaultWindow
	}

	s := &Service{
		store:   store,
		catalog: cat,
		acc:     NewAccumulator(cat, opts.Scorer, window, log),
		muscles: NewMuscleLedger(),
		groups:  NewGroupLedger(),
		metrics: opts.Metrics,
		log:     log,
		now:     now,
	}
	s.agg = &Aggregator{Ratios: cat, Log: log, OnFallback: s.countFallback}
	return s
}

// Catalog returns the catalog the service was built with.
func (s *Service) Catalog() *catalog.Catalog {
	return s.catalog
}

// Strategy returns the name of the per-set scoring strategy in use.
func (s *Service) Strategy() string {
	return s.acc.Scorer().Name()
}

// RecordSession stores sets for userID and recomputes the muscles they
// train. Sets with an empty UserID are assigned to userID. If only the
// recompute fails, the sets stay saved and the error wraps ErrRecompute.
func (s *Service) RecordSession(ctx context.Context, userID string, sets []*models.LoggedSet) (*Result, error) {
	if userID == "" {
		return nil, ErrNoUser
	}
	if len(sets) == 0 {
		return nil, errors.New("no sets to record")
	}

	affected := make(map[string]bool)
	for _, set := range sets {
		if set.UserID == "" {
			set.UserID = userID
		}
		if set.UserID != userID {
			return nil, fmt.Errorf("set %s belongs to user %q, not %q", set.ID, set.UserID, userID)
		}
		if err := set.Validate(); err != nil {
			return nil, fmt.Errorf("set %s: %w", set.ID, err)
		}
		for _, mi := range s.catalog.ExerciseMuscles(set.ExerciseID) {
			affected[mi.Muscle] = true
		}
	}

	if err := s.store.AddSets(ctx, sets); err != nil {
		return nil, fmt.Errorf("save sets: %w", err)
	}
	if s.metrics != nil {
		s.metrics.CounterSetsLogged.Add(float64(len(sets)))
	}

	res, err := s.recompute(ctx, userID, metrics.ModeSession, affected)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRecompute, err)
	}
	return res, nil
}

// RecomputeAll rebuilds userID's whole soreness snapshot from the current
// window and folds it into both ledgers.
func (s *Service) RecomputeAll(ctx context.Context, userID string) (*Result, error) {
	if userID == "" {
		return nil, ErrNoUser
	}
	return s.recompute(ctx, userID, metrics.ModeFull, nil)
}

// recompute computes the window snapshot and commits it in one transaction.
// A nil affected set means every muscle (full mode).
func (s *Service) recompute(ctx context.Context, userID, mode string, affected map[string]bool) (*Result, error) {
	started := time.Now()
	now := s.now()

	sets, err := s.store.ListSets(ctx, userID, s.acc.Since(now), now)
	if err != nil {
		return nil, s.failed(mode, userID, fmt.Errorf("list sets: %w", err))
	}

	snap := s.acc.Compute(sets, now)
	if snap.Unmapped > 0 && s.metrics != nil {
		s.metrics.CounterUnmappedSets.Add(float64(snap.Unmapped))
	}

	rows := s.sorenessRows(userID, snap, affected, now)

	muscleObs := make(map[MuscleKey]float64, len(rows))
	touchedGroups := make(map[string]bool)
	for _, r := range rows {
		muscleObs[MuscleKey(r.Muscle)] = r.Score
		if r.MuscleGroup != "" {
			touchedGroups[r.MuscleGroup] = true
		}
	}

	groupScores := make(map[string]float64)
	for group, values := range snap.GroupValues() {
		if affected != nil && !touchedGroups[group] {
			continue
		}
		groupScores[group] = s.agg.Combine(group, values).Value
	}
	// A touched group with nothing left in the window reads as 0.
	for group := range touchedGroups {
		if _, ok := groupScores[group]; !ok {
			groupScores[group] = 0
		}
	}

	groupObs := make(map[GroupKey]float64, len(groupScores))
	history := make([]models.HistoryEntry, 0, len(groupScores))
	for _, group := range sortedKeys(groupScores) {
		groupObs[GroupKey(group)] = groupScores[group]
		history = append(history, models.NewHistoryEntry(userID, group, groupScores[group], now))
	}

	var raisedMuscles []MuscleKey
	var raisedGroups []GroupKey
	err = s.store.Update(ctx, func(tx storage.Tx) error {
		if affected == nil {
			if err := tx.ReplaceSoreness(ctx, userID, rows); err != nil {
				return fmt.Errorf("replace soreness: %w", err)
			}
		} else if err := tx.UpsertSoreness(ctx, rows); err != nil {
			return fmt.Errorf("upsert soreness: %w", err)
		}

		var err error
		if raisedMuscles, err = s.muscles.Apply(ctx, tx, userID, muscleObs, now); err != nil {
			return err
		}
		if raisedGroups, err = s.groups.Apply(ctx, tx, userID, groupObs, now); err != nil {
			return err
		}
		if err := tx.AppendHistory(ctx, history); err != nil {
			return fmt.Errorf("append history: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, s.failed(mode, userID, err)
	}

	if s.metrics != nil {
		s.metrics.CounterRecomputes.WithLabelValues(mode).Inc()
		s.metrics.CounterLedgerRaises.WithLabelValues(string(models.GranularityMuscle)).Add(float64(len(raisedMuscles)))
		s.metrics.CounterLedgerRaises.WithLabelValues(string(models.GranularityGroup)).Add(float64(len(raisedGroups)))
		s.metrics.HistRecomputeDuration.Observe(time.Since(started).Seconds())
	}

	s.log.WithFields(logrus.Fields{
		"user_id":        userID,
		"mode":           mode,
		"strategy":       s.acc.Scorer().Name(),
		"sets":           snap.Counted,
		"unmapped":       snap.Unmapped,
		"muscles":        len(rows),
		"groups":         len(groupScores),
		"raised_muscles": len(raisedMuscles),
		"raised_groups":  len(raisedGroups),
	}).Info("soreness recomputed")

	return &Result{
		UserID:        userID,
		Mode:          mode,
		At:            now,
		SetsCounted:   snap.Counted,
		SetsUnmapped:  snap.Unmapped,
		Muscles:       rows,
		GroupScores:   groupScores,
		RaisedMuscles: keyStrings(raisedMuscles),
		RaisedGroups:  keyStrings(raisedGroups),
	}, nil
}

// sorenessRows builds the rows to write. In session mode every affected
// muscle gets a row, scored 0 if nothing in the window trains it any more.
func (s *Service) sorenessRows(userID string, snap Snapshot, affected map[string]bool, now time.Time) []models.MuscleSoreness {
	var muscles []string
	if affected == nil {
		muscles = sortedKeys(snap.Scores)
	} else {
		muscles = sortedKeys(affected)
	}

	rows := make([]models.MuscleSoreness, 0, len(muscles))
	for _, m := range muscles {
		group, ok := snap.Groups[m]
		if !ok {
			group, _ = s.catalog.GroupOf(m)
		}
		rows = append(rows, models.MuscleSoreness{
			UserID:      userID,
			Muscle:      m,
			MuscleGroup: group,
			Score:       snap.Scores[m],
			UpdatedAt:   now,
		})
	}
	return rows
}

func (s *Service) failed(mode, userID string, err error) error {
	if s.metrics != nil {
		s.metrics.CounterRecomputeFailures.WithLabelValues(mode).Inc()
	}
	s.log.WithError(err).WithFields(logrus.Fields{
		"user_id": userID,
		"mode":    mode,
	}).Error("soreness recompute failed")
	return err
}

func (s *Service) countFallback(string) {
	if s.metrics != nil {
		s.metrics.CounterAggregationFallbacks.Inc()
	}
}

// GetMuscleSoreness returns every muscle with a current score or a baseline,
// normalized against its per-muscle maximum, ordered by group then muscle.
func (s *Service) GetMuscleSoreness(ctx context.Context, userID string) ([]models.MuscleReading, error) {
	if userID == "" {
		return nil, ErrNoUser
	}

	current, err := s.store.ListSoreness(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list soreness: %w", err)
	}
	maxRows, err := s.store.ListMaxSoreness(ctx, userID, models.GranularityMuscle)
	if err != nil {
		return nil, fmt.Errorf("list muscle ledger: %w", err)
	}

	byMuscle := make(map[string]*models.MuscleReading)
	reading := func(muscle string) *models.MuscleReading {
		r, ok := byMuscle[muscle]
		if !ok {
			r = &models.MuscleReading{Muscle: muscle}
			r.MuscleGroup, _ = s.catalog.GroupOf(muscle)
			byMuscle[muscle] = r
		}
		return r
	}
	for _, c := range current {
		r := reading(c.Muscle)
		r.Current = c.Score
		if c.MuscleGroup != "" {
			r.MuscleGroup = c.MuscleGroup
		}
	}
	for _, m := range maxRows {
		reading(m.Key).Max = m.MaxSoreness
	}

	out := make([]models.MuscleReading, 0, len(byMuscle))
	for _, r := range byMuscle {
		r.Normalized = Normalize(r.Current, r.Max)
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].MuscleGroup != out[j].MuscleGroup {
			return out[i].MuscleGroup < out[j].MuscleGroup
		}
		return out[i].Muscle < out[j].Muscle
	})
	return out, nil
}

// GetMuscleGroupSoreness returns one reading per catalog group plus any
// other group seen in the user's data, ordered by group.
func (s *Service) GetMuscleGroupSoreness(ctx context.Context, userID string) ([]models.GroupReading, error) {
	muscles, err := s.GetMuscleSoreness(ctx, userID)
	if err != nil {
		return nil, err
	}
	baselines, err := s.store.ListMaxSoreness(ctx, userID, models.GranularityGroup)
	if err != nil {
		return nil, fmt.Errorf("list group ledger: %w", err)
	}

	values := make(map[string][]MuscleValue)
	for _, g := range s.catalog.Groups() {
		values[g] = nil
	}
	for _, m := range muscles {
		if m.MuscleGroup == "" {
			continue
		}
		values[m.MuscleGroup] = append(values[m.MuscleGroup], MuscleValue{Muscle: m.Muscle, Value: m.Normalized})
	}

	baselineOf := make(map[string]float64, len(baselines))
	for _, b := range baselines {
		baselineOf[b.Key] = b.MaxSoreness
	}

	out := make([]models.GroupReading, 0, len(values))
	for _, group := range sortedKeys(values) {
		res := s.agg.Aggregate(group, values[group])
		out = append(out, models.GroupReading{
			Group:      group,
			Normalized: res.Value,
			Weighted:   res.Weighted,
			Coverage:   res.Coverage,
			Baseline:   baselineOf[group],
		})
	}
	return out, nil
}

// History returns group soreness samples recorded at or after since.
// An empty group returns every group.
func (s *Service) History(ctx context.Context, userID, group string, since time.Time) ([]models.HistoryEntry, error) {
	if userID == "" {
		return nil, ErrNoUser
	}
	return s.store.ListHistory(ctx, userID, group, since)
}

// UpdateMax folds one observation into the ledger of granularity g and
// returns the stored maximum.
func (s *Service) UpdateMax(ctx context.Context, userID string, g models.Granularity, key string, observed float64) (float64, error) {
	if userID == "" {
		return 0, ErrNoUser
	}

	var stored float64
	err := s.store.Update(ctx, func(tx storage.Tx) error {
		var err error
		now := s.now()
		switch g {
		case models.GranularityMuscle:
			stored, err = s.muscles.Update(ctx, tx, userID, MuscleKey(key), observed, now)
		case models.GranularityGroup:
			stored, err = s.groups.Update(ctx, tx, userID, GroupKey(key), observed, now)
		default:
			err = fmt.Errorf("%w: %q", storage.ErrUnknownGranularity, g)
		}
		return err
	})
	if err != nil {
		return 0, err
	}
	return stored, nil
}

// GetMax returns the stored maximum for key, or 0 if it was never observed.
func (s *Service) GetMax(ctx context.Context, userID string, g models.Granularity, key string) (float64, error) {
	if userID == "" {
		return 0, ErrNoUser
	}
	rows, err := s.store.ListMaxSoreness(ctx, userID, g)
	if err != nil {
		return 0, err
	}
	for _, r := range rows {
		if r.Key == key {
			return r.MaxSoreness, nil
		}
	}
	return 0, nil
}

// ResetLedger clears both max-soreness ledgers for userID.
func (s *Service) ResetLedger(ctx context.Context, userID string) error {
	if userID == "" {
		return ErrNoUser
	}
	if err := s.store.ResetLedger(ctx, userID); err != nil {
		return fmt.Errorf("reset ledger: %w", err)
	}
	s.log.WithField("user_id", userID).Info("max-soreness ledgers reset")
	return nil
}

// WipeUser deletes all of userID's sets and derived soreness state.
func (s *Service) WipeUser(ctx context.Context, userID string) error {
	if userID == "" {
		return ErrNoUser
	}
	if err := s.store.WipeUser(ctx, userID); err != nil {
		return fmt.Errorf("wipe user: %w", err)
	}
	s.log.WithField("user_id", userID).Info("user data wiped")
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func keyStrings[K ~string](keys []K) []string {
	if len(keys) == 0 {
		return nil
	}
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = string(k)
	}
	return out
}
