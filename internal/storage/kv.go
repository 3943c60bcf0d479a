// ABOUTME: Badger-backed Store for users who want an embedded KV instead of SQLite.
// ABOUTME: Rows are JSON values under prefixed keys; Update retries on txn conflicts.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/dgraph-io/badger/v3"
	"github.com/harperreed/liftlog/internal/catalog"
	"github.com/harperreed/liftlog/internal/models"
	"github.com/sirupsen/logrus"
)

const (
	kvMetaPrefix     = "meta:"
	kvRatioPrefix    = "ratio:"
	kvExMusclePrefix = "exmuscle:"
	kvSetPrefix      = "set:"
	kvSorePrefix     = "sore:"
	kvMaxPrefix      = "max:"
	kvHistPrefix     = "hist:"

	kvSep = "\x00"

	// maxConflictRetries bounds how often Update re-runs fn after badger.ErrConflict.
	maxConflictRetries = 10
	conflictBaseDelay  = 2 * time.Millisecond
	conflictMaxDelay   = 250 * time.Millisecond
)

// KV is a Store on top of an embedded Badger database.
type KV struct {
	db  *badger.DB
	dir string
}

// Compile-time check that KV implements Store.
var _ Store = (*KV)(nil)

// OpenKV opens or creates a Badger database in dir and seeds the catalog on
// first launch.
func OpenKV(dir string) (*KV, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("create kv directory: %w", err)
	}

	opts := badger.DefaultOptions(dir).
		WithLogger(logrus.WithField("component", "badger")).
		WithLoggingLevel(badger.WARNING)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open kv: %w", err)
	}

	k := &KV{db: db, dir: dir}
	if err := k.seedCatalog(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("seed catalog: %w", err)
	}
	return k, nil
}

// Path returns the Badger directory.
func (k *KV) Path() string {
	return k.dir
}

// Close closes the Badger database.
func (k *KV) Close() error {
	if k.db != nil {
		return k.db.Close()
	}
	return nil
}

func (k *KV) seedCatalog() error {
	flagKey := []byte(kvMetaPrefix + metaCatalogSeeded)

	return k.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(flagKey); err == nil {
			return nil
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		seed, err := catalog.DefaultSeed()
		if err != nil {
			return err
		}
		for _, r := range seed.Ratios {
			if err := setJSON(txn, ratioKey(r.MuscleGroup, r.Muscle), r); err != nil {
				return err
			}
		}
		for _, em := range seed.ExerciseMuscles {
			if err := setJSON(txn, exMuscleKey(em.ExerciseID, em.Muscle), em); err != nil {
				return err
			}
		}
		if err := txn.Set(flagKey, []byte("1")); err != nil {
			return err
		}

		logrus.WithFields(logrus.Fields{
			"ratios":           len(seed.Ratios),
			"exercise_muscles": len(seed.ExerciseMuscles),
		}).Info("catalog seeded")
		return nil
	})
}

// LoadCatalog builds a Catalog from the ratio and exercise-muscle keys.
func (k *KV) LoadCatalog(_ context.Context) (*catalog.Catalog, error) {
	var ratios []catalog.RatioRow
	var exerciseMuscles []catalog.ExerciseMuscleRow

	err := k.db.View(func(txn *badger.Txn) error {
		if err := scanPrefix(txn, []byte(kvRatioPrefix), nil, func(_ []byte, val []byte) (bool, error) {
			var r catalog.RatioRow
			if err := json.Unmarshal(val, &r); err != nil {
				return false, err
			}
			ratios = append(ratios, r)
			return true, nil
		}); err != nil {
			return err
		}
		return scanPrefix(txn, []byte(kvExMusclePrefix), nil, func(_ []byte, val []byte) (bool, error) {
			var em catalog.ExerciseMuscleRow
			if err := json.Unmarshal(val, &em); err != nil {
				return false, err
			}
			exerciseMuscles = append(exerciseMuscles, em)
			return true, nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	return catalog.New(ratios, exerciseMuscles), nil
}

// AddSets writes sets in one transaction.
func (k *KV) AddSets(_ context.Context, sets []*models.LoggedSet) error {
	if len(sets) == 0 {
		return nil
	}
	return k.db.Update(func(txn *badger.Txn) error {
		for _, s := range sets {
			if err := setJSON(txn, setKey(s), s); err != nil {
				return fmt.Errorf("write set %s: %w", s.ID, err)
			}
		}
		return nil
	})
}

// ListSets returns sets with from < performed_at <= to, oldest first.
func (k *KV) ListSets(_ context.Context, userID string, from, to time.Time) ([]*models.LoggedSet, error) {
	prefix := []byte(kvSetPrefix + userID + kvSep)
	start := []byte(kvSetPrefix + userID + kvSep + formatTime(from))
	upper := formatTime(to)

	var sets []*models.LoggedSet
	err := k.db.View(func(txn *badger.Txn) error {
		return scanPrefix(txn, prefix, start, func(key, val []byte) (bool, error) {
			stamp := strings.SplitN(string(key[len(prefix):]), kvSep, 2)[0]
			if stamp > upper {
				return false, nil
			}
			var s models.LoggedSet
			if err := json.Unmarshal(val, &s); err != nil {
				return false, err
			}
			if s.PerformedAt.After(from) && !s.PerformedAt.After(to) {
				sets = append(sets, &s)
			}
			return true, nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("list sets: %w", err)
	}
	return sets, nil
}

// ListSoreness returns the user's current per-muscle snapshot ordered by muscle.
func (k *KV) ListSoreness(_ context.Context, userID string) ([]models.MuscleSoreness, error) {
	var out []models.MuscleSoreness
	err := k.db.View(func(txn *badger.Txn) error {
		return scanPrefix(txn, []byte(kvSorePrefix+userID+kvSep), nil, func(_ []byte, val []byte) (bool, error) {
			var r models.MuscleSoreness
			if err := json.Unmarshal(val, &r); err != nil {
				return false, err
			}
			out = append(out, r)
			return true, nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("list soreness: %w", err)
	}
	return out, nil
}

// ListMaxSoreness returns every ledger row of granularity g ordered by key.
func (k *KV) ListMaxSoreness(ctx context.Context, userID string, g models.Granularity) ([]models.MaxSoreness, error) {
	var byKey map[string]models.MaxSoreness
	err := k.db.View(func(txn *badger.Txn) error {
		var err error
		byKey, err = (&kvTx{txn: txn}).ReadMax(ctx, userID, g, nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return sortedMax(byKey), nil
}

// ListHistory returns history samples recorded at or after since, oldest first.
// An empty group returns every group.
func (k *KV) ListHistory(_ context.Context, userID, group string, since time.Time) ([]models.HistoryEntry, error) {
	prefix := []byte(kvHistPrefix + userID + kvSep)
	start := []byte(kvHistPrefix + userID + kvSep + formatTime(since))

	var out []models.HistoryEntry
	err := k.db.View(func(txn *badger.Txn) error {
		return scanPrefix(txn, prefix, start, func(_ []byte, val []byte) (bool, error) {
			var e models.HistoryEntry
			if err := json.Unmarshal(val, &e); err != nil {
				return false, err
			}
			if group == "" || e.MuscleGroup == group {
				out = append(out, e)
			}
			return true, nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].RecordedAt.Equal(out[j].RecordedAt) {
			return out[i].RecordedAt.Before(out[j].RecordedAt)
		}
		return out[i].MuscleGroup < out[j].MuscleGroup
	})
	return out, nil
}

// Update runs fn in one Badger read-write transaction. A commit that loses
// a conflict is retried with jittered exponential backoff; once retries run
// out the error wraps badger.ErrConflict and nothing fn wrote is kept.
func (k *KV) Update(ctx context.Context, fn func(tx Tx) error) error {
	attempt := 0
	op := func() error {
		if err := ctx.Err(); err != nil {
			return backoff.Permanent(err)
		}
		attempt++
		err := k.updateOnce(fn)
		if errors.Is(err, badger.ErrConflict) {
			logrus.WithField("attempt", attempt).Debug("kv transaction conflict, retrying")
			return err
		}
		if err != nil {
			return backoff.Permanent(err)
		}
		return nil
	}

	b := backoff.WithContext(backoff.WithMaxRetries(newConflictBackOff(), maxConflictRetries), ctx)
	if err := backoff.Retry(op, b); err != nil {
		if errors.Is(err, badger.ErrConflict) {
			return fmt.Errorf("commit transaction: %w", err)
		}
		return err
	}
	return nil
}

func newConflictBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = conflictBaseDelay
	b.Multiplier = 2
	b.RandomizationFactor = 0.5
	b.MaxInterval = conflictMaxDelay
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

func (k *KV) updateOnce(fn func(tx Tx) error) error {
	txn := k.db.NewTransaction(true)
	defer txn.Discard()

	if err := fn(&kvTx{txn: txn}); err != nil {
		return err
	}
	return txn.Commit()
}

// ResetLedger deletes both max-soreness ledgers for the user.
func (k *KV) ResetLedger(_ context.Context, userID string) error {
	return k.deletePrefixes(
		maxPrefix(models.GranularityMuscle, userID),
		maxPrefix(models.GranularityGroup, userID),
	)
}

// WipeUser deletes every key the user owns.
func (k *KV) WipeUser(_ context.Context, userID string) error {
	return k.deletePrefixes(
		[]byte(kvSetPrefix+userID+kvSep),
		[]byte(kvSorePrefix+userID+kvSep),
		maxPrefix(models.GranularityMuscle, userID),
		maxPrefix(models.GranularityGroup, userID),
		[]byte(kvHistPrefix+userID+kvSep),
	)
}

func (k *KV) deletePrefixes(prefixes ...[]byte) error {
	return k.db.Update(func(txn *badger.Txn) error {
		var keys [][]byte
		for _, p := range prefixes {
			if err := scanPrefix(txn, p, nil, func(key, _ []byte) (bool, error) {
				keys = append(keys, key)
				return true, nil
			}); err != nil {
				return err
			}
		}
		for _, key := range keys {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}
		return nil
	})
}

// kvTx implements Tx over a Badger transaction.
type kvTx struct {
	txn *badger.Txn
}

func (t *kvTx) ReadMax(_ context.Context, userID string, g models.Granularity, keys []string) (map[string]models.MaxSoreness, error) {
	if !g.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownGranularity, g)
	}

	out := make(map[string]models.MaxSoreness)
	decode := func(val []byte) error {
		var row models.MaxSoreness
		if err := json.Unmarshal(val, &row); err != nil {
			return err
		}
		out[row.Key] = row
		return nil
	}

	if keys == nil {
		err := scanPrefix(t.txn, maxPrefix(g, userID), nil, func(_ []byte, val []byte) (bool, error) {
			return true, decode(val)
		})
		if err != nil {
			return nil, fmt.Errorf("read %s ledger: %w", g, err)
		}
		return out, nil
	}

	for _, key := range keys {
		item, err := t.txn.Get(maxKey(g, userID, key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read %s ledger %s: %w", g, key, err)
		}
		if err := item.Value(decode); err != nil {
			return nil, fmt.Errorf("decode %s ledger %s: %w", g, key, err)
		}
	}
	return out, nil
}

func (t *kvTx) WriteMax(_ context.Context, rows []models.MaxSoreness) error {
	for _, row := range rows {
		if !row.Granularity.IsValid() {
			return fmt.Errorf("%w: %q", ErrUnknownGranularity, row.Granularity)
		}
		if err := setJSON(t.txn, maxKey(row.Granularity, row.UserID, row.Key), row); err != nil {
			return fmt.Errorf("write %s ledger %s: %w", row.Granularity, row.Key, err)
		}
	}
	return nil
}

func (t *kvTx) ReplaceSoreness(_ context.Context, userID string, rows []models.MuscleSoreness) error {
	var stale [][]byte
	if err := scanPrefix(t.txn, []byte(kvSorePrefix+userID+kvSep), nil, func(key, _ []byte) (bool, error) {
		stale = append(stale, key)
		return true, nil
	}); err != nil {
		return fmt.Errorf("clear soreness: %w", err)
	}
	for _, key := range stale {
		if err := t.txn.Delete(key); err != nil {
			return fmt.Errorf("clear soreness: %w", err)
		}
	}
	for _, r := range rows {
		if err := setJSON(t.txn, soreKey(userID, r.Muscle), r); err != nil {
			return fmt.Errorf("write soreness %s: %w", r.Muscle, err)
		}
	}
	return nil
}

func (t *kvTx) UpsertSoreness(_ context.Context, rows []models.MuscleSoreness) error {
	for _, r := range rows {
		if err := setJSON(t.txn, soreKey(r.UserID, r.Muscle), r); err != nil {
			return fmt.Errorf("write soreness %s: %w", r.Muscle, err)
		}
	}
	return nil
}

func (t *kvTx) InsertSets(_ context.Context, sets []*models.LoggedSet) (int, error) {
	inserted := 0
	for _, s := range sets {
		key := setKey(s)
		ok, err := t.has(key)
		if err != nil {
			return inserted, fmt.Errorf("read set %s: %w", s.ID, err)
		}
		if ok {
			continue
		}
		if err := setJSON(t.txn, key, s); err != nil {
			return inserted, fmt.Errorf("write set %s: %w", s.ID, err)
		}
		inserted++
	}
	return inserted, nil
}

func (t *kvTx) AppendHistory(_ context.Context, entries []models.HistoryEntry) error {
	for _, e := range entries {
		key := []byte(kvHistPrefix + e.UserID + kvSep + formatTime(e.RecordedAt) + kvSep + e.ID.String())
		ok, err := t.has(key)
		if err != nil {
			return fmt.Errorf("read history %s: %w", e.ID, err)
		}
		if ok {
			continue
		}
		if err := setJSON(t.txn, key, e); err != nil {
			return fmt.Errorf("append history %s: %w", e.MuscleGroup, err)
		}
	}
	return nil
}

func (t *kvTx) has(key []byte) (bool, error) {
	_, err := t.txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	return err == nil, err
}

func ratioKey(group, muscle string) []byte {
	return []byte(kvRatioPrefix + group + kvSep + muscle)
}

func exMuscleKey(exerciseID, muscle string) []byte {
	return []byte(kvExMusclePrefix + exerciseID + kvSep + muscle)
}

func setKey(s *models.LoggedSet) []byte {
	return []byte(kvSetPrefix + s.UserID + kvSep + formatTime(s.PerformedAt) + kvSep + s.ID.String())
}

func soreKey(userID, muscle string) []byte {
	return []byte(kvSorePrefix + userID + kvSep + muscle)
}

func maxPrefix(g models.Granularity, userID string) []byte {
	return []byte(kvMaxPrefix + string(g) + ":" + userID + kvSep)
}

func maxKey(g models.Granularity, userID, key string) []byte {
	return append(maxPrefix(g, userID), key...)
}

func setJSON(txn *badger.Txn, key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return txn.Set(key, data)
}

// scanPrefix walks keys under prefix starting at start (or prefix when nil)
// until visit returns false.
func scanPrefix(txn *badger.Txn, prefix, start []byte, visit func(key, val []byte) (bool, error)) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	defer it.Close()

	if start == nil {
		start = prefix
	}
	for it.Seek(start); it.ValidForPrefix(prefix); it.Next() {
		item := it.Item()
		key := item.KeyCopy(nil)
		val, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		more, err := visit(key, val)
		if err != nil {
			return err
		}
		if !more {
			break
		}
	}
	return nil
}
