// ABOUTME: Prometheus instrumentation for soreness recomputation.
// ABOUTME: Counters and a duration histogram registered on a caller-supplied registry.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	ModeSession = "session"
	ModeFull    = "full"
)

type Manager struct {
	// counters
	CounterRecomputes           *prometheus.CounterVec
	CounterRecomputeFailures    *prometheus.CounterVec
	CounterAggregationFallbacks prometheus.Counter
	CounterUnmappedSets         prometheus.Counter
	CounterLedgerRaises         *prometheus.CounterVec
	CounterSetsLogged           prometheus.Counter

	// histograms
	HistRecomputeDuration prometheus.Histogram
}

func NewTestManager() *Manager {
	return NewManager("liftlog", "test", prometheus.NewRegistry())
}

func NewTestManagerAndRegistry() (*Manager, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	return NewManager("liftlog", "test", reg), reg
}

func NewManager(namespace, subsystem string, reg prometheus.Registerer) *Manager {
	factory := promauto.With(reg)

	counterRecomputes := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "soreness_recomputes",
		Help:      "The total number of committed soreness recomputations",
	}, []string{"mode"})
	counterRecomputeFailures := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "soreness_recompute_failures",
		Help:      "The total number of soreness recomputations rolled back by a storage error",
	}, []string{"mode"})
	counterAggregationFallbacks := factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "group_aggregation_fallbacks",
		Help:      "Muscle group roll-ups that used the unweighted mean because no ratio table exists",
	})
	counterUnmappedSets := factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "unmapped_sets",
		Help:      "Logged sets skipped because their exercise trains no catalogued muscle",
	})
	counterLedgerRaises := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "ledger_raises",
		Help:      "Max-soreness baselines raised by a new observation",
	}, []string{"granularity"})
	counterSetsLogged := factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "sets_logged",
		Help:      "The total number of sets stored by the session logger",
	})

	histRecomputeDuration := factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "recompute_duration_seconds",
		Help:      "Duration of a soreness recomputation including the storage transaction",
		Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
	})

	return &Manager{
		CounterRecomputes:           counterRecomputes,
		CounterRecomputeFailures:    counterRecomputeFailures,
		CounterAggregationFallbacks: counterAggregationFallbacks,
		CounterUnmappedSets:         counterUnmappedSets,
		CounterLedgerRaises:         counterLedgerRaises,
		CounterSetsLogged:           counterSetsLogged,
		HistRecomputeDuration:       histRecomputeDuration,
	}
}
