package metrics

import (
	"time"

	"github.com/Dosada05/duel-tournament/models"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "duel_tournament"

// DuelMetrics собирает метрики жизненного цикла дуэлей. Нулевой указатель допустим и ничего не пишет.
type DuelMetrics struct {
	transitions     *prometheus.CounterVec
	judgeDuration   *prometheus.HistogramVec
	rematches       prometheus.Counter
	forcedTiebreaks prometheus.Counter
	slotConflicts   prometheus.Counter
	advancements    prometheus.Counter
}

// New создает метрики и регистрирует их в reg.
func New(reg prometheus.Registerer) (*DuelMetrics, error) {
	m := &DuelMetrics{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "duel_transitions_total",
			Help:      "Duel status transitions by source and target status.",
		}, []string{"from", "to"}),
		judgeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "judge_duration_seconds",
			Help:      "Latency of judging adapter calls by outcome.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"outcome"}),
		rematches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rematches_total",
			Help:      "Duels sent back to play because of a rematch verdict.",
		}),
		forcedTiebreaks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "forced_tiebreaks_total",
			Help:      "Rematch verdicts overridden by the tiebreak after the rematch cap.",
		}),
		slotConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "slot_conflicts_total",
			Help:      "Advancements rejected because the downstream slot held a different team.",
		}),
		advancements: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "advancements_total",
			Help:      "Winners written into downstream duel slots.",
		}),
	}
	for _, c := range []prometheus.Collector{m.transitions, m.judgeDuration, m.rematches, m.forcedTiebreaks, m.slotConflicts, m.advancements} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// NewNoop возвращает метрики на собственном реестре, который никто не экспортирует.
func NewNoop() *DuelMetrics {
	m, _ := New(prometheus.NewRegistry())
	return m
}

func (m *DuelMetrics) Transition(from, to models.DuelStatus) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(string(from), string(to)).Inc()
}

// ObserveJudge пишет длительность вызова судьи; outcome - "A", "B", "rematch" или "error".
func (m *DuelMetrics) ObserveJudge(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.judgeDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

func (m *DuelMetrics) Rematch() {
	if m == nil {
		return
	}
	m.rematches.Inc()
}

func (m *DuelMetrics) ForcedTiebreak() {
	if m == nil {
		return
	}
	m.forcedTiebreaks.Inc()
}

func (m *DuelMetrics) SlotConflict() {
	if m == nil {
		return
	}
	m.slotConflicts.Inc()
}

func (m *DuelMetrics) Advanced() {
	if m == nil {
		return
	}
	m.advancements.Inc()
}
