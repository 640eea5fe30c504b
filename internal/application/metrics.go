package application

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/modelshift/modelshift-server/internal/domain"
)

// EngineMetrics are the engine's own operational counters, as opposed to
// the model health metrics the engine consumes through
// [domain.MetricsSource].
type EngineMetrics struct {
	releasesStarted   prometheus.Counter
	releasesCompleted *prometheus.CounterVec
	stagesObserved    *prometheus.CounterVec
	rollbackUnits     prometheus.Counter
}

// NewEngineMetrics creates and registers the engine counters.
func NewEngineMetrics(reg prometheus.Registerer) *EngineMetrics {
	m := &EngineMetrics{
		releasesStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "modelshift_releases_started_total",
			Help: "Release pipelines started.",
		}),
		releasesCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "modelshift_releases_completed_total",
			Help: "Release pipelines reaching a terminal state.",
		}, []string{"state"}),
		stagesObserved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "modelshift_rollout_stages_total",
			Help: "Rollout stages observed, by health outcome.",
		}, []string{"outcome"}),
		rollbackUnits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "modelshift_rollback_units_total",
			Help: "Units reverted to their prior version by rollbacks.",
		}),
	}
	reg.MustRegister(m.releasesStarted, m.releasesCompleted, m.stagesObserved, m.rollbackUnits)
	return m
}

func (m *EngineMetrics) releaseStarted() {
	if m == nil {
		return
	}
	m.releasesStarted.Inc()
}

func (m *EngineMetrics) releaseCompleted(rel domain.Release) {
	if m == nil {
		return
	}
	m.releasesCompleted.WithLabelValues(string(rel.State)).Inc()
	for _, stage := range rel.Rollout.Stages {
		m.stagesObserved.WithLabelValues(string(stage.Outcome)).Inc()
		if stage.Outcome == domain.StageOutcomeUnhealthy {
			m.rollbackUnits.Add(float64(len(stage.UnitIDs)))
		}
	}
}
