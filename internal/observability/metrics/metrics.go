package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "impact_"

	resultSuccess = "success"
	resultError   = "error"

	outcomeDispatched = "dispatched"
	outcomeCurtailed  = "curtailed"
	outcomeFailed     = "failed"
)

// Metrics bundles run metrics on a private registry so a batch run can write
// them to a node_exporter textfile.
type Metrics struct {
	registry *prometheus.Registry

	runsTotal        *prometheus.CounterVec
	stageLatency     *prometheus.HistogramVec
	hoursTotal       *prometheus.CounterVec
	hourFailures     *prometheus.CounterVec
	droppedSnapshots prometheus.Counter
	fallbackHours    prometheus.Gauge
	avoidedTonnes    prometheus.Gauge
	rateChangePct    prometheus.Gauge
	curtailedPct     prometheus.Gauge
	exportTotal      *prometheus.CounterVec
}

// New constructs and registers metrics.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "runs_total",
				Help: "Total allocation runs by result",
			},
			[]string{"result"},
		),
		stageLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "stage_latency_seconds",
				Help:    "Run stage latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"stage"},
		),
		hoursTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "hours_total",
				Help: "Allocated hours by outcome",
			},
			[]string{"outcome"},
		),
		hourFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "hour_failures_total",
				Help: "Failed hours by kind",
			},
			[]string{"kind"},
		),
		droppedSnapshots: prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricPrefix + "dropped_snapshots_total",
			Help: "Fuel mix snapshots dropped for missing data",
		}),
		fallbackHours: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: metricPrefix + "fallback_hours",
			Help: "Hours whose marginal fuel came from the fallback",
		}),
		avoidedTonnes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: metricPrefix + "avoided_emissions_tonnes",
			Help: "Avoided CO2 emissions in metric tons",
		}),
		rateChangePct: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: metricPrefix + "marginal_rate_change_percent",
			Help: "Percent change of mean marginal emissions rate",
		}),
		curtailedPct: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: metricPrefix + "curtailed_generation_percent",
			Help: "Share of new generation curtailed",
		}),
		exportTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "export_total",
				Help: "Report exports by format and result",
			},
			[]string{"format", "result"},
		),
	}
	m.registry.MustRegister(
		m.runsTotal,
		m.stageLatency,
		m.hoursTotal,
		m.hourFailures,
		m.droppedSnapshots,
		m.fallbackHours,
		m.avoidedTonnes,
		m.rateChangePct,
		m.curtailedPct,
		m.exportTotal,
	)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveRun records a finished run.
func (m *Metrics) ObserveRun(result string, duration time.Duration) {
	if m == nil {
		return
	}
	if result == "" {
		result = resultSuccess
	}
	m.runsTotal.WithLabelValues(result).Inc()
	m.stageLatency.WithLabelValues("total").Observe(duration.Seconds())
}

// ObserveStage records the latency of one run stage.
func (m *Metrics) ObserveStage(stage string, duration time.Duration) {
	if m == nil {
		return
	}
	if stage == "" {
		stage = "unknown"
	}
	m.stageLatency.WithLabelValues(stage).Observe(duration.Seconds())
}

// AddHours counts hours by outcome.
func (m *Metrics) AddHours(dispatched, curtailed, failed int) {
	if m == nil {
		return
	}
	m.hoursTotal.WithLabelValues(outcomeDispatched).Add(float64(dispatched))
	m.hoursTotal.WithLabelValues(outcomeCurtailed).Add(float64(curtailed))
	m.hoursTotal.WithLabelValues(outcomeFailed).Add(float64(failed))
}

// AddHourFailures counts failed hours by kind.
func (m *Metrics) AddHourFailures(byKind map[string]int) {
	if m == nil {
		return
	}
	for kind, n := range byKind {
		if kind == "" {
			kind = "unknown"
		}
		m.hourFailures.WithLabelValues(kind).Add(float64(n))
	}
}

// AddDroppedSnapshots counts dropped fuel mix snapshots.
func (m *Metrics) AddDroppedSnapshots(count int) {
	if m == nil || count <= 0 {
		return
	}
	m.droppedSnapshots.Add(float64(count))
}

// SetFallbackHours records how many hours used the fallback marginal fuel.
func (m *Metrics) SetFallbackHours(count int) {
	if m == nil {
		return
	}
	m.fallbackHours.Set(float64(count))
}

// SetImpact records the headline results of a run. NaN is kept as NaN.
func (m *Metrics) SetImpact(avoidedTonnes, rateChangePct, curtailedPct float64) {
	if m == nil {
		return
	}
	m.avoidedTonnes.Set(avoidedTonnes)
	m.rateChangePct.Set(rateChangePct)
	m.curtailedPct.Set(curtailedPct)
}

// IncExport counts a report export.
func (m *Metrics) IncExport(format, result string) {
	if m == nil {
		return
	}
	if format == "" {
		format = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	m.exportTotal.WithLabelValues(format, result).Inc()
}

// WriteTextfile writes all metrics in the text exposition format.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}

// Exported constants for callers.
const (
	ResultSuccess = resultSuccess
	ResultError   = resultError
)
