package metrics

import "github.com/prometheus/client_golang/prometheus"

// ScheduleMetrics exposes counters/histograms for the report and planner
// endpoints.
type ScheduleMetrics struct {
	reportTotal   *prometheus.CounterVec
	visitsTotal   *prometheus.CounterVec
	buildLatency  *prometheus.HistogramVec
	snapshotLoads *prometheus.CounterVec
	importTotal   *prometheus.CounterVec
}

func NewScheduleMetrics(reg prometheus.Registerer) *ScheduleMetrics {
	m := &ScheduleMetrics{
		reportTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "medvisit",
			Subsystem: "schedule",
			Name:      "report_requests_total",
			Help:      "Total report and planner builds",
		}, []string{"endpoint", "status"}),
		visitsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "medvisit",
			Subsystem: "visits",
			Name:      "recorded_total",
			Help:      "Total visits marked as completed",
		}, []string{"status"}),
		buildLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "medvisit",
			Subsystem: "schedule",
			Name:      "build_latency_seconds",
			Help:      "Latency of report and planner builds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
		snapshotLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "medvisit",
			Subsystem: "snapshot",
			Name:      "loads_total",
			Help:      "Total org snapshot loads",
		}, []string{"source"}),
		importTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "medvisit",
			Subsystem: "directory",
			Name:      "imports_total",
			Help:      "Total archive imports",
		}, []string{"status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.reportTotal, m.visitsTotal, m.buildLatency, m.snapshotLoads, m.importTotal)
	return m
}

func (m *ScheduleMetrics) ObserveReport(endpoint, status string) {
	if m == nil {
		return
	}
	m.reportTotal.WithLabelValues(endpoint, status).Inc()
}

func (m *ScheduleMetrics) ObserveVisit(status string) {
	if m == nil {
		return
	}
	m.visitsTotal.WithLabelValues(status).Inc()
}

func (m *ScheduleMetrics) ObserveBuildLatency(endpoint string, seconds float64) {
	if m == nil {
		return
	}
	m.buildLatency.WithLabelValues(endpoint).Observe(seconds)
}

func (m *ScheduleMetrics) ObserveSnapshotLoad(source string) {
	if m == nil {
		return
	}
	m.snapshotLoads.WithLabelValues(source).Inc()
}

func (m *ScheduleMetrics) ObserveImport(status string) {
	if m == nil {
		return
	}
	m.importTotal.WithLabelValues(status).Inc()
}
