package metrics

import (
	"fmt"

	"pricecollector/internal/ingest"

	"github.com/prometheus/client_golang/prometheus"
)

// RunMetrics tracks ingestion runs in its own registry so a one-shot process
// can export them through the node_exporter textfile collector.
type RunMetrics struct {
	registry *prometheus.Registry
	textfile string

	lastRun       prometheus.Gauge
	lastDuration  prometheus.Gauge
	lastSuccess   prometheus.Gauge
	runsTotal     *prometheus.CounterVec
	missing       prometheus.Gauge
	tableColumns  prometheus.Gauge
	tableRows     prometheus.Gauge
	mirrorFailure prometheus.Counter
}

// New registers the run metrics. textfile may be empty to keep them in memory only.
func New(textfile string) *RunMetrics {
	reg := prometheus.NewRegistry()
	m := &RunMetrics{
		registry: reg,
		textfile: textfile,
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "collector_last_run_timestamp_seconds",
			Help: "Unix timestamp of the last finished ingestion run",
		}),
		lastDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "collector_last_run_duration_seconds",
			Help: "Duration of the last finished ingestion run",
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "collector_last_success_timestamp_seconds",
			Help: "Unix timestamp of the last run that committed a row",
		}),
		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "collector_runs_total",
				Help: "Finished ingestion runs by outcome kind",
			},
			[]string{"outcome"},
		),
		missing: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "collector_snapshot_missing_symbols",
			Help: "Requested symbols without a price in the last snapshot",
		}),
		tableColumns: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "collector_table_columns",
			Help: "Symbol columns in the snapshot table after the last commit",
		}),
		tableRows: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "collector_table_rows",
			Help: "Rows in the snapshot table after the last commit",
		}),
		mirrorFailure: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "collector_mirror_failures_total",
			Help: "Committed runs whose snapshot could not be mirrored",
		}),
	}
	reg.MustRegister(m.lastRun, m.lastDuration, m.lastSuccess, m.runsTotal,
		m.missing, m.tableColumns, m.tableRows, m.mirrorFailure)
	return m
}

func (m *RunMetrics) Registry() *prometheus.Registry { return m.registry }

// Record updates the metrics from o and rewrites the textfile, if configured.
func (m *RunMetrics) Record(o ingest.Outcome) error {
	m.lastRun.Set(float64(o.Finished.Unix()))
	m.lastDuration.Set(o.Duration().Seconds())

	if o.OK() {
		m.runsTotal.WithLabelValues("done").Inc()
		m.lastSuccess.Set(float64(o.Finished.Unix()))
		m.missing.Set(float64(len(o.Missing)))
		m.tableColumns.Set(float64(o.Columns))
		m.tableRows.Set(float64(o.Rows))
		if len(o.Warnings) > 0 {
			m.mirrorFailure.Inc()
		}
	} else {
		m.runsTotal.WithLabelValues(outcomeLabel(o)).Inc()
	}

	if m.textfile == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(m.textfile, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

func outcomeLabel(o ingest.Outcome) string {
	switch o.Code {
	case "":
		return "unknown"
	default:
		return "failed_" + string(o.Code)
	}
}
