package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"pricecollector/internal/apperror"
	"pricecollector/internal/ingest"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// go test -v --run TestRecord
func TestRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "collector.prom")
	m := New(path)

	start := time.Unix(1704103260, 0)
	require.NoError(t, m.Record(ingest.Outcome{
		State:    ingest.StateDone,
		Started:  start,
		Finished: start.Add(2 * time.Second),
		Missing:  []string{"GONE"},
		Columns:  3,
		Rows:     10,
	}))
	require.NoError(t, m.Record(ingest.Outcome{
		State:    ingest.StateFailed,
		Code:     apperror.Provider,
		Started:  start,
		Finished: start.Add(time.Second),
	}))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.runsTotal.WithLabelValues("done")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runsTotal.WithLabelValues("failed_PROVIDER")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.missing))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.tableColumns))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.lastDuration))
	assert.Equal(t, 1704103262.0, testutil.ToFloat64(m.lastSuccess))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(raw), `collector_runs_total{outcome="failed_PROVIDER"} 1`))
}

// go test -v --run TestRecordWithoutTextfile
func TestRecordWithoutTextfile(t *testing.T) {
	m := New("")
	require.NoError(t, m.Record(ingest.Outcome{State: ingest.StateDone, Warnings: []string{"mirror: down"}}))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.mirrorFailure))
}
