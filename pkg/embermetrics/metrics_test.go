package embermetrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordCompileIncrementsCounterAndHistogram(t *testing.T) {
	m := New(DefaultConfig())

	m.RecordCompile(true, 10*time.Millisecond)
	m.RecordCompile(false, 20*time.Millisecond)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.compilesTotal.WithLabelValues("ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.compilesTotal.WithLabelValues("error")))
}

func TestRecordCacheLookupSplitsHitsAndMisses(t *testing.T) {
	m := New(DefaultConfig())

	m.RecordCacheLookup(true)
	m.RecordCacheLookup(true)
	m.RecordCacheLookup(false)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.cacheHits))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.cacheMisses))
}

func TestRecordDiagnosticLabelsBySeverity(t *testing.T) {
	m := New(DefaultConfig())

	m.RecordDiagnostic("error")
	m.RecordDiagnostic("warning")
	m.RecordDiagnostic("error")

	assert.Equal(t, float64(2), testutil.ToFloat64(m.compileErrors.WithLabelValues("error")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.compileErrors.WithLabelValues("warning")))
}

func TestRecordWatchRebuildTracksResult(t *testing.T) {
	m := New(DefaultConfig())

	m.RecordWatchRebuild(true)
	m.RecordWatchRebuild(false)
	m.RecordWatchRebuild(false)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.watchRebuilds.WithLabelValues("ok")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.watchRebuilds.WithLabelValues("error")))
}

func TestUpdateRuntimeMetricsSetsNonZeroGoroutineGauge(t *testing.T) {
	m := New(DefaultConfig())
	m.UpdateRuntimeMetrics()

	assert.True(t, testutil.ToFloat64(m.goroutines) > 0)
}

func TestHandlerServesRegisteredMetrics(t *testing.T) {
	m := New(DefaultConfig())
	m.RecordCompile(true, time.Millisecond)

	assert.NotNil(t, m.Handler())
	assert.NotNil(t, m.Registry())
}
