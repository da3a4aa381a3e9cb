package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	metricsiface "github.com/weisyn/memwatch/pkg/interfaces/infrastructure/metrics"
	"github.com/weisyn/memwatch/pkg/types"
)

func TestRecorder(t *testing.T) {
	r := NewRecorder()

	r.ObserveTargetMemory("tab-1", 2048)
	assert.Equal(t, 2048.0, testutil.ToFloat64(r.targetMemory.WithLabelValues("tab-1")))
	r.ForgetTarget("tab-1")
	assert.Equal(t, 0, testutil.CollectAndCount(r.targetMemory))

	r.ObservePressure(types.SystemPressureSnapshot{FreeBytes: 10, PercentUsed: 91, PressureLevel: types.PressureCritical})
	assert.Equal(t, 3.0, testutil.ToFloat64(r.pressureLevel))
	assert.Equal(t, 91.0, testutil.ToFloat64(r.systemPercent))

	r.ObserveRemediation(types.RemediationEvent{Action: types.ActionReload, Reason: types.ReasonMemoryLimit, MemorySavedBytes: 100})
	r.ObserveRemediation(types.RemediationEvent{Action: types.ActionReload, Reason: types.ReasonMemoryLimit, Error: "gone"})
	assert.Equal(t, 1.0, testutil.ToFloat64(r.remediations.WithLabelValues("reload", "memory_limit", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.remediations.WithLabelValues("reload", "memory_limit", "failed")))
	assert.Equal(t, 100.0, testutil.ToFloat64(r.bytesSaved))

	r.ObserveLeak(types.LeakPattern{Type: types.LeakSawtooth})
	assert.Equal(t, 1.0, testutil.ToFloat64(r.leaksTotal.WithLabelValues("sawtooth")))

	r.ObserveAnomaly(types.PerformanceAnomaly{Type: types.AnomalyLowFPS, Severity: types.SeverityHigh})
	assert.Equal(t, 1.0, testutil.ToFloat64(r.anomaliesTotal.WithLabelValues("low_fps", "high")))

	r.ObserveTick("memory-telemetry", 20*time.Millisecond)
	assert.Equal(t, 1, testutil.CollectAndCount(r.tickDuration))
}

func TestFootprintCollector(t *testing.T) {
	r := NewRecorder()
	require.NoError(t, r.RegisterFootprint(func() []metricsiface.ModuleMemoryStats {
		return []metricsiface.ModuleMemoryStats{{Module: "telemetry.store", Layer: "core", Objects: 2, ApproxBytes: 4096, QueueLength: 60}}
	}))

	expected := `
# HELP memwatch_self_approx_bytes Approximate bytes held by a memwatch component
# TYPE memwatch_self_approx_bytes gauge
memwatch_self_approx_bytes{layer="core",module="telemetry.store"} 4096
`
	err := testutil.GatherAndCompare(r.Registry(), strings.NewReader(expected), "memwatch_self_approx_bytes")
	assert.NoError(t, err)
}
