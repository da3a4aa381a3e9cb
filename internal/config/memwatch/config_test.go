package memwatch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weisyn/memwatch/internal/core/remediation"
	"github.com/weisyn/memwatch/internal/core/telemetry"
	"github.com/weisyn/memwatch/pkg/types"
)

func TestNew(t *testing.T) {
	t.Run("默认配置", func(t *testing.T) {
		cfg := New(nil)
		opts := cfg.GetOptions()
		assert.Equal(t, telemetry.DefaultConfig(), opts.Telemetry)
		assert.Equal(t, remediation.DefaultConfig(), opts.Remediation)
		assert.Equal(t, 1000, opts.Diagnostics.AnomalyCapacity)
		assert.NotEmpty(t, opts.Diagnostics.ExportDir)
		assert.Empty(t, opts.DisabledFeatures)
		assert.NoError(t, cfg.Validate())
	})

	t.Run("只覆盖出现的字段", func(t *testing.T) {
		cfg := New(&types.UserMemwatchConfig{
			Telemetry: &types.UserTelemetryConfig{IntervalSeconds: types.IntPtr(5)},
			Leak:      &types.UserLeakConfig{LeakFloorMBPerMin: types.Float64Ptr(2)},
			Remediation: &types.UserRemediationConfig{
				CriticalMB:      types.UInt64Ptr(2048),
				WarningMB:       types.UInt64Ptr(1536),
				CooldownSeconds: types.IntPtr(120),
			},
			Diagnostics: &types.UserDiagnosticsConfig{
				LagThresholdMillis: types.IntPtr(50),
				CompressExport:     types.BoolPtr(true),
			},
			DisabledFeatures: []string{"idle-cleanup"},
		})
		opts := cfg.GetOptions()

		assert.Equal(t, 5*time.Second, opts.Telemetry.Interval)
		assert.Equal(t, 60, opts.Telemetry.SampleCapacity)
		assert.Equal(t, float64(2<<20), opts.Leak.LeakFloorBytesPerMinute)
		assert.Equal(t, 10, opts.Leak.MinSamples)
		assert.Equal(t, uint64(2048<<20), opts.Remediation.CriticalBytes)
		assert.Equal(t, uint64(1536<<20), opts.Remediation.WarningBytes)
		assert.Equal(t, 2*time.Minute, opts.Remediation.Cooldown)
		assert.Equal(t, 5*time.Minute, opts.Remediation.IdleCooldown)
		assert.Equal(t, 50*time.Millisecond, opts.Diagnostics.LagThreshold)
		assert.True(t, opts.Diagnostics.CompressExport)
		assert.Equal(t, []string{"idle-cleanup"}, opts.DisabledFeatures)
		require.NoError(t, cfg.Validate())
	})

	t.Run("非法组合汇总报错", func(t *testing.T) {
		cfg := New(&types.UserMemwatchConfig{
			Remediation: &types.UserRemediationConfig{WarningMB: types.UInt64Ptr(5000)},
			Leak:        &types.UserLeakConfig{ConfidenceThreshold: types.Float64Ptr(2)},
		})
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "remediation")
		assert.Contains(t, err.Error(), "leak")
	})
}
