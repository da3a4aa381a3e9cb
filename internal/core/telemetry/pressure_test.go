package telemetry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/weisyn/memwatch/pkg/types"
)

func TestComputePressure(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		total uint64
		free  uint64
		want  types.PressureLevel
	}{
		{"4GB剩余200MB为critical", 4 * gib, 200 * mib, types.PressureCritical},
		{"4GB剩余2GB为low", 4 * gib, 2 * gib, types.PressureLow},
		{"4GB剩余450MB为high", 4 * gib, 450 * mib, types.PressureHigh},
		{"4GB剩余900MB为medium", 4 * gib, 900 * mib, types.PressureMedium},
		{"8GB剩余3GB为low", 8 * gib, 3 * gib, types.PressureLow},
		{"8GB剩余1.5GB为medium", 8 * gib, 1536 * mib, types.PressureMedium},
		{"8GB剩余400MB为critical", 8 * gib, 400 * mib, types.PressureCritical},
		{"16GB剩余3GB为medium", 16 * gib, 3 * gib, types.PressureMedium},
		{"16GB剩余1.5GB为high", 16 * gib, 1536 * mib, types.PressureHigh},
		{"32GB剩余800MB为critical", 32 * gib, 800 * mib, types.PressureCritical},
		{"32GB剩余8GB为low", 32 * gib, 8 * gib, types.PressureLow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := ComputePressure(at, tt.total, tt.free)
			assert.Equal(t, tt.want, snap.PressureLevel)
			assert.Equal(t, at, snap.Timestamp)
		})
	}

	t.Run("占用百分比", func(t *testing.T) {
		snap := ComputePressure(at, 4*gib, 1*gib)
		assert.InDelta(t, 75.0, snap.PercentUsed, 1e-9)
	})

	t.Run("总内存未知", func(t *testing.T) {
		snap := ComputePressure(at, 0, 0)
		assert.Equal(t, types.PressureLow, snap.PressureLevel)
		assert.Zero(t, snap.PercentUsed)
	})

	t.Run("剩余大于总量时截断", func(t *testing.T) {
		snap := ComputePressure(at, 4*gib, 5*gib)
		assert.Equal(t, uint64(4*gib), snap.FreeBytes)
		assert.Zero(t, snap.PercentUsed)
	})
}

func TestIntervalFor(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 10*time.Second, cfg.IntervalFor(8*gib))
	assert.Equal(t, 10*time.Second, cfg.IntervalFor(4*gib))
	assert.Equal(t, 30*time.Second, cfg.IntervalFor(16*gib))

	cfg.Interval = 5 * time.Second
	assert.Equal(t, 5*time.Second, cfg.IntervalFor(16*gib))

	assert.NoError(t, DefaultConfig().Validate())
	bad := DefaultConfig()
	bad.SampleCapacity = 0
	assert.Error(t, bad.Validate())
}
