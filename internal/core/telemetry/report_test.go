package telemetry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/weisyn/memwatch/pkg/types"
)

func TestFormatPressure(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	t.Run("尚未采样", func(t *testing.T) {
		out := FormatPressure(types.SystemPressureSnapshot{}, nil, nil)
		assert.Contains(t, out, "尚未采样")
	})

	t.Run("包含快照历史与目标", func(t *testing.T) {
		cur := ComputePressure(at, 16*gib, 1536*mib)
		history := []types.SystemPressureSnapshot{ComputePressure(at.Add(-time.Minute), 16*gib, 8*gib), cur}
		exhaust := at.Add(5 * time.Minute)
		states := []TargetState{{
			TargetID:                 "tab",
			Samples:                  []types.MemorySample{{Timestamp: at, MemoryBytes: 2 * gib}},
			GrowthRateBytesPerMinute: 30 * mib,
			PredictedExhaustionAt:    &exhaust,
			RemediationCount:         1,
		}}

		out := FormatPressure(cur, history, states)
		assert.Contains(t, out, "压力等级: high")
		assert.Contains(t, out, "1.5 GiB / 16 GiB")
		assert.Contains(t, out, "low       1")
		assert.Contains(t, out, "2.0 GiB")
		assert.Contains(t, out, "+30 MiB/分钟")
		assert.Contains(t, out, "预计 12:05:00 耗尽")
		assert.Contains(t, out, "已修复 1 次")
	})
}
