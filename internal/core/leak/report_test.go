package leak

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/weisyn/memwatch/pkg/types"
)

func TestFormatLeaks(t *testing.T) {
	assert.Contains(t, FormatLeaks(nil), "未检测到泄漏")

	out := FormatLeaks([]types.LeakPattern{{
		TargetID:                 "tab",
		Type:                     types.LeakSteadyGrowth,
		Confidence:               0.92,
		GrowthRateBytesPerMinute: 30 * mib,
		DetectedAt:               t0,
		SampleWindow:             12,
	}})
	assert.Contains(t, out, "tab: steady_growth（置信度 92%，12 个样本）")
	assert.Contains(t, out, "30 MiB/分钟")
	assert.Contains(t, out, "2024-03-01 09:00:00")
}
