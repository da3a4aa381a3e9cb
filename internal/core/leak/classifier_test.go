package leak

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weisyn/memwatch/pkg/types"
)

var t0 = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

// series 以 30s 间隔构造样本
func series(values ...float64) []types.MemorySample {
	out := make([]types.MemorySample, len(values))
	for i, v := range values {
		out[i] = types.MemorySample{Timestamp: t0.Add(time.Duration(i) * 30 * time.Second), MemoryBytes: uint64(v)}
		if i > 0 {
			out[i].DeltaFromPrevious = int64(v - values[i-1])
		}
	}
	return out
}

func linear(n int, start, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + step*float64(i)
	}
	return out
}

func TestClassifySparseWindow(t *testing.T) {
	c := NewClassifier(DefaultConfig())
	for n := 0; n < 10; n++ {
		_, ok := c.Classify("tab", series(linear(n, 100*mib, 50*mib)...), t0)
		assert.False(t, ok, "少于 %d 个样本不应分类 (n=%d)", 10, n)
	}
	assert.Nil(t, c.Evaluate(series(linear(9, 100*mib, 5*mib)...)))
}

func TestClassifyFlatSeries(t *testing.T) {
	c := NewClassifier(DefaultConfig())
	for _, n := range []int{10, 30, 60, 200} {
		_, ok := c.Classify("tab", series(linear(n, 300*mib, 0)...), t0)
		assert.False(t, ok, "平坦序列不应命中任何模式 (n=%d)", n)
	}
}

func TestClassifySteadyGrowth(t *testing.T) {
	c := NewClassifier(DefaultConfig())

	p, ok := c.Classify("tab-1", series(linear(20, 100*mib, 5*mib)...), t0)
	require.True(t, ok)
	assert.Equal(t, types.LeakSteadyGrowth, p.Type)
	assert.GreaterOrEqual(t, p.Confidence, 0.8)
	assert.InDelta(t, 10*mib, p.GrowthRateBytesPerMinute, 0.01*mib)
	assert.Equal(t, "tab-1", p.TargetID)
	assert.Equal(t, 20, p.SampleWindow)
	assert.Equal(t, t0, p.DetectedAt)
}

func TestClassifySlowGrowthBelowFloor(t *testing.T) {
	c := NewClassifier(DefaultConfig())
	// 0.25MB/30s = 0.5MB/min，低于 1MB/min 下限
	_, ok := c.Classify("tab", series(linear(30, 100*mib, 0.25*mib)...), t0)
	assert.False(t, ok)
}

func TestClassifyRapidGrowth(t *testing.T) {
	c := NewClassifier(DefaultConfig())

	values := linear(15, 500*mib, 0.2*mib)
	for i := 0; i < 5; i++ {
		values = append(values, values[len(values)-1]+40*mib)
	}

	p, ok := c.Classify("tab", series(values...), t0)
	require.True(t, ok)
	assert.Equal(t, types.LeakRapidGrowth, p.Type)
	assert.Equal(t, 1.0, p.Confidence)
	assert.InDelta(t, 80*mib, p.GrowthRateBytesPerMinute, 0.01*mib)
}

func TestClassifySawtooth(t *testing.T) {
	c := NewClassifier(DefaultConfig())

	values := make([]float64, 20)
	for i := range values {
		values[i] = 400*mib + 5*mib*float64(i)
		if i%2 == 1 {
			values[i] += 60 * mib
		}
	}

	p, ok := c.Classify("tab", series(values...), t0)
	require.True(t, ok)
	assert.Equal(t, types.LeakSawtooth, p.Type)
	assert.Greater(t, p.GrowthRateBytesPerMinute, float64(mib))
}

func TestClassifySawtoothWithoutNetGrowth(t *testing.T) {
	c := NewClassifier(DefaultConfig())

	values := make([]float64, 20)
	for i := range values {
		values[i] = 400 * mib
		if i%2 == 1 {
			values[i] += 60 * mib
		}
	}
	values[len(values)-1] = 400 * mib

	_, ok := c.Classify("tab", series(values...), t0)
	assert.False(t, ok, "周期回收且底部不抬升是正常 GC 行为")
}

func TestClassifyPlateau(t *testing.T) {
	c := NewClassifier(DefaultConfig())

	values := linear(3, 400*mib, 0)
	values = append(values, linear(17, 1000*mib, -1*mib)...)

	p, ok := c.Classify("tab", series(values...), t0)
	require.True(t, ok)
	assert.Equal(t, types.LeakPlateau, p.Type)
	assert.Greater(t, p.Confidence, 0.9)
	assert.Less(t, p.GrowthRateBytesPerMinute, 0.0, "平台期后略有回落")
}

func TestClassifyScenarioA(t *testing.T) {
	c := NewClassifier(DefaultConfig())

	mb := []float64{100, 110, 125, 140, 160, 175, 190, 205, 220, 235}
	values := make([]float64, len(mb))
	for i, v := range mb {
		values[i] = v * mib
	}

	p, ok := c.Classify("tab", series(values...), t0)
	require.True(t, ok)
	assert.Equal(t, types.LeakSteadyGrowth, p.Type)
	assert.InDelta(t, 30*mib, p.GrowthRateBytesPerMinute, 2*mib)
}

func TestClassifierIsPure(t *testing.T) {
	c := NewClassifier(DefaultConfig())
	samples := series(linear(20, 100*mib, 5*mib)...)
	before := append([]types.MemorySample(nil), samples...)

	p1, ok1 := c.Classify("tab", samples, t0)
	p2, ok2 := c.Classify("tab", samples, t0)
	assert.Equal(t, ok1, ok2)
	assert.Equal(t, p1, p2)
	assert.Equal(t, before, samples, "分类不修改输入")
}

func TestClassifyTunableThreshold(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LeakFloorBytesPerMinute = 20 * mib
	c := NewClassifier(cfg)

	_, ok := c.Classify("tab", series(linear(20, 100*mib, 5*mib)...), t0)
	assert.False(t, ok, "10MB/min 低于调高后的下限")
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	bad := DefaultConfig()
	bad.RecentWindow = 20
	assert.Error(t, bad.Validate())

	bad = DefaultConfig()
	bad.ConfidenceThreshold = 1.5
	assert.Error(t, bad.Validate())
}

func TestEstimateGrowthRate(t *testing.T) {
	assert.Zero(t, EstimateGrowthRate(nil))
	assert.Zero(t, EstimateGrowthRate(series(100*mib)))
	assert.InDelta(t, 10*mib, EstimateGrowthRate(series(linear(5, 100*mib, 5*mib)...)), 1)
	assert.InDelta(t, -4*mib, EstimateGrowthRate(series(linear(5, 100*mib, -2*mib)...)), 1)

	// 相同时间戳无法推算频率
	same := []types.MemorySample{{Timestamp: t0, MemoryBytes: 1}, {Timestamp: t0, MemoryBytes: 2}}
	assert.Zero(t, EstimateGrowthRate(same))
}

func TestLinearRegression(t *testing.T) {
	fit := LinearRegression([]float64{1, 3, 5, 7})
	assert.InDelta(t, 2, fit.Slope, 1e-9)
	assert.InDelta(t, 1, fit.Intercept, 1e-9)
	assert.InDelta(t, 1, fit.RSquared, 1e-9)

	flat := LinearRegression([]float64{4, 4, 4})
	assert.Zero(t, flat.Slope)
	assert.Zero(t, flat.RSquared)
}
