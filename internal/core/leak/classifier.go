// Package leak 内存泄漏模式分类
//
// Classifier 是样本窗口的纯函数：同一窗口总得到同一结果，不持有任何目标状态。
// 四个检测器按优先级依次评估（持续增长、快速增长、锯齿、平台），
// 第一个达到置信度阈值的检测器胜出，每次只上报一种模式。
package leak

import (
	"time"

	"github.com/weisyn/memwatch/pkg/types"
)

// Detection 单个检测器的评估结果
type Detection struct {
	Type                     types.LeakType `json:"type"`
	Matched                  bool           `json:"matched"` // 形状条件是否满足（不含置信度阈值）
	Confidence               float64        `json:"confidence"`
	GrowthRateBytesPerMinute float64        `json:"growth_rate_bytes_per_minute"`
}

// Classifier 泄漏模式分类器
type Classifier struct {
	cfg Config
}

// NewClassifier 创建分类器
func NewClassifier(cfg Config) *Classifier {
	return &Classifier{cfg: cfg}
}

// Config 返回当前阈值
func (c *Classifier) Config() Config { return c.cfg }

// Classify 对样本窗口分类；样本不足或没有检测器命中时返回 false
func (c *Classifier) Classify(targetID string, samples []types.MemorySample, now time.Time) (types.LeakPattern, bool) {
	for _, d := range c.Evaluate(samples) {
		if d.Matched && d.Confidence >= c.cfg.ConfidenceThreshold {
			return types.LeakPattern{
				TargetID:                 targetID,
				Type:                     d.Type,
				Confidence:               d.Confidence,
				GrowthRateBytesPerMinute: d.GrowthRateBytesPerMinute,
				DetectedAt:               now,
				SampleWindow:             len(samples),
			}, true
		}
	}
	return types.LeakPattern{}, false
}

// Evaluate 按优先级返回所有检测器的结果；样本不足时返回 nil
func (c *Classifier) Evaluate(samples []types.MemorySample) []Detection {
	if len(samples) < c.cfg.MinSamples {
		return nil
	}
	perMinute := SamplesPerMinute(samples)
	if perMinute == 0 {
		return nil
	}
	ys := memoryValues(samples)

	return []Detection{
		c.steadyGrowth(ys, perMinute),
		c.rapidGrowth(ys, perMinute),
		c.sawtooth(ys, samples),
		c.plateau(ys, perMinute),
	}
}

// steadyGrowth 线性回归，置信度为 R²
func (c *Classifier) steadyGrowth(ys []float64, perMinute float64) Detection {
	fit := LinearRegression(ys)
	rate := fit.Slope * perMinute
	return Detection{
		Type:                     types.LeakSteadyGrowth,
		Matched:                  rate > c.cfg.LeakFloorBytesPerMinute,
		Confidence:               fit.RSquared,
		GrowthRateBytesPerMinute: rate,
	}
}

// rapidGrowth 近期平均正增量 vs 整体平均正增量
func (c *Classifier) rapidGrowth(ys []float64, perMinute float64) Detection {
	d := Detection{Type: types.LeakRapidGrowth}

	positive := make([]float64, len(ys)-1)
	for i := 1; i < len(ys); i++ {
		if delta := ys[i] - ys[i-1]; delta > 0 {
			positive[i-1] = delta
		}
	}
	overall := mean(positive)
	if overall <= 0 {
		return d
	}
	recentN := c.cfg.RecentWindow
	if recentN > len(positive) {
		recentN = len(positive)
	}
	recent := mean(positive[len(positive)-recentN:])
	threshold := c.cfg.RapidMultiplier * overall

	d.GrowthRateBytesPerMinute = recent * perMinute
	d.Confidence = clamp01(recent / threshold)
	d.Matched = recent > threshold && d.GrowthRateBytesPerMinute > c.cfg.LeakFloorBytesPerMinute
	return d
}

// sawtooth 局部极值计数；净增长仍需超过泄漏下限
func (c *Classifier) sawtooth(ys []float64, samples []types.MemorySample) Detection {
	d := Detection{Type: types.LeakSawtooth}

	extrema := 0
	for i := 1; i < len(ys)-1; i++ {
		isMax := ys[i] > ys[i-1] && ys[i] > ys[i+1]
		isMin := ys[i] < ys[i-1] && ys[i] < ys[i+1]
		if isMax || isMin {
			extrema++
		}
	}
	cycles := float64(extrema) / 2
	expected := float64(len(ys)) / float64(c.cfg.SawtoothPeriod)

	span := samples[len(samples)-1].Timestamp.Sub(samples[0].Timestamp).Minutes()
	if span > 0 {
		d.GrowthRateBytesPerMinute = (ys[len(ys)-1] - ys[0]) / span
	}
	d.Confidence = clamp01(cycles / expected)
	d.Matched = cycles >= c.cfg.SawtoothCycleRatio*expected && d.GrowthRateBytesPerMinute > c.cfg.LeakFloorBytesPerMinute
	return d
}

// plateau 跃升到高位后保持稳定；增长率取峰值后片段的斜率
func (c *Classifier) plateau(ys []float64, perMinute float64) Detection {
	d := Detection{Type: types.LeakPlateau}

	peak := 0
	for i, y := range ys {
		if y > ys[peak] {
			peak = i
		}
	}
	if peak == 0 || len(ys)-peak < c.cfg.PlateauMinTail {
		return d
	}

	pre, post := ys[:peak], ys[peak:]
	preMean, postMean := mean(pre), mean(post)
	if preMean <= 0 {
		return d
	}
	cv := coefficientOfVariation(post)

	d.GrowthRateBytesPerMinute = LinearRegression(post).Slope * perMinute
	d.Confidence = clamp01(1 - cv)
	d.Matched = postMean >= c.cfg.PlateauRatio*preMean && cv < c.cfg.PlateauMaxCV
	return d
}
