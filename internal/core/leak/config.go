package leak

import "fmt"

const mib = 1 << 20

// Config 分类器阈值
//
// 这些阈值都是经验值，全部可配置。
type Config struct {
	// MinSamples 参与分类的最少样本数，低于此值不分类
	MinSamples int `json:"min_samples"`
	// ConfidenceThreshold 检测器置信度需超过该值才上报
	ConfidenceThreshold float64 `json:"confidence_threshold"`
	// LeakFloorBytesPerMinute 增长速率下限，低于此值不视为泄漏
	LeakFloorBytesPerMinute float64 `json:"leak_floor_bytes_per_minute"`

	// RecentWindow 快速增长检测的近期增量个数
	RecentWindow int `json:"recent_window"`
	// RapidMultiplier 近期平均正增量超过整体的倍数
	RapidMultiplier float64 `json:"rapid_multiplier"`

	// SawtoothCycleRatio 实际周期数至少达到期望周期数的比例
	SawtoothCycleRatio float64 `json:"sawtooth_cycle_ratio"`
	// SawtoothPeriod 期望周期长度（样本数），期望周期数 = 窗口长度 / 周期
	SawtoothPeriod int `json:"sawtooth_period"`

	// PlateauRatio 峰值后均值至少为峰值前均值的倍数
	PlateauRatio float64 `json:"plateau_ratio"`
	// PlateauMaxCV 峰值后样本变异系数上限
	PlateauMaxCV float64 `json:"plateau_max_cv"`
	// PlateauMinTail 峰值后（含峰值）至少需要的样本数
	PlateauMinTail int `json:"plateau_min_tail"`
}

// DefaultConfig 默认阈值
func DefaultConfig() Config {
	return Config{
		MinSamples:              10,
		ConfidenceThreshold:     0.7,
		LeakFloorBytesPerMinute: 1 * mib,
		RecentWindow:            5,
		RapidMultiplier:         3,
		SawtoothCycleRatio:      0.7,
		SawtoothPeriod:          4,
		PlateauRatio:            1.5,
		PlateauMaxCV:            0.1,
		PlateauMinTail:          3,
	}
}

// Validate 校验阈值
func (c Config) Validate() error {
	switch {
	case c.MinSamples < 3:
		return fmt.Errorf("min_samples 至少为 3: %d", c.MinSamples)
	case c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1:
		return fmt.Errorf("confidence_threshold 必须在 [0,1]: %v", c.ConfidenceThreshold)
	case c.LeakFloorBytesPerMinute < 0:
		return fmt.Errorf("leak_floor 不能为负: %v", c.LeakFloorBytesPerMinute)
	case c.RecentWindow < 1 || c.RecentWindow >= c.MinSamples:
		return fmt.Errorf("recent_window 必须在 [1, min_samples): %d", c.RecentWindow)
	case c.RapidMultiplier <= 1:
		return fmt.Errorf("rapid_multiplier 必须大于 1: %v", c.RapidMultiplier)
	case c.SawtoothPeriod < 2:
		return fmt.Errorf("sawtooth_period 至少为 2: %d", c.SawtoothPeriod)
	case c.SawtoothCycleRatio <= 0:
		return fmt.Errorf("sawtooth_cycle_ratio 必须为正: %v", c.SawtoothCycleRatio)
	case c.PlateauRatio <= 1:
		return fmt.Errorf("plateau_ratio 必须大于 1: %v", c.PlateauRatio)
	case c.PlateauMaxCV <= 0 || c.PlateauMinTail < 1:
		return fmt.Errorf("plateau 参数非法: cv=%v tail=%d", c.PlateauMaxCV, c.PlateauMinTail)
	}
	return nil
}
