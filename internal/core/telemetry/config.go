package telemetry

import (
	"fmt"
	"time"
)

const (
	gib = 1 << 30
	mib = 1 << 20
)

// Config 采集配置
type Config struct {
	// Interval 采样间隔，0 表示按系统总内存推导
	Interval time.Duration `json:"interval"`
	// SmallMemoryInterval 总内存不超过 SmallMemoryBytes 时的间隔
	SmallMemoryInterval time.Duration `json:"small_memory_interval"`
	// LargeMemoryInterval 总内存更大时的间隔
	LargeMemoryInterval time.Duration `json:"large_memory_interval"`
	SmallMemoryBytes    uint64        `json:"small_memory_bytes"`

	// SampleCapacity 每个目标保留的样本数
	SampleCapacity int `json:"sample_capacity"`
	// PressureCapacity 系统压力历史容量
	PressureCapacity int `json:"pressure_capacity"`
	// PressurePersistTicks 高压连续多少次采样视为持续高压，critical 立即上报
	PressurePersistTicks int `json:"pressure_persist_ticks"`
	// QueryTimeout 单次读取目标内存的超时
	QueryTimeout time.Duration `json:"query_timeout"`
}

// DefaultConfig 默认配置
func DefaultConfig() Config {
	return Config{
		SmallMemoryInterval:  10 * time.Second,
		LargeMemoryInterval:  30 * time.Second,
		SmallMemoryBytes:     8 * gib,
		SampleCapacity:       60,
		PressureCapacity:     720,
		PressurePersistTicks: 2,
		QueryTimeout:         2 * time.Second,
	}
}

// IntervalFor 按系统总内存返回采样间隔，内存小的机器采样更密
func (c Config) IntervalFor(totalBytes uint64) time.Duration {
	if c.Interval > 0 {
		return c.Interval
	}
	if totalBytes <= c.SmallMemoryBytes {
		return c.SmallMemoryInterval
	}
	return c.LargeMemoryInterval
}

// Validate 校验配置
func (c Config) Validate() error {
	switch {
	case c.Interval < 0:
		return fmt.Errorf("interval 不能为负: %s", c.Interval)
	case c.Interval == 0 && (c.SmallMemoryInterval <= 0 || c.LargeMemoryInterval <= 0):
		return fmt.Errorf("未指定 interval 时分档间隔必须为正数")
	case c.SampleCapacity < 1:
		return fmt.Errorf("sample_capacity 至少为 1: %d", c.SampleCapacity)
	case c.PressureCapacity < 1:
		return fmt.Errorf("pressure_capacity 至少为 1: %d", c.PressureCapacity)
	case c.PressurePersistTicks < 1:
		return fmt.Errorf("pressure_persist_ticks 至少为 1: %d", c.PressurePersistTicks)
	case c.QueryTimeout <= 0:
		return fmt.Errorf("query_timeout 必须为正数: %s", c.QueryTimeout)
	}
	return nil
}
