// Package diagnostics 性能采样、异常检测、报告生成与诊断导出
package diagnostics

import (
	"errors"
	"time"
)

const mib = 1 << 20

// Config 性能监控与诊断导出配置
type Config struct {
	// Interval 采样间隔，默认 30s
	Interval time.Duration `json:"interval"`
	// SnapshotCapacity 快照环容量
	SnapshotCapacity int `json:"snapshot_capacity"`
	// AnomalyCapacity 异常环容量，默认 1000
	AnomalyCapacity int `json:"anomaly_capacity"`
	// QueryTimeout 单次目标查询超时
	QueryTimeout time.Duration `json:"query_timeout"`

	// 超过（帧率为低于）以下阈值记为异常
	CPUThresholdPercent    float64       `json:"cpu_threshold_percent"`    // 目标 CPU 之和
	MemoryThresholdPercent float64       `json:"memory_threshold_percent"` // 系统内存使用率
	FPSThreshold           float64       `json:"fps_threshold"`            // 平均帧率
	LagThreshold           time.Duration `json:"lag_threshold"`            // 调度延迟

	// 报告中的堆泄漏判定
	HeapLeakMinSamples       int     `json:"heap_leak_min_samples"`
	HeapLeakMinRSquared      float64 `json:"heap_leak_min_r_squared"`
	HeapLeakFloorBytesPerMin float64 `json:"heap_leak_floor_bytes_per_min"`

	// ExportDir 导出目录，空表示系统临时目录
	ExportDir string `json:"export_dir"`
	// CompressExport 导出时使用 snappy 压缩
	CompressExport bool `json:"compress_export"`
}

// DefaultConfig 默认配置
func DefaultConfig() Config {
	return Config{
		Interval:                 30 * time.Second,
		SnapshotCapacity:         120,
		AnomalyCapacity:          1000,
		QueryTimeout:             2 * time.Second,
		CPUThresholdPercent:      80,
		MemoryThresholdPercent:   85,
		FPSThreshold:             30,
		LagThreshold:             100 * time.Millisecond,
		HeapLeakMinSamples:       10,
		HeapLeakMinRSquared:      0.7,
		HeapLeakFloorBytesPerMin: 1 * mib,
	}
}

// Validate 校验配置
func (c Config) Validate() error {
	if c.Interval <= 0 {
		return errors.New("diagnostics: interval must be positive")
	}
	if c.SnapshotCapacity <= 0 || c.AnomalyCapacity <= 0 {
		return errors.New("diagnostics: capacities must be positive")
	}
	if c.QueryTimeout <= 0 {
		return errors.New("diagnostics: query timeout must be positive")
	}
	if c.CPUThresholdPercent <= 0 || c.MemoryThresholdPercent <= 0 || c.MemoryThresholdPercent >= 100 {
		return errors.New("diagnostics: cpu/memory thresholds out of range")
	}
	if c.FPSThreshold <= 0 || c.LagThreshold <= 0 {
		return errors.New("diagnostics: fps/lag thresholds must be positive")
	}
	if c.HeapLeakMinSamples < 2 {
		return errors.New("diagnostics: heap leak detection needs at least 2 samples")
	}
	return nil
}
