// Package metrics 定义指标记录与自身内存占用上报接口
package metrics

import (
	"time"

	"github.com/weisyn/memwatch/pkg/types"
)

// ModuleMemoryStats 组件自身的内存占用统计
//
// 监控子系统本身也持有样本环、历史记录和缓存，必须证明自己是有界的。
type ModuleMemoryStats struct {
	Module      string `json:"module"`       // 组件名称：telemetry.store / remediation.history ...
	Layer       string `json:"layer"`        // 所属层：core / infrastructure
	Objects     int64  `json:"objects"`      // 主要对象数：目标数、记录数
	ApproxBytes int64  `json:"approx_bytes"` // 估算字节数，关注趋势而非精确值
	CacheItems  int64  `json:"cache_items"`  // 缓存条目（恢复状态缓存等）
	QueueLength int64  `json:"queue_length"` // 环形缓冲中已占用的槽位总数
}

// MemoryReporter 组件自身内存上报接口
type MemoryReporter interface {
	// ModuleName 返回组件名称
	ModuleName() string

	// CollectMemoryStats 返回当前统计，实现必须是只读且快速的
	CollectMemoryStats() ModuleMemoryStats
}

// Recorder 领域指标记录接口，由 Prometheus 实现，测试中使用 Nop 实现
type Recorder interface {
	// ObserveTargetMemory 记录目标最新的进程内存
	ObserveTargetMemory(targetID string, bytes uint64)
	// ForgetTarget 目标销毁后删除其标签序列
	ForgetTarget(targetID string)
	// ObservePressure 记录系统压力快照
	ObservePressure(snapshot types.SystemPressureSnapshot)
	// ObserveLeak 记录检测到的泄漏模式
	ObserveLeak(pattern types.LeakPattern)
	// ObserveRemediation 记录一次修复
	ObserveRemediation(event types.RemediationEvent)
	// ObserveAnomaly 记录一次性能异常
	ObserveAnomaly(anomaly types.PerformanceAnomaly)
	// ObserveTick 记录某功能一次 tick 的耗时
	ObserveTick(feature string, duration time.Duration)
}
