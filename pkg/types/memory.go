package types

import "time"

// MemorySample 单次内存采样
type MemorySample struct {
	Timestamp         time.Time `json:"timestamp"`
	MemoryBytes       uint64    `json:"memory_bytes"`
	DeltaFromPrevious int64     `json:"delta_from_previous"` // 首个样本为 0
}

// LeakType 泄漏模式类型
type LeakType string

const (
	LeakSteadyGrowth LeakType = "steady_growth" // 持续线性增长
	LeakRapidGrowth  LeakType = "rapid_growth"  // 近期增长显著快于整体
	LeakSawtooth     LeakType = "sawtooth"      // 周期回收但底部抬升
	LeakPlateau      LeakType = "plateau"       // 跃升后停留在高位
)

// LeakPattern 分类器输出的泄漏模式
type LeakPattern struct {
	TargetID                 string    `json:"target_id"`
	Type                     LeakType  `json:"type"`
	Confidence               float64   `json:"confidence"` // [0,1]
	GrowthRateBytesPerMinute float64   `json:"growth_rate_bytes_per_minute"`
	DetectedAt               time.Time `json:"detected_at"`
	SampleWindow             int       `json:"sample_window"`
}

// DecisionState 目标的决策状态机状态
type DecisionState string

const (
	DecisionIdle            DecisionState = "idle"
	DecisionPendingCooldown DecisionState = "pending_cooldown"
	DecisionTriggered       DecisionState = "triggered"
)

// RemediationAction 修复动作
type RemediationAction string

const (
	ActionReload RemediationAction = "reload" // 保存恢复状态后重载目标
	ActionPrune  RemediationAction = "prune"  // 轻量清理：离屏内容、空闲连接、GC
)

// RemediationReason 触发修复的原因
type RemediationReason string

const (
	ReasonMemoryLimit         RemediationReason = "memory_limit"
	ReasonGrowthRate          RemediationReason = "growth_rate"
	ReasonPredictedExhaustion RemediationReason = "predicted_exhaustion"
	ReasonIdle                RemediationReason = "idle"
	ReasonSleep               RemediationReason = "sleep"
	ReasonResume              RemediationReason = "resume"
	ReasonPressure            RemediationReason = "pressure"
	ReasonManual              RemediationReason = "manual"
)

// RemediationEvent 一次修复的记录
type RemediationEvent struct {
	ID                string            `json:"id"`
	Timestamp         time.Time         `json:"timestamp"`
	TargetID          string            `json:"target_id"`
	Action            RemediationAction `json:"action"`
	Reason            RemediationReason `json:"reason"`
	MemoryBeforeBytes uint64            `json:"memory_before_bytes"`
	MemoryAfterBytes  uint64            `json:"memory_after_bytes"`
	MemorySavedBytes  uint64            `json:"memory_saved_bytes"`
	Error             string            `json:"error,omitempty"`
}

// Succeeded 动作本身是否成功执行
func (e RemediationEvent) Succeeded() bool { return e.Error == "" }

// PressureLevel 系统内存压力等级
type PressureLevel string

const (
	PressureLow      PressureLevel = "low"
	PressureMedium   PressureLevel = "medium"
	PressureHigh     PressureLevel = "high"
	PressureCritical PressureLevel = "critical"
)

// Rank 返回可比较的等级序号
func (l PressureLevel) Rank() int {
	switch l {
	case PressureMedium:
		return 1
	case PressureHigh:
		return 2
	case PressureCritical:
		return 3
	default:
		return 0
	}
}

// AtLeast 是否不低于给定等级
func (l PressureLevel) AtLeast(other PressureLevel) bool { return l.Rank() >= other.Rank() }

// SystemPressureSnapshot 系统内存压力快照
type SystemPressureSnapshot struct {
	Timestamp     time.Time     `json:"timestamp"`
	TotalBytes    uint64        `json:"total_bytes"`
	FreeBytes     uint64        `json:"free_bytes"`
	PercentUsed   float64       `json:"percent_used"` // 0-100
	PressureLevel PressureLevel `json:"pressure_level"`
}

// FeatureMetrics 功能模块的运行统计
type FeatureMetrics struct {
	Activations     uint64    `json:"activations"`
	LastRunAt       time.Time `json:"last_run_at"`
	TotalBytesSaved uint64    `json:"total_bytes_saved"`
}
