package remediation

import (
	"math"
	"time"

	"github.com/weisyn/memwatch/pkg/types"
)

// maxPrediction 超过该距离的预测没有意义，同时避免 time.Duration 溢出
const maxPrediction = 365 * 24 * time.Hour

// Input 一次决策所需的目标状态
type Input struct {
	Now                      time.Time
	CurrentBytes             uint64
	GrowthRateBytesPerMinute float64
	PredictedExhaustionAt    *time.Time
	LastRemediationAt        time.Time
	Pressure                 types.SystemPressureSnapshot
}

// Decision 决策结果
type Decision struct {
	Trigger bool
	Reason  types.RemediationReason // 命中的原因，冷却中被抑制时也会给出
	State   types.DecisionState
	// Suppressed 命中原因但仍在冷却期
	Suppressed bool
}

// Engine 纯函数式的决策引擎
type Engine struct {
	cfg Config
}

// NewEngine 创建决策引擎
func NewEngine(cfg Config) *Engine { return &Engine{cfg: cfg} }

// Config 当前配置
func (e *Engine) Config() Config { return e.cfg }

// Decide 按 memory_limit、growth_rate、predicted_exhaustion、pressure 的顺序判定，冷却期内一律不触发
func (e *Engine) Decide(in Input) Decision {
	reason := e.reason(in)
	cooling := e.InCooldown(in.LastRemediationAt, in.Now)

	switch {
	case reason == "" && cooling:
		return Decision{State: types.DecisionPendingCooldown}
	case reason == "":
		return Decision{State: types.DecisionIdle}
	case cooling:
		return Decision{Reason: reason, State: types.DecisionPendingCooldown, Suppressed: true}
	default:
		return Decision{Trigger: true, Reason: reason, State: types.DecisionTriggered}
	}
}

func (e *Engine) reason(in Input) types.RemediationReason {
	switch {
	case in.CurrentBytes >= e.cfg.CriticalBytes:
		return types.ReasonMemoryLimit
	case in.CurrentBytes >= e.cfg.WarningBytes && in.GrowthRateBytesPerMinute > e.cfg.GrowthFloorBytesPerMinute:
		return types.ReasonGrowthRate
	case in.PredictedExhaustionAt != nil && in.PredictedExhaustionAt.After(in.Now) &&
		in.PredictedExhaustionAt.Sub(in.Now) <= e.cfg.ExhaustionHorizon:
		return types.ReasonPredictedExhaustion
	case in.Pressure.PressureLevel == types.PressureCritical && in.CurrentBytes >= e.cfg.WarningBytes:
		return types.ReasonPressure
	default:
		return ""
	}
}

// InCooldown 距上次重载是否不足最小冷却时间
func (e *Engine) InCooldown(last, now time.Time) bool {
	if last.IsZero() {
		return false
	}
	return now.Sub(last) < e.cfg.Cooldown
}

// PredictExhaustion 线性外推到达绝对上限的时间
// 增长速率非正、已超过上限或结果不在未来时返回 nil
func (e *Engine) PredictExhaustion(now time.Time, currentBytes uint64, rateBytesPerMinute float64) *time.Time {
	if !(rateBytesPerMinute > 0) || math.IsInf(rateBytesPerMinute, 0) {
		return nil
	}
	if currentBytes >= e.cfg.CriticalBytes {
		return nil
	}
	minutes := float64(e.cfg.CriticalBytes-currentBytes) / rateBytesPerMinute
	if minutes*float64(time.Minute) > float64(maxPrediction) {
		return nil
	}
	at := now.Add(time.Duration(minutes * float64(time.Minute)))
	if !at.After(now) {
		return nil
	}
	return &at
}
