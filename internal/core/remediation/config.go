// Package remediation 决定何时修复目标并执行重载或轻量清理
package remediation

import (
	"fmt"
	"time"
)

const mib = 1 << 20

// Config 决策与执行配置
type Config struct {
	// CriticalBytes 绝对上限，达到即重载
	CriticalBytes uint64 `json:"critical_bytes"`
	// WarningBytes 告警线，配合增长速率或系统压力触发
	WarningBytes uint64 `json:"warning_bytes"`
	// GrowthFloorBytesPerMinute 告警线以上触发重载所需的增长速率
	GrowthFloorBytesPerMinute float64 `json:"growth_floor_bytes_per_minute"`
	// ExhaustionHorizon 预测耗尽时间落在该窗口内即触发
	ExhaustionHorizon time.Duration `json:"exhaustion_horizon"`
	// Cooldown 同一目标两次重载的最小间隔
	Cooldown time.Duration `json:"cooldown"`

	// IdleCooldown 同一目标两次轻量清理的最小间隔
	IdleCooldown time.Duration `json:"idle_cooldown"`
	// IdleThreshold 用户空闲多久后开始清理
	IdleThreshold time.Duration `json:"idle_threshold"`
	// IdleCheckInterval 空闲检查间隔
	IdleCheckInterval time.Duration `json:"idle_check_interval"`

	// SettleDelay 动作后等待多久再测量内存，0 表示立即测量
	SettleDelay time.Duration `json:"settle_delay"`
	// QueryTimeout 单次目标查询或重载的超时
	QueryTimeout time.Duration `json:"query_timeout"`
	// HistoryCapacity 修复历史容量
	HistoryCapacity int `json:"history_capacity"`
	// RecoveryTTL 恢复状态有效期
	RecoveryTTL time.Duration `json:"recovery_ttl"`
}

// DefaultConfig 默认配置
func DefaultConfig() Config {
	return Config{
		CriticalBytes:             3891 * mib, // 3.8GB
		WarningBytes:              3584 * mib, // 3.5GB
		GrowthFloorBytesPerMinute: 10 * mib,
		ExhaustionHorizon:         5 * time.Minute,
		Cooldown:                  10 * time.Minute,
		IdleCooldown:              5 * time.Minute,
		IdleThreshold:             10 * time.Minute,
		IdleCheckInterval:         time.Minute,
		SettleDelay:               3 * time.Second,
		QueryTimeout:              2 * time.Second,
		HistoryCapacity:           100,
		RecoveryTTL:               10 * time.Minute,
	}
}

// Validate 校验配置
func (c Config) Validate() error {
	switch {
	case c.CriticalBytes == 0:
		return fmt.Errorf("critical_bytes 必须为正数")
	case c.WarningBytes > c.CriticalBytes:
		return fmt.Errorf("warning_bytes(%d) 不能大于 critical_bytes(%d)", c.WarningBytes, c.CriticalBytes)
	case c.GrowthFloorBytesPerMinute < 0:
		return fmt.Errorf("growth_floor 不能为负: %v", c.GrowthFloorBytesPerMinute)
	case c.Cooldown < 0 || c.IdleCooldown < 0 || c.ExhaustionHorizon < 0 || c.SettleDelay < 0:
		return fmt.Errorf("时间参数不能为负")
	case c.IdleCheckInterval <= 0:
		return fmt.Errorf("idle_check_interval 必须为正数: %s", c.IdleCheckInterval)
	case c.QueryTimeout <= 0:
		return fmt.Errorf("query_timeout 必须为正数: %s", c.QueryTimeout)
	case c.HistoryCapacity < 1:
		return fmt.Errorf("history_capacity 至少为 1: %d", c.HistoryCapacity)
	case c.RecoveryTTL <= 0:
		return fmt.Errorf("recovery_ttl 必须为正数: %s", c.RecoveryTTL)
	}
	return nil
}
