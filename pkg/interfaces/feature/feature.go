// Package feature 定义可独立启停的监控功能接口
package feature

import (
	"context"

	"github.com/weisyn/memwatch/pkg/interfaces/host"
	"github.com/weisyn/memwatch/pkg/types"
)

// Feature 一个后台监控功能
//
// 约定：
//   - Enable 幂等，重复调用不会产生额外的定时器或统计
//   - Disable 停止定时器并释放全部按目标保存的状态
//   - ApplyToTarget 尽力而为，可能在目标尚未完全初始化时调用，错误被吞掉且不重试
type Feature interface {
	// Name 功能名称，作为宿主启停的键
	Name() string
	// Enable 启用功能并启动定时器
	Enable(ctx context.Context) error
	// Disable 停用功能
	Disable() error
	// Enabled 是否已启用
	Enabled() bool
	// ApplyToTarget 新目标接入时调用
	ApplyToTarget(ctx context.Context, target host.Target)
	// OnSystemSleep 系统即将休眠
	OnSystemSleep(ctx context.Context)
	// OnSystemResume 系统已唤醒
	OnSystemResume(ctx context.Context)
	// Metrics 运行统计
	Metrics() types.FeatureMetrics
}

// TargetRemover 可选能力：目标销毁时清理其状态
type TargetRemover interface {
	RemoveTarget(targetID string)
}
