// Package memwatch 定义内存压力管理子系统对宿主暴露的接口
package memwatch

import (
	"context"

	"github.com/weisyn/memwatch/internal/core/diagnostics"
	"github.com/weisyn/memwatch/internal/core/feature"
	"github.com/weisyn/memwatch/internal/core/telemetry"
	"github.com/weisyn/memwatch/pkg/interfaces/host"
	"github.com/weisyn/memwatch/pkg/interfaces/infrastructure/metrics"
	"github.com/weisyn/memwatch/pkg/types"
)

// Service 宿主使用的门面
type Service interface {
	// Enable 按名称启用功能
	Enable(ctx context.Context, name string) error
	// Disable 按名称停用功能
	Disable(name string) error
	// Features 全部功能的状态
	Features() []feature.Status

	// AttachTarget 登记新目标并交给已启用的功能，ID 重复时返回错误
	AttachTarget(target host.Target) error
	// DetachTarget 移除目标并清理其状态
	DetachTarget(targetID string) bool
	// Targets 各目标的采样状态
	Targets() []telemetry.TargetState

	GetDetectedLeaks() []types.LeakPattern
	GetRemediationHistory() []types.RemediationEvent
	GetCurrentSystemPressure() types.SystemPressureSnapshot
	GetPressureHistory() []types.SystemPressureSnapshot
	GeneratePerformanceReport() types.PerformanceReport

	// ForceRemediation 立即重载目标，不受冷却期限制
	ForceRemediation(ctx context.Context, targetID string) (types.RemediationEvent, error)
	// ExportDiagnostics 写出诊断文件，path 为空时使用配置目录，返回实际路径
	ExportDiagnostics(path string) (string, error)
	// RecoveryState 重载前保存的目标恢复状态
	RecoveryState(targetID string) ([]byte, bool)

	// HostStats 本进程的内存状态
	HostStats() diagnostics.HostStats
	// ReleaseHostMemory 强制回收本进程内存，返回前后对比
	ReleaseHostMemory() (before, after diagnostics.HostStats)
	// Footprint 各组件自身的内存占用
	Footprint() []metrics.ModuleMemoryStats

	// NotifySleep 宿主即将休眠
	NotifySleep()
	// NotifyResume 宿主已唤醒
	NotifyResume()
}
