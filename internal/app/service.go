package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/weisyn/memwatch/internal/core/diagnostics"
	"github.com/weisyn/memwatch/internal/core/feature"
	hostimpl "github.com/weisyn/memwatch/internal/core/host"
	"github.com/weisyn/memwatch/internal/core/infrastructure/recovery"
	"github.com/weisyn/memwatch/internal/core/remediation"
	"github.com/weisyn/memwatch/internal/core/telemetry"
	"github.com/weisyn/memwatch/pkg/interfaces/host"
	"github.com/weisyn/memwatch/pkg/interfaces/infrastructure/clock"
	"github.com/weisyn/memwatch/pkg/interfaces/infrastructure/event"
	"github.com/weisyn/memwatch/pkg/interfaces/infrastructure/metrics"
	"github.com/weisyn/memwatch/pkg/interfaces/memwatch"
	"github.com/weisyn/memwatch/pkg/types"
	metricsutil "github.com/weisyn/memwatch/pkg/utils/metrics"
)

// ErrDuplicateTarget 同 ID 的目标已登记
var ErrDuplicateTarget = errors.New("target already attached")

// Service 宿主门面，把各功能组合成一个入口
type Service struct {
	manager     *feature.Manager
	registry    *hostimpl.Registry
	collector   *telemetry.Collector
	crash       *remediation.CrashPrevention
	history     *remediation.History
	recovery    *recovery.Store
	performance *diagnostics.PerformanceMonitor
	exporter    *diagnostics.Exporter
	reporters   *metricsutil.Registry
	bus         event.EventBus
	clock       clock.Clock
	logger      *zap.Logger

	publishMu sync.Mutex
}

// Enable 按名称启用功能
func (s *Service) Enable(ctx context.Context, name string) error {
	return s.manager.Enable(ctx, name)
}

// Disable 按名称停用功能
func (s *Service) Disable(name string) error {
	return s.manager.Disable(name)
}

// Features 全部功能的状态
func (s *Service) Features() []feature.Status { return s.manager.Statuses() }

// AttachTarget 登记目标；有事件总线时经由总线分发，否则直接交给功能管理器
func (s *Service) AttachTarget(target host.Target) error {
	if target == nil {
		return errors.New("target is nil")
	}
	if !s.registry.Attach(target) {
		return fmt.Errorf("%w: %s", ErrDuplicateTarget, target.ID())
	}
	s.logger.Info("target_attached", zap.String("target", target.ID()))
	if s.bus != nil {
		s.publish(types.EventTypeTargetAttached, target)
		return nil
	}
	s.manager.AttachTarget(context.Background(), target)
	return nil
}

// DetachTarget 移除目标，各功能丢弃其状态
func (s *Service) DetachTarget(targetID string) bool {
	if _, ok := s.registry.Detach(targetID); !ok {
		return false
	}
	s.logger.Info("target_detached", zap.String("target", targetID))
	if s.bus != nil {
		s.publish(types.EventTypeTargetDestroyed, targetID)
	} else {
		s.manager.DetachTarget(targetID)
	}
	return true
}

// Targets 各目标的采样状态
func (s *Service) Targets() []telemetry.TargetState { return s.collector.Store().States() }

// GetDetectedLeaks 当前检测到的泄漏
func (s *Service) GetDetectedLeaks() []types.LeakPattern { return s.crash.DetectedLeaks() }

// GetRemediationHistory 修复历史，按时间排序
func (s *Service) GetRemediationHistory() []types.RemediationEvent { return s.history.Events() }

// GetCurrentSystemPressure 最近一次系统压力快照
func (s *Service) GetCurrentSystemPressure() types.SystemPressureSnapshot {
	return s.collector.CurrentPressure()
}

// GetPressureHistory 系统压力历史
func (s *Service) GetPressureHistory() []types.SystemPressureSnapshot {
	return s.collector.PressureHistory()
}

// GeneratePerformanceReport 基于已采集的快照生成性能报告
func (s *Service) GeneratePerformanceReport() types.PerformanceReport {
	return s.performance.GenerateReport()
}

// ForceRemediation 立即重载目标
func (s *Service) ForceRemediation(ctx context.Context, targetID string) (types.RemediationEvent, error) {
	return s.crash.Force(ctx, targetID)
}

// ExportDiagnostics 写出诊断文件
func (s *Service) ExportDiagnostics(path string) (string, error) {
	return s.exporter.Export(path)
}

// RecoveryState 重载前保存的恢复状态
func (s *Service) RecoveryState(targetID string) ([]byte, bool) {
	if s.recovery == nil {
		return nil, false
	}
	return s.recovery.Load(targetID)
}

// HostStats 本进程的内存状态
func (s *Service) HostStats() diagnostics.HostStats {
	return diagnostics.ReadHostStats(s.clock.Now())
}

// ReleaseHostMemory 强制回收本进程内存
func (s *Service) ReleaseHostMemory() (before, after diagnostics.HostStats) {
	before, after = diagnostics.ReleaseHostMemory(s.clock.Now)
	s.logger.Info("host_memory_released",
		zap.Uint64("heap_before", before.HeapAlloc),
		zap.Uint64("heap_after", after.HeapAlloc))
	return before, after
}

// Footprint 各组件自身的内存占用
func (s *Service) Footprint() []metrics.ModuleMemoryStats { return s.reporters.CollectAll() }

// NotifySleep 宿主即将休眠
func (s *Service) NotifySleep() {
	if s.bus != nil {
		s.publish(types.EventTypeSystemSleep)
		return
	}
	s.manager.NotifySleep(context.Background())
}

// NotifyResume 宿主已唤醒
func (s *Service) NotifyResume() {
	if s.bus != nil {
		s.publish(types.EventTypeSystemResume)
		return
	}
	s.manager.NotifyResume(context.Background())
}

// publish 发布宿主事件并等待订阅者处理完，调用返回时各功能已完成响应
func (s *Service) publish(topic types.EventType, args ...interface{}) {
	s.publishMu.Lock()
	defer s.publishMu.Unlock()
	s.bus.Publish(topic, args...)
	s.bus.WaitAsync()
}

var _ memwatch.Service = (*Service)(nil)
