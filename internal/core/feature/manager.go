package feature

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/weisyn/memwatch/internal/core/infrastructure/log"
	featureiface "github.com/weisyn/memwatch/pkg/interfaces/feature"
	"github.com/weisyn/memwatch/pkg/interfaces/host"
	"github.com/weisyn/memwatch/pkg/interfaces/infrastructure/event"
	"github.com/weisyn/memwatch/pkg/types"
)

// ErrUnknownFeature 未注册的功能名
var ErrUnknownFeature = errors.New("unknown feature")

// Status 功能状态
type Status struct {
	Name    string               `json:"name"`
	Enabled bool                 `json:"enabled"`
	Metrics types.FeatureMetrics `json:"metrics"`
}

// Manager 持有全部功能，按注册顺序启停并分发宿主信号
type Manager struct {
	bus    event.EventBus
	logger *zap.Logger

	mu       sync.RWMutex
	features []featureiface.Feature
	byName   map[string]featureiface.Feature

	subscribed bool
	baseCtx    context.Context
}

// NewManager 创建功能管理器
func NewManager(bus event.EventBus, logger *zap.Logger, features ...featureiface.Feature) *Manager {
	m := &Manager{
		bus:     bus,
		logger:  log.NewModuleZapLogger(logger, "feature"),
		byName:  make(map[string]featureiface.Feature),
		baseCtx: context.Background(),
	}
	for _, f := range features {
		m.Register(f)
	}
	return m
}

// Register 注册功能，同名时替换
func (m *Manager) Register(f featureiface.Feature) {
	if f == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.byName[f.Name()]; exists {
		for i, old := range m.features {
			if old.Name() == f.Name() {
				m.features[i] = f
			}
		}
	} else {
		m.features = append(m.features, f)
	}
	m.byName[f.Name()] = f
}

// Get 按名称获取功能
func (m *Manager) Get(name string) (featureiface.Feature, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.byName[name]
	return f, ok
}

// Features 按注册顺序返回功能列表
func (m *Manager) Features() []featureiface.Feature {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]featureiface.Feature(nil), m.features...)
}

// Enable 启用指定功能
func (m *Manager) Enable(ctx context.Context, name string) error {
	f, ok := m.Get(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownFeature, name)
	}
	if err := f.Enable(ctx); err != nil {
		return fmt.Errorf("启用功能 %s 失败: %w", name, err)
	}
	m.logger.Info("feature_enabled", zap.String("feature", name))
	return nil
}

// Disable 停用指定功能
func (m *Manager) Disable(name string) error {
	f, ok := m.Get(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownFeature, name)
	}
	if err := f.Disable(); err != nil {
		return fmt.Errorf("停用功能 %s 失败: %w", name, err)
	}
	m.logger.Info("feature_disabled", zap.String("feature", name))
	return nil
}

// EnableAll 启用除 skip 之外的全部功能，并订阅宿主事件
func (m *Manager) EnableAll(ctx context.Context, skip ...string) error {
	skipped := make(map[string]bool, len(skip))
	for _, s := range skip {
		skipped[s] = true
	}

	m.mu.Lock()
	m.baseCtx = context.WithoutCancel(ctx)
	m.mu.Unlock()

	if err := m.Subscribe(); err != nil {
		return err
	}

	var errs []error
	for _, f := range m.Features() {
		if skipped[f.Name()] {
			m.logger.Info("feature_skipped", zap.String("feature", f.Name()))
			continue
		}
		if err := m.Enable(ctx, f.Name()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// DisableAll 逆序停用全部功能并取消订阅
func (m *Manager) DisableAll() error {
	features := m.Features()
	var errs []error
	for i := len(features) - 1; i >= 0; i-- {
		if !features[i].Enabled() {
			continue
		}
		if err := m.Disable(features[i].Name()); err != nil {
			errs = append(errs, err)
		}
	}
	m.Unsubscribe()
	return errors.Join(errs...)
}

// Statuses 返回所有功能的状态
func (m *Manager) Statuses() []Status {
	features := m.Features()
	out := make([]Status, 0, len(features))
	for _, f := range features {
		out = append(out, Status{Name: f.Name(), Enabled: f.Enabled(), Metrics: f.Metrics()})
	}
	return out
}

// AttachTarget 把新目标交给所有已启用的功能，单个功能的失败不影响其他功能
func (m *Manager) AttachTarget(ctx context.Context, target host.Target) {
	if target == nil {
		return
	}
	for _, f := range m.Features() {
		if !f.Enabled() {
			continue
		}
		m.safely(f.Name(), "apply_to_target", func() { f.ApplyToTarget(ctx, target) })
	}
}

// DetachTarget 通知各功能清理目标状态
func (m *Manager) DetachTarget(targetID string) {
	for _, f := range m.Features() {
		if r, ok := f.(featureiface.TargetRemover); ok {
			m.safely(f.Name(), "remove_target", func() { r.RemoveTarget(targetID) })
		}
	}
}

// NotifySleep 分发系统休眠信号
func (m *Manager) NotifySleep(ctx context.Context) {
	m.logger.Info("system_sleep")
	for _, f := range m.Features() {
		if f.Enabled() {
			m.safely(f.Name(), "on_sleep", func() { f.OnSystemSleep(ctx) })
		}
	}
}

// NotifyResume 分发系统唤醒信号
func (m *Manager) NotifyResume(ctx context.Context) {
	m.logger.Info("system_resume")
	for _, f := range m.Features() {
		if f.Enabled() {
			m.safely(f.Name(), "on_resume", func() { f.OnSystemResume(ctx) })
		}
	}
}

// Subscribe 订阅宿主生命周期事件，重复调用无副作用
func (m *Manager) Subscribe() error {
	if m.bus == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.subscribed {
		return nil
	}
	subs := []struct {
		topic   types.EventType
		handler interface{}
	}{
		{types.EventTypeSystemSleep, m.onSleep},
		{types.EventTypeSystemResume, m.onResume},
		{types.EventTypeTargetAttached, m.onAttached},
		{types.EventTypeTargetDestroyed, m.DetachTarget},
	}
	for _, s := range subs {
		// 处理器内的修复会再次发布事件，同步订阅会在总线锁上自锁
		if err := m.bus.SubscribeAsync(s.topic, s.handler, true); err != nil {
			return fmt.Errorf("订阅 %s 失败: %w", s.topic, err)
		}
	}
	m.subscribed = true
	return nil
}

// Unsubscribe 取消订阅
func (m *Manager) Unsubscribe() {
	if m.bus == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.subscribed {
		return
	}
	_ = m.bus.Unsubscribe(types.EventTypeSystemSleep, m.onSleep)
	_ = m.bus.Unsubscribe(types.EventTypeSystemResume, m.onResume)
	_ = m.bus.Unsubscribe(types.EventTypeTargetAttached, m.onAttached)
	_ = m.bus.Unsubscribe(types.EventTypeTargetDestroyed, m.DetachTarget)
	m.subscribed = false
}

func (m *Manager) baseContext() context.Context {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.baseCtx
}

func (m *Manager) onSleep()  { m.NotifySleep(m.baseContext()) }
func (m *Manager) onResume() { m.NotifyResume(m.baseContext()) }

func (m *Manager) onAttached(target host.Target) { m.AttachTarget(m.baseContext(), target) }

func (m *Manager) safely(name, op string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Warn("feature_callback_panic", zap.String("feature", name), zap.String("op", op), zap.Any("panic", r))
		}
	}()
	fn()
}
