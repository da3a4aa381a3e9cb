package app

import (
	"context"
	"fmt"

	"go.uber.org/fx"
	"go.uber.org/zap"

	memwatchconfig "github.com/weisyn/memwatch/internal/config/memwatch"
	"github.com/weisyn/memwatch/internal/core/diagnostics"
	"github.com/weisyn/memwatch/internal/core/feature"
	hostimpl "github.com/weisyn/memwatch/internal/core/host"
	"github.com/weisyn/memwatch/internal/core/infrastructure/log"
	"github.com/weisyn/memwatch/internal/core/infrastructure/recovery"
	"github.com/weisyn/memwatch/internal/core/remediation"
	"github.com/weisyn/memwatch/internal/core/telemetry"
	"github.com/weisyn/memwatch/pkg/interfaces/infrastructure/clock"
	"github.com/weisyn/memwatch/pkg/interfaces/infrastructure/event"
	logInterface "github.com/weisyn/memwatch/pkg/interfaces/infrastructure/log"
	"github.com/weisyn/memwatch/pkg/interfaces/memwatch"
	metricsutil "github.com/weisyn/memwatch/pkg/utils/metrics"
)

// ManagerParams 功能管理器依赖
type ManagerParams struct {
	fx.In

	Bus             event.EventBus `optional:"true"`
	Logger          *zap.Logger    `optional:"true"`
	Options         *memwatchconfig.Options
	Collector       *telemetry.Collector
	CrashPrevention *remediation.CrashPrevention
	IdleCleanup     *remediation.IdleCleanup
	Performance     *diagnostics.PerformanceMonitor
}

// ServiceParams 门面依赖
type ServiceParams struct {
	fx.In

	Manager     *feature.Manager
	Registry    *hostimpl.Registry
	Collector   *telemetry.Collector
	Crash       *remediation.CrashPrevention
	History     *remediation.History
	Recovery    *recovery.Store
	Performance *diagnostics.PerformanceMonitor
	Exporter    *diagnostics.Exporter
	Reporters   *metricsutil.Registry
	Bus         event.EventBus `optional:"true"`
	Clock       clock.Clock
	Logger      *zap.Logger `optional:"true"`
}

// AppModule 应用模块定义
//
// 提供：诊断导出的数据来源、*feature.Manager、*Service；
// 启动时启用配置中未禁用的功能，停止时逆序停用
var AppModule = fx.Module("app",
	fx.Provide(
		func(c *telemetry.Collector) diagnostics.PressureSource { return c },
		func(h *remediation.History) diagnostics.RemediationSource { return h },
		func(cp *remediation.CrashPrevention) diagnostics.LeakSource { return cp },
		func(o *memwatchconfig.Options) *diagnostics.Settings { return &diagnostics.Settings{Value: o} },
		ProvideManager,
		ProvideService,
		func(s *Service) memwatch.Service { return s },
	),
	fx.Invoke(registerLifecycle),
)

// ProvideManager 按固定顺序注册功能：采集在前，依赖采集结果的功能在后
func ProvideManager(p ManagerParams) (*feature.Manager, error) {
	m := feature.NewManager(p.Bus, p.Logger,
		p.Collector,
		p.CrashPrevention,
		p.IdleCleanup,
		p.Performance,
	)
	for _, name := range p.Options.DisabledFeatures {
		if _, ok := m.Get(name); !ok {
			return nil, fmt.Errorf("%w: %s", feature.ErrUnknownFeature, name)
		}
	}
	return m, nil
}

// ProvideService 组装门面
func ProvideService(p ServiceParams) *Service {
	return &Service{
		manager:     p.Manager,
		registry:    p.Registry,
		collector:   p.Collector,
		crash:       p.Crash,
		history:     p.History,
		recovery:    p.Recovery,
		performance: p.Performance,
		exporter:    p.Exporter,
		reporters:   p.Reporters,
		bus:         p.Bus,
		clock:       p.Clock,
		logger:      log.NewModuleZapLogger(p.Logger, "app"),
	}
}

// LifecycleParams 启停钩子依赖
type LifecycleParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Manager   *feature.Manager
	Options   *memwatchconfig.Options
	Logger    logInterface.Logger `optional:"true"`
}

func registerLifecycle(p LifecycleParams) {
	logger := p.Logger
	if logger == nil {
		logger = log.NewFromZap(nil)
	}
	logger = logger.With("module", "app")
	m, o := p.Manager, p.Options

	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := m.EnableAll(ctx, o.DisabledFeatures...); err != nil {
				return fmt.Errorf("启用功能失败: %w", err)
			}
			logger.Infof("memwatch 已启动，%d 个功能，停用: %v", len(m.Features()), o.DisabledFeatures)
			return nil
		},
		OnStop: func(context.Context) error {
			err := m.DisableAll()
			logger.Info("memwatch 已停止")
			return err
		},
	})
}
