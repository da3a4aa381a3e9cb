package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/fx"

	"github.com/weisyn/memwatch/internal/api"
	config "github.com/weisyn/memwatch/internal/config"
	apiconfig "github.com/weisyn/memwatch/internal/config/api"
	"github.com/weisyn/memwatch/internal/core/diagnostics"
	hostimpl "github.com/weisyn/memwatch/internal/core/host"
	clockimpl "github.com/weisyn/memwatch/internal/core/infrastructure/clock"
	"github.com/weisyn/memwatch/internal/core/infrastructure/event"
	log "github.com/weisyn/memwatch/internal/core/infrastructure/log"
	"github.com/weisyn/memwatch/internal/core/infrastructure/metrics"
	"github.com/weisyn/memwatch/internal/core/infrastructure/system"
	"github.com/weisyn/memwatch/internal/core/leak"
	"github.com/weisyn/memwatch/internal/core/remediation"
	"github.com/weisyn/memwatch/internal/core/telemetry"
	configiface "github.com/weisyn/memwatch/pkg/interfaces/config"
	"github.com/weisyn/memwatch/pkg/interfaces/host"
	"github.com/weisyn/memwatch/pkg/interfaces/infrastructure/clock"
)

// startTimeout 启动超时
const startTimeout = 30 * time.Second

// Bootstrap 应用引导程序
type Bootstrap struct {
	opts    *options
	fxApp   *fx.App
	service *Service
}

// NewBootstrap 创建引导程序
func NewBootstrap(opts *options) *Bootstrap {
	return &Bootstrap{
		opts: opts,
	}
}

// SetupInfrastructureLayer 设置基础设施层模块
func (b *Bootstrap) SetupInfrastructureLayer() []fx.Option {
	modules := []fx.Option{
		fx.Provide(func() configiface.AppOptions { return b.opts }),
		config.Module(),    // 1. 配置(不依赖其他)
		log.Module(),       // 2. 日志(依赖配置)
		clockimpl.Module(), // 3. 时钟
		event.Module(),     // 4. 事件总线(依赖日志)
		metrics.Module(),   // 5. 指标与自身内存上报
		system.Module(),    // 6. 系统内存信息
	}

	if b.opts.clock != nil {
		modules = append(modules, fx.Replace(fx.Annotate(b.opts.clock, fx.As(new(clock.Clock)))))
	}
	if b.opts.system != nil {
		modules = append(modules, fx.Replace(fx.Annotate(b.opts.system, fx.As(new(host.SystemInfo)))))
	}
	return modules
}

// SetupCoreLayer 设置核心模块，顺序与数据流一致：目标 → 采集 → 分类 → 修复 → 诊断
func (b *Bootstrap) SetupCoreLayer() []fx.Option {
	return []fx.Option{
		hostimpl.Module(),
		telemetry.Module(),
		leak.Module(),
		remediation.Module(),
		diagnostics.Module(),
	}
}

// SetupApplicationLayer 设置应用层模块
func (b *Bootstrap) SetupApplicationLayer() []fx.Option {
	modules := []fx.Option{
		AppModule,
		fx.Populate(&b.service),
	}

	// 条件性添加诊断 HTTP 服务
	if apiconfig.New(b.opts.appConfig.API).GetOptions().HTTP.Enabled {
		modules = append(modules, api.Module())
	}

	return append(modules, b.opts.extra...)
}

// SetupModules 设置所有应用模块
func (b *Bootstrap) SetupModules() []fx.Option {
	var allModules []fx.Option
	allModules = append(allModules, b.SetupInfrastructureLayer()...)
	allModules = append(allModules, b.SetupCoreLayer()...)
	allModules = append(allModules, b.SetupApplicationLayer()...)
	return allModules
}

// CreateFxApp 创建并配置fx应用
func (b *Bootstrap) CreateFxApp() error {
	b.fxApp = fx.New(
		fx.Options(b.SetupModules()...),
		// 禁用fx内部日志
		fx.NopLogger,
	)
	if err := b.fxApp.Err(); err != nil {
		return fmt.Errorf("装配应用失败: %w", err)
	}
	return nil
}

// StartApp 启动应用程序
func (b *Bootstrap) StartApp(ctx context.Context) error {
	if err := b.fxApp.Start(ctx); err != nil {
		return fmt.Errorf("启动应用失败: %w", err)
	}
	return nil
}

// StopApp 停止应用程序
func (b *Bootstrap) StopApp(ctx context.Context) error {
	if err := b.fxApp.Stop(ctx); err != nil {
		return fmt.Errorf("停止应用失败: %w", err)
	}
	return nil
}

// BootstrapApp 执行完整的引导过程并返回应用实例
func BootstrapApp(opts *options) (App, error) {
	bootstrap := NewBootstrap(opts)

	if err := bootstrap.CreateFxApp(); err != nil {
		return nil, err
	}

	startupCtx, startupCancel := context.WithTimeout(context.Background(), startTimeout)
	defer startupCancel()

	if err := bootstrap.StartApp(startupCtx); err != nil {
		return nil, err
	}

	return &internalApp{bootstrap: bootstrap}, nil
}
