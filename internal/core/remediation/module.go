package remediation

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/weisyn/memwatch/internal/core/infrastructure/recovery"
	"github.com/weisyn/memwatch/internal/core/leak"
	"github.com/weisyn/memwatch/internal/core/telemetry"
	"github.com/weisyn/memwatch/pkg/interfaces/host"
	"github.com/weisyn/memwatch/pkg/interfaces/infrastructure/clock"
	"github.com/weisyn/memwatch/pkg/interfaces/infrastructure/event"
	"github.com/weisyn/memwatch/pkg/interfaces/infrastructure/metrics"
	metricsutil "github.com/weisyn/memwatch/pkg/utils/metrics"
)

// ModuleParams 修复模块依赖
type ModuleParams struct {
	fx.In

	Config     Config
	Registry   host.Registry
	System     host.SystemInfo
	Collector  *telemetry.Collector
	Classifier *leak.Classifier
	Clock      clock.Clock
	Bus        event.EventBus   `optional:"true"`
	Recorder   metrics.Recorder `optional:"true"`
	Logger     *zap.Logger      `optional:"true"`
	Reporters  *metricsutil.Registry
}

// ModuleOutput 修复模块输出
type ModuleOutput struct {
	fx.Out

	History         *History
	Recovery        *recovery.Store
	Executor        *Executor
	CrashPrevention *CrashPrevention
	IdleCleanup     *IdleCleanup
}

// Module 返回修复模块
//
// 提供：修复历史、恢复状态缓存、执行器、崩溃预防与空闲清理两个功能
func Module() fx.Option {
	return fx.Module("remediation",
		fx.Provide(ProvideServices),
		fx.Invoke(func(lc fx.Lifecycle, rs *recovery.Store) {
			lc.Append(fx.Hook{
				OnStop: func(context.Context) error { return rs.Close() },
			})
		}),
	)
}

// ProvideServices 按依赖顺序创建修复组件
func ProvideServices(p ModuleParams) (ModuleOutput, error) {
	if err := p.Config.Validate(); err != nil {
		return ModuleOutput{}, err
	}
	rs, err := recovery.NewStore(p.Config.RecoveryTTL, p.Clock, p.Logger)
	if err != nil {
		return ModuleOutput{}, err
	}

	hist := NewHistory(p.Config.HistoryCapacity)
	x := NewExecutor(p.Config, p.Collector.Store(), hist, rs, p.Clock, p.Bus, p.Recorder, p.Logger)
	cp := NewCrashPrevention(p.Collector, p.Registry, p.Classifier, NewEngine(p.Config), x,
		p.Clock, p.Bus, p.Recorder, p.Logger)
	ic := NewIdleCleanup(p.Config, p.Registry, p.System, p.Collector.Store(), x, p.Clock, p.Recorder, p.Logger)

	p.Reporters.Register(hist)
	p.Reporters.Register(rs)

	return ModuleOutput{
		History:         hist,
		Recovery:        rs,
		Executor:        x,
		CrashPrevention: cp,
		IdleCleanup:     ic,
	}, nil
}
