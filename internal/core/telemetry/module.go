package telemetry

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/weisyn/memwatch/pkg/interfaces/host"
	"github.com/weisyn/memwatch/pkg/interfaces/infrastructure/clock"
	"github.com/weisyn/memwatch/pkg/interfaces/infrastructure/event"
	"github.com/weisyn/memwatch/pkg/interfaces/infrastructure/metrics"
	metricsutil "github.com/weisyn/memwatch/pkg/utils/metrics"
)

// ModuleParams 采集模块依赖
type ModuleParams struct {
	fx.In

	Config    Config
	Registry  host.Registry
	System    host.SystemInfo
	Clock     clock.Clock
	Bus       event.EventBus   `optional:"true"`
	Recorder  metrics.Recorder `optional:"true"`
	Logger    *zap.Logger      `optional:"true"`
	Reporters *metricsutil.Registry
}

// Module 返回采集模块
//
// 提供：*Store、*Collector
func Module() fx.Option {
	return fx.Module("telemetry",
		fx.Provide(ProvideCollector),
		fx.Provide(func(c *Collector) *Store { return c.Store() }),
	)
}

// ProvideCollector 创建样本存储与采集器，并注册内存上报
func ProvideCollector(p ModuleParams) (*Collector, error) {
	if err := p.Config.Validate(); err != nil {
		return nil, err
	}
	store := NewStore(p.Config.SampleCapacity)
	c := NewCollector(p.Config, p.Registry, p.System, store, p.Clock, p.Bus, p.Recorder, p.Logger)
	p.Reporters.Register(store)
	p.Reporters.Register(c)
	return c, nil
}
