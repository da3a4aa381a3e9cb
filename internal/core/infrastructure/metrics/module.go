package metrics

import (
	"go.uber.org/fx"

	metricsiface "github.com/weisyn/memwatch/pkg/interfaces/infrastructure/metrics"
	metricsutil "github.com/weisyn/memwatch/pkg/utils/metrics"
)

// Module 返回 metrics 模块
//
// 提供：
// - *Recorder 及其 metricsiface.Recorder 接口
// - *metricsutil.Registry: 组件自身内存上报器注册表
func Module() fx.Option {
	return fx.Module("metrics",
		fx.Provide(
			NewRecorder,
			func(r *Recorder) metricsiface.Recorder { return r },
			metricsutil.NewRegistry,
		),
		fx.Invoke(func(r *Recorder, reg *metricsutil.Registry) error {
			return r.RegisterFootprint(reg.CollectAll)
		}),
	)
}
