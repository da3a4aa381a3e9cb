package host

import (
	"go.uber.org/fx"

	"github.com/weisyn/memwatch/pkg/interfaces/host"
	metricsutil "github.com/weisyn/memwatch/pkg/utils/metrics"
)

// Module 返回目标注册表模块
//
// 提供：*Registry 及其 host.Registry 接口
func Module() fx.Option {
	return fx.Module("host",
		fx.Provide(
			NewRegistry,
			func(r *Registry) host.Registry { return r },
		),
		fx.Invoke(func(r *Registry, reporters *metricsutil.Registry) {
			reporters.Register(r)
		}),
	)
}
