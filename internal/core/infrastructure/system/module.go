package system

import (
	"go.uber.org/fx"

	"github.com/weisyn/memwatch/pkg/interfaces/host"
)

// Module 返回系统信息模块
//
// 提供：*Info 及其 host.SystemInfo 接口
func Module() fx.Option {
	return fx.Module("system",
		fx.Provide(
			NewInfo,
			func(i *Info) host.SystemInfo { return i },
		),
	)
}
