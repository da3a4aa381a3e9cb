package clock

import (
	"go.uber.org/fx"
)

// Module 返回时钟模块，默认使用系统时钟
func Module() fx.Option {
	return fx.Module("clock",
		fx.Provide(NewSystemClock),
	)
}
