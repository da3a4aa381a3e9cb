package event

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/weisyn/memwatch/pkg/interfaces/infrastructure/event"
)

// Module 返回事件总线模块
func Module() fx.Option {
	return fx.Module("event",
		fx.Provide(
			fx.Annotate(
				func(logger *zap.Logger) *EventBus { return NewEventBus(logger) },
				fx.As(new(event.EventBus)),
			),
		),
	)
}
