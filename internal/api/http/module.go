package http

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/zap"

	metricsimpl "github.com/weisyn/memwatch/internal/core/infrastructure/metrics"
	"github.com/weisyn/memwatch/pkg/interfaces/config"
	"github.com/weisyn/memwatch/pkg/interfaces/memwatch"
)

// ServerParams 服务器依赖
type ServerParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Provider  config.Provider
	Service   memwatch.Service
	Recorder  *metricsimpl.Recorder `optional:"true"`
	Logger    *zap.Logger           `optional:"true"`
}

// Module 返回HTTP模块
func Module() fx.Option {
	return fx.Module("http",
		fx.Provide(ProvideServer),
		// 确保服务器被创建并挂上生命周期
		fx.Invoke(func(*Server) {}),
	)
}

// ProvideServer 创建服务器并注册启动与停止钩子
func ProvideServer(p ServerParams) *Server {
	s := NewServer(p.Provider.GetAPI().HTTP, p.Service, registryOf(p.Recorder), p.Logger)
	p.Lifecycle.Append(fx.Hook{
		OnStart: func(context.Context) error { return s.Start() },
		OnStop:  s.Stop,
	})
	return s
}

func registryOf(r *metricsimpl.Recorder) *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.Registry()
}
