package config

import (
	"go.uber.org/fx"

	"github.com/weisyn/memwatch/internal/config/api"
	"github.com/weisyn/memwatch/internal/config/log"
	"github.com/weisyn/memwatch/internal/config/memwatch"
	"github.com/weisyn/memwatch/internal/core/diagnostics"
	"github.com/weisyn/memwatch/internal/core/leak"
	"github.com/weisyn/memwatch/internal/core/remediation"
	"github.com/weisyn/memwatch/internal/core/telemetry"
	"github.com/weisyn/memwatch/pkg/interfaces/config"
	"github.com/weisyn/memwatch/pkg/types"
)

// ConfigParams 定义配置模块的依赖参数
type ConfigParams struct {
	fx.In

	// 应用配置选项
	AppOptions config.AppOptions `optional:"true"`
}

// ConfigOutput 定义配置模块的输出结构
type ConfigOutput struct {
	fx.Out

	// 配置提供者
	Provider config.Provider
}

// Module 返回配置模块
//
// 提供：config.Provider，以及日志与各核心组件使用的具体配置
func Module() fx.Option {
	return fx.Module("config",
		fx.Provide(
			ProvideConfigServices,
			func(provider config.Provider) *memwatch.Options { return provider.GetMemwatch() },
			func(provider config.Provider) *api.APIOptions { return provider.GetAPI() },
			func(provider config.Provider) *log.LogOptions { return provider.GetLog() },
			func(o *memwatch.Options) telemetry.Config { return o.Telemetry },
			func(o *memwatch.Options) leak.Config { return o.Leak },
			func(o *memwatch.Options) remediation.Config { return o.Remediation },
			func(o *memwatch.Options) diagnostics.Config { return o.Diagnostics },
		),
	)
}

// ProvideConfigServices 提供配置服务
func ProvideConfigServices(params ConfigParams) (ConfigOutput, error) {
	var appConfig *types.AppConfig
	if params.AppOptions != nil {
		appConfig = params.AppOptions.GetAppConfig()
	}
	if err := Validate(appConfig); err != nil {
		return ConfigOutput{}, err
	}
	return ConfigOutput{Provider: NewProvider(appConfig)}, nil
}
