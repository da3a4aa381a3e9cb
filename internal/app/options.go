package app

import (
	"fmt"

	"go.uber.org/fx"

	configimpl "github.com/weisyn/memwatch/internal/config"
	"github.com/weisyn/memwatch/pkg/interfaces/config"
	"github.com/weisyn/memwatch/pkg/interfaces/host"
	"github.com/weisyn/memwatch/pkg/interfaces/infrastructure/clock"
	"github.com/weisyn/memwatch/pkg/types"
)

// Option 应用程序选项函数类型
type Option func(*options)

// options 应用程序选项
// 实现config.AppOptions接口
type options struct {
	// 配置文件路径，非空时在启动前加载
	configFilePath string

	// 用户配置
	appConfig *types.AppConfig

	// 宿主注入的时钟与系统信息，未设置时使用系统实现
	clock  clock.Clock
	system host.SystemInfo

	// 额外的 fx 选项
	extra []fx.Option
}

// 编译时校验options是否实现了config.AppOptions接口
var _ config.AppOptions = (*options)(nil)

// WithConfigFile 设置配置文件路径（JSON 或 YAML）
func WithConfigFile(configPath string) Option {
	return func(o *options) {
		o.configFilePath = configPath
	}
}

// WithAppConfig 直接使用已解析的配置，优先级低于 WithConfigFile
func WithAppConfig(cfg *types.AppConfig) Option {
	return func(o *options) {
		if cfg != nil {
			o.appConfig = cfg
		}
	}
}

// WithMemwatch 设置内存压力管理配置
func WithMemwatch(user *types.UserMemwatchConfig) Option {
	return func(o *options) {
		o.appConfig.Memwatch = user
	}
}

// WithHTTP 启用诊断 HTTP 服务
func WithHTTP(host string, port int) Option {
	return func(o *options) {
		o.appConfig.API = &types.UserAPIConfig{
			HTTPEnabled: types.BoolPtr(true),
			HTTPHost:    types.StringPtr(host),
			HTTPPort:    types.IntPtr(port),
		}
	}
}

// WithClock 替换时钟，测试中传入 MockClock
func WithClock(clk clock.Clock) Option {
	return func(o *options) {
		o.clock = clk
	}
}

// WithSystemInfo 替换系统信息来源
func WithSystemInfo(system host.SystemInfo) Option {
	return func(o *options) {
		o.system = system
	}
}

// WithFxOptions 追加 fx 选项，例如 fx.Populate
func WithFxOptions(opts ...fx.Option) Option {
	return func(o *options) {
		o.extra = append(o.extra, opts...)
	}
}

// newOptions 创建选项
func newOptions(opts ...Option) *options {
	options := &options{
		// 创建默认的空AppConfig
		appConfig: &types.AppConfig{},
	}

	// 应用自定义选项
	for _, opt := range opts {
		opt(options)
	}

	return options
}

// resolve 加载配置文件
func (o *options) resolve() error {
	if o.configFilePath == "" {
		return nil
	}
	cfg, err := configimpl.Load(o.configFilePath)
	if err != nil {
		return fmt.Errorf("加载配置文件 %s 失败: %w", o.configFilePath, err)
	}
	o.appConfig = cfg
	return nil
}

// GetAppConfig 返回应用程序配置
func (o *options) GetAppConfig() *types.AppConfig {
	return o.appConfig
}
