// Package config 提供应用配置管理功能
package config

import (
	"github.com/weisyn/memwatch/internal/config/api"
	"github.com/weisyn/memwatch/internal/config/log"
	"github.com/weisyn/memwatch/internal/config/memwatch"
	"github.com/weisyn/memwatch/pkg/interfaces/config"
	"github.com/weisyn/memwatch/pkg/types"
)

// defaultAppName 未配置时的应用名称
const defaultAppName = "memwatch"

// Provider 实现配置提供者接口
type Provider struct {
	appConfig *types.AppConfig
}

// NewProvider 创建配置提供者，appConfig 可以为 nil
func NewProvider(appConfig *types.AppConfig) config.Provider {
	return &Provider{appConfig: appConfig}
}

// GetAppName 获取应用名称
func (p *Provider) GetAppName() string {
	if p.appConfig != nil && p.appConfig.AppName != nil && *p.appConfig.AppName != "" {
		return *p.appConfig.AppName
	}
	return defaultAppName
}

// GetLog 获取日志配置
func (p *Provider) GetLog() *log.LogOptions {
	var userLogConfig *types.UserLogConfig
	if p.appConfig != nil {
		userLogConfig = p.appConfig.Log
	}
	// log.New 接收 interface{}，typed nil 需要转换为无类型 nil
	if userLogConfig == nil {
		return log.New(nil).GetOptions()
	}
	return log.New(userLogConfig).GetOptions()
}

// GetMemwatch 获取内存压力管理配置
func (p *Provider) GetMemwatch() *memwatch.Options {
	var user *types.UserMemwatchConfig
	if p.appConfig != nil {
		user = p.appConfig.Memwatch
	}
	return memwatch.New(user).GetOptions()
}

// GetAPI 获取诊断服务配置
func (p *Provider) GetAPI() *api.APIOptions {
	var user *types.UserAPIConfig
	if p.appConfig != nil {
		user = p.appConfig.API
	}
	return api.New(user).GetOptions()
}

// appOptions AppOptions 的简单实现
type appOptions struct {
	cfg *types.AppConfig
}

// NewAppOptions 包装已解析的应用配置
func NewAppOptions(cfg *types.AppConfig) config.AppOptions {
	return appOptions{cfg: cfg}
}

func (o appOptions) GetAppConfig() *types.AppConfig { return o.cfg }
