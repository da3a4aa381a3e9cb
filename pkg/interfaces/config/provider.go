// Package config provides configuration provider interfaces.
package config

import (
	apiconfig "github.com/weisyn/memwatch/internal/config/api"
	logconfig "github.com/weisyn/memwatch/internal/config/log"
	memwatchconfig "github.com/weisyn/memwatch/internal/config/memwatch"
)

// Provider 配置提供者接口
//
// 每次调用都基于用户配置与默认值重新计算，返回值可以被调用方修改而不影响后续调用。
type Provider interface {
	// GetAppName 应用名称
	GetAppName() string

	// GetLog 获取日志配置
	GetLog() *logconfig.LogOptions

	// GetMemwatch 获取内存压力管理配置
	GetMemwatch() *memwatchconfig.Options

	// GetAPI 获取诊断服务配置
	GetAPI() *apiconfig.APIOptions
}
