// Package api 诊断 HTTP 服务配置
package api

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/weisyn/memwatch/pkg/types"
)

// APIOptions 诊断服务配置选项
type APIOptions struct {
	HTTP HTTPConfig `json:"http"`
}

// HTTPConfig HTTP 服务配置
type HTTPConfig struct {
	Enabled bool   `json:"enabled"` // 是否启用（总开关）
	Host    string `json:"host"`    // 监听地址
	Port    int    `json:"port"`    // 监听端口

	ReadTimeout     time.Duration `json:"read_timeout"`
	WriteTimeout    time.Duration `json:"write_timeout"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`

	EnableMetrics bool `json:"enable_metrics"` // 是否暴露 /metrics
	EnableControl bool `json:"enable_control"` // 是否开放 POST 控制接口
}

// Addr 监听地址 host:port
func (c HTTPConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Config API 配置实现
type Config struct {
	options *APIOptions
}

// New 创建 API 配置
func New(userConfig *types.UserAPIConfig) *Config {
	options := createDefaultAPIOptions()
	if userConfig != nil {
		applyUserAPIConfig(options, userConfig)
	}
	return &Config{options: options}
}

func createDefaultAPIOptions() *APIOptions {
	return &APIOptions{
		HTTP: HTTPConfig{
			Enabled:         defaultHTTPEnabled,
			Host:            defaultHTTPHost,
			Port:            defaultHTTPPort,
			ReadTimeout:     defaultReadTimeout,
			WriteTimeout:    defaultWriteTimeout,
			ShutdownTimeout: defaultShutdownTimeout,
			EnableMetrics:   defaultEnableMetrics,
			EnableControl:   defaultEnableControl,
		},
	}
}

// applyUserAPIConfig 只处理配置文件中实际出现的字段
func applyUserAPIConfig(options *APIOptions, userConfig *types.UserAPIConfig) {
	if userConfig.HTTPEnabled != nil {
		options.HTTP.Enabled = *userConfig.HTTPEnabled
	}
	if userConfig.HTTPHost != nil {
		options.HTTP.Host = *userConfig.HTTPHost
	}
	if userConfig.HTTPPort != nil {
		options.HTTP.Port = *userConfig.HTTPPort
	}
}

// GetOptions 获取完整配置
func (c *Config) GetOptions() *APIOptions {
	return c.options
}

// Validate 启用时校验端口与地址
func (c *Config) Validate() error {
	h := c.options.HTTP
	if !h.Enabled {
		return nil
	}
	if h.Port <= 0 || h.Port > 65535 {
		return fmt.Errorf("http_port 超出范围: %d", h.Port)
	}
	if h.Host == "" {
		return fmt.Errorf("http_host 不能为空")
	}
	return nil
}
