package api

import "time"

// 诊断 HTTP 服务默认配置值
const (
	// defaultHTTPEnabled 默认关闭
	// 原因：诊断服务只在排查问题时需要，宿主进程默认不监听任何端口
	defaultHTTPEnabled = false

	// defaultHTTPHost 只监听本机回环地址
	// 原因：接口可以触发重载与导出，不应暴露到外部网络
	defaultHTTPHost = "127.0.0.1"

	// defaultHTTPPort 默认端口
	defaultHTTPPort = 28690

	// defaultReadTimeout 读取超时
	defaultReadTimeout = 10 * time.Second

	// defaultWriteTimeout 写入超时
	// 原因：导出接口需要序列化完整历史，留出比读取更长的时间
	defaultWriteTimeout = 30 * time.Second

	// defaultShutdownTimeout 优雅关闭等待时间
	defaultShutdownTimeout = 5 * time.Second

	// defaultEnableMetrics 暴露 /metrics
	defaultEnableMetrics = true

	// defaultEnableControl 允许通过 POST 接口触发修复、导出与释放内存
	defaultEnableControl = true
)
