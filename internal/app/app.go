// Package app 装配内存压力管理子系统并提供宿主门面
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// stopTimeout 停止超时，需覆盖各功能当前 tick 的结束
const stopTimeout = 15 * time.Second

// App 是 memwatch 应用的对外接口
type App interface {
	// Service 宿主门面
	Service() *Service

	// Stop 停止应用
	Stop() error

	// Wait 等待应用收到退出信号
	Wait() os.Signal
}

// internalApp 应用的内部实现
type internalApp struct {
	bootstrap *Bootstrap
}

// Service 返回宿主门面
func (a *internalApp) Service() *Service { return a.bootstrap.service }

// Stop 停止应用
func (a *internalApp) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	return a.bootstrap.StopApp(ctx)
}

// Wait 阻塞直到收到 SIGINT 或 SIGTERM，然后停止应用
func (a *internalApp) Wait() os.Signal {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(signals)

	sig := <-signals
	if err := a.Stop(); err != nil {
		fmt.Fprintf(os.Stderr, "停止应用时出错: %v\n", err)
	}
	return sig
}

// Start 加载配置、装配并启动应用
func Start(appOptions ...Option) (App, error) {
	opts := newOptions(appOptions...)
	if err := opts.resolve(); err != nil {
		return nil, err
	}
	return BootstrapApp(opts)
}
