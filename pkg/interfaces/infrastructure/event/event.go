// Package event 定义进程内事件总线接口
package event

import "github.com/weisyn/memwatch/pkg/types"

// EventType 事件主题
type EventType = types.EventType

// EventBus 进程内事件总线
//
// 宿主通过它投递生命周期信号（休眠、唤醒、目标创建与销毁），
// 各监控功能通过它对外广播修复、泄漏与压力变化。
type EventBus interface {
	// Subscribe 同步订阅，处理器在 Publish 的调用方 goroutine 中执行
	Subscribe(eventType EventType, handler interface{}) error
	// SubscribeAsync 异步订阅
	SubscribeAsync(eventType EventType, handler interface{}, transactional bool) error
	// Unsubscribe 取消订阅，handler 必须与订阅时为同一函数值
	Unsubscribe(eventType EventType, handler interface{}) error
	// Publish 发布事件
	Publish(eventType EventType, args ...interface{})
	// WaitAsync 等待所有异步处理完成
	WaitAsync()
	// HasCallback 检查是否有订阅者
	HasCallback(eventType EventType) bool
	// PublishedCount 返回某主题累计发布次数
	PublishedCount(eventType EventType) uint64
}
