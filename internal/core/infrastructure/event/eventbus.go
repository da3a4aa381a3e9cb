// Package event 基于asaskevich/EventBus的事件总线实现
package event

import (
	"sync"

	evbus "github.com/asaskevich/EventBus"
	"go.uber.org/zap"

	"github.com/weisyn/memwatch/internal/core/infrastructure/log"
	"github.com/weisyn/memwatch/pkg/interfaces/infrastructure/event"
)

// EventBus 包装 evbus.Bus，增加发布计数与调试日志
type EventBus struct {
	bus    evbus.Bus
	logger *zap.Logger

	mu        sync.RWMutex
	published map[event.EventType]uint64
}

// NewEventBus 创建事件总线
func NewEventBus(logger *zap.Logger) *EventBus {
	return &EventBus{
		bus:       evbus.New(),
		logger:    log.NewModuleZapLogger(logger, "event"),
		published: make(map[event.EventType]uint64),
	}
}

// Subscribe 同步订阅
func (eb *EventBus) Subscribe(eventType event.EventType, handler interface{}) error {
	return eb.bus.Subscribe(string(eventType), handler)
}

// SubscribeAsync 异步订阅
func (eb *EventBus) SubscribeAsync(eventType event.EventType, handler interface{}, transactional bool) error {
	return eb.bus.SubscribeAsync(string(eventType), handler, transactional)
}

// Unsubscribe 取消订阅
func (eb *EventBus) Unsubscribe(eventType event.EventType, handler interface{}) error {
	return eb.bus.Unsubscribe(string(eventType), handler)
}

// Publish 发布事件
func (eb *EventBus) Publish(eventType event.EventType, args ...interface{}) {
	eb.mu.Lock()
	eb.published[eventType]++
	eb.mu.Unlock()

	eb.logger.Debug("event_published", zap.String("topic", string(eventType)), zap.Int("args", len(args)))
	eb.bus.Publish(string(eventType), args...)
}

// WaitAsync 等待异步处理完成
func (eb *EventBus) WaitAsync() {
	eb.bus.WaitAsync()
}

// HasCallback 检查是否有回调
func (eb *EventBus) HasCallback(eventType event.EventType) bool {
	return eb.bus.HasCallback(string(eventType))
}

// PublishedCount 返回主题累计发布次数
func (eb *EventBus) PublishedCount(eventType event.EventType) uint64 {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	return eb.published[eventType]
}

var _ event.EventBus = (*EventBus)(nil)
