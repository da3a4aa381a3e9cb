package types

// EventType 事件总线主题
type EventType string

// 宿主生命周期与修复相关主题
const (
	EventTypeSystemSleep     EventType = "system:sleep"
	EventTypeSystemResume    EventType = "system:resume"
	EventTypeTargetAttached  EventType = "target:attached"
	EventTypeTargetDestroyed EventType = "target:destroyed"
	EventTypeRemediation     EventType = "memwatch:remediation"
	EventTypeLeakDetected    EventType = "memwatch:leak_detected"
	EventTypePressureChanged EventType = "memwatch:pressure_changed"
)
