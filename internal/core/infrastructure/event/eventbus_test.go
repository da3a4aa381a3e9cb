package event

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weisyn/memwatch/pkg/types"
)

func TestEventBus(t *testing.T) {
	t.Run("同步订阅与发布", func(t *testing.T) {
		bus := NewEventBus(nil)
		var got string
		handler := func(id string) { got = id }
		require.NoError(t, bus.Subscribe(types.EventTypeTargetDestroyed, handler))
		assert.True(t, bus.HasCallback(types.EventTypeTargetDestroyed))

		bus.Publish(types.EventTypeTargetDestroyed, "tab-7")
		assert.Equal(t, "tab-7", got)
		assert.EqualValues(t, 1, bus.PublishedCount(types.EventTypeTargetDestroyed))

		require.NoError(t, bus.Unsubscribe(types.EventTypeTargetDestroyed, handler))
		assert.False(t, bus.HasCallback(types.EventTypeTargetDestroyed))
	})

	t.Run("异步订阅", func(t *testing.T) {
		bus := NewEventBus(nil)
		var calls atomic.Int32
		require.NoError(t, bus.SubscribeAsync(types.EventTypeSystemResume, func() { calls.Add(1) }, false))

		bus.Publish(types.EventTypeSystemResume)
		bus.Publish(types.EventTypeSystemResume)
		bus.WaitAsync()
		assert.EqualValues(t, 2, calls.Load())
	})

	t.Run("无订阅者发布不报错", func(t *testing.T) {
		bus := NewEventBus(nil)
		bus.Publish(types.EventTypeSystemSleep)
		assert.EqualValues(t, 1, bus.PublishedCount(types.EventTypeSystemSleep))
		assert.Zero(t, bus.PublishedCount(types.EventTypeSystemResume))
	})
}
