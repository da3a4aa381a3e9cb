package telemetry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weisyn/memwatch/pkg/types"
)

var epoch = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func TestStore(t *testing.T) {
	t.Run("首个样本增量为0", func(t *testing.T) {
		s := NewStore(60)
		first := s.Append("tab", epoch, 100*mib)
		second := s.Append("tab", epoch.Add(30*time.Second), 90*mib)
		assert.Zero(t, first.DeltaFromPrevious)
		assert.Equal(t, int64(-10*mib), second.DeltaFromPrevious)
	})

	t.Run("样本环有界且保留最新", func(t *testing.T) {
		s := NewStore(60)
		for i := 0; i < 75; i++ {
			s.Append("tab", epoch.Add(time.Duration(i)*time.Second), uint64(i))
		}
		samples := s.Samples("tab")
		require.Len(t, samples, 60)
		assert.Equal(t, uint64(15), samples[0].MemoryBytes)
		assert.Equal(t, uint64(74), samples[59].MemoryBytes)
		for i := 1; i < len(samples); i++ {
			assert.True(t, samples[i].Timestamp.After(samples[i-1].Timestamp))
		}
	})

	t.Run("时间戳不回退", func(t *testing.T) {
		s := NewStore(10)
		s.Append("tab", epoch, 1)
		got := s.Append("tab", epoch.Add(-time.Minute), 2)
		assert.Equal(t, epoch, got.Timestamp)
	})

	t.Run("修复时间只向前推进", func(t *testing.T) {
		s := NewStore(10)
		s.Append("tab", epoch, 100)
		s.MarkRemediated("tab", epoch.Add(10*time.Minute))
		s.MarkRemediated("tab", epoch.Add(5*time.Minute))

		st, ok := s.State("tab")
		require.True(t, ok)
		assert.Equal(t, epoch.Add(10*time.Minute), st.LastRemediationAt)
		assert.Equal(t, 2, st.RemediationCount)
		assert.Empty(t, st.Samples)
		assert.Equal(t, types.DecisionTriggered, st.DecisionState)
	})

	t.Run("清理时间独立推进", func(t *testing.T) {
		s := NewStore(10)
		s.Ensure("tab")
		s.MarkCleanedUp("tab", epoch.Add(time.Minute))
		s.MarkCleanedUp("tab", epoch)
		st, _ := s.State("tab")
		assert.Equal(t, epoch.Add(time.Minute), st.LastCleanupAt)
		assert.True(t, st.LastRemediationAt.IsZero())
	})

	t.Run("增长速率与预测", func(t *testing.T) {
		s := NewStore(10)
		s.Ensure("tab")
		at := epoch.Add(time.Hour)
		s.SetGrowth("tab", 1024, &at)
		st, _ := s.State("tab")
		require.NotNil(t, st.PredictedExhaustionAt)
		assert.Equal(t, at, *st.PredictedExhaustionAt)

		s.SetGrowth("tab", -1, nil)
		st, _ = s.State("tab")
		assert.Nil(t, st.PredictedExhaustionAt)
		assert.Equal(t, float64(-1), st.GrowthRateBytesPerMinute)
	})

	t.Run("移除与重置", func(t *testing.T) {
		s := NewStore(10)
		assert.True(t, s.Ensure("a"))
		assert.False(t, s.Ensure("a"))
		s.Append("b", epoch, 1)
		assert.Equal(t, []string{"a", "b"}, s.IDs())

		assert.True(t, s.Remove("a"))
		assert.False(t, s.Remove("a"))
		assert.False(t, s.Has("a"))

		s.Reset()
		assert.Zero(t, s.Len())
		assert.Empty(t, s.States())
	})

	t.Run("自身占用上报", func(t *testing.T) {
		s := NewStore(60)
		s.Append("a", epoch, 1)
		s.Append("a", epoch, 2)
		s.Append("b", epoch, 1)
		stats := s.CollectMemoryStats()
		assert.Equal(t, "telemetry.store", stats.Module)
		assert.Equal(t, int64(2), stats.Objects)
		assert.Equal(t, int64(3), stats.QueueLength)
		assert.Positive(t, stats.ApproxBytes)
	})
}
