package main

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weisyn/memwatch/internal/core/leak"
	"github.com/weisyn/memwatch/pkg/types"
)

const mib = 1 << 20

func TestParseSeries(t *testing.T) {
	t.Run("带目标名的对象", func(t *testing.T) {
		s, err := parseSeries([]byte(`{"target_id":"tab","samples":[
			{"timestamp":"2024-05-01T12:00:00Z","memory_bytes":100},
			{"timestamp":"2024-05-01T12:00:30Z","memory_bytes":160}]}`), time.Second)
		require.NoError(t, err)
		assert.Equal(t, "tab", s.TargetID)
		require.Len(t, s.Samples, 2)
		assert.Equal(t, int64(60), s.Samples[1].DeltaFromPrevious)
	})

	t.Run("样本数组", func(t *testing.T) {
		s, err := parseSeries([]byte(`[{"timestamp":"2024-05-01T12:00:00Z","memory_bytes":100}]`), time.Second)
		require.NoError(t, err)
		assert.Equal(t, "series", s.TargetID)
		assert.Len(t, s.Samples, 1)
	})

	t.Run("数值数组按间隔展开", func(t *testing.T) {
		s, err := parseSeries([]byte(`[300, 200, 250]`), 10*time.Second)
		require.NoError(t, err)
		require.Len(t, s.Samples, 3)
		assert.Equal(t, 20*time.Second, s.Samples[2].Timestamp.Sub(s.Samples[0].Timestamp))
		assert.Equal(t, int64(-100), s.Samples[1].DeltaFromPrevious)
		for i, smp := range s.Samples {
			assert.Equal(t, time.Unix(int64(i)*10, 0).UTC(), smp.Timestamp)
			assert.NotZero(t, smp.MemoryBytes)
		}
	})

	t.Run("数值数组的采样率只由数值决定", func(t *testing.T) {
		values := make([]uint64, 12)
		for i := range values {
			values[i] = uint64(100+15*i) * mib
		}
		data, err := json.Marshal(values)
		require.NoError(t, err)

		s, err := parseSeries(data, 30*time.Second)
		require.NoError(t, err)
		require.Len(t, s.Samples, 12)
		assert.Equal(t, values[0], s.Samples[0].MemoryBytes)
		assert.InDelta(t, 2.0, leak.SamplesPerMinute(s.Samples), 0.01)
	})

	t.Run("非法内容", func(t *testing.T) {
		_, err := parseSeries([]byte(`  `), time.Second)
		assert.Error(t, err)
		_, err = parseSeries([]byte(`["x"]`), time.Second)
		assert.Error(t, err)
	})
}

func TestClassifySeries(t *testing.T) {
	values := make([]uint64, 12)
	for i := range values {
		values[i] = uint64(100+15*i) * mib
	}
	samples := make([]types.MemorySample, len(values))
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for i, v := range values {
		samples[i] = types.MemorySample{Timestamp: start.Add(time.Duration(i) * 30 * time.Second), MemoryBytes: v}
	}

	res := classifySeries(leak.NewClassifier(leak.DefaultConfig()), SeriesFile{TargetID: "tab", Samples: samples})
	assert.Equal(t, 12, res.Samples)
	assert.Len(t, res.Detections, 4)
	require.NotNil(t, res.Pattern)
	assert.Equal(t, types.LeakSteadyGrowth, res.Pattern.Type)
	assert.Equal(t, samples[11].Timestamp, res.Pattern.DetectedAt)

	short := classifySeries(leak.NewClassifier(leak.DefaultConfig()), SeriesFile{TargetID: "tab", Samples: samples[:3]})
	assert.Empty(t, short.Detections)
	assert.Nil(t, short.Pattern)
}
