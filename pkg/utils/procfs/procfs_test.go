package procfs

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRSS(t *testing.T) {
	t.Run("正常解析", func(t *testing.T) {
		status := "Name:\tcat\nVmPeak:\t  9000 kB\nVmRSS:\t  2048 kB\nThreads:\t1\n"
		rss, err := ParseRSS(strings.NewReader(status))
		require.NoError(t, err)
		assert.Equal(t, uint64(2048*1024), rss)
	})

	t.Run("缺少字段", func(t *testing.T) {
		_, err := ParseRSS(strings.NewReader("Name:\tkthreadd\n"))
		assert.ErrorIs(t, err, ErrFieldMissing)
	})

	t.Run("格式错误", func(t *testing.T) {
		_, err := ParseRSS(strings.NewReader("VmRSS:\tabc kB\n"))
		assert.Error(t, err)
	})
}

func TestParseCPUTicks(t *testing.T) {
	t.Run("comm 含空格和括号", func(t *testing.T) {
		stat := "1234 (my (odd) proc) S 1 1234 1234 0 -1 4194560 100 0 0 0 250 50 0 0 20 0 1 0 100 1000 10"
		ticks, err := ParseCPUTicks(stat)
		require.NoError(t, err)
		assert.Equal(t, uint64(300), ticks)
	})

	t.Run("字段不足", func(t *testing.T) {
		_, err := ParseCPUTicks("1 (init) S 0 1")
		assert.ErrorIs(t, err, ErrFieldMissing)
	})

	t.Run("没有 comm", func(t *testing.T) {
		_, err := ParseCPUTicks("garbage")
		assert.Error(t, err)
	})
}

func TestPaths(t *testing.T) {
	assert.Equal(t, "/proc/self/status", StatusPath(0))
	assert.Equal(t, "/proc/42/stat", StatPath(42))
}
