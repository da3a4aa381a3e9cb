package log

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	logconfig "github.com/weisyn/memwatch/internal/config/log"
)

func TestFileLogging(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "logs", "memwatch.log")

	logger, err := New(logconfig.New(nil).WithFile(path))
	require.NoError(t, err)

	logger.With("module", "telemetry", "target", "tab-1").Info("memory_sample")
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	line := strings.TrimSpace(strings.Split(string(data), "\n")[0])
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(line), &entry), "文件日志应为JSON格式")
	assert.Equal(t, "memory_sample", entry["message"])
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "telemetry", entry["module"])
	assert.Equal(t, "tab-1", entry["target"])
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(logconfig.NewFromOptions(&logconfig.LogOptions{Level: "loud"}))
	assert.Error(t, err)
}

func TestWithFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := NewFromZap(zap.New(core))

	logger.With("a", 1, "dangling").Warnf("压力等级 %s", "high")

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "压力等级 high", entry.Message)
	assert.Equal(t, zapcore.WarnLevel, entry.Level)
	fields := entry.ContextMap()
	assert.EqualValues(t, 1, fields["a"])
	assert.NotContains(t, fields, "dangling", "奇数个参数时丢弃最后一个")
}

func TestModuleLoggers(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	base := zap.New(core)

	NewModuleZapLogger(base, "leak").Info("leak_detected")
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "leak", logs.All()[0].ContextMap()["module"])

	assert.NotNil(t, NewModuleZapLogger(nil, "leak"), "nil 基础记录器应返回 Nop")
}

func TestCallerLocation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memwatch.log")
	logger, err := New(logconfig.New(nil).WithFile(path))
	require.NoError(t, err)

	logger.GetZapLogger().Info("zap_direct")
	NewModuleZapLogger(logger.GetZapLogger(), "telemetry").Info("module_child")
	logger.Info("sugar")
	logger.With("k", "v").Infof("sugar_%s", "with")
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 4)
	for _, line := range lines {
		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		caller, _ := entry["caller"].(string)
		assert.True(t, strings.HasPrefix(caller, "log/log_test.go:"), "%s 的调用位置为 %q", entry["message"], caller)
	}
}

func TestProvideServices(t *testing.T) {
	t.Run("无配置时使用默认值", func(t *testing.T) {
		out, err := ProvideServices(ModuleParams{})
		require.NoError(t, err)
		require.NotNil(t, out.Logger)
		assert.Same(t, out.Logger.GetZapLogger(), out.ZapLogger)
	})

	t.Run("非法级别", func(t *testing.T) {
		_, err := ProvideServices(ModuleParams{Options: &logconfig.LogOptions{Level: "loud"}})
		assert.Error(t, err)
	})
}
