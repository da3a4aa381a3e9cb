package api

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/weisyn/memwatch/pkg/types"
)

func TestNew(t *testing.T) {
	t.Run("默认关闭且只监听本机", func(t *testing.T) {
		opts := New(nil).GetOptions()
		assert.False(t, opts.HTTP.Enabled)
		assert.Equal(t, "127.0.0.1:28690", opts.HTTP.Addr())
		assert.True(t, opts.HTTP.EnableMetrics)
	})

	t.Run("用户配置覆盖", func(t *testing.T) {
		cfg := New(&types.UserAPIConfig{HTTPEnabled: types.BoolPtr(true), HTTPPort: types.IntPtr(9000)})
		assert.True(t, cfg.GetOptions().HTTP.Enabled)
		assert.Equal(t, "127.0.0.1:9000", cfg.GetOptions().HTTP.Addr())
		assert.NoError(t, cfg.Validate())
	})

	t.Run("端口非法", func(t *testing.T) {
		cfg := New(&types.UserAPIConfig{HTTPEnabled: types.BoolPtr(true), HTTPPort: types.IntPtr(70000)})
		assert.Error(t, cfg.Validate())

		cfg = New(&types.UserAPIConfig{HTTPPort: types.IntPtr(70000)})
		assert.NoError(t, cfg.Validate(), "未启用时不校验")
	})
}
