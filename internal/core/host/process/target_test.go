//go:build linux

package process

import (
	"context"
	"os"
	"os/exec"
	"os/signal"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	clockimpl "github.com/weisyn/memwatch/internal/core/infrastructure/clock"
	"github.com/weisyn/memwatch/pkg/interfaces/host"
)

func TestTargetSelf(t *testing.T) {
	ctx := context.Background()
	clk := clockimpl.NewMockClock(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	target, err := NewTarget(os.Getpid(), Options{}, clk)
	require.NoError(t, err)

	t.Run("默认标识与状态", func(t *testing.T) {
		assert.Equal(t, "pid-"+strconv.Itoa(os.Getpid()), target.ID())
		assert.False(t, target.Destroyed())
	})

	t.Run("读取RSS", func(t *testing.T) {
		rss, err := target.ProcessMemory(ctx)
		require.NoError(t, err)
		assert.Greater(t, rss, uint64(0))
	})

	t.Run("CPU首次为0，之后按时间差计算", func(t *testing.T) {
		cpu, err := target.CPUPercent(ctx)
		require.NoError(t, err)
		assert.Zero(t, cpu)

		clk.Advance(time.Second)
		cpu, err = target.CPUPercent(ctx)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, cpu, 0.0)
	})

	t.Run("未映射的查询不支持", func(t *testing.T) {
		_, err := target.Query(ctx, host.Query{Kind: host.QueryDOMSize})
		assert.ErrorIs(t, err, host.ErrQueryUnsupported)
	})
}

func TestTargetSignals(t *testing.T) {
	ctx := context.Background()
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, unix.SIGUSR1, unix.SIGUSR2)
	t.Cleanup(func() { signal.Stop(ch) })

	target, err := NewTarget(os.Getpid(), Options{
		ID:           "self",
		ReloadSignal: unix.SIGUSR1,
		QuerySignals: map[host.QueryKind]unix.Signal{host.QueryRequestGC: unix.SIGUSR2},
	}, clockimpl.NewSystemClock())
	require.NoError(t, err)

	require.NoError(t, target.Reload(ctx))
	select {
	case sig := <-ch:
		assert.Equal(t, unix.SIGUSR1, sig)
	case <-time.After(time.Second):
		t.Fatal("reload signal not delivered")
	}

	_, err = target.Query(ctx, host.Query{Kind: host.QueryRequestGC})
	require.NoError(t, err)
	select {
	case sig := <-ch:
		assert.Equal(t, unix.SIGUSR2, sig)
	case <-time.After(time.Second):
		t.Fatal("query signal not delivered")
	}
}

func TestTargetExitedProcess(t *testing.T) {
	cmd := exec.Command("sleep", "30")
	if err := cmd.Start(); err != nil {
		t.Skipf("cannot start helper process: %v", err)
	}
	target, err := NewTarget(cmd.Process.Pid, Options{}, clockimpl.NewSystemClock())
	require.NoError(t, err)

	require.NoError(t, cmd.Process.Kill())
	_ = cmd.Wait()

	assert.True(t, target.Destroyed())
	_, err = target.ProcessMemory(context.Background())
	assert.ErrorIs(t, err, host.ErrTargetGone)
	assert.ErrorIs(t, target.Reload(context.Background()), host.ErrTargetGone)
}

func TestNewTargetErrors(t *testing.T) {
	_, err := NewTarget(0, Options{}, clockimpl.NewSystemClock())
	assert.Error(t, err)
}

func TestParseSignal(t *testing.T) {
	for _, name := range []string{"HUP", "SIGHUP", "sighup", " hup "} {
		sig, err := ParseSignal(name)
		require.NoError(t, err, name)
		assert.Equal(t, unix.SIGHUP, sig)
	}
	_, err := ParseSignal("NOPE")
	assert.Error(t, err)
}

