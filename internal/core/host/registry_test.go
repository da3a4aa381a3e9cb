package host_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	hostimpl "github.com/weisyn/memwatch/internal/core/host"
	"github.com/weisyn/memwatch/internal/core/host/testutil"
)

func TestRegistry(t *testing.T) {
	r := hostimpl.NewRegistry()
	assert.False(t, r.Attach(nil))

	require.True(t, r.Attach(testutil.NewFakeTarget("b", 0)))
	require.True(t, r.Attach(testutil.NewFakeTarget("a", 0)))
	assert.False(t, r.Attach(testutil.NewFakeTarget("a", 0)), "重复 ID 不覆盖")
	assert.Equal(t, 2, r.Len())

	targets := r.Targets()
	require.Len(t, targets, 2)
	assert.Equal(t, "a", targets[0].ID())
	assert.Equal(t, "b", targets[1].ID())

	got, ok := r.Get("b")
	require.True(t, ok)
	assert.Equal(t, "b", got.ID())

	removed, ok := r.Detach("b")
	require.True(t, ok)
	assert.Equal(t, "b", removed.ID())
	_, ok = r.Detach("b")
	assert.False(t, ok)
	_, ok = r.Get("b")
	assert.False(t, ok)

	stats := r.CollectMemoryStats()
	assert.Equal(t, "host.registry", stats.Module)
	assert.Equal(t, int64(1), stats.Objects)
}
