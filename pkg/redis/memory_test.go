package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ JSONStore = (*Client)(nil)
var _ JSONStore = (*Memory)(nil)

func TestMemory(t *testing.T) {
	ctx := context.Background()
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewMemory()
	m.now = func() time.Time { return clock }

	var out map[string]int
	found, err := m.GetJSON(ctx, "k", &out)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, m.SetJSON(ctx, "k", map[string]int{"a": 1}, time.Minute))
	found, err = m.GetJSON(ctx, "k", &out)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, map[string]int{"a": 1}, out)

	clock = clock.Add(time.Minute)
	found, err = m.GetJSON(ctx, "k", &out)
	require.NoError(t, err)
	assert.False(t, found, "expired")

	require.NoError(t, m.SetJSON(ctx, "forever", 1, 0))
	require.NoError(t, m.Delete(ctx, "forever"))
	assert.Zero(t, m.Len())
}

func TestMemory_UndecodableEntryIsAMiss(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.SetJSON(ctx, "k", []string{"not", "a", "map"}, 0))

	var out map[string]int
	found, err := m.GetJSON(ctx, "k", &out)
	require.NoError(t, err)
	assert.False(t, found)

	// The entry is gone, so a later read of the right shape misses too.
	var list []string
	found, err = m.GetJSON(ctx, "k", &list)
	require.NoError(t, err)
	assert.False(t, found)
}
