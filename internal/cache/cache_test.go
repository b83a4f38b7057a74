package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	Name string `json:"name"`
}

func TestMemory_SetGetInvalidate(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(8, time.Minute)

	_, ok, err := c.Get(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "a", []byte("1")))
	v, ok, err := c.Get(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("1"), v)

	require.NoError(t, c.Invalidate(ctx, "a", "missing"))
	_, ok, _ = c.Get(ctx, "a")
	assert.False(t, ok)
}

func TestMemory_Expires(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(8, 10*time.Millisecond)
	require.NoError(t, c.Set(ctx, "a", []byte("1")))

	assert.Eventually(t, func() bool {
		_, ok, _ := c.Get(ctx, "a")
		return !ok
	}, time.Second, 5*time.Millisecond)
}

func TestGetOrLoad(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(8, time.Minute)
	calls := 0
	load := func(context.Context) (*item, error) {
		calls++
		return &item{Name: "foo"}, nil
	}

	for i := 0; i < 3; i++ {
		v, err := GetOrLoad(ctx, c, "k", load)
		require.NoError(t, err)
		assert.Equal(t, "foo", v.Name)
	}
	assert.Equal(t, 1, calls)
}

func TestGetOrLoad_DoesNotCacheAbsenceOrErrors(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(8, time.Minute)

	v, err := GetOrLoad(ctx, c, "nil", func(context.Context) (*item, error) { return nil, nil })
	require.NoError(t, err)
	assert.Nil(t, v)
	assert.Equal(t, 0, c.Len())

	boom := errors.New("boom")
	_, err = GetOrLoad(ctx, c, "err", func(context.Context) (*item, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, c.Len())
}

func TestGetJSON_CorruptEntryIsAMiss(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(8, time.Minute)
	require.NoError(t, c.Set(ctx, "k", []byte("{")))

	_, ok, err := GetJSON[item](ctx, c, "k")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}
