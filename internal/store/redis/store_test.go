package redis

import (
	"context"
	"testing"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"github.com/MrSnakeDoc/linkdex/internal/store/kv"
)

func TestEscapeGlob(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"page:https://x.test/a:", "page:https://x.test/a:"},
		{"page:https://x.test/a?b=1:", `page:https://x.test/a\?b=1:`},
		{"page:https://x.test/[x]*:", `page:https://x.test/\[x\]\*:`},
	}
	for _, tt := range tests {
		if got := escapeGlob(tt.in); got != tt.want {
			t.Errorf("escapeGlob(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestOptionsValidate(t *testing.T) {
	ok := ConnectOptions{ConnectTimeout: 1, RetryInterval: 1, MaxWait: 1, PingTimeout: 1}
	assert.NoError(t, ok.validate())

	bad := ok
	bad.MaxWait = 0
	assert.Error(t, bad.validate())

	bad = ok
	bad.WarnThreshold = -1
	assert.Error(t, bad.validate())
}

func newContainerStore(t *testing.T) *Store {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping redis container test in short mode")
	}

	ctx := context.Background()
	container, err := tcredis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	client := goredis.NewClient(&goredis.Options{Addr: endpoint})
	s := NewStore(client, "test:")
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Ping(ctx))
	return s
}

func TestStore_Contract(t *testing.T) {
	s := newContainerStore(t)
	ctx := context.Background()
	var _ kv.Store = s

	_, ok, err := s.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.SetMany(ctx, map[string]string{
		"page:https://x.test/a?b=1:page": `{"url":"https://x.test/a?b=1"}`,
		"page:https://x.test/a?b=1:viewCount": "3",
		"page:https://x.test/ab:page":         "other",
	}))

	got, err := s.Scan(ctx, "page:https://x.test/a?b=1:")
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, "3", got["page:https://x.test/a?b=1:viewCount"])

	require.NoError(t, s.ReplacePrefix(ctx, "page:https://x.test/a?b=1:", map[string]string{
		"page:https://x.test/a?b=1:viewCount": "0",
	}))
	got, err = s.Scan(ctx, "page:https://x.test/a?b=1:")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"page:https://x.test/a?b=1:viewCount": "0"}, got)

	v, ok, err := s.Get(ctx, "page:https://x.test/ab:page")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "other", v)

	require.NoError(t, s.Delete(ctx, "page:https://x.test/ab:page"))
	_, ok, err = s.Get(ctx, "page:https://x.test/ab:page")
	require.NoError(t, err)
	assert.False(t, ok)
}
