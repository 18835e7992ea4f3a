package resultcache

import (
	"context"
	"os"
	"testing"
	"time"

	"geo-cluster/internal/kcenter"
	"geo-cluster/internal/points"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ kcenter.ResultCache = (*Redis)(nil)

func TestKey(t *testing.T) {
	assert.Equal(t, "geocluster:kcenter:00000000000000ff:3", Key(255, 3))
}

func TestNilClientAlwaysMisses(t *testing.T) {
	c := New(nil, 0)
	c.Put(context.Background(), 1, 2, kcenter.Result{Radius: 1})
	_, ok := c.Get(context.Background(), 1, 2)
	assert.False(t, ok)
}

func TestUnreachableRedisMisses(t *testing.T) {
	rc := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond, MaxRetries: -1})
	defer rc.Close()
	c := New(rc, time.Minute)
	c.Put(context.Background(), 1, 2, kcenter.Result{Radius: 1})
	_, ok := c.Get(context.Background(), 1, 2)
	assert.False(t, ok)
}

// 需要可用的 Redis：REDIS_TEST_ADDR=127.0.0.1:6379
func TestRoundTrip(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	rc := redis.NewClient(&redis.Options{Addr: addr})
	defer rc.Close()
	c := New(rc, time.Minute)
	ctx := context.Background()

	want := kcenter.Result{
		Indices:   []int{0, 2},
		Centers:   []points.Center{{X: 0, Y: 0}, {X: 10, Y: 0}},
		Radius:    1,
		Cover:     kcenter.Coverage{Radius: 1, Point: 1, Center: 0},
		Evaluated: 6,
	}
	fp := uint64(time.Now().UnixNano())
	c.Put(ctx, fp, 2, want)
	got, ok := c.Get(ctx, fp, 2)
	require.True(t, ok)
	assert.Equal(t, want, got)
	_ = rc.Del(ctx, Key(fp, 2)).Err()
}
