package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func unreachable(t *testing.T) *JSONCache {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1, DialTimeout: 100 * time.Millisecond})
	t.Cleanup(func() { client.Close() })
	return New(client, time.Minute)
}

func TestUnavailableRedisSurfacesErrors(t *testing.T) {
	c := unreachable(t)
	ctx := context.Background()

	var dst map[string]int
	ok, err := c.Get(ctx, "dashboard", &dst)
	assert.Error(t, err)
	assert.False(t, ok)

	assert.Error(t, c.Set(ctx, "dashboard", map[string]int{"a": 1}))
	assert.Error(t, c.Delete(ctx, "dashboard"))
}

func TestConnectFails(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := Connect(ctx, "127.0.0.1:1")
	assert.Error(t, err)
}

func TestSetRejectsUnencodable(t *testing.T) {
	c := unreachable(t)
	err := c.Set(context.Background(), "bad", func() {})
	assert.Error(t, err)
}
