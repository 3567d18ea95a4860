package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

func TestNilLimiterAllows(t *testing.T) {
	limiter := NewRedisLimiter(nil, 1, time.Minute, "login", zaptest.NewLogger(t))
	assert.Nil(t, limiter)

	assert.True(t, limiter.Allow(context.Background(), "acme:a@acme.test"))
	limiter.Reset(context.Background(), "acme:a@acme.test")
}

func TestDisabledLimitAllows(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	defer client.Close()

	limiter := NewRedisLimiter(client, 0, time.Minute, "login", zaptest.NewLogger(t))
	assert.True(t, limiter.Allow(context.Background(), "acme:a@acme.test"))
	assert.True(t, limiter.Allow(context.Background(), ""))
}

func TestUnreachableRedisFailsOpen(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	core, recorded := observer.New(zap.WarnLevel)
	limiter := NewRedisLimiter(client, 1, time.Minute, "login", zap.New(core))

	assert.True(t, limiter.Allow(context.Background(), "acme:a@acme.test"))
	assert.True(t, limiter.Allow(context.Background(), "acme:a@acme.test"))
	assert.Equal(t, 2, recorded.FilterMessage("rate limiter unavailable, allowing attempt").Len())
}

func TestKeyPrefix(t *testing.T) {
	limiter := &RedisLimiter{prefix: "login"}
	assert.Equal(t, "login:acme:a", limiter.key("acme:a"))

	limiter.prefix = ""
	assert.Equal(t, "acme:a", limiter.key("acme:a"))
}
