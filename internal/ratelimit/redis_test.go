package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisUnreachableReturnsLimitCheckError(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })

	limiter := NewRedis(client, Config{Rate: 6, Burst: 18, Window: time.Minute}, "test:")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := limiter.Check(ctx, "1.2.3.4")
	require.Error(t, err)

	var checkErr *LimitCheckError
	require.True(t, errors.As(err, &checkErr))
	assert.Equal(t, "1.2.3.4", checkErr.Key)
}

func TestRedisDisabledSkipsBackend(t *testing.T) {
	limiter := NewRedis(nil, Config{}, "test:")
	ok, err := limiter.Check(context.Background(), "k")
	require.NoError(t, err)
	assert.True(t, ok)
}
