package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRedisBrokerClosesClientWhenUnreachable(t *testing.T) {
	var created *redis.Client
	newClient = func(opts *redis.Options) *redis.Client {
		created = redis.NewClient(opts)
		return created
	}
	t.Cleanup(func() { newClient = redis.NewClient })

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	broker, err := NewRedisBroker(ctx, Config{URL: "redis://127.0.0.1:1/0"}, zerolog.Nop())
	require.Error(t, err)
	assert.Nil(t, broker)

	require.NotNil(t, created)
	assert.True(t, errors.Is(created.Ping(context.Background()).Err(), redis.ErrClosed))
}

func TestNewRedisBrokerRejectsBadURL(t *testing.T) {
	_, err := NewRedisBroker(context.Background(), Config{URL: "not-a-url"}, zerolog.Nop())
	assert.ErrorContains(t, err, "parse Redis URL")
}
