package main

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trackitnow-backend/internal/config"
)

func TestFlagOr(t *testing.T) {
	assert.Equal(t, "9000", flagOr("9000", "8000"))
	assert.Equal(t, "8000", flagOr("", "8000"))
	assert.Equal(t, "http://notify.test/api", flagOr("", "http://notify.test/api"))
}

func TestOptionsHealthChecks(t *testing.T) {
	rt := &backends{cfg: config.Config{RateLimitPerMinute: 10}, logger: zerolog.Nop()}
	assert.Empty(t, rt.options().Checks)

	mr := miniredis.RunT(t)
	rt.redis = redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rt.redis.Close() })

	opts := rt.options()
	require.Len(t, opts.Checks, 1)
	assert.Equal(t, 10, opts.RateLimitPerMinute)
	assert.NoError(t, opts.Checks[0](context.Background()))

	mr.Close()
	assert.Error(t, opts.Checks[0](context.Background()))
}
