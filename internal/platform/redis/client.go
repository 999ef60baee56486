// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package redis provides a managed client for volatile data storage.

It backs the distributed update lock (see tslock) that serializes concurrent
recomputation requests for the same derived node. The HTTP rate limiter does
not use it: its buckets live in process memory.

Core Responsibilities:

  - Volatility: Handles data with TTL (Time-To-Live).
  - Speed: Low-latency access compared to persistent SQL storage.
  - Safety: Manages connection pooling and retry logic automatically.

This infrastructure component sits outside the coordinator and engine's own
state: neither keeps an in-process cache or mutable global.
*/
package redis

import (
	stdctx "context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"

	"github.com/anchorgraph/corestack/internal/platform/constants"
)

// Opiniated default timeouts for Redis operations.
const (
	dialTimeout  = 3 * time.Second
	readTimeout  = 2 * time.Second
	writeTimeout = 2 * time.Second
	pingTimeout  = 2 * time.Second
)

// NewClient parses a Redis URL and returns a ready-to-use client.
//
// # Parameters
//   - context: Context for the initial ping.
//   - redisURL: Redis connection URL.
//   - logger: Structured logger for connection events.
//
// The initial ping is retried with exponential backoff, since Redis may
// still be starting up alongside the API process.
func NewClient(context stdctx.Context, redisURL string, logger *slog.Logger) (*redis.Client, error) {
	options, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis: invalid URL: %w", err)
	}

	// Pool configuration Tuning
	options.PoolSize = 10
	options.MinIdleConns = 2
	options.MaxIdleConns = 5

	options.DialTimeout = dialTimeout
	options.ReadTimeout = readTimeout
	options.WriteTimeout = writeTimeout

	client := redis.NewClient(options)

	// Validate connectivity immediately at startup, retrying on failure.
	pingOp := func() error { return Ping(context, client) }
	backOff := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 10), context)
	notify := func(err error, wait time.Duration) {
		logger.Warn("redis connect retrying", slog.String("error", err.Error()), slog.Duration("wait", wait))
	}

	if err := backoff.RetryNotify(pingOp, backOff, notify); err != nil {
		_ = client.Close()
		return nil, err
	}

	logger.Info("redis client connected",
		slog.String("addr", options.Addr),
		slog.Int("pool_size", options.PoolSize),
	)

	return client, nil
}

// Ping verifies that the Redis client is healthy.
func Ping(context stdctx.Context, client *redis.Client) error {
	pingCtx, cancel := stdctx.WithTimeout(context, pingTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("redis: ping failed: %w", err)
	}

	return nil
}

// keyPrefixes re-exported for callers constructing namespaced keys.
var (
	// UpdateLockPrefix namespaces derived-node recomputation locks.
	UpdateLockPrefix = constants.RedisPrefixUpdateLock
	// RateLimitPrefix is the rate-limit key prefix; the in-memory RateLimit
	// middleware does not read it.
	RateLimitPrefix = constants.RedisPrefixRateLimit
)
