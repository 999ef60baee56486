// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package tslock provides a distributed per-node-id lock used to serialize
concurrent recomputation requests against the same derived-quantity node.

# Architecture

The derived-quantity engine itself keeps no mutable global state: two
concurrent update requests for the same node would otherwise race the
dependency read, the agent call, and the output reconciliation against each
other. The HTTP handler layer acquires a [Lock] before calling
derived.Engine.Update and releases it afterward, using Redis's atomic SETNX
as the mutual-exclusion primitive.

This package does not implement a fair queue: a caller that cannot acquire
the lock is expected to fail fast with a 409-class error rather than block,
matching the reconciliation semantics of the engine it guards.
*/
package tslock

import (
	stdctx "context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/anchorgraph/corestack/internal/platform/constants"
)

// ErrLocked is returned by [Acquire] when another holder already owns the
// lock for the given node identifier.
var ErrLocked = errors.New("tslock: node is locked by another update")

// Locker acquires and releases per-node-id distributed locks.
type Locker struct {
	client *redis.Client
}

// New constructs a [Locker] backed by the given Redis client.
func New(client *redis.Client) *Locker {
	return &Locker{client: client}
}

// Lock represents a held lock. Callers must call [Lock.Release] exactly
// once, typically via defer, regardless of the outcome of the guarded
// operation.
type Lock struct {
	client *redis.Client
	key    string
	token  string
}

// Acquire attempts to take the lock for nodeID. It returns [ErrLocked] if
// another caller already holds it.
func (l *Locker) Acquire(ctx stdctx.Context, nodeID string) (*Lock, error) {
	key := constants.RedisPrefixUpdateLock + nodeID
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, constants.UpdateLockTTL).Result()
	if err != nil {
		return nil, fmt.Errorf("tslock: acquire failed: %w", err)
	}
	if !ok {
		return nil, ErrLocked
	}

	return &Lock{client: l.client, key: key, token: token}, nil
}

// releaseScript deletes the lock key only if it still holds our token,
// preventing a slow holder from releasing a lock another caller has since
// acquired after this one's TTL expired.
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end
`

// Release frees the lock if it is still owned by this holder.
func (lk *Lock) Release(ctx stdctx.Context) error {
	if err := lk.client.Eval(ctx, releaseScript, []string{lk.key}, lk.token).Err(); err != nil {
		return fmt.Errorf("tslock: release failed: %w", err)
	}
	return nil
}
