// Package lock serializes whole alert engine runs, in-process, across
// processes sharing a database file, or across instances sharing a Redis.
package lock

import (
	"context"
	"errors"
)

// ErrLocked is returned by Acquire when the key is already held.
var ErrLocked = errors.New("lock already held")

type Locker interface {
	Acquire(ctx context.Context, key string) (Lease, error)
}

type Lease interface {
	Release(ctx context.Context) error
}
