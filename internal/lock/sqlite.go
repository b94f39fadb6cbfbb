package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/mr1hm/go-flood-alerts/internal/repository"
)

// Table is a Locker backed by a database table, shared by every process
// that opens the same database.
type Table struct {
	store repository.LockRepository
	ttl   time.Duration
	clock clockwork.Clock
}

func NewTable(store repository.LockRepository, ttl time.Duration, clock clockwork.Clock) *Table {
	return &Table{store: store, ttl: ttl, clock: clock}
}

func (t *Table) Acquire(ctx context.Context, key string) (Lease, error) {
	owner := uuid.NewString()
	now := t.clock.Now()

	ok, err := t.store.AcquireLock(ctx, key, owner, now, now.Add(t.ttl))
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock %s: %w", key, err)
	}
	if !ok {
		return nil, ErrLocked
	}
	return &tableLease{store: t.store, key: key, owner: owner}, nil
}

type tableLease struct {
	store repository.LockRepository
	key   string
	owner string
}

func (l *tableLease) Release(ctx context.Context) error {
	return l.store.ReleaseLock(ctx, l.key, l.owner)
}
