package repository

import (
	"context"
	"fmt"
	"time"
)

// AcquireLock claims name for owner until expiresAt. It succeeds when the
// lock is free or its previous lease expired at or before now, and reports
// false without error when someone else holds it.
func (s *SQLiteDB) AcquireLock(ctx context.Context, name, owner string, now, expiresAt time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO locks (name, owner, expires_at) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET owner = excluded.owner, expires_at = excluded.expires_at
		WHERE locks.expires_at <= ?`,
		name, owner, expiresAt.UnixNano(), now.UnixNano(),
	)
	if err != nil {
		return false, fmt.Errorf("error acquiring lock %s: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("error reading rows affected: %w", err)
	}
	return n == 1, nil
}

// ReleaseLock drops the lock only while owner still holds it.
func (s *SQLiteDB) ReleaseLock(ctx context.Context, name, owner string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM locks WHERE name = ? AND owner = ?`, name, owner)
	if err != nil {
		return fmt.Errorf("error releasing lock %s: %w", name, err)
	}
	return nil
}
