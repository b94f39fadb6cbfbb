package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mr1hm/go-flood-alerts/internal/models"
)

// CreateDispatch records a pending dispatch. A user may only have one pending
// dispatch at a time; a second returns ErrDuplicate. The insert only happens
// while the user's alert_seq still equals d.UserAlertSeq, otherwise it
// returns ErrStale.
func (s *SQLiteDB) CreateDispatch(ctx context.Context, d *models.Dispatch) error {
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	d.Status = models.DispatchPending

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO alert_dispatches (id, user_id, district_id, level, message, status, created_at, updated_at)
		SELECT ?, ?, ?, ?, ?, ?, ?, ?
		WHERE EXISTS (SELECT 1 FROM users WHERE id = ? AND alert_seq = ?)`,
		d.ID, d.UserID, d.DistrictID, string(d.Level), d.Message, string(d.Status),
		d.CreatedAt.UTC(), d.CreatedAt.UTC(),
		d.UserID, d.UserAlertSeq,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("pending dispatch for user %d: %w", d.UserID, ErrDuplicate)
		}
		return fmt.Errorf("error inserting dispatch: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error reading rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("alert state of user %d: %w", d.UserID, ErrStale)
	}
	return nil
}

func (s *SQLiteDB) FailDispatch(ctx context.Context, id, reason string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE alert_dispatches SET status = ?, error = ?, updated_at = ?
		WHERE id = ? AND status = ?`,
		string(models.DispatchFailed), reason, time.Now().UTC(), id, string(models.DispatchPending),
	)
	if err != nil {
		return fmt.Errorf("error failing dispatch %s: %w", id, err)
	}
	return requireAffected(res, "pending dispatch "+id)
}

func (s *SQLiteDB) CommitDispatch(ctx context.Context, id string, sentAt time.Time) (models.AlertLogEntry, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.AlertLogEntry{}, fmt.Errorf("error starting transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	d, err := scanDispatch(tx.QueryRowContext(ctx, `
		SELECT id, user_id, district_id, level, message, status, error, created_at
		FROM alert_dispatches
		WHERE id = ? AND status = ?`, id, string(models.DispatchPending)))
	if errors.Is(err, sql.ErrNoRows) {
		return models.AlertLogEntry{}, fmt.Errorf("pending dispatch %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return models.AlertLogEntry{}, fmt.Errorf("error loading dispatch %s: %w", id, err)
	}

	entry := d.LogEntry(sentAt.UTC())
	if err := appendAlertLog(ctx, tx, entry); err != nil {
		return models.AlertLogEntry{}, err
	}
	if err := updateUserAlertState(ctx, tx, d.UserID, d.Level, entry.SentAt); err != nil {
		return models.AlertLogEntry{}, err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE alert_dispatches SET status = ?, updated_at = ? WHERE id = ?`,
		string(models.DispatchCommitted), time.Now().UTC(), id,
	)
	if err != nil {
		return models.AlertLogEntry{}, fmt.Errorf("error committing dispatch %s: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return models.AlertLogEntry{}, fmt.Errorf("error committing transaction: %w", err)
	}
	return entry, nil
}

func (s *SQLiteDB) ListPendingDispatches(ctx context.Context) ([]models.Dispatch, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, district_id, level, message, status, error, created_at
		FROM alert_dispatches
		WHERE status = ?
		ORDER BY created_at`, string(models.DispatchPending))
	if err != nil {
		return nil, fmt.Errorf("error listing pending dispatches: %w", err)
	}
	defer rows.Close()

	var out []models.Dispatch
	for rows.Next() {
		d, err := scanDispatch(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning dispatch: %w", err)
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

func scanDispatch(sc rowScanner) (*models.Dispatch, error) {
	var (
		d             models.Dispatch
		level, status string
	)
	err := sc.Scan(&d.ID, &d.UserID, &d.DistrictID, &level, &d.Message, &status, &d.Error, &d.CreatedAt)
	if err != nil {
		return nil, err
	}
	d.Level = models.RiskLevel(level)
	d.Status = models.DispatchStatus(status)
	d.CreatedAt = d.CreatedAt.UTC()
	return &d, nil
}
