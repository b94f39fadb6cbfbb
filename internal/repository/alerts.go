package repository

import (
	"context"
	"fmt"

	"github.com/mr1hm/go-flood-alerts/internal/models"
)

func appendAlertLog(ctx context.Context, ex execer, e models.AlertLogEntry) error {
	_, err := ex.ExecContext(ctx, `
		INSERT INTO alerts (id, message, user_id, district_id, level, sent_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, e.Message, e.UserID, e.DistrictID, string(e.Level), e.SentAt.UTC(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("alert %s: %w", e.ID, ErrDuplicate)
		}
		return fmt.Errorf("error inserting alert log entry: %w", err)
	}
	return nil
}

// ListAlerts returns the most recent alert log entries, newest first.
func (s *SQLiteDB) ListAlerts(ctx context.Context, limit int) ([]models.AlertLogEntry, error) {
	if limit <= 0 {
		limit = 5
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, message, user_id, district_id, level, sent_at
		FROM alerts
		ORDER BY sent_at DESC, id
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("error listing alerts: %w", err)
	}
	defer rows.Close()

	alerts := make([]models.AlertLogEntry, 0, limit)
	for rows.Next() {
		var (
			e     models.AlertLogEntry
			level string
		)
		if err := rows.Scan(&e.ID, &e.Message, &e.UserID, &e.DistrictID, &level, &e.SentAt); err != nil {
			return nil, fmt.Errorf("error scanning alert: %w", err)
		}
		e.Level = models.RiskLevel(level)
		e.SentAt = e.SentAt.UTC()
		alerts = append(alerts, e)
	}
	return alerts, rows.Err()
}
