package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mr1hm/go-flood-alerts/internal/models"
)

const userColumns = `
	u.id, u.name, u.email, u.last_latitude, u.last_longitude,
	u.last_district_id, COALESCE(d.name, ''), u.last_risk_level,
	u.last_alert_sent_at, u.alert_seq, u.created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *SQLiteDB) CreateUser(ctx context.Context, u *models.User) error {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users (name, email, created_at) VALUES (?, ?, ?)`,
		u.Name, u.Email, u.CreatedAt.UTC(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("user %s: %w", u.Email, ErrDuplicate)
		}
		return fmt.Errorf("error inserting user: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("error reading user id: %w", err)
	}
	u.ID = id
	return nil
}

// GetUser returns nil, nil when the user does not exist.
func (s *SQLiteDB) GetUser(ctx context.Context, id int64) (*models.User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+userColumns+`
		FROM users u
		LEFT JOIN districts d ON d.id = u.last_district_id
		WHERE u.id = ?`, id)

	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error getting user %d: %w", id, err)
	}
	return u, nil
}

func (s *SQLiteDB) UpdateUserLocation(ctx context.Context, userID int64, lat, lon float64, districtID int64) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET last_latitude = ?, last_longitude = ?, last_district_id = ?
		WHERE id = ?`,
		lat, lon, districtID, userID,
	)
	if err != nil {
		return fmt.Errorf("error updating location for user %d: %w", userID, err)
	}
	return requireAffected(res, fmt.Sprintf("user %d", userID))
}

func (s *SQLiteDB) ListUsersWithTrackedDistrict(ctx context.Context) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+userColumns+`
		FROM users u
		JOIN districts d ON d.id = u.last_district_id
		WHERE u.last_district_id IS NOT NULL
		ORDER BY u.id`)
	if err != nil {
		return nil, fmt.Errorf("error listing users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

func updateUserAlertState(ctx context.Context, ex execer, userID int64, level models.RiskLevel, sentAt time.Time) error {
	res, err := ex.ExecContext(ctx, `
		UPDATE users SET last_risk_level = ?, last_alert_sent_at = ?, alert_seq = alert_seq + 1
		WHERE id = ?`,
		string(level), sentAt.UTC(), userID,
	)
	if err != nil {
		return fmt.Errorf("error updating alert state for user %d: %w", userID, err)
	}
	return requireAffected(res, fmt.Sprintf("user %d", userID))
}

func scanUser(sc rowScanner) (*models.User, error) {
	var (
		u          models.User
		lat, lon   sql.NullFloat64
		districtID sql.NullInt64
		lastLevel  sql.NullString
		lastSent   sql.NullTime
	)

	err := sc.Scan(
		&u.ID, &u.Name, &u.Email, &lat, &lon,
		&districtID, &u.TrackedDistrictName, &lastLevel,
		&lastSent, &u.AlertSeq, &u.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	u.LastLatitude = nullFloatPtr(lat)
	u.LastLongitude = nullFloatPtr(lon)
	u.TrackedDistrictID = nullInt64Ptr(districtID)
	u.LastAlertSentAt = nullTimePtr(lastSent)
	if lastLevel.Valid && lastLevel.String != "" {
		level := models.RiskLevel(lastLevel.String)
		u.LastRiskLevel = &level
	}
	return &u, nil
}

func requireAffected(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error reading rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return nil
}
