package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mr1hm/go-flood-alerts/internal/models"
)

func (s *SQLiteDB) AddWeatherReading(ctx context.Context, r *models.WeatherReading) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO weather_readings (district_id, temp_c, humidity, wind_speed, description, observed_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		r.DistrictID, r.TempC, r.Humidity, r.WindSpeed, r.Description, r.ObservedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("error inserting weather reading: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("error reading weather reading id: %w", err)
	}
	r.ID = id
	return nil
}

func (s *SQLiteDB) AddAssessment(ctx context.Context, a *models.RiskAssessment) error {
	if !a.Level.Valid() {
		return fmt.Errorf("invalid risk level: %q", a.Level)
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO risk_assessments (district_id, level, score, assessed_at)
		VALUES (?, ?, ?, ?)`,
		a.DistrictID, string(a.Level), a.Score, a.AssessedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("error inserting risk assessment: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("error reading risk assessment id: %w", err)
	}
	a.ID = id
	return nil
}

// LatestAssessment returns nil, nil when the district has never been assessed.
func (s *SQLiteDB) LatestAssessment(ctx context.Context, districtID int64) (*models.RiskAssessment, error) {
	var (
		a     models.RiskAssessment
		level string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, district_id, level, score, assessed_at
		FROM risk_assessments
		WHERE district_id = ?
		ORDER BY assessed_at DESC, id DESC
		LIMIT 1`, districtID,
	).Scan(&a.ID, &a.DistrictID, &level, &a.Score, &a.AssessedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error getting latest assessment for district %d: %w", districtID, err)
	}

	a.Level = models.RiskLevel(level)
	a.AssessedAt = a.AssessedAt.UTC()
	return &a, nil
}
