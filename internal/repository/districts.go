package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mr1hm/go-flood-alerts/internal/models"
)

// DefaultDistricts seeds an empty database.
var DefaultDistricts = []models.District{
	{Name: "Aluva", Latitude: 10.1076, Longitude: 76.3516},
}

func (s *SQLiteDB) AddDistrict(ctx context.Context, d *models.District) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO districts (name, latitude, longitude) VALUES (?, ?, ?)`,
		d.Name, d.Latitude, d.Longitude,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("district %s: %w", d.Name, ErrDuplicate)
		}
		return fmt.Errorf("error inserting district: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("error reading district id: %w", err)
	}
	d.ID = id
	return nil
}

// EnsureDistricts inserts any of the given districts not already present by name.
func (s *SQLiteDB) EnsureDistricts(ctx context.Context, districts []models.District) error {
	for _, d := range districts {
		if err := s.AddDistrict(ctx, &d); err != nil && !errors.Is(err, ErrDuplicate) {
			return fmt.Errorf("error seeding district %s: %w", d.Name, err)
		}
	}
	return nil
}

// GetDistrict returns nil, nil when the district does not exist.
func (s *SQLiteDB) GetDistrict(ctx context.Context, id int64) (*models.District, error) {
	var d models.District
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, latitude, longitude FROM districts WHERE id = ?`, id,
	).Scan(&d.ID, &d.Name, &d.Latitude, &d.Longitude)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error getting district %d: %w", id, err)
	}
	return &d, nil
}

func (s *SQLiteDB) ListDistricts(ctx context.Context) ([]models.District, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, latitude, longitude FROM districts ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("error listing districts: %w", err)
	}
	defer rows.Close()

	var districts []models.District
	for rows.Next() {
		var d models.District
		if err := rows.Scan(&d.ID, &d.Name, &d.Latitude, &d.Longitude); err != nil {
			return nil, fmt.Errorf("error scanning district: %w", err)
		}
		districts = append(districts, d)
	}
	return districts, rows.Err()
}

// ListDistrictRisks pairs every district with its newest assessment, if any.
func (s *SQLiteDB) ListDistrictRisks(ctx context.Context) ([]models.DistrictRisk, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT d.id, d.name, d.latitude, d.longitude,
		       r.id, r.level, r.score, r.assessed_at
		FROM districts d
		LEFT JOIN risk_assessments r ON r.id = (
			SELECT id FROM risk_assessments
			WHERE district_id = d.id
			ORDER BY assessed_at DESC, id DESC
			LIMIT 1
		)
		ORDER BY d.name`)
	if err != nil {
		return nil, fmt.Errorf("error listing district risks: %w", err)
	}
	defer rows.Close()

	var out []models.DistrictRisk
	for rows.Next() {
		var (
			dr         models.DistrictRisk
			riskID     sql.NullInt64
			level      sql.NullString
			score      sql.NullFloat64
			assessedAt sql.NullTime
		)
		err := rows.Scan(
			&dr.District.ID, &dr.District.Name, &dr.District.Latitude, &dr.District.Longitude,
			&riskID, &level, &score, &assessedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("error scanning district risk: %w", err)
		}
		if riskID.Valid {
			dr.Latest = &models.RiskAssessment{
				ID:         riskID.Int64,
				DistrictID: dr.District.ID,
				Level:      models.RiskLevel(level.String),
				Score:      score.Float64,
				AssessedAt: assessedAt.Time.UTC(),
			}
		}
		out = append(out, dr)
	}
	return out, rows.Err()
}
