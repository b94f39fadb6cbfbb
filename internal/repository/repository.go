package repository

import (
	"context"
	"errors"
	"time"

	"github.com/mr1hm/go-flood-alerts/internal/models"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("record already exists")
	// ErrStale is returned when a write was based on a row that has since
	// been changed by someone else.
	ErrStale = errors.New("record changed since it was read")
)

type UserRepository interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUser(ctx context.Context, id int64) (*models.User, error)
	UpdateUserLocation(ctx context.Context, userID int64, lat, lon float64, districtID int64) error
	ListUsersWithTrackedDistrict(ctx context.Context) ([]models.User, error)
}

type DistrictRepository interface {
	GetDistrict(ctx context.Context, id int64) (*models.District, error)
	ListDistricts(ctx context.Context) ([]models.District, error)
	ListDistrictRisks(ctx context.Context) ([]models.DistrictRisk, error)
}

type AssessmentRepository interface {
	AddWeatherReading(ctx context.Context, r *models.WeatherReading) error
	AddAssessment(ctx context.Context, a *models.RiskAssessment) error
	LatestAssessment(ctx context.Context, districtID int64) (*models.RiskAssessment, error)
}

type AlertRepository interface {
	ListAlerts(ctx context.Context, limit int) ([]models.AlertLogEntry, error)
}

// DispatchRepository tracks notifications between "about to send" and
// "recorded". CommitDispatch appends the alert log entry, advances the
// user's alert state and closes the dispatch in one transaction.
type DispatchRepository interface {
	CreateDispatch(ctx context.Context, d *models.Dispatch) error
	FailDispatch(ctx context.Context, id, reason string) error
	CommitDispatch(ctx context.Context, id string, sentAt time.Time) (models.AlertLogEntry, error)
	ListPendingDispatches(ctx context.Context) ([]models.Dispatch, error)
}

// LockRepository holds named leases in the database so separate processes
// sharing one file can exclude each other.
type LockRepository interface {
	AcquireLock(ctx context.Context, name, owner string, now, expiresAt time.Time) (bool, error)
	ReleaseLock(ctx context.Context, name, owner string) error
}
