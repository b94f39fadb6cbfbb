package alert

import (
	"errors"
	"time"

	"github.com/mr1hm/go-flood-alerts/internal/models"
)

type Status string

const (
	StatusSent               Status = "sent"
	StatusSuppressed         Status = "suppressed"
	StatusNoAssessment       Status = "no_assessment"
	StatusPendingDispatch    Status = "pending_dispatch"
	StatusFetchFailed        Status = "fetch_failed"
	StatusNotificationFailed Status = "notification_failed"
	StatusPersistenceFailed  Status = "persistence_failed"
	StatusCancelled          Status = "cancelled"
)

func (s Status) failed() bool {
	switch s {
	case StatusFetchFailed, StatusNotificationFailed, StatusPersistenceFailed:
		return true
	}
	return false
}

// Outcome is what happened to one user (or one reconciled dispatch) in a run.
type Outcome struct {
	UserID     int64            `json:"user_id"`
	DistrictID int64            `json:"district_id,omitempty"`
	Level      models.RiskLevel `json:"level,omitempty"`
	Status     Status           `json:"status"`
	Error      string           `json:"error,omitempty"`
	Err        error            `json:"-"`
}

type Summary struct {
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
	Evaluated    int       `json:"evaluated"`
	Sent         int       `json:"sent"`
	Suppressed   int       `json:"suppressed"`
	NoAssessment int       `json:"no_assessment"`
	Skipped      int       `json:"skipped"`
	Failed       int       `json:"failed"`
	Cancelled    int       `json:"cancelled"`
	Reconciled   int       `json:"reconciled"`
	Outcomes     []Outcome `json:"outcomes"`
}

func (s *Summary) add(o Outcome) {
	if o.Err != nil {
		o.Error = o.Err.Error()
	}
	switch o.Status {
	case StatusSent:
		s.Sent++
	case StatusSuppressed:
		s.Suppressed++
	case StatusNoAssessment:
		s.NoAssessment++
	case StatusPendingDispatch:
		s.Skipped++
	case StatusCancelled:
		s.Cancelled++
	}
	if o.Status.failed() {
		s.Failed++
	}
	s.Outcomes = append(s.Outcomes, o)
}

// Err joins every per-user failure, or returns nil if none failed.
func (s Summary) Err() error {
	var errs []error
	for _, o := range s.Outcomes {
		if o.Status.failed() && o.Err != nil {
			errs = append(errs, o.Err)
		}
	}
	return errors.Join(errs...)
}
