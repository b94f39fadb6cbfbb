package models

import "time"

// User carries the alert state the engine reads and advances. Absent values
// are nil.
type User struct {
	ID                  int64
	Name                string
	Email               string
	LastLatitude        *float64
	LastLongitude       *float64
	TrackedDistrictID   *int64
	TrackedDistrictName string // joined from districts, empty when untracked
	LastRiskLevel       *RiskLevel
	LastAlertSentAt     *time.Time
	AlertSeq            int64 // bumped every time the alert state advances
	CreatedAt           time.Time
}
