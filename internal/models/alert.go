package models

import "time"

// AlertLogEntry is the audit record of one delivered notification.
type AlertLogEntry struct {
	ID         string    `json:"id"`
	Message    string    `json:"message"`
	UserID     int64     `json:"user_id"`
	DistrictID int64     `json:"district_id"`
	Level      RiskLevel `json:"level"`
	SentAt     time.Time `json:"sent_at"`
}

type DispatchStatus string

const (
	DispatchPending   DispatchStatus = "pending"
	DispatchCommitted DispatchStatus = "committed"
	DispatchFailed    DispatchStatus = "failed"
)

// Dispatch is written before a notification is sent so a crash between
// sending and recording can be reconciled without sending twice.
type Dispatch struct {
	ID         string
	UserID     int64
	DistrictID int64
	Level      RiskLevel
	Message    string
	Status     DispatchStatus
	Error      string
	CreatedAt  time.Time

	// UserAlertSeq is the user's AlertSeq the send decision was made on.
	// Creating the dispatch is refused once that sequence has moved on.
	UserAlertSeq int64
}

func (d *Dispatch) LogEntry(sentAt time.Time) AlertLogEntry {
	return AlertLogEntry{
		ID:         d.ID,
		Message:    d.Message,
		UserID:     d.UserID,
		DistrictID: d.DistrictID,
		Level:      d.Level,
		SentAt:     sentAt,
	}
}
