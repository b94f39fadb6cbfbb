package notify

import (
	"context"
	"log/slog"
)

// Notifier delivers one message to one address. Errors are treated as
// "not delivered".
type Notifier interface {
	Send(ctx context.Context, address, subject, body string) error
}

// LogNotifier writes alerts to the log instead of delivering them. Used when
// mail is disabled.
type LogNotifier struct{}

func (LogNotifier) Send(_ context.Context, address, subject, body string) error {
	slog.Info("alert notification", "to", address, "subject", subject, "body", body)
	return nil
}
