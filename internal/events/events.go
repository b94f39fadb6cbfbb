// Package events fans delivered alerts out to live subscribers and
// downstream consumers. Publishing is best-effort: the alert log in the
// database is the source of truth.
package events

import (
	"context"
	"errors"

	"github.com/mr1hm/go-flood-alerts/internal/models"
)

type Sink interface {
	PublishAlert(ctx context.Context, entry models.AlertLogEntry) error
}

// Fanout publishes to every sink and joins their errors.
type Fanout []Sink

func (f Fanout) PublishAlert(ctx context.Context, entry models.AlertLogEntry) error {
	var errs []error
	for _, s := range f {
		if err := s.PublishAlert(ctx, entry); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
