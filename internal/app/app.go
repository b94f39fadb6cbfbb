// Package app assembles the alert engine from configuration for both
// binaries.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-redis/redis/v8"
	"github.com/jonboulle/clockwork"

	"github.com/mr1hm/go-flood-alerts/internal/alert"
	"github.com/mr1hm/go-flood-alerts/internal/config"
	"github.com/mr1hm/go-flood-alerts/internal/events"
	"github.com/mr1hm/go-flood-alerts/internal/lock"
	"github.com/mr1hm/go-flood-alerts/internal/notify"
	"github.com/mr1hm/go-flood-alerts/internal/observability"
	"github.com/mr1hm/go-flood-alerts/internal/repository"
)

// Store is what the assembled engine persists to, including the table that
// holds the run lock when Redis is off.
type Store interface {
	alert.Store
	repository.LockRepository
}

// AlertStack is an engine plus the connections it owns.
type AlertStack struct {
	Engine  *alert.Engine
	closers []func() error
}

// NewAlertStack picks the notifier, run lock and event sinks from cfg. sinks
// are published to in addition to Kafka when it is enabled.
func NewAlertStack(ctx context.Context, cfg *config.Config, store Store, metrics *observability.Metrics, sinks ...events.Sink) (*AlertStack, error) {
	s := &AlertStack{}

	var notifier notify.Notifier = notify.LogNotifier{}
	if cfg.Mail.Enabled {
		mailer, err := notify.NewMailer(cfg.Mail)
		if err != nil {
			return nil, err
		}
		notifier = mailer
		slog.Info("email notifications enabled", "host", cfg.Mail.Host, "port", cfg.Mail.Port)
	} else {
		slog.Warn("email notifications disabled, alerts will only be logged")
	}

	var locker lock.Locker
	if cfg.Redis.Enabled {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("error connecting to redis at %s: %w", cfg.Redis.Addr, err)
		}
		s.closers = append(s.closers, client.Close)
		locker = lock.NewRedis(client, cfg.Redis.LockTTL)
		slog.Info("using redis run lock", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.LockTTL)
	} else {
		locker = lock.NewTable(store, cfg.Alert.LockTTL, clockwork.NewRealClock())
		slog.Info("using database run lock", "ttl", cfg.Alert.LockTTL)
	}

	fanout := events.Fanout(sinks)
	if cfg.Kafka.Enabled {
		publisher := events.NewKafkaPublisher(cfg.Kafka)
		s.closers = append(s.closers, publisher.Close)
		fanout = append(fanout, publisher)
		slog.Info("publishing alerts to kafka", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.Topic)
	}

	opts := []alert.Option{
		alert.WithLocker(locker),
		alert.WithCooldown(cfg.Alert.Cooldown),
		alert.WithWorkers(cfg.Alert.Workers),
		alert.WithCommitRetries(cfg.Alert.CommitRetries),
	}
	if len(fanout) > 0 {
		opts = append(opts, alert.WithSink(fanout))
	}

	s.Engine = alert.NewEngine(store, notifier, metrics, opts...)
	return s, nil
}

// Close releases connections in reverse order of creation.
func (s *AlertStack) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
