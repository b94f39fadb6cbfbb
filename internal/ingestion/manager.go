// Package ingestion polls current weather for every district and appends a
// risk assessment per reading.
package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jonboulle/clockwork"

	"github.com/mr1hm/go-flood-alerts/internal/config"
	"github.com/mr1hm/go-flood-alerts/internal/models"
	"github.com/mr1hm/go-flood-alerts/internal/observability"
	"github.com/mr1hm/go-flood-alerts/internal/repository"
	"github.com/mr1hm/go-flood-alerts/internal/weather"
	"github.com/mr1hm/go-flood-alerts/internal/worker"
)

type Store interface {
	repository.AssessmentRepository
	ListDistricts(ctx context.Context) ([]models.District, error)
}

type Fetcher interface {
	Current(ctx context.Context, lat, lon float64) (*weather.Observation, error)
}

type Manager struct {
	cfg     *config.Config
	store   Store
	fetcher Fetcher
	metrics *observability.Metrics
	clock   clockwork.Clock
	pool    *worker.Pool[models.District]
	wg      sync.WaitGroup
}

func NewManager(cfg *config.Config, store Store, fetcher Fetcher, metrics *observability.Metrics, clock clockwork.Clock) *Manager {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Manager{
		cfg:     cfg,
		store:   store,
		fetcher: fetcher,
		metrics: metrics,
		clock:   clock,
	}
}

func (m *Manager) Start(ctx context.Context) {
	m.pool = worker.NewPool("weather", m.cfg.Worker.Count, m.cfg.Worker.BufferSize, m.assess)
	m.pool.Start(ctx)

	if m.cfg.Weather.Enabled {
		m.wg.Add(1)
		go m.runPoller(ctx)
	}
}

func (m *Manager) runPoller(ctx context.Context) {
	defer m.wg.Done()
	slog.Info("starting weather poller", "interval", m.cfg.Weather.PollInterval)

	ticker := m.clock.NewTicker(m.cfg.Weather.PollInterval)
	defer ticker.Stop()

	m.poll(ctx)

	for {
		select {
		case <-ctx.Done():
			slog.Info("weather poller shutting down")
			return
		case <-ticker.Chan():
			m.poll(ctx)
		}
	}
}

func (m *Manager) poll(ctx context.Context) {
	districts, err := m.store.ListDistricts(ctx)
	if err != nil {
		slog.Error("poll failed", "error", err)
		return
	}

	for _, d := range districts {
		if err := m.pool.Submit(ctx, d); err != nil {
			return
		}
	}

	slog.Debug("poll complete", "districts", len(districts))
}

func (m *Manager) assess(ctx context.Context, d models.District) error {
	obs, err := m.fetcher.Current(ctx, d.Latitude, d.Longitude)
	if err != nil {
		m.metrics.WeatherPolls.WithLabelValues("error").Inc()
		slog.Error("weather fetch failed", "district_id", d.ID, "district", d.Name, "error", err)
		return err
	}
	m.metrics.WeatherPolls.WithLabelValues("success").Inc()

	reading := &models.WeatherReading{
		DistrictID:  d.ID,
		TempC:       obs.TempC,
		Humidity:    obs.Humidity,
		WindSpeed:   obs.WindSpeed,
		Description: obs.Description,
		ObservedAt:  obs.ObservedAt,
	}
	if err := m.store.AddWeatherReading(ctx, reading); err != nil {
		slog.Error("error storing weather reading", "district_id", d.ID, "error", err)
		return err
	}

	score, level := weather.Score(*obs)
	assessment := &models.RiskAssessment{
		DistrictID: d.ID,
		Level:      level,
		Score:      score,
		AssessedAt: m.clock.Now().UTC(),
	}
	if err := m.store.AddAssessment(ctx, assessment); err != nil {
		slog.Error("error storing risk assessment", "district_id", d.ID, "error", err)
		return fmt.Errorf("district %d: %w", d.ID, err)
	}
	m.metrics.AssessmentsRecorded.WithLabelValues(string(level)).Inc()

	slog.Info("assessed district", "district_id", d.ID, "district", d.Name, "level", level, "score", score)
	return nil
}

func (m *Manager) Stop() {
	m.wg.Wait()
	m.pool.Stop()
	slog.Info("ingestion manager stopped")
}
