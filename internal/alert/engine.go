package alert

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/mr1hm/go-flood-alerts/internal/events"
	"github.com/mr1hm/go-flood-alerts/internal/lock"
	"github.com/mr1hm/go-flood-alerts/internal/models"
	"github.com/mr1hm/go-flood-alerts/internal/notify"
	"github.com/mr1hm/go-flood-alerts/internal/observability"
	"github.com/mr1hm/go-flood-alerts/internal/repository"
)

// RunLockKey guards whole engine runs.
const RunLockKey = "alert-engine-run"

// Store is the persistence the engine needs.
type Store interface {
	repository.DispatchRepository
	ListUsersWithTrackedDistrict(ctx context.Context) ([]models.User, error)
	LatestAssessment(ctx context.Context, districtID int64) (*models.RiskAssessment, error)
}

type Engine struct {
	store      Store
	notifier   notify.Notifier
	metrics    *observability.Metrics
	locker     lock.Locker
	sink       events.Sink
	clock      clockwork.Clock
	policy     Policy
	workers    int
	newBackOff func() backoff.BackOff
	newID      func() string
}

type Option func(*Engine)

func WithLocker(l lock.Locker) Option {
	return func(e *Engine) { e.locker = l }
}

func WithSink(s events.Sink) Option {
	return func(e *Engine) { e.sink = s }
}

func WithClock(c clockwork.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

func WithCooldown(d time.Duration) Option {
	return func(e *Engine) { e.policy = Policy{Cooldown: d} }
}

// WithWorkers bounds how many users are processed concurrently.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithCommitRetries sets how many times a failed dispatch commit is retried
// with exponential backoff before it is left for the next run.
func WithCommitRetries(n int) Option {
	return func(e *Engine) {
		e.newBackOff = func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 200 * time.Millisecond
			b.MaxInterval = 5 * time.Second
			return backoff.WithMaxRetries(b, uint64(max(n, 0)))
		}
	}
}

func WithCommitBackOff(f func() backoff.BackOff) Option {
	return func(e *Engine) { e.newBackOff = f }
}

func NewEngine(store Store, notifier notify.Notifier, metrics *observability.Metrics, opts ...Option) *Engine {
	e := &Engine{
		store:    store,
		notifier: notifier,
		metrics:  metrics,
		locker:   lock.NewLocal(),
		clock:    clockwork.NewRealClock(),
		policy:   DefaultPolicy,
		workers:  1,
		newID:    uuid.NewString,
	}
	WithCommitRetries(3)(e)
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run evaluates every user with a tracked district once. Per-user failures
// are recorded in the summary and do not stop the run; the returned error is
// non-nil only when the run as a whole could not proceed.
func (e *Engine) Run(ctx context.Context) (Summary, error) {
	lease, err := e.locker.Acquire(ctx, RunLockKey)
	if errors.Is(err, lock.ErrLocked) {
		e.metrics.EngineRuns.WithLabelValues("skipped").Inc()
		return Summary{}, ErrRunInProgress
	}
	if err != nil {
		e.metrics.EngineRuns.WithLabelValues("failed").Inc()
		return Summary{}, fmt.Errorf("acquire run lock: %w", err)
	}
	defer func() {
		if err := lease.Release(context.WithoutCancel(ctx)); err != nil {
			slog.Error("failed to release run lock", "error", err)
		}
	}()

	e.metrics.EngineRunInProgress.Set(1)
	defer e.metrics.EngineRunInProgress.Set(0)

	summary := Summary{StartedAt: e.clock.Now()}
	err = e.run(ctx, &summary)
	summary.FinishedAt = e.clock.Now()
	e.metrics.EngineRunDuration.Observe(summary.FinishedAt.Sub(summary.StartedAt).Seconds())

	result := "ok"
	switch {
	case err != nil:
		result = "failed"
	case summary.Failed > 0:
		result = "partial"
	}
	e.metrics.EngineRuns.WithLabelValues(result).Inc()

	slog.Info("alert run finished",
		"result", result,
		"evaluated", summary.Evaluated,
		"sent", summary.Sent,
		"suppressed", summary.Suppressed,
		"failed", summary.Failed,
		"reconciled", summary.Reconciled,
		"duration", summary.FinishedAt.Sub(summary.StartedAt),
	)
	return summary, err
}

func (e *Engine) run(ctx context.Context, summary *Summary) error {
	blocked, err := e.reconcile(ctx, summary)
	if err != nil {
		return err
	}

	users, err := e.store.ListUsersWithTrackedDistrict(ctx)
	if err != nil {
		return &FetchError{Op: "users", Err: err}
	}

	outcomes := make([]Outcome, len(users))
	g := new(errgroup.Group)
	g.SetLimit(e.workers)
	for i, u := range users {
		if ctx.Err() != nil {
			outcomes[i] = cancelled(u, ctx.Err())
			continue
		}
		if _, ok := blocked[u.ID]; ok {
			outcomes[i] = Outcome{UserID: u.ID, DistrictID: districtOf(u), Status: StatusPendingDispatch}
			continue
		}
		g.Go(func() error {
			outcomes[i] = e.processUser(ctx, u)
			return nil
		})
	}
	_ = g.Wait()

	for _, o := range outcomes {
		if o.Status != StatusCancelled && o.Status != StatusPendingDispatch {
			summary.Evaluated++
		}
		summary.add(o)
	}

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("alert run interrupted: %w", err)
	}
	return nil
}

// reconcile records dispatches left pending by an earlier run, which either
// sent the notification and failed to commit it or stopped before writing
// the send outcome. Either way the dispatch is recorded and never resent. Users whose dispatch still cannot
// be committed are returned so this run skips them.
func (e *Engine) reconcile(ctx context.Context, summary *Summary) (map[int64]struct{}, error) {
	pending, err := e.store.ListPendingDispatches(ctx)
	if err != nil {
		return nil, &FetchError{Op: "pending dispatches", Err: err}
	}

	blocked := make(map[int64]struct{})
	for _, d := range pending {
		entry, err := e.commit(ctx, d.ID, d.CreatedAt)
		if err != nil {
			e.metrics.PersistenceFailures.Inc()
			blocked[d.UserID] = struct{}{}
			summary.add(Outcome{
				UserID:     d.UserID,
				DistrictID: d.DistrictID,
				Level:      d.Level,
				Status:     StatusPersistenceFailed,
				Err:        &PersistenceError{UserID: d.UserID, DispatchID: d.ID, Sent: true, Err: err},
			})
			continue
		}

		slog.Warn("recorded dispatch from interrupted run",
			"dispatch_id", d.ID,
			"user_id", d.UserID,
			"level", d.Level,
			"created_at", d.CreatedAt,
			"delivery_unknown", true,
		)
		e.metrics.DispatchesReconciled.Inc()
		summary.Reconciled++
		e.publish(ctx, entry)
	}
	return blocked, nil
}

func (e *Engine) processUser(ctx context.Context, u models.User) Outcome {
	out := Outcome{UserID: u.ID, DistrictID: districtOf(u)}
	if err := ctx.Err(); err != nil {
		return cancelled(u, err)
	}
	e.metrics.UsersEvaluated.Inc()

	assessment, err := e.store.LatestAssessment(ctx, out.DistrictID)
	if err != nil {
		out.Status = StatusFetchFailed
		out.Err = &FetchError{Op: "latest assessment", UserID: u.ID, Err: err}
		slog.Error("failed to load assessment", "user_id", u.ID, "district_id", out.DistrictID, "error", err)
		return out
	}
	if assessment == nil {
		out.Status = StatusNoAssessment
		return out
	}
	out.Level = assessment.Level

	if !e.policy.ShouldSend(assessment.Level, u.LastRiskLevel, u.LastAlertSentAt, e.clock.Now()) {
		out.Status = StatusSuppressed
		return out
	}

	return e.dispatch(ctx, u, assessment.Level, out)
}

func (e *Engine) dispatch(ctx context.Context, u models.User, level models.RiskLevel, out Outcome) Outcome {
	d := &models.Dispatch{
		ID:         e.newID(),
		UserID:     u.ID,
		DistrictID: out.DistrictID,
		Level:      level,
		Message:    LogMessage(level),
		CreatedAt:  e.clock.Now().UTC(),

		UserAlertSeq: u.AlertSeq,
	}
	err := e.store.CreateDispatch(ctx, d)
	if errors.Is(err, repository.ErrStale) {
		// another run alerted this user after the list was read
		slog.Info("alert state changed since read, skipping", "user_id", u.ID, "level", level)
		out.Status = StatusSuppressed
		return out
	}
	if err != nil {
		e.metrics.PersistenceFailures.Inc()
		out.Status = StatusPersistenceFailed
		out.Err = &PersistenceError{UserID: u.ID, Err: err}
		slog.Error("failed to create dispatch", "user_id", u.ID, "error", err)
		return out
	}

	if err := e.notifier.Send(ctx, u.Email, Subject(level), Body(u.TrackedDistrictName, level)); err != nil {
		e.metrics.NotificationFailures.Inc()
		out.Status = StatusNotificationFailed
		out.Err = &NotificationError{UserID: u.ID, Err: err}
		slog.Error("failed to send alert", "user_id", u.ID, "level", level, "error", err)
		e.failDispatch(ctx, d.ID, err)
		return out
	}

	entry, err := e.commit(ctx, d.ID, e.clock.Now())
	if err != nil {
		e.metrics.PersistenceFailures.Inc()
		out.Status = StatusPersistenceFailed
		out.Err = &PersistenceError{UserID: u.ID, DispatchID: d.ID, Sent: true, Err: err}
		slog.Error("alert sent but not recorded", "user_id", u.ID, "dispatch_id", d.ID, "error", err)
		return out
	}

	e.metrics.AlertsSent.WithLabelValues(string(level)).Inc()
	slog.Info("alert sent", "user_id", u.ID, "district_id", out.DistrictID, "level", level)
	out.Status = StatusSent
	e.publish(ctx, entry)
	return out
}

// commit retries CommitDispatch. It ignores cancellation of ctx: once a
// notification has gone out, recording it takes priority over stopping.
func (e *Engine) commit(ctx context.Context, id string, sentAt time.Time) (models.AlertLogEntry, error) {
	ctx = context.WithoutCancel(ctx)
	var entry models.AlertLogEntry
	op := func() error {
		var err error
		entry, err = e.store.CommitDispatch(ctx, id, sentAt)
		if errors.Is(err, repository.ErrNotFound) {
			return backoff.Permanent(err)
		}
		return err
	}
	notifyRetry := func(err error, wait time.Duration) {
		slog.Warn("retrying dispatch commit", "dispatch_id", id, "wait", wait, "error", err)
	}
	if err := backoff.RetryNotify(op, backoff.WithContext(e.newBackOff(), ctx), notifyRetry); err != nil {
		return models.AlertLogEntry{}, err
	}
	return entry, nil
}

// failDispatch marks a dispatch whose notification was not delivered. If
// that write is lost the dispatch stays pending and is later recorded as
// sent, so the user may miss exactly one alert but never gets two.
func (e *Engine) failDispatch(ctx context.Context, id string, cause error) {
	ctx = context.WithoutCancel(ctx)
	op := func() error { return e.store.FailDispatch(ctx, id, cause.Error()) }
	if err := backoff.Retry(op, backoff.WithContext(e.newBackOff(), ctx)); err != nil {
		e.metrics.PersistenceFailures.Inc()
		slog.Error("failed to mark dispatch failed", "dispatch_id", id, "error", err)
	}
}

func (e *Engine) publish(ctx context.Context, entry models.AlertLogEntry) {
	if e.sink == nil {
		return
	}
	if err := e.sink.PublishAlert(ctx, entry); err != nil {
		e.metrics.EventPublishFailures.Inc()
		slog.Warn("failed to publish alert event", "alert_id", entry.ID, "error", err)
	}
}

func cancelled(u models.User, err error) Outcome {
	return Outcome{UserID: u.ID, DistrictID: districtOf(u), Status: StatusCancelled, Err: err}
}

func districtOf(u models.User) int64 {
	if u.TrackedDistrictID == nil {
		return 0
	}
	return *u.TrackedDistrictID
}
