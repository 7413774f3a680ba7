// Package scheduler runs the periodic controller sweep.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"homeswitch/config"
	"homeswitch/internal/delivery"
	deliverycontext "homeswitch/internal/delivery/context"
	"homeswitch/internal/domain/constants"
	"homeswitch/internal/usecase"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"go.uber.org/fx"
)

// sweepTimeout bounds a single sweep run.
const sweepTimeout = time.Minute

type sweepScheduler struct {
	cron     *cron.Cron
	spec     string
	reaperUC usecase.ReaperUsecase
	logger   *slog.Logger
}

// SchedulerParams holds dependencies for the sweep scheduler, injected by Fx.
type SchedulerParams struct {
	fx.In

	Lc       fx.Lifecycle
	Cfg      *config.Config
	Logger   *slog.Logger
	ReaperUC usecase.ReaperUsecase
}

// NewScheduler creates the cron-driven sweeper. Overlapping runs are skipped.
func NewScheduler(params SchedulerParams) (delivery.Delivery, error) {
	spec := constants.DefaultSweepSpec
	if params.Cfg.CommandQueue.SweepSpec != "" {
		spec = params.Cfg.CommandQueue.SweepSpec
	}

	cronLogger := &slogCronLogger{logger: params.Logger}
	s := &sweepScheduler{
		cron: cron.New(
			cron.WithLogger(cronLogger),
			cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		),
		spec:     spec,
		reaperUC: params.ReaperUC,
		logger:   params.Logger,
	}

	if _, err := s.cron.AddFunc(spec, s.runSweep); err != nil {
		return nil, errors.Wrapf(err, "invalid sweep spec %q", spec)
	}

	params.Lc.Append(fx.Hook{
		OnStop: s.stop,
	})

	return s, nil
}

// Serve starts the cron loop and returns immediately.
func (s *sweepScheduler) Serve(_ context.Context) error {
	s.logger.Info("Starting controller sweeper", slog.String("spec", s.spec))
	s.cron.Start()

	return nil
}

func (s *sweepScheduler) runSweep() {
	requestID := uuid.New().String()
	logger := s.logger.With(slog.String("request_id", requestID), slog.String("job", "sweep"))

	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()
	ctx = deliverycontext.WithRequestID(ctx, requestID)
	ctx = deliverycontext.WithLogger(ctx, logger)

	if _, err := s.reaperUC.SweepAll(ctx); err != nil {
		logger.Error("Controller sweep failed", slog.Any("error", err))
	}
}

func (s *sweepScheduler) stop(ctx context.Context) error {
	s.logger.Info("Stopping controller sweeper")

	// Wait for a running sweep, bounded by the hook context.
	select {
	case <-s.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return errors.WithStack(ctx.Err())
	}
}

// slogCronLogger adapts slog to cron.Logger.
type slogCronLogger struct {
	logger *slog.Logger
}

func (l *slogCronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("[Cron] "+msg, keysAndValues...)
}

func (l *slogCronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("[Cron] "+msg, append([]any{slog.Any("error", err)}, keysAndValues...)...)
}
