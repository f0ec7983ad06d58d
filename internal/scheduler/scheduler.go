// Package scheduler запускает периодические задачи сервиса по расписанию cron.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const jobTimeout = time.Minute

// Jobs описывает периодические задачи сервиса.
type Jobs interface {
	SweepExpiredCodes(ctx context.Context) error
	RelayEvents(ctx context.Context) (int, error)
}

// Schedules задаёт расписания задач в формате cron с секундами.
type Schedules struct {
	Sweep string
	Relay string
}

// Scheduler выполняет задачи Jobs по расписанию.
type Scheduler struct {
	cron   *cron.Cron
	jobs   Jobs
	logger *zap.Logger
}

// New регистрирует задачи и возвращает планировщик. Пустое расписание
// отключает задачу.
func New(jobs Jobs, s Schedules, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	sch := &Scheduler{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLocation(time.UTC),
			cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
		jobs:   jobs,
		logger: logger,
	}

	if err := sch.add(s.Sweep, "codes.sweep_expired", sch.sweep); err != nil {
		return nil, err
	}
	if err := sch.add(s.Relay, "outbox.relay", sch.relay); err != nil {
		return nil, err
	}

	return sch, nil
}

func (s *Scheduler) add(spec, name string, fn func(ctx context.Context) error) error {
	if spec == "" {
		return nil
	}

	_, err := s.cron.AddFunc(spec, func() {
		defer s.recoverJobPanic(name)

		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		start := time.Now()
		if err := fn(ctx); err != nil {
			s.logger.Warn("scheduler job failed", zap.String("job", name), zap.Error(err))
			return
		}
		s.logger.Debug("scheduler job finished", zap.String("job", name), zap.Duration("cost", time.Since(start)))
	})
	if err != nil {
		return fmt.Errorf("register job %s (%q): %w", name, spec, err)
	}
	return nil
}

func (s *Scheduler) sweep(ctx context.Context) error {
	return s.jobs.SweepExpiredCodes(ctx)
}

func (s *Scheduler) relay(ctx context.Context) error {
	_, err := s.jobs.RelayEvents(ctx)
	return err
}

func (s *Scheduler) recoverJobPanic(name string) {
	if recovered := recover(); recovered != nil {
		s.logger.Error("scheduler job panic recovered",
			zap.String("job", name),
			zap.Any("panic", recovered),
		)
	}
}

// Start запускает планировщик в фоне.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop останавливает планировщик и ждёт завершения запущенных задач, но не
// дольше, чем позволяет ctx.
func (s *Scheduler) Stop(ctx context.Context) {
	stopCtx := s.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
	}
}
