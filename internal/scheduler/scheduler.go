// Package scheduler runs the maintenance sweeps on fixed intervals with an
// explicit start/stop lifecycle.
package scheduler

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

type Scheduler struct {
	cron   *cron.Cron
	logger zerolog.Logger
}

func New(logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger))),
		logger: logger.With().Str("component", "scheduler").Logger(),
	}
}

// AddEvery registers a job on a fixed interval. A job still running when
// its next tick fires is skipped rather than run concurrently on the same
// data.
func (s *Scheduler) AddEvery(interval time.Duration, name string, job func(ctx context.Context) error) error {
	var running atomic.Bool
	logger := s.logger.With().Str("job", name).Logger()

	_, err := s.cron.AddFunc(fmt.Sprintf("@every %s", interval), func() {
		if !running.CompareAndSwap(false, true) {
			logger.Warn().Msg("previous run still in progress; skipping tick")
			return
		}
		defer running.Store(false)

		if err := job(context.Background()); err != nil {
			logger.Error().Err(err).Msg("scheduled job failed")
		}
	})
	return err
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info().Msg("scheduler started")
}

// Stop halts scheduling and waits for in-flight jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info().Msg("scheduler stopped")
}
