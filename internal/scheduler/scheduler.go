// Package scheduler drives the engine's periodic work: expiration sweeps,
// cooldown resumption for repeatable admin orders, and autosave.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/thornegames/orderboard/internal/config"
)

// Engine is the subset of the lifecycle engine the scheduler drives.
type Engine interface {
	SweepExpired(ctx context.Context)
	SweepAdminExpired(ctx context.Context)
	ResumeCooldowns(ctx context.Context)
	SaveAll(ctx context.Context) error
}

// Scheduler owns the ticker goroutines. Intervals are read from the settings
// snapshot at construction.
type Scheduler struct {
	engine Engine
	cfg    *config.Holder
	log    *logrus.Logger
	wg     sync.WaitGroup
}

// New returns a Scheduler over the given engine.
func New(engine Engine, cfg *config.Holder, log *logrus.Logger) *Scheduler {
	if log == nil {
		log = logrus.New()
	}
	return &Scheduler{engine: engine, cfg: cfg, log: log}
}

// Start launches the periodic loops. They stop when ctx is cancelled; Wait
// blocks until they have all returned.
func (s *Scheduler) Start(ctx context.Context) {
	settings := s.cfg.Snapshot()

	s.spawn(ctx, "expiration sweep", settings.SweepInterval, func(ctx context.Context) {
		s.engine.SweepExpired(ctx)
		s.engine.SweepAdminExpired(ctx)
	})
	s.spawn(ctx, "cooldown check", settings.CooldownCheckInterval, func(ctx context.Context) {
		s.engine.ResumeCooldowns(ctx)
	})
	s.spawn(ctx, "autosave", settings.AutoSaveInterval, func(ctx context.Context) {
		if err := s.engine.SaveAll(ctx); err != nil {
			s.log.WithError(err).Warn("autosave failed")
		}
	})
}

// Wait blocks until every loop started by Start has exited.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func (s *Scheduler) spawn(ctx context.Context, name string, interval time.Duration, fn func(context.Context)) {
	if interval <= 0 {
		s.log.WithField("task", name).Warn("interval disabled, task will not run")
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		s.log.WithFields(logrus.Fields{"task": name, "interval": interval}).Info("task started")
		for {
			select {
			case <-ctx.Done():
				s.log.WithField("task", name).Info("task stopped")
				return
			case <-ticker.C:
				fn(ctx)
			}
		}
	}()
}
