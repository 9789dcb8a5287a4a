// Package scheduler drives batches of crawl workers over active domains.
package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/webdex/webdex/internal/crawl"
)

// Stepper runs one crawl step for a single domain. It never returns an
// error; failures are absorbed so one domain cannot fail another's batch.
type Stepper interface {
	Step(ctx context.Context, hostname string)
}

// Config controls the scheduler loop.
type Config struct {
	Concurrency int
	IdleBackoff time.Duration
	BatchPause  time.Duration
}

// Scheduler selects the least recently active domains and fans one worker
// step out per domain, blocking until the whole batch completes before
// selecting the next one.
type Scheduler struct {
	registry crawl.DomainRegistry
	stepper  Stepper
	sleeper  crawl.Sleeper
	cfg      Config
	logger   *zap.Logger
}

// New constructs a Scheduler.
func New(
	registry crawl.DomainRegistry,
	stepper Stepper,
	sleeper crawl.Sleeper,
	cfg Config,
	logger *zap.Logger,
) *Scheduler {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	return &Scheduler{
		registry: registry,
		stepper:  stepper,
		sleeper:  sleeper,
		cfg:      cfg,
		logger:   logger,
	}
}

// Run blocks, looping over batches until the context finishes.
func (s *Scheduler) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		domains, err := s.registry.SelectBatch(ctx, s.cfg.Concurrency)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.logger.Error("domain batch selection failed", zap.Error(err))
			s.sleeper.Sleep(ctx, s.cfg.IdleBackoff)
			continue
		}

		if len(domains) == 0 {
			s.sleeper.Sleep(ctx, s.cfg.IdleBackoff)
			continue
		}

		s.runBatch(ctx, domains)

		s.sleeper.Sleep(ctx, s.cfg.BatchPause)
	}
}

func (s *Scheduler) runBatch(ctx context.Context, domains []crawl.Domain) {
	s.logger.Debug("dispatching crawl batch", zap.Int("domains", len(domains)))

	var wg sync.WaitGroup
	for _, d := range domains {
		wg.Add(1)
		go func(hostname string) {
			defer wg.Done()
			s.stepper.Step(ctx, hostname)
		}(d.Hostname)
	}
	wg.Wait()
}
