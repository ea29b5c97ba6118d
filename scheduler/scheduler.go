package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"rentscout/config"
	"rentscout/scraper"
)

// Triggerable allows background workers to be kicked after a scrape run.
type Triggerable interface {
	Trigger()
}

// Scheduler runs the pipeline on a cron expression or a fixed interval,
// whichever the config provides. Cron wins when both are set.
type Scheduler struct {
	cfg          *config.Config
	orchestrator *scraper.Orchestrator
	cron         *cron.Cron
	ticker       *time.Ticker
	stopCh       chan struct{}

	summaryWorker Triggerable
}

func New(cfg *config.Config, orchestrator *scraper.Orchestrator) *Scheduler {
	return &Scheduler{
		cfg:          cfg,
		orchestrator: orchestrator,
		cron:         cron.New(),
		stopCh:       make(chan struct{}),
	}
}

// SetWorkers registers background workers to trigger after each run.
func (s *Scheduler) SetWorkers(summary Triggerable) {
	s.summaryWorker = summary
}

func (s *Scheduler) Start(ctx context.Context) error {
	if s.cfg.Scheduler.Cron != "" {
		log.Info().Str("cron", s.cfg.Scheduler.Cron).Msg("starting scheduler")
		_, err := s.cron.AddFunc(s.cfg.Scheduler.Cron, func() { s.runOnce(ctx) })
		if err != nil {
			return fmt.Errorf("invalid cron expression: %w", err)
		}
		s.cron.Start()
		return nil
	}

	if s.cfg.Scheduler.Interval > 0 {
		log.Info().Dur("interval", s.cfg.Scheduler.Interval).Msg("starting scheduler")
		s.ticker = time.NewTicker(s.cfg.Scheduler.Interval)
		go func() {
			for {
				select {
				case <-s.ticker.C:
					s.runOnce(ctx)
				case <-s.stopCh:
					return
				case <-ctx.Done():
					return
				}
			}
		}()
		return nil
	}

	return fmt.Errorf("scheduler enabled but neither cron nor interval configured")
}

func (s *Scheduler) Stop() {
	if s.ticker != nil {
		s.ticker.Stop()
	}
	close(s.stopCh)
	cronCtx := s.cron.Stop()
	<-cronCtx.Done()
}

func (s *Scheduler) runOnce(ctx context.Context) {
	started := time.Now()
	s.orchestrator.RunAll(ctx)
	log.Info().Dur("elapsed", time.Since(started)).Msg("scheduled run finished")

	if s.summaryWorker != nil {
		s.summaryWorker.Trigger()
	}
}
