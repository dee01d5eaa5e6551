package indexer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// syncTimeout bounds a single run so a hung index cannot pile up runs.
const syncTimeout = 2 * time.Minute

// Scheduler runs a Syncer on a cron schedule.
type Scheduler struct {
	syncer *Syncer
	cron   *cron.Cron
	wg     sync.WaitGroup
}

// NewScheduler validates expr and creates a scheduler for syncer.
// expr uses the standard five-field format or a descriptor such as "@every 5m".
func NewScheduler(syncer *Syncer, expr string) (*Scheduler, error) {
	schedule, err := cron.ParseStandard(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid index sync schedule %q: %w", expr, err)
	}

	s := &Scheduler{
		syncer: syncer,
		cron:   cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
	}
	s.cron.Schedule(schedule, cron.FuncJob(s.run))
	return s, nil
}

// Start runs one sync right away and then follows the schedule.
func (s *Scheduler) Start() {
	log.Info().Msg("Starting search index sync scheduler...")
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run()
	}()
	s.cron.Start()
}

// Stop halts the schedule and waits for a running sync to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.wg.Wait()
	log.Info().Msg("Stopped search index sync scheduler.")
}

func (s *Scheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), syncTimeout)
	defer cancel()
	if err := s.syncer.Sync(ctx); err != nil {
		log.Error().Err(err).Msg("Scheduler: search index sync failed")
	}
}
