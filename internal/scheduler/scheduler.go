package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/benhoenig/NOVA-II/internal/dialogue"
	"github.com/benhoenig/NOVA-II/internal/remind"
	"github.com/benhoenig/NOVA-II/internal/store"
)

// Scheduler drives the daily reminder cycle and sweeps abandoned goal
// drafts. Delivery goes through a push function so the transport stays
// out of this package.
type Scheduler struct {
	cron      *cron.Cron
	evaluator *remind.Evaluator
	engine    *dialogue.Engine
	db        *store.Store
	push      func(userID, content string) error
	loc       *time.Location

	mu sync.Mutex // one reminder cycle at a time
}

func New(evaluator *remind.Evaluator, engine *dialogue.Engine, database *store.Store, push func(userID, content string) error, loc *time.Location) *Scheduler {
	return &Scheduler{
		cron:      cron.New(cron.WithLocation(loc)),
		evaluator: evaluator,
		engine:    engine,
		db:        database,
		push:      push,
		loc:       loc,
	}
}

// Start registers the cron entries and launches the scheduler. The
// reminder expression is validated here so a bad one fails at boot
// instead of silently never firing.
func (s *Scheduler) Start(reminderCron string) error {
	if _, err := s.cron.AddFunc(reminderCron, s.runCycle); err != nil {
		return fmt.Errorf("scheduling reminders on %q: %w", reminderCron, err)
	}
	if _, err := s.cron.AddFunc("*/10 * * * *", s.sweepDrafts); err != nil {
		return fmt.Errorf("scheduling draft sweep: %w", err)
	}
	s.cron.Start()
	log.Printf("scheduler: started, reminders on %q in %s", reminderCron, s.loc)
	return nil
}

func (s *Scheduler) Stop() {
	s.cron.Stop()
}

// runCycle evaluates due reminders, marks the scheduled ones, and pushes
// one digest to every subscriber. A cycle that catches a previous one
// still running is skipped rather than queued behind it.
func (s *Scheduler) runCycle() {
	if !s.mu.TryLock() {
		log.Printf("scheduler: previous reminder cycle still running, skipping")
		return
	}
	defer s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	now := time.Now().In(s.loc)
	dues, err := s.evaluator.EvaluateAndMark(ctx, now)
	if err != nil {
		log.Printf("scheduler: evaluating reminders: %v", err)
		return
	}
	if len(dues) == 0 {
		log.Printf("scheduler: no reminders due")
		return
	}

	digest := remind.FormatDigest(dues, now)
	subs, err := s.db.ListSubscribers(ctx)
	if err != nil {
		log.Printf("scheduler: listing subscribers: %v", err)
		return
	}
	if len(subs) == 0 {
		log.Printf("scheduler: %d reminder(s) due but no subscribers", len(dues))
		return
	}

	sent := 0
	for _, userID := range subs {
		if err := s.push(userID, digest); err != nil {
			log.Printf("scheduler: pushing digest to %s: %v", userID, err)
			continue
		}
		sent++
	}
	log.Printf("scheduler: delivered %d reminder(s) to %d/%d subscriber(s)", len(dues), sent, len(subs))
}

// sweepDrafts drops goal drafts nobody has touched for an hour.
func (s *Scheduler) sweepDrafts() {
	if n := s.engine.Sweep(time.Now(), time.Hour); n > 0 {
		log.Printf("scheduler: dropped %d abandoned goal draft(s)", n)
	}
}
