package dialogue

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/benhoenig/NOVA-II/internal/goal"
	"github.com/benhoenig/NOVA-II/internal/schedule"
)

// Extractor proposes field values from one utterance. It must leave
// unmentioned fields empty rather than guessing.
type Extractor interface {
	Extract(ctx context.Context, utterance string, state map[string]string) (Proposal, error)
}

// Planner decomposes a created goal into an action plan.
type Planner interface {
	Generate(ctx context.Context, g *goal.Goal) ([]*goal.Task, error)
}

// Turn is what one utterance produced.
type Turn struct {
	State   State
	Reply   string
	Goal    *goal.Goal
	Tasks   []*goal.Task
	PlanErr error
}

type Engine struct {
	extractor Extractor
	repo      goal.Repository
	planner   Planner

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewEngine(extractor Extractor, repo goal.Repository, planner Planner) *Engine {
	return &Engine{
		extractor: extractor,
		repo:      repo,
		planner:   planner,
		sessions:  map[string]*Session{},
	}
}

// HasOpen reports whether the key has a goal draft in progress.
func (e *Engine) HasOpen(key string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.sessions[key]
	return ok
}

// Cancel drops the key's draft, if any.
func (e *Engine) Cancel(key string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.sessions[key]; !ok {
		return false
	}
	delete(e.sessions, key)
	return true
}

// Sweep abandons drafts idle longer than maxAge and reports how many
// were dropped.
func (e *Engine) Sweep(now time.Time, maxAge time.Duration) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	cutoff := now.Add(-maxAge)
	var dropped int
	for key, s := range e.sessions {
		if s.UpdatedAt.Before(cutoff) {
			s.State = StateAbandoned
			delete(e.sessions, key)
			dropped++
		}
	}
	return dropped
}

// Handle feeds one utterance into the key's session, creating the
// session on first contact. The goal is created, and its plan
// generated, as soon as every required field is known.
func (e *Engine) Handle(ctx context.Context, key, utterance string, now time.Time) (*Turn, error) {
	e.mu.Lock()
	s, ok := e.sessions[key]
	if !ok {
		s = newSession(key, now)
		e.sessions[key] = s
	}
	e.mu.Unlock()
	s.UpdatedAt = now

	p, err := e.extractor.Extract(ctx, utterance, s.snapshot())
	if err != nil {
		return nil, fmt.Errorf("extracting fields: %w", err)
	}

	if p.Cancel {
		s.State = StateAbandoned
		e.Cancel(key)
		return &Turn{State: StateAbandoned, Reply: "Okay, dropped that goal draft. Nothing was saved."}, nil
	}

	if problem := e.merge(s, p, now); problem != "" {
		return &Turn{State: s.State, Reply: problem}, nil
	}

	if missing := s.missing(); len(missing) > 0 {
		s.State = StateCollecting
		return &Turn{
			State: StateCollecting,
			Reply: fmt.Sprintf("Got it so far. To create this goal I still need: %s.", strings.Join(missing, ", ")),
		}, nil
	}

	s.State = StateReadyToCreate
	return e.create(ctx, key, s, now)
}

// merge folds a proposal into the session. It returns a re-prompt
// message when a date or schedule phrase does not parse; everything
// else already merged stays collected.
func (e *Engine) merge(s *Session, p Proposal, now time.Time) string {
	if p.Name != "" {
		s.Name = strings.TrimSpace(p.Name)
	}
	if p.Description != "" {
		s.Description = strings.TrimSpace(p.Description)
	}
	if p.Category != "" {
		s.Category = strings.TrimSpace(p.Category)
	}
	if p.Priority != "" {
		if pr, ok := goal.ParsePriority(p.Priority); ok {
			s.Priority = pr
		} else {
			log.Printf("dialogue: ignoring unknown priority %q", p.Priority)
		}
	}

	if p.DueDate != "" {
		due, err := schedule.ParseDueDate(p.DueDate, now)
		if err != nil {
			var pe *schedule.ParseError
			if errors.As(err, &pe) && pe.Hint != "" {
				return fmt.Sprintf("I couldn't read %q as a due date: %s. When should this goal be done?", p.DueDate, pe.Hint)
			}
			return fmt.Sprintf("I couldn't read %q as a due date. Try something like 2026-03-01 or \"next friday\".", p.DueDate)
		}
		if due.Before(today(now)) {
			return fmt.Sprintf("%s is already in the past. When should this goal be done?", due.Format("2006-01-02"))
		}
		s.DueDate = &due
	}

	if p.Schedule != "" {
		sched, err := schedule.Normalize(p.Schedule)
		if err != nil {
			var pe *schedule.ParseError
			if errors.As(err, &pe) && pe.Hint != "" {
				return fmt.Sprintf("The rest is saved, but I couldn't read the reminder schedule %q: %s.", p.Schedule, pe.Hint)
			}
			return fmt.Sprintf("The rest is saved, but I couldn't read the reminder schedule %q. Try \"every tuesday 20:00\" or \"ทุกวัน 3 ทุ่ม\".", p.Schedule)
		}
		s.Schedule = &sched
	}
	return ""
}

func (e *Engine) create(ctx context.Context, key string, s *Session, now time.Time) (*Turn, error) {
	start := today(now)
	g := &goal.Goal{
		Name:        s.Name,
		Description: s.Description,
		Category:    s.Category,
		StartDate:   &start,
		DueDate:     s.DueDate,
		Priority:    s.Priority,
		Schedule:    s.Schedule,
	}
	if g.Priority == "" {
		g.Priority = goal.PriorityMedium
	}

	if err := e.repo.Create(ctx, g); err != nil {
		// The draft survives a storage failure so the user can retry.
		return &Turn{
			State: StateReadyToCreate,
			Reply: "I couldn't save the goal just now. Everything you told me is kept, please try again in a moment.",
		}, fmt.Errorf("creating goal: %w", err)
	}

	s.State = StateCreated
	e.Cancel(key)

	turn := &Turn{State: StateCreated, Goal: g}
	if e.planner != nil {
		tasks, err := e.planner.Generate(ctx, g)
		if err != nil {
			turn.PlanErr = err
		} else {
			turn.Tasks = tasks
		}
	}
	turn.Reply = summarize(g, turn.Tasks, turn.PlanErr)
	return turn, nil
}

func summarize(g *goal.Goal, tasks []*goal.Task, planErr error) string {
	var b strings.Builder
	fmt.Fprintf(&b, "✅ Created %s · %s", g.ID, g.Name)
	if g.DueDate != nil {
		fmt.Fprintf(&b, "\nDue %s · Priority %s", g.DueDate.Format("2006-01-02"), g.Priority)
	}
	if g.Schedule != nil {
		fmt.Fprintf(&b, "\n🔔 Reminders: %s", g.Schedule)
	}
	switch {
	case planErr != nil:
		fmt.Fprintf(&b, "\nI couldn't draft an action plan yet. Say \"plan %s\" to retry.", g.ID)
	case len(tasks) > 0:
		b.WriteString("\n📋 Action plan:")
		for _, t := range tasks {
			fmt.Fprintf(&b, "\n%d. %s: %s", t.Seq, t.Timeline, t.Name)
		}
	}
	return b.String()
}

func today(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
