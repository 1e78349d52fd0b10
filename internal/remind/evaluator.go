// Package remind decides which goals are due for a reminder. The
// evaluation window is one calendar day in the caller's timezone: a
// schedule fires at most once per local day, and marking a goal
// reminded suppresses it until the next day.
package remind

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/benhoenig/NOVA-II/internal/goal"
	"github.com/benhoenig/NOVA-II/internal/schedule"
)

type Reason string

const (
	ReasonScheduled Reason = "Scheduled"
	ReasonOverdue   Reason = "Overdue"
)

// Due is one goal that should be surfaced this cycle.
type Due struct {
	Goal   *goal.Goal
	Reason Reason
}

type Evaluator struct {
	repo goal.Repository
}

func NewEvaluator(repo goal.Repository) *Evaluator {
	return &Evaluator{repo: repo}
}

// EvaluateDue scans Active goals without writing anything, so calling
// it twice in the same window returns the same list. A goal whose
// schedule fires today is listed as Scheduled unless it was already
// reminded today; independently, a goal past its due date is listed
// as Overdue on every cycle until its status changes.
func (e *Evaluator) EvaluateDue(ctx context.Context, now time.Time) ([]Due, error) {
	goals, err := e.repo.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("scanning active goals: %w", err)
	}
	var dues []Due
	for _, g := range goals {
		if g.Schedule != nil && g.Schedule.Matches(now) && notYetThisWindow(g.LastReminded, now) {
			dues = append(dues, Due{Goal: g, Reason: ReasonScheduled})
			continue
		}
		if g.Overdue(now) {
			dues = append(dues, Due{Goal: g, Reason: ReasonOverdue})
		}
	}
	return dues, nil
}

// EvaluateAndMark additionally advances last_reminded for every goal
// flagged Scheduled. Overdue-only flags are never marked, so overdue
// escalation does not suppress the next scheduled reminder. The mark
// is optimistic per goal: a concurrent cycle that already marked it
// simply wins, and losing the race never drops the delivery.
func (e *Evaluator) EvaluateAndMark(ctx context.Context, now time.Time) ([]Due, error) {
	dues, err := e.EvaluateDue(ctx, now)
	if err != nil {
		return nil, err
	}
	for _, d := range dues {
		if d.Reason != ReasonScheduled {
			continue
		}
		ok, err := e.repo.MarkReminded(ctx, d.Goal.ID, d.Goal.LastReminded, now)
		if err != nil {
			log.Printf("remind: marking %s: %v", d.Goal.ID, err)
			continue
		}
		if !ok {
			log.Printf("remind: %s was already marked this window", d.Goal.ID)
		}
	}
	return dues, nil
}

// notYetThisWindow is true when the goal has never been reminded or
// was last reminded on an earlier local calendar day.
func notYetThisWindow(last *time.Time, now time.Time) bool {
	if last == nil {
		return true
	}
	return schedule.DayIndex(last.In(now.Location())) < schedule.DayIndex(now)
}
