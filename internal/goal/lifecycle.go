package goal

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/benhoenig/NOVA-II/internal/schedule"
)

// transitions is the single source of truth for allowed status changes.
// Terminal statuses map to nothing.
var transitions = map[Status][]Status{
	StatusActive:    {StatusPaused, StatusCompleted, StatusCancelled},
	StatusPaused:    {StatusActive, StatusCompleted, StatusCancelled},
	StatusCompleted: {},
	StatusCancelled: {},
}

func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Machine applies lifecycle rules on top of the repository. All goal
// mutation other than reminder marking goes through it.
type Machine struct {
	repo Repository
}

func NewMachine(repo Repository) *Machine {
	return &Machine{repo: repo}
}

// ChangeStatus moves the referenced goal to a new status. Changing to
// the current status is a no-op. Moving to Completed stamps the
// completion time; terminal goals reject every change.
func (m *Machine) ChangeStatus(ctx context.Context, ref string, to Status, now time.Time) (*Goal, error) {
	if !to.Valid() {
		return nil, fmt.Errorf("unknown status %q", to)
	}
	g, err := Resolve(ctx, m.repo, ref)
	if err != nil {
		return nil, err
	}
	if g.Status == to {
		return g, nil
	}
	if !CanTransition(g.Status, to) {
		return nil, fmt.Errorf("%s to %s: %w", g.Status, to, ErrInvalidTransition)
	}
	u := Update{Status: &to}
	if to == StatusCompleted {
		done := now.UTC()
		u.CompletedAt = &done
	}
	return m.repo.Update(ctx, g.ID, u)
}

// AddNote appends a timestamped progress note. Note appends stay
// allowed on Completed and Cancelled goals.
func (m *Machine) AddNote(ctx context.Context, ref, note string, now time.Time) (*Goal, error) {
	g, err := Resolve(ctx, m.repo, ref)
	if err != nil {
		return nil, err
	}
	stamped := StampNote(now, note)
	return m.repo.Update(ctx, g.ID, Update{Note: &stamped})
}

// Reschedule replaces the goal's reminder schedule with the normalized
// form of the phrase.
func (m *Machine) Reschedule(ctx context.Context, ref, phrase string) (*Goal, error) {
	g, err := Resolve(ctx, m.repo, ref)
	if err != nil {
		return nil, err
	}
	s, err := schedule.Normalize(phrase)
	if err != nil {
		return nil, err
	}
	return m.repo.Update(ctx, g.ID, Update{Schedule: &s})
}

// SetDueDate parses a due-date phrase against now and stores the result.
func (m *Machine) SetDueDate(ctx context.Context, ref, phrase string, now time.Time) (*Goal, error) {
	g, err := Resolve(ctx, m.repo, ref)
	if err != nil {
		return nil, err
	}
	due, err := schedule.ParseDueDate(phrase, now)
	if err != nil {
		return nil, err
	}
	if g.StartDate != nil && due.Before(*g.StartDate) {
		return nil, fmt.Errorf("due date %s is before start date %s",
			due.Format("2006-01-02"), g.StartDate.Format("2006-01-02"))
	}
	return m.repo.Update(ctx, g.ID, Update{DueDate: &due})
}

func (m *Machine) SetPriority(ctx context.Context, ref string, p Priority) (*Goal, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("unknown priority %q", p)
	}
	g, err := Resolve(ctx, m.repo, ref)
	if err != nil {
		return nil, err
	}
	return m.repo.Update(ctx, g.ID, Update{Priority: &p})
}

// UpdateTask changes one plan step's status. Completing a step also
// appends a progress note on the goal so the plan history survives in
// the goal record; a failed note append only logs.
func (m *Machine) UpdateTask(ctx context.Context, ref string, seq int, status TaskStatus, now time.Time) (*Task, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("unknown task status %q", status)
	}
	g, err := Resolve(ctx, m.repo, ref)
	if err != nil {
		return nil, err
	}
	t, err := m.repo.UpdateTaskStatus(ctx, g.ID, seq, status)
	if err != nil {
		return nil, err
	}
	if status == TaskDone {
		note := StampNote(now, fmt.Sprintf("Task %d done: %s", t.Seq, t.Name))
		if _, err := m.repo.Update(ctx, g.ID, Update{Note: &note}); err != nil {
			log.Printf("lifecycle: note for %s task %d: %v", g.ID, t.Seq, err)
		}
	}
	return t, nil
}

// Delete removes the referenced goal and its tasks.
func (m *Machine) Delete(ctx context.Context, ref string) (*Goal, error) {
	g, err := Resolve(ctx, m.repo, ref)
	if err != nil {
		return nil, err
	}
	if err := m.repo.Delete(ctx, g.ID); err != nil {
		return nil, err
	}
	return g, nil
}
