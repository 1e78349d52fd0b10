package goal

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/benhoenig/NOVA-II/internal/schedule"
)

// Update is the sparse set of fields a partial update changes. Nil
// fields are left untouched. Note is appended to the stored notes, never
// replacing them.
type Update struct {
	Name        *string
	Description *string
	Category    *string
	StartDate   *time.Time
	DueDate     *time.Time
	Status      *Status
	Priority    *Priority
	Schedule    *schedule.Schedule
	Note        *string
	CompletedAt *time.Time
}

func (u Update) Empty() bool {
	return u == Update{}
}

// Repository is the storage contract for goals and their tasks. Create
// assigns the goal's GOAL-NNN identifier and stamps CreatedAt. Deleting
// a goal cascades to its tasks.
type Repository interface {
	Create(ctx context.Context, g *Goal) error
	Get(ctx context.Context, id string) (*Goal, error)
	// FindByNameFragment matches the fragment case-insensitively as a
	// substring of the goal name, most recently created first.
	FindByNameFragment(ctx context.Context, fragment string) ([]*Goal, error)
	Update(ctx context.Context, id string, u Update) (*Goal, error)
	List(ctx context.Context) ([]*Goal, error)
	ListActive(ctx context.Context) ([]*Goal, error)
	Delete(ctx context.Context, id string) error

	AddTask(ctx context.Context, t *Task) error
	ListTasks(ctx context.Context, goalID string) ([]*Task, error)
	UpdateTaskStatus(ctx context.Context, goalID string, seq int, status TaskStatus) (*Task, error)

	// MarkReminded sets last_reminded to now only while it still holds
	// seen, and reports whether the write happened. Overlapping reminder
	// cycles race on this; the stale one loses.
	MarkReminded(ctx context.Context, id string, seen *time.Time, now time.Time) (bool, error)
}

// Resolve maps a user-supplied reference to one goal. A canonical
// GOAL-NNN id resolves directly; anything else is a name fragment and
// must match exactly one Active or Paused goal. Zero and several
// matches are both ErrAmbiguousReference, so the caller can re-ask
// without guessing.
func Resolve(ctx context.Context, repo Repository, ref string) (*Goal, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, fmt.Errorf("empty reference: %w", ErrNotFound)
	}
	if IsID(ref) {
		return repo.Get(ctx, strings.ToUpper(ref))
	}
	matches, err := repo.FindByNameFragment(ctx, ref)
	if err != nil {
		return nil, err
	}
	var open []*Goal
	for _, g := range matches {
		if !g.Status.Terminal() {
			open = append(open, g)
		}
	}
	switch len(open) {
	case 0:
		return nil, fmt.Errorf("no open goal matches %q: %w", ref, ErrAmbiguousReference)
	case 1:
		return open[0], nil
	default:
		return nil, fmt.Errorf("%q matches %d open goals: %w", ref, len(open), ErrAmbiguousReference)
	}
}
