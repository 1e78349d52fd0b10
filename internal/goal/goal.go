// Package goal holds the goal and task records, the status lifecycle,
// and the repository contract the storage layer implements.
package goal

import (
	"fmt"
	"strings"
	"time"

	"github.com/benhoenig/NOVA-II/internal/schedule"
)

// Status is a stored goal status. Overdue is not one of them; it is a
// read-time view derived from the due date.
type Status string

const (
	StatusActive    Status = "Active"
	StatusPaused    Status = "Paused"
	StatusCompleted Status = "Completed"
	StatusCancelled Status = "Cancelled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusPaused, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further status change is allowed.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// ParseStatus maps user input like "paused" to a Status.
func ParseStatus(s string) (Status, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "active":
		return StatusActive, true
	case "paused", "pause", "hold":
		return StatusPaused, true
	case "completed", "complete", "done":
		return StatusCompleted, true
	case "cancelled", "canceled", "cancel":
		return StatusCancelled, true
	}
	return "", false
}

type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
)

func (p Priority) Valid() bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

func ParsePriority(s string) (Priority, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return PriorityLow, true
	case "medium", "med", "normal":
		return PriorityMedium, true
	case "high", "urgent":
		return PriorityHigh, true
	}
	return "", false
}

// Goal is a tracked objective. Date fields hold civil dates at UTC
// midnight; LastReminded and the audit timestamps are instants.
type Goal struct {
	ID           string             `json:"id"`
	Name         string             `json:"name"`
	Description  string             `json:"description,omitempty"`
	Category     string             `json:"category,omitempty"`
	StartDate    *time.Time         `json:"start_date,omitempty"`
	DueDate      *time.Time         `json:"due_date,omitempty"`
	Status       Status             `json:"status"`
	Priority     Priority           `json:"priority"`
	Schedule     *schedule.Schedule `json:"schedule,omitempty"`
	LastReminded *time.Time         `json:"last_reminded,omitempty"`
	Notes        string             `json:"notes,omitempty"`
	CreatedAt    time.Time          `json:"created_at"`
	CompletedAt  *time.Time         `json:"completed_at,omitempty"`
}

// Overdue reports whether the goal is Active with a due date strictly
// before now's calendar date.
func (g *Goal) Overdue(now time.Time) bool {
	if g.Status != StatusActive || g.DueDate == nil {
		return false
	}
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return g.DueDate.Before(today)
}

// DisplayStatus is the stored status, or "Overdue" when the due date has
// passed on an Active goal.
func (g *Goal) DisplayStatus(now time.Time) string {
	if g.Overdue(now) {
		return "Overdue"
	}
	return string(g.Status)
}

type TaskStatus string

const (
	TaskTodo       TaskStatus = "Todo"
	TaskInProgress TaskStatus = "InProgress"
	TaskDone       TaskStatus = "Done"
)

func (s TaskStatus) Valid() bool {
	return s == TaskTodo || s == TaskInProgress || s == TaskDone
}

func ParseTaskStatus(s string) (TaskStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "todo", "open":
		return TaskTodo, true
	case "inprogress", "in-progress", "in progress", "doing":
		return TaskInProgress, true
	case "done", "complete", "completed":
		return TaskDone, true
	}
	return "", false
}

// Task is one step of a goal's action plan. Seq is its 1-based position
// in the plan; Timeline is a free-form scheduling hint like "Day 1" or
// "Week 2".
type Task struct {
	ID          int64      `json:"id"`
	GoalID      string     `json:"goal_id"`
	Seq         int        `json:"seq"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Timeline    string     `json:"timeline,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	Status      TaskStatus `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// IsID reports whether ref is a canonical GOAL-NNN identifier.
func IsID(ref string) bool {
	ref = strings.ToUpper(strings.TrimSpace(ref))
	digits, ok := strings.CutPrefix(ref, "GOAL-")
	if !ok || digits == "" {
		return false
	}
	for i := 0; i < len(digits); i++ {
		if digits[i] < '0' || digits[i] > '9' {
			return false
		}
	}
	return true
}

// FormatID renders the nth goal identifier, GOAL-001 style.
func FormatID(n int) string {
	return fmt.Sprintf("GOAL-%03d", n)
}

// StampNote prefixes a progress note with its timestamp so appended
// notes read as a history.
func StampNote(now time.Time, note string) string {
	return fmt.Sprintf("[%s] %s", now.Format("2006-01-02 15:04"), strings.TrimSpace(note))
}
