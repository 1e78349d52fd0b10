// Package dialogue drives multi-turn slot filling for goal creation.
// Each conversation key owns at most one in-progress session; nothing
// is persisted until every required field has been collected.
package dialogue

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/benhoenig/NOVA-II/internal/goal"
	"github.com/benhoenig/NOVA-II/internal/schedule"
)

type State string

const (
	StateCollecting    State = "Collecting"
	StateReadyToCreate State = "ReadyToCreate"
	StateCreated       State = "Created"
	StateAbandoned     State = "Abandoned"
)

// Proposal is the sparse field set the extractor read from one
// utterance. Empty strings mean the user did not mention the field.
// Date and schedule values stay raw phrases; the engine parses them.
type Proposal struct {
	Name        string
	Description string
	Category    string
	DueDate     string
	Schedule    string
	Priority    string
	Cancel      bool
}

// Session accumulates goal fields across turns.
type Session struct {
	ID          string
	Key         string
	State       State
	Name        string
	Description string
	Category    string
	DueDate     *time.Time
	Schedule    *schedule.Schedule
	Priority    goal.Priority
	StartedAt   time.Time
	UpdatedAt   time.Time
}

func newSession(key string, now time.Time) *Session {
	return &Session{
		ID:        uuid.NewString(),
		Key:       key,
		State:     StateCollecting,
		StartedAt: now,
		UpdatedAt: now,
	}
}

// missing names the required fields still unset, in prompt order.
func (s *Session) missing() []string {
	var fields []string
	if s.Name == "" {
		fields = append(fields, "name")
	}
	if s.DueDate == nil {
		fields = append(fields, "due date")
	}
	return fields
}

// snapshot renders collected fields for the extractor's context block.
func (s *Session) snapshot() map[string]string {
	m := map[string]string{}
	if s.Name != "" {
		m["name"] = s.Name
	}
	if s.Description != "" {
		m["description"] = s.Description
	}
	if s.Category != "" {
		m["category"] = s.Category
	}
	if s.DueDate != nil {
		m["due_date"] = s.DueDate.Format("2006-01-02")
	}
	if s.Schedule != nil {
		m["schedule"] = s.Schedule.String()
	}
	if s.Priority != "" {
		m["priority"] = string(s.Priority)
	}
	return m
}

// sortedKeys keeps the extractor prompt stable between turns.
func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
