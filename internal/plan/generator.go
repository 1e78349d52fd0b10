// Package plan turns a freshly created goal into an ordered action
// plan of three to seven sub-tasks.
package plan

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/benhoenig/NOVA-II/internal/goal"
	"github.com/benhoenig/NOVA-II/internal/llm"
)

const (
	minTasks = 3
	maxTasks = 7
)

// GenerationError means the external generator could not produce a
// plan within bounds, even after a retry.
type GenerationError struct {
	Items    int
	Attempts int
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("plan generation produced %d tasks after %d attempts", e.Items, e.Attempts)
}

type Generator struct {
	client llm.Client
	repo   goal.Repository
}

func NewGenerator(client llm.Client, repo goal.Repository) *Generator {
	return &Generator{client: client, repo: repo}
}

// Generate asks the model to break the goal down, enforces the task
// count bound with one retry, and persists the accepted plan in order.
func (g *Generator) Generate(ctx context.Context, target *goal.Goal) ([]*goal.Task, error) {
	prompt := buildPrompt(target)

	var lines []string
	attempts, lastCount := 0, 0
	for attempts < 2 {
		attempts++
		resp, err := g.client.Chat(ctx, llm.PlanPrompt, []llm.Message{llm.UserMessage(prompt)})
		if err != nil {
			return nil, fmt.Errorf("plan generation attempt %d: %w", attempts, err)
		}
		lines = taskLines(resp.Content)
		lastCount = len(lines)
		if len(lines) >= minTasks && len(lines) <= maxTasks {
			break
		}
		lines = nil
	}
	if lines == nil {
		return nil, &GenerationError{Items: lastCount, Attempts: attempts}
	}

	tasks := make([]*goal.Task, 0, len(lines))
	for i, line := range lines {
		timeline, name := splitTask(line, i+1)
		t := &goal.Task{
			GoalID:   target.ID,
			Seq:      i + 1,
			Timeline: timeline,
			Name:     name,
		}
		if err := g.repo.AddTask(ctx, t); err != nil {
			return nil, fmt.Errorf("saving task %d of %s: %w", t.Seq, target.ID, err)
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

func buildPrompt(g *goal.Goal) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Goal: %s\n", g.Name)
	if g.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", g.Description)
	}
	if g.StartDate != nil {
		fmt.Fprintf(&b, "Start Date: %s\n", g.StartDate.Format("2006-01-02"))
	}
	if g.DueDate != nil {
		fmt.Fprintf(&b, "Due Date: %s\n", g.DueDate.Format("2006-01-02"))
		if g.StartDate != nil {
			days := int(g.DueDate.Sub(*g.StartDate).Hours() / 24)
			fmt.Fprintf(&b, "Days Available: %d\n", days)
		}
	}
	fmt.Fprintf(&b, "Today: %s", time.Now().Format("2006-01-02"))
	return b.String()
}

// taskLines pulls the tasks array out of the model response. Anything
// unreadable comes back empty so the caller retries.
func taskLines(content string) []string {
	raw := llm.JSONBlock(content)
	if !gjson.Valid(raw) {
		return nil
	}
	arr := gjson.Get(raw, "tasks")
	if !arr.IsArray() {
		return nil
	}
	var lines []string
	for _, item := range arr.Array() {
		if s := strings.TrimSpace(item.String()); s != "" {
			lines = append(lines, s)
		}
	}
	return lines
}

// splitTask separates "Week 1: Research the market" into its timeline
// and description. A line with no timeline gets a positional one.
func splitTask(line string, seq int) (timeline, name string) {
	if before, after, ok := strings.Cut(line, ":"); ok {
		return strings.TrimSpace(before), strings.TrimSpace(after)
	}
	return fmt.Sprintf("Task %d", seq), strings.TrimSpace(line)
}
