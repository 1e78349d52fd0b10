package assistant

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/benhoenig/NOVA-II/internal/goal"
	"github.com/benhoenig/NOVA-II/internal/llm"
)

const maxHistoryMessages = 40

// chat is the fallback for messages that are not goal or knowledge
// commands. Each user keeps an in-memory conversation history, trimmed
// to the context budget oldest-first.
func (a *Assistant) chat(ctx context.Context, userID, text string, now time.Time) (string, error) {
	system := llm.ChatPrompt
	if block := buildGoalContext(ctx, a.repo, now); block != "" {
		system += "\n\n" + block
	}

	a.mu.Lock()
	history := a.histories[userID]
	a.mu.Unlock()

	messages := make([]llm.Message, len(history))
	copy(messages, history)
	messages = append(messages, llm.UserMessage(text))

	budget := a.MaxContextTokens - llm.EstimateTokens(system)
	if budget < 1000 {
		budget = 1000
	}
	trimmed := llm.TrimMessages(messages, budget)
	if len(trimmed) < len(messages) {
		log.Printf("assistant: context trimmed for %s: %d → %d messages", userID, len(messages), len(trimmed))
	}

	resp, err := a.client.Chat(ctx, system, trimmed)
	if err != nil {
		return "", fmt.Errorf("chat call: %w", err)
	}

	messages = append(messages, llm.AssistantMessage(resp.Content))
	if len(messages) > maxHistoryMessages {
		messages = messages[len(messages)-maxHistoryMessages:]
	}
	a.mu.Lock()
	a.histories[userID] = messages
	a.mu.Unlock()

	return resp.Content, nil
}

// buildGoalContext gives the chat model a view of what is currently
// tracked, so answers can reference real goals.
func buildGoalContext(ctx context.Context, repo goal.Repository, now time.Time) string {
	goals, err := repo.ListActive(ctx)
	if err != nil {
		log.Printf("assistant: loading goal context: %v", err)
		return ""
	}
	if len(goals) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("## Current goals\n")
	for _, g := range goals {
		fmt.Fprintf(&b, "- %s %s", g.ID, g.Name)
		if g.DueDate != nil {
			fmt.Fprintf(&b, " (due %s)", g.DueDate.Format("2006-01-02"))
		}
		if g.Overdue(now) {
			b.WriteString(" OVERDUE")
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "Today is %s (%s).", now.Format("2006-01-02"), now.Weekday())
	return b.String()
}
