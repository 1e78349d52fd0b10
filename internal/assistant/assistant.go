// Package assistant routes incoming chat messages to the right NOVA
// capability: goal creation, lifecycle updates, plans, the knowledge
// base, or plain conversation.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/tidwall/gjson"

	"github.com/benhoenig/NOVA-II/internal/dialogue"
	"github.com/benhoenig/NOVA-II/internal/goal"
	"github.com/benhoenig/NOVA-II/internal/llm"
	"github.com/benhoenig/NOVA-II/internal/plan"
	"github.com/benhoenig/NOVA-II/internal/schedule"
	"github.com/benhoenig/NOVA-II/internal/store"
)

const helpText = `🤖 NOVA II Commands:
- ping: Check status
- help: Show this menu
- Or just talk to me! Examples:
  "new goal: launch the product by end of march"
  "pause GOAL-003" · "done task 2 of GOAL-003"
  "list goals" · "plan GOAL-003"
  "remember: pricing must be agreed upfront"
  "what do I know about pricing?"`

type Assistant struct {
	client  llm.Client
	repo    goal.Repository
	machine *goal.Machine
	engine  *dialogue.Engine
	db      *store.Store
	loc     *time.Location

	MaxContextTokens int

	mu        sync.Mutex
	histories map[string][]llm.Message
}

func New(client llm.Client, repo goal.Repository, machine *goal.Machine, engine *dialogue.Engine, db *store.Store, loc *time.Location, maxContextTokens int) *Assistant {
	return &Assistant{
		client:           client,
		repo:             repo,
		machine:          machine,
		engine:           engine,
		db:               db,
		loc:              loc,
		MaxContextTokens: maxContextTokens,
		histories:        map[string][]llm.Message{},
	}
}

// intent is the classifier's verdict for one message.
type intent struct {
	Name  string
	Ref   string
	Task  int
	Field string
	Text  string
}

// Handle processes one user message and returns the reply text.
func (a *Assistant) Handle(ctx context.Context, userID, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "Say something and I'll help. Try \"help\" for examples.", nil
	}
	switch strings.ToLower(text) {
	case "ping":
		return "pong! NOVA II is online.", nil
	case "help":
		return helpText, nil
	}
	now := time.Now().In(a.loc)

	reply, err := a.dispatch(ctx, userID, text, now)
	if err != nil {
		if friendly := translateErr(err); friendly != "" {
			return friendly, nil
		}
		return "", err
	}
	return reply, nil
}

func (a *Assistant) dispatch(ctx context.Context, userID, text string, now time.Time) (string, error) {
	// An open goal draft swallows the whole turn.
	if a.engine.HasOpen(userID) {
		return a.continueDraft(ctx, userID, text, now)
	}

	in, err := a.classify(ctx, text)
	if err != nil {
		log.Printf("assistant: classifying intent: %v", err)
		return a.chat(ctx, userID, text, now)
	}

	switch in.Name {
	case "create_goal":
		return a.continueDraft(ctx, userID, text, now)
	case "update_goal":
		return a.applyUpdate(ctx, in.Ref, in.Field, in.Text, now)
	case "complete_task":
		return a.completeTask(ctx, in.Ref, in.Task, now)
	case "list_goals":
		return a.listGoals(ctx, now)
	case "show_plan":
		return a.showPlan(ctx, in.Ref, now)
	case "kb_store":
		return a.storeKnowledge(ctx, firstNonEmpty(in.Text, text))
	case "kb_search":
		return a.searchKnowledge(ctx, firstNonEmpty(in.Text, text))
	default:
		return a.chat(ctx, userID, text, now)
	}
}

func (a *Assistant) classify(ctx context.Context, text string) (intent, error) {
	resp, err := a.client.Chat(ctx, llm.IntentPrompt, []llm.Message{llm.UserMessage(text)})
	if err != nil {
		return intent{}, fmt.Errorf("intent call: %w", err)
	}
	raw := llm.JSONBlock(resp.Content)
	if !gjson.Valid(raw) {
		return intent{}, fmt.Errorf("intent response is not JSON: %q", resp.Content)
	}
	return intent{
		Name:  gjson.Get(raw, "intent").String(),
		Ref:   gjson.Get(raw, "ref").String(),
		Task:  int(gjson.Get(raw, "task").Int()),
		Field: gjson.Get(raw, "field").String(),
		Text:  gjson.Get(raw, "text").String(),
	}, nil
}

func (a *Assistant) continueDraft(ctx context.Context, userID, text string, now time.Time) (string, error) {
	turn, err := a.engine.Handle(ctx, userID, text, now)
	if err != nil {
		if turn != nil && turn.Reply != "" {
			// The draft survived; apologise but keep the conversation going.
			log.Printf("assistant: goal draft for %s: %v", userID, err)
			return turn.Reply, nil
		}
		return "", err
	}
	if turn.State == dialogue.StateCreated && turn.Goal != nil {
		a.db.LogAction(ctx, "CREATE_GOAL", "Created "+turn.Goal.ID+" "+turn.Goal.Name,
			map[string]any{"goal_id": turn.Goal.ID, "tasks": len(turn.Tasks)})
	}
	return turn.Reply, nil
}

// applyUpdate changes one goal. The classifier names what changes;
// the parsers here validate it, so a bad phrase comes back as a
// re-prompt instead of a wrong write.
func (a *Assistant) applyUpdate(ctx context.Context, ref, field, text string, now time.Time) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "What should I change on that goal?", nil
	}

	switch field {
	case "status":
		st, ok := goal.ParseStatus(text)
		if !ok {
			return fmt.Sprintf("I don't know the status %q. Use Active, Paused, Completed or Cancelled.", text), nil
		}
		g, err := a.machine.ChangeStatus(ctx, ref, st, now)
		if err != nil {
			return "", err
		}
		a.db.LogAction(ctx, "UPDATE_GOAL", g.ID+" status → "+string(st), nil)
		return fmt.Sprintf("%s %s is now %s.", statusEmoji(st), g.ID, st), nil

	case "priority":
		pr, ok := goal.ParsePriority(text)
		if !ok {
			return fmt.Sprintf("I don't know the priority %q. Use High, Medium or Low.", text), nil
		}
		g, err := a.machine.SetPriority(ctx, ref, pr)
		if err != nil {
			return "", err
		}
		a.db.LogAction(ctx, "UPDATE_GOAL", g.ID+" priority → "+string(pr), nil)
		return fmt.Sprintf("Priority of %s set to %s.", g.ID, pr), nil

	case "schedule":
		g, err := a.machine.Reschedule(ctx, ref, text)
		if err != nil {
			return "", err
		}
		a.db.LogAction(ctx, "UPDATE_GOAL", g.ID+" schedule → "+g.Schedule.String(), nil)
		return fmt.Sprintf("🔔 %s reminders set to %s.", g.ID, g.Schedule), nil

	case "due_date":
		g, err := a.machine.SetDueDate(ctx, ref, text, now)
		if err != nil {
			return "", err
		}
		a.db.LogAction(ctx, "UPDATE_GOAL", g.ID+" due → "+g.DueDate.Format("2006-01-02"), nil)
		return fmt.Sprintf("📅 %s is now due %s.", g.ID, g.DueDate.Format("2006-01-02")), nil
	}

	// No field or "note": a bare status word still flips status, so
	// "pause the launch" works without perfect classification. Longer
	// text is a progress note.
	if st, ok := goal.ParseStatus(text); ok {
		return a.applyUpdate(ctx, ref, "status", string(st), now)
	}
	g, err := a.machine.AddNote(ctx, ref, text, now)
	if err != nil {
		return "", err
	}
	a.db.LogAction(ctx, "UPDATE_GOAL", g.ID+" note added", nil)
	return fmt.Sprintf("📝 Noted on %s.", g.ID), nil
}

func (a *Assistant) completeTask(ctx context.Context, ref string, seq int, now time.Time) (string, error) {
	if seq <= 0 {
		return "Which task number is done? Say e.g. \"done task 2 of GOAL-001\".", nil
	}
	task, err := a.machine.UpdateTask(ctx, ref, seq, goal.TaskDone, now)
	if err != nil {
		return "", err
	}
	a.db.LogAction(ctx, "COMPLETE_TASK",
		fmt.Sprintf("Task %d of %s done", task.Seq, task.GoalID),
		map[string]any{"goal_id": task.GoalID, "seq": task.Seq})

	done, total := a.planProgress(ctx, task.GoalID)
	if total > 0 {
		return fmt.Sprintf("✅ Task %d done: %s (%d/%d)", task.Seq, task.Name, done, total), nil
	}
	return fmt.Sprintf("✅ Task %d done: %s", task.Seq, task.Name), nil
}

func (a *Assistant) planProgress(ctx context.Context, goalID string) (done, total int) {
	tasks, err := a.repo.ListTasks(ctx, goalID)
	if err != nil {
		log.Printf("assistant: counting tasks for %s: %v", goalID, err)
		return 0, 0
	}
	for _, t := range tasks {
		if t.Status == goal.TaskDone {
			done++
		}
	}
	return done, len(tasks)
}

func (a *Assistant) listGoals(ctx context.Context, now time.Time) (string, error) {
	goals, err := a.repo.List(ctx)
	if err != nil {
		return "", err
	}
	if len(goals) == 0 {
		return "No goals yet. Tell me about one and we'll set it up.", nil
	}
	active := 0
	for _, g := range goals {
		if g.Status == goal.StatusActive {
			active++
		}
	}
	var b strings.Builder
	fmt.Fprintf(&b, "🎯 Goals (%d active / %d total)", active, len(goals))
	for _, g := range goals {
		fmt.Fprintf(&b, "\n%s [%s] %s", g.ID, g.DisplayStatus(now), g.Name)
		if g.DueDate != nil {
			fmt.Fprintf(&b, " · due %s", g.DueDate.Format("2006-01-02"))
		}
	}
	return b.String(), nil
}

func (a *Assistant) showPlan(ctx context.Context, ref string, now time.Time) (string, error) {
	g, err := goal.Resolve(ctx, a.repo, ref)
	if err != nil {
		return "", err
	}
	tasks, err := a.repo.ListTasks(ctx, g.ID)
	if err != nil {
		return "", err
	}
	if len(tasks) == 0 {
		return fmt.Sprintf("%s has no action plan yet. Say \"plan %s\" to generate one.", g.ID, g.ID), nil
	}
	done := 0
	for _, t := range tasks {
		if t.Status == goal.TaskDone {
			done++
		}
	}
	var b strings.Builder
	fmt.Fprintf(&b, "📋 %s (%s) · %d/%d done", g.Name, g.ID, done, len(tasks))
	for _, t := range tasks {
		fmt.Fprintf(&b, "\n%d. %s %s: %s", t.Seq, taskEmoji(t.Status), t.Timeline, t.Name)
	}
	return b.String(), nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func statusEmoji(st goal.Status) string {
	switch st {
	case goal.StatusActive:
		return "▶️"
	case goal.StatusPaused:
		return "⏸"
	case goal.StatusCompleted:
		return "🎉"
	case goal.StatusCancelled:
		return "🚫"
	}
	return "•"
}

func taskEmoji(st goal.TaskStatus) string {
	switch st {
	case goal.TaskDone:
		return "✅"
	case goal.TaskInProgress:
		return "🔄"
	}
	return "⬜"
}

func translateErr(err error) string {
	var parseErr *schedule.ParseError
	var genErr *plan.GenerationError
	switch {
	case errors.Is(err, goal.ErrNotFound):
		return "I couldn't find that goal. Say \"list goals\" to see what's tracked."
	case errors.Is(err, goal.ErrAmbiguousReference):
		return "That name doesn't pin down exactly one open goal. Say \"list goals\" to see what's tracked, or use the GOAL-xxx id."
	case errors.Is(err, goal.ErrInvalidTransition):
		return "That goal is already closed, so its status can't change. I can still add notes to it."
	case errors.As(err, &parseErr):
		if parseErr.Hint != "" {
			return fmt.Sprintf("I couldn't read %q: %s.", parseErr.Phrase, parseErr.Hint)
		}
		return fmt.Sprintf("I couldn't read %q as a schedule or date.", parseErr.Phrase)
	case errors.As(err, &genErr):
		return "The action plan didn't come together this time. Ask me to plan the goal again in a moment."
	}
	return ""
}
