package assistant

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/benhoenig/NOVA-II/internal/dialogue"
	"github.com/benhoenig/NOVA-II/internal/goal"
	"github.com/benhoenig/NOVA-II/internal/llm"
	"github.com/benhoenig/NOVA-II/internal/store"
)

type scriptedClient struct {
	responses []string
	calls     int
	systems   []string
	messages  [][]llm.Message
}

func (c *scriptedClient) Chat(ctx context.Context, system string, msgs []llm.Message) (*llm.Response, error) {
	c.systems = append(c.systems, system)
	c.messages = append(c.messages, msgs)
	if c.calls >= len(c.responses) {
		return &llm.Response{Content: "{}"}, nil
	}
	r := c.responses[c.calls]
	c.calls++
	return &llm.Response{Content: r}, nil
}

type fakeExtractor struct {
	proposals []dialogue.Proposal
	calls     int
}

func (f *fakeExtractor) Extract(ctx context.Context, utterance string, state map[string]string) (dialogue.Proposal, error) {
	if f.calls >= len(f.proposals) {
		return dialogue.Proposal{}, nil
	}
	p := f.proposals[f.calls]
	f.calls++
	return p, nil
}

func newTestAssistant(t *testing.T, client llm.Client, proposals []dialogue.Proposal) (*Assistant, *store.Store) {
	t.Helper()
	db, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("opening test store: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	machine := goal.NewMachine(db)
	engine := dialogue.NewEngine(&fakeExtractor{proposals: proposals}, db, nil)
	return New(client, db, machine, engine, db, time.UTC, 60000), db
}

func TestHandlePing(t *testing.T) {
	client := &scriptedClient{}
	a, _ := newTestAssistant(t, client, nil)

	reply, err := a.Handle(context.Background(), "U001", "ping")
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if reply != "pong! NOVA II is online." {
		t.Errorf("unexpected ping reply: %q", reply)
	}
	if client.calls != 0 {
		t.Errorf("ping should not hit the model, got %d calls", client.calls)
	}
}

func TestHandleHelp(t *testing.T) {
	a, _ := newTestAssistant(t, &scriptedClient{}, nil)

	reply, err := a.Handle(context.Background(), "U001", "HELP")
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if !strings.Contains(reply, "NOVA II Commands") {
		t.Errorf("expected the command menu, got %q", reply)
	}
}

func TestHandleListGoals(t *testing.T) {
	client := &scriptedClient{responses: []string{`{"intent": "list_goals"}`}}
	a, db := newTestAssistant(t, client, nil)
	due := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	if err := db.Create(context.Background(), &goal.Goal{Name: "Launch product", DueDate: &due}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	reply, err := a.Handle(context.Background(), "U001", "what are my goals?")
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if !strings.Contains(reply, "GOAL-001") || !strings.Contains(reply, "Launch product") {
		t.Errorf("expected the goal listed, got %q", reply)
	}
	if !strings.Contains(reply, "due 2026-03-01") {
		t.Errorf("expected the due date shown, got %q", reply)
	}
}

func TestHandleUpdateGoalStatus(t *testing.T) {
	client := &scriptedClient{responses: []string{
		`{"intent": "update_goal", "ref": "GOAL-001", "field": "status", "text": "pause"}`,
	}}
	a, db := newTestAssistant(t, client, nil)
	if err := db.Create(context.Background(), &goal.Goal{Name: "Launch product"}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	reply, err := a.Handle(context.Background(), "U001", "put the launch on hold")
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if !strings.Contains(reply, "Paused") {
		t.Errorf("expected paused confirmation, got %q", reply)
	}
	g, err := db.Get(context.Background(), "GOAL-001")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if g.Status != goal.StatusPaused {
		t.Errorf("expected status Paused in the store, got %s", g.Status)
	}
}

func TestHandleUpdateGoalNote(t *testing.T) {
	client := &scriptedClient{responses: []string{
		`{"intent": "update_goal", "ref": "launch", "field": "note", "text": "met the supplier, samples next week"}`,
	}}
	a, db := newTestAssistant(t, client, nil)
	if err := db.Create(context.Background(), &goal.Goal{Name: "Launch product"}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	reply, err := a.Handle(context.Background(), "U001", "update on the launch: met the supplier")
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if !strings.Contains(reply, "Noted") {
		t.Errorf("expected note confirmation, got %q", reply)
	}
	g, err := db.Get(context.Background(), "GOAL-001")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !strings.Contains(g.Notes, "met the supplier") {
		t.Errorf("expected the note stored, got %q", g.Notes)
	}
}

func TestHandleRescheduleWithBadPhraseIsFriendly(t *testing.T) {
	client := &scriptedClient{responses: []string{
		`{"intent": "update_goal", "ref": "GOAL-001", "field": "schedule", "text": "tomorrow"}`,
	}}
	a, db := newTestAssistant(t, client, nil)
	if err := db.Create(context.Background(), &goal.Goal{Name: "Launch product"}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	reply, err := a.Handle(context.Background(), "U001", "remind me about the launch tomorrow")
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if !strings.Contains(reply, `"tomorrow"`) || !strings.Contains(reply, "due date") {
		t.Errorf("expected the due-date hint surfaced, got %q", reply)
	}
}

func TestHandleCompleteTask(t *testing.T) {
	client := &scriptedClient{responses: []string{
		`{"intent": "complete_task", "ref": "GOAL-001", "task": 1}`,
	}}
	a, db := newTestAssistant(t, client, nil)
	ctx := context.Background()
	if err := db.Create(ctx, &goal.Goal{Name: "Launch product"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	for _, name := range []string{"Research", "Prototype"} {
		if err := db.AddTask(ctx, &goal.Task{GoalID: "GOAL-001", Name: name}); err != nil {
			t.Fatalf("AddTask: %v", err)
		}
	}

	reply, err := a.Handle(ctx, "U001", "task 1 of the launch is done")
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if !strings.Contains(reply, "Task 1 done") || !strings.Contains(reply, "(1/2)") {
		t.Errorf("expected completion with progress, got %q", reply)
	}
	tasks, err := db.ListTasks(ctx, "GOAL-001")
	if err != nil {
		t.Fatalf("ListTasks: %v", err)
	}
	if tasks[0].Status != goal.TaskDone {
		t.Errorf("expected task 1 Done, got %s", tasks[0].Status)
	}
}

func TestHandleNotFoundIsFriendly(t *testing.T) {
	client := &scriptedClient{responses: []string{
		`{"intent": "update_goal", "ref": "GOAL-999", "field": "status", "text": "pause"}`,
	}}
	a, _ := newTestAssistant(t, client, nil)

	reply, err := a.Handle(context.Background(), "U001", "pause goal 999")
	if err != nil {
		t.Fatalf("expected domain errors translated, got %v", err)
	}
	if !strings.Contains(reply, "couldn't find") {
		t.Errorf("expected not-found apology, got %q", reply)
	}
}

func TestHandleAmbiguousIsFriendly(t *testing.T) {
	client := &scriptedClient{responses: []string{
		`{"intent": "update_goal", "ref": "tiktok", "field": "status", "text": "pause"}`,
	}}
	a, db := newTestAssistant(t, client, nil)
	ctx := context.Background()
	for _, name := range []string{"Create TikTok videos", "Create TikTok ads"} {
		if err := db.Create(ctx, &goal.Goal{Name: name}); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	reply, err := a.Handle(ctx, "U001", "pause the tiktok goal")
	if err != nil {
		t.Fatalf("expected ambiguity translated, got %v", err)
	}
	if !strings.Contains(reply, "exactly one open goal") {
		t.Errorf("expected ambiguity reply, got %q", reply)
	}
}

func TestHandleKnowledgeStoreAndSearch(t *testing.T) {
	client := &scriptedClient{responses: []string{
		`{"intent": "kb_store", "text": "lesson: Never deploy on a Friday"}`,
		`{"intent": "kb_search", "text": "deploy"}`,
	}}
	a, _ := newTestAssistant(t, client, nil)
	ctx := context.Background()

	reply, err := a.Handle(ctx, "U001", "remember this lesson: never deploy on a friday")
	if err != nil {
		t.Fatalf("Handle store: %v", err)
	}
	if !strings.Contains(reply, "LES-001") {
		t.Errorf("expected lesson id in reply, got %q", reply)
	}

	reply, err = a.Handle(ctx, "U001", "what do I know about deploys?")
	if err != nil {
		t.Fatalf("Handle search: %v", err)
	}
	if !strings.Contains(reply, "Never deploy on a Friday") {
		t.Errorf("expected the lesson found, got %q", reply)
	}
}

func TestHandleChatFallbackKeepsHistory(t *testing.T) {
	client := &scriptedClient{responses: []string{
		`{"intent": "chat"}`,
		"Hello! How is the launch going?",
		`{"intent": "chat"}`,
		"Glad to hear it.",
	}}
	a, db := newTestAssistant(t, client, nil)
	ctx := context.Background()
	if err := db.Create(ctx, &goal.Goal{Name: "Launch product"}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	reply, err := a.Handle(ctx, "U001", "hey nova")
	if err != nil {
		t.Fatalf("Handle first chat: %v", err)
	}
	if reply != "Hello! How is the launch going?" {
		t.Errorf("unexpected chat reply: %q", reply)
	}
	if !strings.Contains(client.systems[1], "GOAL-001") {
		t.Errorf("expected goal context in the chat system prompt: %q", client.systems[1])
	}

	if _, err := a.Handle(ctx, "U001", "going well!"); err != nil {
		t.Fatalf("Handle second chat: %v", err)
	}
	// The fourth call is the second chat turn; it must carry history.
	last := client.messages[3]
	if len(last) != 3 {
		t.Fatalf("expected 3 history messages on second turn, got %d", len(last))
	}
	if last[0].Content != "hey nova" || last[1].Content != "Hello! How is the launch going?" {
		t.Errorf("history out of order: %+v", last)
	}
}

func TestHandleCreateFlowRoutedThroughEngine(t *testing.T) {
	client := &scriptedClient{responses: []string{
		`{"intent": "create_goal"}`,
	}}
	a, db := newTestAssistant(t, client, []dialogue.Proposal{
		{Name: "Launch product"},
		{DueDate: "2026-03-01"},
	})
	ctx := context.Background()

	reply, err := a.Handle(ctx, "U001", "I want to launch a product")
	if err != nil {
		t.Fatalf("Handle first turn: %v", err)
	}
	if !strings.Contains(reply, "due date") {
		t.Errorf("expected due-date prompt, got %q", reply)
	}

	// The second turn goes straight to the open draft without classification.
	reply, err = a.Handle(ctx, "U001", "march 1st")
	if err != nil {
		t.Fatalf("Handle second turn: %v", err)
	}
	if !strings.Contains(reply, "Created GOAL-001") {
		t.Errorf("expected creation summary, got %q", reply)
	}
	if client.calls != 1 {
		t.Errorf("expected only one classifier call, got %d", client.calls)
	}
	if _, err := db.Get(ctx, "GOAL-001"); err != nil {
		t.Errorf("expected the goal persisted: %v", err)
	}
}
