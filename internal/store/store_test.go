package store

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/benhoenig/NOVA-II/internal/goal"
	"github.com/benhoenig/NOVA-II/internal/kb"
	"github.com/benhoenig/NOVA-II/internal/schedule"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("opening test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

// --- Goals ---

func TestCreateAssignsSequentialIDs(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	first := &goal.Goal{Name: "Ship the quarterly report"}
	if err := s.Create(ctx, first); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if first.ID != "GOAL-001" {
		t.Errorf("expected GOAL-001, got %s", first.ID)
	}
	if first.Status != goal.StatusActive {
		t.Errorf("expected default status Active, got %s", first.Status)
	}
	if first.Priority != goal.PriorityMedium {
		t.Errorf("expected default priority Medium, got %s", first.Priority)
	}
	if first.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}

	second := &goal.Goal{Name: "Learn conversational Thai"}
	if err := s.Create(ctx, second); err != nil {
		t.Fatalf("Create second: %v", err)
	}
	if second.ID != "GOAL-002" {
		t.Errorf("expected GOAL-002, got %s", second.ID)
	}
}

func TestCreateRejectsDueBeforeStart(t *testing.T) {
	s := openTestStore(t)

	g := &goal.Goal{
		Name:      "Backwards goal",
		StartDate: date(2026, time.March, 10),
		DueDate:   date(2026, time.March, 1),
	}
	if err := s.Create(context.Background(), g); err == nil {
		t.Fatal("expected error for due date before start date")
	}
}

func TestGetRoundTripsAllFields(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	sched, err := schedule.Normalize("every tuesday and thursday at 20:00")
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	in := &goal.Goal{
		Name:        "Run a half marathon",
		Description: "Train up to 21km before race day",
		Category:    "Health",
		StartDate:   date(2026, time.February, 1),
		DueDate:     date(2026, time.May, 31),
		Priority:    goal.PriorityHigh,
		Schedule:    &sched,
		Notes:       "Coach suggested interval work",
	}
	if err := s.Create(ctx, in); err != nil {
		t.Fatalf("Create: %v", err)
	}

	out, err := s.Get(ctx, in.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if out.Name != in.Name || out.Description != in.Description || out.Category != in.Category {
		t.Errorf("text fields did not round trip: %+v", out)
	}
	if out.StartDate == nil || !out.StartDate.Equal(*in.StartDate) {
		t.Errorf("expected start date %v, got %v", in.StartDate, out.StartDate)
	}
	if out.DueDate == nil || !out.DueDate.Equal(*in.DueDate) {
		t.Errorf("expected due date %v, got %v", in.DueDate, out.DueDate)
	}
	if out.Priority != goal.PriorityHigh {
		t.Errorf("expected priority High, got %s", out.Priority)
	}
	if out.Schedule == nil || out.Schedule.String() != "Tuesday,Thursday 20:00" {
		t.Errorf("expected schedule Tuesday,Thursday 20:00, got %v", out.Schedule)
	}
	if out.LastReminded != nil {
		t.Errorf("expected no last reminded on a fresh goal, got %v", out.LastReminded)
	}
	if out.CompletedAt != nil {
		t.Errorf("expected no completion on a fresh goal, got %v", out.CompletedAt)
	}
}

func TestGetNotFound(t *testing.T) {
	s := openTestStore(t)

	_, err := s.Get(context.Background(), "GOAL-999")
	if !errors.Is(err, goal.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFindByNameFragment(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	older := &goal.Goal{Name: "Read ten books this year"}
	if err := s.Create(ctx, older); err != nil {
		t.Fatalf("Create: %v", err)
	}
	newer := &goal.Goal{Name: "Read the pgx documentation"}
	if err := s.Create(ctx, newer); err != nil {
		t.Fatalf("Create: %v", err)
	}

	found, err := s.FindByNameFragment(ctx, "READ")
	if err != nil {
		t.Fatalf("FindByNameFragment: %v", err)
	}
	if len(found) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(found))
	}
	if found[0].ID != newer.ID {
		t.Errorf("expected most recent goal first, got %s", found[0].ID)
	}

	none, err := s.FindByNameFragment(ctx, "piano")
	if err != nil {
		t.Fatalf("FindByNameFragment(piano): %v", err)
	}
	if len(none) != 0 {
		t.Errorf("expected no matches, got %d", len(none))
	}
}

func TestUpdatePartialLeavesOtherFields(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	g := &goal.Goal{Name: "Write a novella", Description: "40k words of fiction"}
	if err := s.Create(ctx, g); err != nil {
		t.Fatalf("Create: %v", err)
	}

	high := goal.PriorityHigh
	updated, err := s.Update(ctx, g.ID, goal.Update{Priority: &high, DueDate: date(2026, time.December, 1)})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Priority != goal.PriorityHigh {
		t.Errorf("expected priority High, got %s", updated.Priority)
	}
	if updated.DueDate == nil || updated.DueDate.Format("2006-01-02") != "2026-12-01" {
		t.Errorf("expected due date 2026-12-01, got %v", updated.DueDate)
	}
	if updated.Name != "Write a novella" || updated.Description != "40k words of fiction" {
		t.Errorf("untouched fields changed: %+v", updated)
	}
}

func TestUpdateAppendsNotes(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	g := &goal.Goal{Name: "Renovate the kitchen"}
	if err := s.Create(ctx, g); err != nil {
		t.Fatalf("Create: %v", err)
	}

	first := "[2026-02-16 09:00] Got two contractor quotes"
	if _, err := s.Update(ctx, g.ID, goal.Update{Note: &first}); err != nil {
		t.Fatalf("Update first note: %v", err)
	}
	second := "[2026-02-17 10:30] Picked the cheaper quote"
	updated, err := s.Update(ctx, g.ID, goal.Update{Note: &second})
	if err != nil {
		t.Fatalf("Update second note: %v", err)
	}

	lines := strings.Split(updated.Notes, "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 note lines, got %d: %q", len(lines), updated.Notes)
	}
	if lines[0] != first || lines[1] != second {
		t.Errorf("notes out of order: %q", updated.Notes)
	}
}

func TestUpdateNotFound(t *testing.T) {
	s := openTestStore(t)

	name := "renamed"
	_, err := s.Update(context.Background(), "GOAL-404", goal.Update{Name: &name})
	if !errors.Is(err, goal.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateEmptyIsNoOp(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	g := &goal.Goal{Name: "Plant a herb garden"}
	if err := s.Create(ctx, g); err != nil {
		t.Fatalf("Create: %v", err)
	}
	got, err := s.Update(ctx, g.ID, goal.Update{})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.Name != g.Name {
		t.Errorf("expected goal unchanged, got %+v", got)
	}
}

func TestListOrdersActiveFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	a := &goal.Goal{Name: "Active later due", DueDate: date(2026, time.June, 1)}
	b := &goal.Goal{Name: "Done goal"}
	c := &goal.Goal{Name: "Active sooner due", DueDate: date(2026, time.March, 1)}
	for _, g := range []*goal.Goal{a, b, c} {
		if err := s.Create(ctx, g); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}
	done := goal.StatusCompleted
	if _, err := s.Update(ctx, b.ID, goal.Update{Status: &done}); err != nil {
		t.Fatalf("Update status: %v", err)
	}

	all, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 goals, got %d", len(all))
	}
	if all[0].ID != c.ID || all[1].ID != a.ID || all[2].ID != b.ID {
		t.Errorf("unexpected order: %s, %s, %s", all[0].ID, all[1].ID, all[2].ID)
	}

	active, err := s.ListActive(ctx)
	if err != nil {
		t.Fatalf("ListActive: %v", err)
	}
	if len(active) != 2 {
		t.Fatalf("expected 2 active goals, got %d", len(active))
	}
}

func TestMarkRemindedOptimistic(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, time.February, 16, 9, 0, 0, 0, time.UTC)

	g := &goal.Goal{Name: "Morning pages"}
	if err := s.Create(ctx, g); err != nil {
		t.Fatalf("Create: %v", err)
	}

	ok, err := s.MarkReminded(ctx, g.ID, nil, now)
	if err != nil {
		t.Fatalf("MarkReminded: %v", err)
	}
	if !ok {
		t.Fatal("expected first mark to win")
	}

	// A second scan that still believes last_reminded is empty lost the race.
	ok, err = s.MarkReminded(ctx, g.ID, nil, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("MarkReminded stale nil: %v", err)
	}
	if ok {
		t.Error("expected stale nil mark to lose")
	}

	got, err := s.Get(ctx, g.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.LastReminded == nil || !got.LastReminded.Equal(now) {
		t.Fatalf("expected last reminded %v, got %v", now, got.LastReminded)
	}

	next := now.Add(24 * time.Hour)
	ok, err = s.MarkReminded(ctx, g.ID, got.LastReminded, next)
	if err != nil {
		t.Fatalf("MarkReminded with seen: %v", err)
	}
	if !ok {
		t.Error("expected mark with current seen value to win")
	}

	stale := now
	ok, err = s.MarkReminded(ctx, g.ID, &stale, next.Add(time.Hour))
	if err != nil {
		t.Fatalf("MarkReminded stale seen: %v", err)
	}
	if ok {
		t.Error("expected mark with stale seen value to lose")
	}
}

func TestDeleteCascadesTasks(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	g := &goal.Goal{Name: "Organize a meetup"}
	if err := s.Create(ctx, g); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := s.AddTask(ctx, &goal.Task{GoalID: g.ID, Name: "Book a venue"}); err != nil {
		t.Fatalf("AddTask: %v", err)
	}

	if err := s.Delete(ctx, g.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Delete(ctx, g.ID); !errors.Is(err, goal.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}

	tasks, err := s.ListTasks(ctx, g.ID)
	if err != nil {
		t.Fatalf("ListTasks: %v", err)
	}
	if len(tasks) != 0 {
		t.Errorf("expected tasks to cascade away, got %d", len(tasks))
	}
}

// --- Tasks ---

func TestAddTaskSequencesAndDefaults(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	g := &goal.Goal{Name: "Launch the newsletter"}
	if err := s.Create(ctx, g); err != nil {
		t.Fatalf("Create: %v", err)
	}

	t1 := &goal.Task{GoalID: g.ID, Name: "Pick a platform", Timeline: "Week 1"}
	t2 := &goal.Task{GoalID: g.ID, Name: "Write the first issue", Timeline: "Week 2"}
	for _, task := range []*goal.Task{t1, t2} {
		if err := s.AddTask(ctx, task); err != nil {
			t.Fatalf("AddTask: %v", err)
		}
	}
	if t1.Seq != 1 || t2.Seq != 2 {
		t.Errorf("expected seq 1 and 2, got %d and %d", t1.Seq, t2.Seq)
	}
	if t1.ID == 0 || t2.ID == 0 {
		t.Error("expected task ids to be assigned")
	}

	tasks, err := s.ListTasks(ctx, g.ID)
	if err != nil {
		t.Fatalf("ListTasks: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(tasks))
	}
	if tasks[0].Status != goal.TaskTodo {
		t.Errorf("expected default status Todo, got %s", tasks[0].Status)
	}
	if tasks[0].Timeline != "Week 1" {
		t.Errorf("expected timeline Week 1, got %q", tasks[0].Timeline)
	}
}

func TestAddTaskUnknownGoal(t *testing.T) {
	s := openTestStore(t)

	err := s.AddTask(context.Background(), &goal.Task{GoalID: "GOAL-404", Name: "orphan"})
	if !errors.Is(err, goal.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateTaskStatusStampsCompletion(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	g := &goal.Goal{Name: "Clear the reading backlog"}
	if err := s.Create(ctx, g); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := s.AddTask(ctx, &goal.Task{GoalID: g.ID, Name: "Finish chapter one"}); err != nil {
		t.Fatalf("AddTask: %v", err)
	}

	done, err := s.UpdateTaskStatus(ctx, g.ID, 1, goal.TaskDone)
	if err != nil {
		t.Fatalf("UpdateTaskStatus(Done): %v", err)
	}
	if done.Status != goal.TaskDone {
		t.Errorf("expected status Done, got %s", done.Status)
	}
	if done.CompletedAt == nil {
		t.Error("expected completion timestamp on Done")
	}

	reopened, err := s.UpdateTaskStatus(ctx, g.ID, 1, goal.TaskInProgress)
	if err != nil {
		t.Fatalf("UpdateTaskStatus(InProgress): %v", err)
	}
	if reopened.CompletedAt != nil {
		t.Error("expected completion timestamp cleared on reopen")
	}

	if _, err := s.UpdateTaskStatus(ctx, g.ID, 9, goal.TaskDone); !errors.Is(err, goal.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown seq, got %v", err)
	}
}

// --- Knowledge base ---

func TestAddEntryNumbersPerCategory(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	note := &kb.Entry{Title: "Standup notes", Category: "notes"}
	lesson1 := &kb.Entry{Title: "Never deploy on Friday", Category: "บทเรียน"}
	lesson2 := &kb.Entry{Title: "Budget buffer weeks", Category: "lessons"}
	for _, e := range []*kb.Entry{note, lesson1, lesson2} {
		if err := s.AddEntry(ctx, e); err != nil {
			t.Fatalf("AddEntry: %v", err)
		}
	}
	if note.ID != "NOTE-001" {
		t.Errorf("expected NOTE-001, got %s", note.ID)
	}
	if lesson1.ID != "LES-001" || lesson2.ID != "LES-002" {
		t.Errorf("expected LES-001 and LES-002, got %s and %s", lesson1.ID, lesson2.ID)
	}

	got, err := s.GetEntry(ctx, "les-002")
	if err != nil {
		t.Fatalf("GetEntry: %v", err)
	}
	if got.Title != "Budget buffer weeks" {
		t.Errorf("expected lesson two, got %q", got.Title)
	}
}

func TestSearchEntriesRanksByRelevance(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	entries := []*kb.Entry{
		{Title: "Pricing lessons", Content: "Pricing talks stall when pricing is vague", Category: "lessons"},
		{Title: "Venue shortlist", Content: "Three options near the office", Category: "notes"},
		{Title: "Pricing call", Content: "Client asked about volume discounts", Category: "customers"},
	}
	for _, e := range entries {
		if err := s.AddEntry(ctx, e); err != nil {
			t.Fatalf("AddEntry: %v", err)
		}
	}

	found, err := s.SearchEntries(ctx, "pricing")
	if err != nil {
		t.Fatalf("SearchEntries: %v", err)
	}
	if len(found) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(found))
	}
	if found[0].Title != "Pricing lessons" {
		t.Errorf("expected highest scoring entry first, got %q", found[0].Title)
	}
}

func TestListEntriesByCategory(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for _, e := range []*kb.Entry{
		{Title: "A", Category: "notes"},
		{Title: "B", Category: "business"},
		{Title: "C", Category: "notes"},
	} {
		if err := s.AddEntry(ctx, e); err != nil {
			t.Fatalf("AddEntry: %v", err)
		}
	}

	notes, err := s.ListEntries(ctx, "notes")
	if err != nil {
		t.Fatalf("ListEntries: %v", err)
	}
	if len(notes) != 2 {
		t.Fatalf("expected 2 notes, got %d", len(notes))
	}
	all, err := s.ListEntries(ctx, "")
	if err != nil {
		t.Fatalf("ListEntries(all): %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(all))
	}
}

// --- Subscribers ---

func TestSubscribersAddIsIdempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.AddSubscriber(ctx, "U001", "Ben"); err != nil {
		t.Fatalf("AddSubscriber: %v", err)
	}
	if err := s.AddSubscriber(ctx, "U001", "Ben"); err != nil {
		t.Fatalf("AddSubscriber twice: %v", err)
	}
	if err := s.AddSubscriber(ctx, "U002", ""); err != nil {
		t.Fatalf("AddSubscriber second user: %v", err)
	}

	subs, err := s.ListSubscribers(ctx)
	if err != nil {
		t.Fatalf("ListSubscribers: %v", err)
	}
	if len(subs) != 2 {
		t.Fatalf("expected 2 subscribers, got %d", len(subs))
	}

	if err := s.RemoveSubscriber(ctx, "U001"); err != nil {
		t.Fatalf("RemoveSubscriber: %v", err)
	}
	subs, err = s.ListSubscribers(ctx)
	if err != nil {
		t.Fatalf("ListSubscribers after remove: %v", err)
	}
	if len(subs) != 1 || subs[0] != "U002" {
		t.Errorf("expected only U002 left, got %v", subs)
	}
}

// --- History and stats ---

func TestLogActionAndRecent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	s.LogAction(ctx, "CREATE_GOAL", "Created GOAL-001", map[string]string{"goal_id": "GOAL-001"})
	s.LogAction(ctx, "COMPLETE_TASK", "Task 1 of GOAL-001 done", nil)

	logs, err := s.RecentActions(ctx, 10)
	if err != nil {
		t.Fatalf("RecentActions: %v", err)
	}
	if len(logs) != 2 {
		t.Fatalf("expected 2 log rows, got %d", len(logs))
	}
	if logs[0].ActionType != "COMPLETE_TASK" {
		t.Errorf("expected newest action first, got %s", logs[0].ActionType)
	}
	if !strings.Contains(logs[1].Details, "GOAL-001") {
		t.Errorf("expected details to carry the payload, got %q", logs[1].Details)
	}
}

func TestStatsCounts(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	g1 := &goal.Goal{Name: "One"}
	g2 := &goal.Goal{Name: "Two"}
	for _, g := range []*goal.Goal{g1, g2} {
		if err := s.Create(ctx, g); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}
	paused := goal.StatusPaused
	if _, err := s.Update(ctx, g2.ID, goal.Update{Status: &paused}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if err := s.AddTask(ctx, &goal.Task{GoalID: g1.ID, Name: "a"}); err != nil {
		t.Fatalf("AddTask: %v", err)
	}
	if err := s.AddTask(ctx, &goal.Task{GoalID: g1.ID, Name: "b"}); err != nil {
		t.Fatalf("AddTask: %v", err)
	}
	if _, err := s.UpdateTaskStatus(ctx, g1.ID, 1, goal.TaskDone); err != nil {
		t.Fatalf("UpdateTaskStatus: %v", err)
	}
	if err := s.AddEntry(ctx, &kb.Entry{Title: "memo"}); err != nil {
		t.Fatalf("AddEntry: %v", err)
	}

	st, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.ActiveGoals != 1 || st.TotalGoals != 2 {
		t.Errorf("goal counts wrong: %+v", st)
	}
	if st.TotalTasks != 2 || st.DoneTasks != 1 {
		t.Errorf("task counts wrong: %+v", st)
	}
	if st.KBEntries != 1 {
		t.Errorf("kb count wrong: %+v", st)
	}
}
