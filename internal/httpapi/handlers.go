package httpapi

import (
	"math"
	"net/http"
	"time"

	"github.com/benhoenig/NOVA-II/internal/goal"
	"github.com/benhoenig/NOVA-II/internal/kb"
	"github.com/benhoenig/NOVA-II/internal/schedule"
	"github.com/benhoenig/NOVA-II/internal/store"
)

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.db.Stats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "stats": stats})
}

// goalView is a goal with its plan attached, plus the derived fields the
// dashboard renders: progress percentage and a due-date urgency bucket.
type goalView struct {
	*goal.Goal
	Tasks      []*goal.Task `json:"tasks"`
	TasksTotal int          `json:"tasks_total"`
	TasksDone  int          `json:"tasks_done"`
	Progress   int          `json:"progress"`
	Urgency    string       `json:"urgency"`
}

func (s *Server) handleGoals(w http.ResponseWriter, r *http.Request) {
	goals, err := s.repo.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	now := time.Now().In(s.loc)
	views := make([]goalView, 0, len(goals))
	for _, g := range goals {
		tasks, err := s.repo.ListTasks(r.Context(), g.ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if tasks == nil {
			tasks = []*goal.Task{}
		}
		done := 0
		for _, t := range tasks {
			if t.Status == goal.TaskDone {
				done++
			}
		}
		progress := 0
		if len(tasks) > 0 {
			progress = int(math.Round(float64(done) / float64(len(tasks)) * 100))
		}
		views = append(views, goalView{
			Goal:       g,
			Tasks:      tasks,
			TasksTotal: len(tasks),
			TasksDone:  done,
			Progress:   progress,
			Urgency:    urgency(g, now),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "goals": views})
}

func (s *Server) handleKB(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	if category == "All" {
		category = ""
	}

	var (
		entries []*kb.Entry
		err     error
	)
	if search := r.URL.Query().Get("search"); search != "" {
		entries, err = s.db.SearchEntries(r.Context(), search)
	} else {
		entries, err = s.db.ListEntries(r.Context(), category)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if entries == nil {
		entries = []*kb.Entry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"entries":    entries,
		"categories": kb.Categories(),
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	logs, err := s.db.RecentActions(r.Context(), 20)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if logs == nil {
		logs = []*store.ActionLog{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "logs": logs})
}

// urgency buckets a goal by days left until its due date, matching the
// color coding on the dashboard cards.
func urgency(g *goal.Goal, now time.Time) string {
	if g.DueDate == nil {
		return "normal"
	}
	daysLeft := schedule.DayIndex(*g.DueDate) - schedule.DayIndex(now)
	switch {
	case daysLeft < 0:
		return "overdue"
	case daysLeft <= 3:
		return "urgent"
	case daysLeft <= 7:
		return "warning"
	}
	return "normal"
}
