package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/ent0n29/pomochat/internal/tasks"
)

const (
	defaultLeaderboardLimit = 5
	maxLeaderboardLimit     = 100
)

type listTasksResponse struct {
	Tasks []tasks.Task `json:"tasks"`
	User  string       `json:"user,omitempty"`
}

type leaderboardResponse struct {
	Daily []tasks.Ranked `json:"daily"`
	Total []tasks.Ranked `json:"total"`
}

// handleListTasks returns today's tasks, or the open tasks of ?user=.
func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	if s.deps.Tasks == nil {
		respondError(w, http.StatusNotImplemented, "task_store_disabled", "Task store is not configured.")
		return
	}
	user := strings.TrimSpace(r.URL.Query().Get("user"))
	var list []tasks.Task
	if user != "" {
		list = s.deps.Tasks.ListOpen(user)
	} else {
		list = s.deps.Tasks.Today()
	}
	if list == nil {
		list = []tasks.Task{}
	}
	respondJSON(w, http.StatusOK, listTasksResponse{Tasks: list, User: user})
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	if s.deps.Tasks == nil {
		respondError(w, http.StatusNotImplemented, "task_store_disabled", "Task store is not configured.")
		return
	}
	limit := defaultLeaderboardLimit
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxLeaderboardLimit {
			respondError(w, http.StatusBadRequest, "invalid_limit", "limit must be between 1 and 100")
			return
		}
		limit = n
	}
	daily, total := s.deps.Tasks.Leaderboard(limit)
	if daily == nil {
		daily = []tasks.Ranked{}
	}
	if total == nil {
		total = []tasks.Ranked{}
	}
	respondJSON(w, http.StatusOK, leaderboardResponse{Daily: daily, Total: total})
}

func (s *Server) handleListBlocked(w http.ResponseWriter, _ *http.Request) {
	users := []string{}
	if s.deps.Blocked != nil {
		users = append(users, s.deps.Blocked.List()...)
	}
	respondJSON(w, http.StatusOK, map[string]any{"blocked": users})
}
