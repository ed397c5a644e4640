package httpapi

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/ent0n29/pomochat/internal/config"
	"github.com/ent0n29/pomochat/internal/observability"
	"github.com/ent0n29/pomochat/internal/status"
	"github.com/ent0n29/pomochat/internal/tasks"
)

const statusPushInterval = time.Second

type StatusSource interface {
	Snapshot() status.Snapshot
	Board() status.Board
}

type TaskReader interface {
	ListOpen(owner string) []tasks.Task
	Today() []tasks.Task
	Leaderboard(n int) (daily, total []tasks.Ranked)
	StoreMode() string
}

type BlockList interface {
	List() []string
}

type VolumeSource interface {
	Volume() int
}

type Deps struct {
	Status  StatusSource
	Tasks   TaskReader
	Blocked BlockList
	Volume  VolumeSource
	Metrics *observability.Metrics

	// Ready reports whether the chat transport is connected. Nil means ready.
	Ready func() bool
}

type Server struct {
	cfg      config.Config
	deps     Deps
	upgrader websocket.Upgrader
	static   http.Handler
	push     time.Duration
}

func New(cfg config.Config, deps Deps) *Server {
	return &Server{
		cfg:    cfg,
		deps:   deps,
		static: newStaticHandler(),
		push:   statusPushInterval,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/ui/", http.StatusTemporaryRedirect)
	})
	r.Get("/ui", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/ui/", http.StatusTemporaryRedirect)
	})
	r.Handle("/ui/*", http.StripPrefix("/ui/", s.static))

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	if s.deps.Metrics != nil {
		r.Handle("/metrics", s.deps.Metrics.Handler())
	}

	r.Get("/status", s.handleStatus)
	r.Get("/v1/board", s.handleBoard)
	r.Get("/v1/status/ws", s.handleStatusWS)
	r.Get("/v1/tasks", s.handleListTasks)
	r.Get("/v1/leaderboard", s.handleLeaderboard)
	r.Get("/v1/blocked", s.handleListBlocked)
	r.Get("/v1/sound/{cue}", s.handleSound)
	r.Get("/v1/perf/commands", s.handlePerfCommands)
	r.Post("/v1/perf/commands/reset", s.handlePerfCommandsReset)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":          "ok",
		"task_store_mode": s.taskStoreMode(),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	if s.deps.Ready != nil && !s.deps.Ready() {
		respondJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status":          "chat_disconnected",
			"task_store_mode": s.taskStoreMode(),
		})
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"status":          "ready",
		"task_store_mode": s.taskStoreMode(),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	if s.deps.Status == nil {
		respondError(w, http.StatusNotImplemented, "unavailable", "timer not configured")
		return
	}
	respondJSON(w, http.StatusOK, s.deps.Status.Snapshot())
}

func (s *Server) handleBoard(w http.ResponseWriter, _ *http.Request) {
	if s.deps.Status == nil {
		respondError(w, http.StatusNotImplemented, "unavailable", "timer not configured")
		return
	}
	respondJSON(w, http.StatusOK, s.deps.Status.Board())
}

// handleStatusWS pushes one status snapshot per interval until the client
// goes away.
func (s *Server) handleStatusWS(w http.ResponseWriter, r *http.Request) {
	if s.deps.Status == nil {
		respondError(w, http.StatusNotImplemented, "unavailable", "timer not configured")
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	if s.deps.Metrics != nil {
		s.deps.Metrics.StatusSubscribers.Inc()
		defer s.deps.Metrics.StatusSubscribers.Dec()
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Drain client frames so close and pong control messages are processed.
	go func() {
		defer cancel()
		conn.SetReadLimit(1 << 10)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(s.push)
	defer ticker.Stop()
	for {
		_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteJSON(s.deps.Status.Snapshot()); err != nil {
			return
		}
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
			return
		case <-ticker.C:
		}
	}
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write json response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}

func (s *Server) taskStoreMode() string {
	if s.deps.Tasks == nil {
		return "disabled"
	}
	mode := strings.TrimSpace(s.deps.Tasks.StoreMode())
	if mode == "" {
		return "disabled"
	}
	return mode
}
