// Package status builds the read-only views shared by the terminal dashboard,
// the HTTP status endpoint and the status websocket.
package status

import (
	"fmt"
	"time"

	"github.com/ent0n29/pomochat/internal/pomodoro"
	"github.com/ent0n29/pomochat/internal/tasks"
)

const leaderboardSize = 5

// Timer is the part of the pomodoro engine the projector needs. Observe may
// advance the phase and must be called once per snapshot.
type Timer interface {
	Observe() pomodoro.State
}

type TaskSource interface {
	Today() []tasks.Task
	Leaderboard(n int) (daily, total []tasks.Ranked)
	TotalCompleted() int
}

// Snapshot is the wire shape of GET /status.
type Snapshot struct {
	RemainingSeconds int    `json:"remaining_seconds"`
	Phase            string `json:"phase"`
	PomodoroCount    int    `json:"pomodoro_count"`
	MaxPomodoros     int    `json:"max_pomodoros"`
	TotalCompleted   int    `json:"total_completed"`
}

// Board is the full dashboard view.
type Board struct {
	Status         Snapshot       `json:"status"`
	PhaseLabel     string         `json:"phase_label"`
	Paused         bool           `json:"paused"`
	Tasks          []tasks.Task   `json:"tasks"`
	TopDaily       []tasks.Ranked `json:"top_daily"`
	TopTotal       []tasks.Ranked `json:"top_total"`
	TasksCompleted int            `json:"tasks_completed"`
	GeneratedAt    time.Time      `json:"generated_at"`
}

type Projector struct {
	timer Timer
	tasks TaskSource
	now   func() time.Time
}

func NewProjector(timer Timer, source TaskSource) *Projector {
	return &Projector{timer: timer, tasks: source, now: time.Now}
}

// Snapshot observes the timer exactly once and returns the post-transition view.
func (p *Projector) Snapshot() Snapshot {
	return fromState(p.timer.Observe())
}

// Board observes the timer once and adds the task board.
func (p *Projector) Board() Board {
	st := p.timer.Observe()
	b := Board{
		Status:     fromState(st),
		PhaseLabel: st.Phase.Label(),
		Paused:     st.Paused,
		Tasks:      []tasks.Task{},
	}
	if p.tasks != nil {
		b.Tasks = p.tasks.Today()
		b.TopDaily, b.TopTotal = p.tasks.Leaderboard(leaderboardSize)
		b.TasksCompleted = p.tasks.TotalCompleted()
	}
	if b.Tasks == nil {
		b.Tasks = []tasks.Task{}
	}
	b.GeneratedAt = p.now().UTC()
	return b
}

func fromState(st pomodoro.State) Snapshot {
	return Snapshot{
		RemainingSeconds: st.RemainingSeconds(),
		Phase:            string(st.Phase),
		PomodoroCount:    st.PomodorosInCycle,
		MaxPomodoros:     st.MaxPomodoros,
		TotalCompleted:   st.CompletedToday,
	}
}

// FormatRemaining renders seconds as MM:SS.
func FormatRemaining(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
