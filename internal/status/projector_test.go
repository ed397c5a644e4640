package status

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/ent0n29/pomochat/internal/pomodoro"
	"github.com/ent0n29/pomochat/internal/tasks"
)

type countingTimer struct {
	calls int
	state pomodoro.State
}

func (c *countingTimer) Observe() pomodoro.State {
	c.calls++
	return c.state
}

type staticTasks struct{}

func (staticTasks) Today() []tasks.Task {
	return []tasks.Task{{ID: "abc", Description: "write", Owner: "alice"}}
}

func (staticTasks) Leaderboard(int) ([]tasks.Ranked, []tasks.Ranked) {
	return []tasks.Ranked{{User: "alice", Count: 1}}, []tasks.Ranked{{User: "alice", Count: 4}}
}

func (staticTasks) TotalCompleted() int { return 4 }

func TestSnapshotObservesOnce(t *testing.T) {
	timer := &countingTimer{state: pomodoro.State{
		Phase:            pomodoro.PhaseShortBreak,
		Remaining:        90*time.Second + 500*time.Millisecond,
		PomodorosInCycle: 2,
		MaxPomodoros:     4,
		CompletedToday:   6,
	}}
	p := NewProjector(timer, staticTasks{})

	got := p.Snapshot()
	want := Snapshot{RemainingSeconds: 90, Phase: "short_break", PomodoroCount: 2, MaxPomodoros: 4, TotalCompleted: 6}
	if got != want {
		t.Fatalf("Snapshot() = %+v, want %+v", got, want)
	}
	if timer.calls != 1 {
		t.Fatalf("Observe() calls = %d, want 1", timer.calls)
	}

	p.Board()
	if timer.calls != 2 {
		t.Fatalf("Observe() calls after Board() = %d, want 2", timer.calls)
	}
}

func TestSnapshotJSONShape(t *testing.T) {
	p := NewProjector(&countingTimer{state: pomodoro.State{MaxPomodoros: 4}}, nil)
	raw, err := json.Marshal(p.Snapshot())
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	want := `{"remaining_seconds":0,"phase":"","pomodoro_count":0,"max_pomodoros":4,"total_completed":0}`
	if string(raw) != want {
		t.Fatalf("json = %s, want %s", raw, want)
	}
}

func TestBoardIncludesTasks(t *testing.T) {
	p := NewProjector(&countingTimer{state: pomodoro.State{Phase: pomodoro.PhaseFocus, Paused: true}}, staticTasks{})
	b := p.Board()
	if len(b.Tasks) != 1 || b.TasksCompleted != 4 || len(b.TopTotal) != 1 {
		t.Fatalf("Board() = %+v", b)
	}
	if !b.Paused || b.PhaseLabel != "Focus" {
		t.Fatalf("Board() paused/label = %v/%q", b.Paused, b.PhaseLabel)
	}
}

func TestBoardWithoutTaskSource(t *testing.T) {
	b := NewProjector(&countingTimer{}, nil).Board()
	if b.Tasks == nil {
		t.Fatalf("Board().Tasks = nil, want empty slice")
	}
}

func TestFormatRemaining(t *testing.T) {
	cases := map[int]string{0: "00:00", 59: "00:59", 61: "01:01", 1500: "25:00", -3: "00:00"}
	for in, want := range cases {
		if got := FormatRemaining(in); got != want {
			t.Fatalf("FormatRemaining(%d) = %q, want %q", in, got, want)
		}
	}
}
