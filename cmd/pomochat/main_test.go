package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/ent0n29/pomochat/internal/status"
	"github.com/rogpeppe/go-internal/testscript"
)

func TestMain(m *testing.M) {
	os.Exit(testscript.RunMain(m, map[string]func() int{
		"pomochat": run,
	}))
}

func TestScripts(t *testing.T) {
	testscript.Run(t, testscript.Params{
		Dir: "testdata/script",
	})
}

func TestFormatSnapshot(t *testing.T) {
	cases := []struct {
		name string
		snap status.Snapshot
		want string
	}{
		{name: "idle", snap: status.Snapshot{MaxPomodoros: 4, TotalCompleted: 2}, want: "Idle (2 completed today)"},
		{
			name: "focus",
			snap: status.Snapshot{RemainingSeconds: 1499, Phase: "focus", PomodoroCount: 1, MaxPomodoros: 4, TotalCompleted: 1},
			want: "Focus 24:59 (pomodoro 1/4, 1 completed today)",
		},
		{
			name: "long break",
			snap: status.Snapshot{RemainingSeconds: 900, Phase: "long_break", MaxPomodoros: 4, TotalCompleted: 4},
			want: "Long break 15:00 (pomodoro 0/4, 4 completed today)",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := formatSnapshot(tc.snap); got != tc.want {
				t.Fatalf("formatSnapshot() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestFetchStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/status" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"remaining_seconds":61,"phase":"short_break","pomodoro_count":2,"max_pomodoros":4,"total_completed":2}`))
	}))
	defer srv.Close()

	snap, raw, err := fetchStatus(context.Background(), srv.URL+"/")
	if err != nil {
		t.Fatalf("fetchStatus() error = %v", err)
	}
	if snap.Phase != "short_break" || snap.RemainingSeconds != 61 || snap.PomodoroCount != 2 {
		t.Fatalf("snapshot = %+v, want short_break 61s pomodoro 2", snap)
	}
	if len(raw) == 0 {
		t.Fatalf("raw body is empty")
	}
}

func TestFetchStatusRejectsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	if _, _, err := fetchStatus(context.Background(), srv.URL); err == nil {
		t.Fatalf("fetchStatus() error = nil, want status error")
	}
}
