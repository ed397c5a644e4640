package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ent0n29/pomochat/internal/pomodoro"
	"github.com/ent0n29/pomochat/internal/status"
	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	var (
		baseURL string
		asJSON  bool
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Print the timer status of a running bot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			snap, raw, err := fetchStatus(ctx, baseURL)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				_, err := out.Write(raw)
				return err
			}
			_, err = fmt.Fprintln(out, formatSnapshot(snap))
			return err
		},
	}
	cmd.Flags().StringVar(&baseURL, "url", "http://127.0.0.1:8080", "base URL of the bot's HTTP API")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw JSON document")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "request timeout")
	return cmd
}

func fetchStatus(ctx context.Context, baseURL string) (status.Snapshot, []byte, error) {
	endpoint := strings.TrimRight(baseURL, "/") + "/status"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return status.Snapshot{}, nil, fmt.Errorf("build status request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return status.Snapshot{}, nil, fmt.Errorf("fetch %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return status.Snapshot{}, nil, fmt.Errorf("read status: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return status.Snapshot{}, nil, fmt.Errorf("fetch %s: unexpected status %d", endpoint, resp.StatusCode)
	}
	var snap status.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return status.Snapshot{}, nil, fmt.Errorf("decode status: %w", err)
	}
	return snap, raw, nil
}

func formatSnapshot(s status.Snapshot) string {
	phase := pomodoro.Phase(s.Phase)
	if phase == pomodoro.PhaseIdle {
		return fmt.Sprintf("Idle (%d completed today)", s.TotalCompleted)
	}
	return fmt.Sprintf("%s %s (pomodoro %d/%d, %d completed today)",
		phase.Label(), status.FormatRemaining(s.RemainingSeconds), s.PomodoroCount, s.MaxPomodoros, s.TotalCompleted)
}
