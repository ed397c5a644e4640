// Package dashboard draws the live status board in the terminal.
package dashboard

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"
	"golang.org/x/term"

	"github.com/ent0n29/pomochat/internal/status"
	"github.com/ent0n29/pomochat/internal/tasks"
)

const (
	defaultWidth = 100
	minWidth     = 60
)

type BoardSource interface {
	Board() status.Board
}

type Dashboard struct {
	out     io.Writer
	source  BoardSource
	refresh time.Duration

	programOptions []tea.ProgramOption
}

func New(out io.Writer, source BoardSource, refresh time.Duration) *Dashboard {
	if refresh <= 0 {
		refresh = time.Second
	}
	return &Dashboard{
		out:     out,
		source:  source,
		refresh: refresh,
	}
}

// IsTerminal reports whether w is an interactive terminal worth redrawing.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Run shows the board full screen until ctx is done or the user quits with
// q, esc or ctrl+c. Each refresh observes the timer once, so it also drives
// automatic phase changes. A nil return after ctx is done is normal; a nil
// return with ctx still live means the user closed the board.
func (d *Dashboard) Run(ctx context.Context) error {
	opts := []tea.ProgramOption{
		tea.WithContext(ctx),
		tea.WithOutput(d.out),
		tea.WithAltScreen(),
	}
	opts = append(opts, d.programOptions...)
	program := tea.NewProgram(newModel(d.source, d.refresh, terminalWidth(d.out)), opts...)
	if _, err := program.Run(); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	return nil
}

type boardMsg status.Board

type tickMsg time.Time

type model struct {
	source  BoardSource
	refresh time.Duration
	width   int
	board   status.Board
	loaded  bool
}

func newModel(source BoardSource, refresh time.Duration, width int) model {
	return model{source: source, refresh: refresh, width: width}
}

func (m model) Init() tea.Cmd {
	return m.loadBoardCmd()
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}
	case boardMsg:
		m.board = status.Board(msg)
		m.loaded = true
		return m, m.tickCmd()
	case tickMsg:
		return m, m.loadBoardCmd()
	}
	return m, nil
}

func (m model) View() string {
	if !m.loaded {
		return mutedStyle.Render("loading board...")
	}
	return Render(m.board, m.width) + "\n" + mutedStyle.Render("q to close the board")
}

func (m model) loadBoardCmd() tea.Cmd {
	return func() tea.Msg {
		return boardMsg(m.source.Board())
	}
}

func (m model) tickCmd() tea.Cmd {
	return tea.Tick(m.refresh, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Render lays the board out for a terminal of the given width: the timer
// pane on top, today's tasks and the leaderboards side by side below it.
func Render(b status.Board, width int) string {
	if width < minWidth {
		width = minWidth
	}
	inner := width - 4

	timer := paneStyle.Width(width - 2).Render(renderTimer(b, inner))

	leftWidth := (width * 3 / 5) - 2
	rightWidth := width - leftWidth - 4
	left := paneStyle.Width(leftWidth).Render(renderTasks(b.Tasks, leftWidth-2))
	right := paneStyle.Width(rightWidth).Render(renderLeaders(b, rightWidth-2))

	return lipgloss.JoinVertical(lipgloss.Left,
		timer,
		lipgloss.JoinHorizontal(lipgloss.Top, left, right),
	)
}

func renderTimer(b status.Board, width int) string {
	style, ok := phaseStyles[b.Status.Phase]
	if !ok {
		style = phaseStyles[""]
	}
	label := strings.ToUpper(b.PhaseLabel)
	if b.Paused {
		label += " (paused)"
	}
	clock := clockStyle.Render(status.FormatRemaining(b.Status.RemainingSeconds))
	line := lipgloss.JoinHorizontal(lipgloss.Center, style.Render(label), clock, cycleDots(b.Status.PomodoroCount, b.Status.MaxPomodoros))
	footer := mutedStyle.Render(fmt.Sprintf("tasks completed: %d   updated %s",
		b.TasksCompleted, b.GeneratedAt.Format("15:04:05")))
	return lipgloss.PlaceHorizontal(width, lipgloss.Center, line) + "\n" +
		lipgloss.PlaceHorizontal(width, lipgloss.Center, footer)
}

func cycleDots(done, max int) string {
	if max <= 0 {
		return ""
	}
	if done > max {
		done = max
	}
	return strings.Repeat("●", done) + strings.Repeat("○", max-done)
}

func renderTasks(list []tasks.Task, width int) string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render("Today's tasks"))
	if len(list) == 0 {
		sb.WriteString("\n" + mutedStyle.Render("no tasks yet, add one with !task add <description>"))
		return sb.String()
	}
	for _, t := range list {
		box := "☐"
		if t.Completed {
			box = "☑"
		}
		prefix := fmt.Sprintf("%s %s: ", box, t.Owner)
		avail := width - lipgloss.Width(prefix)
		if avail < 8 {
			avail = 8
		}
		desc := truncate.StringWithTail(t.Description, uint(avail), "…")
		if t.Completed {
			desc = doneStyle.Render(desc)
		}
		sb.WriteString("\n" + box + " " + userStyle.Render(t.Owner) + ": " + desc)
	}
	return sb.String()
}

func renderLeaders(b status.Board, width int) string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render("Top today"))
	writeRanks(&sb, b.TopDaily, width)
	sb.WriteString("\n\n" + titleStyle.Render("Top all time"))
	writeRanks(&sb, b.TopTotal, width)
	return sb.String()
}

func writeRanks(sb *strings.Builder, rows []tasks.Ranked, width int) {
	if len(rows) == 0 {
		sb.WriteString("\n" + mutedStyle.Render("-"))
		return
	}
	for i, r := range rows {
		line := fmt.Sprintf("%d. %s (%d)", i+1, r.User, r.Count)
		sb.WriteString("\n" + truncate.StringWithTail(line, uint(width), "…"))
	}
}

func terminalWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok {
		return defaultWidth
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 {
		return defaultWidth
	}
	return width
}
