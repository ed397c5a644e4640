// Package commands turns chat lines into actions against the task store, the
// block list, the pomodoro timer and the cue volume, and renders the reply.
package commands

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/ent0n29/pomochat/internal/pomodoro"
	"github.com/ent0n29/pomochat/internal/status"
	"github.com/ent0n29/pomochat/internal/tasks"
)

const (
	taskHelp = "Task commands: !task add <description> | !task remove <id> | " +
		"!task complete <id> | !task list | !task stats"
	timerHelp = "Timer commands: !timer start | !timer stop | !timer pause | " +
		"!timer resume | !timer set <type> <minutes> | !timer status"
	generalHelp = "Commands: !hi | !lurk | !lurkers | !task | " +
		"!timer (admin) | !volume (admin) | !block <user> (admin) | !unblock <user> (admin)"
)

type TaskStore interface {
	Add(description, owner string) string
	Remove(id, owner string) bool
	Complete(id, owner string) bool
	ListOpen(owner string) []tasks.Task
	StatsOf(owner string) tasks.UserStats
	WipeAll(owner string) int
}

type AccessList interface {
	Block(identity string) bool
	Unblock(identity string) bool
	IsBlocked(identity string) bool
}

type Timer interface {
	Start() (pomodoro.Phase, time.Duration)
	Stop()
	Pause() bool
	Resume() bool
	SetDuration(kind string, minutes int) error
	Observe() pomodoro.State
}

type VolumeControl interface {
	Volume() int
	SetVolume(percent int) error
}

type Deps struct {
	Tasks   TaskStore
	Access  AccessList
	Timer   Timer
	Volume  VolumeControl
	Lurkers *Lurkers
}

// Router dispatches chat commands. The admin identity is compared
// case-sensitively for gated commands and case-insensitively for the
// block-list exemption.
type Router struct {
	admin   string
	tasks   TaskStore
	access  AccessList
	timer   Timer
	volume  VolumeControl
	lurkers *Lurkers

	observe func(command, outcome string, elapsed time.Duration)
}

func NewRouter(admin string, deps Deps) *Router {
	if deps.Lurkers == nil {
		deps.Lurkers = NewLurkers()
	}
	return &Router{
		admin:   admin,
		tasks:   deps.Tasks,
		access:  deps.Access,
		timer:   deps.Timer,
		volume:  deps.Volume,
		lurkers: deps.Lurkers,
	}
}

// SetObserver registers a callback receiving the command name, its outcome
// class and the handling time for every command that reached a handler.
func (r *Router) SetObserver(fn func(command, outcome string, elapsed time.Duration)) {
	r.observe = fn
}

func (r *Router) Lurkers() *Lurkers { return r.lurkers }

// Handle processes one chat line from user. It returns the reply and whether
// a reply should be sent at all; blocked users and non-commands get none.
func (r *Router) Handle(ctx context.Context, user, text string) (string, bool) {
	if ctx.Err() != nil {
		return "", false
	}
	started := time.Now()
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "!") {
		return "", false
	}
	if !strings.EqualFold(user, r.admin) && r.access != nil && r.access.IsBlocked(user) {
		r.record(firstToken(text), "blocked", started)
		return "", false
	}

	var (
		reply string
		err   error
	)
	command := firstToken(text)
	switch command {
	case "!hi":
		reply = "hello"
	case "!help":
		reply = mention(user, generalHelp)
	case "!lurk":
		r.lurkers.Add(user)
		reply = fmt.Sprintf("Thanks for lurking %s!", user)
	case "!lurkers":
		reply = r.lurkerList()
	case "!block":
		reply, err = r.handleBlock(user, text, true)
	case "!unblock":
		reply, err = r.handleBlock(user, text, false)
	case "!task":
		reply, err = r.handleTask(user, text)
	case "!timer":
		reply, err = r.handleTimer(user, text)
	case "!volume":
		reply, err = r.handleVolume(user, text)
	default:
		return "", false
	}

	r.record(command, outcomeOf(err), started)
	if err != nil {
		log.Printf("command %s from %s: %v", command, user, err)
	}
	return reply, true
}

func (r *Router) lurkerList() string {
	names := r.lurkers.List()
	if len(names) == 0 {
		return "No one is currently lurking."
	}
	return "Current lurkers: " + strings.Join(names, ", ")
}

func (r *Router) handleBlock(user, text string, block bool) (string, error) {
	if user != r.admin {
		return mention(user, "Sorry, only the admin can use this command."), ErrPermissionDenied
	}
	parts := strings.Fields(text)
	if len(parts) != 2 {
		if block {
			return mention(user, "Usage: !block <username>"), ErrInvalidArgument
		}
		return mention(user, "Usage: !unblock <username>"), ErrInvalidArgument
	}
	target := strings.ToLower(parts[1])
	if block {
		if r.access.Block(target) {
			return mention(user, fmt.Sprintf("User %s has been blocked from using bot commands.", target)), nil
		}
		return mention(user, fmt.Sprintf("User %s is already blocked.", target)), nil
	}
	if r.access.Unblock(target) {
		return mention(user, fmt.Sprintf("User %s has been unblocked and can use bot commands again.", target)), nil
	}
	return mention(user, fmt.Sprintf("User %s is not blocked.", target)), nil
}

func (r *Router) handleTask(user, text string) (string, error) {
	parts := splitMax(text, 3)
	if len(parts) == 1 {
		return mention(user, taskHelp), nil
	}

	switch parts[1] {
	case "add":
		if len(parts) != 3 {
			return mention(user, "Please provide a task description."), ErrInvalidArgument
		}
		id := r.tasks.Add(parts[2], user)
		return mention(user, "Task added with ID: "+id), nil
	case "remove":
		if len(parts) != 3 {
			return mention(user, "Please provide a task ID to remove."), ErrInvalidArgument
		}
		if !r.tasks.Remove(parts[2], user) {
			return mention(user, fmt.Sprintf("Task %s not found or not assigned to you", parts[2])), ErrNotFound
		}
		return mention(user, fmt.Sprintf("Task %s removed", parts[2])), nil
	case "complete":
		if len(parts) != 3 {
			return mention(user, "Please provide a task ID to complete."), ErrInvalidArgument
		}
		if !r.tasks.Complete(parts[2], user) {
			return mention(user, fmt.Sprintf("Task %s not found or not assigned to you", parts[2])), ErrNotFound
		}
		return mention(user, fmt.Sprintf("Task %s marked as complete", parts[2])), nil
	case "list":
		return mention(user, "Your incomplete tasks: "+FormatTaskList(r.tasks.ListOpen(user))), nil
	case "stats":
		st := r.tasks.StatsOf(user)
		return mention(user, fmt.Sprintf("Your stats - Daily completed: %d, Total completed: %d", st.Daily, st.Total)), nil
	case "wipe":
		if user != r.admin {
			return mention(user, "You don't have permission to use this command."), ErrPermissionDenied
		}
		if len(parts) != 3 {
			return mention(user, "Please provide a username to wipe tasks for."), ErrInvalidArgument
		}
		n := r.tasks.WipeAll(parts[2])
		return mention(user, fmt.Sprintf("Wiped %d tasks for user %s", n, parts[2])), nil
	default:
		return mention(user, "Invalid task command. Type !task for help."), ErrInvalidArgument
	}
}

func (r *Router) handleTimer(user, text string) (string, error) {
	if user != r.admin {
		return mention(user, "Sorry, only the admin can use timer commands."), ErrPermissionDenied
	}
	parts := strings.Fields(text)
	if len(parts) == 1 {
		return mention(user, timerHelp), nil
	}

	switch parts[1] {
	case "start":
		phase, d := r.timer.Start()
		return mention(user, fmt.Sprintf("%s timer started for %d minutes!", phase.Label(), int(d/time.Minute))), nil
	case "stop":
		r.timer.Stop()
		return mention(user, "Timer stopped."), nil
	case "pause":
		if !r.timer.Pause() {
			return mention(user, "Timer is not running."), nil
		}
		return mention(user, "Timer paused."), nil
	case "resume":
		if !r.timer.Resume() {
			return mention(user, "Timer is not paused."), nil
		}
		return mention(user, "Timer resumed."), nil
	case "status":
		return mention(user, describeTimer(r.timer.Observe())), nil
	case "set":
		if len(parts) != 4 {
			return mention(user, "Usage: !timer set <focus|short|long> <minutes>"), ErrInvalidArgument
		}
		kind := parts[2]
		minutes, err := strconv.Atoi(parts[3])
		if err != nil {
			return mention(user, "Invalid duration. Please use a number of minutes."), fmt.Errorf("%w: %v", ErrInvalidArgument, err)
		}
		switch kind {
		case "focus", "short", "long":
		default:
			return mention(user, "Invalid timer type. Use 'focus', 'short', or 'long'."), ErrInvalidArgument
		}
		if err := r.timer.SetDuration(kind, minutes); err != nil {
			return mention(user, fmt.Sprintf("Invalid duration. Please use between 1 and %d minutes.", pomodoro.MaxPhaseMinutes)), fmt.Errorf("%w: %v", ErrInvalidArgument, err)
		}
		return mention(user, fmt.Sprintf("%s timer set to %d minutes.", capitalize(kind), minutes)), nil
	default:
		return mention(user, "Invalid timer command. Type !timer for help."), ErrInvalidArgument
	}
}

func (r *Router) handleVolume(user, text string) (string, error) {
	if user != r.admin {
		return mention(user, "Sorry, only the admin can change the volume."), ErrPermissionDenied
	}
	parts := strings.Fields(text)
	switch len(parts) {
	case 1:
		return mention(user, fmt.Sprintf("Current volume is set to %d%%", r.volume.Volume())), nil
	case 2:
		v, err := strconv.Atoi(parts[1])
		if err != nil {
			return mention(user, "Invalid volume. Please use a number between 0 and 100"), fmt.Errorf("%w: %v", ErrInvalidArgument, err)
		}
		if err := r.volume.SetVolume(v); err != nil {
			return mention(user, "Volume must be between 0 and 100"), fmt.Errorf("%w: %v", ErrInvalidArgument, err)
		}
		return mention(user, fmt.Sprintf("Volume set to %d%%", v)), nil
	default:
		return mention(user, "Usage: !volume or !volume <0-100>"), ErrInvalidArgument
	}
}

func (r *Router) record(command, outcome string, started time.Time) {
	if r.observe != nil {
		r.observe(command, outcome, time.Since(started))
	}
}

// FormatTaskList renders open tasks on one chat line.
func FormatTaskList(list []tasks.Task) string {
	if len(list) == 0 {
		return "No incomplete tasks for today."
	}
	items := make([]string, 0, len(list))
	for _, t := range list {
		items = append(items, fmt.Sprintf("☐ %s: %s", t.ID, t.Description))
	}
	return strings.Join(items, " || ")
}

// PhaseAnnouncement is the chat line sent when the timer changes phase.
func PhaseAnnouncement(phase pomodoro.Phase) string {
	switch phase {
	case pomodoro.PhaseFocus:
		return "🍅 FOCUS TIME"
	case pomodoro.PhaseShortBreak:
		return "☕ SHORT BREAK"
	case pomodoro.PhaseLongBreak:
		return "🌴 LONG BREAK"
	default:
		return ""
	}
}

func describeTimer(st pomodoro.State) string {
	if st.Phase == pomodoro.PhaseIdle {
		return "Timer is idle."
	}
	msg := fmt.Sprintf("%s: %s remaining (pomodoro %d/%d, %d completed today)",
		st.Phase.Label(), status.FormatRemaining(st.RemainingSeconds()),
		st.PomodorosInCycle, st.MaxPomodoros, st.CompletedToday)
	if st.Paused {
		msg += " [paused]"
	}
	return msg
}

func mention(user, msg string) string {
	return "@" + user + " " + msg
}

func firstToken(text string) string {
	if i := strings.IndexAny(text, " \t"); i >= 0 {
		return text[:i]
	}
	return text
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// splitMax splits on runs of whitespace into at most n fields; the last
// field keeps the remainder of the line verbatim (minus surrounding space).
func splitMax(text string, n int) []string {
	var out []string
	rest := strings.TrimSpace(text)
	for rest != "" {
		if len(out) == n-1 {
			out = append(out, rest)
			break
		}
		i := strings.IndexAny(rest, " \t")
		if i < 0 {
			out = append(out, rest)
			break
		}
		out = append(out, rest[:i])
		rest = strings.TrimLeft(rest[i:], " \t")
	}
	return out
}
