// Package pomodoro implements the shared work/break timer.
//
// The engine never sleeps. Phase changes happen lazily: every call to Observe
// checks whether the running countdown has elapsed and, if so, moves to the
// next phase before returning. Observe is therefore a mutating read, and its
// check-and-advance runs under the engine lock so concurrent observers can
// never advance the same countdown twice.
package pomodoro

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

type Phase string

const (
	PhaseIdle       Phase = ""
	PhaseFocus      Phase = "focus"
	PhaseShortBreak Phase = "short_break"
	PhaseLongBreak  Phase = "long_break"
)

// Label is the human-readable phase name used in chat replies.
func (p Phase) Label() string {
	switch p {
	case PhaseFocus:
		return "Focus"
	case PhaseShortBreak:
		return "Short break"
	case PhaseLongBreak:
		return "Long break"
	default:
		return "Idle"
	}
}

var ErrInvalidArgument = errors.New("invalid argument")

const DefaultMaxPomodoros = 4

// MaxPhaseMinutes caps a single phase at one day.
const MaxPhaseMinutes = 24 * 60

type Durations struct {
	Focus      time.Duration
	ShortBreak time.Duration
	LongBreak  time.Duration
}

func DefaultDurations() Durations {
	return Durations{
		Focus:      25 * time.Minute,
		ShortBreak: 5 * time.Minute,
		LongBreak:  15 * time.Minute,
	}
}

type Config struct {
	Durations    Durations
	MaxPomodoros int
	// Now defaults to time.Now.
	Now func() time.Time
}

// State is a point-in-time copy of the timer.
type State struct {
	Phase            Phase
	Paused           bool
	Remaining        time.Duration
	StartedAt        time.Time
	EndsAt           time.Time
	PomodorosInCycle int
	MaxPomodoros     int
	CompletedToday   int
}

// RemainingSeconds is Remaining clamped at zero and truncated to seconds.
func (s State) RemainingSeconds() int {
	if s.Remaining <= 0 {
		return 0
	}
	return int(s.Remaining / time.Second)
}

func (s State) Running() bool {
	return s.Phase != PhaseIdle && !s.Paused
}

type Engine struct {
	mu sync.Mutex

	now          func() time.Time
	durations    Durations
	maxPerCycle  int
	phase        Phase
	startedAt    time.Time
	endsAt       time.Time
	paused       bool
	pausedAt     time.Time
	inCycle      int
	doneToday    int
	lastResetDay string

	onPhaseChange func(Phase)
}

func NewEngine(cfg Config) *Engine {
	def := DefaultDurations()
	if cfg.Durations.Focus <= 0 {
		cfg.Durations.Focus = def.Focus
	}
	if cfg.Durations.ShortBreak <= 0 {
		cfg.Durations.ShortBreak = def.ShortBreak
	}
	if cfg.Durations.LongBreak <= 0 {
		cfg.Durations.LongBreak = def.LongBreak
	}
	if cfg.MaxPomodoros <= 0 {
		cfg.MaxPomodoros = DefaultMaxPomodoros
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Engine{
		now:          cfg.Now,
		durations:    cfg.Durations,
		maxPerCycle:  cfg.MaxPomodoros,
		lastResetDay: dayKey(cfg.Now()),
	}
}

// SetPhaseChangeHook registers the callback fired after every automatic phase
// change. It runs outside the engine lock.
func (e *Engine) SetPhaseChangeHook(hook func(Phase)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onPhaseChange = hook
}

// Start begins a countdown. From Idle it enters Focus; otherwise it restarts
// the countdown of the current phase. Start also clears a pause.
func (e *Engine) Start() (Phase, time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.phase == PhaseIdle {
		e.phase = PhaseFocus
	}
	e.startLocked(e.now())
	return e.phase, e.durationLocked(e.phase)
}

// Stop is a full reset: no countdown, no pause, cycle position back to zero.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.phase = PhaseIdle
	e.startedAt = time.Time{}
	e.endsAt = time.Time{}
	e.paused = false
	e.pausedAt = time.Time{}
	e.inCycle = 0
}

// Pause freezes the displayed remaining time. It reports false when there is
// no running countdown or the timer is already paused.
func (e *Engine) Pause() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.phase == PhaseIdle || e.paused {
		return false
	}
	e.paused = true
	e.pausedAt = e.now()
	return true
}

// Resume clears a pause. The deadline is not pushed back by the time spent
// paused, so the remaining time jumps to ends_at - now.
func (e *Engine) Resume() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.paused {
		return false
	}
	e.paused = false
	e.pausedAt = time.Time{}
	return true
}

// ParseKind maps a chat or config name to a countdown phase.
func ParseKind(kind string) (Phase, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "focus":
		return PhaseFocus, nil
	case "short", "short_break":
		return PhaseShortBreak, nil
	case "long", "long_break":
		return PhaseLongBreak, nil
	default:
		return PhaseIdle, fmt.Errorf("%w: unknown timer type %q", ErrInvalidArgument, kind)
	}
}

// SetDuration changes the length of one phase. A countdown already in
// progress keeps its deadline.
func (e *Engine) SetDuration(kind string, minutes int) error {
	phase, err := ParseKind(kind)
	if err != nil {
		return err
	}
	if minutes <= 0 || minutes > MaxPhaseMinutes {
		return fmt.Errorf("%w: duration must be between 1 and %d minutes", ErrInvalidArgument, MaxPhaseMinutes)
	}
	d := time.Duration(minutes) * time.Minute

	e.mu.Lock()
	defer e.mu.Unlock()
	switch phase {
	case PhaseFocus:
		e.durations.Focus = d
	case PhaseShortBreak:
		e.durations.ShortBreak = d
	case PhaseLongBreak:
		e.durations.LongBreak = d
	}
	return nil
}

func (e *Engine) Duration(phase Phase) time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.durationLocked(phase)
}

func (e *Engine) Durations() Durations {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.durations
}

func (e *Engine) MaxPomodoros() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.maxPerCycle
}

// Observe is the only mutating read. It applies the daily counter rollover,
// advances the phase when the running countdown has elapsed and returns the
// post-transition state. The phase-change hook fires after the lock is
// released.
func (e *Engine) Observe() State {
	e.mu.Lock()
	now := e.now()
	e.rolloverLocked(now)

	advanced := false
	if e.phase != PhaseIdle && !e.paused && e.remainingLocked(now) <= 0 {
		e.advanceLocked(now)
		advanced = true
	}
	st := e.stateLocked(now)
	hook := e.onPhaseChange
	e.mu.Unlock()

	if advanced && hook != nil {
		hook(st.Phase)
	}
	return st
}

func (e *Engine) advanceLocked(now time.Time) {
	switch e.phase {
	case PhaseFocus:
		e.doneToday++
		e.inCycle++
		if e.inCycle >= e.maxPerCycle {
			e.inCycle = 0
			e.phase = PhaseLongBreak
		} else {
			e.phase = PhaseShortBreak
		}
	default:
		e.phase = PhaseFocus
	}
	e.startLocked(now)
}

func (e *Engine) startLocked(now time.Time) {
	e.startedAt = now
	e.endsAt = now.Add(e.durationLocked(e.phase))
	e.paused = false
	e.pausedAt = time.Time{}
}

func (e *Engine) rolloverLocked(now time.Time) {
	if today := dayKey(now); today > e.lastResetDay {
		e.doneToday = 0
		e.lastResetDay = today
	}
}

func (e *Engine) remainingLocked(now time.Time) time.Duration {
	switch {
	case e.phase == PhaseIdle:
		return 0
	case e.paused:
		return e.endsAt.Sub(e.pausedAt)
	default:
		return e.endsAt.Sub(now)
	}
}

func (e *Engine) durationLocked(phase Phase) time.Duration {
	switch phase {
	case PhaseShortBreak:
		return e.durations.ShortBreak
	case PhaseLongBreak:
		return e.durations.LongBreak
	default:
		return e.durations.Focus
	}
}

func (e *Engine) stateLocked(now time.Time) State {
	remaining := e.remainingLocked(now)
	if remaining < 0 {
		remaining = 0
	}
	return State{
		Phase:            e.phase,
		Paused:           e.paused,
		Remaining:        remaining,
		StartedAt:        e.startedAt,
		EndsAt:           e.endsAt,
		PomodorosInCycle: e.inCycle,
		MaxPomodoros:     e.maxPerCycle,
		CompletedToday:   e.doneToday,
	}
}

func dayKey(t time.Time) string {
	return t.Format("2006-01-02")
}
