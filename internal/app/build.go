package app

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ent0n29/pomochat/internal/access"
	"github.com/ent0n29/pomochat/internal/audio"
	"github.com/ent0n29/pomochat/internal/chat"
	"github.com/ent0n29/pomochat/internal/commands"
	"github.com/ent0n29/pomochat/internal/config"
	"github.com/ent0n29/pomochat/internal/dashboard"
	"github.com/ent0n29/pomochat/internal/httpapi"
	"github.com/ent0n29/pomochat/internal/maintenance"
	"github.com/ent0n29/pomochat/internal/observability"
	"github.com/ent0n29/pomochat/internal/pomodoro"
	"github.com/ent0n29/pomochat/internal/status"
	"github.com/ent0n29/pomochat/internal/tasks"
)

const phaseQueueSize = 8

// Options carry the process stdio handed to the console transport and the
// terminal dashboard. Now overrides the wall clock in tests.
type Options struct {
	In  io.Reader
	Out io.Writer
	Now func() time.Time
}

type BuildResult struct {
	Config      config.Config
	API         *httpapi.Server
	Tasks       *tasks.Manager
	Blocked     *access.List
	Timer       *pomodoro.Engine
	Status      *status.Projector
	Router      *commands.Router
	Maintenance *maintenance.Scheduler
	Player      *audio.Player
	Chat        chat.Transport
	Dashboard   *dashboard.Dashboard
	Metrics     *observability.Metrics

	// Cleanup should be called on shutdown to release external resources (DB pool).
	Cleanup func() error
}

func Build(ctx context.Context, cfg config.Config, opts Options) (*BuildResult, error) {
	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	store, err := tasks.NewStore(ctx, cfg.DatabaseURL, cfg.TasksFile)
	if err != nil {
		return nil, fmt.Errorf("task store init failed: %w", err)
	}
	taskManager, err := tasks.NewManager(ctx, store)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("task store load failed: %w", err)
	}
	if opts.Now != nil {
		taskManager.SetClock(opts.Now)
	}
	taskManager.SetSaveErrorHook(func(error) {
		metrics.PersistenceErrors.WithLabelValues(store.Mode()).Inc()
	})
	log.Printf("task store: %s", store.Mode())

	blocked, err := access.Load(cfg.BlockedUsersFile)
	if err != nil {
		_ = taskManager.Close()
		return nil, fmt.Errorf("blocked users load failed: %w", err)
	}
	blocked.SetSaveErrorHook(func(error) {
		metrics.PersistenceErrors.WithLabelValues("blocked_users").Inc()
	})

	player := audio.NewPlayer(audio.PlayerConfig{
		Dir:     cfg.SoundDir,
		Command: cfg.SoundCommand,
		Volume:  cfg.SoundVolume,
	})

	engine := pomodoro.NewEngine(pomodoro.Config{
		Durations: pomodoro.Durations{
			Focus:      time.Duration(cfg.FocusMinutes) * time.Minute,
			ShortBreak: time.Duration(cfg.ShortBreakMinutes) * time.Minute,
			LongBreak:  time.Duration(cfg.LongBreakMinutes) * time.Minute,
		},
		MaxPomodoros: cfg.MaxPerCycle,
		Now:          opts.Now,
	})

	var connected atomic.Bool
	transport, err := newTransport(ctx, cfg, opts, metrics, &connected)
	if err != nil {
		_ = taskManager.Close()
		return nil, err
	}

	router := commands.NewRouter(cfg.AdminUser, commands.Deps{
		Tasks:  taskManager,
		Access: blocked,
		Timer:  engine,
		Volume: player,
	})
	router.SetObserver(func(command, outcome string, elapsed time.Duration) {
		metrics.ObserveCommand(command, outcome, elapsed)
		metrics.OpenTasks.Set(float64(taskManager.OpenCount()))
	})

	// The hook runs on whichever goroutine observed the timer, often a status
	// read, so chat and sound I/O happen on the announcer goroutine.
	announceCtx, stopAnnouncer := context.WithCancel(ctx)
	phases := make(chan pomodoro.Phase, phaseQueueSize)
	go announcePhases(announceCtx, phases, transport, player)
	engine.SetPhaseChangeHook(func(phase pomodoro.Phase) {
		metrics.PhaseTransitions.WithLabelValues(string(phase)).Inc()
		select {
		case phases <- phase:
		default:
			log.Printf("phase announcement queue full, dropping %s", phase)
		}
	})

	scheduler := maintenance.New(taskManager, router.Lurkers())
	scheduler.SetRunHook(func(pruned int) {
		metrics.MaintenanceRuns.Inc()
		metrics.PrunedTasks.Add(float64(pruned))
		metrics.OpenTasks.Set(float64(taskManager.OpenCount()))
	})
	metrics.OpenTasks.Set(float64(taskManager.OpenCount()))

	projector := status.NewProjector(engine, taskManager)

	api := httpapi.New(cfg, httpapi.Deps{
		Status:  projector,
		Tasks:   taskManager,
		Blocked: blocked,
		Volume:  player,
		Metrics: metrics,
		Ready:   connected.Load,
	})

	var board *dashboard.Dashboard
	switch {
	case !cfg.DashboardEnabled:
	case cfg.ChatTransport == config.TransportConsole:
		log.Printf("terminal dashboard disabled: the console transport owns the terminal")
	case !dashboard.IsTerminal(opts.Out):
		log.Printf("terminal dashboard disabled: stdout is not a terminal")
	default:
		board = dashboard.New(opts.Out, projector, cfg.DashboardRefresh)
	}

	cleanup := func() error {
		stopAnnouncer()
		var errs []string
		if err := taskManager.Close(); err != nil {
			errs = append(errs, err.Error())
		}
		if len(errs) > 0 {
			return fmt.Errorf("%s", strings.Join(errs, "; "))
		}
		return nil
	}

	return &BuildResult{
		Config:      cfg,
		API:         api,
		Tasks:       taskManager,
		Blocked:     blocked,
		Timer:       engine,
		Status:      projector,
		Router:      router,
		Maintenance: scheduler,
		Player:      player,
		Chat:        transport,
		Dashboard:   board,
		Metrics:     metrics,
		Cleanup:     cleanup,
	}, nil
}

func announcePhases(ctx context.Context, phases <-chan pomodoro.Phase, transport chat.Transport, player *audio.Player) {
	for {
		select {
		case <-ctx.Done():
			return
		case phase := <-phases:
			if line := commands.PhaseAnnouncement(phase); line != "" {
				if err := transport.Say(ctx, line); err != nil {
					log.Printf("phase announcement dropped: %v", err)
				}
			}
			if _, err := player.Cue(ctx, string(phase)); err != nil {
				log.Printf("phase cue failed: %v", err)
			}
		}
	}
}

// HandleChat adapts the command router to the chat transport handler shape.
func (b *BuildResult) HandleChat(ctx context.Context, msg chat.Message) (string, bool) {
	return b.Router.Handle(ctx, msg.User, msg.Text)
}

func newTransport(ctx context.Context, cfg config.Config, opts Options, metrics *observability.Metrics, connected *atomic.Bool) (chat.Transport, error) {
	switch cfg.ChatTransport {
	case config.TransportConsole:
		connected.Store(true)
		log.Printf("chat transport: console (lines as \"user: text\", default user %s)", cfg.AdminUser)
		return chat.NewConsole(opts.In, opts.Out, cfg.AdminUser), nil
	case config.TransportTwitch:
		tokens, err := chat.NewTokenSource(ctx, chat.TokenConfig{
			StaticToken:  cfg.TwitchOAuthToken,
			ClientID:     cfg.TwitchClientID,
			ClientSecret: cfg.TwitchSecret,
			RefreshToken: cfg.TwitchRefresh,
			TokenURL:     cfg.TwitchTokenURL,
		})
		if err != nil {
			return nil, fmt.Errorf("chat token init failed: %w", err)
		}
		tw := chat.NewTwitch(chat.TwitchConfig{
			URL:          cfg.TwitchIRCURL,
			BotUsername:  cfg.TwitchBotUsername,
			Channel:      cfg.TwitchChannel,
			ReconnectMin: cfg.ReconnectMin,
			ReconnectMax: cfg.ReconnectMax,
		}, tokens)
		tw.SetEventHook(func(event string) {
			metrics.ChatEvents.WithLabelValues(event).Inc()
			switch event {
			case "connected":
				connected.Store(true)
			case "disconnected":
				connected.Store(false)
			}
		})
		log.Printf("chat transport: twitch #%s as %s", cfg.TwitchChannel, cfg.TwitchBotUsername)
		return tw, nil
	default:
		return nil, fmt.Errorf("unknown chat transport %q", cfg.ChatTransport)
	}
}

// StartTimerWatch polls the timer so phase changes are announced even when
// nobody is reading the status surfaces.
func (b *BuildResult) StartTimerWatch(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				b.Timer.Observe()
			}
		}
	}()
}
