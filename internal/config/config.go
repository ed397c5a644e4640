package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	TransportTwitch  = "twitch"
	TransportConsole = "console"

	maxPhaseMinutes = 24 * 60
)

// Config contains all runtime settings for the chat pomodoro bot.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string
	AllowAnyOrigin   bool

	ChatTransport     string
	TwitchBotUsername string
	TwitchOAuthToken  string
	TwitchChannel     string
	TwitchIRCURL      string
	TwitchClientID    string
	TwitchSecret      string
	TwitchRefresh     string
	TwitchTokenURL    string
	ReconnectMin      time.Duration
	ReconnectMax      time.Duration

	AdminUser string

	TasksFile        string
	BlockedUsersFile string
	DatabaseURL      string

	FocusMinutes      int
	ShortBreakMinutes int
	LongBreakMinutes  int
	MaxPerCycle       int

	DashboardEnabled bool
	DashboardRefresh time.Duration

	SoundDir     string
	SoundCommand string
	SoundVolume  int

	// ConfigFile is the TOML overlay that was applied, if any.
	ConfigFile string
}

// fileConfig mirrors the optional TOML overlay. Environment variables win
// over anything set here.
type fileConfig struct {
	Chat struct {
		Transport   string `toml:"transport"`
		BotUsername string `toml:"bot-username"`
		Channel     string `toml:"channel"`
		Admin       string `toml:"admin"`
		IRCURL      string `toml:"irc-url"`
	} `toml:"chat"`
	Timer struct {
		FocusMinutes      int `toml:"focus-minutes"`
		ShortBreakMinutes int `toml:"short-break-minutes"`
		LongBreakMinutes  int `toml:"long-break-minutes"`
		MaxPerCycle       int `toml:"max-per-cycle"`
	} `toml:"timer"`
	Storage struct {
		TasksFile        string `toml:"tasks-file"`
		BlockedUsersFile string `toml:"blocked-users-file"`
	} `toml:"storage"`
	Dashboard struct {
		Enabled bool   `toml:"enabled"`
		Refresh string `toml:"refresh"`
	} `toml:"dashboard"`
	Sound struct {
		Dir     string `toml:"dir"`
		Command string `toml:"command"`
		Volume  int    `toml:"volume"`
	} `toml:"sound"`
}

// Load applies defaults, then the TOML file named by POMOCHAT_CONFIG, then
// environment variables, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:          ":8080",
		ShutdownTimeout:   15 * time.Second,
		MetricsNamespace:  "pomochat",
		ChatTransport:     TransportTwitch,
		TwitchIRCURL:      "wss://irc-ws.chat.twitch.tv:443",
		TwitchTokenURL:    "https://id.twitch.tv/oauth2/token",
		ReconnectMin:      time.Second,
		ReconnectMax:      time.Minute,
		TasksFile:         "tasks.json",
		BlockedUsersFile:  "blocked_users.txt",
		FocusMinutes:      25,
		ShortBreakMinutes: 5,
		LongBreakMinutes:  15,
		MaxPerCycle:       4,
		DashboardEnabled:  true,
		DashboardRefresh:  time.Second,
		SoundVolume:       50,
	}

	if path := stringsTrimSpace("POMOCHAT_CONFIG"); path != "" {
		if err := applyFile(&cfg, path); err != nil {
			return Config{}, err
		}
		cfg.ConfigFile = path
	}

	cfg.BindAddr = envOrDefault("APP_BIND_ADDR", cfg.BindAddr)
	cfg.MetricsNamespace = envOrDefault("APP_METRICS_NAMESPACE", cfg.MetricsNamespace)
	cfg.ChatTransport = strings.ToLower(envOrDefault("CHAT_TRANSPORT", cfg.ChatTransport))
	cfg.TwitchBotUsername = envOrDefault("TWITCH_BOT_USERNAME", cfg.TwitchBotUsername)
	cfg.TwitchOAuthToken = stringsTrimSpace("TWITCH_OAUTH_TOKEN")
	cfg.TwitchChannel = strings.TrimPrefix(envOrDefault("TWITCH_CHANNEL", cfg.TwitchChannel), "#")
	cfg.TwitchIRCURL = envOrDefault("TWITCH_IRC_URL", cfg.TwitchIRCURL)
	cfg.TwitchClientID = stringsTrimSpace("TWITCH_CLIENT_ID")
	cfg.TwitchSecret = stringsTrimSpace("TWITCH_CLIENT_SECRET")
	cfg.TwitchRefresh = stringsTrimSpace("TWITCH_REFRESH_TOKEN")
	cfg.TwitchTokenURL = envOrDefault("TWITCH_TOKEN_URL", cfg.TwitchTokenURL)
	cfg.AdminUser = envOrDefault("ADMIN_USER", cfg.AdminUser)
	cfg.TasksFile = envOrDefault("TASKS_FILE", cfg.TasksFile)
	cfg.BlockedUsersFile = envOrDefault("BLOCKED_USERS_FILE", cfg.BlockedUsersFile)
	cfg.DatabaseURL = stringsTrimSpace("DATABASE_URL")
	cfg.SoundDir = envOrDefault("SOUND_DIR", cfg.SoundDir)
	cfg.SoundCommand = envOrDefault("SOUND_COMMAND", cfg.SoundCommand)

	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}
	cfg.ReconnectMin, err = durationFromEnv("CHAT_RECONNECT_MIN", cfg.ReconnectMin)
	if err != nil {
		return Config{}, err
	}
	cfg.ReconnectMax, err = durationFromEnv("CHAT_RECONNECT_MAX", cfg.ReconnectMax)
	if err != nil {
		return Config{}, err
	}
	cfg.FocusMinutes, err = intFromEnv("POMODORO_FOCUS_MINUTES", cfg.FocusMinutes)
	if err != nil {
		return Config{}, err
	}
	cfg.ShortBreakMinutes, err = intFromEnv("POMODORO_SHORT_BREAK_MINUTES", cfg.ShortBreakMinutes)
	if err != nil {
		return Config{}, err
	}
	cfg.LongBreakMinutes, err = intFromEnv("POMODORO_LONG_BREAK_MINUTES", cfg.LongBreakMinutes)
	if err != nil {
		return Config{}, err
	}
	cfg.MaxPerCycle, err = intFromEnv("POMODORO_MAX_PER_CYCLE", cfg.MaxPerCycle)
	if err != nil {
		return Config{}, err
	}
	cfg.DashboardEnabled, err = boolFromEnv("DASHBOARD_ENABLED", cfg.DashboardEnabled)
	if err != nil {
		return Config{}, err
	}
	cfg.DashboardRefresh, err = durationFromEnv("DASHBOARD_REFRESH", cfg.DashboardRefresh)
	if err != nil {
		return Config{}, err
	}
	cfg.SoundVolume, err = intFromEnv("SOUND_VOLUME", cfg.SoundVolume)
	if err != nil {
		return Config{}, err
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.ChatTransport {
	case TransportTwitch:
		if c.TwitchChannel == "" || c.TwitchBotUsername == "" {
			return fmt.Errorf("TWITCH_CHANNEL and TWITCH_BOT_USERNAME are required for the twitch transport")
		}
		if c.TwitchOAuthToken == "" && c.TwitchRefresh == "" {
			return fmt.Errorf("TWITCH_OAUTH_TOKEN or TWITCH_REFRESH_TOKEN is required for the twitch transport")
		}
	case TransportConsole:
	default:
		return fmt.Errorf("CHAT_TRANSPORT must be %q or %q", TransportTwitch, TransportConsole)
	}
	if c.AdminUser == "" {
		return fmt.Errorf("ADMIN_USER is required")
	}
	for _, m := range []int{c.FocusMinutes, c.ShortBreakMinutes, c.LongBreakMinutes} {
		if m <= 0 || m > maxPhaseMinutes {
			return fmt.Errorf("pomodoro durations must be between 1 and %d minutes", maxPhaseMinutes)
		}
	}
	if c.MaxPerCycle <= 0 {
		return fmt.Errorf("POMODORO_MAX_PER_CYCLE must be positive")
	}
	if c.SoundVolume < 0 || c.SoundVolume > 100 {
		return fmt.Errorf("SOUND_VOLUME must be between 0 and 100")
	}
	if c.DashboardRefresh < 100*time.Millisecond {
		return fmt.Errorf("DASHBOARD_REFRESH must be at least 100ms")
	}
	if c.ReconnectMin <= 0 || c.ReconnectMax < c.ReconnectMin {
		return fmt.Errorf("CHAT_RECONNECT_MIN must be positive and not above CHAT_RECONNECT_MAX")
	}
	return nil
}

func applyFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	var fc fileConfig
	meta, err := toml.Decode(string(data), &fc)
	if err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("config file %s: unknown key %s", path, undecoded[0])
	}

	setString := func(dst *string, value string, key ...string) {
		if meta.IsDefined(key...) {
			*dst = strings.TrimSpace(value)
		}
	}
	setInt := func(dst *int, value int, key ...string) {
		if meta.IsDefined(key...) {
			*dst = value
		}
	}

	setString(&cfg.ChatTransport, fc.Chat.Transport, "chat", "transport")
	setString(&cfg.TwitchBotUsername, fc.Chat.BotUsername, "chat", "bot-username")
	setString(&cfg.TwitchChannel, fc.Chat.Channel, "chat", "channel")
	setString(&cfg.AdminUser, fc.Chat.Admin, "chat", "admin")
	setString(&cfg.TwitchIRCURL, fc.Chat.IRCURL, "chat", "irc-url")
	setInt(&cfg.FocusMinutes, fc.Timer.FocusMinutes, "timer", "focus-minutes")
	setInt(&cfg.ShortBreakMinutes, fc.Timer.ShortBreakMinutes, "timer", "short-break-minutes")
	setInt(&cfg.LongBreakMinutes, fc.Timer.LongBreakMinutes, "timer", "long-break-minutes")
	setInt(&cfg.MaxPerCycle, fc.Timer.MaxPerCycle, "timer", "max-per-cycle")
	setString(&cfg.TasksFile, fc.Storage.TasksFile, "storage", "tasks-file")
	setString(&cfg.BlockedUsersFile, fc.Storage.BlockedUsersFile, "storage", "blocked-users-file")
	if meta.IsDefined("dashboard", "enabled") {
		cfg.DashboardEnabled = fc.Dashboard.Enabled
	}
	if meta.IsDefined("dashboard", "refresh") {
		d, err := time.ParseDuration(strings.TrimSpace(fc.Dashboard.Refresh))
		if err != nil {
			return fmt.Errorf("config file %s: dashboard.refresh: %w", path, err)
		}
		cfg.DashboardRefresh = d
	}
	setString(&cfg.SoundDir, fc.Sound.Dir, "sound", "dir")
	setString(&cfg.SoundCommand, fc.Sound.Command, "sound", "command")
	setInt(&cfg.SoundVolume, fc.Sound.Volume, "sound", "volume")
	return nil
}

func envOrDefault(key, fallback string) string {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback
	}
	return v
}

func stringsTrimSpace(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(stringsTrimSpace(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
