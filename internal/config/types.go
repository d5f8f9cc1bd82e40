package config

// Config is the root configuration document (JSON or YAML).
//
// All durations are Go duration strings (e.g. "500ms", "5s", "1m").
// Omitted sections fall back to Default().
type Config struct {
	Logging    LoggingConfig    `json:"logging"`
	Source     SourceConfig     `json:"source"`
	Focus      FocusConfig      `json:"focus"`
	Poll       PollConfig       `json:"poll"`
	Classifier ClassifierConfig `json:"classifier"`
	Triage     TriageConfig     `json:"triage"`
	Rules      RulesConfig      `json:"rules"`
	Alerts     AlertsConfig     `json:"alerts"`
	Digest     DigestConfig     `json:"digest"`
	Control    ControlConfig    `json:"control"`
}

type LoggingConfig struct {
	Level   string        `json:"level"`
	Console bool          `json:"console"`
	File    LoggingFile   `json:"file"`
	Remote  LoggingRemote `json:"remote"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// LoggingRemote forwards log lines through the Telegram alert sink.
type LoggingRemote struct {
	Enabled    bool   `json:"enabled"`
	MinLevel   string `json:"min_level"`
	RatePerSec int    `json:"rate_per_sec"`
}

// SourceConfig points at the notification log database.
//
// An empty DBPath resolves to the per-user notification center database.
type SourceConfig struct {
	DBPath      string `json:"db_path,omitempty"`
	BusyTimeout string `json:"busy_timeout,omitempty"`
}

type FocusConfig struct {
	AssertionsPath string `json:"assertions_path,omitempty"`
}

// PollConfig controls the triage cycle schedule. Every accepts anything
// schedule.Parse does ("5s", "every:5s", "cron:*/10 * * * * *").
type PollConfig struct {
	Every string `json:"every"`
}

// ClassifierConfig lists text-generation backends in priority order.
// The first backend that reports itself available is used.
type ClassifierConfig struct {
	Backends   []string     `json:"backends"`
	Timeout    string       `json:"timeout,omitempty"`
	RatePerSec int          `json:"rate_per_sec,omitempty"`
	Gemini     GeminiConfig `json:"gemini"`
	Ollama     OllamaConfig `json:"ollama"`
}

type GeminiConfig struct {
	Model string `json:"model,omitempty"`
	// APIKeyEnv names the environment variable holding the key (never stored here).
	APIKeyEnv string `json:"api_key_env,omitempty"`
	BaseURL   string `json:"base_url,omitempty"`
}

type OllamaConfig struct {
	BaseURL string `json:"base_url,omitempty"`
	Model   string `json:"model,omitempty"`
}

type TriageConfig struct {
	MaxPerApp int `json:"max_per_app,omitempty"`
	MaxInject int `json:"max_inject,omitempty"`
}

// RulesConfig locates app_prompts.json and ignored_apps.json.
// Empty Dir resolves to ~/.config/focustriage.
type RulesConfig struct {
	Dir string `json:"dir,omitempty"`
}

// AlertsConfig controls the async alert pipeline.
type AlertsConfig struct {
	Workers       int            `json:"workers"`
	QueueSize     int            `json:"queue_size"`
	RatePerSec    int            `json:"rate_per_sec"`
	RetryMax      int            `json:"retry_max"`
	RetryBase     string         `json:"retry_base"`
	RetryMaxDelay string         `json:"retry_max_delay"`
	DedupWindow   string         `json:"dedup_window"`
	Desktop       bool           `json:"desktop"`
	Telegram      TelegramConfig `json:"telegram"`
}

type TelegramConfig struct {
	Enabled bool `json:"enabled"`
	// TokenEnv names the environment variable holding the bot token.
	TokenEnv string `json:"token_env,omitempty"`
	ChatID   int64  `json:"chat_id"`
	ThreadID int    `json:"thread_id,omitempty"`
}

// DigestConfig schedules periodic summaries of the stored notifications.
type DigestConfig struct {
	Enabled  bool   `json:"enabled"`
	Schedule string `json:"schedule,omitempty"`
}

// ControlConfig controls the local HTTP query surface.
//
// Security note:
//   - Prefer binding to localhost (e.g. "127.0.0.1:7767").
//   - Non-loopback addresses require a token.
type ControlConfig struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr,omitempty"`
	Token   string `json:"token,omitempty"` // optional bearer token (do not log)
	Pprof   bool   `json:"pprof,omitempty"`
}
