package config

import (
	"fmt"
	"strings"
	"time"

	"focustriage/internal/schedule"
)

const (
	DefaultPollEvery   = "5s"
	DefaultControlAddr = "127.0.0.1:7767"
	DefaultMaxPerApp   = 12
	DefaultMaxInject   = 30
)

// Default returns the configuration used when no config file exists.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:   "info",
			Console: true,
			Remote:  LoggingRemote{MinLevel: "warn", RatePerSec: 1},
		},
		Source: SourceConfig{BusyTimeout: "2s"},
		Poll:   PollConfig{Every: DefaultPollEvery},
		Classifier: ClassifierConfig{
			Backends:   []string{"gemini", "ollama"},
			Timeout:    "60s",
			RatePerSec: 2,
			Gemini:     GeminiConfig{Model: "gemini-2.5-flash-lite", APIKeyEnv: "GEMINI_API_KEY"},
			Ollama:     OllamaConfig{BaseURL: "http://localhost:11434", Model: "qwen3:8b"},
		},
		Triage: TriageConfig{MaxPerApp: DefaultMaxPerApp, MaxInject: DefaultMaxInject},
		Alerts: AlertsConfig{
			Workers:       2,
			QueueSize:     128,
			RatePerSec:    3,
			RetryMax:      3,
			RetryBase:     "500ms",
			RetryMaxDelay: "10s",
			DedupWindow:   "1m",
			Desktop:       true,
			Telegram:      TelegramConfig{TokenEnv: "FOCUSTRIAGE_TELEGRAM_TOKEN"},
		},
		Digest:  DigestConfig{Schedule: "cron:0 0 18 * * *"},
		Control: ControlConfig{Enabled: true, Addr: DefaultControlAddr},
	}
}

// Validate checks fields that would otherwise fail late (at first use).
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if _, err := schedule.Parse(cfg.Poll.Every); err != nil {
		return fmt.Errorf("poll.every: %w", err)
	}
	if cfg.Digest.Enabled {
		if _, err := schedule.Parse(cfg.Digest.Schedule); err != nil {
			return fmt.Errorf("digest.schedule: %w", err)
		}
	}
	durs := map[string]string{
		"source.busy_timeout":    cfg.Source.BusyTimeout,
		"classifier.timeout":     cfg.Classifier.Timeout,
		"alerts.retry_base":      cfg.Alerts.RetryBase,
		"alerts.retry_max_delay": cfg.Alerts.RetryMaxDelay,
		"alerts.dedup_window":    cfg.Alerts.DedupWindow,
	}
	for path, raw := range durs {
		if _, err := ParseDurationField(path, raw); err != nil {
			return err
		}
	}
	for i, b := range cfg.Classifier.Backends {
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "gemini", "ollama":
		default:
			return fmt.Errorf("classifier.backends[%d]: unknown backend %q", i, b)
		}
	}
	if cfg.Triage.MaxPerApp < 0 || cfg.Triage.MaxInject < 0 {
		return fmt.Errorf("triage: limits must be >= 0")
	}
	if cfg.Alerts.Telegram.Enabled && cfg.Alerts.Telegram.ChatID == 0 {
		return fmt.Errorf("alerts.telegram.chat_id: required when telegram is enabled")
	}
	return nil
}

// BusyTimeout returns source.busy_timeout with its default applied.
func (c *Config) BusyTimeout() time.Duration {
	d, err := ParseDurationOrDefault("source.busy_timeout", c.Source.BusyTimeout, 2*time.Second)
	if err != nil {
		return 2 * time.Second
	}
	return d
}

// ClassifierTimeout returns classifier.timeout with its default applied.
func (c *Config) ClassifierTimeout() time.Duration {
	d, err := ParseDurationOrDefault("classifier.timeout", c.Classifier.Timeout, 60*time.Second)
	if err != nil {
		return 60 * time.Second
	}
	return d
}
