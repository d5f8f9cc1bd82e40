package app

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"focustriage/internal/alert"
	"focustriage/internal/classifier"
	"focustriage/internal/control"
	"focustriage/internal/focus"
	"focustriage/internal/source"
	logx "focustriage/pkg/logx"
)

func mapLoggingConfig(cfg *Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
		Remote: logx.RemoteConfig{
			Enabled:    cfg.Logging.Remote.Enabled,
			MinLevel:   cfg.Logging.Remote.MinLevel,
			RatePerSec: cfg.Logging.Remote.RatePerSec,
		},
	}
}

func mapAlertsConfig(cfg *Config) (alert.Config, error) {
	ac := cfg.Alerts
	retryBase, err := parseDurationOrDefault("alerts.retry_base", ac.RetryBase, 500*time.Millisecond)
	if err != nil {
		return alert.Config{}, err
	}
	retryMaxDelay, err := parseDurationOrDefault("alerts.retry_max_delay", ac.RetryMaxDelay, 10*time.Second)
	if err != nil {
		return alert.Config{}, err
	}
	dedup, err := parseDurationOrDefault("alerts.dedup_window", ac.DedupWindow, time.Minute)
	if err != nil {
		return alert.Config{}, err
	}
	if ac.Workers < 0 || ac.QueueSize < 0 || ac.RetryMax < 0 {
		return alert.Config{}, fmt.Errorf("alerts: workers, queue_size and retry_max must be >= 0")
	}
	return alert.Config{
		Workers:       ac.Workers,
		QueueSize:     ac.QueueSize,
		RatePerSec:    ac.RatePerSec,
		RetryMax:      ac.RetryMax,
		RetryBase:     retryBase,
		RetryMaxDelay: retryMaxDelay,
		DedupWindow:   dedup,
	}, nil
}

// buildSinks returns the alert sinks for cfg. The Telegram sink is also
// returned on its own so it can carry remote log lines.
func buildSinks(cfg *Config, log logx.Logger) ([]alert.Sink, *alert.Telegram, error) {
	sinks := []alert.Sink{alert.NewLogSink(log)}
	if cfg.Alerts.Desktop {
		sinks = append(sinks, alert.NewDesktop(nil))
	}
	var tg *alert.Telegram
	if tc := cfg.Alerts.Telegram; tc.Enabled {
		token := os.Getenv(strings.TrimSpace(tc.TokenEnv))
		if token == "" {
			return nil, nil, fmt.Errorf("alerts.telegram: env %s is empty", tc.TokenEnv)
		}
		var err error
		tg, err = alert.NewTelegram(alert.TelegramConfig{Token: token, ChatID: tc.ChatID, ThreadID: tc.ThreadID})
		if err != nil {
			return nil, nil, fmt.Errorf("alerts.telegram: %w", err)
		}
		sinks = append(sinks, tg)
	}
	return sinks, tg, nil
}

func mapControlConfig(cfg *Config) control.Config {
	return control.Config{
		Enabled: cfg.Control.Enabled,
		Addr:    cfg.Control.Addr,
		Token:   cfg.Control.Token,
		Pprof:   cfg.Control.Pprof,
	}
}

// OpenSource builds the notification DB reader for cfg.
func OpenSource(cfg *Config, log logx.Logger) (*source.Reader, error) {
	path := strings.TrimSpace(cfg.Source.DBPath)
	if path == "" {
		p, err := source.DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	return source.NewReader(source.Options{Path: path, BusyTimeout: cfg.BusyTimeout(), Log: log}), nil
}

func NewDetector(cfg *Config, log logx.Logger) *focus.Detector {
	return focus.NewDetector(focus.ResolvePath(cfg.Focus.AssertionsPath), log)
}

// SelectClassifier probes the configured backends in order.
func SelectClassifier(ctx context.Context, cfg *Config, log logx.Logger) classifier.Classifier {
	timeout := cfg.ClassifierTimeout()
	var backends []classifier.Backend
	for _, name := range cfg.Classifier.Backends {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "gemini":
			g := cfg.Classifier.Gemini
			backends = append(backends, classifier.NewGemini(os.Getenv(g.APIKeyEnv), g.Model, g.BaseURL, timeout))
		case "ollama":
			o := cfg.Classifier.Ollama
			backends = append(backends, classifier.NewOllama(o.BaseURL, o.Model, timeout))
		}
	}
	return classifier.Select(ctx, backends, classifier.RemoteOptions{
		RatePerSec: cfg.Classifier.RatePerSec,
		Timeout:    timeout,
		Log:        log,
	})
}
