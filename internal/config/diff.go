package config

import (
	"reflect"
	"sort"
	"strings"

	"focustriage/pkg/logx"
)

// SummarizeConfigChange returns a sorted list of changed sections and safe
// structured attrs for logging (never includes tokens or key material).
func SummarizeConfigChange(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 8)
	attrs := make([]logx.Field, 0, 24)

	if !reflect.DeepEqual(oldCfg.Logging, newCfg.Logging) {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logging.level", newCfg.Logging.Level),
			logx.Bool("logging.console", newCfg.Logging.Console),
			logx.Bool("logging.file_enabled", newCfg.Logging.File.Enabled),
			logx.Bool("logging.remote_enabled", newCfg.Logging.Remote.Enabled),
		)
	}

	if oldCfg.Source != newCfg.Source {
		changed = append(changed, "source")
		attrs = append(attrs,
			logx.Bool("source.db_path_set", strings.TrimSpace(newCfg.Source.DBPath) != ""),
			logx.String("source.busy_timeout", strings.TrimSpace(newCfg.Source.BusyTimeout)),
		)
	}

	if oldCfg.Focus != newCfg.Focus {
		changed = append(changed, "focus")
		attrs = append(attrs, logx.Bool("focus.assertions_path_set", strings.TrimSpace(newCfg.Focus.AssertionsPath) != ""))
	}

	if strings.TrimSpace(oldCfg.Poll.Every) != strings.TrimSpace(newCfg.Poll.Every) {
		changed = append(changed, "poll")
		attrs = append(attrs, logx.String("poll.every", strings.TrimSpace(newCfg.Poll.Every)))
	}

	if !reflect.DeepEqual(oldCfg.Classifier, newCfg.Classifier) {
		changed = append(changed, "classifier")
		attrs = append(attrs,
			logx.String("classifier.backends", strings.Join(newCfg.Classifier.Backends, ",")),
			logx.String("classifier.timeout", strings.TrimSpace(newCfg.Classifier.Timeout)),
			logx.Int("classifier.rate_per_sec", newCfg.Classifier.RatePerSec),
		)
	}

	if oldCfg.Triage != newCfg.Triage {
		changed = append(changed, "triage")
		attrs = append(attrs,
			logx.Int("triage.max_per_app", newCfg.Triage.MaxPerApp),
			logx.Int("triage.max_inject", newCfg.Triage.MaxInject),
		)
	}

	if oldCfg.Rules != newCfg.Rules {
		changed = append(changed, "rules")
	}

	if oldCfg.Alerts != newCfg.Alerts {
		changed = append(changed, "alerts")
		attrs = append(attrs,
			logx.Int("alerts.workers", newCfg.Alerts.Workers),
			logx.Int("alerts.queue_size", newCfg.Alerts.QueueSize),
			logx.Int("alerts.rate_per_sec", newCfg.Alerts.RatePerSec),
			logx.Int("alerts.retry_max", newCfg.Alerts.RetryMax),
			logx.Bool("alerts.desktop", newCfg.Alerts.Desktop),
			logx.Bool("alerts.telegram_enabled", newCfg.Alerts.Telegram.Enabled),
		)
	}

	if oldCfg.Digest != newCfg.Digest {
		changed = append(changed, "digest")
		attrs = append(attrs,
			logx.Bool("digest.enabled", newCfg.Digest.Enabled),
			logx.String("digest.schedule", strings.TrimSpace(newCfg.Digest.Schedule)),
		)
	}

	// Control (never log token)
	if nc := newCfg.Control; oldCfg.Control != nc {
		changed = append(changed, "control")
		attrs = append(attrs,
			logx.Bool("control.enabled", nc.Enabled),
			logx.String("control.addr", strings.TrimSpace(nc.Addr)),
			logx.Bool("control.token_set", strings.TrimSpace(nc.Token) != ""),
			logx.Bool("control.pprof", nc.Pprof),
		)
	}

	sort.Strings(changed)
	return changed, attrs
}
