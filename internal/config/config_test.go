package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", p, err)
	}
	return p
}

func TestParse_MissingFileYieldsDefaults(t *testing.T) {
	t.Parallel()
	m := NewConfigManager(filepath.Join(t.TempDir(), "nope.json"))
	cfg, err := m.Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Poll.Every != DefaultPollEvery {
		t.Fatalf("poll.every=%q want %q", cfg.Poll.Every, DefaultPollEvery)
	}
	if cfg.Triage.MaxPerApp != DefaultMaxPerApp {
		t.Fatalf("max_per_app=%d", cfg.Triage.MaxPerApp)
	}
}

func TestParse_JSONOverlaysDefaults(t *testing.T) {
	t.Parallel()
	p := writeFile(t, t.TempDir(), "c.json", `{"poll":{"every":"10s"},"triage":{"max_per_app":3}}`)
	cfg, err := NewConfigManager(p).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Poll.Every != "10s" || cfg.Triage.MaxPerApp != 3 {
		t.Fatalf("unexpected overlay: %+v %+v", cfg.Poll, cfg.Triage)
	}
	// untouched sections keep defaults
	if cfg.Triage.MaxInject != DefaultMaxInject {
		t.Fatalf("max_inject=%d", cfg.Triage.MaxInject)
	}
	if cfg.Control.Addr != DefaultControlAddr {
		t.Fatalf("control.addr=%q", cfg.Control.Addr)
	}
}

func TestParse_RejectsUnknownAndTrailing(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	cases := map[string]string{
		"unknown.json":  `{"poll":{"every":"5s","bogus":1}}`,
		"trailing.json": `{"poll":{"every":"5s"}} {}`,
	}
	for name, body := range cases {
		p := writeFile(t, dir, name, body)
		if _, err := NewConfigManager(p).Parse(); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestParse_YAML(t *testing.T) {
	t.Parallel()
	p := writeFile(t, t.TempDir(), "c.yaml", "poll:\n  every: 7s\nclassifier:\n  backends: [ollama]\n")
	cfg, err := NewConfigManager(p).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Poll.Every != "7s" {
		t.Fatalf("poll.every=%q", cfg.Poll.Every)
	}
	if len(cfg.Classifier.Backends) != 1 || cfg.Classifier.Backends[0] != "ollama" {
		t.Fatalf("backends=%v", cfg.Classifier.Backends)
	}
}

func TestParse_YAMLEdgeCases(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	cfg, err := NewConfigManager(writeFile(t, dir, "empty.yml", "# nothing set\n")).Parse()
	if err != nil {
		t.Fatalf("empty yaml: %v", err)
	}
	if cfg.Poll.Every != DefaultPollEvery {
		t.Fatalf("poll.every=%q", cfg.Poll.Every)
	}

	_, err = NewConfigManager(writeFile(t, dir, "broken.yaml", "poll: [every\n")).Parse()
	if err == nil || !strings.Contains(err.Error(), "broken.yaml") {
		t.Fatalf("err=%v, want file name", err)
	}

	_, err = NewConfigManager(writeFile(t, dir, "unknown.yaml", "poll:\n  bogus: 1\n")).Parse()
	if err == nil {
		t.Fatalf("unknown yaml key: expected error")
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"defaults", func(c *Config) {}, ""},
		{"bad poll", func(c *Config) { c.Poll.Every = "soon" }, "poll.every"},
		{"bad backend", func(c *Config) { c.Classifier.Backends = []string{"gpt"} }, "unknown backend"},
		{"bad duration", func(c *Config) { c.Alerts.RetryBase = "-1s" }, "alerts.retry_base"},
		{"telegram without chat", func(c *Config) { c.Alerts.Telegram.Enabled = true }, "chat_id"},
		{"bad digest", func(c *Config) { c.Digest.Enabled = true; c.Digest.Schedule = "cron:bad" }, "digest.schedule"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := Validate(cfg)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected err: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("err=%v want substring %q", err, tt.wantErr)
			}
		})
	}
}

func TestParseDurationOrDefault(t *testing.T) {
	t.Parallel()
	d, err := ParseDurationOrDefault("x", "", 3*time.Second)
	if err != nil || d != 3*time.Second {
		t.Fatalf("got %v %v", d, err)
	}
	d, err = ParseDurationOrDefault("x", "250ms", time.Second)
	if err != nil || d != 250*time.Millisecond {
		t.Fatalf("got %v %v", d, err)
	}
	if _, err := ParseDurationField("x", "nope"); err == nil || !strings.Contains(err.Error(), "x:") {
		t.Fatalf("err=%v, want key in error", err)
	}
	if _, err := ParseDurationOrDefault("x", "-2s", time.Second); err == nil {
		t.Fatalf("negative: expected error")
	}
}

func TestSummarizeConfigChange(t *testing.T) {
	t.Parallel()
	a := Default()
	b := Default()
	b.Alerts.RatePerSec = 9
	b.Control.Token = "secret"
	b.Logging.Level = "debug"

	changed, attrs := SummarizeConfigChange(a, b)
	want := []string{"alerts", "control", "logging"}
	if strings.Join(changed, ",") != strings.Join(want, ",") {
		t.Fatalf("changed=%v want %v", changed, want)
	}
	if len(attrs) == 0 {
		t.Fatalf("expected attrs")
	}

	changed, _ = SummarizeConfigChange(a, Default())
	if len(changed) != 0 {
		t.Fatalf("expected no changes, got %v", changed)
	}
}

func TestPublish_DropsOldestWhenFull(t *testing.T) {
	t.Parallel()
	m := NewConfigManager("")
	ch := m.Subscribe(1)
	first, second := Default(), Default()
	second.Poll.Every = "9s"
	m.publish(first)
	m.publish(second)
	got := <-ch
	if got != second {
		t.Fatalf("expected newest config to be retained")
	}
	m.Unsubscribe(ch)
	if _, ok := <-ch; ok {
		t.Fatalf("expected channel closed")
	}
}
