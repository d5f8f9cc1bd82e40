package schedule

import (
	"context"
	"testing"
	"time"
)

func TestParseVariants(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		raw      string
		kind     Kind
		source   string
		duration time.Duration
	}{
		{name: "cron", raw: "*/5 * * * *", kind: KindCron, source: "cron"},
		{name: "cron seconds", raw: "*/10 * * * * *", kind: KindCron, source: "cron"},
		{name: "prefixed cron", raw: "cron:0 0 18 * * *", kind: KindCron, source: "cron"},
		{name: "descriptor", raw: "@hourly", kind: KindCron, source: "cron"},
		{name: "duration", raw: "5s", kind: KindInterval, source: "duration", duration: 5 * time.Second},
		{name: "prefixed every", raw: "every:45s", kind: KindInterval, source: "duration", duration: 45 * time.Second},
		{name: "prefixed interval", raw: "interval:02:30", kind: KindInterval, source: "hhmm", duration: 150 * time.Minute},
		{name: "hhmm", raw: "01:30", kind: KindInterval, source: "hhmm", duration: 90 * time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.raw)
			if err != nil {
				t.Fatalf("Parse(%q) error: %v", tt.raw, err)
			}
			if got.Kind != tt.kind {
				t.Fatalf("Kind = %v, want %v", got.Kind, tt.kind)
			}
			if got.Source != tt.source {
				t.Fatalf("Source = %s, want %s", got.Source, tt.source)
			}
			if tt.kind == KindInterval && got.Every != tt.duration {
				t.Fatalf("Every = %v, want %v", got.Every, tt.duration)
			}
		})
	}
}

func TestParseInvalid(t *testing.T) {
	t.Parallel()
	for _, raw := range []string{"", "not-a-schedule", "cron:", "cron:61 * * * *", "every:-5s", "00:00", "01:75"} {
		if _, err := Parse(raw); err == nil {
			t.Fatalf("Parse(%q): expected error", raw)
		}
	}
}

func TestNext(t *testing.T) {
	t.Parallel()
	base := time.Date(2024, 5, 1, 10, 0, 3, 0, time.UTC)

	iv, err := Parse("5s")
	if err != nil {
		t.Fatal(err)
	}
	if got := iv.Next(base); !got.Equal(base.Add(5 * time.Second)) {
		t.Fatalf("interval Next = %v", got)
	}

	cr, err := Parse("*/10 * * * * *")
	if err != nil {
		t.Fatal(err)
	}
	want := time.Date(2024, 5, 1, 10, 0, 10, 0, time.UTC)
	if got := cr.Next(base); !got.Equal(want) {
		t.Fatalf("cron Next = %v, want %v", got, want)
	}
}

func TestSleepHonorsContext(t *testing.T) {
	t.Parallel()
	sp, err := Parse("1h")
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if sp.Sleep(ctx, time.Now()) {
		t.Fatal("expected Sleep to report cancellation")
	}
}
