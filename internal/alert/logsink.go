package alert

import (
	"context"

	logx "focustriage/pkg/logx"
)

// LogSink records alerts in the application log. Useful on hosts without a
// desktop session.
type LogSink struct {
	log logx.Logger
}

func NewLogSink(log logx.Logger) *LogSink {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &LogSink{log: log.With(logx.String("comp", "alerts"))}
}

func (l *LogSink) Name() string { return "log" }

func (l *LogSink) Send(_ context.Context, a Alert) error {
	l.log.Info("alert",
		logx.String("title", a.Title),
		logx.String("body", a.Body),
		logx.Bool("urgent", a.Level >= LevelUrgent),
	)
	return nil
}
