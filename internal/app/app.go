package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"focustriage/internal/alert"
	"focustriage/internal/classifier"
	"focustriage/internal/control"
	"focustriage/internal/eventbus"
	"focustriage/internal/orchestrator"
	"focustriage/internal/rules"
	"focustriage/internal/runtime/supervisor"
	"focustriage/internal/schedule"
	"focustriage/internal/source"
	"focustriage/internal/triage"
	logx "focustriage/pkg/logx"
)

type App struct {
	cfgPath string

	cfgm *ConfigManager
	sup  *Supervisor

	log  logx.Logger
	logs *logx.Service
	bus  eventbus.Bus
	sd   *sdNotifier

	reader  *source.Reader
	cls     classifier.Classifier
	alerts  *alert.Service
	alerter *alert.Alerter
	orch    *orchestrator.Orchestrator
	control *control.Service

	poll   schedule.Spec
	digest *schedule.Spec
}

func New(ctx context.Context, cfgPath string) (*App, error) {
	cfgm := NewConfigManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	// Remote logging needs the Telegram sender, which is built after the
	// logger. Bootstrap without it, then Apply the final config.
	baseLogCfg := mapLoggingConfig(cfg)
	finalLogCfg := baseLogCfg
	baseLogCfg.Remote.Enabled = false
	logSvc, log := logx.New(baseLogCfg)
	log = log.With(logx.String("comp", "app"))

	bus := eventbus.New()

	sinks, tg, err := buildSinks(cfg, logSvc.Logger())
	if err != nil {
		return nil, err
	}
	if tg != nil {
		logSvc.SetSender(tg)
	}
	logSvc.Apply(finalLogCfg)

	acfg, err := mapAlertsConfig(cfg)
	if err != nil {
		return nil, err
	}
	alerts := alert.New(acfg, sinks, logSvc.Logger(), bus)
	alerter := alert.NewAlerter(alerts)

	reader, err := OpenSource(cfg, logSvc.Logger())
	if err != nil {
		return nil, fmt.Errorf("source: %w", err)
	}
	detector := NewDetector(cfg, logSvc.Logger())

	rulesDir, err := rules.ResolveDir(cfg.Rules.Dir)
	if err != nil {
		return nil, fmt.Errorf("rules: %w", err)
	}
	ruleSet := rules.Load(rulesDir, logSvc.Logger())

	cls := SelectClassifier(ctx, cfg, logSvc.Logger())

	poll, err := schedule.Parse(cfg.Poll.Every)
	if err != nil {
		return nil, fmt.Errorf("poll.every: %w", err)
	}
	var digest *schedule.Spec
	if cfg.Digest.Enabled {
		d, err := schedule.Parse(cfg.Digest.Schedule)
		if err != nil {
			return nil, fmt.Errorf("digest.schedule: %w", err)
		}
		digest = &d
	}

	orch, err := orchestrator.New(orchestrator.Options{
		Reader:     reader,
		Detector:   detector,
		Classifier: cls,
		Alerter:    alerter,
		Rules:      ruleSet,
		Store:      triage.NewStore(cfg.Triage.MaxPerApp),
		Bus:        bus,
		Log:        logSvc.Logger(),
		MaxInject:  cfg.Triage.MaxInject,
	})
	if err != nil {
		return nil, err
	}

	return &App{
		cfgPath: cfgPath,
		cfgm:    cfgm,
		log:     log,
		logs:    logSvc,
		bus:     bus,
		sd:      newSdNotifier(log.With(logx.String("comp", "systemd"))),
		reader:  reader,
		cls:     cls,
		alerts:  alerts,
		alerter: alerter,
		orch:    orch,
		control: control.New(mapControlConfig(cfg), orch, logSvc.Logger()),
		poll:    poll,
		digest:  digest,
	}, nil
}

func (a *App) Orchestrator() *orchestrator.Orchestrator { return a.orch }

// Done is closed when the app supervisor context is canceled (fatal error or Stop()).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error observed by the supervisor (if any).
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

func (a *App) Start(ctx context.Context) error {
	a.sup = NewSupervisor(ctx, WithLogger(a.log), WithCancelOnError(true))

	// transactional config reload: validate before commit/publish
	a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))
	a.cfgm.SetValidator(func(_ context.Context, cfg *Config) error {
		if _, err := mapAlertsConfig(cfg); err != nil {
			return err
		}
		if tc := cfg.Alerts.Telegram; tc.Enabled {
			if _, _, err := buildSinks(cfg, logx.Nop()); err != nil {
				return err
			}
		}
		return nil
	})

	// The notification DB and its schema must be usable before anything runs.
	schema, err := a.reader.Schema(ctx)
	if err != nil {
		return fmt.Errorf("notification db %s: %w", a.reader.Path(), err)
	}
	a.log.Info("notification db opened", logx.String("path", a.reader.Path()), logx.String("schema", schema))
	if err := a.orch.Init(ctx); err != nil {
		return err
	}

	a.alerts.Start(a.sup.Context())
	if err := a.control.Start(a.sup.Context()); err != nil {
		return err
	}

	a.sup.GoRestart("triage.loop", func(c context.Context) error {
		return a.orch.Run(c, a.poll, func(err error) {
			a.sd.Heartbeat()
			if err != nil {
				a.sd.Status("last cycle failed: " + err.Error())
			}
		})
	}, supervisor.WithRestartBackoff(time.Second, 30*time.Second), supervisor.WithPublishFirstError(true))

	if a.digest != nil {
		spec := *a.digest
		a.sup.Go0("digest.loop", func(c context.Context) { a.digestLoop(c, spec) })
	}

	// Optional: log events for observability/debug (components can also subscribe themselves).
	events, unsub := a.bus.Subscribe(128)
	a.sup.Go0("eventbus.log", func(c context.Context) {
		defer unsub()
		for {
			select {
			case <-c.Done():
				return
			case e, ok := <-events:
				if !ok {
					return
				}
				a.log.Debug("event", logx.String("type", e.Type), logx.Time("time", e.Time))
			}
		}
	})

	// hot reload config fan-out
	sub := a.cfgm.Subscribe(8)
	a.sup.Go0("config.reload", func(c context.Context) {
		defer a.cfgm.Unsubscribe(sub)
		lastApplied := a.cfgm.Get()
		for {
			select {
			case <-c.Done():
				return
			case newCfg, ok := <-sub:
				if !ok {
					return
				}
				// Coalesce bursts: keep only the latest config in the channel.
			drain:
				for {
					select {
					case newer := <-sub:
						if newer != nil {
							newCfg = newer
						}
					default:
						break drain
					}
				}
				a.applyConfig(c, lastApplied, newCfg)
				lastApplied = newCfg
			}
		}
	})

	a.sup.Go("config.watch", func(c context.Context) error {
		return a.cfgm.Watch(c)
	})

	a.sd.Ready()
	a.log.Info("app started",
		logx.String("classifier", a.orch.Status().Backend),
		logx.String("poll", a.poll.String()),
		logx.Any("sinks", a.alerts.Sinks()),
	)
	return nil
}

// restartOnly lists sections read once in New.
var restartOnly = map[string]bool{
	"source":     true,
	"focus":      true,
	"poll":       true,
	"classifier": true,
	"triage":     true,
	"rules":      true,
	"digest":     true,
}

func (a *App) applyConfig(ctx context.Context, prev, next *Config) {
	sections, attrs := SummarizeConfigChange(prev, next)
	if len(sections) == 0 {
		a.log.Info("config reloaded (no changes)")
		return
	}
	for _, s := range sections {
		if restartOnly[s] {
			a.log.Warn("config section changed; restart required for changes to take effect", logx.String("section", s))
		}
	}

	sinks, tg, err := buildSinks(next, a.logs.Logger())
	if err != nil {
		a.log.Warn("invalid alert sinks; keeping previous", logx.Err(err))
	} else {
		if tg != nil {
			a.logs.SetSender(tg)
		} else {
			a.logs.SetSender(nil)
		}
		a.alerts.SetSinks(sinks)
	}
	a.logs.Apply(mapLoggingConfig(next))

	if acfg, err := mapAlertsConfig(next); err != nil {
		a.log.Warn("invalid alerts config; keeping previous", logx.Err(err))
	} else {
		a.alerts.Apply(acfg)
	}

	if err := a.control.Reconfigure(ctx, mapControlConfig(next)); err != nil {
		a.log.Warn("control reconfigure failed", logx.Err(err))
	}

	fields := append([]logx.Field{logx.String("changed", strings.Join(sections, ","))}, attrs...)
	a.log.Info("config reloaded", fields...)
}

// digestLoop sends the stored-notification summary on spec. Empty stores
// are skipped.
func (a *App) digestLoop(ctx context.Context, spec schedule.Spec) {
	a.log.Info("digest loop started", logx.String("schedule", spec.String()))
	for spec.Sleep(ctx, time.Now()) {
		c := a.orch.Counts()
		if c[0]+c[1]+c[2]+c[3] == 0 {
			a.log.Debug("digest skipped: no notifications")
			continue
		}
		if err := a.alerter.Digest(ctx, a.orch.Summarize(ctx)); err != nil {
			a.log.Warn("digest failed", logx.Err(err))
		}
	}
}

func (a *App) Stop(ctx context.Context, reason StopReason) error {
	if a.sup == nil {
		return nil
	}
	a.log.Info("stopping", logx.String("reason", string(reason)))
	a.sd.Stopping()

	// Cancel the run context first so loops start unwinding immediately.
	a.sup.Cancel()

	a.step(ctx, "control", time.Second, func(c context.Context) error { a.control.Stop(c); return nil })
	a.step(ctx, "alerts", 2*time.Second, func(c context.Context) error { a.alerts.Stop(c); return nil })
	a.step(ctx, "supervisor", 3*time.Second, func(c context.Context) error { return a.sup.Wait(c) })

	a.log.Info("stopped")
	if a.logs != nil {
		a.logs.Close()
	}
	return nil
}

// step runs one shutdown step bounded by limit (and by ctx's deadline, which
// is never extended). A step that overruns is logged and left running.
func (a *App) step(ctx context.Context, name string, limit time.Duration, fn func(context.Context) error) {
	start := time.Now()
	a.log.Debug("stop step begin", logx.String("name", name), logx.Duration("max", limit))

	stepCtx := ctx
	if dl, ok := ctx.Deadline(); ok {
		if rem := time.Until(dl); rem < limit {
			limit = max(0, rem)
		}
	}
	if limit > 0 {
		var cancel context.CancelFunc
		stepCtx, cancel = context.WithTimeout(ctx, limit)
		defer cancel()
	}

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("panic in stop step %s: %v", name, r)
			}
		}()
		done <- fn(stepCtx)
	}()

	select {
	case err := <-done:
		if err != nil {
			a.log.Warn("stop step error", logx.String("name", name), logx.Err(err))
		}
		took := time.Since(start)
		if took >= 500*time.Millisecond {
			a.log.Info("stop step end", logx.String("name", name), logx.Duration("took", took))
		} else {
			a.log.Debug("stop step end", logx.String("name", name), logx.Duration("took", took))
		}
	case <-stepCtx.Done():
		a.log.Warn("stop step deadline reached (continuing)",
			logx.String("name", name),
			logx.Err(stepCtx.Err()),
			logx.Duration("elapsed", time.Since(start)),
		)
		go func() {
			err := <-done
			took := time.Since(start)
			if err != nil {
				a.log.Warn("stop step finished after deadline", logx.String("name", name), logx.Err(err), logx.Duration("took", took))
			} else {
				a.log.Info("stop step finished after deadline", logx.String("name", name), logx.Duration("took", took))
			}
		}()
	}
}
