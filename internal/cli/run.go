package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"focustriage/internal/app"
	"focustriage/internal/config"
	"focustriage/internal/rules"
	logx "focustriage/pkg/logx"

	"github.com/spf13/cobra"
)

// NewRunCommand creates the daemon command.
func NewRunCommand(opts *RootOptions) *cobra.Command {
	var stopTimeout time.Duration
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the triage daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(cmd.Context(), opts.ConfigPath, stopTimeout)
		},
	}
	cmd.Flags().DurationVar(&stopTimeout, "stop-timeout", 10*time.Second, "upper bound for graceful shutdown")
	return cmd
}

func runDaemon(parent context.Context, cfgPath string, stopTimeout time.Duration) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := app.New(ctx, cfgPath)
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}
	stop := func(reason app.StopReason) {
		sctx, scancel := context.WithTimeout(context.Background(), stopTimeout)
		defer scancel()
		_ = a.Stop(sctx, reason)
	}
	if err := a.Start(ctx); err != nil {
		stop(app.StopFatalError)
		return fmt.Errorf("start: %w", err)
	}

	select {
	case <-ctx.Done():
		stop(app.StopSignal)
		return nil
	case <-a.Done():
		if err := a.Err(); err != nil {
			stop(app.StopFatalError)
			return err
		}
		stop(app.StopAppStop)
		return nil
	}
}

// NewCheckCommand creates the diagnostics command.
func NewCheckCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check the notification database, focus state and classifier backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, opts)
		},
	}
}

func runCheck(cmd *cobra.Command, opts *RootOptions) error {
	w := cmd.OutOrStdout()
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.NewConfigManager(opts.ConfigPath).Load()
	check(w, "config", err, opts.ConfigPath)
	if err != nil {
		return err
	}
	log := logx.NewConsole("warn")

	failed := false
	reader, err := app.OpenSource(cfg, log)
	if err == nil {
		var schema string
		schema, err = reader.Schema(ctx)
		if err == nil {
			var latest int64
			latest, err = reader.LatestID(ctx)
			check(w, "database", err, fmt.Sprintf("%s (schema %s, latest id %d)", reader.Path(), schema, latest))
		} else {
			check(w, "database", err, "")
		}
	} else {
		check(w, "database", err, "")
	}
	failed = failed || err != nil

	det := app.NewDetector(cfg, log)
	state, err := det.Check()
	check(w, "focus", err, fmt.Sprintf("%s (%s)", state, det.Path()))

	dir, err := rules.ResolveDir(cfg.Rules.Dir)
	if err == nil {
		set := rules.Load(dir, log)
		check(w, "rules", nil, fmt.Sprintf("%s (%d contexts, %d ignored)", dir, len(set.Contexts.List()), len(set.Ignored.List())))
	} else {
		check(w, "rules", err, "")
	}

	cls := app.SelectClassifier(ctx, cfg, log)
	backend := "unavailable (all notifications default to medium)"
	if b, ok := cls.(interface{ Backend() string }); ok {
		backend = b.Backend()
	}
	check(w, "classifier", nil, backend)

	if failed {
		return fmt.Errorf("notification database is not usable")
	}
	return nil
}
