// Package cli implements the focustriage command tree. "run" hosts the
// daemon; most other commands are thin clients of its control server.
package cli

import (
	"strings"
	"time"

	"focustriage/internal/config"
	"focustriage/internal/control"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	Addr       string
	Token      string
	Timeout    time.Duration
	NoColor    bool
}

// NewRootCommand creates the root command.
func NewRootCommand(version string) *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:     "focustriage",
		Short:   "Triage notifications that arrive during focus mode",
		Version: version,
		Long: `focustriage watches the notification database while a focus mode is active,
classifies each new notification by urgency and surfaces urgent ones immediately.
When focus mode ends it reports how many notifications are waiting.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.NoColor {
				disableColor()
			}
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "./config.json", "path to config (json or yaml)")
	cmd.PersistentFlags().StringVar(&opts.Addr, "addr", "", "control server address (default: control.addr from config)")
	cmd.PersistentFlags().StringVar(&opts.Token, "token", "", "control server token (default: control.token from config)")
	cmd.PersistentFlags().DurationVar(&opts.Timeout, "timeout", 90*time.Second, "control request timeout")
	cmd.PersistentFlags().BoolVar(&opts.NoColor, "no-color", false, "disable colored output")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewCheckCommand(opts))
	cmd.AddCommand(NewStatusCommand(opts))
	cmd.AddCommand(NewGroupsCommand(opts))
	cmd.AddCommand(NewClearCommand(opts))
	cmd.AddCommand(NewInjectCommand(opts))
	cmd.AddCommand(NewSummaryCommand(opts))
	cmd.AddCommand(NewIgnoreCommand(opts))
	cmd.AddCommand(NewContextCommand(opts))

	return cmd
}

// client resolves the control address and token from flags, then config.
func (o *RootOptions) client() (*control.Client, error) {
	addr, token := strings.TrimSpace(o.Addr), strings.TrimSpace(o.Token)
	if addr == "" || token == "" {
		cfg, err := config.NewConfigManager(o.ConfigPath).Parse()
		if err != nil {
			return nil, err
		}
		if addr == "" {
			addr = cfg.Control.Addr
		}
		if token == "" {
			token = cfg.Control.Token
		}
	}
	return control.NewClient(addr, token, o.Timeout), nil
}
