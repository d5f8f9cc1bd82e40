package alert

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

const osascriptPath = "/usr/bin/osascript"

// Runner executes one command and waits for it.
type Runner func(ctx context.Context, name string, args ...string) error

func execRunner(ctx context.Context, name string, args ...string) error {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		if msg := strings.TrimSpace(string(out)); msg != "" {
			return fmt.Errorf("%s: %w: %s", name, err, msg)
		}
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// Desktop shows banners and dialogs through osascript.
type Desktop struct {
	run Runner
}

// NewDesktop returns a desktop sink. A nil run uses os/exec.
func NewDesktop(run Runner) *Desktop {
	if run == nil {
		run = execRunner
	}
	return &Desktop{run: run}
}

func (d *Desktop) Name() string { return "desktop" }

// Send shows a banner, or a dialog when a.Modal is set.
func (d *Desktop) Send(ctx context.Context, a Alert) error {
	if a.Modal {
		return d.Prompt(ctx, a)
	}
	return d.run(ctx, osascriptPath, "-e", bannerScript(a.Title, a.Body))
}

// Prompt shows a dialog with a single OK button and returns once it is dismissed.
func (d *Desktop) Prompt(ctx context.Context, a Alert) error {
	return d.run(ctx, osascriptPath, "-e", dialogScript(a.Title, a.Body))
}

func bannerScript(title, body string) string {
	return fmt.Sprintf(`display notification "%s" with title "%s"`, escapeAppleScript(body), escapeAppleScript(title))
}

func dialogScript(title, body string) string {
	return fmt.Sprintf(`display dialog "%s" with title "%s" buttons {"OK"} default button "OK"`, escapeAppleScript(body), escapeAppleScript(title))
}

func escapeAppleScript(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}
