package app

import (
	"time"

	logx "focustriage/pkg/logx"

	"github.com/coreos/go-systemd/v22/daemon"
)

// sdNotifier reports lifecycle state to systemd. Outside a notify-type unit
// every call is a no-op.
type sdNotifier struct {
	log      logx.Logger
	watchdog time.Duration
}

func newSdNotifier(log logx.Logger) *sdNotifier {
	n := &sdNotifier{log: log}
	if d, err := daemon.SdWatchdogEnabled(false); err == nil && d > 0 {
		n.watchdog = d
		log.Info("systemd watchdog enabled", logx.Duration("interval", d))
	}
	return n
}

func (n *sdNotifier) send(state string) {
	if _, err := daemon.SdNotify(false, state); err != nil {
		n.log.Debug("sd_notify failed", logx.String("state", state), logx.Err(err))
	}
}

func (n *sdNotifier) Ready()    { n.send(daemon.SdNotifyReady) }
func (n *sdNotifier) Stopping() { n.send(daemon.SdNotifyStopping) }

// Heartbeat pets the watchdog, if one is configured.
func (n *sdNotifier) Heartbeat() {
	if n.watchdog > 0 {
		n.send(daemon.SdNotifyWatchdog)
	}
}

// Status sets the free-form unit status line.
func (n *sdNotifier) Status(text string) { n.send("STATUS=" + text) }
