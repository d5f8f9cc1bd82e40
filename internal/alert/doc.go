// Package alert delivers user-facing alerts.
//
// Alerts are short messages about the triage state: an urgent notification
// that arrived during focus, or the summary shown when focus ends. Each alert
// is fanned out to every configured Sink (desktop banner, Telegram, log).
//
// # Pipeline
//
// Notify is asynchronous: alerts are queued and delivered by a small worker
// pool with a shared rate limit, jittered retries and a dedup window.
// Prompt is the blocking path used for urgent notifications: sinks that
// implement Prompter show a dialog in the caller's goroutine, the rest are
// queued as usual.
package alert
