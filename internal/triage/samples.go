package triage

import "focustriage/internal/classifier"

const syntheticSubtitle = "Demo"

var sampleApps = []struct{ key, name string }{
	{"com.tinyspeck.slackmacgap", "Slack"},
	{"com.apple.mobilemail", "Mail"},
	{"com.apple.iCal", "Calendar"},
	{"com.apple.reminders", "Reminders"},
}

var samples = []struct {
	title, body, reason string
	tier                classifier.Tier
}{
	{"Immediate action required", "Production error rate is spiking.", "Monitoring alert that needs checking right away", classifier.Critical},
	{"15:00 meeting invite updated", "The meeting link has changed.", "An update to confirm today", classifier.High},
	{"Review requested", "You have a review request on PR #128.", "Moderate priority for interrupting work", classifier.Medium},
	{"Invoice issued", "Please review this month's invoice.", "Fine to check before the due date", classifier.Low},
	{"Delivery estimate updated", "Your package's arrival time has changed.", "General status notice", classifier.Low},
	{"Security warning", "An unrecognized sign-in attempt was detected.", "Act early to protect the account", classifier.High},
}
