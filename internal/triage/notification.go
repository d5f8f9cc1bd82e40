// Package triage holds the in-memory collection of classified notifications
// and its grouped, truncated views.
//
// Store is not safe for concurrent use; the orchestrator owns it behind its
// own mutex.
package triage

import (
	"strings"
	"time"

	"focustriage/internal/classifier"
	"focustriage/internal/source"
)

// Notification is a record plus its classification. IDs equal the source ID
// for real records and are negative for synthetic ones.
type Notification struct {
	ID         int64     `json:"id"`
	AppKey     string    `json:"app_key"`
	AppName    string    `json:"app_name"`
	Title      string    `json:"title"`
	Body       string    `json:"body"`
	Subtitle   string    `json:"subtitle"`
	ObservedAt time.Time `json:"observed_at"`

	classifier.Classification

	seq uint64
}

// FromRecord combines a record and its classification.
func FromRecord(rec source.Record, c classifier.Classification) Notification {
	return Notification{
		ID:             rec.ID,
		AppKey:         rec.AppKey,
		AppName:        AppName(rec.AppKey),
		Title:          rec.Title,
		Body:           rec.Body,
		Subtitle:       rec.Subtitle,
		ObservedAt:     rec.ObservedAt,
		Classification: c,
	}
}

// AppName is the last dot-separated segment of key, or key itself when that
// segment is empty.
func AppName(key string) string {
	i := strings.LastIndexByte(key, '.')
	if i < 0 || i == len(key)-1 {
		return key
	}
	return key[i+1:]
}

// SummaryItems projects notifications for digest summaries.
func SummaryItems(ns []Notification) []classifier.SummaryItem {
	out := make([]classifier.SummaryItem, 0, len(ns))
	for _, n := range ns {
		out = append(out, classifier.SummaryItem{
			AppName:     n.AppName,
			Tier:        n.Tier,
			SummaryLine: n.SummaryLine,
			Body:        n.Body,
		})
	}
	return out
}
