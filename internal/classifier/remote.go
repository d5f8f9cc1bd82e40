package classifier

import (
	"context"
	"strings"
	"time"

	"focustriage/internal/source"
	"focustriage/pkg/logx"

	"golang.org/x/time/rate"
)

// Remote classifies through a Backend, rate limited and bounded by a per-call
// timeout. Every failure path returns the local fallback.
type Remote struct {
	backend Backend
	limiter *rate.Limiter
	timeout time.Duration
	log     logx.Logger
}

type RemoteOptions struct {
	RatePerSec int
	Timeout    time.Duration
	Log        logx.Logger
}

func NewRemote(b Backend, opts RemoteOptions) *Remote {
	log := opts.Log
	if log.IsZero() {
		log = logx.Nop()
	}
	rps := opts.RatePerSec
	if rps <= 0 {
		rps = 2
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Remote{
		backend: b,
		limiter: rate.NewLimiter(rate.Limit(rps), rps),
		timeout: timeout,
		log:     log.With(logx.String("comp", "classifier"), logx.String("backend", b.Name())),
	}
}

func (r *Remote) CanUse() bool { return r != nil && r.backend != nil }

func (r *Remote) Backend() string { return r.backend.Name() }

func (r *Remote) generate(ctx context.Context, prompt string) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", err
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	return r.backend.Generate(ctx, prompt)
}

func (r *Remote) Classify(ctx context.Context, rec source.Record, extraContext string) Classification {
	start := time.Now()
	text, err := r.generate(ctx, BuildPrompt(rec, extraContext))
	if err != nil {
		r.log.Warn("classification request failed; using fallback", logx.Int64("id", rec.ID), logx.Err(err))
		return Fallback(rec)
	}
	c, err := ParseResponse(text, rec)
	if err != nil {
		r.log.Warn("classification response unusable; using fallback", logx.Int64("id", rec.ID), logx.Err(err))
		return Fallback(rec)
	}
	r.log.Debug("classified",
		logx.Int64("id", rec.ID),
		logx.String("app", rec.AppKey),
		logx.String("tier", c.Tier.String()),
		logx.Duration("took", time.Since(start)),
	)
	return c
}

func (r *Remote) Summarize(ctx context.Context, items []SummaryItem) string {
	if len(items) == 0 {
		return FallbackSummary(items)
	}
	text, err := r.generate(ctx, BuildSummaryPrompt(items))
	if err != nil {
		r.log.Warn("summary request failed; using fallback", logx.Int("items", len(items)), logx.Err(err))
		return FallbackSummary(items)
	}
	if text = strings.TrimSpace(text); text == "" {
		return FallbackSummary(items)
	}
	return text
}

// Select returns a Remote over the first available backend, in order, or
// Unavailable when none answers.
func Select(ctx context.Context, backends []Backend, opts RemoteOptions) Classifier {
	log := opts.Log
	if log.IsZero() {
		log = logx.Nop()
	}
	log = log.With(logx.String("comp", "classifier"))
	for _, b := range backends {
		if b == nil {
			continue
		}
		if b.Available(ctx) {
			log.Info("classifier backend selected", logx.String("backend", b.Name()))
			return NewRemote(b, opts)
		}
		log.Info("classifier backend unavailable", logx.String("backend", b.Name()))
	}
	log.Warn("no classifier backend available; every notification is treated as medium priority")
	return Unavailable{}
}
