package pipeline

import (
	"context"
	"log/slog"
	"time"

	"hatewatch/config"
)

// Pipeline ties the pollers to their collaborators and holds the polling knobs.
type Pipeline struct {
	Source       Source
	Orchestrator *Orchestrator
	Registry     *Registry

	// RegularInterval is the fixed sleep between regular comment polls.
	RegularInterval time.Duration
	// LiveFallback is the sleep between live chat polls when the server
	// suggests no interval.
	LiveFallback time.Duration
	// PageSize is the per-poll comment page size (clamped to [1,50]).
	PageSize int64
}

// New builds a Pipeline from config with a fresh registry.
func New(cfg *config.Config, src Source, orch *Orchestrator) *Pipeline {
	return &Pipeline{
		Source:          src,
		Orchestrator:    orch,
		Registry:        NewRegistry(),
		RegularInterval: cfg.RegularPollInterval,
		LiveFallback:    cfg.LivePollFallback,
		PageSize:        config.ClampPageSize(cfg.MaxCommentResults),
	}
}

// Classify decides whether a video is live by querying upstream for an active
// live chat handle. When the query itself fails the result is StatusUnknown;
// callers must treat that as NotLive rather than assuming a live stream.
func (p *Pipeline) Classify(ctx context.Context, videoID string) LiveStatus {
	id, err := p.Source.LiveChatID(ctx, videoID)
	if err != nil {
		slog.Warn("live status query failed", slog.String("video_id", videoID), slog.Any("err", err), slog.String("component", "classifier"))
		return StatusUnknown
	}
	if id == "" {
		return NotLive
	}
	return Live
}

// sleepOrDone waits for d or until ctx is cancelled. Returns false on cancellation.
func sleepOrDone(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
