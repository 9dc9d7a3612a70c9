package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"hatewatch/telemetry"
)

// liveTextEvent is the only live chat event type that gets analyzed; every
// other type (memberships, super chats, deletions) is discarded without side
// effects.
const liveTextEvent = "textMessageEvent"

// StartLiveChat resolves and validates the live chat handle, then starts a
// live-chat ingestion session under the registry. It returns ErrNoLiveChat
// when the video has no active chat and ErrSessionRunning when a live-chat
// session for the video already exists.
func (p *Pipeline) StartLiveChat(ctx context.Context, videoID string) error {
	liveChatID, err := p.Source.LiveChatID(ctx, videoID)
	if err != nil {
		return fmt.Errorf("resolve live chat: %w", err)
	}
	if liveChatID == "" {
		return ErrNoLiveChat
	}
	if !p.Registry.TryStart(ctx, videoID, ModeLiveChat, func(sctx context.Context) {
		p.runLiveChat(sctx, videoID, liveChatID)
	}) {
		return ErrSessionRunning
	}
	return nil
}

// runLiveChat is the live-chat polling loop. The continuation token is opaque
// and stateful: a failed fetch cannot be resumed blind, so any fetch error
// terminates the session instead of retrying.
func (p *Pipeline) runLiveChat(ctx context.Context, videoID, liveChatID string) {
	log := slog.With(slog.String("video_id", videoID), slog.String("component", "live_chat"))
	pageToken := ""
	for {
		if ctx.Err() != nil {
			return
		}
		page, err := p.Source.FetchLiveChatPage(ctx, liveChatID, pageToken)
		if err != nil {
			log.Error("live chat fetch failed, ending session", slog.Any("err", err))
			return
		}
		telemetry.IncPollCycle("live_chat")

		batch := make([]RawComment, 0, len(page.Items))
		for _, item := range page.Items {
			if item.Type != liveTextEvent || item.Text == "" {
				continue
			}
			author := item.Author
			if author == "" {
				author = "Anonymous"
			}
			batch = append(batch, RawComment{Text: item.Text, Author: author})
		}
		if len(batch) > 0 {
			p.Orchestrator.Process(ctx, videoID, batch)
		}

		pageToken = page.NextPageToken
		wait := p.LiveFallback
		if page.PollingIntervalMillis > 0 {
			wait = time.Duration(page.PollingIntervalMillis) * time.Millisecond
		}
		if !sleepOrDone(ctx, wait) {
			return
		}
	}
}
