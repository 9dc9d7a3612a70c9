package pipeline

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"hatewatch/telemetry"
	"hatewatch/youtubeapi"
)

// StartRegularPolling starts a watermark-based polling session for a non-live
// video. It returns ErrSessionRunning when a regular-polling session for the
// video already exists. Whether the video is actually non-live is the caller's
// decision (see Classify); the registry does not forbid combinations.
func (p *Pipeline) StartRegularPolling(ctx context.Context, videoID string) error {
	if !p.Registry.TryStart(ctx, videoID, ModeRegularPolling, func(sctx context.Context) {
		p.runRegularPolling(sctx, videoID)
	}) {
		return ErrSessionRunning
	}
	return nil
}

// runRegularPolling seeds from the most recent comments, then polls at a fixed
// interval broadcasting only comments published strictly after the watermark.
// Comments published between polls beyond the page size are dropped: the
// contract is eventually consistent with no duplicates, not complete capture.
// Fetch errors are transient here; the loop logs and tries again next tick.
func (p *Pipeline) runRegularPolling(ctx context.Context, videoID string) {
	log := slog.With(slog.String("video_id", videoID), slog.String("component", "regular_poll"))

	var watermark time.Time
	seed, err := p.Source.FetchCommentPage(ctx, videoID, p.PageSize)
	if err != nil {
		log.Warn("seed fetch failed", slog.Any("err", err))
	} else {
		sortByPublish(seed)
		if batch := toRawComments(seed); len(batch) > 0 {
			p.Orchestrator.Process(ctx, videoID, batch)
			watermark = seed[len(seed)-1].PublishedAt
		}
	}

	for {
		if !sleepOrDone(ctx, p.RegularInterval) {
			return
		}
		page, err := p.Source.FetchCommentPage(ctx, videoID, p.PageSize)
		if err != nil {
			log.Warn("poll fetch failed, retrying next interval", slog.Any("err", err))
			continue
		}
		telemetry.IncPollCycle("regular")
		if len(page) == 0 {
			continue
		}
		sortByPublish(page)

		fresh := page
		if !watermark.IsZero() {
			fresh = fresh[:0:0]
			for _, c := range page {
				if c.PublishedAt.After(watermark) {
					fresh = append(fresh, c)
				}
			}
		}
		if len(fresh) == 0 {
			continue
		}
		p.Orchestrator.Process(ctx, videoID, toRawComments(fresh))
		// Advance to the greatest publish time seen, even when gaps between
		// polls mean some comments were never captured.
		if newest := page[len(page)-1].PublishedAt; newest.After(watermark) {
			watermark = newest
		}
	}
}

func sortByPublish(cs []youtubeapi.TimedComment) {
	sort.SliceStable(cs, func(i, j int) bool { return cs[i].PublishedAt.Before(cs[j].PublishedAt) })
}

func toRawComments(cs []youtubeapi.TimedComment) []RawComment {
	out := make([]RawComment, 0, len(cs))
	for _, c := range cs {
		if c.Text == "" {
			continue
		}
		author := c.Author
		if author == "" {
			author = "Anonymous"
		}
		out = append(out, RawComment{Text: c.Text, Author: author, PublishedAt: c.PublishedAt})
	}
	return out
}
