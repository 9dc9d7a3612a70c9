package pipeline

import (
	"context"
	"log/slog"

	"hatewatch/telemetry"
)

// toxicThreshold is the fixed classification boundary: a comment is toxic when
// the analyzer's confidence exceeds it. Deliberately not configurable.
const toxicThreshold = 0.5

// Orchestrator scores, persists, and broadcasts comment batches. Process is
// synchronous with respect to its caller: pollers wait for a batch to finish
// before sleeping and fetching again, which bounds memory and throttles
// polling to analysis throughput.
type Orchestrator struct {
	Analyzer Analyzer
	Store    Store
	Hub      *Hub
}

// Process analyzes and persists each raw comment in order and publishes the
// result to the hub, associated with the video's external id. A failure to
// analyze or persist one item skips that item only; the rest of the batch
// proceeds. The returned slice contains the successfully scored comments in
// upstream order.
func (o *Orchestrator) Process(ctx context.Context, videoID string, batch []RawComment) []ScoredComment {
	if len(batch) == 0 {
		return nil
	}
	video, err := o.Store.GetOrCreateVideo(ctx, videoID, "", "")
	if err != nil {
		slog.Error("resolve video for batch", slog.String("video_id", videoID), slog.Any("err", err), slog.String("component", "orchestrator"))
		return nil
	}
	out := make([]ScoredComment, 0, len(batch))
	for _, rc := range batch {
		confidence, err := telemetry.TimeAnalyze(func() (float64, error) {
			return o.Analyzer.Analyze(ctx, rc.Text)
		})
		if err != nil {
			telemetry.IncAnalysisFailed()
			slog.Warn("analysis failed, skipping comment", slog.String("video_id", videoID), slog.Any("err", err), slog.String("component", "orchestrator"))
			continue
		}
		toxic := confidence > toxicThreshold
		if _, err := o.Store.SaveComment(ctx, video.ID, rc.Text, rc.Author, confidence, toxic); err != nil {
			telemetry.IncPersistFailed()
			slog.Warn("persist failed, skipping comment", slog.String("video_id", videoID), slog.Any("err", err), slog.String("component", "orchestrator"))
			continue
		}
		sc := ScoredComment{Text: rc.Text, Author: rc.Author, Toxic: toxic, Confidence: confidence}
		o.Hub.Publish(sc)
		out = append(out, sc)
		telemetry.IncAnalyzed(toxic)
	}
	return out
}
