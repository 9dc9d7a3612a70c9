package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"hatewatch/youtubeapi"
)

// HandleVideoAnalyze fetches a video's most recent top-level comments, scores
// and persists each, and returns the batch. This is the one-shot analysis path
// for finite comment sets; live ingestion goes through /live/command.
// Params: url (required watch URL), max_comments (1..3000, default 10).
func (h *Handlers) HandleVideoAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	url := r.URL.Query().Get("url")
	if url == "" {
		http.Error(w, "missing url", http.StatusBadRequest)
		return
	}
	maxComments := int64(parseIntQuery(r, "max_comments", 10))
	if maxComments < 1 || maxComments > 3000 {
		http.Error(w, "max_comments out of range", http.StatusBadRequest)
		return
	}

	videoID, err := youtubeapi.ExtractVideoID(url)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	ctx := r.Context()

	details, err := h.source.VideoDetails(ctx, videoID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	video, err := h.store.GetOrCreateVideo(ctx, videoID, details.Title, details.Description)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	comments, err := h.source.FetchCommentPage(ctx, videoID, maxComments)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	type analyzed struct {
		Text       string  `json:"text"`
		Author     string  `json:"author"`
		Toxic      bool    `json:"isToxic"`
		Confidence float64 `json:"confidence"`
	}
	out := make([]analyzed, 0, len(comments))
	orch := h.pipe.Orchestrator
	for _, c := range comments {
		if c.Text == "" {
			continue
		}
		confidence, err := orch.Analyzer.Analyze(ctx, c.Text)
		if err != nil {
			slog.Warn("batch analysis failed, skipping comment", slog.Any("err", err), slog.String("component", "http"))
			continue
		}
		toxic := confidence > 0.5
		saved, err := h.store.SaveComment(ctx, video.ID, c.Text, c.Author, confidence, toxic)
		if err != nil {
			slog.Warn("batch persist failed, skipping comment", slog.Any("err", err), slog.String("component", "http"))
			continue
		}
		out = append(out, analyzed{Text: saved.Text, Author: saved.Author, Toxic: saved.Toxic, Confidence: saved.Confidence})
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"video": map[string]any{
			"id":          video.ID,
			"video_id":    video.VideoID,
			"title":       video.Title,
			"description": video.Description,
			"embed_url":   details.EmbedURL,
		},
		"comments_analyzed": len(out),
		"comments":          out,
	})
}
