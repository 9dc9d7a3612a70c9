package server

import (
	"encoding/json"
	"io"
	"net/http"
)

// HandleCommentCreate analyzes and persists a single free-standing comment and
// returns it with its score. Comments created here have no video association.
func (h *Handlers) HandleCommentCreate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var in struct {
		Text   string `json:"text"`
		Author string `json:"author"`
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxCommandBytes))
	if err != nil {
		http.Error(w, "read body", http.StatusBadRequest)
		return
	}
	if err := json.Unmarshal(body, &in); err != nil || in.Text == "" {
		http.Error(w, "invalid body: require text", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	confidence, err := h.pipe.Orchestrator.Analyzer.Analyze(ctx, in.Text)
	if err != nil {
		http.Error(w, "analysis failed", http.StatusBadGateway)
		return
	}
	toxic := confidence > 0.5
	saved, err := h.store.SaveComment(ctx, 0, in.Text, in.Author, confidence, toxic)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"id":         saved.ID,
		"text":       saved.Text,
		"author":     saved.Author,
		"isToxic":    saved.Toxic,
		"confidence": saved.Confidence,
	})
}

// HandleCommentAnalytics returns totals across all analyzed comments.
func (h *Handlers) HandleCommentAnalytics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	a, err := h.store.FetchAnalytics(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(a)
}
