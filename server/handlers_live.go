package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"hatewatch/pipeline"
	"hatewatch/telemetry"
)

// maxCommandBytes bounds the inbound command message size.
const maxCommandBytes = 64 << 10

// HandleLiveCommand accepts one JSON command message per request and replies
// synchronously. Session starts reply 204 on success; their output arrives on
// the broadcast stream, not here.
func (h *Handlers) HandleLiveCommand(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxCommandBytes))
	if err != nil {
		http.Error(w, "read body", http.StatusBadRequest)
		return
	}

	// Commands spawn background sessions, so they run under the process root
	// context (with the request's correlation id carried over), not the
	// request context.
	ctx := telemetry.WithCorrelation(h.ctx, telemetry.GetCorrelation(r.Context()))
	reply := h.commander.Handle(ctx, json.RawMessage(body))

	w.Header().Set("Content-Type", "application/json")
	switch v := reply.(type) {
	case nil:
		w.WriteHeader(http.StatusNoContent)
	case pipeline.ErrorReply:
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(v)
	default:
		_ = json.NewEncoder(w).Encode(v)
	}
}

// HandleLiveStream subscribes the client to the broadcast fan-out and streams
// scored comments as Server-Sent Events until the client disconnects.
func (h *Handlers) HandleLiveStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	sub := h.hub.Subscribe()
	defer h.hub.Unsubscribe(sub)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ctx := r.Context()
	keepalive := time.NewTicker(15 * time.Second)
	defer keepalive.Stop()
	enc := json.NewEncoder(w)

	for {
		select {
		case <-ctx.Done():
			return
		case <-keepalive.C:
			if _, err := w.Write([]byte(": keepalive\n\n")); err != nil {
				return
			}
			flusher.Flush()
		case ev, open := <-sub.Events():
			if !open {
				// Dropped by the hub (stalled consumer) or shutdown.
				return
			}
			if _, err := w.Write([]byte("data: ")); err != nil {
				slog.Warn("failed to write SSE data prefix", slog.Any("err", err))
				return
			}
			if err := enc.Encode(ev); err != nil {
				return
			}
			if _, err := w.Write([]byte("\n")); err != nil {
				slog.Warn("failed to write SSE newline", slog.Any("err", err))
				return
			}
			flusher.Flush()
		}
	}
}
