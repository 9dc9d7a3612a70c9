package pipeline

import (
	"context"
	"log/slog"
	"sync"

	"hatewatch/telemetry"
)

type sessionKey struct {
	videoID string
	mode    Mode
}

// Registry supervises ingestion sessions: at most one running task per
// (video, mode) pair. Live-chat and regular-polling sessions for the same
// video may coexist when a caller explicitly starts both; the registry keys
// on the pair and does not forbid the combination.
type Registry struct {
	mu       sync.Mutex
	sessions map[sessionKey]context.CancelFunc
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[sessionKey]context.CancelFunc)}
}

// TryStart registers and starts run in its own goroutine under a cancellable
// child of ctx. It returns false without starting anything when a session for
// the same (video, mode) pair is already running. The registry entry is
// removed when run returns, whether by cancellation or on its own.
func (r *Registry) TryStart(ctx context.Context, videoID string, mode Mode, run func(ctx context.Context)) bool {
	key := sessionKey{videoID: videoID, mode: mode}
	r.mu.Lock()
	if _, ok := r.sessions[key]; ok {
		r.mu.Unlock()
		return false
	}
	sctx, cancel := context.WithCancel(ctx)
	r.sessions[key] = cancel
	n := len(r.sessions)
	r.mu.Unlock()
	telemetry.SetActiveSessions(n)
	slog.Info("session started", slog.String("video_id", videoID), slog.String("mode", mode.String()), slog.String("component", "registry"))

	go func() {
		defer func() {
			cancel()
			r.mu.Lock()
			delete(r.sessions, key)
			n := len(r.sessions)
			r.mu.Unlock()
			telemetry.SetActiveSessions(n)
			slog.Info("session ended", slog.String("video_id", videoID), slog.String("mode", mode.String()), slog.String("component", "registry"))
		}()
		run(sctx)
	}()
	return true
}

// Cancel signals the running session for (video, mode) to stop. The session
// observes cancellation cooperatively at the top of its poll loop, so it may
// take up to one poll interval to exit; the registry entry is removed when it
// does. Returns false when no such session is registered.
func (r *Registry) Cancel(videoID string, mode Mode) bool {
	r.mu.Lock()
	cancel, ok := r.sessions[sessionKey{videoID: videoID, mode: mode}]
	r.mu.Unlock()
	if !ok {
		return false
	}
	cancel()
	return true
}

// Running reports whether a session for (video, mode) is currently registered.
func (r *Registry) Running(videoID string, mode Mode) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.sessions[sessionKey{videoID: videoID, mode: mode}]
	return ok
}

// Len returns the number of registered sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
