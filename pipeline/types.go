// Package pipeline implements the real-time ingestion and broadcast core:
// live-status classification, the live-chat and regular-comment pollers, the
// analysis orchestrator, the session registry, and the subscriber hub.
//
// Upstream access, toxicity scoring, and persistence are consumed through the
// Source, Analyzer, and Store interfaces so the pollers can be exercised
// without network or database.
package pipeline

import (
	"context"
	"errors"
	"time"

	"hatewatch/db"
	"hatewatch/youtubeapi"
)

// Mode identifies the ingestion strategy of a session.
type Mode int

const (
	// ModeLiveChat polls the live chat message stream with continuation tokens.
	ModeLiveChat Mode = iota
	// ModeRegularPolling polls recent top-level comments with a publish-time watermark.
	ModeRegularPolling
)

func (m Mode) String() string {
	switch m {
	case ModeLiveChat:
		return "live-chat"
	case ModeRegularPolling:
		return "regular-polling"
	default:
		return "unknown"
	}
}

// LiveStatus is the result of classifying a video's live state.
type LiveStatus int

const (
	// NotLive means the video has no active live chat.
	NotLive LiveStatus = iota
	// Live means the video has an active live chat.
	Live
	// StatusUnknown means the upstream query failed; callers must treat this as NotLive.
	StatusUnknown
)

func (s LiveStatus) String() string {
	switch s {
	case Live:
		return "live"
	case NotLive:
		return "not-live"
	default:
		return "unknown"
	}
}

// RawComment is an unscored comment as retrieved from upstream. PublishedAt is
// set only for regular (non-live) comments; live chat events order by arrival.
type RawComment struct {
	Text        string
	Author      string
	PublishedAt time.Time
}

// ScoredComment is the broadcast event shape: one analyzed comment.
// Immutable once produced by the orchestrator.
type ScoredComment struct {
	Text       string  `json:"text"`
	Author     string  `json:"author"`
	Toxic      bool    `json:"isToxic"`
	Confidence float64 `json:"confidence"`
}

// ErrNoLiveChat is reported when a live-chat session is requested for a video
// without an active live chat.
var ErrNoLiveChat = errors.New("video has no live chat")

// ErrSessionRunning is reported when a session for the same (video, mode) pair
// is already registered.
var ErrSessionRunning = errors.New("session already running for this video and mode")

// Analyzer scores a text for toxicity, returning the toxic-class probability.
type Analyzer interface {
	Analyze(ctx context.Context, text string) (float64, error)
}

// Store persists videos and scored comments.
type Store interface {
	GetOrCreateVideo(ctx context.Context, videoID, title, description string) (db.Video, error)
	SaveComment(ctx context.Context, videoRowID int64, text, author string, confidence float64, toxic bool) (db.Comment, error)
}

// Source is the upstream comment/chat API consumed by the pollers.
type Source interface {
	LiveChatID(ctx context.Context, videoID string) (string, error)
	FetchLiveChatPage(ctx context.Context, liveChatID, pageToken string) (youtubeapi.LiveChatPage, error)
	FetchCommentPage(ctx context.Context, videoID string, maxResults int64) ([]youtubeapi.TimedComment, error)
}
