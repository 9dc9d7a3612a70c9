package server

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	"hatewatch/db"
	"hatewatch/pipeline"
	"hatewatch/youtubeapi"
)

// stubSource doubles as the pipeline's Source and the REST handlers' Upstream.
type stubSource struct {
	liveChatID  string
	liveChatErr error
	details     youtubeapi.VideoDetails
	detailsErr  error
	comments    []youtubeapi.TimedComment
	commentsErr error
	chatPage    youtubeapi.LiveChatPage
	chatErr     error
}

func (s *stubSource) LiveChatID(context.Context, string) (string, error) {
	return s.liveChatID, s.liveChatErr
}

func (s *stubSource) FetchLiveChatPage(context.Context, string, string) (youtubeapi.LiveChatPage, error) {
	return s.chatPage, s.chatErr
}

func (s *stubSource) FetchCommentPage(context.Context, string, int64) ([]youtubeapi.TimedComment, error) {
	return s.comments, s.commentsErr
}

func (s *stubSource) VideoDetails(_ context.Context, videoID string) (youtubeapi.VideoDetails, error) {
	if s.detailsErr != nil {
		return youtubeapi.VideoDetails{}, s.detailsErr
	}
	d := s.details
	if d.VideoID == "" {
		d.VideoID = videoID
	}
	return d, nil
}

// stubAnalyzer returns a fixed score per text, or the zero default.
type stubAnalyzer struct {
	scores map[string]float64
	err    error
}

func (a *stubAnalyzer) Analyze(_ context.Context, text string) (float64, error) {
	if a.err != nil {
		return 0, a.err
	}
	return a.scores[text], nil
}

// memStore is an in-memory pipeline.Store for handler tests that bypass SQL.
type memStore struct {
	mu     sync.Mutex
	saved  []db.Comment
	nextID int64
	fail   bool
}

func (m *memStore) GetOrCreateVideo(_ context.Context, videoID, title, description string) (db.Video, error) {
	if m.fail {
		return db.Video{}, errors.New("store down")
	}
	return db.Video{ID: 1, VideoID: videoID, Title: title, Description: description}, nil
}

func (m *memStore) SaveComment(_ context.Context, videoRowID int64, text, author string, confidence float64, toxic bool) (db.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return db.Comment{}, errors.New("store down")
	}
	m.nextID++
	c := db.Comment{ID: m.nextID, Text: text, Author: author, Confidence: confidence, Toxic: toxic, PublishedAt: time.Now()}
	if videoRowID > 0 {
		c.VideoID = sql.NullInt64{Int64: videoRowID, Valid: true}
	}
	m.saved = append(m.saved, c)
	return c, nil
}

// newTestHandlers wires handlers around stubs. dbc may be nil for tests that
// never reach the SQL store.
func newTestHandlers(dbc *sql.DB, src *stubSource, an *stubAnalyzer) (*Handlers, *pipeline.Pipeline, *pipeline.Hub) {
	hub := pipeline.NewHub()
	p := &pipeline.Pipeline{
		Source:          src,
		Orchestrator:    &pipeline.Orchestrator{Analyzer: an, Store: &memStore{}, Hub: hub},
		Registry:        pipeline.NewRegistry(),
		RegularInterval: 5 * time.Millisecond,
		LiveFallback:    time.Minute,
		PageSize:        5,
	}
	h := NewHandlers(context.Background(), dbc, p, hub, src)
	return h, p, hub
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(timeout time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(2 * time.Millisecond)
	}
	return cond()
}
