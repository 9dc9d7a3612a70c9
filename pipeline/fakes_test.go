package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"hatewatch/db"
	"hatewatch/youtubeapi"
)

// fakeAnalyzer scores by exact text lookup; unknown texts get the default
// score. Texts listed in failOn return an error instead.
type fakeAnalyzer struct {
	mu       sync.Mutex
	scores   map[string]float64
	failOn   map[string]bool
	defScore float64
}

func newFakeAnalyzer() *fakeAnalyzer {
	return &fakeAnalyzer{scores: make(map[string]float64), failOn: make(map[string]bool)}
}

func (a *fakeAnalyzer) Analyze(_ context.Context, text string) (float64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.failOn[text] {
		return 0, errors.New("analyzer unavailable")
	}
	if s, ok := a.scores[text]; ok {
		return s, nil
	}
	return a.defScore, nil
}

type savedComment struct {
	videoRowID int64
	text       string
	author     string
	confidence float64
	toxic      bool
}

// fakeStore records saves in memory. Texts listed in saveFailOn fail to
// persist; videoErr fails the video lookup wholesale.
type fakeStore struct {
	mu         sync.Mutex
	saved      []savedComment
	saveFailOn map[string]bool
	videoErr   error
	nextID     int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{saveFailOn: make(map[string]bool)}
}

func (s *fakeStore) GetOrCreateVideo(_ context.Context, videoID, title, description string) (db.Video, error) {
	if s.videoErr != nil {
		return db.Video{}, s.videoErr
	}
	return db.Video{ID: 1, VideoID: videoID, Title: title, Description: description}, nil
}

func (s *fakeStore) SaveComment(_ context.Context, videoRowID int64, text, author string, confidence float64, toxic bool) (db.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveFailOn[text] {
		return db.Comment{}, errors.New("insert failed")
	}
	s.nextID++
	s.saved = append(s.saved, savedComment{videoRowID: videoRowID, text: text, author: author, confidence: confidence, toxic: toxic})
	return db.Comment{ID: s.nextID, Text: text, Author: author, Confidence: confidence, Toxic: toxic}, nil
}

func (s *fakeStore) savedTexts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.saved))
	for i, c := range s.saved {
		out[i] = c.text
	}
	return out
}

func (s *fakeStore) savedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.saved)
}

type chatPage struct {
	page youtubeapi.LiveChatPage
	err  error
}

// fakeSource scripts upstream responses. Live chat pages and comment pages
// are consumed call by call; calls past the end of the script return an error.
type fakeSource struct {
	mu sync.Mutex

	liveChatID  string
	liveChatErr error

	chatPages []chatPage
	chatCall  int
	gotTokens []string

	commentPages [][]youtubeapi.TimedComment
	commentErrs  []error
	commentCall  int
}

func (f *fakeSource) LiveChatID(_ context.Context, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.liveChatID, f.liveChatErr
}

func (f *fakeSource) FetchLiveChatPage(_ context.Context, _, pageToken string) (youtubeapi.LiveChatPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gotTokens = append(f.gotTokens, pageToken)
	if f.chatCall >= len(f.chatPages) {
		return youtubeapi.LiveChatPage{}, errors.New("chat script exhausted")
	}
	p := f.chatPages[f.chatCall]
	f.chatCall++
	return p.page, p.err
}

func (f *fakeSource) FetchCommentPage(_ context.Context, _ string, _ int64) ([]youtubeapi.TimedComment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.commentCall >= len(f.commentPages) {
		return nil, errors.New("comment script exhausted")
	}
	i := f.commentCall
	f.commentCall++
	var err error
	if i < len(f.commentErrs) {
		err = f.commentErrs[i]
	}
	if err != nil {
		return nil, err
	}
	return f.commentPages[i], nil
}

func (f *fakeSource) tokens() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.gotTokens))
	copy(out, f.gotTokens)
	return out
}

// newTestPipeline wires a pipeline with fast poll intervals for tests.
func newTestPipeline(src Source, an Analyzer, st Store) (*Pipeline, *Hub) {
	hub := NewHub()
	p := &Pipeline{
		Source:          src,
		Orchestrator:    &Orchestrator{Analyzer: an, Store: st, Hub: hub},
		Registry:        NewRegistry(),
		RegularInterval: 5 * time.Millisecond,
		LiveFallback:    5 * time.Millisecond,
		PageSize:        5,
	}
	return p, hub
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
