package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// MockYouTubeServer creates a test server that mocks YouTube Data API v3
// responses. Point youtubeapi.New at m.URL + "/" via option.WithEndpoint.
// Handler keys are matched as path suffixes because the generated client
// prefixes requests with its youtube/v3 base path.
type MockYouTubeServer struct {
	*httptest.Server
	Handlers map[string]http.HandlerFunc
}

// NewMockYouTubeServer creates a new mock YouTube Data API server
func NewMockYouTubeServer(t *testing.T) *MockYouTubeServer {
	t.Helper()
	m := &MockYouTubeServer{
		Handlers: make(map[string]http.HandlerFunc),
	}
	m.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for key, handler := range m.Handlers {
			if strings.HasSuffix(r.URL.Path, key) {
				handler(w, r)
				return
			}
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(m.Close)
	return m
}

// MockVideoResponse adds a handler for the videos.list endpoint. liveChatID
// may be empty for videos that are not currently live.
func (m *MockYouTubeServer) MockVideoResponse(videoID, title, description, liveChatID string) {
	m.Handlers["/videos"] = func(w http.ResponseWriter, r *http.Request) {
		response := map[string]interface{}{
			"items": []map[string]interface{}{
				{
					"id": videoID,
					"snippet": map[string]string{
						"title":       title,
						"description": description,
					},
					"liveStreamingDetails": map[string]string{
						"activeLiveChatId": liveChatID,
					},
				},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(response) //nolint:errcheck // test mock response
	}
}

// MockVideoNotFound makes videos.list return an empty item list.
func (m *MockYouTubeServer) MockVideoNotFound() {
	m.Handlers["/videos"] = func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"items":[]}`))
	}
}

// LiveChatMessage is one mocked live chat event.
type LiveChatMessage struct {
	Type   string
	Text   string
	Author string
}

// MockLiveChatResponse adds a handler for the liveChat/messages endpoint.
func (m *MockYouTubeServer) MockLiveChatResponse(messages []LiveChatMessage, nextPageToken string, pollingIntervalMillis int64) {
	m.Handlers["/liveChat/messages"] = func(w http.ResponseWriter, r *http.Request) {
		items := make([]map[string]interface{}, 0, len(messages))
		for _, msg := range messages {
			items = append(items, map[string]interface{}{
				"snippet": map[string]interface{}{
					"type":           msg.Type,
					"displayMessage": msg.Text,
				},
				"authorDetails": map[string]interface{}{
					"displayName": msg.Author,
				},
			})
		}
		response := map[string]interface{}{
			"items":                 items,
			"nextPageToken":         nextPageToken,
			"pollingIntervalMillis": pollingIntervalMillis,
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(response) //nolint:errcheck // test mock response
	}
}

// TimedMessage is one mocked top-level comment with a publish timestamp
// (RFC3339 string, as the upstream API reports it).
type TimedMessage struct {
	Text        string
	Author      string
	PublishedAt string
}

// MockCommentThreadsResponse adds a handler for the commentThreads endpoint.
func (m *MockYouTubeServer) MockCommentThreadsResponse(comments []TimedMessage) {
	m.Handlers["/commentThreads"] = func(w http.ResponseWriter, r *http.Request) {
		items := make([]map[string]interface{}, 0, len(comments))
		for _, c := range comments {
			items = append(items, map[string]interface{}{
				"snippet": map[string]interface{}{
					"topLevelComment": map[string]interface{}{
						"snippet": map[string]interface{}{
							"textOriginal":      c.Text,
							"authorDisplayName": c.Author,
							"publishedAt":       c.PublishedAt,
						},
					},
				},
			})
		}
		response := map[string]interface{}{"items": items}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(response) //nolint:errcheck // test mock response
	}
}

// MockAnalyzerServer mocks the toxicity model service: POST {"text": ...}
// returns {"confidence": ...}. Scores can be set per text; unknown texts get
// the default score.
type MockAnalyzerServer struct {
	*httptest.Server

	mu      sync.Mutex
	scores  map[string]float64
	Default float64
}

// NewMockAnalyzerServer creates a mock analyzer scoring everything 0.0 until
// told otherwise.
func NewMockAnalyzerServer(t *testing.T) *MockAnalyzerServer {
	t.Helper()
	m := &MockAnalyzerServer{scores: make(map[string]float64)}
	m.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Text string `json:"text"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		m.mu.Lock()
		score, ok := m.scores[req.Text]
		if !ok {
			score = m.Default
		}
		m.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]float64{"confidence": score}) //nolint:errcheck // test mock response
	}))
	t.Cleanup(m.Close)
	return m
}

// SetScore fixes the confidence returned for an exact text.
func (m *MockAnalyzerServer) SetScore(text string, confidence float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scores[text] = confidence
}
