package server

import (
	"bufio"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"hatewatch/pipeline"
)

func postCommand(t *testing.T, handler http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/live/command", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestLiveCommandMethodNotAllowed(t *testing.T) {
	h, _, _ := newTestHandlers(nil, &stubSource{}, &stubAnalyzer{})
	handler := NewMux(h)

	req := httptest.NewRequest(http.MethodGet, "/live/command", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}

func TestLiveCommandUnrecognizedMessage(t *testing.T) {
	h, _, _ := newTestHandlers(nil, &stubSource{}, &stubAnalyzer{})
	handler := NewMux(h)

	rec := postCommand(t, handler, `{"action":"launch"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	var er pipeline.ErrorReply
	if err := json.Unmarshal(rec.Body.Bytes(), &er); err != nil {
		t.Fatalf("decode error reply: %v", err)
	}
	if er.Error != "unrecognized message" {
		t.Errorf("error = %q", er.Error)
	}
}

func TestLiveCommandManualComment(t *testing.T) {
	an := &stubAnalyzer{scores: map[string]float64{"awful take": 0.91}}
	h, _, _ := newTestHandlers(nil, &stubSource{}, an)
	handler := NewMux(h)

	rec := postCommand(t, handler, `{"videoId":"vid-1","text":"awful take","author":"viewer"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", rec.Code, rec.Body.String())
	}
	var reply struct {
		Text       string  `json:"text"`
		Author     string  `json:"author"`
		IsToxic    bool    `json:"isToxic"`
		Confidence float64 `json:"confidence"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &reply); err != nil {
		t.Fatalf("decode reply: %v", err)
	}
	if !reply.IsToxic || reply.Confidence != 0.91 || reply.Text != "awful take" || reply.Author != "viewer" {
		t.Errorf("reply = %+v", reply)
	}
}

func TestLiveCommandStartLiveChatNotLive(t *testing.T) {
	h, _, _ := newTestHandlers(nil, &stubSource{liveChatID: ""}, &stubAnalyzer{})
	handler := NewMux(h)

	rec := postCommand(t, handler, `{"action":"start-live-chat","videoId":"vid-1"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "no live chat") {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestLiveCommandStartAndStopSession(t *testing.T) {
	h, p, _ := newTestHandlers(nil, &stubSource{liveChatID: "chat-1"}, &stubAnalyzer{})
	handler := NewMux(h)

	rec := postCommand(t, handler, `{"action":"start-live-chat","videoId":"vid-1"}`)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("start status = %d, want 204, body %s", rec.Code, rec.Body.String())
	}
	if !p.Registry.Running("vid-1", pipeline.ModeLiveChat) {
		t.Fatal("session should be running after 204")
	}

	// The session must survive the originating request ending.
	time.Sleep(10 * time.Millisecond)
	if !p.Registry.Running("vid-1", pipeline.ModeLiveChat) {
		t.Fatal("session should outlive the request")
	}

	rec = postCommand(t, handler, `{"action":"stop-live-chat","videoId":"vid-1"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("stop status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "stopping") {
		t.Errorf("stop body = %s", rec.Body.String())
	}
	if !waitFor(2*time.Second, func() bool { return p.Registry.Len() == 0 }) {
		t.Error("session should exit after stop command")
	}
}

func TestLiveStreamDeliversEvents(t *testing.T) {
	h, _, hub := newTestHandlers(nil, &stubSource{}, &stubAnalyzer{})
	srv := httptest.NewServer(NewMux(h))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/live/stream")
	if err != nil {
		t.Fatalf("GET /live/stream: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q", ct)
	}

	if !waitFor(2*time.Second, func() bool { return hub.Len() == 1 }) {
		t.Fatal("stream never subscribed to the hub")
	}
	want := pipeline.ScoredComment{Text: "vile", Author: "troll", Toxic: true, Confidence: 0.97}
	hub.Publish(want)

	reader := bufio.NewReader(resp.Body)
	deadline := time.After(2 * time.Second)
	lineCh := make(chan string, 1)
	go func() {
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				return
			}
			if strings.HasPrefix(line, "data: ") {
				lineCh <- strings.TrimPrefix(strings.TrimSpace(line), "data: ")
				return
			}
		}
	}()

	select {
	case payload := <-lineCh:
		var got pipeline.ScoredComment
		if err := json.Unmarshal([]byte(payload), &got); err != nil {
			t.Fatalf("decode event %q: %v", payload, err)
		}
		if got != want {
			t.Errorf("event = %+v, want %+v", got, want)
		}
	case <-deadline:
		t.Fatal("no SSE event received")
	}
}

func TestLiveStreamUnsubscribesOnDisconnect(t *testing.T) {
	h, _, hub := newTestHandlers(nil, &stubSource{}, &stubAnalyzer{})
	srv := httptest.NewServer(NewMux(h))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/live/stream")
	if err != nil {
		t.Fatalf("GET /live/stream: %v", err)
	}
	if !waitFor(2*time.Second, func() bool { return hub.Len() == 1 }) {
		t.Fatal("stream never subscribed to the hub")
	}

	resp.Body.Close()
	if !waitFor(2*time.Second, func() bool { return hub.Len() == 0 }) {
		t.Error("subscriber should be removed after client disconnect")
	}
}
