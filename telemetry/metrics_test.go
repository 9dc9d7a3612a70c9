package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestInitIdempotent(t *testing.T) {
	Init()
	Init() // second call must not re-register with prometheus

	if CommentsAnalyzed == nil || ToxicDetected == nil || PollCycles == nil {
		t.Error("counters not initialized")
	}
	if AnalyzeDuration == nil {
		t.Error("AnalyzeDuration histogram not initialized")
	}
	if SubscribersGauge == nil || ActiveSessionsGauge == nil {
		t.Error("gauges not initialized")
	}
}

func TestHelpersNilSafeBeforeInit(t *testing.T) {
	// Helpers must be callable even if Init never ran (metrics vars may be nil
	// in unit tests of other packages).
	IncAnalyzed(true)
	IncAnalysisFailed()
	IncPersistFailed()
	IncBroadcast()
	IncPollCycle("live_chat")
	SetSubscribers(3)
	SetActiveSessions(1)
}

func TestTimeAnalyzePassesThrough(t *testing.T) {
	Init()

	v, err := TimeAnalyze(func() (float64, error) {
		time.Sleep(time.Millisecond)
		return 0.42, nil
	})
	if err != nil || v != 0.42 {
		t.Errorf("TimeAnalyze = %v, %v", v, err)
	}

	wantErr := errors.New("boom")
	if _, err := TimeAnalyze(func() (float64, error) { return 0, wantErr }); !errors.Is(err, wantErr) {
		t.Errorf("TimeAnalyze error = %v, want %v", err, wantErr)
	}
}

func TestCorrelationContext(t *testing.T) {
	ctx := context.Background()
	if got := GetCorrelation(ctx); got != "" {
		t.Errorf("GetCorrelation(empty) = %q", got)
	}
	ctx = WithCorrelation(ctx, "abc-123")
	if got := GetCorrelation(ctx); got != "abc-123" {
		t.Errorf("GetCorrelation = %q, want abc-123", got)
	}
	if LoggerWithCorr(ctx) == nil {
		t.Error("LoggerWithCorr returned nil")
	}
}
