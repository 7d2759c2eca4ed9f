package extract

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/candidstudio/moodgrab/internal/domain"
)

type stubTier struct {
	name  string
	meta  *domain.Metadata
	err   error
	calls atomic.Int32
}

func (t *stubTier) Name() string           { return t.name }
func (t *stubTier) Timeout() time.Duration { return time.Second }

func (t *stubTier) Fetch(_ context.Context, _ string) (*domain.Metadata, error) {
	t.calls.Add(1)
	return t.meta, t.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestExtract_FirstTierWins(t *testing.T) {
	first := &stubTier{name: "first", meta: &domain.Metadata{Title: "from first"}}
	second := &stubTier{name: "second", meta: &domain.Metadata{Title: "from second"}}

	ex := NewExtractor(domain.PlatformTikTok, []Tier{first, second}, testLogger())
	result := ex.Extract(context.Background(), "https://www.tiktok.com/@a/video/1")

	if !result.OK() {
		t.Fatal("expected success")
	}
	if result.Tier != "first" {
		t.Errorf("expected tier first, got %s", result.Tier)
	}
	if result.Metadata.Title != "from first" {
		t.Errorf("expected first tier's metadata, got %q", result.Metadata.Title)
	}
	if second.calls.Load() != 0 {
		t.Error("second tier should not have been attempted")
	}
}

func TestExtract_FallsThroughToSecondTier(t *testing.T) {
	first := &stubTier{name: "first", err: NewTierError(domain.FailureNotFound, "gone")}
	second := &stubTier{name: "second", meta: &domain.Metadata{Title: "from second"}}
	third := &stubTier{name: "third", meta: &domain.Metadata{Title: "from third"}}

	ex := NewExtractor(domain.PlatformTikTok, []Tier{first, second, third}, testLogger())
	result := ex.Extract(context.Background(), "https://www.tiktok.com/@a/video/1")

	if !result.OK() {
		t.Fatal("expected success")
	}
	if result.Tier != "second" {
		t.Errorf("expected tier second, got %s", result.Tier)
	}
	if result.Metadata.Title != "from second" {
		t.Errorf("expected second tier's metadata, got %q", result.Metadata.Title)
	}
	if third.calls.Load() != 0 {
		t.Error("third tier should not have been attempted after second succeeded")
	}
	if len(result.Failures) != 1 {
		t.Fatalf("expected 1 recorded failure, got %d", len(result.Failures))
	}
	if result.Failures[0].Reason != domain.FailureNotFound {
		t.Errorf("expected not_found failure, got %s", result.Failures[0].Reason)
	}
}

func TestExtract_AllTiersFail(t *testing.T) {
	first := &stubTier{name: "first", err: NewTierError(domain.FailureNotFound, "gone")}
	second := &stubTier{name: "second", err: NewTierError(domain.FailureRateLimited, "throttled")}
	third := &stubTier{name: "third", err: NewTierError(domain.FailureParseError, "bad markup")}

	ex := NewExtractor(domain.PlatformTikTok, []Tier{first, second, third}, testLogger())
	result := ex.Extract(context.Background(), "https://www.tiktok.com/@a/video/1")

	if result.OK() {
		t.Fatal("expected failure")
	}
	if len(result.Failures) != 3 {
		t.Fatalf("expected 3 failures, got %d", len(result.Failures))
	}

	last := result.LastFailure()
	if last == nil {
		t.Fatal("expected a last failure")
	}
	if last.Tier != "third" {
		t.Errorf("expected last failure from third tier, got %s", last.Tier)
	}
	if last.Reason != domain.FailureParseError {
		t.Errorf("expected parse_error, got %s", last.Reason)
	}
}

func TestExtract_StopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	first := &stubTier{name: "first", err: errors.New("network down")}
	second := &stubTier{name: "second", meta: &domain.Metadata{Title: "late"}}

	cancel()
	ex := NewExtractor(domain.PlatformWebsite, []Tier{first, second}, testLogger())
	result := ex.Extract(ctx, "https://example.com")

	if result.OK() {
		t.Fatal("expected failure after cancellation")
	}
	if second.calls.Load() != 0 {
		t.Error("no tier should run after the caller cancelled")
	}
}

func TestClassifyFailure(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		reason domain.FailureReason
	}{
		{"tier error passes through", NewTierError(domain.FailureNotFound, "x"), domain.FailureNotFound},
		{"deadline becomes timeout", context.DeadlineExceeded, domain.FailureTimeout},
		{"cancel becomes timeout", context.Canceled, domain.FailureTimeout},
		{"rate limit sentinel", domain.ErrRateLimited, domain.FailureRateLimited},
		{"unknown becomes parse error", errors.New("boom"), domain.FailureParseError},
		{"nil metadata", nil, domain.FailureParseError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reason, _ := classifyFailure(tt.err)
			if reason != tt.reason {
				t.Errorf("expected %s, got %s", tt.reason, reason)
			}
		})
	}
}
