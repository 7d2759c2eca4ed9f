package extract

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/candidstudio/moodgrab/internal/cache"
	"github.com/candidstudio/moodgrab/internal/config"
	"github.com/candidstudio/moodgrab/internal/domain"
)

func TestOEmbedTier_Fetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("url") == "" {
			http.Error(w, "missing url", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"title": "my video",
			"author_name": "Creator",
			"author_url": "https://www.tiktok.com/@creator",
			"thumbnail_url": "https://cdn.example.com/thumb.jpg"
		}`))
	}))
	defer server.Close()

	tier := NewOEmbedTier(server.URL, "test-agent", 5*time.Second, server.Client())
	meta, err := tier.Fetch(context.Background(), "https://www.tiktok.com/@creator/video/123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if meta.Title != "my video" {
		t.Errorf("expected title, got %q", meta.Title)
	}
	if meta.AuthorHandle != "creator" {
		t.Errorf("expected handle creator, got %q", meta.AuthorHandle)
	}
	if meta.ThumbnailURL != "https://cdn.example.com/thumb.jpg" {
		t.Errorf("unexpected thumbnail %q", meta.ThumbnailURL)
	}
}

func TestOEmbedTier_StatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		reason domain.FailureReason
	}{
		{"not found", http.StatusNotFound, domain.FailureNotFound},
		{"bad request", http.StatusBadRequest, domain.FailureNotFound},
		{"rate limited", http.StatusTooManyRequests, domain.FailureRateLimited},
		{"server error", http.StatusInternalServerError, domain.FailureParseError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			tier := NewOEmbedTier(server.URL, "test-agent", 5*time.Second, server.Client())
			_, err := tier.Fetch(context.Background(), "https://www.tiktok.com/@a/video/1")

			var tierErr *TierError
			if !errors.As(err, &tierErr) {
				t.Fatalf("expected TierError, got %v", err)
			}
			if tierErr.Reason != tt.reason {
				t.Errorf("expected %s, got %s", tt.reason, tierErr.Reason)
			}
		})
	}
}

func newTestAggregator(t *testing.T, handler http.HandlerFunc) *AggregatorClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := config.ExtractConfig{
		AggregatorBaseURL:     server.URL,
		AggregatorTimeout:     5 * time.Second,
		AggregatorConcurrency: 2,
		CacheTTL:              time.Minute,
		CacheEntries:          16,
		UserAgent:             "test-agent",
	}
	return NewAggregatorClient(cfg, server.Client(), cache.Clock(time.Now))
}

func TestAggregatorClient_Fetch(t *testing.T) {
	client := newTestAggregator(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"code": 0, "msg": "success", "data": {
			"id": "7123",
			"title": "cooking hack",
			"cover": "https://cdn.example.com/cover.jpg",
			"play": "https://cdn.example.com/video.mp4",
			"duration": 42,
			"play_count": 1000,
			"digg_count": 100,
			"comment_count": 10,
			"share_count": 5,
			"author": {"unique_id": "chef", "nickname": "The Chef"},
			"music_info": {"title": "original sound", "author": "chef"}
		}}`))
	})

	meta, err := client.Fetch(context.Background(), "https://www.tiktok.com/@chef/video/7123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if meta.Title != "cooking hack" {
		t.Errorf("unexpected title %q", meta.Title)
	}
	if meta.MediaURL != "https://cdn.example.com/video.mp4" {
		t.Errorf("unexpected media URL %q", meta.MediaURL)
	}
	if meta.DurationSeconds != 42 {
		t.Errorf("unexpected duration %d", meta.DurationSeconds)
	}
	if meta.Stats == nil || meta.Stats.Views != 1000 {
		t.Errorf("unexpected stats %+v", meta.Stats)
	}
	if meta.AuthorHandle != "chef" {
		t.Errorf("unexpected handle %q", meta.AuthorHandle)
	}
}

func TestAggregatorClient_NotFoundCode(t *testing.T) {
	client := newTestAggregator(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"code": -1, "msg": "video not found", "data": null}`))
	})

	_, err := client.Fetch(context.Background(), "https://www.tiktok.com/@chef/video/0")

	var tierErr *TierError
	if !errors.As(err, &tierErr) {
		t.Fatalf("expected TierError, got %v", err)
	}
	if tierErr.Reason != domain.FailureNotFound {
		t.Errorf("expected not_found, got %s", tierErr.Reason)
	}
}

func TestAggregatorClient_CachesLookups(t *testing.T) {
	hits := 0
	client := newTestAggregator(t, func(w http.ResponseWriter, _ *http.Request) {
		hits++
		w.Write([]byte(`{"code": 0, "msg": "success", "data": {"id": "1", "title": "cached"}}`))
	})

	url := "https://www.tiktok.com/@a/video/1"
	for i := 0; i < 3; i++ {
		if _, err := client.Fetch(context.Background(), url); err != nil {
			t.Fatalf("fetch %d: %v", i, err)
		}
	}

	if hits != 1 {
		t.Errorf("expected 1 upstream hit, got %d", hits)
	}
}

func TestScrapeTier_OpenGraph(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><head>
			<title>fallback title</title>
			<meta property="og:title" content="reel title">
			<meta property="og:image" content="https://cdn.example.com/reel.jpg">
			<meta property="og:video" content="https://cdn.example.com/reel.mp4">
			<meta property="og:video:duration" content="31">
		</head><body></body></html>`))
	}))
	defer server.Close()

	tier := NewScrapeTier("test-agent", 5*time.Second, server.Client())
	meta, err := tier.Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if meta.Title != "reel title" {
		t.Errorf("expected og:title to win, got %q", meta.Title)
	}
	if meta.ThumbnailURL != "https://cdn.example.com/reel.jpg" {
		t.Errorf("unexpected thumbnail %q", meta.ThumbnailURL)
	}
	if meta.MediaURL != "https://cdn.example.com/reel.mp4" {
		t.Errorf("unexpected media URL %q", meta.MediaURL)
	}
	if meta.DurationSeconds != 31 {
		t.Errorf("unexpected duration %d", meta.DurationSeconds)
	}
}

func TestScrapeTier_JSONLDFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><head>
			<script type="application/ld+json">
			{"@type": "VideoObject", "name": "ld title",
			 "thumbnailUrl": "https://cdn.example.com/ld.jpg",
			 "contentUrl": "https://cdn.example.com/ld.mp4",
			 "duration": "PT1M30S",
			 "author": {"name": "LD Author"}}
			</script>
		</head><body></body></html>`))
	}))
	defer server.Close()

	tier := NewScrapeTier("test-agent", 5*time.Second, server.Client())
	meta, err := tier.Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if meta.Title != "ld title" {
		t.Errorf("unexpected title %q", meta.Title)
	}
	if meta.AuthorName != "LD Author" {
		t.Errorf("unexpected author %q", meta.AuthorName)
	}
	if meta.DurationSeconds != 90 {
		t.Errorf("expected 90s duration, got %d", meta.DurationSeconds)
	}
}

func TestScrapeTier_BarePage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`<html><head></head><body>nothing here</body></html>`))
	}))
	defer server.Close()

	tier := NewScrapeTier("test-agent", 5*time.Second, server.Client())
	_, err := tier.Fetch(context.Background(), server.URL)

	var tierErr *TierError
	if !errors.As(err, &tierErr) {
		t.Fatalf("expected TierError, got %v", err)
	}
	if tierErr.Reason != domain.FailureParseError {
		t.Errorf("expected parse_error, got %s", tierErr.Reason)
	}
}

func TestParseISODuration(t *testing.T) {
	tests := []struct {
		raw  string
		want int
		ok   bool
	}{
		{"PT30S", 30, true},
		{"PT1M30S", 90, true},
		{"PT1H2M3S", 3723, true},
		{"PT2M", 120, true},
		{"", 0, false},
		{"garbage", 0, false},
	}

	for _, tt := range tests {
		got, ok := parseISODuration(tt.raw)
		if ok != tt.ok || got != tt.want {
			t.Errorf("parseISODuration(%q) = %d, %v; want %d, %v", tt.raw, got, ok, tt.want, tt.ok)
		}
	}
}

func TestExtractTweetID(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://twitter.com/user/status/1234567890", "1234567890"},
		{"https://x.com/user/status/987654321?s=20", "987654321"},
		{"https://x.com/user", ""},
		{"https://example.com/status/123", ""},
	}

	for _, tt := range tests {
		if got := ExtractTweetID(tt.url); got != tt.want {
			t.Errorf("ExtractTweetID(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}
