package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/candidstudio/moodgrab/internal/config"
	"github.com/candidstudio/moodgrab/internal/domain"
	"github.com/candidstudio/moodgrab/internal/extract"
)

func newProfileFixture(t *testing.T, upstream http.HandlerFunc) *ProfileHandler {
	t.Helper()

	srv := httptest.NewServer(upstream)
	t.Cleanup(srv.Close)

	cfg := config.ExtractConfig{
		AggregatorBaseURL:     srv.URL,
		AggregatorTimeout:     5 * time.Second,
		AggregatorConcurrency: 2,
		CacheEntries:          16,
		CacheTTL:              time.Minute,
		UserAgent:             "test-agent",
	}
	aggregator := extract.NewAggregatorClient(cfg, srv.Client(), time.Now)
	profiles := extract.NewProfileExtractor(aggregator, 10, testLogger())

	return NewProfileHandler(profiles, testLogger())
}

func postProfile(t *testing.T, h *ProfileHandler, body ProfileRequest) *httptest.ResponseRecorder {
	t.Helper()
	raw, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/profile", bytes.NewReader(raw))
	w := httptest.NewRecorder()
	h.Analyze(w, req)
	return w
}

func TestProfileHandler_Analyze(t *testing.T) {
	h := newProfileFixture(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/api/user/info"):
			w.Write([]byte(`{"code":0,"msg":"ok","data":{
				"user":{"unique_id":"chef","nickname":"Chef","signature":"I cook"},
				"stats":{"follower_count":12000,"heart_count":90000,"video_count":42}}}`))
		case strings.HasPrefix(r.URL.Path, "/api/user/posts"):
			w.Write([]byte(`{"code":0,"msg":"ok","data":{"videos":[
				{"id":"1","title":"how to sear steak","duration":45,"play_count":1000,"digg_count":100,
				 "author":{"unique_id":"chef"}}]}}`))
		default:
			http.NotFound(w, r)
		}
	})

	w := postProfile(t, h, ProfileRequest{URL: "https://www.tiktok.com/@chef"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}

	var resp domain.ProfileExtraction
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Profile.Handle != "chef" {
		t.Errorf("Handle = %q, want chef", resp.Profile.Handle)
	}
	if len(resp.Posts) != 1 || resp.Posts[0].Format != "tutorial" {
		t.Errorf("Posts = %+v, want one tutorial", resp.Posts)
	}
}

func TestProfileHandler_UnsupportedPlatform(t *testing.T) {
	h := newProfileFixture(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("upstream should not be called for unsupported platforms")
	})

	w := postProfile(t, h, ProfileRequest{URL: "https://www.youtube.com/@chef"})
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", w.Code)
	}
}

func TestProfileHandler_NotFound(t *testing.T) {
	h := newProfileFixture(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":-1,"msg":"user not found"}`))
	})

	w := postProfile(t, h, ProfileRequest{Handle: "@ghost"})
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestProfileHandler_EmptyRequest(t *testing.T) {
	h := newProfileFixture(t, func(w http.ResponseWriter, r *http.Request) {})

	w := postProfile(t, h, ProfileRequest{})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}
