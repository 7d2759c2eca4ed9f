package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/candidstudio/moodgrab/internal/domain"
)

// OEmbedTier fetches a platform's official oEmbed endpoint: fast and
// low rate-limit risk, but supplies only title/author/thumbnail, never
// engagement stats or a direct media URL.
type OEmbedTier struct {
	endpoint   string
	timeout    time.Duration
	userAgent  string
	httpClient *http.Client
}

// Well-known oEmbed endpoints. The URL under inspection is appended as
// the url query parameter.
const (
	TikTokOEmbedEndpoint  = "https://www.tiktok.com/oembed"
	YouTubeOEmbedEndpoint = "https://www.youtube.com/oembed"
)

// NewOEmbedTier creates an oEmbed tier against the given endpoint.
func NewOEmbedTier(endpoint, userAgent string, timeout time.Duration, client *http.Client) *OEmbedTier {
	if client == nil {
		client = &http.Client{}
	}
	return &OEmbedTier{
		endpoint:   endpoint,
		timeout:    timeout,
		userAgent:  userAgent,
		httpClient: client,
	}
}

// Name identifies the tier in diagnostics.
func (t *OEmbedTier) Name() string { return "oembed" }

// Timeout is the per-attempt deadline.
func (t *OEmbedTier) Timeout() time.Duration { return t.timeout }

// oembedResponse is the subset of the oEmbed payload we keep.
type oembedResponse struct {
	Title        string `json:"title"`
	AuthorName   string `json:"author_name"`
	AuthorURL    string `json:"author_url"`
	ThumbnailURL string `json:"thumbnail_url"`
}

// Fetch resolves title/author/thumbnail through the oEmbed endpoint.
func (t *OEmbedTier) Fetch(ctx context.Context, rawURL string) (*domain.Metadata, error) {
	endpoint := fmt.Sprintf("%s?format=json&url=%s", t.endpoint, url.QueryEscape(rawURL))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", t.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound, http.StatusBadRequest:
		// oEmbed endpoints answer 400/404 for deleted or private posts.
		return nil, NewTierError(domain.FailureNotFound, "no oEmbed data for URL")
	case http.StatusTooManyRequests:
		return nil, NewTierError(domain.FailureRateLimited, "oEmbed endpoint rate limited")
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, NewTierError(domain.FailureParseError,
			fmt.Sprintf("oEmbed status %d: %s", resp.StatusCode, string(body)))
	}

	var payload oembedResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, NewTierError(domain.FailureParseError, "decode oEmbed response: "+err.Error())
	}

	if payload.Title == "" && payload.ThumbnailURL == "" {
		return nil, NewTierError(domain.FailureNotFound, "oEmbed response carried no usable fields")
	}

	return &domain.Metadata{
		Title:        payload.Title,
		ThumbnailURL: payload.ThumbnailURL,
		AuthorName:   payload.AuthorName,
		AuthorHandle: handleFromAuthorURL(payload.AuthorURL),
	}, nil
}

// handleFromAuthorURL pulls a handle out of author_url values like
// https://www.tiktok.com/@creator or https://www.youtube.com/@channel.
func handleFromAuthorURL(authorURL string) string {
	if authorURL == "" {
		return ""
	}
	u, err := url.Parse(authorURL)
	if err != nil {
		return ""
	}
	path := u.Path
	for len(path) > 0 && path[0] == '/' {
		path = path[1:]
	}
	for i := 0; i < len(path); i++ {
		if path[i] == '/' {
			path = path[:i]
			break
		}
	}
	if len(path) > 0 && path[0] == '@' {
		return path[1:]
	}
	return path
}
