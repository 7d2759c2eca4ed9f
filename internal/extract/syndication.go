package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"sort"
	"time"

	"github.com/candidstudio/moodgrab/internal/domain"
)

// SyndicationTier fetches tweet data from Twitter's public syndication
// CDN. It plays the authoritative-endpoint role for twitter/x URLs and
// is richer than a plain oEmbed: it carries engagement counts and video
// variant URLs.
type SyndicationTier struct {
	baseURL    string
	timeout    time.Duration
	userAgent  string
	httpClient *http.Client
}

const syndicationBaseURL = "https://cdn.syndication.twimg.com"

var tweetIDPattern = regexp.MustCompile(`(?:twitter\.com|x\.com)/\w+/status/(\d+)`)

// NewSyndicationTier creates a syndication tier.
func NewSyndicationTier(userAgent string, timeout time.Duration, client *http.Client) *SyndicationTier {
	if client == nil {
		client = &http.Client{}
	}
	return &SyndicationTier{
		baseURL:    syndicationBaseURL,
		timeout:    timeout,
		userAgent:  userAgent,
		httpClient: client,
	}
}

// Name identifies the tier in diagnostics.
func (t *SyndicationTier) Name() string { return "syndication" }

// Timeout is the per-attempt deadline.
func (t *SyndicationTier) Timeout() time.Duration { return t.timeout }

// syndicationResponse is the subset of the syndication payload we keep.
type syndicationResponse struct {
	Text string `json:"text"`
	User struct {
		Name       string `json:"name"`
		ScreenName string `json:"screen_name"`
	} `json:"user"`
	FavoriteCount int64 `json:"favorite_count"`
	RetweetCount  int64 `json:"retweet_count"`
	ReplyCount    int64 `json:"reply_count"`
	Video         struct {
		Variants []struct {
			Type string `json:"type"`
			Src  string `json:"src"`
		} `json:"variants"`
		Poster     string `json:"poster"`
		DurationMs int    `json:"durationMs"`
	} `json:"video"`
	Photos []struct {
		URL string `json:"url"`
	} `json:"photos"`
	MediaDetails []struct {
		MediaURLHTTPS string `json:"media_url_https"`
		Type          string `json:"type"`
		VideoInfo     struct {
			DurationMillis int `json:"duration_millis"`
			Variants       []struct {
				Bitrate     int    `json:"bitrate"`
				ContentType string `json:"content_type"`
				URL         string `json:"url"`
			} `json:"variants"`
		} `json:"video_info"`
	} `json:"mediaDetails"`
}

// ExtractTweetID extracts the tweet ID from twitter.com/x.com URLs.
func ExtractTweetID(rawURL string) string {
	matches := tweetIDPattern.FindStringSubmatch(rawURL)
	if len(matches) > 1 {
		return matches[1]
	}
	return ""
}

// Fetch resolves tweet metadata through the syndication CDN.
func (t *SyndicationTier) Fetch(ctx context.Context, rawURL string) (*domain.Metadata, error) {
	tweetID := ExtractTweetID(rawURL)
	if tweetID == "" {
		return nil, NewTierError(domain.FailureUnsupported, "URL carries no tweet ID")
	}

	endpoint := fmt.Sprintf("%s/tweet-result?id=%s&token=0", t.baseURL, tweetID)

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
	case http.StatusNotFound:
		return nil, NewTierError(domain.FailureNotFound, "tweet not found or protected")
	case http.StatusTooManyRequests:
		return nil, NewTierError(domain.FailureRateLimited, "syndication CDN rate limited")
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, NewTierError(domain.FailureParseError,
			fmt.Sprintf("syndication status %d: %s", resp.StatusCode, string(body)))
	}

	var payload syndicationResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, NewTierError(domain.FailureParseError, "decode syndication response: "+err.Error())
	}

	meta := &domain.Metadata{
		Title:        payload.Text,
		AuthorName:   payload.User.Name,
		AuthorHandle: payload.User.ScreenName,
		Stats: &domain.Stats{
			Likes:    payload.FavoriteCount,
			Comments: payload.ReplyCount,
			Shares:   payload.RetweetCount,
		},
	}

	t.applyMedia(meta, &payload)

	if meta.Title == "" && meta.ThumbnailURL == "" {
		return nil, NewTierError(domain.FailureNotFound, "syndication response carried no usable fields")
	}

	return meta, nil
}

// applyMedia picks the highest-bitrate mp4 variant across the payload's
// media shapes and fills thumbnail/duration from the same source.
func (t *SyndicationTier) applyMedia(meta *domain.Metadata, payload *syndicationResponse) {
	type candidate struct {
		url      string
		bitrate  int
		poster   string
		duration int
	}
	var candidates []candidate

	if payload.Video.Poster != "" {
		for _, v := range payload.Video.Variants {
			if v.Type == "video/mp4" {
				candidates = append(candidates, candidate{
					url:      v.Src,
					poster:   payload.Video.Poster,
					duration: payload.Video.DurationMs / 1000,
				})
			}
		}
	}

	for _, md := range payload.MediaDetails {
		if md.Type != "video" && md.Type != "animated_gif" {
			continue
		}
		for _, v := range md.VideoInfo.Variants {
			if v.ContentType == "video/mp4" {
				candidates = append(candidates, candidate{
					url:      v.URL,
					bitrate:  v.Bitrate,
					poster:   md.MediaURLHTTPS,
					duration: md.VideoInfo.DurationMillis / 1000,
				})
			}
		}
	}

	if len(candidates) > 0 {
		sort.Slice(candidates, func(i, j int) bool {
			return candidates[i].bitrate > candidates[j].bitrate
		})
		best := candidates[0]
		meta.MediaURL = best.url
		meta.ThumbnailURL = best.poster
		meta.DurationSeconds = best.duration
		return
	}

	if len(payload.Photos) > 0 {
		meta.ThumbnailURL = payload.Photos[0].URL
	}
}
