package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/candidstudio/moodgrab/internal/cache"
	"github.com/candidstudio/moodgrab/internal/config"
	"github.com/candidstudio/moodgrab/internal/domain"
	"github.com/candidstudio/moodgrab/internal/ratelimit"
)

// AggregatorClient talks to the third-party TikTok proxy service. It is
// the only tier that supplies engagement stats, a direct media URL and
// audio metadata, but it is rate limited upstream and answers a
// documented "not found" sentinel code distinct from HTTP failure.
//
// Lookups are cached for a bounded TTL and in-flight requests are capped
// by a concurrency limiter shared across the process.
type AggregatorClient struct {
	baseURL    string
	apiKey     string
	userAgent  string
	timeout    time.Duration
	httpClient *http.Client
	limiter    *ratelimit.Limiter
	cache      *cache.Cache[*domain.Metadata]
}

// aggregator sentinel codes.
const (
	aggregatorCodeOK       = 0
	aggregatorCodeNotFound = -1
)

// NewAggregatorClient creates an aggregator client from config.
func NewAggregatorClient(cfg config.ExtractConfig, client *http.Client, clock cache.Clock) *AggregatorClient {
	if client == nil {
		client = &http.Client{}
	}
	return &AggregatorClient{
		baseURL:    cfg.AggregatorBaseURL,
		apiKey:     cfg.AggregatorAPIKey,
		userAgent:  cfg.UserAgent,
		timeout:    cfg.AggregatorTimeout,
		httpClient: client,
		limiter:    ratelimit.New(cfg.AggregatorConcurrency),
		cache:      cache.New[*domain.Metadata](cfg.CacheEntries, cfg.CacheTTL, clock),
	}
}

// Name identifies the tier in diagnostics.
func (c *AggregatorClient) Name() string { return "aggregator" }

// Timeout is the per-attempt deadline.
func (c *AggregatorClient) Timeout() time.Duration { return c.timeout }

// aggregatorEnvelope wraps every aggregator response.
type aggregatorEnvelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

// aggregatorVideo is the single-video payload shape.
type aggregatorVideo struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Cover        string `json:"cover"`
	Play         string `json:"play"`
	Duration     int    `json:"duration"`
	PlayCount    int64  `json:"play_count"`
	DiggCount    int64  `json:"digg_count"`
	CommentCount int64  `json:"comment_count"`
	ShareCount   int64  `json:"share_count"`
	Author       struct {
		UniqueID string `json:"unique_id"`
		Nickname string `json:"nickname"`
		Avatar   string `json:"avatar"`
	} `json:"author"`
	MusicInfo struct {
		Title  string `json:"title"`
		Author string `json:"author"`
	} `json:"music_info"`
}

// Fetch resolves full metadata for a single video URL.
func (c *AggregatorClient) Fetch(ctx context.Context, rawURL string) (*domain.Metadata, error) {
	if meta, ok := c.cache.Get(rawURL); ok {
		return meta, nil
	}

	var meta *domain.Metadata
	err := c.limiter.Do(ctx, func() error {
		var innerErr error
		meta, innerErr = c.fetchVideo(ctx, rawURL)
		return innerErr
	})
	if err != nil {
		return nil, err
	}

	c.cache.Set(rawURL, meta)
	return meta, nil
}

func (c *AggregatorClient) fetchVideo(ctx context.Context, rawURL string) (*domain.Metadata, error) {
	endpoint := fmt.Sprintf("%s/api/?url=%s&hd=1", c.baseURL, url.QueryEscape(rawURL))

	data, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	var video aggregatorVideo
	if err := json.Unmarshal(data, &video); err != nil {
		return nil, NewTierError(domain.FailureParseError, "decode video payload: "+err.Error())
	}

	musicLabel := video.MusicInfo.Title
	if musicLabel != "" && video.MusicInfo.Author != "" {
		musicLabel = musicLabel + " - " + video.MusicInfo.Author
	}

	return &domain.Metadata{
		Title:           video.Title,
		ThumbnailURL:    video.Cover,
		AuthorName:      video.Author.Nickname,
		AuthorHandle:    video.Author.UniqueID,
		DurationSeconds: video.Duration,
		MusicLabel:      musicLabel,
		MediaURL:        video.Play,
		Stats: &domain.Stats{
			Views:    video.PlayCount,
			Likes:    video.DiggCount,
			Comments: video.CommentCount,
			Shares:   video.ShareCount,
		},
	}, nil
}

// aggregatorUser is the profile payload shape.
type aggregatorUser struct {
	User struct {
		UniqueID  string `json:"unique_id"`
		Nickname  string `json:"nickname"`
		AvatarURL string `json:"avatar"`
		Signature string `json:"signature"`
	} `json:"user"`
	Stats struct {
		FollowerCount int64 `json:"follower_count"`
		HeartCount    int64 `json:"heart_count"`
		VideoCount    int64 `json:"video_count"`
	} `json:"stats"`
}

// FetchUser resolves a creator profile by handle.
func (c *AggregatorClient) FetchUser(ctx context.Context, handle string) (*domain.CreatorProfile, error) {
	endpoint := fmt.Sprintf("%s/api/user/info?unique_id=%s", c.baseURL, url.QueryEscape(handle))

	var profile *domain.CreatorProfile
	err := c.limiter.Do(ctx, func() error {
		data, err := c.get(ctx, endpoint)
		if err != nil {
			return err
		}

		var user aggregatorUser
		if err := json.Unmarshal(data, &user); err != nil {
			return NewTierError(domain.FailureParseError, "decode user payload: "+err.Error())
		}

		profile = &domain.CreatorProfile{
			Name:          user.User.Nickname,
			Handle:        user.User.UniqueID,
			AvatarURL:     user.User.AvatarURL,
			Bio:           user.User.Signature,
			FollowerCount: user.Stats.FollowerCount,
			LikeCount:     user.Stats.HeartCount,
			VideoCount:    user.Stats.VideoCount,
		}
		return nil
	})
	return profile, err
}

// aggregatorPostList is the listing payload shape.
type aggregatorPostList struct {
	Videos []aggregatorVideo `json:"videos"`
}

// FetchUserPosts lists a creator's most recent posts, newest first.
func (c *AggregatorClient) FetchUserPosts(ctx context.Context, handle string, count int) ([]domain.PostSummary, error) {
	if count <= 0 {
		count = 30
	}
	endpoint := fmt.Sprintf("%s/api/user/posts?unique_id=%s&count=%d",
		c.baseURL, url.QueryEscape(handle), count)

	var posts []domain.PostSummary
	err := c.limiter.Do(ctx, func() error {
		data, err := c.get(ctx, endpoint)
		if err != nil {
			return err
		}

		var list aggregatorPostList
		if err := json.Unmarshal(data, &list); err != nil {
			return NewTierError(domain.FailureParseError, "decode post list: "+err.Error())
		}

		posts = make([]domain.PostSummary, 0, len(list.Videos))
		for _, v := range list.Videos {
			posts = append(posts, domain.PostSummary{
				URL:             fmt.Sprintf("https://www.tiktok.com/@%s/video/%s", v.Author.UniqueID, v.ID),
				Title:           v.Title,
				ThumbnailURL:    v.Cover,
				DurationSeconds: v.Duration,
				Stats: domain.Stats{
					Views:    v.PlayCount,
					Likes:    v.DiggCount,
					Comments: v.CommentCount,
					Shares:   v.ShareCount,
				},
			})
		}
		return nil
	})
	return posts, err
}

// get performs one aggregator request and unwraps the response envelope.
func (c *AggregatorClient) get(ctx context.Context, endpoint string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, NewTierError(domain.FailureRateLimited, "aggregator rate limited")
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, NewTierError(domain.FailureParseError,
			fmt.Sprintf("aggregator status %d: %s", resp.StatusCode, string(body)))
	}

	var envelope aggregatorEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, NewTierError(domain.FailureParseError, "decode envelope: "+err.Error())
	}

	switch envelope.Code {
	case aggregatorCodeOK:
		return envelope.Data, nil
	case aggregatorCodeNotFound:
		// Documented sentinel for missing content: the request itself
		// succeeded, so this is permanent, not transient.
		return nil, NewTierError(domain.FailureNotFound, envelope.Msg)
	default:
		return nil, NewTierError(domain.FailureParseError,
			fmt.Sprintf("aggregator code %d: %s", envelope.Code, envelope.Msg))
	}
}
