package extract

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"

	"github.com/candidstudio/moodgrab/internal/domain"
)

// ProfileExtractor lists a creator's recent posts and groups them by
// inferred content format so callers can see which formats carry the
// account. Only TikTok profiles are supported: the aggregator is the
// sole listing source.
type ProfileExtractor struct {
	aggregator *AggregatorClient
	postCount  int
	logger     *slog.Logger
}

var profileHandlePattern = regexp.MustCompile(`tiktok\.com/@([\w.\-]+)`)

// NewProfileExtractor creates a profile extractor. postCount caps how
// many recent posts are listed per profile.
func NewProfileExtractor(aggregator *AggregatorClient, postCount int, logger *slog.Logger) *ProfileExtractor {
	if postCount <= 0 {
		postCount = 30
	}
	return &ProfileExtractor{aggregator: aggregator, postCount: postCount, logger: logger}
}

// HandleFromURL pulls the creator handle out of a profile URL. A bare
// handle (with or without a leading @) passes through unchanged.
func HandleFromURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", domain.ErrInvalidURL
	}
	if !strings.Contains(raw, "/") {
		return strings.TrimPrefix(raw, "@"), nil
	}
	if m := profileHandlePattern.FindStringSubmatch(raw); len(m) > 1 {
		return m[1], nil
	}
	if u, err := url.Parse(raw); err == nil && u.Host != "" {
		return "", fmt.Errorf("%w: %s", domain.ErrProfileUnsupported, u.Host)
	}
	return "", domain.ErrInvalidURL
}

// Extract fetches the profile and its recent posts, infers a format per
// post, and aggregates per-format averages.
func (p *ProfileExtractor) Extract(ctx context.Context, profileURL string) (*domain.ProfileExtraction, error) {
	handle, err := HandleFromURL(profileURL)
	if err != nil {
		return nil, err
	}

	profile, err := p.aggregator.FetchUser(ctx, handle)
	if err != nil {
		return nil, fmt.Errorf("fetch profile %s: %w", handle, err)
	}

	posts, err := p.aggregator.FetchUserPosts(ctx, handle, p.postCount)
	if err != nil {
		return nil, fmt.Errorf("fetch posts for %s: %w", handle, err)
	}

	for i := range posts {
		posts[i].Format = inferFormat(posts[i])
	}

	p.logger.Info("profile extracted",
		"handle", handle,
		"posts", len(posts),
		"followers", profile.FollowerCount)

	return &domain.ProfileExtraction{
		Profile:      *profile,
		Posts:        posts,
		FormatGroups: groupByFormat(posts),
	}, nil
}

// formatRules maps title keywords to a format label. First match wins,
// so more specific rules sit earlier.
var formatRules = []struct {
	format   string
	keywords []string
}{
	{"tutorial", []string{"how to", "howto", "tutorial", "step by step", "guide", "learn"}},
	{"storytime", []string{"storytime", "story time", "what happened", "pov"}},
	{"review", []string{"review", "unboxing", "tested", "honest opinion", "worth it"}},
	{"vlog", []string{"vlog", "day in the life", "come with me", "grwm", "get ready with me"}},
	{"comedy", []string{"funny", "comedy", "skit", "prank", "meme"}},
	{"listicle", []string{"top 5", "top 10", "3 things", "5 things", "reasons why", "tips"}},
	{"talking-head", []string{"unpopular opinion", "hot take", "let's talk", "psa", "rant"}},
}

// inferFormat guesses a post's content format from its title. Short
// clips with no keyword hit fall into "short-form"; everything else is
// "other".
func inferFormat(post domain.PostSummary) string {
	title := strings.ToLower(post.Title)
	for _, rule := range formatRules {
		for _, kw := range rule.keywords {
			if strings.Contains(title, kw) {
				return rule.format
			}
		}
	}
	if post.DurationSeconds > 0 && post.DurationSeconds <= 15 {
		return "short-form"
	}
	return "other"
}

func groupByFormat(posts []domain.PostSummary) map[string]domain.FormatGroup {
	groups := make(map[string]domain.FormatGroup)
	for _, post := range posts {
		g := groups[post.Format]
		g.Posts = append(g.Posts, post)
		groups[post.Format] = g
	}
	for format, g := range groups {
		var views, engagement float64
		for _, post := range g.Posts {
			views += float64(post.Stats.Views)
			engagement += float64(post.Stats.Engagement())
		}
		n := float64(len(g.Posts))
		g.AvgViews = views / n
		g.AvgEngagement = engagement / n
		groups[format] = g
	}
	return groups
}
