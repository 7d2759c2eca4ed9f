package extract

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/candidstudio/moodgrab/internal/domain"
)

// Registry holds one extractor chain per platform and dispatches by
// classification. Chains are ordered cheapest-first; the extractor walks
// them until a tier succeeds.
//
// Each platform also gets a media chain holding only the tiers that can
// yield a direct media or caption URL. The cheap tiers (oEmbed) never
// do, so an item extracted through them needs a second pass before its
// audio can be transcribed.
type Registry struct {
	extractors map[domain.Platform]*Extractor
	media      map[domain.Platform]*Extractor
	logger     *slog.Logger
}

// RegistryConfig carries the knobs the tiers need.
type RegistryConfig struct {
	UserAgent         string
	OEmbedTimeout     time.Duration
	AggregatorTimeout time.Duration
	ScrapeTimeout     time.Duration
}

// NewRegistry builds the per-platform chains.
func NewRegistry(cfg RegistryConfig, aggregator *AggregatorClient, client *http.Client, logger *slog.Logger) *Registry {
	if client == nil {
		client = &http.Client{}
	}

	tiktokOEmbed := NewOEmbedTier(TikTokOEmbedEndpoint, cfg.UserAgent, cfg.OEmbedTimeout, client)
	youtubeOEmbed := NewOEmbedTier(YouTubeOEmbedEndpoint, cfg.UserAgent, cfg.OEmbedTimeout, client)
	syndication := NewSyndicationTier(cfg.UserAgent, cfg.OEmbedTimeout, client)
	scrape := NewScrapeTier(cfg.UserAgent, cfg.ScrapeTimeout, client)

	extractors := map[domain.Platform]*Extractor{
		domain.PlatformTikTok:    NewExtractor(domain.PlatformTikTok, []Tier{tiktokOEmbed, aggregator, scrape}, logger),
		domain.PlatformYouTube:   NewExtractor(domain.PlatformYouTube, []Tier{youtubeOEmbed, scrape}, logger),
		domain.PlatformInstagram: NewExtractor(domain.PlatformInstagram, []Tier{scrape}, logger),
		domain.PlatformFacebook:  NewExtractor(domain.PlatformFacebook, []Tier{scrape}, logger),
		domain.PlatformTwitter:   NewExtractor(domain.PlatformTwitter, []Tier{syndication, scrape}, logger),
		domain.PlatformWebsite:   NewExtractor(domain.PlatformWebsite, []Tier{scrape}, logger),
		domain.PlatformImage:     NewExtractor(domain.PlatformImage, []Tier{&imageTier{}}, logger),
	}

	media := map[domain.Platform]*Extractor{
		domain.PlatformTikTok:    NewExtractor(domain.PlatformTikTok, []Tier{aggregator, scrape}, logger),
		domain.PlatformYouTube:   NewExtractor(domain.PlatformYouTube, []Tier{scrape}, logger),
		domain.PlatformInstagram: NewExtractor(domain.PlatformInstagram, []Tier{scrape}, logger),
		domain.PlatformFacebook:  NewExtractor(domain.PlatformFacebook, []Tier{scrape}, logger),
		domain.PlatformTwitter:   NewExtractor(domain.PlatformTwitter, []Tier{syndication, scrape}, logger),
	}

	return &Registry{extractors: extractors, media: media, logger: logger}
}

// Extract dispatches to the platform's chain.
func (r *Registry) Extract(ctx context.Context, platform domain.Platform, rawURL string) *domain.ExtractionResult {
	ex, ok := r.extractors[platform]
	if !ok {
		return &domain.ExtractionResult{
			Failures: []domain.TierFailure{{
				Tier:   "registry",
				Reason: domain.FailureUnsupported,
				Detail: "no extractor chain for platform " + string(platform),
			}},
		}
	}
	return decorateCaptions(platform, rawURL, ex.Extract(ctx, rawURL))
}

// ResolveMedia runs only the media-capable tiers for the platform,
// skipping the cheap ones that never supply a direct media or caption
// URL. Used when a transcript is requested for an item whose first-pass
// extraction won on such a tier.
func (r *Registry) ResolveMedia(ctx context.Context, platform domain.Platform, rawURL string) *domain.ExtractionResult {
	ex, ok := r.media[platform]
	if !ok {
		return &domain.ExtractionResult{
			Failures: []domain.TierFailure{{
				Tier:   "registry",
				Reason: domain.FailureUnsupported,
				Detail: "no media chain for platform " + string(platform),
			}},
		}
	}
	return decorateCaptions(platform, rawURL, ex.Extract(ctx, rawURL))
}

// decorateCaptions fills in a platform-derivable caption URL when no
// tier supplied one. Only YouTube exposes captions at a URL computable
// from the video ID alone.
func decorateCaptions(platform domain.Platform, rawURL string, result *domain.ExtractionResult) *domain.ExtractionResult {
	if result.OK() && platform == domain.PlatformYouTube && result.Metadata.CaptionURL == "" {
		result.Metadata.CaptionURL = youtubeCaptionURL(rawURL)
	}
	return result
}

// youtubeCaptionURL derives the timedtext caption endpoint for a video
// URL. Returns "" when no video ID is recognizable.
func youtubeCaptionURL(rawURL string) string {
	id := youtubeVideoID(rawURL)
	if id == "" {
		return ""
	}
	return "https://www.youtube.com/api/timedtext?v=" + url.QueryEscape(id) + "&lang=en&fmt=json3"
}

// youtubeVideoID pulls the video ID out of watch, shorts and youtu.be
// URL shapes.
func youtubeVideoID(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")

	if host == "youtu.be" {
		return strings.Trim(u.Path, "/")
	}
	if host != "youtube.com" && !strings.HasSuffix(host, ".youtube.com") {
		return ""
	}
	if v := u.Query().Get("v"); v != "" {
		return v
	}
	for _, prefix := range []string{"/shorts/", "/embed/", "/live/"} {
		if rest, ok := strings.CutPrefix(u.Path, prefix); ok {
			if i := strings.IndexByte(rest, '/'); i >= 0 {
				rest = rest[:i]
			}
			return rest
		}
	}
	return ""
}

// imageTier handles direct image URLs. There is nothing to fetch: the
// URL itself is the thumbnail, and the filename stands in as a title.
type imageTier struct{}

func (t *imageTier) Name() string           { return "image" }
func (t *imageTier) Timeout() time.Duration { return time.Second }

func (t *imageTier) Fetch(_ context.Context, rawURL string) (*domain.Metadata, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, NewTierError(domain.FailureParseError, "parse image URL: "+err.Error())
	}
	title := path.Base(u.Path)
	if title == "/" || title == "." {
		title = u.Host
	}
	return &domain.Metadata{
		Title:        strings.TrimSuffix(title, path.Ext(title)),
		ThumbnailURL: rawURL,
		MediaURL:     rawURL,
	}, nil
}
