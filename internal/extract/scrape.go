package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/candidstudio/moodgrab/internal/domain"
)

// ScrapeTier fetches the page HTML and pulls metadata out of Open Graph
// and twitter card tags, falling back to JSON-LD blocks and the document
// title. It is the last tier in every chain: slow, generic, and works on
// any page that renders meta tags server-side.
type ScrapeTier struct {
	timeout    time.Duration
	userAgent  string
	httpClient *http.Client
}

// NewScrapeTier creates an HTML scrape tier.
func NewScrapeTier(userAgent string, timeout time.Duration, client *http.Client) *ScrapeTier {
	if client == nil {
		client = &http.Client{}
	}
	return &ScrapeTier{
		timeout:    timeout,
		userAgent:  userAgent,
		httpClient: client,
	}
}

// Name identifies the tier in diagnostics.
func (t *ScrapeTier) Name() string { return "scrape" }

// Timeout is the per-attempt deadline.
func (t *ScrapeTier) Timeout() time.Duration { return t.timeout }

// Fetch downloads the page and extracts metadata from its markup.
func (t *ScrapeTier) Fetch(ctx context.Context, rawURL string) (*domain.Metadata, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", t.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return nil, NewTierError(domain.FailureNotFound, fmt.Sprintf("page returned %d", resp.StatusCode))
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, NewTierError(domain.FailureRateLimited, "page rate limited")
	case resp.StatusCode != http.StatusOK:
		return nil, NewTierError(domain.FailureParseError, fmt.Sprintf("page returned %d", resp.StatusCode))
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, NewTierError(domain.FailureParseError, "parse HTML: "+err.Error())
	}

	meta := &domain.Metadata{}
	t.applyMetaTags(doc, meta)
	t.applyJSONLD(doc, meta)

	if meta.Title == "" {
		meta.Title = strings.TrimSpace(doc.Find("title").First().Text())
	}

	if meta.Title == "" && meta.ThumbnailURL == "" {
		return nil, NewTierError(domain.FailureParseError, "page carried no usable metadata")
	}

	return meta, nil
}

// metaContent returns the content attribute of the first matching
// meta tag, probing both property= and name= attributes.
func metaContent(doc *goquery.Document, key string) string {
	sel := fmt.Sprintf(`meta[property=%q], meta[name=%q]`, key, key)
	content, _ := doc.Find(sel).First().Attr("content")
	return strings.TrimSpace(content)
}

func (t *ScrapeTier) applyMetaTags(doc *goquery.Document, meta *domain.Metadata) {
	if v := metaContent(doc, "og:title"); v != "" {
		meta.Title = v
	} else if v := metaContent(doc, "twitter:title"); v != "" {
		meta.Title = v
	}

	if v := metaContent(doc, "og:image"); v != "" {
		meta.ThumbnailURL = v
	} else if v := metaContent(doc, "twitter:image"); v != "" {
		meta.ThumbnailURL = v
	}

	if v := metaContent(doc, "og:video"); v != "" {
		meta.MediaURL = v
	} else if v := metaContent(doc, "og:video:url"); v != "" {
		meta.MediaURL = v
	}

	if v := metaContent(doc, "og:video:duration"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil {
			meta.DurationSeconds = secs
		}
	}

	if v := metaContent(doc, "og:site_name"); v != "" && meta.AuthorName == "" {
		meta.AuthorName = v
	}
}

// ldVideo is the subset of schema.org VideoObject we read. Duration
// arrives in ISO 8601 form ("PT1M30S").
type ldVideo struct {
	Type         string `json:"@type"`
	Name         string `json:"name"`
	ThumbnailURL any    `json:"thumbnailUrl"`
	ContentURL   string `json:"contentUrl"`
	Duration     string `json:"duration"`
	Author       struct {
		Name string `json:"name"`
	} `json:"author"`
	InteractionStatistic []struct {
		InteractionType  any   `json:"interactionType"`
		UserInteractions int64 `json:"userInteractionCount"`
	} `json:"interactionStatistic"`
}

func (t *ScrapeTier) applyJSONLD(doc *goquery.Document, meta *domain.Metadata) {
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		var block ldVideo
		if err := json.Unmarshal([]byte(s.Text()), &block); err != nil {
			return true
		}
		if block.Type != "VideoObject" {
			return true
		}

		if meta.Title == "" {
			meta.Title = block.Name
		}
		if meta.AuthorName == "" {
			meta.AuthorName = block.Author.Name
		}
		if meta.MediaURL == "" {
			meta.MediaURL = block.ContentURL
		}
		if meta.ThumbnailURL == "" {
			switch v := block.ThumbnailURL.(type) {
			case string:
				meta.ThumbnailURL = v
			case []any:
				if len(v) > 0 {
					if s, ok := v[0].(string); ok {
						meta.ThumbnailURL = s
					}
				}
			}
		}
		if meta.DurationSeconds == 0 && block.Duration != "" {
			if secs, ok := parseISODuration(block.Duration); ok {
				meta.DurationSeconds = secs
			}
		}
		return false
	})
}

// parseISODuration converts ISO 8601 durations like PT1H2M3S to seconds.
func parseISODuration(raw string) (int, bool) {
	raw = strings.TrimPrefix(raw, "PT")
	if raw == "" {
		return 0, false
	}
	total := 0
	num := strings.Builder{}
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			num.WriteRune(r)
			continue
		}
		n, err := strconv.Atoi(num.String())
		if err != nil {
			return 0, false
		}
		num.Reset()
		switch r {
		case 'H':
			total += n * 3600
		case 'M':
			total += n * 60
		case 'S':
			total += n
		default:
			return 0, false
		}
	}
	return total, true
}
