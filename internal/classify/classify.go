// Package classify maps raw URLs to a platform tag and item type.
// It is pure: no network access, no state.
package classify

import (
	"net/url"
	"strings"

	"github.com/candidstudio/moodgrab/internal/domain"
)

// Classification is the result of classifying a URL.
type Classification struct {
	Platform domain.Platform
	ItemType domain.ItemType
}

var imageExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".webp", ".avif"}

// Classify maps a raw URL to a platform and item type. It matches
// case-insensitively against known host/path patterns. Any parseable
// http(s) URL that matches no social pattern classifies as a website; a
// direct image link classifies as an image. Non-http(s) schemes are
// rejected alongside malformed input, since nothing downstream can
// fetch them. ok=false is a validation failure, not a pipeline error.
func Classify(rawURL string) (Classification, bool) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return Classification{}, false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return Classification{}, false
	}

	host := strings.ToLower(u.Hostname())
	host = strings.TrimPrefix(host, "www.")
	path := strings.ToLower(u.Path)

	switch {
	case host == "tiktok.com" || strings.HasSuffix(host, ".tiktok.com"):
		return Classification{domain.PlatformTikTok, domain.ItemTypeVideo}, true

	case host == "youtube.com" || strings.HasSuffix(host, ".youtube.com") || host == "youtu.be":
		return Classification{domain.PlatformYouTube, domain.ItemTypeVideo}, true

	case host == "instagram.com" || strings.HasSuffix(host, ".instagram.com"):
		return Classification{domain.PlatformInstagram, domain.ItemTypeVideo}, true

	case host == "fb.watch":
		return Classification{domain.PlatformFacebook, domain.ItemTypeVideo}, true

	case host == "facebook.com" || strings.HasSuffix(host, ".facebook.com"):
		return Classification{domain.PlatformFacebook, domain.ItemTypeVideo}, true

	case host == "twitter.com" || host == "x.com" || strings.HasSuffix(host, ".twitter.com"):
		return Classification{domain.PlatformTwitter, domain.ItemTypeVideo}, true
	}

	for _, ext := range imageExtensions {
		if strings.HasSuffix(path, ext) {
			return Classification{domain.PlatformImage, domain.ItemTypeImage}, true
		}
	}

	return Classification{domain.PlatformWebsite, domain.ItemTypeWebsite}, true
}
