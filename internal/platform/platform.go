// Package platform validates submitted links and derives the source platform.
package platform

import (
	"net/url"
	"strings"

	"appdl/internal/services"
)

// Platform identifies a supported media source.
type Platform string

const (
	YouTube       Platform = "youtube"
	YouTubeShorts Platform = "youtube-shorts"
	Instagram     Platform = "instagram"
	TikTok        Platform = "tiktok"
	Reddit        Platform = "reddit"
	Twitter       Platform = "twitter"
)

var allPlatforms = []Platform{YouTube, YouTubeShorts, Instagram, TikTok, Reddit, Twitter}

var displayNames = map[Platform]string{
	YouTube:       "YouTube",
	YouTubeShorts: "YouTube Shorts",
	Instagram:     "Instagram",
	TikTok:        "TikTok",
	Reddit:        "Reddit",
	Twitter:       "Twitter/X",
}

// Registrable domains per platform; subdomains match too.
var platformDomains = map[string]Platform{
	"youtube.com":   YouTube,
	"youtu.be":      YouTube,
	"instagram.com": Instagram,
	"instagr.am":    Instagram,
	"tiktok.com":    TikTok,
	"reddit.com":    Reddit,
	"redd.it":       Reddit,
	"twitter.com":   Twitter,
	"x.com":         Twitter,
}

// All returns every supported platform.
func All() []Platform {
	out := make([]Platform, len(allPlatforms))
	copy(out, allPlatforms)
	return out
}

// Parse resolves a platform identifier (as stored or passed in filters).
func Parse(value string) (Platform, bool) {
	candidate := Platform(strings.ToLower(strings.TrimSpace(value)))
	for _, p := range allPlatforms {
		if p == candidate {
			return p, true
		}
	}
	switch candidate {
	case "x", "twitter/x":
		return Twitter, true
	case "shorts":
		return YouTubeShorts, true
	}
	return "", false
}

// DisplayName returns the user-facing platform label.
func (p Platform) DisplayName() string {
	if name, ok := displayNames[p]; ok {
		return name
	}
	return string(p)
}

// Folder returns the library folder name used for the platform.
func (p Platform) Folder() string {
	switch p {
	case YouTubeShorts:
		return "YouTube Shorts"
	case Twitter:
		return "Twitter"
	default:
		return p.DisplayName()
	}
}

// Detect validates rawURL and derives its platform. Malformed or non-http(s)
// links fail with services.ErrInvalidURL; well-formed links on unknown hosts
// fail with services.ErrUnsupportedPlatform.
func Detect(rawURL string) (Platform, *url.URL, error) {
	parsed, err := Normalize(rawURL)
	if err != nil {
		return "", nil, err
	}
	host := CanonicalHost(parsed.Hostname())
	for domain, p := range platformDomains {
		if host != domain && !strings.HasSuffix(host, "."+domain) {
			continue
		}
		if p == YouTube && isShortsPath(parsed.Path) {
			return YouTubeShorts, parsed, nil
		}
		return p, parsed, nil
	}
	return "", nil, services.Wrap(services.ErrUnsupportedPlatform, "platform", "detect", "no supported platform for host "+host, nil)
}

// Normalize parses and sanity-checks a submitted link.
func Normalize(rawURL string) (*url.URL, error) {
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return nil, services.Wrap(services.ErrInvalidURL, "platform", "parse", "url is required", nil)
	}
	parsed, err := url.Parse(trimmed)
	if err != nil {
		return nil, services.Wrap(services.ErrInvalidURL, "platform", "parse", "malformed url", err)
	}
	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return nil, services.Wrap(services.ErrInvalidURL, "platform", "parse", "url must use http or https", nil)
	}
	if parsed.Hostname() == "" {
		return nil, services.Wrap(services.ErrInvalidURL, "platform", "parse", "url has no host", nil)
	}
	parsed.Scheme = scheme
	parsed.Host = strings.ToLower(parsed.Host)
	parsed.Fragment = ""
	return parsed, nil
}

// CanonicalHost lowercases host and drops the mobile/www prefixes so cookies
// and platform lookups share one key per site.
func CanonicalHost(host string) string {
	host = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(host)), ".")
	for _, prefix := range []string{"www.", "m.", "mobile.", "old.", "music."} {
		if strings.HasPrefix(host, prefix) {
			return strings.TrimPrefix(host, prefix)
		}
	}
	return host
}

func isShortsPath(path string) bool {
	return strings.HasPrefix(strings.ToLower(path), "/shorts/")
}
