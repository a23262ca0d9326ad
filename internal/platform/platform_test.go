package platform_test

import (
	"testing"

	"appdl/internal/platform"
	"appdl/internal/services"
)

func TestDetectSupportedPlatforms(t *testing.T) {
	tests := []struct {
		url  string
		want platform.Platform
	}{
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", platform.YouTube},
		{"https://youtu.be/dQw4w9WgXcQ", platform.YouTube},
		{"https://m.youtube.com/watch?v=abc", platform.YouTube},
		{"https://www.youtube.com/shorts/abc123", platform.YouTubeShorts},
		{"https://www.instagram.com/reel/xyz/", platform.Instagram},
		{"https://vm.tiktok.com/ZM123/", platform.TikTok},
		{"https://www.tiktok.com/@user/video/1", platform.TikTok},
		{"https://old.reddit.com/r/videos/comments/1", platform.Reddit},
		{"https://v.redd.it/abc", platform.Reddit},
		{"https://twitter.com/user/status/1", platform.Twitter},
		{"https://x.com/user/status/1", platform.Twitter},
		{"HTTPS://WWW.YOUTUBE.COM/watch?v=upper", platform.YouTube},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			got, parsed, err := platform.Detect(tt.url)
			if err != nil {
				t.Fatalf("Detect returned error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("Detect = %q, want %q", got, tt.want)
			}
			if parsed == nil || parsed.Host == "" {
				t.Fatalf("expected parsed url, got %v", parsed)
			}
		})
	}
}

func TestDetectErrors(t *testing.T) {
	tests := []struct {
		url  string
		want services.Kind
	}{
		{"", services.KindInvalidURL},
		{"   ", services.KindInvalidURL},
		{"not a url", services.KindInvalidURL},
		{"ftp://youtube.com/video", services.KindInvalidURL},
		{"https://", services.KindInvalidURL},
		{"https://vimeo.com/123", services.KindUnsupportedPlatform},
		{"https://notyoutube.com/watch?v=1", services.KindUnsupportedPlatform},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			_, _, err := platform.Detect(tt.url)
			if err == nil {
				t.Fatal("expected error")
			}
			if got := services.KindOf(err); got != tt.want {
				t.Fatalf("KindOf = %q, want %q (%v)", got, tt.want, err)
			}
		})
	}
}

func TestParseAndDisplayName(t *testing.T) {
	p, ok := platform.Parse("X")
	if !ok || p != platform.Twitter {
		t.Fatalf("Parse(X) = %q, %v", p, ok)
	}
	if p.DisplayName() != "Twitter/X" {
		t.Fatalf("unexpected display name %q", p.DisplayName())
	}
	if _, ok := platform.Parse("vimeo"); ok {
		t.Fatal("expected vimeo to be unsupported")
	}
	if len(platform.All()) != 6 {
		t.Fatalf("expected six platforms, got %d", len(platform.All()))
	}
}

func TestCanonicalHost(t *testing.T) {
	tests := map[string]string{
		"www.YouTube.com":     "youtube.com",
		"m.youtube.com":       "youtube.com",
		"mobile.twitter.com.": "twitter.com",
		"vm.tiktok.com":       "vm.tiktok.com",
	}
	for in, want := range tests {
		if got := platform.CanonicalHost(in); got != want {
			t.Errorf("CanonicalHost(%q) = %q, want %q", in, got, want)
		}
	}
}
