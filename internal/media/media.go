// Package media defines the contracts between the job manager and its
// external collaborators: the platform fetcher that produces media files and
// the media store that files them into the library.
package media

import (
	"context"
	"time"

	"appdl/internal/platform"
)

// Cookie is one browser cookie forwarded by the browser extension. The core
// treats cookies as opaque; only the fetcher interprets them.
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires,omitempty"`
	HTTPOnly bool    `json:"httpOnly"`
	Secure   bool    `json:"secure"`
	SameSite string  `json:"sameSite,omitempty"`
}

// Request describes one fetch attempt.
type Request struct {
	JobID    string
	URL      string
	Platform platform.Platform
	Attempt  int
	Cookies  []Cookie
	// WorkDir is a job-private scratch directory the fetcher writes into.
	WorkDir string
}

// Progress reports fetch progress. Percent is negative when unknown.
type Progress struct {
	Percent         float64
	Phase           string
	DownloadedBytes int64
	TotalBytes      int64
	Speed           string
	ETA             string
}

// ProgressFunc receives progress callbacks; it must not block.
type ProgressFunc func(Progress)

// Result is a successfully fetched file plus its metadata.
type Result struct {
	Path      string
	Title     string
	Uploader  string
	SourceID  string
	Ext       string
	Duration  time.Duration
	SizeBytes int64
}

// Fetcher performs the network fetch for a job. Failures must be classified
// with one of the services error markers.
type Fetcher interface {
	Fetch(ctx context.Context, req Request, progress ProgressFunc) (*Result, error)
}

// Store persists a completed download and returns its media id.
type Store interface {
	Save(ctx context.Context, req Request, result *Result) (string, error)
}

// Type classifies library items.
type Type string

const (
	TypeVideo Type = "video"
	TypeAudio Type = "audio"
	TypeImage Type = "image"
)

// Item is a library entry owned by the media store.
type Item struct {
	ID        string            `json:"id"`
	Hash      string            `json:"hash"`
	Path      string            `json:"path"`
	SizeBytes int64             `json:"sizeBytes"`
	Type      Type              `json:"type"`
	Title     string            `json:"title"`
	Platform  platform.Platform `json:"platform"`
	SourceURL string            `json:"sourceUrl"`
	Duration  float64           `json:"durationSeconds,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
}
