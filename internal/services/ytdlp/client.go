package ytdlp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"appdl/internal/media"
	"appdl/internal/platform"
	"appdl/internal/services"
)

const maxKeptLines = 50

// CookieSource returns synced cookies for a host.
type CookieSource interface {
	CookiesForHost(ctx context.Context, host string) ([]media.Cookie, error)
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// WithCookieSource sets where cookies come from when a request carries none.
func WithCookieSource(src CookieSource) Option {
	return func(c *Client) {
		c.cookies = src
	}
}

// Client wraps yt-dlp CLI interactions and implements media.Fetcher.
type Client struct {
	binary    string
	format    string
	extraArgs []string
	exec      Executor
	cookies   CookieSource
}

// New constructs a yt-dlp client.
func New(binary, format string, extraArgs []string, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("yt-dlp binary required")
	}
	client := &Client{
		binary:    binary,
		format:    strings.TrimSpace(format),
		extraArgs: append([]string(nil), extraArgs...),
		exec:      commandExecutor{},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Fetch downloads req.URL into req.WorkDir and returns the produced file.
func (c *Client) Fetch(ctx context.Context, req media.Request, progress media.ProgressFunc) (*media.Result, error) {
	if strings.TrimSpace(req.WorkDir) == "" {
		return nil, services.Wrap(services.ErrInternal, "ytdlp", "fetch", "work directory required", nil)
	}
	if err := os.MkdirAll(req.WorkDir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrInternal, "ytdlp", "prepare work dir", req.WorkDir, err)
	}

	cookies := req.Cookies
	if len(cookies) == 0 && c.cookies != nil {
		if u, err := platform.Normalize(req.URL); err == nil {
			loaded, err := c.cookies.CookiesForHost(ctx, platform.CanonicalHost(u.Hostname()))
			if err != nil {
				return nil, services.Wrap(services.ErrInternal, "ytdlp", "load cookies", "", err)
			}
			cookies = loaded
		}
	}
	cookiePath := ""
	if len(cookies) > 0 {
		cookiePath = filepath.Join(req.WorkDir, cookieFileName)
		if err := writeCookieFile(cookiePath, cookies); err != nil {
			return nil, services.Wrap(services.ErrInternal, "ytdlp", "write cookies", "", err)
		}
		defer os.Remove(cookiePath)
	}

	args := c.buildArgs(req, cookiePath)
	var lines []string
	runErr := c.exec.Run(ctx, c.binary, args, func(stream Stream, line string) {
		if p, ok := parseProgress(line); ok {
			if progress != nil {
				progress(p)
			}
			return
		}
		if strings.TrimSpace(line) == "" {
			return
		}
		lines = append(lines, line)
		if len(lines) > maxKeptLines {
			lines = lines[len(lines)-maxKeptLines:]
		}
	})
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, fmt.Errorf("yt-dlp aborted: %w", ctxErr)
	}
	if runErr != nil {
		if errors.Is(runErr, exec.ErrNotFound) || errors.Is(runErr, os.ErrNotExist) {
			return nil, services.Wrap(services.ErrInternal, "ytdlp", "fetch", c.binary+" not found", runErr)
		}
		return nil, services.Wrap(classify(lines), "ytdlp", "fetch", errorSummary(lines), runErr)
	}

	return collectResult(req.WorkDir)
}

func (c *Client) buildArgs(req media.Request, cookiePath string) []string {
	args := []string{
		"--newline",
		"--no-playlist",
		"--no-colors",
		"--write-info-json",
		"--no-part",
		"-o", filepath.Join(req.WorkDir, "%(id)s.%(ext)s"),
	}
	if c.format != "" {
		args = append(args, "-f", c.format)
	}
	if cookiePath != "" {
		args = append(args, "--cookies", cookiePath)
	}
	args = append(args, c.extraArgs...)
	return append(args, req.URL)
}

type infoJSON struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Uploader string  `json:"uploader"`
	Ext      string  `json:"ext"`
	Duration float64 `json:"duration"`
}

// collectResult finds the media file and metadata yt-dlp left in dir.
func collectResult(dir string) (*media.Result, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, services.Wrap(services.ErrInternal, "ytdlp", "read work dir", dir, err)
	}

	var (
		info     infoJSON
		bestPath string
		bestSize int64
	)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		full := filepath.Join(dir, name)
		if strings.HasSuffix(name, ".info.json") {
			data, err := os.ReadFile(full)
			if err == nil {
				_ = json.Unmarshal(data, &info)
			}
			continue
		}
		if skipArtifact(name) {
			continue
		}
		fi, err := entry.Info()
		if err != nil {
			continue
		}
		if fi.Size() > bestSize {
			bestPath = full
			bestSize = fi.Size()
		}
	}
	if bestPath == "" {
		return nil, services.Wrap(services.ErrInternal, "ytdlp", "collect", "yt-dlp produced no media file", nil)
	}

	ext := strings.TrimPrefix(filepath.Ext(bestPath), ".")
	if ext == "" {
		ext = info.Ext
	}
	return &media.Result{
		Path:      bestPath,
		Title:     strings.TrimSpace(info.Title),
		Uploader:  strings.TrimSpace(info.Uploader),
		SourceID:  info.ID,
		Ext:       ext,
		Duration:  time.Duration(info.Duration * float64(time.Second)),
		SizeBytes: bestSize,
	}, nil
}

func skipArtifact(name string) bool {
	if name == cookieFileName {
		return true
	}
	for _, suffix := range []string{".json", ".part", ".ytdl", ".temp", ".tmp"} {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}
