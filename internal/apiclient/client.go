// Package apiclient talks to a running daemon over its HTTP API.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"appdl/internal/api"
	"appdl/internal/media"
	"appdl/internal/services"
)

// ErrAPIUnavailable reports that no daemon answered.
var ErrAPIUnavailable = errors.New("daemon API unavailable")

// Client issues authenticated requests against the daemon API.
type Client struct {
	base  *url.URL
	token string
	http  *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// New builds a client for bind, which may be host:port or a full URL.
func New(bind, token string, opts ...Option) (*Client, error) {
	bind = strings.TrimSpace(bind)
	if bind == "" {
		return nil, errors.New("api bind address is not configured")
	}
	if !strings.Contains(bind, "://") {
		bind = "http://" + bind
	}
	base, err := url.Parse(bind)
	if err != nil {
		return nil, fmt.Errorf("parse api address: %w", err)
	}
	base.Path = ""
	base.RawQuery = ""
	base.Fragment = ""

	c := &Client{
		base:  base,
		token: strings.TrimSpace(token),
		http:  &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// JobQuery filters Jobs.
type JobQuery struct {
	Statuses  []string
	Platforms []string
	Limit     int
}

// NotificationQuery filters Notifications.
type NotificationQuery struct {
	Filter string
	JobID  string
	Search string
	Limit  int
}

// Submit enqueues a download.
func (c *Client) Submit(ctx context.Context, rawURL string) (api.Job, error) {
	var resp api.DownloadResponse
	err := c.do(ctx, http.MethodPost, "/api/download", nil, api.DownloadRequest{URL: rawURL}, &resp)
	return resp.Job, err
}

// Job fetches one job.
func (c *Client) Job(ctx context.Context, id string) (api.Job, error) {
	var resp api.JobResponse
	err := c.do(ctx, http.MethodGet, "/api/jobs/"+url.PathEscape(id), nil, nil, &resp)
	return resp.Job, err
}

// Jobs lists jobs matching q.
func (c *Client) Jobs(ctx context.Context, q JobQuery) ([]api.Job, error) {
	values := url.Values{}
	if len(q.Statuses) > 0 {
		values.Set("status", strings.Join(q.Statuses, ","))
	}
	if len(q.Platforms) > 0 {
		values.Set("platform", strings.Join(q.Platforms, ","))
	}
	if q.Limit > 0 {
		values.Set("limit", strconv.Itoa(q.Limit))
	}
	var resp api.JobListResponse
	err := c.do(ctx, http.MethodGet, "/api/jobs", values, nil, &resp)
	return resp.Jobs, err
}

// JobAction invokes retry, cancel, pause or resume on a job.
func (c *Client) JobAction(ctx context.Context, id, action string) (api.Job, error) {
	switch action {
	case "retry", "cancel", "pause", "resume":
	default:
		return api.Job{}, fmt.Errorf("unknown job action %q", action)
	}
	var resp api.JobResponse
	err := c.do(ctx, http.MethodPost, "/api/jobs/"+url.PathEscape(id)+"/"+action, nil, nil, &resp)
	return resp.Job, err
}

// Notifications lists notification log entries and the unread count.
func (c *Client) Notifications(ctx context.Context, q NotificationQuery) (api.NotificationListResponse, error) {
	values := url.Values{}
	if q.Filter != "" {
		values.Set("filter", q.Filter)
	}
	if q.JobID != "" {
		values.Set("job", q.JobID)
	}
	if q.Search != "" {
		values.Set("q", q.Search)
	}
	if q.Limit > 0 {
		values.Set("limit", strconv.Itoa(q.Limit))
	}
	var resp api.NotificationListResponse
	err := c.do(ctx, http.MethodGet, "/api/notifications", values, nil, &resp)
	return resp, err
}

// MarkRead marks one notification read.
func (c *Client) MarkRead(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodPost, "/api/notifications/"+strconv.FormatInt(id, 10)+"/read", nil, nil, nil)
}

// MarkAllRead marks every notification read and returns how many changed.
func (c *Client) MarkAllRead(ctx context.Context) (int64, error) {
	var resp api.MarkAllReadResponse
	err := c.do(ctx, http.MethodPost, "/api/notifications/read-all", nil, nil, &resp)
	return resp.Updated, err
}

// UpdateCookies replaces the cookies stored for the host of rawURL.
func (c *Client) UpdateCookies(ctx context.Context, rawURL string, cookies []media.Cookie) (int, error) {
	var resp api.CookieUpdateResponse
	err := c.do(ctx, http.MethodPost, "/api/update-cookies", nil, api.CookieUpdateRequest{URL: rawURL, Cookies: cookies}, &resp)
	return resp.Count, err
}

// Media fetches a library entry.
func (c *Client) Media(ctx context.Context, id string) (api.MediaItem, error) {
	var resp api.MediaItem
	err := c.do(ctx, http.MethodGet, "/api/media/"+url.PathEscape(id), nil, nil, &resp)
	return resp, err
}

// Status returns daemon runtime information.
func (c *Client) Status(ctx context.Context) (api.DaemonStatus, error) {
	var resp api.DaemonStatus
	err := c.do(ctx, http.MethodGet, "/api/status", nil, nil, &resp)
	return resp, err
}

// Health runs the daemon readiness probes. An unhealthy daemon still
// returns its checks.
func (c *Client) Health(ctx context.Context) (api.HealthResponse, error) {
	var resp api.HealthResponse
	err := c.do(ctx, http.MethodGet, "/health", nil, nil, &resp)
	if err != nil && resp.Status != "" {
		return resp, nil
	}
	return resp, err
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	endpoint := c.base.ResolveReference(&url.URL{Path: path, RawQuery: query.Encode()})

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if IsAPIUnavailable(err) {
			return fmt.Errorf("%w at %s: %v", ErrAPIUnavailable, c.base.Host, err)
		}
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		if resp.StatusCode == http.StatusServiceUnavailable && out != nil {
			_ = json.Unmarshal(data, out)
		}
		return decodeError(resp.StatusCode, data)
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// decodeError restores the classified kind carried by an error body so
// services.KindOf works on the client side.
func decodeError(status int, data []byte) error {
	var payload api.ErrorResponse
	if err := json.Unmarshal(data, &payload); err != nil || payload.Error == "" {
		msg := strings.TrimSpace(string(data))
		if msg == "" {
			msg = http.StatusText(status)
		}
		return fmt.Errorf("api returned status %d: %s", status, msg)
	}
	kind, ok := services.ParseKind(payload.Kind)
	if !ok {
		kind = services.KindInternal
	}
	return &Error{Status: status, Kind: kind, Message: payload.Error}
}

// Error is a failed API response.
type Error struct {
	Status  int
	Kind    services.Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Unwrap exposes the kind marker for errors.Is and services.KindOf.
func (e *Error) Unwrap() error {
	return services.Marker(e.Kind)
}

// IsAPIUnavailable reports whether err came from a failed connection.
func IsAPIUnavailable(err error) bool {
	if err == nil {
		return false
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		err = urlErr.Err
	}
	var opErr *net.OpError
	return errors.Is(err, ErrAPIUnavailable) || errors.As(err, &opErr)
}
