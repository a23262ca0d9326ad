package api

import "appdl/internal/media"

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Job describes a download job in a transport-friendly format.
type Job struct {
	ID            string `json:"id"`
	URL           string `json:"url"`
	Platform      string `json:"platform"`
	PlatformName  string `json:"platformName"`
	Status        string `json:"status"`
	Title         string `json:"title"`
	Progress      int    `json:"progress"`
	Attempt       int    `json:"attempt"`
	AutoRetries   int    `json:"autoRetries"`
	ErrorKind     string `json:"errorKind,omitempty"`
	ErrorMessage  string `json:"errorMessage,omitempty"`
	MediaID       string `json:"mediaId,omitempty"`
	SizeBytes     int64  `json:"sizeBytes,omitempty"`
	NextAttemptAt string `json:"nextAttemptAt,omitempty"`
	QueuedAt      string `json:"queuedAt,omitempty"`
	CreatedAt     string `json:"createdAt,omitempty"`
	UpdatedAt     string `json:"updatedAt,omitempty"`
}

// Notification is one entry of the notification log.
type Notification struct {
	ID         int64  `json:"id"`
	JobID      string `json:"jobId,omitempty"`
	Kind       string `json:"kind"`
	Title      string `json:"title"`
	Message    string `json:"message"`
	Reason     string `json:"reason,omitempty"`
	Attempt    int    `json:"attempt"`
	CreatedAt  string `json:"createdAt"`
	Read       bool   `json:"read"`
	Persistent bool   `json:"persistent"`
}

// MediaItem is a library entry.
type MediaItem struct {
	ID        string  `json:"id"`
	Hash      string  `json:"hash"`
	Path      string  `json:"path"`
	SizeBytes int64   `json:"sizeBytes"`
	Type      string  `json:"type"`
	Title     string  `json:"title"`
	Platform  string  `json:"platform"`
	SourceURL string  `json:"sourceUrl"`
	Duration  float64 `json:"duration,omitempty"`
	CreatedAt string  `json:"createdAt"`
}

// WorkflowStatus summarizes job manager state.
type WorkflowStatus struct {
	Running       bool           `json:"running"`
	MaxConcurrent int            `json:"maxConcurrent"`
	ActiveSlots   int            `json:"activeSlots"`
	Waiting       int            `json:"waiting"`
	QueueLimit    int            `json:"queueLimit"`
	QueueStats    map[string]int `json:"queueStats"`
	Unread        int            `json:"unread"`
	LastError     string         `json:"lastError,omitempty"`
}

// DependencyStatus captures availability of an external dependency.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool               `json:"running"`
	PID          int                `json:"pid"`
	QueueDBPath  string             `json:"queueDbPath"`
	LockFilePath string             `json:"lockFilePath"`
	LibraryDir   string             `json:"libraryDir"`
	Workflow     WorkflowStatus     `json:"workflow"`
	Dependencies []DependencyStatus `json:"dependencies"`
}

// HealthCheck is one named readiness probe.
type HealthCheck struct {
	Name   string `json:"name"`
	OK     bool   `json:"ok"`
	Detail string `json:"detail,omitempty"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status string        `json:"status"`
	Checks []HealthCheck `json:"checks"`
}

// DownloadRequest is the body of POST /api/download.
type DownloadRequest struct {
	URL string `json:"url"`
}

// DownloadResponse acknowledges an accepted submission.
type DownloadResponse struct {
	JobID string `json:"jobId"`
	Job   Job    `json:"job"`
}

// JobResponse wraps a single job.
type JobResponse struct {
	Job Job `json:"job"`
}

// JobListResponse wraps a collection of jobs.
type JobListResponse struct {
	Jobs []Job `json:"jobs"`
}

// NotificationListResponse wraps notifications plus the unread badge count.
type NotificationListResponse struct {
	Notifications []Notification `json:"notifications"`
	Unread        int            `json:"unread"`
}

// MarkAllReadResponse reports how many notifications changed.
type MarkAllReadResponse struct {
	Updated int64 `json:"updated"`
}

// CookieUpdateRequest is the body of POST /api/update-cookies.
type CookieUpdateRequest struct {
	URL     string         `json:"url"`
	Cookies []media.Cookie `json:"cookies"`
}

// CookieUpdateResponse acknowledges a cookie sync.
type CookieUpdateResponse struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}
