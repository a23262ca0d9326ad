package workflow

import (
	"path/filepath"
	"time"

	"appdl/internal/config"
	"appdl/internal/retry"
)

// Options sizes the worker pool and sets job timing.
type Options struct {
	MaxConcurrent int
	// QueueLimit bounds queued jobs; zero disables the bound.
	QueueLimit       int
	DownloadTimeout  time.Duration
	CancelTimeout    time.Duration
	ProgressInterval time.Duration
	DispatchInterval time.Duration
	// WorkDir holds per-job scratch directories handed to the fetcher.
	WorkDir string
	Policy  retry.Policy
}

// OptionsFromConfig derives manager options from the daemon configuration.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		MaxConcurrent:    cfg.Workflow.MaxConcurrent,
		QueueLimit:       cfg.Workflow.QueueLimit,
		DownloadTimeout:  cfg.DownloadTimeout(),
		CancelTimeout:    cfg.CancelTimeout(),
		ProgressInterval: cfg.ProgressInterval(),
		DispatchInterval: cfg.DispatchInterval(),
		WorkDir:          filepath.Join(cfg.Paths.DataDir, "work"),
		Policy: retry.Policy{
			MaxAttempts: cfg.Retry.MaxAttempts,
			BaseDelay:   cfg.RetryBaseDelay(),
			MaxDelay:    cfg.RetryMaxDelay(),
		},
	}
}

func (o Options) withDefaults() Options {
	if o.MaxConcurrent <= 0 {
		o.MaxConcurrent = 3
	}
	if o.DownloadTimeout <= 0 {
		o.DownloadTimeout = time.Hour
	}
	if o.CancelTimeout <= 0 {
		o.CancelTimeout = 10 * time.Second
	}
	if o.DispatchInterval <= 0 {
		o.DispatchInterval = 5 * time.Second
	}
	if o.ProgressInterval < 0 {
		o.ProgressInterval = 0
	}
	return o
}
