package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateRetry(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		return errors.New("paths.data_dir must be set")
	}
	if strings.TrimSpace(c.Paths.LibraryDir) == "" {
		return errors.New("paths.library_dir must be set")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if err := ensurePositiveMap(map[string]int{
		"workflow.max_concurrent":    c.Workflow.MaxConcurrent,
		"workflow.queue_limit":       c.Workflow.QueueLimit,
		"workflow.download_timeout":  c.Workflow.DownloadTimeout,
		"workflow.cancel_timeout":    c.Workflow.CancelTimeout,
		"workflow.progress_interval": c.Workflow.ProgressInterval,
		"workflow.dispatch_interval": c.Workflow.DispatchInterval,
	}); err != nil {
		return err
	}
	if c.Workflow.CancelTimeout >= c.Workflow.DownloadTimeout {
		return errors.New("workflow.cancel_timeout must be less than workflow.download_timeout")
	}
	return nil
}

func (c *Config) validateRetry() error {
	if c.Retry.MaxAttempts < 0 {
		return errors.New("retry.max_attempts must be >= 0")
	}
	if err := ensurePositiveMap(map[string]int{
		"retry.base_delay": c.Retry.BaseDelay,
		"retry.max_delay":  c.Retry.MaxDelay,
	}); err != nil {
		return err
	}
	if c.Retry.MaxDelay < c.Retry.BaseDelay {
		return errors.New("retry.max_delay must be >= retry.base_delay")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if values[key] <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
