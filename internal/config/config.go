package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	DataDir    string `toml:"data_dir"`
	LibraryDir string `toml:"library_dir"`
	LogDir     string `toml:"log_dir"`
	APIBind    string `toml:"api_bind"`
	APIToken   string `toml:"api_token"`
}

// API contains HTTP surface settings.
type API struct {
	AllowedOrigins []string `toml:"allowed_origins"`
}

// Workflow contains worker pool sizing and job timing.
type Workflow struct {
	MaxConcurrent    int `toml:"max_concurrent"`
	QueueLimit       int `toml:"queue_limit"`
	DownloadTimeout  int `toml:"download_timeout"`
	CancelTimeout    int `toml:"cancel_timeout"`
	ProgressInterval int `toml:"progress_interval"`
	DispatchInterval int `toml:"dispatch_interval"`
}

// Retry contains the automatic retry policy for network failures.
type Retry struct {
	MaxAttempts int `toml:"max_attempts"`
	BaseDelay   int `toml:"base_delay"`
	MaxDelay    int `toml:"max_delay"`
}

// Fetcher contains yt-dlp invocation settings.
type Fetcher struct {
	Binary    string   `toml:"binary"`
	Format    string   `toml:"format"`
	ExtraArgs []string `toml:"extra_args"`
}

// Notifications contains configuration for ntfy push forwarding.
type Notifications struct {
	NtfyTopic      string   `toml:"ntfy_topic"`
	RequestTimeout int      `toml:"request_timeout"`
	ForwardKinds   []string `toml:"forward_kinds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for appdl.
//
// Configuration sections by subsystem:
//   - Paths: database, library and log directories plus the API bind address
//   - API: CORS origins for the dashboard and browser extension
//   - Workflow: worker slots, queue bound, download and cancel timeouts
//   - Retry: automatic retry policy for network errors
//   - Fetcher: yt-dlp binary and format selection
//   - Notifications: optional ntfy push forwarding
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	API           API           `toml:"api"`
	Workflow      Workflow      `toml:"workflow"`
	Retry         Retry         `toml:"retry"`
	Fetcher       Fetcher       `toml:"fetcher"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("appdl.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
// LibraryDir is created on a best-effort basis so the daemon can run when
// external storage is temporarily unavailable.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Paths.LibraryDir) != "" {
		_ = os.MkdirAll(c.Paths.LibraryDir, 0o755)
	}
	return nil
}

// DatabasePath returns the SQLite database location.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "appdl.db")
}

// LockPath returns the daemon single-instance lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "appdl.lock")
}

// DownloadTimeout is the ceiling after which a downloading job counts as a network failure.
func (c *Config) DownloadTimeout() time.Duration {
	return time.Duration(c.Workflow.DownloadTimeout) * time.Second
}

// CancelTimeout bounds how long a worker waits for an aborted fetch to return.
func (c *Config) CancelTimeout() time.Duration {
	return time.Duration(c.Workflow.CancelTimeout) * time.Second
}

// ProgressInterval is the minimum spacing between persisted progress updates.
func (c *Config) ProgressInterval() time.Duration {
	return time.Duration(c.Workflow.ProgressInterval) * time.Millisecond
}

// DispatchInterval is the safety poll interval of the admission loop.
func (c *Config) DispatchInterval() time.Duration {
	return time.Duration(c.Workflow.DispatchInterval) * time.Second
}

// RetryBaseDelay returns the first backoff step.
func (c *Config) RetryBaseDelay() time.Duration {
	return time.Duration(c.Retry.BaseDelay) * time.Second
}

// RetryMaxDelay returns the backoff cap.
func (c *Config) RetryMaxDelay() time.Duration {
	return time.Duration(c.Retry.MaxDelay) * time.Second
}

// NotificationTimeout returns the ntfy request timeout.
func (c *Config) NotificationTimeout() time.Duration {
	return time.Duration(c.Notifications.RequestTimeout) * time.Second
}

// FFprobeBinary returns the ffprobe executable name used for media inspection.
func (c *Config) FFprobeBinary() string {
	return "ffprobe"
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Encode renders the effective configuration as TOML.
func (c *Config) Encode() ([]byte, error) {
	data, err := toml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return data, nil
}
