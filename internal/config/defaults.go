package config

const (
	defaultConfigPath        = "~/.config/appdl/config.toml"
	defaultDataDir           = "~/.local/share/appdl"
	defaultLibraryDir        = "~/Media/appdl"
	defaultLogDir            = "~/.local/state/appdl/logs"
	defaultAPIBind           = "127.0.0.1:8484"
	defaultMaxConcurrent     = 3
	defaultQueueLimit        = 100
	defaultDownloadTimeout   = 3600
	defaultCancelTimeout     = 10
	defaultProgressInterval  = 1000
	defaultDispatchInterval  = 5
	defaultRetryMaxAttempts  = 3
	defaultRetryBaseDelay    = 2
	defaultRetryMaxDelay     = 60
	defaultFetcherBinary     = "yt-dlp"
	defaultFetcherFormat     = "bv*[ext=mp4]+ba[ext=m4a]/b[ext=mp4]/bv*+ba/b"
	defaultNotifyTimeout     = 10
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
	envAPIToken              = "APPDL_API_TOKEN"
	envNtfyTopic             = "APPDL_NTFY_TOPIC"
	envDataDir               = "APPDL_DATA_DIR"
	defaultAllowedOriginsAll = "*"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:    defaultDataDir,
			LibraryDir: defaultLibraryDir,
			LogDir:     defaultLogDir,
			APIBind:    defaultAPIBind,
		},
		API: API{
			AllowedOrigins: []string{defaultAllowedOriginsAll},
		},
		Workflow: Workflow{
			MaxConcurrent:    defaultMaxConcurrent,
			QueueLimit:       defaultQueueLimit,
			DownloadTimeout:  defaultDownloadTimeout,
			CancelTimeout:    defaultCancelTimeout,
			ProgressInterval: defaultProgressInterval,
			DispatchInterval: defaultDispatchInterval,
		},
		Retry: Retry{
			MaxAttempts: defaultRetryMaxAttempts,
			BaseDelay:   defaultRetryBaseDelay,
			MaxDelay:    defaultRetryMaxDelay,
		},
		Fetcher: Fetcher{
			Binary: defaultFetcherBinary,
			Format: defaultFetcherFormat,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			ForwardKinds:   []string{"completed", "failed"},
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
