package daemonrun

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"appdl/internal/config"
	"appdl/internal/daemon"
	"appdl/internal/deps"
	"appdl/internal/library"
	"appdl/internal/logging"
	"appdl/internal/notifications"
	"appdl/internal/queue"
	"appdl/internal/services/ytdlp"
	"appdl/internal/workflow"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
	// HealthInterval controls how often the watchdog re-runs readiness
	// probes. Zero uses one minute.
	HealthInterval time.Duration
}

// Run starts the appdl daemon and blocks until the context is cancelled or
// SIGINT/SIGTERM arrives.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	runID := time.Now().UTC().Format("20060102T150405.000Z")
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("appdl-%s.log", runID))
	level := opts.LogLevel
	if level == "" {
		level = cfg.Logging.Level
	}
	logger, err := logging.New(logging.Options{
		Level:            level,
		Format:           cfg.Logging.Format,
		OutputPaths:      []string{"stdout", logPath},
		ErrorOutputPaths: []string{"stderr", logPath},
		Development:      opts.Development,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	if err := ensureCurrentLogPointer(cfg.Paths.LogDir, logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update appdl.log link: %v\n", err)
	}

	ffmpeg := logDependencySnapshot(logger, cfg)

	pidPath := filepath.Join(cfg.Paths.DataDir, "appdl.pid")
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	store, err := queue.Open(cfg)
	if err != nil {
		logger.Error("open queue store", logging.Error(err))
		return err
	}

	notes := notifications.NewService(store, notifications.NewForwarder(cfg), logger)
	lib := library.NewFileStore(cfg.Paths.LibraryDir, cfg.FFprobeBinary(), store, logger,
		library.WithEventSink(notes))

	extraArgs := append([]string(nil), cfg.Fetcher.ExtraArgs...)
	if ffmpeg.IsSidecar() {
		extraArgs = append(extraArgs, "--ffmpeg-location", ffmpeg.Command)
	}
	fetcher, err := ytdlp.New(cfg.Fetcher.Binary, cfg.Fetcher.Format, extraArgs, ytdlp.WithCookieSource(store))
	if err != nil {
		store.Close()
		return fmt.Errorf("create fetcher: %w", err)
	}

	wfOpts := workflow.OptionsFromConfig(cfg)
	cleanWorkDir(logger, wfOpts.WorkDir)
	manager := workflow.NewManager(wfOpts, store, fetcher, lib, notes, logger)

	d, err := daemon.New(cfg, store, notes, lib, manager, logger)
	if err != nil {
		store.Close()
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	logQueueSnapshot(signalCtx, logger, store)

	if err := d.Start(signalCtx); err != nil {
		logging.WarnWithContext(logger, "daemon start failed", "daemon_start_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check configuration, lock file and api_bind"),
			logging.String(logging.FieldImpact, "no downloads will be processed"),
		)
		return err
	}

	interval := opts.HealthInterval
	if interval <= 0 {
		interval = time.Minute
	}

	g, gctx := errgroup.WithContext(signalCtx)
	g.Go(func() error {
		watchHealth(gctx, logger, d, interval)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("appdl daemon shutting down", logging.String(logging.FieldEventType, "daemon_shutdown"))
		d.Stop()
		return nil
	})
	return g.Wait()
}

// watchHealth logs transitions between healthy and unhealthy readiness.
func watchHealth(ctx context.Context, logger *slog.Logger, d *daemon.Daemon, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	healthy := true
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		resp := d.Health(ctx)
		ok := resp.Status == "healthy"
		if ok == healthy {
			continue
		}
		healthy = ok
		if ok {
			logger.Info("daemon health restored", logging.String(logging.FieldEventType, "health_restored"))
			continue
		}
		for _, check := range resp.Checks {
			if check.OK {
				continue
			}
			logging.WarnWithContext(logger, "health check failing", "health_check_failed",
				logging.Alert("health_degraded"),
				logging.String("check", check.Name),
				logging.String("detail", check.Detail),
				logging.String(logging.FieldImpact, "downloads may fail until the check recovers"),
			)
		}
	}
}

// cleanWorkDir removes scratch directories left by an unclean shutdown.
// Recovered jobs restart their fetch from scratch.
func cleanWorkDir(logger *slog.Logger, dir string) {
	if dir == "" {
		return
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.Warn("read work directory", logging.Error(err))
		}
		return
	}
	for _, entry := range entries {
		if err := os.RemoveAll(filepath.Join(dir, entry.Name())); err != nil {
			logger.Warn("remove stale work directory",
				logging.String("path", entry.Name()),
				logging.Error(err),
			)
		}
	}
	if len(entries) > 0 {
		logger.Info("removed stale work directories", logging.Int("count", len(entries)))
	}
}

func ensureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := filepath.Join(logDir, "appdl.log")
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

// logDependencySnapshot records binary availability and returns the ffmpeg
// resolution so a sidecar can be handed to yt-dlp.
func logDependencySnapshot(logger *slog.Logger, cfg *config.Config) deps.Status {
	statuses := deps.Check(cfg)
	attrs := []any{logging.String(logging.FieldEventType, "dependency_snapshot")}
	var ffmpeg deps.Status
	for _, status := range statuses {
		attrs = append(attrs,
			logging.Bool(status.Name+"_available", status.Available),
			logging.String(status.Name+"_binary", status.Command),
		)
		if status.Name == "FFmpeg" {
			ffmpeg = status
		}
	}
	attrs = append(attrs, logging.Bool("ffmpeg_sidecar", ffmpeg.IsSidecar()))
	logger.Info("dependency snapshot", attrs...)

	for _, missing := range deps.Missing(statuses) {
		logging.WarnWithContext(logger, "required dependency missing", "dependency_missing",
			logging.String("dependency", missing.Name),
			logging.String("detail", missing.Detail),
			logging.String(logging.FieldImpact, "downloads will fail until the binary is installed"),
		)
	}
	return ffmpeg
}

func logQueueSnapshot(ctx context.Context, logger *slog.Logger, store *queue.Store) {
	summary, err := store.Health(ctx)
	if err != nil {
		logger.Warn("queue snapshot failed", logging.Error(err))
		return
	}
	logger.Info("queue snapshot",
		logging.String(logging.FieldEventType, "queue_snapshot"),
		logging.Int("total", summary.Total),
		logging.Int("queued", summary.Queued),
		logging.Int("downloading", summary.Downloading),
		logging.Int("paused", summary.Paused),
		logging.Int("failed", summary.Failed),
	)
}
