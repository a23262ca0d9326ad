package library

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"

	"appdl/internal/fileutil"
	"appdl/internal/logging"
	"appdl/internal/media"
	"appdl/internal/media/ffprobe"
	"appdl/internal/notifications"
	"appdl/internal/queue"
	"appdl/internal/services"
)

// Catalog persists library entries.
type Catalog interface {
	RecordMedia(ctx context.Context, item media.Item) (*media.Item, bool, error)
	MediaByHash(ctx context.Context, hash string) (*media.Item, error)
	GetMedia(ctx context.Context, id string) (*media.Item, error)
}

// EventSink records library events as notifications.
type EventSink interface {
	Append(ctx context.Context, n *queue.Notification) error
}

// Prober inspects a stored file to classify it.
type Prober func(ctx context.Context, path string) (ffprobe.Result, error)

// Option configures a FileStore.
type Option func(*FileStore)

// WithProber replaces the ffprobe-backed inspector.
func WithProber(p Prober) Option {
	return func(s *FileStore) {
		if p != nil {
			s.probe = p
		}
	}
}

// WithEventSink sets where folder creation events are recorded.
func WithEventSink(sink EventSink) Option {
	return func(s *FileStore) {
		s.events = sink
	}
}

// FileStore implements media.Store on the local filesystem.
type FileStore struct {
	root    string
	catalog Catalog
	events  EventSink
	probe   Prober
	logger  *slog.Logger

	mu sync.Mutex
}

// NewFileStore builds a store rooted at root.
func NewFileStore(root, ffprobeBinary string, catalog Catalog, logger *slog.Logger, opts ...Option) *FileStore {
	s := &FileStore{
		root:    root,
		catalog: catalog,
		logger:  logging.NewComponentLogger(logger, "library"),
		probe: func(ctx context.Context, path string) (ffprobe.Result, error) {
			return ffprobe.Inspect(ctx, ffprobeBinary, path)
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Root returns the library directory.
func (s *FileStore) Root() string {
	return s.root
}

// Save moves result.Path into the library and returns the catalog id.
// A file whose content is already catalogued is discarded and the existing
// id is returned.
func (s *FileStore) Save(ctx context.Context, req media.Request, result *media.Result) (string, error) {
	if result == nil || strings.TrimSpace(result.Path) == "" {
		return "", services.Wrap(services.ErrInternal, "library", "save", "no file to store", nil)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	hash, size, err := fileutil.HashFile(result.Path)
	if err != nil {
		return "", services.Wrap(services.ErrInternal, "library", "hash", result.Path, err)
	}

	existing, err := s.catalog.MediaByHash(ctx, hash)
	switch {
	case err == nil:
		_ = os.Remove(result.Path)
		s.logger.Info("media already in library",
			logging.String(logging.FieldJobID, req.JobID),
			logging.String("media_id", existing.ID),
			logging.String("path", existing.Path),
		)
		return existing.ID, nil
	case !errors.Is(err, queue.ErrMediaNotFound):
		return "", services.Wrap(services.ErrInternal, "library", "lookup", hash, err)
	}

	folder := req.Platform.Folder()
	if folder == "" {
		folder = "other"
	}
	dir := filepath.Join(s.root, folder)
	created, err := ensureDir(dir)
	if err != nil {
		return "", services.Wrap(services.ErrInternal, "library", "create folder", dir, err)
	}
	if created {
		s.recordFolder(ctx, req, dir)
	}

	ext := strings.ToLower(filepath.Ext(result.Path))
	if ext == "" && result.Ext != "" {
		ext = "." + strings.ToLower(result.Ext)
	}
	dest := filepath.Join(dir, hash+ext)
	if err := fileutil.MoveFile(result.Path, dest); err != nil {
		return "", services.Wrap(services.ErrInternal, "library", "move", dest, err)
	}

	item := media.Item{
		ID:        uuid.NewString(),
		Hash:      hash,
		Path:      dest,
		SizeBytes: size,
		Type:      s.classify(ctx, dest),
		Title:     norm.NFC.String(strings.TrimSpace(result.Title)),
		Platform:  req.Platform,
		SourceURL: req.URL,
		Duration:  result.Duration.Seconds(),
	}
	saved, _, err := s.catalog.RecordMedia(ctx, item)
	if err != nil {
		return "", services.Wrap(services.ErrInternal, "library", "catalog", dest, err)
	}
	s.logger.Info("media stored",
		logging.String(logging.FieldJobID, req.JobID),
		logging.String("media_id", saved.ID),
		logging.String("path", saved.Path),
		logging.Int64("size_bytes", size),
		logging.String("type", string(saved.Type)),
	)
	return saved.ID, nil
}

// Get returns a catalog entry.
func (s *FileStore) Get(ctx context.Context, id string) (*media.Item, error) {
	return s.catalog.GetMedia(ctx, id)
}

func (s *FileStore) classify(ctx context.Context, path string) media.Type {
	if s.probe == nil {
		return typeFromExt(filepath.Ext(path))
	}
	res, err := s.probe(ctx, path)
	if err != nil {
		s.logger.Debug("ffprobe failed; classifying by extension", logging.String("path", path), logging.Error(err))
		return typeFromExt(filepath.Ext(path))
	}
	return media.Type(res.Kind())
}

func (s *FileStore) recordFolder(ctx context.Context, req media.Request, dir string) {
	s.logger.Info("library folder created", logging.String("path", dir), logging.String(logging.FieldPlatform, string(req.Platform)))
	if s.events == nil {
		return
	}
	if err := s.events.Append(ctx, notifications.LibraryCreated(req.Platform, dir)); err != nil {
		logging.WarnWithContext(s.logger, "library folder notification failed", "library_notification_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "folder exists but no libraryCreated notification was recorded"),
		)
	}
}

func ensureDir(dir string) (bool, error) {
	info, err := os.Stat(dir)
	if err == nil {
		if !info.IsDir() {
			return false, fmt.Errorf("%s is not a directory", dir)
		}
		return false, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return false, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return false, err
	}
	return true, nil
}

var extTypes = map[string]media.Type{
	".mp3":  media.TypeAudio,
	".m4a":  media.TypeAudio,
	".aac":  media.TypeAudio,
	".opus": media.TypeAudio,
	".ogg":  media.TypeAudio,
	".flac": media.TypeAudio,
	".wav":  media.TypeAudio,
	".jpg":  media.TypeImage,
	".jpeg": media.TypeImage,
	".png":  media.TypeImage,
	".webp": media.TypeImage,
	".gif":  media.TypeImage,
	".heic": media.TypeImage,
}

func typeFromExt(ext string) media.Type {
	if t, ok := extTypes[strings.ToLower(ext)]; ok {
		return t
	}
	return media.TypeVideo
}
