package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"appdl/internal/media"
	"appdl/internal/platform"
)

const mediaColumns = "id, hash, path, size_bytes, type, title, platform, source_url, duration_seconds, created_at"

// RecordMedia inserts a catalog entry. When an entry with the same hash
// already exists it is returned instead and created is false.
func (s *Store) RecordMedia(ctx context.Context, item media.Item) (*media.Item, bool, error) {
	ctx = ensureContext(ctx)
	if existing, err := s.MediaByHash(ctx, item.Hash); err == nil {
		return existing, false, nil
	} else if !errors.Is(err, ErrMediaNotFound) {
		return nil, false, err
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}
	_, err := s.execWithRetry(ctx,
		`INSERT INTO media_items (id, hash, path, size_bytes, type, title, platform, source_url, duration_seconds, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.Hash, item.Path, item.SizeBytes, string(item.Type), nullableString(item.Title),
		string(item.Platform), item.SourceURL, item.Duration, formatTime(item.CreatedAt),
	)
	if err != nil {
		return nil, false, fmt.Errorf("insert media item: %w", err)
	}
	return &item, true, nil
}

// MediaByHash looks up a catalog entry by content hash.
func (s *Store) MediaByHash(ctx context.Context, hash string) (*media.Item, error) {
	return s.queryMedia(ctx, "SELECT "+mediaColumns+" FROM media_items WHERE hash = ?", hash)
}

// GetMedia looks up a catalog entry by id.
func (s *Store) GetMedia(ctx context.Context, id string) (*media.Item, error) {
	return s.queryMedia(ctx, "SELECT "+mediaColumns+" FROM media_items WHERE id = ?", id)
}

func (s *Store) queryMedia(ctx context.Context, query string, arg any) (*media.Item, error) {
	var (
		item       media.Item
		typ        string
		title      sql.NullString
		plat       string
		createdRaw string
	)
	err := s.db.QueryRowContext(ensureContext(ctx), query, arg).Scan(
		&item.ID, &item.Hash, &item.Path, &item.SizeBytes, &typ, &title,
		&plat, &item.SourceURL, &item.Duration, &createdRaw,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMediaNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query media item: %w", err)
	}
	item.Type = media.Type(typ)
	item.Title = title.String
	item.Platform = platform.Platform(plat)
	if created, err := parseTimeString(createdRaw); err == nil {
		item.CreatedAt = created
	}
	return &item, nil
}
