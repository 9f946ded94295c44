package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/markitapp/markit/internal/domain"
	"github.com/markitapp/markit/internal/feed"
	"github.com/markitapp/markit/internal/store"
)

// CreateFolder assigns id and creation timestamp, stores the record
// and publishes an insert event.
func (s *Store) CreateFolder(ctx context.Context, f domain.Folder) (domain.Folder, error) {
	f.ID = uuid.NewString()
	f.CreatedAt = time.Now().UTC()

	data, err := json.Marshal(f)
	if err != nil {
		return domain.Folder{}, fmt.Errorf("failed to marshal folder: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, FolderKey(f.ID), data, 0)
	pipe.ZAdd(ctx, OwnerFoldersKey(f.OwnerID), redis.Z{
		Score:  float64(f.CreatedAt.UnixMilli()),
		Member: f.ID,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return domain.Folder{}, fmt.Errorf("failed to save folder: %w", err)
	}

	s.publish(ctx, f.OwnerID, feed.TypeFolders, feed.Event{Kind: feed.KindInsert, Folder: &f})
	return f, nil
}

// DeleteFolder removes the folder record only. Bookmarks referencing
// the folder are left untouched; their reference dangles and renders
// as unfiled.
func (s *Store) DeleteFolder(ctx context.Context, ownerID, id string) error {
	f, err := s.getFolder(ctx, ownerID, id)
	if err != nil {
		return err
	}

	pipe := s.client.Pipeline()
	pipe.Del(ctx, FolderKey(id))
	pipe.ZRem(ctx, OwnerFoldersKey(ownerID), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete folder: %w", err)
	}

	s.publish(ctx, ownerID, feed.TypeFolders, feed.Event{Kind: feed.KindDelete, Folder: &f})
	return nil
}

// ListFolders returns the owner's folders oldest first.
func (s *Store) ListFolders(ctx context.Context, ownerID string) ([]domain.Folder, error) {
	ids, err := s.client.ZRange(ctx, OwnerFoldersKey(ownerID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list folder ids: %w", err)
	}

	folders := make([]domain.Folder, 0, len(ids))
	for _, id := range ids {
		f, err := s.getFolder(ctx, ownerID, id)
		if err != nil {
			// Skip records that couldn't be retrieved
			continue
		}
		folders = append(folders, f)
	}

	return folders, nil
}

// getFolder retrieves one record and enforces owner scoping.
func (s *Store) getFolder(ctx context.Context, ownerID, id string) (domain.Folder, error) {
	data, err := s.client.Get(ctx, FolderKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.Folder{}, store.ErrNotFound
		}
		return domain.Folder{}, fmt.Errorf("failed to get folder: %w", err)
	}

	var f domain.Folder
	if err := json.Unmarshal(data, &f); err != nil {
		return domain.Folder{}, fmt.Errorf("failed to unmarshal folder: %w", err)
	}

	if f.OwnerID != ownerID {
		return domain.Folder{}, store.ErrNotFound
	}

	return f, nil
}
