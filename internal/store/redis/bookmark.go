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

// CreateBookmark assigns id and creation timestamp, stores the record
// and publishes an insert event.
func (s *Store) CreateBookmark(ctx context.Context, b domain.Bookmark) (domain.Bookmark, error) {
	b.ID = uuid.NewString()
	b.CreatedAt = time.Now().UTC()

	if err := s.saveBookmark(ctx, b); err != nil {
		return domain.Bookmark{}, err
	}

	s.publish(ctx, b.OwnerID, feed.TypeBookmarks, feed.Event{Kind: feed.KindInsert, Bookmark: &b})
	return b, nil
}

// SetBookmarkFavorite updates the favorite flag and publishes an
// update event.
func (s *Store) SetBookmarkFavorite(ctx context.Context, ownerID, id string, favorite bool) (domain.Bookmark, error) {
	b, err := s.getBookmark(ctx, ownerID, id)
	if err != nil {
		return domain.Bookmark{}, err
	}

	b.Favorite = favorite
	if err := s.saveBookmark(ctx, b); err != nil {
		return domain.Bookmark{}, err
	}

	s.publish(ctx, ownerID, feed.TypeBookmarks, feed.Event{Kind: feed.KindUpdate, Bookmark: &b})
	return b, nil
}

// MoveBookmark changes the folder reference (empty = unfiled) and
// publishes an update event. The target folder is not checked for
// existence; a dangling reference renders as unfiled.
func (s *Store) MoveBookmark(ctx context.Context, ownerID, id, folderID string) (domain.Bookmark, error) {
	b, err := s.getBookmark(ctx, ownerID, id)
	if err != nil {
		return domain.Bookmark{}, err
	}

	b.FolderID = folderID
	if err := s.saveBookmark(ctx, b); err != nil {
		return domain.Bookmark{}, err
	}

	s.publish(ctx, ownerID, feed.TypeBookmarks, feed.Event{Kind: feed.KindUpdate, Bookmark: &b})
	return b, nil
}

// DeleteBookmark removes the record and publishes a delete event.
func (s *Store) DeleteBookmark(ctx context.Context, ownerID, id string) error {
	b, err := s.getBookmark(ctx, ownerID, id)
	if err != nil {
		return err
	}

	pipe := s.client.Pipeline()
	pipe.Del(ctx, BookmarkKey(id))
	pipe.ZRem(ctx, OwnerBookmarksKey(ownerID), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete bookmark: %w", err)
	}

	s.publish(ctx, ownerID, feed.TypeBookmarks, feed.Event{Kind: feed.KindDelete, Bookmark: &b})
	return nil
}

// ListBookmarks returns the owner's bookmarks newest first.
func (s *Store) ListBookmarks(ctx context.Context, ownerID string) ([]domain.Bookmark, error) {
	ids, err := s.client.ZRevRange(ctx, OwnerBookmarksKey(ownerID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list bookmark ids: %w", err)
	}

	bookmarks := make([]domain.Bookmark, 0, len(ids))
	for _, id := range ids {
		b, err := s.getBookmark(ctx, ownerID, id)
		if err != nil {
			// Skip records that couldn't be retrieved
			continue
		}
		bookmarks = append(bookmarks, b)
	}

	return bookmarks, nil
}

// saveBookmark stores the record and keeps the owner's ordered id set
// in sync.
func (s *Store) saveBookmark(ctx context.Context, b domain.Bookmark) error {
	data, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("failed to marshal bookmark: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, BookmarkKey(b.ID), data, 0)
	pipe.ZAdd(ctx, OwnerBookmarksKey(b.OwnerID), redis.Z{
		Score:  float64(b.CreatedAt.UnixMilli()),
		Member: b.ID,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save bookmark: %w", err)
	}

	return nil
}

// getBookmark retrieves one record and enforces owner scoping.
func (s *Store) getBookmark(ctx context.Context, ownerID, id string) (domain.Bookmark, error) {
	data, err := s.client.Get(ctx, BookmarkKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.Bookmark{}, store.ErrNotFound
		}
		return domain.Bookmark{}, fmt.Errorf("failed to get bookmark: %w", err)
	}

	var b domain.Bookmark
	if err := json.Unmarshal(data, &b); err != nil {
		return domain.Bookmark{}, fmt.Errorf("failed to unmarshal bookmark: %w", err)
	}

	if b.OwnerID != ownerID {
		return domain.Bookmark{}, store.ErrNotFound
	}

	return b, nil
}
