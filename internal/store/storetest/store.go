// Package storetest provides an in-memory RecordStore with failure
// injection for tests.
package storetest

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/markitapp/markit/internal/domain"
	"github.com/markitapp/markit/internal/store"
)

// Store is an in-memory record store. IDs are assigned sequentially
// (b1, b2, ... / f1, f2, ...). The Fail* fields make the next matching
// call return that error; OnCreate runs after a successful bookmark
// create, before returning to the caller; OnList runs at the start of
// ListBookmarks, outside the lock, so it may block.
type Store struct {
	mu        sync.Mutex
	seq       int
	Bookmarks []domain.Bookmark // newest first
	Folders   []domain.Folder   // oldest first

	FailCreate       error
	FailDelete       error
	FailFavorite     error
	FailMove         error
	FailFolderDelete error
	FailList         error

	OnCreate func(b domain.Bookmark)
	OnList   func(ownerID string)
}

// Seed pre-populates bookmarks for one owner, newest first, with
// descending creation times.
func Seed(ownerID string, ids ...string) *Store {
	s := &Store{}
	now := time.Now().UTC()
	for i, id := range ids {
		s.Bookmarks = append(s.Bookmarks, domain.Bookmark{
			ID:        id,
			OwnerID:   ownerID,
			Title:     "Bookmark " + id,
			URL:       "https://" + id + ".example.com",
			CreatedAt: now.Add(-time.Duration(i) * time.Minute),
		})
	}
	return s
}

func (s *Store) CreateBookmark(_ context.Context, b domain.Bookmark) (domain.Bookmark, error) {
	s.mu.Lock()
	if s.FailCreate != nil {
		err := s.FailCreate
		s.mu.Unlock()
		return domain.Bookmark{}, err
	}
	s.seq++
	b.ID = fmt.Sprintf("b%d", s.seq)
	b.CreatedAt = time.Now().UTC()
	s.Bookmarks = slices.Insert(s.Bookmarks, 0, b)
	hook := s.OnCreate
	s.mu.Unlock()

	if hook != nil {
		hook(b)
	}
	return b, nil
}

func (s *Store) SetBookmarkFavorite(_ context.Context, ownerID, id string, favorite bool) (domain.Bookmark, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailFavorite != nil {
		return domain.Bookmark{}, s.FailFavorite
	}
	for i := range s.Bookmarks {
		if s.Bookmarks[i].ID == id && s.Bookmarks[i].OwnerID == ownerID {
			s.Bookmarks[i].Favorite = favorite
			return s.Bookmarks[i], nil
		}
	}
	return domain.Bookmark{}, store.ErrNotFound
}

func (s *Store) MoveBookmark(_ context.Context, ownerID, id, folderID string) (domain.Bookmark, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailMove != nil {
		return domain.Bookmark{}, s.FailMove
	}
	for i := range s.Bookmarks {
		if s.Bookmarks[i].ID == id && s.Bookmarks[i].OwnerID == ownerID {
			s.Bookmarks[i].FolderID = folderID
			return s.Bookmarks[i], nil
		}
	}
	return domain.Bookmark{}, store.ErrNotFound
}

func (s *Store) DeleteBookmark(_ context.Context, ownerID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailDelete != nil {
		return s.FailDelete
	}
	s.Bookmarks = slices.DeleteFunc(s.Bookmarks, func(b domain.Bookmark) bool {
		return b.ID == id && b.OwnerID == ownerID
	})
	return nil
}

func (s *Store) ListBookmarks(_ context.Context, ownerID string) ([]domain.Bookmark, error) {
	s.mu.Lock()
	hook, failErr := s.OnList, s.FailList
	s.mu.Unlock()
	if hook != nil {
		hook(ownerID)
	}
	if failErr != nil {
		return nil, failErr
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Bookmark, 0, len(s.Bookmarks))
	for _, b := range s.Bookmarks {
		if b.OwnerID == ownerID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *Store) CreateFolder(_ context.Context, f domain.Folder) (domain.Folder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	f.ID = fmt.Sprintf("f%d", s.seq)
	f.CreatedAt = time.Now().UTC()
	s.Folders = append(s.Folders, f)
	return f, nil
}

func (s *Store) DeleteFolder(_ context.Context, ownerID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailFolderDelete != nil {
		return s.FailFolderDelete
	}
	s.Folders = slices.DeleteFunc(s.Folders, func(f domain.Folder) bool {
		return f.ID == id && f.OwnerID == ownerID
	})
	return nil
}

func (s *Store) ListFolders(_ context.Context, ownerID string) ([]domain.Folder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Folder, 0, len(s.Folders))
	for _, f := range s.Folders {
		if f.OwnerID == ownerID {
			out = append(out, f)
		}
	}
	return out, nil
}
