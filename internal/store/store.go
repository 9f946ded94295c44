package store

import (
	"context"
	"errors"

	"github.com/markitapp/markit/internal/domain"
)

// ErrNotFound is returned when a record id does not resolve for the
// given owner.
var ErrNotFound = errors.New("record not found")

// RecordStore is the durable storage boundary for bookmarks and
// folders. Create operations assign the record id and creation
// timestamp. Every operation is scoped to one owner; an id belonging
// to another owner behaves as not found.
//
// Implementations are expected to emit a change-feed event after each
// successful write so that other sessions of the same owner converge.
type RecordStore interface {
	CreateBookmark(ctx context.Context, b domain.Bookmark) (domain.Bookmark, error)
	SetBookmarkFavorite(ctx context.Context, ownerID, id string, favorite bool) (domain.Bookmark, error)
	MoveBookmark(ctx context.Context, ownerID, id, folderID string) (domain.Bookmark, error)
	DeleteBookmark(ctx context.Context, ownerID, id string) error

	// ListBookmarks returns the owner's bookmarks newest first.
	ListBookmarks(ctx context.Context, ownerID string) ([]domain.Bookmark, error)

	CreateFolder(ctx context.Context, f domain.Folder) (domain.Folder, error)

	// DeleteFolder removes the folder only. Bookmarks referencing it
	// keep their folder id; the projection treats them as unfiled.
	DeleteFolder(ctx context.Context, ownerID, id string) error

	// ListFolders returns the owner's folders oldest first.
	ListFolders(ctx context.Context, ownerID string) ([]domain.Folder, error)
}
