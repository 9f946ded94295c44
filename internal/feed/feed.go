package feed

import (
	"context"

	"github.com/markitapp/markit/internal/domain"
)

// RecordType selects which collection a subscription or event refers to.
type RecordType string

const (
	TypeBookmarks RecordType = "bookmarks"
	TypeFolders   RecordType = "folders"
)

// Kind is the change kind carried by an event.
type Kind string

const (
	KindInsert Kind = "insert"
	KindUpdate Kind = "update"
	KindDelete Kind = "delete"
)

// Event is one change notification. Exactly one of Bookmark or Folder
// is set, matching the subscription's record type. Delivery is
// at-least-once with no ordering guarantee relative to local writes;
// consumers must apply events idempotently (dedup by id).
type Event struct {
	Kind     Kind             `json:"kind"`
	Bookmark *domain.Bookmark `json:"bookmark,omitempty"`
	Folder   *domain.Folder   `json:"folder,omitempty"`
}

// Subscription is an open change stream for one owner and record type.
type Subscription interface {
	// Events is closed after Close returns; no events are delivered
	// past that point.
	Events() <-chan Event
	Close() error
}

// Feed opens change streams scoped to a single owner.
type Feed interface {
	Subscribe(ctx context.Context, ownerID string, t RecordType) (Subscription, error)
}
