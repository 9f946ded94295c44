// Package session owns the per-user reconciliation engine: the
// authoritative in-memory bookmark and folder collections for one
// signed-in session, kept consistent across optimistic local
// mutations, record-store confirmations and the live change feed.
package session

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/markitapp/markit/internal/domain"
	"github.com/markitapp/markit/internal/feed"
	"github.com/markitapp/markit/internal/logger"
	"github.com/markitapp/markit/internal/overlay"
	"github.com/markitapp/markit/internal/store"
)

// Engine reconciles one owner's collections. Mutating operations apply
// optimistically, then issue the remote write and compensate on
// failure — each operation with its own compensation policy, never a
// generic revert:
//
//   - add bookmark: no optimistic insert (the record needs its
//     server-assigned id before it can be deduplicated against feed
//     events); dedup-by-id on confirmation.
//   - delete bookmark: optimistic remove, full snapshot revert on
//     failure.
//   - toggle favorite: optimistic flip is never reverted; on failure
//     the local overlay becomes the durable record of intent.
//
// Feed events are consumed by a single goroutine and merged under the
// same lock, idempotently (insert dedup-by-id, update/delete ignore
// unknown ids), so duplicate or out-of-order delivery converges.
type Engine struct {
	owner   domain.User
	store   store.RecordStore
	feed    feed.Feed
	overlay *overlay.Set
	logger  logger.Logger

	mu        sync.RWMutex
	bookmarks []domain.Bookmark // newest first
	folders   []domain.Folder   // oldest first
	filter    domain.Filter

	cancel context.CancelFunc
	subs   []feed.Subscription
	wg     sync.WaitGroup

	watchMu  sync.Mutex
	watchers map[chan struct{}]struct{}
	closed   bool
}

// NewEngine creates an engine for one owner. Call Open before use.
func NewEngine(
	owner domain.User,
	recordStore store.RecordStore,
	changeFeed feed.Feed,
	overlaySet *overlay.Set,
	log logger.Logger,
) *Engine {
	return &Engine{
		owner:    owner,
		store:    recordStore,
		feed:     changeFeed,
		overlay:  overlaySet,
		logger:   log,
		filter:   domain.Filter{Nav: domain.NavAll},
		watchers: make(map[chan struct{}]struct{}),
	}
}

// Open seeds the collections from a one-time snapshot read and opens
// the change feed subscriptions. Called once per session.
func (e *Engine) Open(ctx context.Context) error {
	bookmarks, err := e.store.ListBookmarks(ctx, e.owner.ID)
	if err != nil {
		return fmt.Errorf("failed to seed bookmarks: %w", err)
	}
	folders, err := e.store.ListFolders(ctx, e.owner.ID)
	if err != nil {
		return fmt.Errorf("failed to seed folders: %w", err)
	}

	e.mu.Lock()
	e.bookmarks = bookmarks
	e.folders = folders
	e.mu.Unlock()

	// Subscriptions outlive the seeding request.
	feedCtx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel

	bookmarkSub, err := e.feed.Subscribe(feedCtx, e.owner.ID, feed.TypeBookmarks)
	if err != nil {
		cancel()
		return fmt.Errorf("failed to subscribe to bookmark feed: %w", err)
	}
	folderSub, err := e.feed.Subscribe(feedCtx, e.owner.ID, feed.TypeFolders)
	if err != nil {
		_ = bookmarkSub.Close()
		cancel()
		return fmt.Errorf("failed to subscribe to folder feed: %w", err)
	}
	e.subs = []feed.Subscription{bookmarkSub, folderSub}

	e.wg.Add(1)
	go e.run(bookmarkSub, folderSub)

	e.logger.Info("session opened",
		logger.String("owner_id", e.owner.ID),
		logger.Int("bookmarks", len(bookmarks)),
		logger.Int("folders", len(folders)))

	return nil
}

// Close tears the session down: subscriptions are closed and the feed
// goroutine drained, so no further events reach this engine.
func (e *Engine) Close() {
	if e.cancel != nil {
		e.cancel()
	}
	for _, sub := range e.subs {
		if err := sub.Close(); err != nil {
			e.logger.Warn("failed to close feed subscription",
				logger.String("owner_id", e.owner.ID),
				logger.Error(err))
		}
	}
	e.wg.Wait()

	e.watchMu.Lock()
	e.closed = true
	for ch := range e.watchers {
		close(ch)
	}
	e.watchers = make(map[chan struct{}]struct{})
	e.watchMu.Unlock()

	e.logger.Info("session closed", logger.String("owner_id", e.owner.ID))
}

// Owner returns the authenticated identity this engine serves.
func (e *Engine) Owner() domain.User { return e.owner }

// run is the single inbound processing point for feed events.
func (e *Engine) run(bookmarkSub, folderSub feed.Subscription) {
	defer e.wg.Done()

	bookmarkEvents := bookmarkSub.Events()
	folderEvents := folderSub.Events()

	for bookmarkEvents != nil || folderEvents != nil {
		select {
		case ev, ok := <-bookmarkEvents:
			if !ok {
				bookmarkEvents = nil
				continue
			}
			e.ApplyFeedEvent(feed.TypeBookmarks, ev)
		case ev, ok := <-folderEvents:
			if !ok {
				folderEvents = nil
				continue
			}
			e.ApplyFeedEvent(feed.TypeFolders, ev)
		}
	}
}

// ─────────────────────────────────────────────────────────────────
// Mutations
// ─────────────────────────────────────────────────────────────────

// AddBookmark validates and normalizes the input, creates the record
// and merges the confirmed record into the collection unless the feed
// delivered it first. There is no optimistic insert: the UI waits for
// the server-assigned id.
func (e *Engine) AddBookmark(ctx context.Context, title, url, folderID string) (domain.Bookmark, error) {
	b, err := domain.NewBookmark(e.owner.ID, title, url, folderID)
	if err != nil {
		return domain.Bookmark{}, err
	}

	created, err := e.store.CreateBookmark(ctx, b)
	if err != nil {
		e.logger.Error("bookmark create rejected by store",
			logger.String("owner_id", e.owner.ID),
			logger.Error(err))
		return domain.Bookmark{}, fmt.Errorf("failed to create bookmark: %w", err)
	}

	e.mu.Lock()
	if !hasBookmark(e.bookmarks, created.ID) {
		e.bookmarks = slices.Insert(e.bookmarks, 0, created)
	}
	e.mu.Unlock()
	e.notify()

	return created, nil
}

// DeleteBookmark removes the entry optimistically, then issues the
// remote delete. On failure the prior collection snapshot is restored
// in full.
func (e *Engine) DeleteBookmark(ctx context.Context, id string) error {
	e.mu.Lock()
	prev := slices.Clone(e.bookmarks)
	e.bookmarks = slices.DeleteFunc(e.bookmarks, func(b domain.Bookmark) bool {
		return b.ID == id
	})
	e.mu.Unlock()
	e.notify()

	if err := e.store.DeleteBookmark(ctx, e.owner.ID, id); err != nil {
		e.mu.Lock()
		e.bookmarks = prev
		e.mu.Unlock()
		e.notify()

		e.logger.Error("bookmark delete rejected by store, restored collection",
			logger.String("owner_id", e.owner.ID),
			logger.String("bookmark_id", id),
			logger.Error(err))
		return fmt.Errorf("failed to delete bookmark: %w", err)
	}

	// A later feed delete for the same id is a no-op.
	return nil
}

// ToggleFavorite flips the favorite flag optimistically and issues the
// remote update. The flip is never reverted: when the store rejects
// the write, the local overlay records the intent instead, so the
// value the user chose stays visible. Turning a favorite off always
// clears the overlay entry — otherwise the OR-merge would resurrect
// it forever.
func (e *Engine) ToggleFavorite(ctx context.Context, id string, current bool) (domain.Bookmark, error) {
	next := !current

	e.mu.Lock()
	var effective domain.Bookmark
	found := false
	for i := range e.bookmarks {
		if e.bookmarks[i].ID == id {
			e.bookmarks[i].Favorite = next
			effective = e.bookmarks[i]
			found = true
			break
		}
	}
	e.mu.Unlock()
	if !found {
		return domain.Bookmark{}, store.ErrNotFound
	}
	e.notify()

	if _, err := e.store.SetBookmarkFavorite(ctx, e.owner.ID, id, next); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// The record is already gone server-side; the feed delete
			// removes the local copy. Nothing to record in the overlay.
			return domain.Bookmark{}, store.ErrNotFound
		}
		e.logger.Warn("favorite update rejected by store, falling back to local overlay",
			logger.String("owner_id", e.owner.ID),
			logger.String("bookmark_id", id),
			logger.Error(err))

		if next {
			if oerr := e.overlay.Add(id); oerr != nil {
				e.logger.Warn("failed to persist favorite overlay", logger.Error(oerr))
			}
		} else {
			if oerr := e.overlay.Remove(id); oerr != nil {
				e.logger.Warn("failed to persist favorite overlay", logger.Error(oerr))
			}
		}
		return effective, nil
	}

	// Server confirmed. An overlay entry left behind from an earlier
	// failed toggle-on must not keep overriding a toggle-off.
	if !next && e.overlay.Contains(id) {
		if oerr := e.overlay.Remove(id); oerr != nil {
			e.logger.Warn("failed to persist favorite overlay", logger.Error(oerr))
		}
	}

	return effective, nil
}

// MoveBookmark changes the folder reference optimistically; on failure
// the single field is restored.
func (e *Engine) MoveBookmark(ctx context.Context, id, folderID string) error {
	e.mu.Lock()
	prevFolder := ""
	found := false
	for i := range e.bookmarks {
		if e.bookmarks[i].ID == id {
			prevFolder = e.bookmarks[i].FolderID
			e.bookmarks[i].FolderID = folderID
			found = true
			break
		}
	}
	e.mu.Unlock()
	if !found {
		return store.ErrNotFound
	}
	e.notify()

	if _, err := e.store.MoveBookmark(ctx, e.owner.ID, id, folderID); err != nil {
		e.mu.Lock()
		for i := range e.bookmarks {
			if e.bookmarks[i].ID == id {
				e.bookmarks[i].FolderID = prevFolder
				break
			}
		}
		e.mu.Unlock()
		e.notify()

		e.logger.Error("bookmark move rejected by store, restored folder",
			logger.String("owner_id", e.owner.ID),
			logger.String("bookmark_id", id),
			logger.Error(err))
		return fmt.Errorf("failed to move bookmark: %w", err)
	}

	return nil
}

// AddFolder creates a folder. Folder creation is rare and not
// latency-sensitive, so there is no optimistic insert: the feed event
// appends it (with the usual dedup guard).
func (e *Engine) AddFolder(ctx context.Context, name, color string) (domain.Folder, error) {
	f, err := domain.NewFolder(e.owner.ID, name, color)
	if err != nil {
		return domain.Folder{}, err
	}

	created, err := e.store.CreateFolder(ctx, f)
	if err != nil {
		e.logger.Error("folder create rejected by store",
			logger.String("owner_id", e.owner.ID),
			logger.Error(err))
		return domain.Folder{}, fmt.Errorf("failed to create folder: %w", err)
	}

	return created, nil
}

// DeleteFolder deletes the folder without cascading to bookmarks:
// their folder reference dangles and renders as unfiled. When the
// deleted folder is the active navigation filter, the filter resets
// to the "all" view.
func (e *Engine) DeleteFolder(ctx context.Context, id string) error {
	if err := e.store.DeleteFolder(ctx, e.owner.ID, id); err != nil {
		e.logger.Error("folder delete rejected by store",
			logger.String("owner_id", e.owner.ID),
			logger.String("folder_id", id),
			logger.Error(err))
		return fmt.Errorf("failed to delete folder: %w", err)
	}

	e.mu.Lock()
	if e.filter.Nav == domain.NavFolder && e.filter.FolderID == id {
		e.filter = domain.Filter{Nav: domain.NavAll}
	}
	e.mu.Unlock()
	e.notify()

	return nil
}

// ─────────────────────────────────────────────────────────────────
// Feed merge
// ─────────────────────────────────────────────────────────────────

// ApplyFeedEvent merges one change event into the collections.
// Application is idempotent and order-tolerant: duplicate inserts and
// deletes/updates for unknown ids are silently ignored.
func (e *Engine) ApplyFeedEvent(t feed.RecordType, ev feed.Event) {
	changed := false

	e.mu.Lock()
	switch t {
	case feed.TypeBookmarks:
		changed = e.applyBookmarkEventLocked(ev)
	case feed.TypeFolders:
		changed = e.applyFolderEventLocked(ev)
	}
	e.mu.Unlock()

	if changed {
		e.notify()
	}
}

func (e *Engine) applyBookmarkEventLocked(ev feed.Event) bool {
	if ev.Bookmark == nil {
		return false
	}
	b := *ev.Bookmark

	switch ev.Kind {
	case feed.KindInsert:
		if hasBookmark(e.bookmarks, b.ID) {
			return false
		}
		e.bookmarks = slices.Insert(e.bookmarks, 0, b)
		return true
	case feed.KindUpdate:
		for i := range e.bookmarks {
			if e.bookmarks[i].ID == b.ID {
				e.bookmarks[i] = b
				return true
			}
		}
		return false
	case feed.KindDelete:
		n := len(e.bookmarks)
		e.bookmarks = slices.DeleteFunc(e.bookmarks, func(x domain.Bookmark) bool {
			return x.ID == b.ID
		})
		return len(e.bookmarks) != n
	}
	return false
}

func (e *Engine) applyFolderEventLocked(ev feed.Event) bool {
	if ev.Folder == nil {
		return false
	}
	f := *ev.Folder

	switch ev.Kind {
	case feed.KindInsert:
		for i := range e.folders {
			if e.folders[i].ID == f.ID {
				return false
			}
		}
		e.folders = append(e.folders, f)
		return true
	case feed.KindUpdate:
		for i := range e.folders {
			if e.folders[i].ID == f.ID {
				e.folders[i] = f
				return true
			}
		}
		return false
	case feed.KindDelete:
		n := len(e.folders)
		e.folders = slices.DeleteFunc(e.folders, func(x domain.Folder) bool {
			return x.ID == f.ID
		})
		return len(e.folders) != n
	}
	return false
}

// ─────────────────────────────────────────────────────────────────
// View
// ─────────────────────────────────────────────────────────────────

// View is the merged, filtered, searched snapshot handed to the
// presentation layer.
type View struct {
	Bookmarks []domain.Bookmark `json:"bookmarks"`
	Folders   []domain.Folder   `json:"folders"`
	Filter    domain.Filter     `json:"-"`
	Counts    domain.Counts     `json:"counts"`
}

// SetFilter switches the active navigation filter.
func (e *Engine) SetFilter(f domain.Filter) {
	e.mu.Lock()
	e.filter = f
	e.mu.Unlock()
}

// Filter returns the active navigation filter.
func (e *Engine) Filter() domain.Filter {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.filter
}

// View projects the current collections through the active filter and
// the given search query.
func (e *Engine) View(query string) View {
	e.mu.RLock()
	bookmarks := slices.Clone(e.bookmarks)
	folders := slices.Clone(e.folders)
	filter := e.filter
	e.mu.RUnlock()

	return View{
		Bookmarks: domain.Project(bookmarks, filter, query, e.overlay.Contains),
		Folders:   folders,
		Filter:    filter,
		Counts:    domain.Count(bookmarks, folders, e.overlay.Contains),
	}
}

// Watch returns a channel that receives a (coalesced) signal whenever
// the collections change, and a cancel func that must be called when
// the watcher goes away. The channel is closed on engine Close.
func (e *Engine) Watch() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	e.watchMu.Lock()
	if e.closed {
		close(ch)
		e.watchMu.Unlock()
		return ch, func() {}
	}
	e.watchers[ch] = struct{}{}
	e.watchMu.Unlock()

	cancel := func() {
		e.watchMu.Lock()
		if _, ok := e.watchers[ch]; ok {
			delete(e.watchers, ch)
			close(ch)
		}
		e.watchMu.Unlock()
	}
	return ch, cancel
}

func (e *Engine) notify() {
	e.watchMu.Lock()
	for ch := range e.watchers {
		select {
		case ch <- struct{}{}:
		default: // watcher already has a pending signal
		}
	}
	e.watchMu.Unlock()
}

func hasBookmark(bookmarks []domain.Bookmark, id string) bool {
	for i := range bookmarks {
		if bookmarks[i].ID == id {
			return true
		}
	}
	return false
}
