package session

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/markitapp/markit/internal/domain"
	"github.com/markitapp/markit/internal/feed"
	"github.com/markitapp/markit/internal/feed/feedtest"
	"github.com/markitapp/markit/internal/logger"
	"github.com/markitapp/markit/internal/overlay"
	"github.com/markitapp/markit/internal/store"
	"github.com/markitapp/markit/internal/store/storetest"
)

var owner = domain.User{ID: "u1", Email: "alex@example.com"}

func newTestEngine(t *testing.T, fs *storetest.Store) *Engine {
	t.Helper()

	overlays, err := overlay.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("overlay.NewStore() failed: %v", err)
	}
	set, err := overlays.Load(owner.ID)
	if err != nil {
		t.Fatalf("overlay load failed: %v", err)
	}

	e := NewEngine(owner, fs, feedtest.New(), set, logger.New("error", false))
	if err := e.Open(context.Background()); err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(e.Close)
	return e
}

func seeded(ids ...string) *storetest.Store {
	return storetest.Seed(owner.ID, ids...)
}

func viewIDs(v View) []string {
	out := make([]string, 0, len(v.Bookmarks))
	for _, b := range v.Bookmarks {
		out = append(out, b.ID)
	}
	return out
}

// ─────────────────────────────────────────────────────────────────
// Add
// ─────────────────────────────────────────────────────────────────

func TestAddBookmarkValidation(t *testing.T) {
	fs := seeded()
	e := newTestEngine(t, fs)

	_, err := e.AddBookmark(context.Background(), "   ", "example.com", "")
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("AddBookmark() error = %v, want ValidationError", err)
	}

	// Nothing reached the store and nothing changed locally.
	if len(fs.Bookmarks) != 0 {
		t.Error("validation failure must not issue a store request")
	}
	if v := e.View(""); len(v.Bookmarks) != 0 {
		t.Error("validation failure must not mutate the collection")
	}
}

func TestAddBookmarkNormalizesScheme(t *testing.T) {
	e := newTestEngine(t, seeded())

	created, err := e.AddBookmark(context.Background(), "Example", "example.com", "")
	if err != nil {
		t.Fatalf("AddBookmark() failed: %v", err)
	}
	if created.URL != "https://example.com" {
		t.Errorf("submitted url = %q, want %q", created.URL, "https://example.com")
	}
}

func TestAddBookmarkNoOptimisticInsertOnFailure(t *testing.T) {
	fs := seeded("b1")
	fs.FailCreate = errors.New("store down")
	e := newTestEngine(t, fs)

	if _, err := e.AddBookmark(context.Background(), "X", "x.com", ""); err == nil {
		t.Fatal("AddBookmark() should surface the store failure")
	}

	got := viewIDs(e.View(""))
	if !slices.Equal(got, []string{"b1"}) {
		t.Errorf("collection after failed add = %v, want [b1]", got)
	}
}

func TestAddBookmarkDedupWhenFeedWinsRace(t *testing.T) {
	fs := seeded()
	e := newTestEngine(t, fs)

	// The feed delivers the insert before the create call returns.
	fs.OnCreate = func(b domain.Bookmark) {
		e.ApplyFeedEvent(feed.TypeBookmarks, feed.Event{Kind: feed.KindInsert, Bookmark: &b})
	}

	created, err := e.AddBookmark(context.Background(), "Example", "example.com", "")
	if err != nil {
		t.Fatalf("AddBookmark() failed: %v", err)
	}

	got := viewIDs(e.View(""))
	if !slices.Equal(got, []string{created.ID}) {
		t.Errorf("collection = %v, want exactly one entry %s", got, created.ID)
	}
}

// ─────────────────────────────────────────────────────────────────
// Delete
// ─────────────────────────────────────────────────────────────────

func TestDeleteBookmarkOptimisticRevert(t *testing.T) {
	fs := seeded("b1", "b2", "b3")
	fs.FailDelete = errors.New("store down")
	e := newTestEngine(t, fs)

	before := viewIDs(e.View(""))

	if err := e.DeleteBookmark(context.Background(), "b2"); err == nil {
		t.Fatal("DeleteBookmark() should surface the store failure")
	}

	after := viewIDs(e.View(""))
	if !slices.Equal(after, before) {
		t.Errorf("collection after revert = %v, want %v (same members, same order)", after, before)
	}
}

func TestDeleteBookmarkThenFeedDeleteIsNoop(t *testing.T) {
	e := newTestEngine(t, seeded("b1", "b2"))

	if err := e.DeleteBookmark(context.Background(), "b1"); err != nil {
		t.Fatalf("DeleteBookmark() failed: %v", err)
	}

	// The feed echoes the delete; the id is already gone.
	e.ApplyFeedEvent(feed.TypeBookmarks, feed.Event{
		Kind:     feed.KindDelete,
		Bookmark: &domain.Bookmark{ID: "b1", OwnerID: owner.ID},
	})

	got := viewIDs(e.View(""))
	if !slices.Equal(got, []string{"b2"}) {
		t.Errorf("collection = %v, want [b2]", got)
	}
}

// ─────────────────────────────────────────────────────────────────
// Favorite toggle + overlay fallback
// ─────────────────────────────────────────────────────────────────

func TestToggleFavoriteFallbackRatchet(t *testing.T) {
	fs := seeded("b1")
	fs.FailFavorite = errors.New("store down")
	e := newTestEngine(t, fs)

	// Turning on fails remotely: the flip stays visible and the
	// overlay records the intent.
	if _, err := e.ToggleFavorite(context.Background(), "b1", false); err != nil {
		t.Fatalf("ToggleFavorite() should not fail when the overlay absorbs the write: %v", err)
	}

	v := e.View("")
	if len(v.Bookmarks) != 1 || !v.Bookmarks[0].Favorite {
		t.Fatal("effective favorite should be true after overlay fallback")
	}
	if v.Counts.Favorites != 1 {
		t.Errorf("favorite count = %d, want 1", v.Counts.Favorites)
	}

	// Server-side flag never changed.
	if fs.Bookmarks[0].Favorite {
		t.Error("server flag must stay false after a failed update")
	}

	// Turning off succeeds remotely: overlay entry is cleared so the
	// OR-merge cannot resurrect it.
	fs.FailFavorite = nil
	if _, err := e.ToggleFavorite(context.Background(), "b1", true); err != nil {
		t.Fatalf("ToggleFavorite() failed: %v", err)
	}

	v = e.View("")
	if v.Bookmarks[0].Favorite {
		t.Error("effective favorite should be false after successful toggle off")
	}
	if v.Counts.Favorites != 0 {
		t.Errorf("favorite count = %d, want 0", v.Counts.Favorites)
	}
}

func TestToggleFavoriteFailureTurningOffClearsOverlay(t *testing.T) {
	fs := seeded("b1")
	fs.FailFavorite = errors.New("store down")
	e := newTestEngine(t, fs)

	// On, then off, both while the store is down.
	if _, err := e.ToggleFavorite(context.Background(), "b1", false); err != nil {
		t.Fatalf("ToggleFavorite() failed: %v", err)
	}
	if _, err := e.ToggleFavorite(context.Background(), "b1", true); err != nil {
		t.Fatalf("ToggleFavorite() failed: %v", err)
	}

	v := e.View("")
	if v.Bookmarks[0].Favorite {
		t.Error("effective favorite should be false after toggling off")
	}
}

func TestToggleFavoriteUnknownID(t *testing.T) {
	fs := seeded("b1")
	fs.FailFavorite = errors.New("store down")
	e := newTestEngine(t, fs)

	// No flip was applied, so there is nothing for the overlay to
	// preserve: the caller gets a not-found, not a fake success.
	_, err := e.ToggleFavorite(context.Background(), "ghost", false)
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("ToggleFavorite() error = %v, want ErrNotFound", err)
	}

	if e.overlay.Contains("ghost") {
		t.Error("unknown id must not be written into the overlay")
	}
	if v := e.View(""); v.Counts.Favorites != 0 {
		t.Errorf("favorite count = %d, want 0", v.Counts.Favorites)
	}
}

func TestToggleFavoriteDeletedServerSide(t *testing.T) {
	// Locally present but already deleted remotely: surface not-found
	// instead of ratcheting a doomed id into the overlay.
	fs := seeded("b1")
	e := newTestEngine(t, fs)
	fs.Bookmarks = nil // deleted by another device, feed event still in flight

	_, err := e.ToggleFavorite(context.Background(), "b1", false)
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("ToggleFavorite() error = %v, want ErrNotFound", err)
	}
	if e.overlay.Contains("b1") {
		t.Error("overlay must not record a favorite for a deleted record")
	}
}

func TestFeedUpdateOverwritesOptimisticFlip(t *testing.T) {
	// Accepted race: an update event arriving after an unconfirmed
	// optimistic flip wins by arrival order.
	fs := seeded("b1")
	fs.FailFavorite = errors.New("store down")
	e := newTestEngine(t, fs)

	if _, err := e.ToggleFavorite(context.Background(), "b1", false); err != nil {
		t.Fatalf("ToggleFavorite() failed: %v", err)
	}

	remote := fs.Bookmarks[0] // server copy, favorite still false
	e.ApplyFeedEvent(feed.TypeBookmarks, feed.Event{Kind: feed.KindUpdate, Bookmark: &remote})

	// The in-memory flag is overwritten, but the overlay still ORs the
	// local intent into the projection.
	v := e.View("")
	if !v.Bookmarks[0].Favorite {
		t.Error("overlay membership should keep the effective value true")
	}
}

// ─────────────────────────────────────────────────────────────────
// Feed idempotence
// ─────────────────────────────────────────────────────────────────

func TestFeedInsertIdempotent(t *testing.T) {
	e := newTestEngine(t, seeded("b1"))

	nb := domain.Bookmark{ID: "b9", OwnerID: owner.ID, Title: "New", URL: "https://n.example.com"}
	ev := feed.Event{Kind: feed.KindInsert, Bookmark: &nb}
	e.ApplyFeedEvent(feed.TypeBookmarks, ev)
	e.ApplyFeedEvent(feed.TypeBookmarks, ev)

	got := viewIDs(e.View(""))
	if !slices.Equal(got, []string{"b9", "b1"}) {
		t.Errorf("collection = %v, want [b9 b1] (no duplicate, newest first)", got)
	}
}

func TestFeedDeleteUnknownIgnored(t *testing.T) {
	e := newTestEngine(t, seeded("b1"))

	e.ApplyFeedEvent(feed.TypeBookmarks, feed.Event{
		Kind:     feed.KindDelete,
		Bookmark: &domain.Bookmark{ID: "nope"},
	})

	got := viewIDs(e.View(""))
	if !slices.Equal(got, []string{"b1"}) {
		t.Errorf("collection = %v, want [b1]", got)
	}
}

func TestFeedUpdateUnknownIgnored(t *testing.T) {
	e := newTestEngine(t, seeded("b1"))

	e.ApplyFeedEvent(feed.TypeBookmarks, feed.Event{
		Kind:     feed.KindUpdate,
		Bookmark: &domain.Bookmark{ID: "nope", Title: "ghost"},
	})

	v := e.View("")
	if len(v.Bookmarks) != 1 || v.Bookmarks[0].Title != "Bookmark b1" {
		t.Error("update for an unknown id must be silently ignored")
	}
}

func TestFolderFeedEvents(t *testing.T) {
	e := newTestEngine(t, seeded())

	f1 := domain.Folder{ID: "f1", OwnerID: owner.ID, Name: "Work", Color: "#3B82F6"}
	ins := feed.Event{Kind: feed.KindInsert, Folder: &f1}
	e.ApplyFeedEvent(feed.TypeFolders, ins)
	e.ApplyFeedEvent(feed.TypeFolders, ins) // duplicate delivery

	if v := e.View(""); len(v.Folders) != 1 {
		t.Fatalf("folders = %d, want 1", len(v.Folders))
	}

	renamed := f1
	renamed.Name = "Research"
	e.ApplyFeedEvent(feed.TypeFolders, feed.Event{Kind: feed.KindUpdate, Folder: &renamed})
	if v := e.View(""); v.Folders[0].Name != "Research" {
		t.Errorf("folder name = %q, want %q", v.Folders[0].Name, "Research")
	}

	e.ApplyFeedEvent(feed.TypeFolders, feed.Event{Kind: feed.KindDelete, Folder: &f1})
	if v := e.View(""); len(v.Folders) != 0 {
		t.Error("folder delete event should remove the folder")
	}
}

func TestFeedSubscriptionDeliversToEngine(t *testing.T) {
	fs := seeded()
	overlays, err := overlay.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("overlay.NewStore() failed: %v", err)
	}
	set, _ := overlays.Load(owner.ID)

	f := feedtest.New()
	e := NewEngine(owner, fs, f, set, logger.New("error", false))
	if err := e.Open(context.Background()); err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(e.Close)

	ch, cancel := e.Watch()
	defer cancel()

	f.Publish(owner.ID, feed.TypeBookmarks, feed.Event{
		Kind:     feed.KindInsert,
		Bookmark: &domain.Bookmark{ID: "b7", OwnerID: owner.ID, Title: "Pushed", URL: "https://p.example.com"},
	})

	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("no change signal after published feed event")
	}

	got := viewIDs(e.View(""))
	if !slices.Equal(got, []string{"b7"}) {
		t.Errorf("collection = %v, want [b7]", got)
	}
}

// ─────────────────────────────────────────────────────────────────
// Folders
// ─────────────────────────────────────────────────────────────────

func TestDeleteFolderResetsActiveFilter(t *testing.T) {
	fs := seeded("b1")
	fs.Bookmarks[0].FolderID = "f1"
	fs.Folders = []domain.Folder{{ID: "f1", OwnerID: owner.ID, Name: "Work"}}
	e := newTestEngine(t, fs)

	e.SetFilter(domain.Filter{Nav: domain.NavFolder, FolderID: "f1"})

	if err := e.DeleteFolder(context.Background(), "f1"); err != nil {
		t.Fatalf("DeleteFolder() failed: %v", err)
	}

	if got := e.Filter(); got.Nav != domain.NavAll {
		t.Errorf("active filter = %+v, want reset to all", got)
	}

	// No cascade: the bookmark keeps its dangling folder reference.
	v := e.View("")
	if v.Bookmarks[0].FolderID != "f1" {
		t.Errorf("bookmark folder id = %q, want dangling %q", v.Bookmarks[0].FolderID, "f1")
	}
}

func TestDeleteFolderKeepsUnrelatedFilter(t *testing.T) {
	fs := seeded()
	fs.Folders = []domain.Folder{
		{ID: "f1", OwnerID: owner.ID, Name: "Work"},
		{ID: "f2", OwnerID: owner.ID, Name: "Play"},
	}
	e := newTestEngine(t, fs)

	e.SetFilter(domain.Filter{Nav: domain.NavFolder, FolderID: "f2"})
	if err := e.DeleteFolder(context.Background(), "f1"); err != nil {
		t.Fatalf("DeleteFolder() failed: %v", err)
	}

	if got := e.Filter(); got.Nav != domain.NavFolder || got.FolderID != "f2" {
		t.Errorf("active filter = %+v, want folder f2 untouched", got)
	}
}

// ─────────────────────────────────────────────────────────────────
// Move
// ─────────────────────────────────────────────────────────────────

func TestMoveBookmarkRevertsOnFailure(t *testing.T) {
	fs := seeded("b1")
	fs.Bookmarks[0].FolderID = "f1"
	fs.FailMove = errors.New("store down")
	e := newTestEngine(t, fs)

	if err := e.MoveBookmark(context.Background(), "b1", "f2"); err == nil {
		t.Fatal("MoveBookmark() should surface the store failure")
	}

	v := e.View("")
	if v.Bookmarks[0].FolderID != "f1" {
		t.Errorf("folder id = %q, want restored %q", v.Bookmarks[0].FolderID, "f1")
	}
}

// ─────────────────────────────────────────────────────────────────
// Watch
// ─────────────────────────────────────────────────────────────────

func TestWatchSignalsOnChange(t *testing.T) {
	e := newTestEngine(t, seeded())

	ch, cancel := e.Watch()
	defer cancel()

	if _, err := e.AddBookmark(context.Background(), "X", "x.com", ""); err != nil {
		t.Fatalf("AddBookmark() failed: %v", err)
	}

	select {
	case _, ok := <-ch:
		if !ok {
			t.Fatal("watch channel closed unexpectedly")
		}
	case <-time.After(time.Second):
		t.Fatal("no change signal received")
	}
}

func TestWatchClosedOnEngineClose(t *testing.T) {
	e := newTestEngine(t, seeded())

	ch, cancel := e.Watch()
	defer cancel()

	e.Close()

	select {
	case _, ok := <-ch:
		if ok {
			// Drain a pending signal, the close must follow.
			if _, ok := <-ch; ok {
				t.Fatal("watch channel should be closed after engine Close")
			}
		}
	case <-time.After(time.Second):
		t.Fatal("watch channel not closed after engine Close")
	}
}
