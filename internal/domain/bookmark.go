package domain

import "time"

// Bookmark is a saved URL belonging to exactly one owner.
type Bookmark struct {
	// ─────────────────────────────
	// Identity (immutable)
	// ─────────────────────────────

	// ID is the canonical unique identifier, assigned by the record
	// store on creation. Never reused within an owner's collection.
	ID string `json:"id"`

	// OwnerID is the authenticated user this bookmark belongs to.
	OwnerID string `json:"owner_id"`

	// ─────────────────────────────
	// Content
	// ─────────────────────────────

	// Title is the display title. Non-empty after trimming.
	Title string `json:"title"`

	// URL is the full target URL, normalized to carry a scheme.
	// Example: https://chat.openai.com/
	URL string `json:"url"`

	// FolderID is a weak reference to a Folder of the same owner.
	// Empty means unfiled. A dangling reference (folder deleted)
	// is also treated as unfiled, never as an error.
	FolderID string `json:"folder_id,omitempty"`

	// ─────────────────────────────
	// State
	// ─────────────────────────────

	// Favorite is the server-side favorite flag. The effective value
	// shown to the user is this flag OR'd with the local overlay.
	Favorite bool `json:"favorite"`

	// CreatedAt is assigned once by the record store.
	CreatedAt time.Time `json:"created_at"`
}

// Folder groups bookmarks for navigation. Deleting a folder does not
// touch the bookmarks referencing it.
type Folder struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Name      string    `json:"name"`
	Color     string    `json:"color"`
	CreatedAt time.Time `json:"created_at"`
}

// User is the authenticated identity extracted by the session gate.
type User struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
}
