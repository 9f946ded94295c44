package domain

import "strings"

// Nav is the active navigation filter of the dashboard sidebar.
type Nav string

const (
	NavAll       Nav = "all"
	NavFavorites Nav = "favorites"
	NavFolder    Nav = "folder"
)

// Filter selects the subset of bookmarks to render.
// FolderID is only meaningful when Nav == NavFolder.
type Filter struct {
	Nav      Nav
	FolderID string
}

// Counts are the derived numbers shown next to each sidebar entry.
// PerFolder only carries keys for folders that still exist; bookmarks
// pointing at a deleted folder are counted nowhere but in Total.
type Counts struct {
	Total     int            `json:"total"`
	Favorites int            `json:"favorites"`
	PerFolder map[string]int `json:"per_folder"`
}

// OverlayFunc reports local-overlay favorite membership for a bookmark id.
type OverlayFunc func(id string) bool

// Project computes the merged, filtered, searched view. It is a pure
// function of its inputs: the returned bookmarks carry the effective
// favorite flag (server flag OR overlay membership), the navigation
// filter is applied first, then the free-text query matches
// case-insensitively against title or URL. Relative order of the input
// is preserved; there is no ranking.
func Project(bookmarks []Bookmark, filter Filter, query string, overlay OverlayFunc) []Bookmark {
	out := make([]Bookmark, 0, len(bookmarks))

	q := strings.ToLower(strings.TrimSpace(query))

	for _, b := range bookmarks {
		if overlay != nil && overlay(b.ID) {
			b.Favorite = true
		}

		switch filter.Nav {
		case NavFavorites:
			if !b.Favorite {
				continue
			}
		case NavFolder:
			if filter.FolderID == "" || b.FolderID != filter.FolderID {
				continue
			}
		}

		if q != "" &&
			!strings.Contains(strings.ToLower(b.Title), q) &&
			!strings.Contains(strings.ToLower(b.URL), q) {
			continue
		}

		out = append(out, b)
	}

	return out
}

// Count derives the sidebar counters from the full collections.
func Count(bookmarks []Bookmark, folders []Folder, overlay OverlayFunc) Counts {
	c := Counts{
		Total:     len(bookmarks),
		PerFolder: make(map[string]int, len(folders)),
	}

	known := make(map[string]bool, len(folders))
	for _, f := range folders {
		known[f.ID] = true
		c.PerFolder[f.ID] = 0
	}

	for _, b := range bookmarks {
		if b.Favorite || (overlay != nil && overlay(b.ID)) {
			c.Favorites++
		}
		// Dangling folder references count as unfiled.
		if b.FolderID != "" && known[b.FolderID] {
			c.PerFolder[b.FolderID]++
		}
	}

	return c
}
