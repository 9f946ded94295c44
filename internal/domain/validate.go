package domain

import (
	"fmt"
	"regexp"
	"strings"
)

// ValidationError reports malformed user input. It is surfaced
// synchronously, before any request reaches the record store.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

var schemeRe = regexp.MustCompile(`(?i)^https?://`)

// NormalizeURL trims the raw URL and prepends https:// when no
// recognized scheme is present.
func NormalizeURL(raw string) string {
	u := strings.TrimSpace(raw)
	if u == "" {
		return ""
	}
	if !schemeRe.MatchString(u) {
		u = "https://" + u
	}
	return u
}

// NewBookmark validates user input and returns a bookmark ready for
// submission to the record store. ID and CreatedAt are left empty;
// the store assigns them.
func NewBookmark(ownerID, title, url, folderID string) (Bookmark, error) {
	if ownerID == "" {
		return Bookmark{}, &ValidationError{Field: "owner", Reason: "missing owner id"}
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return Bookmark{}, &ValidationError{Field: "title", Reason: "must not be empty"}
	}
	normalized := NormalizeURL(url)
	if normalized == "" {
		return Bookmark{}, &ValidationError{Field: "url", Reason: "must not be empty"}
	}
	return Bookmark{
		OwnerID:  ownerID,
		Title:    title,
		URL:      normalized,
		FolderID: strings.TrimSpace(folderID),
	}, nil
}

// NewFolder validates user input and returns a folder ready for
// submission to the record store.
func NewFolder(ownerID, name, color string) (Folder, error) {
	if ownerID == "" {
		return Folder{}, &ValidationError{Field: "owner", Reason: "missing owner id"}
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return Folder{}, &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	color = strings.TrimSpace(color)
	if color == "" {
		color = DefaultFolderColor
	}
	return Folder{
		OwnerID: ownerID,
		Name:    name,
		Color:   color,
	}, nil
}

// DefaultFolderColor matches the first swatch offered by the dashboard.
const DefaultFolderColor = "#FF1B6D"
