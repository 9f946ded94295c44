package redis

const (
	// KeyPrefixBookmark is the prefix for bookmark record keys
	KeyPrefixBookmark = "markit:bookmark:"
	// KeyPrefixFolder is the prefix for folder record keys
	KeyPrefixFolder = "markit:folder:"
	// KeyPrefixOwner is the prefix for per-owner collection keys
	KeyPrefixOwner = "markit:user:"
)

// BookmarkKey returns the Redis key for a bookmark record
func BookmarkKey(id string) string {
	return KeyPrefixBookmark + id
}

// FolderKey returns the Redis key for a folder record
func FolderKey(id string) string {
	return KeyPrefixFolder + id
}

// OwnerBookmarksKey returns the key of the owner's bookmark id set,
// a sorted set scored by creation time
func OwnerBookmarksKey(ownerID string) string {
	return KeyPrefixOwner + ownerID + ":bookmarks"
}

// OwnerFoldersKey returns the key of the owner's folder id set
func OwnerFoldersKey(ownerID string) string {
	return KeyPrefixOwner + ownerID + ":folders"
}
