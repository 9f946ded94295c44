package importfile

import (
	"github.com/markitapp/markit/internal/domain"
)

// Draft is a bookmark ready to create once its folder name has been
// resolved to a folder id.
type Draft struct {
	Bookmark   domain.Bookmark
	FolderName string
}

// Mapper converts parsed import entries into domain records for one
// owner. Entries that fail validation are skipped, not fatal: one bad
// line must not block the rest of the file.
type Mapper struct {
	ownerID string
}

// NewMapper creates a mapper for the given owner.
func NewMapper(ownerID string) *Mapper {
	return &Mapper{ownerID: ownerID}
}

// Folders returns one draft folder per uniquely named entry, along
// with the number of skipped entries.
func (m *Mapper) Folders(f File) (folders []domain.Folder, skipped int) {
	seen := make(map[string]bool, len(f.Folders))

	for _, entry := range f.Folders {
		if seen[entry.Name] {
			skipped++
			continue
		}
		folder, err := domain.NewFolder(m.ownerID, entry.Name, entry.Color)
		if err != nil {
			skipped++
			continue
		}
		seen[entry.Name] = true
		folders = append(folders, folder)
	}

	return folders, skipped
}

// Bookmarks returns draft bookmarks with their folder names attached,
// along with the number of skipped entries. URLs are normalized the
// same way user-submitted ones are.
func (m *Mapper) Bookmarks(f File) (drafts []Draft, skipped int) {
	for _, entry := range f.Bookmarks {
		b, err := domain.NewBookmark(m.ownerID, entry.Title, entry.URL, "")
		if err != nil {
			skipped++
			continue
		}
		b.Favorite = entry.Favorite
		drafts = append(drafts, Draft{Bookmark: b, FolderName: entry.Folder})
	}

	return drafts, skipped
}
