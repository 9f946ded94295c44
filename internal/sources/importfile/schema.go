package importfile

// FolderEntry is one folder declaration in the import file.
type FolderEntry struct {
	Name  string `yaml:"name"`
	Color string `yaml:"color"`
}

// BookmarkEntry is one bookmark declaration in the import file.
// Folder refers to a folder by name, not id.
type BookmarkEntry struct {
	Title    string `yaml:"title"`
	URL      string `yaml:"url"`
	Folder   string `yaml:"folder"`
	Favorite bool   `yaml:"favorite"`
}

// File is the root structure of a bookmarks import yaml.
type File struct {
	Folders   []FolderEntry   `yaml:"folders"`
	Bookmarks []BookmarkEntry `yaml:"bookmarks"`
}
