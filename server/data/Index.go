package data

// IndexPart lists the sections a part contains, as a set for O(1)
// membership checks.
type IndexPart struct {
	PartTitle string          `json:"part_title"`
	Sections  map[string]bool `json:"sections"`
}

// IndexEntry locates the TitleFile holding a (year, title) pair. File is
// a path relative to the store root.
type IndexEntry struct {
	File  string                `json:"file"`
	Parts map[string]*IndexPart `json:"parts"`
}

// Index maps every (year, title, part, section) key in the corpus to the
// TitleFile that contains it. It is rebuilt from scratch after each
// conversion run, never patched incrementally.
type Index struct {
	// Entries is keyed by year, then by title number.
	Entries map[string]map[string]*IndexEntry `json:"entries"`
}

// NewIndex creates an empty index.
func NewIndex() *Index {
	return &Index{Entries: map[string]map[string]*IndexEntry{}}
}

// Locate returns the entry for (year, title), or nil.
func (i *Index) Locate(year string, title string) *IndexEntry {
	titles, ok := i.Entries[year]
	if !ok {
		return nil
	}
	return titles[title]
}

// Contains reports whether the full (year, title, part, section) key is
// present. Each step is a map lookup, so the cost is independent of
// corpus size.
func (i *Index) Contains(year string, title string, part string, section string) bool {
	entry := i.Locate(year, title)
	if entry == nil {
		return false
	}
	p, ok := entry.Parts[part]
	if !ok {
		return false
	}
	return p.Sections[section]
}
