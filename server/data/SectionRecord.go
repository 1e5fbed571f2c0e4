package data

// SectionRecord is one section of regulatory text, keyed by
// (year, title, part, section). Records are immutable once written;
// re-running a conversion regenerates them wholesale.
type SectionRecord struct {
	Year          string `json:"year"`
	TitleNumber   int    `json:"title_number"`
	PartNumber    string `json:"part_number"`
	PartTitle     string `json:"part_title"`
	SectionNumber string `json:"section_number"`
	SectionTitle  string `json:"section_title"`
	Content       string `json:"content"`
	// Empty distinguishes a section with no body text (e.g. "Reserved")
	// from one that has not been processed.
	Empty bool `json:"empty"`
}

// PartContainer holds all sections of one part. Owned by exactly one
// TitleFile.
type PartContainer struct {
	PartNumber string                    `json:"part_number"`
	PartTitle  string                    `json:"part_title"`
	Sections   map[string]*SectionRecord `json:"sections"`
}

// TitleFile is the per-(year, title) storage container, the unit of
// persistence and of parallel-write isolation.
type TitleFile struct {
	Year        string                    `json:"year"`
	TitleNumber int                       `json:"title_number"`
	Volume      string                    `json:"volume"`
	Parts       map[string]*PartContainer `json:"parts"`
}

// Section returns the record for (part, section), or nil.
func (t *TitleFile) Section(part string, section string) *SectionRecord {
	p, ok := t.Parts[part]
	if !ok {
		return nil
	}
	return p.Sections[section]
}

// SectionCount returns the number of sections across all parts.
func (t *TitleFile) SectionCount() int {
	n := 0
	for _, p := range t.Parts {
		n += len(p.Sections)
	}
	return n
}
