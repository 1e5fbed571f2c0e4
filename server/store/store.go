package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"

	"github.com/regdata/cfr-engine/server/data"
)

// IndexFileName is the top-level index written next to the year
// directories.
const IndexFileName = "index.json"

// Writer persists TitleFiles and rebuilds the corpus index. Writes for
// different (year, title) pairs never contend; a TitleFile is written
// fully (temp file + rename) before its keys are admitted to the index.
type Writer struct {
	rootDir string
}

// NewWriter creates a writer rooted at the store directory.
func NewWriter(rootDir string) *Writer {
	return &Writer{rootDir: rootDir}
}

// TitleFilePath returns the store-relative path of a (year, title)
// container.
func TitleFilePath(year string, titleNumber int) string {
	return path.Join(year, fmt.Sprintf("title_%d.json", titleNumber))
}

// WriteTitleFile persists one container. The write goes to a temporary
// file first and is renamed into place, so an interrupted run never
// leaves a partially-written TitleFile visible.
func (w *Writer) WriteTitleFile(titleFile *data.TitleFile) error {
	target := filepath.Join(w.rootDir, filepath.FromSlash(TitleFilePath(titleFile.Year, titleFile.TitleNumber)))

	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return fmt.Errorf("error creating year directory: %w", err)
	}

	return writeJSONAtomic(target, titleFile)
}

// BuildIndex scans the keys of just-written TitleFiles and produces the
// corpus index. A TitleFile claimed by the index but absent from disk is
// an invariant violation and aborts the build.
func (w *Writer) BuildIndex(titleFiles []*data.TitleFile) (*data.Index, error) {
	index := data.NewIndex()

	for _, titleFile := range titleFiles {
		relPath := TitleFilePath(titleFile.Year, titleFile.TitleNumber)
		absPath := filepath.Join(w.rootDir, filepath.FromSlash(relPath))
		if _, err := os.Stat(absPath); err != nil {
			return nil, fmt.Errorf("index inconsistency: %s claimed but not on disk: %w", relPath, err)
		}

		titles, ok := index.Entries[titleFile.Year]
		if !ok {
			titles = map[string]*data.IndexEntry{}
			index.Entries[titleFile.Year] = titles
		}

		entry := &data.IndexEntry{
			File:  relPath,
			Parts: map[string]*data.IndexPart{},
		}
		for partNumber, part := range titleFile.Parts {
			sections := make(map[string]bool, len(part.Sections))
			for sectionNumber := range part.Sections {
				sections[sectionNumber] = true
			}
			entry.Parts[partNumber] = &data.IndexPart{
				PartTitle: part.PartTitle,
				Sections:  sections,
			}
		}
		titles[fmt.Sprintf("%d", titleFile.TitleNumber)] = entry
	}

	return index, nil
}

// WriteIndex persists the index atomically. It replaces any previous
// index wholesale.
func (w *Writer) WriteIndex(index *data.Index) error {
	if err := os.MkdirAll(w.rootDir, 0755); err != nil {
		return fmt.Errorf("error creating store directory: %w", err)
	}
	return writeJSONAtomic(filepath.Join(w.rootDir, IndexFileName), index)
}

// writeJSONAtomic marshals v and renames a temp file into place. JSON map
// keys are emitted sorted, so re-running a conversion over the same input
// produces byte-equivalent files.
func writeJSONAtomic(target string, v any) error {
	payload, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("error marshaling %s: %w", filepath.Base(target), err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), filepath.Base(target)+".tmp-*")
	if err != nil {
		return fmt.Errorf("error creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("error writing %s: %w", filepath.Base(target), err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("error closing temp file: %w", err)
	}

	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("error publishing %s: %w", filepath.Base(target), err)
	}

	return nil
}

// Reader answers lookups against a written store. A lookup consults the
// index, loads exactly one TitleFile, and returns one record, so the
// cost is independent of corpus size.
type Reader struct {
	rootDir string
	index   *data.Index
}

// NewReader creates a reader rooted at the store directory.
func NewReader(rootDir string) *Reader {
	return &Reader{rootDir: rootDir}
}

// LoadIndex reads the index from disk. Subsequent lookups reuse it.
func (r *Reader) LoadIndex() (*data.Index, error) {
	payload, err := os.ReadFile(filepath.Join(r.rootDir, IndexFileName))
	if err != nil {
		return nil, fmt.Errorf("error reading index: %w", err)
	}

	var index data.Index
	if err := json.Unmarshal(payload, &index); err != nil {
		return nil, fmt.Errorf("error unmarshaling index: %w", err)
	}

	r.index = &index
	return r.index, nil
}

// LoadTitleFile reads one (year, title) container.
func (r *Reader) LoadTitleFile(year string, titleNumber int) (*data.TitleFile, error) {
	target := filepath.Join(r.rootDir, filepath.FromSlash(TitleFilePath(year, titleNumber)))
	payload, err := os.ReadFile(target)
	if err != nil {
		return nil, fmt.Errorf("error reading title file: %w", err)
	}

	var titleFile data.TitleFile
	if err := json.Unmarshal(payload, &titleFile); err != nil {
		return nil, fmt.Errorf("error unmarshaling title file: %w", err)
	}

	return &titleFile, nil
}

// Lookup returns the record for (year, title, part, section), or nil if
// the key is not in the corpus.
func (r *Reader) Lookup(year string, title string, part string, section string) (*data.SectionRecord, error) {
	if r.index == nil {
		if _, err := r.LoadIndex(); err != nil {
			return nil, err
		}
	}

	if !r.index.Contains(year, title, part, section) {
		return nil, nil
	}

	var titleNumber int
	if _, err := fmt.Sscanf(title, "%d", &titleNumber); err != nil {
		return nil, fmt.Errorf("invalid title number %q: %w", title, err)
	}

	titleFile, err := r.LoadTitleFile(year, titleNumber)
	if err != nil {
		return nil, err
	}

	record := titleFile.Section(part, section)
	if record == nil {
		return nil, fmt.Errorf("index inconsistency: %s/%s/%s/%s indexed but missing from title file", year, title, part, section)
	}

	return record, nil
}

// AvailableKeys describes what the index holds near a missed key, for
// lookup error messages.
func (r *Reader) AvailableKeys(year string, title string, part string) []string {
	if r.index == nil {
		if _, err := r.LoadIndex(); err != nil {
			return nil
		}
	}

	var keys []string
	titles, ok := r.index.Entries[year]
	if !ok {
		for y := range r.index.Entries {
			keys = append(keys, y)
		}
		sort.Strings(keys)
		return keys
	}

	entry, ok := titles[title]
	if !ok {
		for t := range titles {
			keys = append(keys, t)
		}
		sort.Strings(keys)
		return keys
	}

	indexPart, ok := entry.Parts[part]
	if !ok {
		for p := range entry.Parts {
			keys = append(keys, p)
		}
		sort.Strings(keys)
		return keys
	}

	for s := range indexPart.Sections {
		keys = append(keys, s)
	}
	sort.Strings(keys)
	return keys
}
