package record

import (
	"fmt"
	"regexp"

	"github.com/regdata/cfr-engine/server/data"
	"github.com/regdata/cfr-engine/server/parser"
)

// FileInfo is the (year, title, volume) metadata carried in a bulk file
// name, e.g. CFR-1996-title21-vol1.xml.
type FileInfo struct {
	Year        string
	TitleNumber int
	Volume      string
}

var fileNameRe = regexp.MustCompile(`CFR-(\d+)-title(\d+)-vol(\d+)`)

// ParseFileName extracts year, title, and volume from a bulk file path.
func ParseFileName(path string) (*FileInfo, error) {
	m := fileNameRe.FindStringSubmatch(path)
	if m == nil {
		return nil, fmt.Errorf("file name does not carry title/volume info: %s", path)
	}

	var titleNumber int
	if _, err := fmt.Sscanf(m[2], "%d", &titleNumber); err != nil {
		return nil, fmt.Errorf("invalid title number in file name %s: %w", path, err)
	}

	return &FileInfo{
		Year:        m[1],
		TitleNumber: titleNumber,
		Volume:      m[3],
	}, nil
}

// Builder flattens parsed hierarchy trees into section-level records.
type Builder struct{}

// NewBuilder creates a record builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// BuildTitleFile flattens one parsed tree into the (year, title) storage
// container. Numbering is taken verbatim from the source; a section with
// no body text is still recorded, flagged Empty.
func (b *Builder) BuildTitleFile(info *FileInfo, tree *parser.Tree) *data.TitleFile {
	titleFile := &data.TitleFile{
		Year:        info.Year,
		TitleNumber: info.TitleNumber,
		Volume:      info.Volume,
		Parts:       map[string]*data.PartContainer{},
	}

	var walk func(node *parser.Node, part *data.PartContainer)
	walk = func(node *parser.Node, part *data.PartContainer) {
		switch node.Kind {
		case parser.KindPart:
			container := b.ensurePart(titleFile, node.Number, node.Heading)
			for _, child := range node.Children {
				walk(child, container)
			}
		case parser.KindSection:
			if part == nil {
				part = b.ensurePart(titleFile, parser.UnassignedPartNumber, "Unassigned Sections")
			}
			b.addSection(titleFile, part, node)
		default:
			for _, child := range node.Children {
				walk(child, part)
			}
		}
	}

	for _, root := range tree.Roots {
		walk(root, nil)
	}

	return titleFile
}

func (b *Builder) ensurePart(titleFile *data.TitleFile, number string, title string) *data.PartContainer {
	if number == "" {
		number = "unknown"
	}
	if existing, ok := titleFile.Parts[number]; ok {
		if existing.PartTitle == "" {
			existing.PartTitle = title
		}
		return existing
	}
	container := &data.PartContainer{
		PartNumber: number,
		PartTitle:  title,
		Sections:   map[string]*data.SectionRecord{},
	}
	titleFile.Parts[number] = container
	return container
}

func (b *Builder) addSection(titleFile *data.TitleFile, part *data.PartContainer, node *parser.Node) {
	number := node.Number
	if number == "" {
		number = "unknown"
	}

	content := node.BodyText()
	part.Sections[number] = &data.SectionRecord{
		Year:          titleFile.Year,
		TitleNumber:   titleFile.TitleNumber,
		PartNumber:    part.PartNumber,
		PartTitle:     part.PartTitle,
		SectionNumber: number,
		SectionTitle:  node.Heading,
		Content:       content,
		Empty:         content == "",
	}
}

// Records flattens a TitleFile into its section records.
func Records(titleFile *data.TitleFile) []*data.SectionRecord {
	var records []*data.SectionRecord
	for _, part := range titleFile.Parts {
		for _, section := range part.Sections {
			records = append(records, section)
		}
	}
	return records
}

// Merge folds src into dst. Both must cover the same (year, title) pair;
// this happens when a title spans multiple volumes. Existing parts and
// sections win, matching the first-volume-wins behavior of the corpus.
func Merge(dst *data.TitleFile, src *data.TitleFile) {
	for partNumber, srcPart := range src.Parts {
		dstPart, ok := dst.Parts[partNumber]
		if !ok {
			dst.Parts[partNumber] = srcPart
			continue
		}
		for sectionNumber, section := range srcPart.Sections {
			if _, ok := dstPart.Sections[sectionNumber]; !ok {
				dstPart.Sections[sectionNumber] = section
			}
		}
	}
}
