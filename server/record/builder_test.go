package record

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/regdata/cfr-engine/server/data"
	"github.com/regdata/cfr-engine/server/parser"
)

func parse(t *testing.T, markup string) *parser.Tree {
	t.Helper()
	tree, err := parser.NewHierarchyParser().Parse(markup)
	require.NoError(t, err)
	return tree
}

func TestParseFileName(t *testing.T) {
	info, err := ParseFileName("bulk/1996/CFR-1996-title21-vol1.xml")
	require.NoError(t, err)
	assert.Equal(t, "1996", info.Year)
	assert.Equal(t, 21, info.TitleNumber)
	assert.Equal(t, "1", info.Volume)
}

func TestParseFileNameRejectsUnrelatedFiles(t *testing.T) {
	_, err := ParseFileName("bulk/notes.xml")
	assert.Error(t, err)
}

func TestBuilderEmitsOneRecordPerSection(t *testing.T) {
	tree := parse(t, `<PART N="1">
		<SECTION N="1.1"><P>Alpha.</P></SECTION>
		<SECTION N="1.2"><P>Beta.</P></SECTION>
		<SUBPART N="A"><SECTION N="1.3"><P>Gamma.</P></SECTION></SUBPART>
	</PART>`)

	titleFile := NewBuilder().BuildTitleFile(&FileInfo{Year: "1996", TitleNumber: 21, Volume: "1"}, tree)
	records := Records(titleFile)

	assert.Len(t, records, 3)
	for _, record := range records {
		assert.Equal(t, "1996", record.Year)
		assert.Equal(t, 21, record.TitleNumber)
		assert.Equal(t, "1", record.PartNumber)
	}
}

func TestBuilderKeepsEmptySections(t *testing.T) {
	tree := parse(t, `<PART N="3">
		<SECTION N="3.1"><SUBJECT>[Reserved]</SUBJECT></SECTION>
		<SECTION N="3.2"><P>Has text.</P></SECTION>
	</PART>`)

	titleFile := NewBuilder().BuildTitleFile(&FileInfo{Year: "2000", TitleNumber: 5, Volume: "1"}, tree)

	reserved := titleFile.Section("3", "3.1")
	require.NotNil(t, reserved)
	assert.True(t, reserved.Empty)
	assert.Equal(t, "", reserved.Content)

	populated := titleFile.Section("3", "3.2")
	require.NotNil(t, populated)
	assert.False(t, populated.Empty)
}

func TestBuilderRoutesOrphanSectionsToUnassignedPart(t *testing.T) {
	tree := parse(t, `<CFRDOC><SECTION N="9.1"><P>Stray.</P></SECTION></CFRDOC>`)

	titleFile := NewBuilder().BuildTitleFile(&FileInfo{Year: "2000", TitleNumber: 5, Volume: "1"}, tree)

	record := titleFile.Section(parser.UnassignedPartNumber, "9.1")
	require.NotNil(t, record)
	assert.Equal(t, "Stray.", record.Content)
}

func TestMergePrefersExistingSections(t *testing.T) {
	dst := &data.TitleFile{
		Year: "1996", TitleNumber: 21,
		Parts: map[string]*data.PartContainer{
			"1": {
				PartNumber: "1",
				Sections: map[string]*data.SectionRecord{
					"1.1": {SectionNumber: "1.1", Content: "original"},
				},
			},
		},
	}
	src := &data.TitleFile{
		Year: "1996", TitleNumber: 21,
		Parts: map[string]*data.PartContainer{
			"1": {
				PartNumber: "1",
				Sections: map[string]*data.SectionRecord{
					"1.1": {SectionNumber: "1.1", Content: "duplicate"},
					"1.2": {SectionNumber: "1.2", Content: "new"},
				},
			},
			"2": {
				PartNumber: "2",
				Sections: map[string]*data.SectionRecord{
					"2.1": {SectionNumber: "2.1", Content: "other part"},
				},
			},
		},
	}

	Merge(dst, src)

	assert.Equal(t, "original", dst.Parts["1"].Sections["1.1"].Content)
	assert.Equal(t, "new", dst.Parts["1"].Sections["1.2"].Content)
	require.Contains(t, dst.Parts, "2")
	assert.Equal(t, 3, dst.SectionCount())
}
