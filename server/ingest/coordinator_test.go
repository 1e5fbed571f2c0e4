package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/regdata/cfr-engine/server/store"
)

const title1Markup = `<TITLE N="1">
	<PART N="1">
		<HEAD>PART 1 - GENERAL PROVISIONS</HEAD>
		<SECTION N="1.1">
			<SUBJECT>Definitions.</SUBJECT>
			<P>Terms used in this part are defined here.</P>
			<CITA>60 FR 1000</CITA>
		</SECTION>
		<SECTION N="1.2">
			<SUBJECT>Scope.</SUBJECT>
			<P>This part applies to all filings.</P>
		</SECTION>
	</PART>
</TITLE>`

const title2Markup = `<TITLE N="2">
	<PART N="5">
		<HEAD>PART 5 - PROCEDURES</HEAD>
		<SECTION N="5.1">
			<SUBJECT>Filing.</SUBJECT>
			<P>Filings must be submitted in writing.</P>
		</SECTION>
	</PART>
</TITLE>`

func writeInput(t *testing.T, dir string, name string, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func TestDiscoverFiles(t *testing.T) {
	inputDir := t.TempDir()
	writeInput(t, filepath.Join(inputDir, "2024"), "CFR-2024-title1-vol1.xml", title1Markup)
	writeInput(t, filepath.Join(inputDir, "2024"), "CFR-2024-title2-vol1.xml", title2Markup)
	writeInput(t, inputDir, "README.txt", "not bulk data")
	writeInput(t, inputDir, "notes.xml", "wrong prefix")

	files, err := DiscoverFiles(inputDir)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Contains(t, files[0], "CFR-2024-title1-vol1.xml")
	assert.Contains(t, files[1], "CFR-2024-title2-vol1.xml")
}

func TestRunConvertsCorpus(t *testing.T) {
	inputDir := t.TempDir()
	storeDir := t.TempDir()
	writeInput(t, inputDir, "CFR-2024-title1-vol1.xml", title1Markup)
	writeInput(t, inputDir, "CFR-2024-title2-vol1.xml", title2Markup)

	files, err := DiscoverFiles(inputDir)
	require.NoError(t, err)

	coordinator := &Coordinator{Writer: store.NewWriter(storeDir), Workers: 2}
	summary, err := coordinator.Run(context.Background(), files)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.TotalFiles)
	assert.Equal(t, []string{"2024/title-1", "2024/title-2"}, summary.Succeeded)
	assert.Empty(t, summary.Failed)
	require.NotNil(t, summary.Index)
	assert.True(t, summary.Index.Contains("2024", "1", "1", "1.1"))
	assert.True(t, summary.Index.Contains("2024", "2", "5", "5.1"))

	reader := store.NewReader(storeDir)
	record, err := reader.Lookup("2024", "1", "1", "1.2")
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, "Scope.", record.SectionTitle)
	assert.NotContains(t, record.Content, "60 FR 1000")
}

func TestRunWorkerCountDoesNotChangeOutput(t *testing.T) {
	inputDir := t.TempDir()
	writeInput(t, inputDir, "CFR-2023-title1-vol1.xml", title1Markup)
	writeInput(t, inputDir, "CFR-2023-title2-vol1.xml", title2Markup)
	writeInput(t, inputDir, "CFR-2024-title1-vol1.xml", title1Markup)

	files, err := DiscoverFiles(inputDir)
	require.NoError(t, err)

	storeSerial := t.TempDir()
	storeParallel := t.TempDir()

	serial := &Coordinator{Writer: store.NewWriter(storeSerial), Workers: 1}
	_, err = serial.Run(context.Background(), files)
	require.NoError(t, err)

	parallel := &Coordinator{Writer: store.NewWriter(storeParallel), Workers: 8}
	_, err = parallel.Run(context.Background(), files)
	require.NoError(t, err)

	for _, rel := range []string{
		store.IndexFileName,
		store.TitleFilePath("2023", 1),
		store.TitleFilePath("2023", 2),
		store.TitleFilePath("2024", 1),
	} {
		a, err := os.ReadFile(filepath.Join(storeSerial, filepath.FromSlash(rel)))
		require.NoError(t, err)
		b, err := os.ReadFile(filepath.Join(storeParallel, filepath.FromSlash(rel)))
		require.NoError(t, err)
		assert.Equal(t, string(a), string(b), rel)
	}
}

func TestRunContainsMalformedFileToItsUnit(t *testing.T) {
	inputDir := t.TempDir()
	storeDir := t.TempDir()
	writeInput(t, inputDir, "CFR-2024-title1-vol1.xml", title1Markup)
	writeInput(t, inputDir, "CFR-2024-title2-vol1.xml", "<TITLE N=\"2\"><PART N=\"5\"></BROKEN>")

	files, err := DiscoverFiles(inputDir)
	require.NoError(t, err)

	coordinator := &Coordinator{Writer: store.NewWriter(storeDir), Workers: 2}
	summary, err := coordinator.Run(context.Background(), files)
	require.NoError(t, err)

	assert.Equal(t, []string{"2024/title-1"}, summary.Succeeded)
	require.Len(t, summary.Failed, 1)
	assert.Equal(t, "2024/title-2", summary.Failed[0].Unit)

	// The failed unit never reaches the index or the store.
	assert.False(t, summary.Index.Contains("2024", "2", "5", "5.1"))
	_, statErr := os.Stat(filepath.Join(storeDir, filepath.FromSlash(store.TitleFilePath("2024", 2))))
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunMergesVolumesOfOneTitle(t *testing.T) {
	inputDir := t.TempDir()
	storeDir := t.TempDir()
	writeInput(t, inputDir, "CFR-2024-title1-vol1.xml", title1Markup)
	writeInput(t, inputDir, "CFR-2024-title1-vol2.xml", `<TITLE N="1">
		<PART N="2">
			<HEAD>PART 2 - APPEALS</HEAD>
			<SECTION N="2.1">
				<SUBJECT>Appeal rights.</SUBJECT>
				<P>Any party may appeal.</P>
			</SECTION>
		</PART>
	</TITLE>`)

	files, err := DiscoverFiles(inputDir)
	require.NoError(t, err)

	coordinator := &Coordinator{Writer: store.NewWriter(storeDir), Workers: 4}
	summary, err := coordinator.Run(context.Background(), files)
	require.NoError(t, err)

	assert.Equal(t, []string{"2024/title-1"}, summary.Succeeded)
	assert.True(t, summary.Index.Contains("2024", "1", "1", "1.1"))
	assert.True(t, summary.Index.Contains("2024", "1", "2", "2.1"))
}

func TestRunRejectsUnparseableFileName(t *testing.T) {
	inputDir := t.TempDir()
	storeDir := t.TempDir()
	writeInput(t, inputDir, "CFR-bad-name.xml", title1Markup)

	files, err := DiscoverFiles(inputDir)
	require.NoError(t, err)
	require.Len(t, files, 1)

	coordinator := &Coordinator{Writer: store.NewWriter(storeDir), Workers: 1}
	summary, err := coordinator.Run(context.Background(), files)
	require.NoError(t, err)

	assert.Empty(t, summary.Succeeded)
	require.Len(t, summary.Failed, 1)
}
