package dao

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/regdata/cfr-engine/server/data"
)

func openTestDB(t *testing.T) *MetricsDAO {
	t.Helper()
	db, err := OpenMetricsDB(context.Background(), filepath.Join(t.TempDir(), "metrics.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &MetricsDAO{Db: db}
}

func sampleRecord(documentId string, year int) *data.MetricsRecord {
	return &data.MetricsRecord{
		DocumentId:              documentId,
		MetricsDate:             time.Date(year, time.June, 1, 0, 0, 0, 0, time.UTC),
		WordCount:               120,
		SentenceCount:           8,
		ParagraphCount:          3,
		SectionCount:            2,
		SubpartCount:            1,
		TotalAuthors:            2,
		RevisionAuthors:         1,
		LanguageComplexityScore: 0.42,
		ReadabilityScore:        61.5,
		AverageSentenceLength:   15,
		AverageWordLength:       5.2,
		SimplicityScore:         0.5,
		ContentSnapshot:         "Body text.",
	}
}

func TestInsertAndFindByDocument(t *testing.T) {
	metricsDAO := openTestDB(t)
	ctx := context.Background()

	require.NoError(t, metricsDAO.Insert(ctx, sampleRecord("doc-1", 2022)))

	found, err := metricsDAO.FindByDocument(ctx, "doc-1", nil, nil)
	require.NoError(t, err)
	require.Len(t, found, 1)

	record := found[0]
	assert.NotEmpty(t, record.Id)
	assert.Equal(t, "doc-1", record.DocumentId)
	assert.Equal(t, 120, record.WordCount)
	assert.Equal(t, 0.42, record.LanguageComplexityScore)
	assert.Equal(t, "Body text.", record.ContentSnapshot)
	assert.Equal(t, 2022, record.MetricsDate.Year())
	assert.False(t, record.CreatedAt.IsZero())
}

func TestInsertUpsertsOnDocumentAndDate(t *testing.T) {
	metricsDAO := openTestDB(t)
	ctx := context.Background()

	require.NoError(t, metricsDAO.Insert(ctx, sampleRecord("doc-1", 2022)))

	updated := sampleRecord("doc-1", 2022)
	updated.WordCount = 500
	require.NoError(t, metricsDAO.Insert(ctx, updated))

	found, err := metricsDAO.FindByDocument(ctx, "doc-1", nil, nil)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, 500, found[0].WordCount)
}

func TestBatchInsertOrdersNewestFirst(t *testing.T) {
	metricsDAO := openTestDB(t)
	ctx := context.Background()

	records := []*data.MetricsRecord{
		sampleRecord("doc-1", 2020),
		sampleRecord("doc-1", 2023),
		sampleRecord("doc-1", 2021),
		sampleRecord("doc-2", 2022),
	}
	require.NoError(t, metricsDAO.BatchInsert(ctx, records))

	found, err := metricsDAO.FindByDocument(ctx, "doc-1", nil, nil)
	require.NoError(t, err)
	require.Len(t, found, 3)
	assert.Equal(t, 2023, found[0].MetricsDate.Year())
	assert.Equal(t, 2021, found[1].MetricsDate.Year())
	assert.Equal(t, 2020, found[2].MetricsDate.Year())
}

func TestFindByDocumentDateRange(t *testing.T) {
	metricsDAO := openTestDB(t)
	ctx := context.Background()

	require.NoError(t, metricsDAO.BatchInsert(ctx, []*data.MetricsRecord{
		sampleRecord("doc-1", 2020),
		sampleRecord("doc-1", 2021),
		sampleRecord("doc-1", 2022),
	}))

	start := time.Date(2021, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2021, time.December, 31, 0, 0, 0, 0, time.UTC)
	found, err := metricsDAO.FindByDocument(ctx, "doc-1", &start, &end)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, 2021, found[0].MetricsDate.Year())
}

func TestBatchInsertEmptyIsNoOp(t *testing.T) {
	metricsDAO := openTestDB(t)
	require.NoError(t, metricsDAO.BatchInsert(context.Background(), nil))
}

func TestFindByDocumentUnknownIsEmpty(t *testing.T) {
	metricsDAO := openTestDB(t)
	found, err := metricsDAO.FindByDocument(context.Background(), "missing", nil, nil)
	require.NoError(t, err)
	assert.Empty(t, found)
}
