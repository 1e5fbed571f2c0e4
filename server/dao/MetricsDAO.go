package dao

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/regdata/cfr-engine/server/data"
)

// OpenMetricsDB opens the metrics database with WAL mode enabled and
// initializes the schema.
func OpenMetricsDB(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("error opening metrics database: %w", err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("error enabling WAL mode: %w", err)
	}

	schema := `
CREATE TABLE IF NOT EXISTS historical_metrics (
	metrics_id TEXT PRIMARY KEY,
	document_id TEXT NOT NULL,
	metrics_date TEXT NOT NULL,
	word_count INTEGER NOT NULL,
	sentence_count INTEGER NOT NULL,
	paragraph_count INTEGER NOT NULL,
	section_count INTEGER NOT NULL,
	subpart_count INTEGER NOT NULL,
	total_authors INTEGER NOT NULL,
	revision_authors INTEGER NOT NULL,
	language_complexity_score REAL NOT NULL,
	readability_score REAL NOT NULL,
	average_sentence_length REAL NOT NULL,
	average_word_length REAL NOT NULL,
	simplicity_score REAL NOT NULL,
	content_snapshot TEXT,
	created_timestamp TEXT NOT NULL,
	UNIQUE(document_id, metrics_date)
);`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("error initializing metrics schema: %w", err)
	}

	return db, nil
}

type MetricsDAO struct {
	Db *sql.DB
}

// Insert stores one metrics record, replacing any existing record for
// the same (document, date) pair.
func (d *MetricsDAO) Insert(ctx context.Context, m *data.MetricsRecord) error {
	id := uuid.New().String()

	_, err := d.Db.ExecContext(
		ctx,
		`INSERT INTO historical_metrics(
			metrics_id, document_id, metrics_date, word_count, sentence_count,
			paragraph_count, section_count, subpart_count, total_authors,
			revision_authors, language_complexity_score, readability_score,
			average_sentence_length, average_word_length, simplicity_score,
			content_snapshot, created_timestamp
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (document_id, metrics_date) DO UPDATE SET
			word_count = excluded.word_count,
			sentence_count = excluded.sentence_count,
			paragraph_count = excluded.paragraph_count,
			section_count = excluded.section_count,
			subpart_count = excluded.subpart_count,
			total_authors = excluded.total_authors,
			revision_authors = excluded.revision_authors,
			language_complexity_score = excluded.language_complexity_score,
			readability_score = excluded.readability_score,
			average_sentence_length = excluded.average_sentence_length,
			average_word_length = excluded.average_word_length,
			simplicity_score = excluded.simplicity_score,
			content_snapshot = excluded.content_snapshot,
			created_timestamp = excluded.created_timestamp`,
		id,
		m.DocumentId,
		m.MetricsDate.UTC().Format(time.RFC3339),
		m.WordCount,
		m.SentenceCount,
		m.ParagraphCount,
		m.SectionCount,
		m.SubpartCount,
		m.TotalAuthors,
		m.RevisionAuthors,
		m.LanguageComplexityScore,
		m.ReadabilityScore,
		m.AverageSentenceLength,
		m.AverageWordLength,
		m.SimplicityScore,
		m.ContentSnapshot,
		time.Now().UTC().Format(time.RFC3339),
	)

	if err != nil {
		return fmt.Errorf("error inserting metrics record: %w", err)
	}

	return nil
}

// BatchInsert stores multiple metrics records in a single transaction.
func (d *MetricsDAO) BatchInsert(ctx context.Context, records []*data.MetricsRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := d.Db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(
		ctx,
		`INSERT INTO historical_metrics(
			metrics_id, document_id, metrics_date, word_count, sentence_count,
			paragraph_count, section_count, subpart_count, total_authors,
			revision_authors, language_complexity_score, readability_score,
			average_sentence_length, average_word_length, simplicity_score,
			content_snapshot, created_timestamp
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (document_id, metrics_date) DO UPDATE SET
			word_count = excluded.word_count,
			sentence_count = excluded.sentence_count,
			paragraph_count = excluded.paragraph_count,
			section_count = excluded.section_count,
			subpart_count = excluded.subpart_count,
			total_authors = excluded.total_authors,
			revision_authors = excluded.revision_authors,
			language_complexity_score = excluded.language_complexity_score,
			readability_score = excluded.readability_score,
			average_sentence_length = excluded.average_sentence_length,
			average_word_length = excluded.average_word_length,
			simplicity_score = excluded.simplicity_score,
			content_snapshot = excluded.content_snapshot,
			created_timestamp = excluded.created_timestamp`,
	)
	if err != nil {
		return fmt.Errorf("error preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, m := range records {
		id := uuid.New().String()
		_, err := stmt.ExecContext(
			ctx,
			id,
			m.DocumentId,
			m.MetricsDate.UTC().Format(time.RFC3339),
			m.WordCount,
			m.SentenceCount,
			m.ParagraphCount,
			m.SectionCount,
			m.SubpartCount,
			m.TotalAuthors,
			m.RevisionAuthors,
			m.LanguageComplexityScore,
			m.ReadabilityScore,
			m.AverageSentenceLength,
			m.AverageWordLength,
			m.SimplicityScore,
			m.ContentSnapshot,
			time.Now().UTC().Format(time.RFC3339),
		)
		if err != nil {
			return fmt.Errorf("error inserting metrics record: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing transaction: %w", err)
	}

	return nil
}

// FindByDocument returns a document's metrics within an optional date
// range, ordered by date descending.
func (d *MetricsDAO) FindByDocument(
	ctx context.Context,
	documentId string,
	startDate *time.Time,
	endDate *time.Time,
) ([]*data.MetricsRecord, error) {
	query := `SELECT metrics_id, document_id, metrics_date, word_count, sentence_count,
			paragraph_count, section_count, subpart_count, total_authors,
			revision_authors, language_complexity_score, readability_score,
			average_sentence_length, average_word_length, simplicity_score,
			content_snapshot, created_timestamp
		FROM historical_metrics
		WHERE document_id = ?`
	args := []any{documentId}

	if startDate != nil {
		args = append(args, startDate.UTC().Format(time.RFC3339))
		query += " AND metrics_date >= ?"
	}
	if endDate != nil {
		args = append(args, endDate.UTC().Format(time.RFC3339))
		query += " AND metrics_date <= ?"
	}

	query += " ORDER BY metrics_date DESC"

	rows, err := d.Db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error finding metrics records: %w", err)
	}
	defer rows.Close()

	var records []*data.MetricsRecord
	for rows.Next() {
		var m data.MetricsRecord
		var metricsDate, createdAt string
		err := rows.Scan(
			&m.Id,
			&m.DocumentId,
			&metricsDate,
			&m.WordCount,
			&m.SentenceCount,
			&m.ParagraphCount,
			&m.SectionCount,
			&m.SubpartCount,
			&m.TotalAuthors,
			&m.RevisionAuthors,
			&m.LanguageComplexityScore,
			&m.ReadabilityScore,
			&m.AverageSentenceLength,
			&m.AverageWordLength,
			&m.SimplicityScore,
			&m.ContentSnapshot,
			&createdAt,
		)
		if err != nil {
			return nil, fmt.Errorf("error scanning metrics row: %w", err)
		}

		if m.MetricsDate, err = time.Parse(time.RFC3339, metricsDate); err != nil {
			return nil, fmt.Errorf("error parsing metrics date: %w", err)
		}
		if m.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
			return nil, fmt.Errorf("error parsing created timestamp: %w", err)
		}

		records = append(records, &m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating metrics rows: %w", err)
	}

	return records, nil
}
