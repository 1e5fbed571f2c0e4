package history

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2/log"
	"github.com/regdata/cfr-engine/server/concurrent"
	"github.com/regdata/cfr-engine/server/data"
)

// MetricsSink persists metrics records. A relational store is typical;
// any sink accepting the record shape satisfies the contract.
type MetricsSink interface {
	BatchInsert(ctx context.Context, records []*data.MetricsRecord) error
}

// DocumentVersions is one document's version list, ordered newest first,
// as supplied by the external version-listing collaborator.
type DocumentVersions struct {
	DocumentId string               `json:"documentId"`
	Versions   []data.VersionRecord `json:"versions"`
}

// Service walks revision histories across documents. Documents are
// independent, so they parallelize exactly like ingestion; the walk
// within one document stays sequential.
type Service struct {
	Sink    MetricsSink
	Workers int
}

// Summary reports the outcome of a metrics run.
type Summary struct {
	TotalDocuments int
	Succeeded      int
	RecordCount    int
	Errors         []error
}

// ProcessDocuments computes and persists the metrics time series for
// every document. A failure on one document is recorded and processing
// continues.
func (s *Service) ProcessDocuments(ctx context.Context, documents []DocumentVersions) (*Summary, error) {
	s.logInfo(fmt.Sprintf("Start - %d documents", len(documents)))

	runner := concurrent.NewRunner[DocumentVersions, int](concurrent.RunnerConfig{
		MaxConcurrency: s.Workers,
		LogPrefix:      "Historical Metrics",
	})

	result := runner.Run(ctx, documents, func(
		ctx context.Context,
		document DocumentVersions,
		messages chan<- string,
		results chan<- int,
		errors chan<- error,
	) {
		messages <- fmt.Sprintf("Processing: %s (%d versions)", document.DocumentId, len(document.Versions))

		walker := NewWalker()
		records := walker.Walk(document.DocumentId, document.Versions)
		if len(records) == 0 {
			messages <- fmt.Sprintf("No usable versions: %s", document.DocumentId)
			results <- 0
			return
		}

		if err := s.Sink.BatchInsert(ctx, records); err != nil {
			messages <- fmt.Sprintf("Failed: %s - %v", document.DocumentId, err)
			errors <- fmt.Errorf("document %s: %w", document.DocumentId, err)
			return
		}

		messages <- fmt.Sprintf("Success: %s", document.DocumentId)
		results <- len(records)
	})

	summary := &Summary{
		TotalDocuments: len(documents),
		Succeeded:      len(result.Results),
		Errors:         result.Errors,
	}
	for _, count := range result.Results {
		summary.RecordCount += count
	}

	if len(summary.Errors) > 0 {
		s.logInfo(fmt.Sprintf("Completed with %d errors", len(summary.Errors)))
		for _, err := range summary.Errors {
			s.logInfo(fmt.Sprintf("Error: %v", err))
		}
	} else {
		s.logInfo(fmt.Sprintf("Successfully processed %d documents (%d records)", summary.Succeeded, summary.RecordCount))
	}

	s.logInfo("Complete")
	return summary, nil
}

func (s *Service) logInfo(message string) {
	log.Info(fmt.Sprintf("Historical Metrics Process: %v", message))
}
