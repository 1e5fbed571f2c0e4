package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gofiber/fiber/v2/log"
	"github.com/regdata/cfr-engine/server/concurrent"
	"github.com/regdata/cfr-engine/server/data"
	"github.com/regdata/cfr-engine/server/parser"
	"github.com/regdata/cfr-engine/server/record"
	"github.com/regdata/cfr-engine/server/store"
)

// DiscoverFiles finds bulk markup files under the input directory.
func DiscoverFiles(inputDir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(inputDir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			return nil
		}
		name := entry.Name()
		if strings.HasPrefix(name, "CFR-") && strings.HasSuffix(name, ".xml") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error discovering input files: %w", err)
	}

	sort.Strings(files)
	return files, nil
}

// unit is one (year, title) partition. All files targeting the same
// TitleFile are routed to the same unit, so no two workers ever write
// the same container.
type unit struct {
	year        string
	titleNumber int
	files       []string
}

func (u *unit) key() string {
	return fmt.Sprintf("%s/title-%d", u.year, u.titleNumber)
}

// FailedUnit describes one (year, title) pair that could not be
// converted.
type FailedUnit struct {
	Unit string
	Err  error
}

// Summary reports a conversion run. A failed unit's data is never
// partially published and never appears in the index.
type Summary struct {
	TotalFiles int
	Succeeded  []string
	Failed     []FailedUnit
	Index      *data.Index
}

// Coordinator partitions the corpus across workers, converts each
// (year, title) unit independently, and rebuilds the index once after
// all writes complete.
type Coordinator struct {
	Writer       *store.Writer
	Workers      int
	WriteRetries int
}

// Run converts the given input files. Parse failures are contained to
// their file; store write failures fail their unit only, after bounded
// retries. The index rebuild happens after every TitleFile write has
// finished, so no index entry ever points at an unwritten file.
func (c *Coordinator) Run(ctx context.Context, files []string) (*Summary, error) {
	c.logInfo(fmt.Sprintf("Start - %d files", len(files)))

	units, badFiles := c.partition(files)
	c.logInfo(fmt.Sprintf("Partitioned into %d (year, title) units", len(units)))

	summary := &Summary{TotalFiles: len(files)}
	for _, bad := range badFiles {
		summary.Failed = append(summary.Failed, bad)
	}

	runner := concurrent.NewRunner[*unit, *data.TitleFile](concurrent.RunnerConfig{
		MaxConcurrency: c.Workers,
		LogPrefix:      "Conversion",
	})

	result := runner.Run(ctx, units, func(
		ctx context.Context,
		u *unit,
		messages chan<- string,
		results chan<- *data.TitleFile,
		errors chan<- error,
	) {
		messages <- fmt.Sprintf("Processing: %s (%d files)", u.key(), len(u.files))

		titleFile, err := c.convertUnit(u, messages)
		if err != nil {
			messages <- fmt.Sprintf("Failed: %s - %v", u.key(), err)
			errors <- fmt.Errorf("%s: %w", u.key(), err)
			return
		}

		messages <- fmt.Sprintf("Success: %s (%d sections)", u.key(), titleFile.SectionCount())
		results <- titleFile
	})

	// Barrier: all writes are complete here; only fully-written units
	// are admitted to the index.
	for _, err := range result.Errors {
		summary.Failed = append(summary.Failed, FailedUnit{Unit: unitFromError(err), Err: err})
	}
	for _, titleFile := range result.Results {
		summary.Succeeded = append(summary.Succeeded, fmt.Sprintf("%s/title-%d", titleFile.Year, titleFile.TitleNumber))
	}
	sort.Strings(summary.Succeeded)

	index, err := c.Writer.BuildIndex(result.Results)
	if err != nil {
		return nil, fmt.Errorf("failed to build index: %w", err)
	}
	if err := c.Writer.WriteIndex(index); err != nil {
		return nil, fmt.Errorf("failed to write index: %w", err)
	}
	summary.Index = index

	c.logInfo(fmt.Sprintf("Complete - %d units succeeded, %d failed", len(summary.Succeeded), len(summary.Failed)))
	return summary, nil
}

// partition groups files by (year, title). Files whose names carry no
// title metadata are reported as failed units up front.
func (c *Coordinator) partition(files []string) ([]*unit, []FailedUnit) {
	units := map[string]*unit{}
	var bad []FailedUnit

	for _, file := range files {
		info, err := record.ParseFileName(file)
		if err != nil {
			log.Warn(fmt.Sprintf("Conversion Process: skipping %s: %v", file, err))
			bad = append(bad, FailedUnit{Unit: file, Err: err})
			continue
		}

		key := fmt.Sprintf("%s/title-%d", info.Year, info.TitleNumber)
		u, ok := units[key]
		if !ok {
			u = &unit{year: info.Year, titleNumber: info.TitleNumber}
			units[key] = u
		}
		u.files = append(u.files, file)
	}

	ordered := make([]*unit, 0, len(units))
	for _, u := range units {
		sort.Strings(u.files)
		ordered = append(ordered, u)
	}
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].key() < ordered[j].key()
	})

	return ordered, bad
}

// convertUnit parses every file in a unit, merges volumes into one
// TitleFile, and writes it with bounded retries. A parse failure on one
// file is recorded and the rest of the unit still converts.
func (c *Coordinator) convertUnit(u *unit, messages chan<- string) (*data.TitleFile, error) {
	hierarchyParser := parser.NewHierarchyParser()
	builder := record.NewBuilder()

	var merged *data.TitleFile
	var fileErrors []error

	for _, file := range u.files {
		titleFile, err := c.convertFile(hierarchyParser, builder, file)
		if err != nil {
			messages <- fmt.Sprintf("Parse failed: %s - %v", file, err)
			fileErrors = append(fileErrors, fmt.Errorf("%s: %w", file, err))
			continue
		}

		if merged == nil {
			merged = titleFile
		} else {
			record.Merge(merged, titleFile)
		}
	}

	if merged == nil {
		if len(fileErrors) == 0 {
			return nil, fmt.Errorf("unit has no parseable files")
		}
		return nil, fmt.Errorf("no file in unit parsed successfully: %w", errors.Join(fileErrors...))
	}

	if err := c.writeWithRetries(merged, messages); err != nil {
		return nil, err
	}

	return merged, nil
}

func (c *Coordinator) convertFile(
	hierarchyParser *parser.HierarchyParser,
	builder *record.Builder,
	file string,
) (*data.TitleFile, error) {
	info, err := record.ParseFileName(file)
	if err != nil {
		return nil, err
	}

	markup, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	tree, err := hierarchyParser.Parse(string(markup))
	if err != nil {
		return nil, fmt.Errorf("failed to parse markup: %w", err)
	}

	return builder.BuildTitleFile(info, tree), nil
}

// writeWithRetries persists a TitleFile, retrying a failed write a
// bounded number of times before surfacing the unit as failed.
func (c *Coordinator) writeWithRetries(titleFile *data.TitleFile, messages chan<- string) error {
	attempts := c.WriteRetries + 1
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = c.Writer.WriteTitleFile(titleFile)
		if lastErr == nil {
			return nil
		}
		messages <- fmt.Sprintf("Write attempt %d/%d failed for %s/title-%d: %v",
			attempt, attempts, titleFile.Year, titleFile.TitleNumber, lastErr)
	}

	return fmt.Errorf("failed to write title file after %d attempts: %w", attempts, lastErr)
}

func unitFromError(err error) string {
	msg := err.Error()
	if idx := strings.Index(msg, ":"); idx > 0 {
		return msg[:idx]
	}
	return msg
}

func (c *Coordinator) logInfo(message string) {
	log.Info(fmt.Sprintf("Conversion Process: %v", message))
}
