package history

import (
	"fmt"
	"sort"

	"github.com/gofiber/fiber/v2/log"
	"github.com/regdata/cfr-engine/server/data"
	"github.com/regdata/cfr-engine/server/metrics"
	"github.com/regdata/cfr-engine/server/parser"
)

// WalkerState tracks progress through one document's revision chain.
type WalkerState int

const (
	StateAtLatest WalkerState = iota
	StateWalking
	StateDone
)

// Walker computes one MetricsRecord per version of a document, walking
// the externally supplied newest-first version list. Author accounting
// is cumulative in chronological order, so the walker folds author sets
// oldest-first in a preliminary pass and keys the counts by version
// date; the records themselves are emitted in the supplied order.
type Walker struct {
	parser     *parser.HierarchyParser
	calculator *metrics.Calculator
	state      WalkerState
}

// NewWalker creates a walker.
func NewWalker() *Walker {
	return &Walker{
		parser:     parser.NewHierarchyParser(),
		calculator: metrics.NewCalculator(),
		state:      StateAtLatest,
	}
}

// State returns the walker's current state.
func (w *Walker) State() WalkerState {
	return w.state
}

// Walk processes a document's versions, newest first, and returns one
// metrics record per usable version. A malformed version is skipped and
// logged, contributes no authors, and never aborts the walk.
func (w *Walker) Walk(documentId string, versions []data.VersionRecord) []*data.MetricsRecord {
	w.state = StateAtLatest

	usable := make([]data.VersionRecord, 0, len(versions))
	for _, version := range versions {
		if version.VersionDate.IsZero() {
			log.Warn(fmt.Sprintf("Historical Metrics Process: skipping malformed version for document %s (no version date)", documentId))
			continue
		}
		usable = append(usable, version)
	}

	cumulativeAuthors := w.foldAuthors(usable)

	w.state = StateWalking
	records := make([]*data.MetricsRecord, 0, len(usable))
	for _, version := range usable {
		records = append(records, w.computeVersion(documentId, version, cumulativeAuthors[version.VersionDate.Unix()]))
	}

	w.state = StateDone
	return records
}

// foldAuthors accumulates the union of author sets in chronological
// order and returns the cumulative unique-author count per version date.
// The count for a version covers every version up to and including it,
// regardless of the order the walk visits them.
func (w *Walker) foldAuthors(versions []data.VersionRecord) map[int64]int {
	chronological := make([]data.VersionRecord, len(versions))
	copy(chronological, versions)
	sort.Slice(chronological, func(i, j int) bool {
		return chronological[i].VersionDate.Before(chronological[j].VersionDate)
	})

	seen := map[string]bool{}
	cumulative := make(map[int64]int, len(chronological))
	for _, version := range chronological {
		for _, author := range version.RevisionAuthorIds {
			seen[author] = true
		}
		cumulative[version.VersionDate.Unix()] = len(seen)
	}

	return cumulative
}

// computeVersion parses one version's text and computes its metrics. A
// parse failure falls back to treating the raw text as plain body text
// with no structural counts.
func (w *Walker) computeVersion(documentId string, version data.VersionRecord, accumulatedAuthors int) *data.MetricsRecord {
	text := version.RawText
	sectionCount := 0
	subpartCount := 0

	tree, err := w.parser.Parse(version.RawText)
	if err != nil {
		log.Warn(fmt.Sprintf("Historical Metrics Process: parse failed for document %s at %s, using raw text: %v",
			documentId, version.VersionDate.Format("2006-01-02"), err))
	} else if len(tree.Roots) > 0 {
		var bodies []string
		for _, root := range tree.Roots {
			if body := root.BodyText(); body != "" {
				bodies = append(bodies, body)
			}
		}
		text = joinBodies(bodies)
		sectionCount = tree.CountKind(parser.KindSection)
		subpartCount = tree.CountKind(parser.KindSubpart)
	}

	record := w.calculator.Compute(metrics.Input{
		Text:               text,
		SectionCount:       sectionCount,
		SubpartCount:       subpartCount,
		AccumulatedAuthors: accumulatedAuthors,
		RevisionAuthors:    len(version.RevisionAuthorIds),
	})
	record.DocumentId = documentId
	record.MetricsDate = version.VersionDate

	return record
}

func joinBodies(bodies []string) string {
	switch len(bodies) {
	case 0:
		return ""
	case 1:
		return bodies[0]
	}
	joined := bodies[0]
	for _, body := range bodies[1:] {
		joined += "\n\n" + body
	}
	return joined
}
