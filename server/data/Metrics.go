package data

import "time"

// VersionRecord is one historical snapshot of a document, supplied by an
// external version-listing collaborator. Lists arrive ordered newest
// first.
type VersionRecord struct {
	DocumentId        string    `json:"documentId"`
	VersionDate       time.Time `json:"versionDate"`
	RawText           string    `json:"rawText"`
	RevisionAuthorIds []string  `json:"revisionAuthorIds"`
}

// MetricsRecord holds the structural and linguistic metrics computed for
// one version of a document. Unique per (document_id, metrics_date).
type MetricsRecord struct {
	Id          string    `json:"id"`
	DocumentId  string    `json:"documentId"`
	MetricsDate time.Time `json:"metricsDate"`

	WordCount      int `json:"wordCount"`
	SentenceCount  int `json:"sentenceCount"`
	ParagraphCount int `json:"paragraphCount"`
	SectionCount   int `json:"sectionCount"`
	SubpartCount   int `json:"subpartCount"`

	// TotalAuthors is the cumulative number of unique authors across all
	// versions up to and including this one. RevisionAuthors is the
	// number attributed to exactly this version.
	TotalAuthors    int `json:"totalAuthors"`
	RevisionAuthors int `json:"revisionAuthors"`

	LanguageComplexityScore float64 `json:"languageComplexityScore"`
	ReadabilityScore        float64 `json:"readabilityScore"`
	AverageSentenceLength   float64 `json:"averageSentenceLength"`
	AverageWordLength       float64 `json:"averageWordLength"`
	SimplicityScore         float64 `json:"simplicityScore"`

	ContentSnapshot string `json:"contentSnapshot"`

	CreatedAt time.Time `json:"createdAt"`
}
