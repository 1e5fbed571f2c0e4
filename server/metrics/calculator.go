package metrics

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/regdata/cfr-engine/server/data"
)

// Input carries everything the calculator needs for one version of a
// document. Structural counts come from the parsed hierarchy, not from
// the raw text.
type Input struct {
	Text               string
	SectionCount       int
	SubpartCount       int
	AccumulatedAuthors int // cumulative unique authors through this version
	RevisionAuthors    int // authors attributed to exactly this version
}

// Calculator computes surface statistics and complexity/readability
// scores. It is deterministic: the same input always yields the same
// record.
type Calculator struct{}

// NewCalculator creates a calculator.
func NewCalculator() *Calculator {
	return &Calculator{}
}

// abbreviations are tokens whose trailing period never ends a sentence.
var abbreviations = map[string]bool{
	"u.s.c.": true,
	"u.s.":   true,
	"no.":    true,
	"e.g.":   true,
	"i.e.":   true,
	"sec.":   true,
	"stat.":  true,
	"pub.":   true,
	"fed.":   true,
	"reg.":   true,
	"ch.":    true,
	"pt.":    true,
	"al.":    true,
	"seq.":   true,
	"v.":     true,
	"inc.":   true,
	"corp.":  true,
}

var paragraphBreakRe = regexp.MustCompile(`\n\s*\n`)

// Compute produces the metrics record for one text body. DocumentId and
// MetricsDate are left for the caller to assign.
func (c *Calculator) Compute(in Input) *data.MetricsRecord {
	text := strings.TrimSpace(in.Text)
	tokens := strings.Fields(text)

	record := &data.MetricsRecord{
		WordCount:       len(tokens),
		SentenceCount:   countSentences(tokens),
		ParagraphCount:  countParagraphs(text),
		SectionCount:    in.SectionCount,
		SubpartCount:    in.SubpartCount,
		TotalAuthors:    in.AccumulatedAuthors,
		RevisionAuthors: in.RevisionAuthors,
		ContentSnapshot: in.Text,
	}

	if len(tokens) == 0 {
		// No body text: trivially simple, maximally readable.
		record.LanguageComplexityScore = 0.1
		record.ReadabilityScore = 100
		record.SimplicityScore = 1.0
		return record
	}

	record.AverageSentenceLength = float64(record.WordCount) / float64(max(record.SentenceCount, 1))
	record.AverageWordLength = averageWordLength(tokens)
	record.LanguageComplexityScore = complexityScore(
		record.AverageSentenceLength,
		record.AverageWordLength,
		longWordRatio(tokens),
	)
	record.ReadabilityScore = readabilityScore(tokens, record.SentenceCount)
	record.SimplicityScore = simplicityScore(record.ReadabilityScore)

	return record
}

// countSentences counts sentence-terminal punctuation boundaries. A token
// ending in a period is not a boundary when it is a known abbreviation.
func countSentences(tokens []string) int {
	count := 0
	for _, token := range tokens {
		trimmed := strings.TrimRight(token, `)"']`)
		if trimmed == "" {
			continue
		}
		last := trimmed[len(trimmed)-1]
		if last != '.' && last != '!' && last != '?' {
			continue
		}
		if last == '.' && abbreviations[strings.ToLower(trimmed)] {
			continue
		}
		count++
	}
	return count
}

// countParagraphs counts blank-line separated blocks.
func countParagraphs(text string) int {
	if text == "" {
		return 0
	}
	count := 0
	for _, block := range paragraphBreakRe.Split(text, -1) {
		if strings.TrimSpace(block) != "" {
			count++
		}
	}
	return count
}

// wordLetters strips surrounding punctuation from a token.
func wordLetters(token string) string {
	return strings.TrimFunc(token, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func averageWordLength(tokens []string) float64 {
	total := 0
	counted := 0
	for _, token := range tokens {
		word := wordLetters(token)
		if word == "" {
			continue
		}
		total += len(word)
		counted++
	}
	if counted == 0 {
		return 0
	}
	return float64(total) / float64(counted)
}

// longWordRatio is the fraction of tokens with seven or more characters,
// a proxy for dense regulatory vocabulary.
func longWordRatio(tokens []string) float64 {
	long := 0
	counted := 0
	for _, token := range tokens {
		word := wordLetters(token)
		if word == "" {
			continue
		}
		counted++
		if len(word) >= 7 {
			long++
		}
	}
	if counted == 0 {
		return 0
	}
	return float64(long) / float64(counted)
}

// complexityScore maps average sentence length, average word length, and
// long-word ratio into [0.1, 1.0]. Sentence length saturates at 40 words
// and word length at 8 characters; the components are weighted
// 0.4/0.3/0.3. The weighting is policy, stable across runs.
func complexityScore(avgSentenceLength float64, avgWordLength float64, longRatio float64) float64 {
	sentenceTerm := clamp(avgSentenceLength/40, 0, 1)
	wordTerm := clamp((avgWordLength-3)/5, 0, 1)
	score := 0.1 + 0.9*(0.4*sentenceTerm+0.3*wordTerm+0.3*longRatio)
	return clamp(score, 0.1, 1.0)
}

// readabilityScore is a Flesch reading-ease style score clamped to
// [30, 100]; higher means easier to read.
func readabilityScore(tokens []string, sentenceCount int) float64 {
	totalSyllables := 0
	words := 0
	for _, token := range tokens {
		word := wordLetters(token)
		if word == "" {
			continue
		}
		words++
		totalSyllables += countSyllables(word)
	}
	if words == 0 {
		return 100
	}

	wordsPerSentence := float64(words) / float64(max(sentenceCount, 1))
	syllablesPerWord := float64(totalSyllables) / float64(words)

	score := 206.835 - 1.015*wordsPerSentence - 84.6*syllablesPerWord
	return clamp(score, 30, 100)
}

// simplicityScore normalizes readability into [0.1, 1.0]. It is derived
// from readability alone, so it moves inversely to complexity without
// being computed from it.
func simplicityScore(readability float64) float64 {
	return clamp(0.1+0.9*(readability-30)/70, 0.1, 1.0)
}

// countSyllables estimates syllables by counting vowel groups, with a
// silent trailing "e" dropped. Every word counts at least one.
func countSyllables(word string) int {
	word = strings.ToLower(word)
	word = strings.TrimSuffix(word, "e")

	const vowels = "aeiouy"
	count := 0
	prevVowel := false
	for _, r := range word {
		isVowel := strings.ContainsRune(vowels, r)
		if isVowel && !prevVowel {
			count++
		}
		prevVowel = isVowel
	}

	if count < 1 {
		return 1
	}
	return count
}

func clamp(v float64, lo float64, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
