package retrieval

import (
	"regexp"
	"strings"
)

var wordPattern = regexp.MustCompile(`\w+`)

// LexicalScore is a length-normalized term-frequency score of the document
// against the query. Query terms are deduplicated so repeating a word in the
// question does not inflate the score.
func LexicalScore(query, document string) float64 {
	queryTerms := make(map[string]bool)
	for _, term := range wordPattern.FindAllString(strings.ToLower(query), -1) {
		queryTerms[term] = true
	}
	if len(queryTerms) == 0 {
		return 0
	}

	docTerms := wordPattern.FindAllString(strings.ToLower(document), -1)
	termFreq := make(map[string]int, len(docTerms))
	for _, term := range docTerms {
		termFreq[term]++
	}

	matches := 0
	for term := range queryTerms {
		matches += termFreq[term]
	}
	if matches == 0 {
		return 0
	}

	return float64(matches) / float64(len(docTerms)+1)
}
