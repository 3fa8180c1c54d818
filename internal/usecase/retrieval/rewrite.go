package retrieval

import (
	"strings"

	"github.com/askfolio/chat-backend/internal/entity"
)

var intentExpansions = map[entity.Intent]string{
	entity.IntentProjectDeepdive:    " project architecture implementation tech stack",
	entity.IntentExperienceDeepdive: " role responsibilities achievements company",
	entity.IntentCodeWalkthrough:    " code implementation example snippet",
	entity.IntentSkillAssessment:    " skills experience proficiency level",
}

var countingWords = []string{"how many", "count", "number of", "list"}

// RewriteQuery expands the query with intent-specific terms so the embedding
// lands closer to the documents that answer it. Quick answers are expanded
// only when the question asks for counts or lists; other intents without an
// expansion pass through unchanged.
func RewriteQuery(query string, intent entity.Intent) string {
	if intent == entity.IntentQuickAnswer {
		return rewriteQuickAnswer(query)
	}

	if suffix, ok := intentExpansions[intent]; ok {
		return query + suffix
	}
	return query
}

func rewriteQuickAnswer(query string) string {
	lower := strings.ToLower(query)

	asksForCount := false
	for _, word := range countingWords {
		if strings.Contains(lower, word) {
			asksForCount = true
			break
		}
	}
	if !asksForCount {
		return query
	}

	if strings.Contains(lower, "project") {
		return query + " projects portfolio work built developed"
	}
	if strings.Contains(lower, "experience") ||
		strings.Contains(lower, "company") ||
		strings.Contains(lower, "work") {
		return query + " experience company role position"
	}
	return query
}
