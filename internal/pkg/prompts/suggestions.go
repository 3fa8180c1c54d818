package prompts

import "github.com/askfolio/chat-backend/internal/entity"

const maxSuggestions = 4

// Suggestion actions understood by the frontend:
//
//	deepdive - sends a follow-up chat message "Tell me more about {target}"
//	code     - fetches a code sample by target key
//	compare  - fetches a prepared comparison by target key
var suggestionTemplates = map[entity.Intent][]entity.Suggestion{
	entity.IntentQuickAnswer: {
		{Label: "Tell me about projects", Action: "deepdive", Target: "projects"},
		{Label: "What's the work experience?", Action: "deepdive", Target: "work experience"},
	},
	entity.IntentProjectDeepdive: {
		{Label: "Show me the code", Action: "code", Target: "rag_pipeline"},
		{Label: "Architecture details", Action: "deepdive", Target: "the architecture"},
		{Label: "What challenges were faced?", Action: "deepdive", Target: "challenges faced"},
		{Label: "Compare with other projects", Action: "compare", Target: "rag_vs_backend"},
	},
	entity.IntentExperienceDeepdive: {
		{Label: "Key achievements", Action: "deepdive", Target: "key achievements"},
		{Label: "Tech stack used", Action: "deepdive", Target: "technologies used"},
		{Label: "Team collaboration", Action: "deepdive", Target: "team collaboration"},
	},
	entity.IntentCodeWalkthrough: {
		{Label: "Show rate limiting code", Action: "code", Target: "rate_limiting"},
		{Label: "Show RAG pipeline code", Action: "code", Target: "rag_pipeline"},
		{Label: "Show chunking code", Action: "code", Target: "chunking"},
		{Label: "Show async code", Action: "code", Target: "async_calls"},
	},
	entity.IntentSkillAssessment: {
		{Label: "GenAI experience details", Action: "deepdive", Target: "GenAI experience"},
		{Label: "Backend skills details", Action: "deepdive", Target: "backend skills"},
		{Label: "Projects demonstrating skills", Action: "deepdive", Target: "projects"},
	},
	entity.IntentComparison: {
		{Label: "RAG vs Backend comparison", Action: "compare", Target: "rag_vs_backend"},
		{Label: "Chunking strategies", Action: "compare", Target: "chunking_strategies"},
	},
	entity.IntentTour: {
		{Label: "Technical skills", Action: "deepdive", Target: "technical skills"},
		{Label: "Projects", Action: "deepdive", Target: "projects"},
		{Label: "Work experience", Action: "deepdive", Target: "work experience"},
		{Label: "Contact information", Action: "deepdive", Target: "contact info"},
	},
	entity.IntentGeneral: {
		{Label: "About me", Action: "deepdive", Target: "background"},
		{Label: "Skills overview", Action: "deepdive", Target: "skills"},
		{Label: "Projects overview", Action: "deepdive", Target: "projects"},
		{Label: "Work experience", Action: "deepdive", Target: "work experience"},
	},
}

// Suggestions returns the follow-up suggestions shown after a response for
// the given intent, capped at maxSuggestions.
func Suggestions(intent entity.Intent) []entity.Suggestion {
	templates, ok := suggestionTemplates[intent]
	if !ok {
		templates = suggestionTemplates[entity.IntentGeneral]
	}
	if len(templates) > maxSuggestions {
		templates = templates[:maxSuggestions]
	}

	out := make([]entity.Suggestion, len(templates))
	copy(out, templates)
	return out
}
