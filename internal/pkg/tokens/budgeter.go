package tokens

import (
	"strings"

	"github.com/askfolio/chat-backend/internal/entity"
)

const (
	// truncationMargin is reserved when a document is cut to fit the
	// remaining context budget.
	truncationMargin = 50

	// minUsefulRemainder is the smallest budget worth filling with a
	// truncated document; anything less is dropped instead.
	minUsefulRemainder = 100

	// maxHistoryTurns caps how far back PrepareHistory looks regardless
	// of budget.
	maxHistoryTurns = 10

	documentSeparator = "\n\n---\n\n"
)

// Budgeter counts, truncates and selects text against token ceilings.
type Budgeter struct {
	codec Codec
}

func NewBudgeter(codec Codec) *Budgeter {
	return &Budgeter{codec: codec}
}

// Count returns the token count of text under the model's tokenization.
func (b *Budgeter) Count(text string) int {
	return len(b.codec.Encode(text))
}

// Truncate cuts text to at most maxTokens tokens, preserving the prefix.
func (b *Budgeter) Truncate(text string, maxTokens int) string {
	if maxTokens <= 0 {
		return ""
	}
	toks := b.codec.Encode(text)
	if len(toks) <= maxTokens {
		return text
	}
	return b.codec.Decode(toks[:maxTokens])
}

// PrepareContext assembles the retrieval context string from ranked
// documents. Documents are taken in their given rank order; whole documents
// are appended greedily, and the first one that would overflow is truncated
// to the remaining budget (minus a reserved margin) before assembly stops.
// The joining separator is charged against the budget too, so the assembled
// string never exceeds maxTokens.
func (b *Budgeter) PrepareContext(docs []entity.RetrievedDocument, maxTokens int) string {
	if len(docs) == 0 || maxTokens <= 0 {
		return ""
	}

	var parts []string
	currentTokens := 0
	separatorTokens := b.Count(documentSeparator)

	for _, doc := range docs {
		formatted := formatDocument(doc)
		docTokens := b.Count(formatted)

		sepCost := 0
		if len(parts) > 0 {
			sepCost = separatorTokens
		}

		if currentTokens+sepCost+docTokens > maxTokens {
			remaining := maxTokens - currentTokens - sepCost - truncationMargin
			if remaining > minUsefulRemainder {
				parts = append(parts, b.Truncate(formatted, remaining)+"...")
			}
			break
		}

		parts = append(parts, formatted)
		currentTokens += sepCost + docTokens
	}

	return strings.Join(parts, documentSeparator)
}

// PrepareHistory selects the most recent conversation turns that fit the
// budget. Turns are considered newest-first; the first turn that does not fit
// stops selection (no partial turns). The returned slice is oldest-to-newest.
func (b *Budgeter) PrepareHistory(turns []entity.ConversationTurn, maxTokens int) []entity.ConversationTurn {
	if len(turns) == 0 || maxTokens <= 0 {
		return nil
	}

	if len(turns) > maxHistoryTurns {
		turns = turns[len(turns)-maxHistoryTurns:]
	}

	var prepared []entity.ConversationTurn
	currentTokens := 0

	for i := len(turns) - 1; i >= 0; i-- {
		turnTokens := b.Count(turns[i].User) + b.Count(turns[i].Assistant)
		if currentTokens+turnTokens > maxTokens {
			break
		}
		prepared = append([]entity.ConversationTurn{turns[i]}, prepared...)
		currentTokens += turnTokens
	}

	return prepared
}

func formatDocument(doc entity.RetrievedDocument) string {
	var header string
	if doc.Category != "" {
		header = "[" + strings.ToUpper(doc.Category) + "]"
	}
	if doc.Source != "" {
		if header != "" {
			header += " "
		}
		header += doc.Source
	}

	if header == "" {
		return doc.Text
	}
	return header + "\n" + doc.Text
}
