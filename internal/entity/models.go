package entity

import "time"

// QueryContext carries optional structured hints supplied by the client.
type QueryContext struct {
	CurrentSection string `json:"current_section,omitempty"`
	PreviousTopic  string `json:"previous_topic,omitempty"`
}

// Query is the immutable per-request value the pipeline operates on.
type Query struct {
	Text    string
	Intent  Intent
	Context QueryContext
}

// RetrievedDocument is a scored knowledge-base chunk. Immutable once scored;
// a document appears in at most one ranked list per request.
type RetrievedDocument struct {
	ID            string
	Text          string
	Category      string
	Source        string
	SemanticScore float64
	LexicalScore  float64
	HybridScore   float64
}

// IntentConfig drives retrieval for one intent. Empty Categories means
// no category filter.
type IntentConfig struct {
	Categories []string `json:"categories"`
	K          int      `json:"k"`
	Threshold  float64  `json:"threshold"`
}

// ConversationTurn is one user/assistant exchange owned by session state.
type ConversationTurn struct {
	User      string    `json:"user"`
	Assistant string    `json:"assistant"`
	Intent    Intent    `json:"intent"`
	Timestamp time.Time `json:"timestamp"`
}

// TokenBudget holds the three independent prompt-section ceilings.
type TokenBudget struct {
	ContextMax  int
	HistoryMax  int
	ResponseMax int
}

// Suggestion is a follow-up chip derived from the resolved intent.
type Suggestion struct {
	Label  string `json:"label"`
	Action string `json:"action"`
	Target string `json:"target"`
}

// GenerationResult is the single product of a pipeline run. The pipeline
// always returns one, even on generation failure (with fallback text).
type GenerationResult struct {
	Text             string
	Intent           Intent
	Suggestions      []Suggestion
	Sources          []string
	PromptTokens     int
	CompletionTokens int
	Cached           bool
}

// StreamEventType discriminates streaming events. Done is a terminal
// sentinel distinct from Error; exactly one of them ends every stream.
type StreamEventType string

const (
	StreamEventChunk StreamEventType = "chunk"
	StreamEventDone  StreamEventType = "done"
	StreamEventError StreamEventType = "error"
)

// StreamEvent is one element of a streaming generation. Text is set for
// chunks, Err for errors. The channel is closed after the terminal event.
type StreamEvent struct {
	Type StreamEventType
	Text string
	Err  error
}
