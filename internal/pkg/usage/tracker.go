package usage

import (
	"sync"
	"time"
)

// Request types recorded against the tracker.
const (
	TypeChat      = "chat"
	TypeIntent    = "intent"
	TypeEmbedding = "embedding"
	TypeRerank    = "rerank"
)

type modelPrice struct {
	input  float64
	output float64
}

// Pricing in USD per 1M tokens.
var modelPricing = map[string]modelPrice{
	"gpt-4o-mini":            {input: 0.15, output: 0.60},
	"gpt-4o":                 {input: 2.50, output: 10.00},
	"text-embedding-3-small": {input: 0.02, output: 0},
}

const defaultPricingModel = "gpt-4o-mini"

// Record is the token usage of a single upstream call.
type Record struct {
	PromptTokens     int       `json:"prompt_tokens"`
	CompletionTokens int       `json:"completion_tokens"`
	Model            string    `json:"model"`
	RequestType      string    `json:"request_type"`
	Timestamp        time.Time `json:"timestamp"`
}

func (r Record) TotalTokens() int {
	return r.PromptTokens + r.CompletionTokens
}

// Cost returns the USD cost of the call. Unknown models are billed at the
// default model's rate rather than silently costing zero.
func (r Record) Cost() float64 {
	pricing, ok := modelPricing[r.Model]
	if !ok {
		pricing = modelPricing[defaultPricingModel]
	}
	return float64(r.PromptTokens)/1e6*pricing.input +
		float64(r.CompletionTokens)/1e6*pricing.output
}

// TypeStats aggregates usage for one request type.
type TypeStats struct {
	Tokens int     `json:"tokens"`
	Cost   float64 `json:"cost"`
	Count  int     `json:"count"`
}

// Stats aggregates usage over a session or the whole process.
type Stats struct {
	TotalTokens      int                  `json:"total_tokens"`
	PromptTokens     int                  `json:"prompt_tokens"`
	CompletionTokens int                  `json:"completion_tokens"`
	TotalCost        float64              `json:"total_cost"`
	RequestCount     int                  `json:"request_count"`
	ByType           map[string]TypeStats `json:"by_type,omitempty"`
}

// Tracker records token usage per call and aggregates it globally and per
// session. Safe for concurrent use.
type Tracker struct {
	mu        sync.Mutex
	log       []Record
	bySession map[string][]Record
}

func NewTracker() *Tracker {
	return &Tracker{
		bySession: make(map[string][]Record),
	}
}

// Track records one call. sessionID may be empty for calls outside a session.
func (t *Tracker) Track(promptTokens, completionTokens int, model, requestType, sessionID string) Record {
	record := Record{
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
		Model:            model,
		RequestType:      requestType,
		Timestamp:        time.Now(),
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.log = append(t.log, record)
	if sessionID != "" {
		t.bySession[sessionID] = append(t.bySession[sessionID], record)
	}

	return record
}

// SessionStats aggregates usage for one session.
func (t *Tracker) SessionStats(sessionID string) Stats {
	t.mu.Lock()
	defer t.mu.Unlock()

	return aggregate(t.bySession[sessionID])
}

// TotalStats aggregates usage across every request seen by this process.
func (t *Tracker) TotalStats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()

	return aggregate(t.log)
}

func aggregate(records []Record) Stats {
	stats := Stats{ByType: make(map[string]TypeStats)}

	for _, r := range records {
		stats.TotalTokens += r.TotalTokens()
		stats.PromptTokens += r.PromptTokens
		stats.CompletionTokens += r.CompletionTokens
		stats.TotalCost += r.Cost()
		stats.RequestCount++

		byType := stats.ByType[r.RequestType]
		byType.Tokens += r.TotalTokens()
		byType.Cost += r.Cost()
		byType.Count++
		stats.ByType[r.RequestType] = byType
	}

	return stats
}
