package generation

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/askfolio/chat-backend/internal/config"
	"github.com/askfolio/chat-backend/internal/entity"
	"github.com/askfolio/chat-backend/internal/pkg/retry"
	"github.com/askfolio/chat-backend/internal/pkg/tokens"
	"github.com/askfolio/chat-backend/internal/pkg/usage"
	pkghttp "github.com/askfolio/chat-backend/pkg/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// runeCodec tokenizes per character; enough for budget math in tests.
type runeCodec struct{}

func (runeCodec) Encode(text string) []int {
	tokens := make([]int, 0, len(text))
	for _, r := range text {
		tokens = append(tokens, int(r))
	}
	return tokens
}

func (runeCodec) Decode(toks []int) string {
	var b strings.Builder
	for _, t := range toks {
		b.WriteRune(rune(t))
	}
	return b.String()
}

type stubLLM struct {
	errs    []error
	reply   string
	calls   int
	streams []string
}

func (s *stubLLM) Model() string { return "gpt-4o-mini" }

func (s *stubLLM) Complete(ctx context.Context, req *entity.ChatCompletionRequest) (*entity.ChatCompletionResponse, error) {
	s.calls++
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	return &entity.ChatCompletionResponse{
		Choices: []entity.ChatCompletionChoice{
			{Message: entity.ChatMessage{Role: entity.RoleAssistant, Content: s.reply}, FinishReason: "stop"},
		},
		Usage: entity.ChatUsage{PromptTokens: 120, CompletionTokens: 40, TotalTokens: 160},
	}, nil
}

func (s *stubLLM) CompleteStream(ctx context.Context, req *entity.ChatCompletionRequest, onDelta func(string) error) error {
	s.calls++
	if len(s.errs) > 0 && s.errs[0] != nil {
		return s.errs[0]
	}
	for _, chunk := range s.streams {
		if err := onDelta(chunk); err != nil {
			return err
		}
	}
	return nil
}

func newTestGenerator(llm *stubLLM) (*Generator, *usage.Tracker) {
	tracker := usage.NewTracker()
	openAICfg := config.OpenAIConnectorConfig{
		Temperature: 0.7,
		Retry: retry.RetryConfig{
			Attempts: 3,
			Delay:    time.Millisecond,
			MaxDelay: 4 * time.Millisecond,
		},
	}
	pipeline := config.PipelineConfig{
		MaxTokensContext:  2000,
		MaxTokensHistory:  500,
		MaxTokensResponse: 600,
	}
	g := NewGenerator(llm, tokens.NewBudgeter(runeCodec{}), openAICfg, pipeline, tracker, zap.NewNop())
	return g, tracker
}

func TestGenerateSuccess(t *testing.T) {
	llm := &stubLLM{reply: "I built a RAG chatbot."}
	g, tracker := newTestGenerator(llm)

	docs := []entity.RetrievedDocument{
		{Text: "doc one", Source: "projects.md"},
		{Text: "doc two", Source: "projects.md"},
		{Text: "doc three", Source: "about.md"},
	}

	result := g.Generate(context.Background(), "what did you build?", entity.IntentProjectDeepdive, docs, nil, "s1")

	assert.Equal(t, "I built a RAG chatbot.", result.Text)
	assert.Equal(t, entity.IntentProjectDeepdive, result.Intent)
	assert.NotEmpty(t, result.Suggestions)
	assert.LessOrEqual(t, len(result.Suggestions), 4)
	assert.Equal(t, []string{"projects.md", "about.md"}, result.Sources)
	assert.Equal(t, 120, result.PromptTokens)
	assert.Equal(t, 40, result.CompletionTokens)
	assert.False(t, result.Cached)
	assert.Equal(t, 1, tracker.SessionStats("s1").RequestCount)
}

func TestGenerateRetriesTransientErrors(t *testing.T) {
	llm := &stubLLM{
		reply: "eventually fine",
		errs: []error{
			&pkghttp.HTTPError{StatusCode: 429, Message: "rate limited"},
			&pkghttp.HTTPError{StatusCode: 503, Message: "overloaded"},
		},
	}
	g, tracker := newTestGenerator(llm)

	result := g.Generate(context.Background(), "q", entity.IntentGeneral, nil, nil, "s1")

	assert.Equal(t, "eventually fine", result.Text)
	assert.Equal(t, 3, llm.calls)

	// Two failed attempts plus the successful one are all recorded.
	assert.Equal(t, 3, tracker.SessionStats("s1").RequestCount)
}

func TestGenerateExhaustedRetriesReturnsFallback(t *testing.T) {
	llm := &stubLLM{errs: []error{
		&pkghttp.NetworkError{Err: context.DeadlineExceeded},
		&pkghttp.NetworkError{Err: context.DeadlineExceeded},
		&pkghttp.NetworkError{Err: context.DeadlineExceeded},
	}}
	g, tracker := newTestGenerator(llm)

	result := g.Generate(context.Background(), "q", entity.IntentTour, nil, nil, "s1")

	assert.Equal(t, FallbackResponse, result.Text)
	assert.Equal(t, entity.IntentTour, result.Intent)
	assert.Empty(t, result.Suggestions)
	assert.Equal(t, 3, llm.calls)

	// Every failed attempt emits an estimated-prompt record with zero
	// completion tokens.
	stats := tracker.SessionStats("s1")
	assert.Equal(t, 3, stats.RequestCount)
	assert.Zero(t, stats.CompletionTokens)
	assert.Positive(t, stats.PromptTokens)
}

func TestGenerateDoesNotRetryClientErrors(t *testing.T) {
	llm := &stubLLM{errs: []error{
		&pkghttp.HTTPError{StatusCode: 400, Message: "bad request"},
	}}
	g, tracker := newTestGenerator(llm)

	result := g.Generate(context.Background(), "q", entity.IntentGeneral, nil, nil, "s1")

	assert.Equal(t, FallbackResponse, result.Text)
	assert.Equal(t, 1, llm.calls)
	assert.Equal(t, 1, tracker.SessionStats("s1").RequestCount)
}

func TestGenerateStream(t *testing.T) {
	llm := &stubLLM{streams: []string{"Hello ", "from ", "the stream."}}
	g, tracker := newTestGenerator(llm)

	events := g.GenerateStream(context.Background(), "q", entity.IntentGeneral, nil, nil, "s1")

	var chunks []string
	var done *entity.StreamEvent
	for ev := range events {
		switch ev.Type {
		case entity.StreamEventChunk:
			chunks = append(chunks, ev.Text)
		case entity.StreamEventDone:
			evCopy := ev
			done = &evCopy
		case entity.StreamEventError:
			t.Fatalf("unexpected error event: %v", ev.Err)
		}
	}

	assert.Equal(t, []string{"Hello ", "from ", "the stream."}, chunks)
	require.NotNil(t, done)
	assert.Equal(t, "Hello from the stream.", done.Text)
	assert.Equal(t, 1, tracker.SessionStats("s1").RequestCount)
}

func TestGenerateStreamError(t *testing.T) {
	llm := &stubLLM{errs: []error{&pkghttp.HTTPError{StatusCode: 500, Message: "boom"}}}
	g, _ := newTestGenerator(llm)

	events := g.GenerateStream(context.Background(), "q", entity.IntentGeneral, nil, nil, "")

	var last entity.StreamEvent
	for ev := range events {
		last = ev
	}

	assert.Equal(t, entity.StreamEventError, last.Type)
	assert.Error(t, last.Err)
}

func TestBuildMessagesLayout(t *testing.T) {
	g, _ := newTestGenerator(&stubLLM{})

	docs := []entity.RetrievedDocument{{Text: "fact", Category: "profile", Source: "about.md"}}
	history := []entity.ConversationTurn{{User: "hi", Assistant: "hello"}}

	messages := g.buildMessages("what's next?", entity.IntentGeneral, docs, history)

	require.Len(t, messages, 5)
	assert.Equal(t, entity.RoleSystem, messages[0].Role)
	assert.Equal(t, entity.RoleSystem, messages[1].Role)
	assert.True(t, strings.HasPrefix(messages[1].Content, contextMessagePrefix))
	assert.Contains(t, messages[1].Content, "[PROFILE] about.md")
	assert.Equal(t, entity.RoleUser, messages[2].Role)
	assert.Equal(t, "hi", messages[2].Content)
	assert.Equal(t, entity.RoleAssistant, messages[3].Role)
	assert.Equal(t, entity.RoleUser, messages[4].Role)
	assert.Equal(t, "what's next?", messages[4].Content)
}

func TestBuildMessagesNoContext(t *testing.T) {
	g, _ := newTestGenerator(&stubLLM{})

	messages := g.buildMessages("q", entity.IntentGeneral, nil, nil)

	require.Len(t, messages, 2)
	assert.Equal(t, entity.RoleSystem, messages[0].Role)
	assert.Equal(t, entity.RoleUser, messages[1].Role)
}
