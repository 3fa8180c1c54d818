package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/askfolio/chat-backend/internal/config"
	"github.com/askfolio/chat-backend/internal/entity"
	"github.com/askfolio/chat-backend/internal/pkg/cache"
	"github.com/askfolio/chat-backend/internal/repository"
	"github.com/askfolio/chat-backend/internal/usecase/generation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeClassifier struct {
	intent entity.Intent
	calls  int
	mu     sync.Mutex
}

func (f *fakeClassifier) Classify(ctx context.Context, message string, qctx entity.QueryContext, sessionID string) entity.Intent {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.intent
}

type fakeRetriever struct {
	docs     []entity.RetrievedDocument
	err      error
	calls    int
	reranked []bool
	mu       sync.Mutex
}

func (f *fakeRetriever) Retrieve(ctx context.Context, query string, intent entity.Intent, sessionID string, useReranking bool) ([]entity.RetrievedDocument, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.reranked = append(f.reranked, useReranking)
	return f.docs, f.err
}

type fakeGenerator struct {
	result  *entity.GenerationResult
	streams []string
	calls   int
	block   chan struct{}
	mu      sync.Mutex
}

func (f *fakeGenerator) Generate(ctx context.Context, query string, intent entity.Intent, docs []entity.RetrievedDocument, history []entity.ConversationTurn, sessionID string) *entity.GenerationResult {
	f.mu.Lock()
	f.calls++
	block := f.block
	f.mu.Unlock()

	if block != nil {
		<-block
	}

	result := *f.result
	result.Intent = intent
	return &result
}

func (f *fakeGenerator) GenerateStream(ctx context.Context, query string, intent entity.Intent, docs []entity.RetrievedDocument, history []entity.ConversationTurn, sessionID string) <-chan entity.StreamEvent {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	out := make(chan entity.StreamEvent)
	go func() {
		defer close(out)
		var full strings.Builder
		for _, chunk := range f.streams {
			full.WriteString(chunk)
			out <- entity.StreamEvent{Type: entity.StreamEventChunk, Text: chunk}
		}
		out <- entity.StreamEvent{Type: entity.StreamEventDone, Text: full.String()}
	}()
	return out
}

func testUsecase(classifier *fakeClassifier, retriever *fakeRetriever, generator *fakeGenerator) (*ChatUsecase, repository.SessionRepository) {
	sessions := repository.NewSessionMemory(5, time.Hour)
	pipeline := config.PipelineConfig{
		MaxConcurrentRequests: 2,
		RequestTimeout:        5 * time.Second,
		CacheEnabled:          true,
		CacheTTL:              time.Minute,
		CacheMaxSize:          10,
	}
	uc := NewUsecase(classifier, retriever, generator,
		sessions, cache.New(pipeline.CacheTTL, pipeline.CacheMaxSize), pipeline, zap.NewNop())
	return uc, sessions
}

func defaultFakes() (*fakeClassifier, *fakeRetriever, *fakeGenerator) {
	classifier := &fakeClassifier{intent: entity.IntentGeneral}
	retriever := &fakeRetriever{docs: []entity.RetrievedDocument{{ID: "d1", Text: "doc", Source: "about.md"}}}
	generator := &fakeGenerator{result: &entity.GenerationResult{
		Text:        "generated answer",
		Suggestions: []entity.Suggestion{{Label: "More", Action: "deepdive", Target: "projects"}},
		Sources:     []string{"about.md"},
	}}
	return classifier, retriever, generator
}

func TestAnswerFullPipeline(t *testing.T) {
	classifier, retriever, generator := defaultFakes()
	uc, sessions := testUsecase(classifier, retriever, generator)

	resp, err := uc.Answer(context.Background(), &entity.ChatRequest{Message: "hello", SessionID: "s1"})
	require.NoError(t, err)

	assert.Equal(t, "generated answer", resp.Response)
	assert.Equal(t, entity.IntentGeneral.String(), resp.Intent)
	assert.Equal(t, "s1", resp.SessionID)
	assert.False(t, resp.Cached)
	assert.Equal(t, 1, classifier.calls)
	assert.Equal(t, 1, retriever.calls)
	assert.True(t, retriever.reranked[0])
	assert.Equal(t, 1, generator.calls)

	history, err := sessions.History(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "hello", history[0].User)
	assert.Equal(t, "generated answer", history[0].Assistant)
	assert.Equal(t, entity.IntentGeneral, history[0].Intent)
}

func TestAnswerCacheHitSkipsRetrievalAndGeneration(t *testing.T) {
	classifier, retriever, generator := defaultFakes()
	uc, sessions := testUsecase(classifier, retriever, generator)

	_, err := uc.Answer(context.Background(), &entity.ChatRequest{Message: "hello", SessionID: "s1"})
	require.NoError(t, err)

	resp, err := uc.Answer(context.Background(), &entity.ChatRequest{Message: "  HELLO ", SessionID: "s2"})
	require.NoError(t, err)

	assert.True(t, resp.Cached)
	assert.Equal(t, "generated answer", resp.Response)
	assert.Equal(t, 1, retriever.calls)
	assert.Equal(t, 1, generator.calls)

	// Classification still runs on the hit: the cache key includes the
	// resolved intent.
	assert.Equal(t, 2, classifier.calls)

	// Cached answers still land in the second session's history.
	history, err := sessions.History(context.Background(), "s2")
	require.NoError(t, err)
	require.Len(t, history, 1)
}

func TestAnswerEmptyMessage(t *testing.T) {
	uc, _ := testUsecase(defaultFakes())

	_, err := uc.Answer(context.Background(), &entity.ChatRequest{Message: "   "})
	assert.ErrorIs(t, err, entity.ErrEmptyMessage)
}

func TestAnswerMessageTooLong(t *testing.T) {
	uc, _ := testUsecase(defaultFakes())

	_, err := uc.Answer(context.Background(), &entity.ChatRequest{Message: strings.Repeat("x", 1001)})
	assert.ErrorIs(t, err, entity.ErrMessageTooLong)
}

func TestAnswerGeneratesSessionID(t *testing.T) {
	uc, _ := testUsecase(defaultFakes())

	resp, err := uc.Answer(context.Background(), &entity.ChatRequest{Message: "hello"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.SessionID)
}

func TestAnswerGateRejectsWhenSaturated(t *testing.T) {
	classifier, retriever, generator := defaultFakes()
	generator.block = make(chan struct{})
	uc, _ := testUsecase(classifier, retriever, generator)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			uc.Answer(context.Background(), &entity.ChatRequest{Message: "slow question"})
		}()
	}

	// Wait for both requests to hold gate slots.
	require.Eventually(t, func() bool {
		generator.mu.Lock()
		defer generator.mu.Unlock()
		return generator.calls == 2
	}, time.Second, 5*time.Millisecond)

	_, err := uc.Answer(context.Background(), &entity.ChatRequest{Message: "one too many"})
	assert.ErrorIs(t, err, entity.ErrTooManyRequests)

	close(generator.block)
	wg.Wait()
}

func TestAnswerRetrievalFailureDegrades(t *testing.T) {
	classifier, retriever, generator := defaultFakes()
	retriever.err = errors.New("vector store down")
	uc, _ := testUsecase(classifier, retriever, generator)

	resp, err := uc.Answer(context.Background(), &entity.ChatRequest{Message: "hello", SessionID: "s1"})
	require.NoError(t, err)
	assert.Equal(t, "generated answer", resp.Response)
}

func TestAnswerFallbackResultNotCached(t *testing.T) {
	classifier, retriever, generator := defaultFakes()
	generator.result = &entity.GenerationResult{Text: generation.FallbackResponse}
	uc, _ := testUsecase(classifier, retriever, generator)

	_, err := uc.Answer(context.Background(), &entity.ChatRequest{Message: "hello", SessionID: "s1"})
	require.NoError(t, err)

	// Second identical question must regenerate, not serve the apology.
	_, err = uc.Answer(context.Background(), &entity.ChatRequest{Message: "hello", SessionID: "s1"})
	require.NoError(t, err)
	assert.Equal(t, 2, generator.calls)
}

func TestAnswerStream(t *testing.T) {
	classifier, retriever, generator := defaultFakes()
	generator.streams = []string{"chunk one ", "chunk two"}
	uc, sessions := testUsecase(classifier, retriever, generator)

	events, err := uc.AnswerStream(context.Background(), &entity.ChatRequest{Message: "hello", SessionID: "s1"})
	require.NoError(t, err)

	var chunks []string
	var sawDone bool
	for ev := range events {
		switch ev.Type {
		case entity.StreamEventChunk:
			chunks = append(chunks, ev.Text)
		case entity.StreamEventDone:
			sawDone = true
		}
	}

	assert.Equal(t, []string{"chunk one ", "chunk two"}, chunks)
	assert.True(t, sawDone)
	assert.False(t, retriever.reranked[0])

	history, err := sessions.History(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "chunk one chunk two", history[0].Assistant)
}

func TestTranscript(t *testing.T) {
	uc, sessions := testUsecase(defaultFakes())
	ctx := context.Background()

	require.NoError(t, sessions.Append(ctx, "s1", entity.ConversationTurn{
		User: "hi", Assistant: "hello", Timestamp: time.Now(),
	}))

	data, contentType, err := uc.Transcript(ctx, "s1", entity.FormatMarkdown)
	require.NoError(t, err)
	assert.Contains(t, contentType, "text/markdown")
	assert.Contains(t, string(data), "**You:** hi")

	_, _, err = uc.Transcript(ctx, "unknown", entity.FormatMarkdown)
	assert.ErrorIs(t, err, entity.ErrSessionNotFound)

	_, _, err = uc.Transcript(ctx, "s1", entity.ExportFormat("docx"))
	assert.ErrorIs(t, err, entity.ErrUnsupportedFormat)
}

func TestClearSession(t *testing.T) {
	uc, sessions := testUsecase(defaultFakes())
	ctx := context.Background()

	require.NoError(t, sessions.Append(ctx, "s1", entity.ConversationTurn{User: "q"}))
	require.NoError(t, uc.ClearSession(ctx, "s1"))

	history, err := sessions.History(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestResolveContextFallsBackToHistory(t *testing.T) {
	uc, _ := testUsecase(defaultFakes())

	history := []entity.ConversationTurn{{Intent: entity.IntentProjectDeepdive}}

	qctx := uc.resolveContext(&entity.ChatRequest{}, history)
	assert.Equal(t, entity.IntentProjectDeepdive.String(), qctx.PreviousTopic)

	qctx = uc.resolveContext(&entity.ChatRequest{
		Context: &entity.QueryContext{PreviousTopic: "tour"},
	}, history)
	assert.Equal(t, "tour", qctx.PreviousTopic)
}
