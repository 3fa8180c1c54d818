package intent

import (
	"context"
	"fmt"
	"strings"

	"github.com/askfolio/chat-backend/internal/entity"
	"github.com/askfolio/chat-backend/internal/pkg/usage"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

const classificationPromptTemplate = `You are an intent classifier for a portfolio chatbot. Classify the user's message into ONE of these intents:

INTENTS:
- quick_answer: Simple factual questions (contact info, years of experience, location, tech stack)
- project_deepdive: Wants details about a specific project
- experience_deepdive: Wants details about work experience at a company
- code_walkthrough: Wants to see code or implementation details
- skill_assessment: Evaluating fit for a role or assessing skills
- comparison: Comparing two things (projects, technologies, etc.)
- tour: Wants an overview/introduction to the portfolio
- general: Anything else, casual conversation, unclear intent

CONTEXT:
- Current section user is viewing: %s
- Previous topic discussed: %s

USER MESSAGE: %s

Respond with ONLY the intent name, nothing else.`

const classificationMaxTokens = 20

// Classifier resolves a message to an intent label with a model call,
// falling back to keyword scoring when the model fails or answers with
// something that is not a known label.
type Classifier struct {
	llm      LLMConnector
	fallback *FallbackClassifier
	tracker  *usage.Tracker
	logger   *zap.Logger
}

func NewClassifier(llm LLMConnector, tracker *usage.Tracker, logger *zap.Logger) *Classifier {
	return &Classifier{
		llm:      llm,
		fallback: NewFallbackClassifier(),
		tracker:  tracker,
		logger:   logger,
	}
}

func (c *Classifier) Classify(ctx context.Context, message string, qctx entity.QueryContext, sessionID string) entity.Intent {
	section := qctx.CurrentSection
	if section == "" {
		section = "none"
	}
	topic := qctx.PreviousTopic
	if topic == "" {
		topic = "none"
	}

	prompt := fmt.Sprintf(classificationPromptTemplate, section, topic, message)

	resp, err := c.llm.Complete(ctx, &entity.ChatCompletionRequest{
		Model:       c.llm.Model(),
		Messages:    []entity.ChatMessage{{Role: entity.RoleUser, Content: prompt}},
		Temperature: 0,
		MaxTokens:   classificationMaxTokens,
	})
	if err != nil {
		ctxzap.Warn(ctx, "intent classification call failed, using fallback", zap.Error(err))
		return c.fallback.Classify(message, qctx)
	}

	c.tracker.Track(
		resp.Usage.PromptTokens,
		resp.Usage.CompletionTokens,
		c.llm.Model(),
		usage.TypeIntent,
		sessionID,
	)

	if len(resp.Choices) == 0 {
		ctxzap.Warn(ctx, "intent classification returned no choices, using fallback")
		return c.fallback.Classify(message, qctx)
	}

	label := strings.ToLower(strings.TrimSpace(resp.Choices[0].Message.Content))
	parsed, ok := entity.ParseIntent(label)
	if !ok {
		ctxzap.Warn(ctx, "intent classification returned unknown label, using fallback",
			zap.String("label", label),
		)
		return c.fallback.Classify(message, qctx)
	}

	ctxzap.Debug(ctx, "intent classified", zap.String("intent", parsed.String()))
	return parsed
}
