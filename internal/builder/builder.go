package builder

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/askfolio/chat-backend/internal/api"
	chatapi "github.com/askfolio/chat-backend/internal/api/chat"
	"github.com/askfolio/chat-backend/internal/config"
	"github.com/askfolio/chat-backend/internal/entity"
	"github.com/askfolio/chat-backend/internal/integration/openai"
	"github.com/askfolio/chat-backend/internal/integration/vectorstore"
	"github.com/askfolio/chat-backend/internal/pkg/cache"
	"github.com/askfolio/chat-backend/internal/pkg/tokens"
	"github.com/askfolio/chat-backend/internal/pkg/usage"
	"github.com/askfolio/chat-backend/internal/repository"
	"github.com/askfolio/chat-backend/internal/telegram"
	"github.com/askfolio/chat-backend/internal/usecase/chat"
	"github.com/askfolio/chat-backend/internal/usecase/generation"
	"github.com/askfolio/chat-backend/internal/usecase/intent"
	"github.com/askfolio/chat-backend/internal/usecase/retrieval"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// LLMConnector is the full method set of the language model integration, from
// which each usecase picks the subset it needs.
type LLMConnector interface {
	Model() string
	EmbeddingModel() string
	Complete(ctx context.Context, req *entity.ChatCompletionRequest) (*entity.ChatCompletionResponse, error)
	CompleteStream(ctx context.Context, req *entity.ChatCompletionRequest, onDelta func(text string) error) error
	Embed(ctx context.Context, text string) ([]float64, error)
}

func Build() (*App, error) {
	ctx := context.Background()

	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := setupLogger(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("setup logger: %w", err)
	}

	logger.Info("Building application",
		zap.String("environment", cfg.Environment),
		zap.String("server_addr", cfg.ServerAddr),
	)

	core, db, err := buildCore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	// Setup API handlers
	chatHandler := chatapi.NewHandler(core.chatUC, core.tracker)
	logger.Info("API handlers initialized")

	// Setup router
	router := api.SetupRouter(chatHandler, cfg, logger)
	logger.Info("HTTP router configured")

	// Create HTTP server. Write timeout is disabled because the streaming
	// endpoint holds the response open for the whole generation.
	server := &http.Server{
		Addr:        cfg.ServerAddr,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	logger.Info("Application built successfully",
		zap.String("environment", cfg.Environment),
	)

	return &App{
		server: server,
		db:     db,
		logger: logger,
	}, nil
}

// BuildTelegramBot creates and initializes the Telegram bot
func BuildTelegramBot() (*telegram.Bot, *zap.Logger, error) {
	ctx := context.Background()

	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := setupLogger(cfg.LogLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("setup logger: %w", err)
	}

	logger.Info("Building Telegram bot",
		zap.String("environment", cfg.Environment),
	)

	if cfg.TelegramCfg.BotToken == "" {
		return nil, nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is required for the bot binary")
	}

	core, _, err := buildCore(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	bot, err := telegram.NewBot(cfg.TelegramCfg, core.chatUC, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("initialize telegram bot: %w", err)
	}

	logger.Info("Telegram bot built successfully",
		zap.String("environment", cfg.Environment),
	)

	return bot, logger, nil
}

// coreComponents are the pipeline pieces shared by the HTTP server and the
// Telegram bot.
type coreComponents struct {
	chatUC  *chat.ChatUsecase
	tracker *usage.Tracker
}

func buildCore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*coreComponents, *pgxpool.Pool, error) {
	// Session storage: Postgres when a database is configured, otherwise
	// process memory.
	var sessions repository.SessionRepository
	var db *pgxpool.Pool
	if cfg.DatabaseURL != "" {
		pool, err := setupDatabase(ctx, cfg, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("setup database: %w", err)
		}

		logger.Info("Running database migrations")
		if err := repository.RunMigrations(cfg.DatabaseURL); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("run migrations: %w", err)
		}
		logger.Info("Database migrations completed successfully")

		sessions = repository.NewSessionPostgres(pool, cfg.Pipeline.MaxHistoryTurns, cfg.Pipeline.SessionTTL)
		db = pool
	} else {
		logger.Info("No DATABASE_URL set, keeping sessions in memory")
		sessions = repository.NewSessionMemory(cfg.Pipeline.MaxHistoryTurns, cfg.Pipeline.SessionTTL)
	}
	logger.Info("Repositories initialized")

	// Initialize external service connectors (with mock support)
	var llmConnector LLMConnector
	var storeConnector retrieval.VectorStore

	if cfg.EnableMocks {
		logger.Info("Using mock connectors for external services")
		llmConnector = openai.NewMockConnector(logger)
		storeConnector = vectorstore.NewMockConnector(logger)
	} else {
		logger.Info("Using real connectors for external services")
		llmConnector = openai.NewConnector(cfg.OpenAICfg, logger)
		storeConnector = vectorstore.NewConnector(cfg.VectorStoreCfg, logger)
	}

	budgeter, err := setupBudgeter(cfg.OpenAICfg.Model, logger)
	if err != nil {
		if db != nil {
			db.Close()
		}
		return nil, nil, fmt.Errorf("setup token budgeter: %w", err)
	}

	tracker := usage.NewTracker()

	var responseCache *cache.ResponseCache
	if cfg.Pipeline.CacheEnabled {
		responseCache = cache.New(cfg.Pipeline.CacheTTL, cfg.Pipeline.CacheMaxSize)
	}

	// Initialize use cases
	classifier := intent.NewClassifier(llmConnector, tracker, logger)
	retriever := retrieval.NewRetriever(llmConnector, storeConnector, cfg.IntentConfigs, cfg.Pipeline, tracker, logger)
	generator := generation.NewGenerator(llmConnector, budgeter, cfg.OpenAICfg, cfg.Pipeline, tracker, logger)

	chatUC := chat.NewUsecase(classifier, retriever, generator, sessions, responseCache, cfg.Pipeline, logger)
	logger.Info("Use cases initialized")

	return &coreComponents{chatUC: chatUC, tracker: tracker}, db, nil
}

// setupBudgeter builds the token budgeter for the configured model, falling
// back to the cl100k_base encoding for models tiktoken does not know.
func setupBudgeter(model string, logger *zap.Logger) (*tokens.Budgeter, error) {
	codec, err := tokens.NewCodecForModel(model)
	if err != nil {
		logger.Warn("unknown model for tokenizer, falling back to cl100k_base",
			zap.String("model", model),
			zap.Error(err),
		)
		codec, err = tokens.NewCodecForEncoding("cl100k_base")
		if err != nil {
			return nil, err
		}
	}
	return tokens.NewBudgeter(codec), nil
}
