package telegram

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/askfolio/chat-backend/internal/config"
	"github.com/askfolio/chat-backend/internal/entity"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

const (
	msgWelcome = "Hi! I can answer questions about this portfolio. " +
		"Ask me anything about projects, skills or experience."
	msgHelp = `Commands:

/start - Start a conversation
/help - Show this help
/clear - Forget the conversation so far
/transcript - Download the conversation as a file

Just type a question to get an answer.`
	msgCleared = "Conversation cleared. Ask me anything."
	msgEmpty   = "Nothing to export yet. Ask a question first."
	msgErr     = "Something went wrong. Please try again."
)

// Bot bridges Telegram chats to the answer pipeline. Each Telegram chat maps
// to one conversation session.
type Bot struct {
	api         *tgbotapi.BotAPI
	cfg         config.TelegramConfig
	chatUC      ChatUsecase
	logger      *zap.Logger
	updatesChan tgbotapi.UpdatesChannel
	stopChan    chan struct{}
	wg          sync.WaitGroup
}

// NewBot creates a Telegram bot wired to the chat usecase
func NewBot(cfg config.TelegramConfig, chatUC ChatUsecase, logger *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("create bot API: %w", err)
	}
	api.Debug = false

	logger.Info("telegram bot authorized",
		zap.String("username", api.Self.UserName),
		zap.Int64("id", api.Self.ID),
	)

	return &Bot{
		api:      api,
		cfg:      cfg,
		chatUC:   chatUC,
		logger:   logger,
		stopChan: make(chan struct{}),
	}, nil
}

// Start starts the bot
func (b *Bot) Start(ctx context.Context) error {
	b.logger.Info("starting telegram bot")

	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.cfg.UpdateTimeout

	b.updatesChan = b.api.GetUpdatesChan(u)

	ctx = ctxzap.ToContext(ctx, b.logger)
	go b.processUpdates(ctx)

	b.logger.Info("telegram bot started successfully")
	return nil
}

// Stop stops the bot gracefully with timeout
func (b *Bot) Stop() error {
	b.logger.Info("stopping telegram bot")

	close(b.stopChan)
	b.api.StopReceivingUpdates()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		b.logger.Info("all handlers completed gracefully")
	case <-time.After(b.cfg.ShutdownTimeout):
		b.logger.Warn("shutdown timeout exceeded, some handlers may not have completed",
			zap.Duration("timeout", b.cfg.ShutdownTimeout),
		)
		return fmt.Errorf("shutdown timeout exceeded")
	}

	b.logger.Info("telegram bot stopped successfully")
	return nil
}

// processUpdates processes incoming updates
func (b *Bot) processUpdates(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			ctxzap.Info(ctx, "context cancelled, stopping update processing")
			return
		case <-b.stopChan:
			ctxzap.Info(ctx, "stop signal received, stopping update processing")
			return
		case update := <-b.updatesChan:
			if update.Message == nil {
				continue
			}
			b.wg.Add(1)
			go func(msg *tgbotapi.Message) {
				defer b.wg.Done()
				defer func() {
					if r := recover(); r != nil {
						b.logger.Error("panic in update handler", zap.Any("panic", r))
						b.sendText(msg.Chat.ID, msgErr)
					}
				}()
				b.handleMessage(ctxzap.ToContext(context.Background(), b.logger), msg)
			}(update.Message)
		}
	}
}

// sessionID derives a stable conversation session from the Telegram chat.
func sessionID(chatID int64) string {
	return fmt.Sprintf("tg-%d", chatID)
}

func (b *Bot) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	if message.IsCommand() {
		b.handleCommand(ctx, message)
		return
	}

	chatID := message.Chat.ID

	// Show typing while the pipeline runs
	b.api.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping))

	resp, err := b.chatUC.Answer(ctx, &entity.ChatRequest{
		Message:   message.Text,
		SessionID: sessionID(chatID),
	})
	if err != nil {
		ctxzap.Error(ctx, "answer failed",
			zap.Error(err),
			zap.Int64("chat_id", chatID),
		)
		b.sendText(chatID, msgErr)
		return
	}

	b.sendText(chatID, resp.Response)
}

func (b *Bot) handleCommand(ctx context.Context, message *tgbotapi.Message) {
	command := message.Command()
	chatID := message.Chat.ID

	ctxzap.Info(ctx, "command received",
		zap.String("command", command),
		zap.Int64("chat_id", chatID),
	)

	switch command {
	case "start":
		b.sendText(chatID, msgWelcome)
	case "help":
		b.sendText(chatID, msgHelp)
	case "clear":
		if err := b.chatUC.ClearSession(ctx, sessionID(chatID)); err != nil {
			ctxzap.Error(ctx, "clear session failed", zap.Error(err))
			b.sendText(chatID, msgErr)
			return
		}
		b.sendText(chatID, msgCleared)
	case "transcript":
		b.handleTranscript(ctx, chatID)
	default:
		b.sendText(chatID, "Unknown command. Use /help")
	}
}

func (b *Bot) handleTranscript(ctx context.Context, chatID int64) {
	data, _, err := b.chatUC.Transcript(ctx, sessionID(chatID), entity.FormatMarkdown)
	if err != nil {
		if errors.Is(err, entity.ErrSessionNotFound) {
			b.sendText(chatID, msgEmpty)
			return
		}
		ctxzap.Error(ctx, "transcript export failed", zap.Error(err))
		b.sendText(chatID, msgErr)
		return
	}

	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{
		Name:  "transcript.md",
		Bytes: data,
	})
	if _, err := b.api.Send(doc); err != nil {
		ctxzap.Error(ctx, "send transcript failed", zap.Error(err))
		b.sendText(chatID, msgErr)
	}
}

func (b *Bot) sendText(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("failed to send message",
			zap.Error(err),
			zap.Int64("chat_id", chatID),
		)
	}
}
