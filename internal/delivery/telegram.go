// Package delivery renders the engine's paced chunk stream over concrete
// transports. The engine itself stays transport-agnostic.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/solacechat/engine/internal/engine"
)

// editInterval throttles message edits so the paced stream does not exceed
// Telegram's API rate limits.
const editInterval = 900 * time.Millisecond

type TelegramBot struct {
	api    *tgbotapi.BotAPI
	engine *engine.Engine
	logger *zap.Logger
}

func NewTelegramBot(token string, eng *engine.Engine, logger *zap.Logger) (*TelegramBot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	return &TelegramBot{
		api:    api,
		engine: eng,
		logger: logger,
	}, nil
}

func (b *TelegramBot) Start(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil || update.Message.Text == "" {
				continue
			}
			go b.handleMessage(ctx, update.Message)
		}
	}
}

func (b *TelegramBot) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID

	req := engine.TurnRequest{
		SessionID:   fmt.Sprintf("tg-%d", chatID),
		UserID:      fmt.Sprintf("tg-user-%d", message.From.ID),
		TherapistID: "default",
		Message:     message.Text,
	}

	if _, err := b.api.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)); err != nil {
		b.logger.Debug("failed to send typing action",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}

	// The paced stream is rendered by progressively editing one message.
	var sentMessageID int
	var lastEdit time.Time
	var displayed string

	onChunk := func(partial string) {
		if sentMessageID == 0 {
			msg := tgbotapi.NewMessage(chatID, partial)
			sent, err := b.api.Send(msg)
			if err != nil {
				b.logger.Error("failed to send message",
					zap.Error(err),
					zap.Int64("chat_id", chatID))
				return
			}
			sentMessageID = sent.MessageID
			displayed = partial
			lastEdit = time.Now()
			return
		}

		if time.Since(lastEdit) < editInterval {
			return
		}
		edit := tgbotapi.NewEditMessageText(chatID, sentMessageID, partial)
		if _, err := b.api.Send(edit); err != nil {
			b.logger.Debug("failed to edit message",
				zap.Error(err),
				zap.Int64("chat_id", chatID))
			return
		}
		displayed = partial
		lastEdit = time.Now()
	}

	result, err := b.engine.ProcessTurn(ctx, req, onChunk)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			// Barge-in: a newer message took over this session.
			return
		}
		b.logger.Error("turn failed",
			zap.Error(err),
			zap.Int64("chat_id", chatID),
			zap.String("session_id", req.SessionID))
		return
	}

	// Final edit so the rendered message always matches the full response.
	if sentMessageID != 0 && displayed != result.Response {
		edit := tgbotapi.NewEditMessageText(chatID, sentMessageID, result.Response)
		if _, err := b.api.Send(edit); err != nil {
			b.logger.Debug("failed to finalize message",
				zap.Error(err),
				zap.Int64("chat_id", chatID))
		}
	}
}
