package channel

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	tele "gopkg.in/telebot.v3"
)

// telegramLimit stays under Telegram's 4096-character message cap.
const telegramLimit = 4000

// TelegramConfig holds Telegram-specific configuration.
type TelegramConfig struct {
	Token  string
	ChatID int64
	// APIURL overrides the Bot API endpoint.
	APIURL string
}

// Telegram sends messages through the Telegram Bot API.
type Telegram struct {
	bot    *tele.Bot
	chatID int64
}

// NewTelegram creates a sender. The bot is used offline: no polling and no
// getMe call at startup.
func NewTelegram(cfg TelegramConfig) (*Telegram, error) {
	bot, err := tele.NewBot(tele.Settings{
		Token:   cfg.Token,
		URL:     cfg.APIURL,
		Offline: true,
	})
	if err != nil {
		return nil, fmt.Errorf("telegram bot init: %w", err)
	}
	return &Telegram{bot: bot, chatID: cfg.ChatID}, nil
}

func (t *Telegram) Name() string { return "telegram" }

// Send delivers msg, split into chunks Telegram accepts. An empty ChatID uses
// the configured default chat.
func (t *Telegram) Send(ctx context.Context, msg OutboundMessage) error {
	chatID := t.chatID
	if msg.ChatID != "" {
		id, err := strconv.ParseInt(msg.ChatID, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid chat ID: %w", err)
		}
		chatID = id
	}
	if chatID == 0 {
		return fmt.Errorf("telegram: no chat ID")
	}

	recipient := &tele.Chat{ID: chatID}
	for _, chunk := range splitMessage(msg.Text, telegramLimit) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := t.bot.Send(recipient, chunk); err != nil {
			return fmt.Errorf("telegram send: %w", err)
		}
	}
	return nil
}

// splitMessage cuts text into pieces of at most limit runes, preferring to
// break after a newline in the second half of a piece.
func splitMessage(text string, limit int) []string {
	var chunks []string
	for utf8.RuneCountInString(text) > limit {
		cut := byteOffset(text, limit)
		if nl := strings.LastIndexByte(text[:cut], '\n'); nl >= cut/2 {
			cut = nl + 1
		}
		chunks = append(chunks, text[:cut])
		text = text[cut:]
	}
	if text != "" {
		chunks = append(chunks, text)
	}
	return chunks
}

// byteOffset returns the byte index of the n-th rune.
func byteOffset(s string, n int) int {
	i := 0
	for off := range s {
		if i == n {
			return off
		}
		i++
	}
	return len(s)
}
