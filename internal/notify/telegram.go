package notify

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	// Telegram rejects messages longer than this many characters
	maxMessageLen = 4096
	codeFence     = "```"
	sendDelay     = 50 * time.Millisecond
)

// Sender is the part of the bot API used to deliver messages
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram delivers text reports to a single chat
type Telegram struct {
	sender Sender
	chatID int64
	delay  time.Duration
	logger zerolog.Logger
}

// NewTelegram authorizes the bot and binds it to a chat
func NewTelegram(token string, chatID int64) (*Telegram, error) {
	if token == "" {
		return nil, fmt.Errorf("telegram bot token is empty")
	}
	if chatID == 0 {
		return nil, fmt.Errorf("telegram chat id is not set")
	}

	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("initializing Telegram bot: %w", err)
	}

	t := NewTelegramWithSender(bot, chatID)
	t.logger.Info().Str("username", bot.Self.UserName).Msg("Authorized on Telegram")
	return t, nil
}

// NewTelegramWithSender builds a notifier over any Sender
func NewTelegramWithSender(sender Sender, chatID int64) *Telegram {
	return &Telegram{
		sender: sender,
		chatID: chatID,
		delay:  sendDelay,
		logger: log.With().Str("component", "telegram_notifier").Logger(),
	}
}

// SendReport sends a preformatted report as one or more monospace messages
func (t *Telegram) SendReport(ctx context.Context, report string) error {
	chunks := splitMessage(strings.TrimSpace(report), maxMessageLen-2*len(codeFence)-2)
	for i, chunk := range chunks {
		if i > 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(t.delay):
			}
		}

		msg := tgbotapi.NewMessage(t.chatID, codeFence+"\n"+chunk+"\n"+codeFence)
		msg.ParseMode = tgbotapi.ModeMarkdown
		if _, err := t.sender.Send(msg); err != nil {
			return fmt.Errorf("sending report part %d/%d: %w", i+1, len(chunks), err)
		}
	}

	t.logger.Info().Int64("chat_id", t.chatID).Int("parts", len(chunks)).Msg("Report sent")
	return nil
}

// splitMessage cuts text into pieces of at most limit characters, preferring line breaks
func splitMessage(text string, limit int) []string {
	if text == "" {
		return nil
	}

	var (
		parts []string
		lines []string
		size  int
	)
	flush := func() {
		if len(lines) > 0 {
			parts = append(parts, strings.Join(lines, "\n"))
			lines = lines[:0]
			size = 0
		}
	}

	for _, line := range strings.Split(text, "\n") {
		wrapped := false
		for utf8.RuneCountInString(line) > limit {
			flush()
			head, tail := splitRunes(line, limit)
			parts = append(parts, head)
			line = tail
			wrapped = true
		}
		if wrapped && line == "" {
			continue
		}

		n := utf8.RuneCountInString(line)
		if len(lines) > 0 && size+1+n > limit {
			flush()
		}
		if len(lines) > 0 {
			size++
		}
		lines = append(lines, line)
		size += n
	}
	flush()
	return parts
}

func splitRunes(s string, n int) (string, string) {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos], s[pos:]
		}
		i++
	}
	return s, ""
}
