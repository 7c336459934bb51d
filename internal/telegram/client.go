// Package telegram posts ranked slates to a Telegram chat.
// It renders the top matchups and the excluded games into a MarkdownV2
// message and delivers it with linear-backoff retries.
package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/rewired-gh/goi/internal/models"
	"github.com/rewired-gh/goi/internal/slate"
)

// sender is the part of the bot API the client uses.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Client handles Telegram notifications
type Client struct {
	bot            sender
	chatID         int64
	topK           int
	maxRetries     int
	retryDelayBase time.Duration
}

// NewClient creates a new Telegram client
func NewClient(botToken, chatID string, topK, maxRetries int, retryDelayBase time.Duration) (*Client, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}
	return newClient(bot, chatID, topK, maxRetries, retryDelayBase)
}

func newClient(bot sender, chatID string, topK, maxRetries int, retryDelayBase time.Duration) (*Client, error) {
	chatIDInt, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid chat ID: %w", err)
	}

	if topK <= 0 {
		topK = 5
	}
	if maxRetries <= 0 {
		maxRetries = 3
	}
	if retryDelayBase <= 0 {
		retryDelayBase = time.Second
	}

	return &Client{
		bot:            bot,
		chatID:         chatIDInt,
		topK:           topK,
		maxRetries:     maxRetries,
		retryDelayBase: retryDelayBase,
	}, nil
}

// SendSlate posts the top of a ranked slate.
func (c *Client) SendSlate(ctx context.Context, res slate.Result) error {
	msg := tgbotapi.NewMessage(c.chatID, formatSlate(res, c.topK))
	msg.ParseMode = tgbotapi.ModeMarkdownV2

	var lastErr error
	for i := 0; i < c.maxRetries; i++ {
		_, err := c.bot.Send(msg)
		if err == nil {
			return nil
		}
		lastErr = err

		select {
		case <-ctx.Done():
			return fmt.Errorf("send slate: %w", ctx.Err())
		case <-time.After(c.retryDelayBase * time.Duration(i+1)):
		}
	}

	return fmt.Errorf("failed to send message after %d retries: %w", c.maxRetries, lastErr)
}

func formatSlate(res slate.Result, topK int) string {
	var b strings.Builder

	fmt.Fprintf(&b, "🏒 *GOI slate %s*\n\n", escapeMarkdownV2(res.Date.Format(models.DateLayout)))

	if len(res.Ranked) == 0 {
		b.WriteString("No rankable games\\.\n")
	}
	for i, m := range res.Ranked {
		if i == topK {
			fmt.Fprintf(&b, "_…and %d more_\n", len(res.Ranked)-topK)
			break
		}
		fav := m.Favoured()
		fmt.Fprintf(&b, "%d\\. *%s* @ *%s*\n", m.Rank,
			escapeMarkdownV2(m.Away.Team), escapeMarkdownV2(m.Home.Team))
		fmt.Fprintf(&b, "   Edge: %s %s \\(diff %s\\)\n",
			escapeMarkdownV2(fav.Team),
			escapeMarkdownV2(fmt.Sprintf("%+.2f", fav.Priority)),
			escapeMarkdownV2(fmt.Sprintf("%.2f", m.PriorityDiff)))
		fmt.Fprintf(&b, "   👉 %s\n\n", escapeMarkdownV2(m.Recommendation))
	}

	if len(res.Excluded) > 0 {
		b.WriteString("*Excluded*\n")
		for _, e := range res.Excluded {
			fmt.Fprintf(&b, "• %s: %s\n", escapeMarkdownV2(gameLabel(e)), escapeMarkdownV2(e.Reason))
		}
	}

	return b.String()
}

func gameLabel(e slate.Exclusion) string {
	id := e.GameID
	if id == "" {
		id = "(no id)"
	}
	if e.Home == "" && e.Away == "" {
		return id
	}
	return fmt.Sprintf("%s %s @ %s", id, e.Away, e.Home)
}

// escapeMarkdownV2 escapes special characters for Telegram MarkdownV2
func escapeMarkdownV2(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, char := range text {
		switch char {
		case '_', '*', '[', ']', '(', ')', '~', '`', '>', '#', '+', '-', '=', '|', '{', '}', '.', '!':
			b.WriteByte('\\')
		}
		b.WriteRune(char)
	}
	return b.String()
}
