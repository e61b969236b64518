// Package telegram announces category changes of the prediction stream.
package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"PillarCast/internal/domain/models"
	applogger "PillarCast/pkg/logger"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Sender is the subset of *tgbotapi.BotAPI the notifier needs.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type Option func(*Notifier)

// WithRetry sets the attempt count and the linear backoff step between attempts.
func WithRetry(maxRetries int, delayBase time.Duration) Option {
	return func(n *Notifier) {
		if maxRetries > 0 {
			n.maxRetries = maxRetries
		}
		if delayBase > 0 {
			n.retryDelayBase = delayBase
		}
	}
}

// WithInitialCategory seeds the last seen category, e.g. from the latest stored record.
func WithInitialCategory(c models.Category) Option {
	return func(n *Notifier) { n.last = c }
}

// Notifier sends a message whenever a record's category differs from the previous one.
type Notifier struct {
	sender         Sender
	chatID         int64
	maxRetries     int
	retryDelayBase time.Duration

	mu   sync.Mutex
	last models.Category
	l    *applogger.Logger
}

func NewNotifier(sender Sender, chatID int64, l *applogger.Logger, opts ...Option) *Notifier {
	n := &Notifier{
		sender:         sender,
		chatID:         chatID,
		maxRetries:     3,
		retryDelayBase: time.Second,
		l:              l,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// NewBotNotifier connects to the Bot API with botToken.
func NewBotNotifier(botToken, chatID string, l *applogger.Logger, opts ...Option) (*Notifier, error) {
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid chat ID: %w", err)
	}
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return NewNotifier(bot, id, l, opts...), nil
}

// Run consumes records until ctx is done or the channel is closed.
func (n *Notifier) Run(ctx context.Context, records <-chan models.PredictionRecord) {
	for {
		select {
		case <-ctx.Done():
			return
		case rec, ok := <-records:
			if !ok {
				n.l.Warn("telegram notifier subscription closed")
				return
			}
			if _, err := n.Observe(ctx, rec); err != nil {
				n.l.Error("telegram notify failed", applogger.String("id", rec.ID), applogger.Error(err))
			}
		}
	}
}

// Observe records rec and notifies on a category change. The first record
// only establishes the baseline.
func (n *Notifier) Observe(ctx context.Context, rec models.PredictionRecord) (bool, error) {
	n.mu.Lock()
	prev := n.last
	n.last = rec.Category
	n.mu.Unlock()

	if prev == "" || prev == rec.Category {
		return false, nil
	}
	return true, n.send(ctx, FormatChange(prev, rec))
}

func (n *Notifier) send(ctx context.Context, text string) error {
	msg := tgbotapi.NewMessage(n.chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdownV2

	var lastErr error
	for i := 0; i < n.maxRetries; i++ {
		_, err := n.sender.Send(msg)
		if err == nil {
			return nil
		}
		lastErr = err
		if i == n.maxRetries-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(n.retryDelayBase * time.Duration(i+1)):
		}
	}
	return fmt.Errorf("send after %d attempts: %w", n.maxRetries, lastErr)
}

// FormatChange renders a category transition as a MarkdownV2 message.
func FormatChange(prev models.Category, rec models.PredictionRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s *%s → %s*\n\n", categoryEmoji(rec.Category), escapeMarkdownV2(string(prev)), escapeMarkdownV2(string(rec.Category)))
	fmt.Fprintf(&b, "📅 %s\n", escapeMarkdownV2(rec.Timestamp.UTC().Format("2006-01-02 15:04:05")))
	fmt.Fprintf(&b, "Composite: *%s*\n", escapeMarkdownV2(fmt.Sprintf("%.2f", rec.CompositeScore)))
	fmt.Fprintf(&b, "Predicted move: *%s*\n\n", escapeMarkdownV2(fmt.Sprintf("%+.2f%%", rec.PredictedMove)))
	for _, ps := range rec.PillarScores {
		fmt.Fprintf(&b, "%s: %s\n", escapeMarkdownV2(string(ps.Pillar)), escapeMarkdownV2(fmt.Sprintf("%.1f", ps.Value)))
	}
	if rec.Degraded() {
		names := make([]string, len(rec.DegradedPillars))
		for i, p := range rec.DegradedPillars {
			names[i] = string(p)
		}
		fmt.Fprintf(&b, "\n⚠️ Neutral fallback: %s\n", escapeMarkdownV2(strings.Join(names, ", ")))
	}
	return b.String()
}

func categoryEmoji(c models.Category) string {
	switch c {
	case models.CategoryBullish:
		return "📈"
	case models.CategoryBearish:
		return "📉"
	}
	return "➖"
}

// escapeMarkdownV2 escapes _ * [ ] ( ) ~ ` > # + - = | { } . !
func escapeMarkdownV2(text string) string {
	var b strings.Builder
	for _, r := range text {
		switch r {
		case '_', '*', '[', ']', '(', ')', '~', '`', '>', '#', '+', '-', '=', '|', '{', '}', '.', '!':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
