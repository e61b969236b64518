package telegram

import (
	"context"
	"errors"
	"testing"
	"time"

	"PillarCast/internal/domain/models"
	applogger "PillarCast/pkg/logger"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	failures int
	sent     []tgbotapi.MessageConfig
	attempts int
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.attempts++
	if f.attempts <= f.failures {
		return tgbotapi.Message{}, errors.New("telegram: too many requests")
	}
	f.sent = append(f.sent, c.(tgbotapi.MessageConfig))
	return tgbotapi.Message{}, nil
}

func rec(c models.Category, move float64) models.PredictionRecord {
	r := models.PredictionRecord{
		ID:             "r",
		Timestamp:      time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		CompositeScore: 55.5,
		PredictedMove:  move,
		Category:       c,
	}
	for i, p := range models.Pillars {
		r.PillarScores[i] = models.PillarScore{Pillar: p, Value: 50}
	}
	return r
}

func TestObserveNotifiesOnlyOnCategoryChange(t *testing.T) {
	s := &fakeSender{}
	n := NewNotifier(s, 42, applogger.Nop(), WithRetry(1, time.Millisecond))
	ctx := context.Background()

	sent, err := n.Observe(ctx, rec(models.CategoryNeutral, 0.5))
	require.NoError(t, err)
	assert.False(t, sent, "first record is the baseline")

	sent, err = n.Observe(ctx, rec(models.CategoryNeutral, 1))
	require.NoError(t, err)
	assert.False(t, sent)

	sent, err = n.Observe(ctx, rec(models.CategoryBullish, 2.5))
	require.NoError(t, err)
	assert.True(t, sent)

	require.Len(t, s.sent, 1)
	assert.Equal(t, int64(42), s.sent[0].ChatID)
	assert.Equal(t, tgbotapi.ModeMarkdownV2, s.sent[0].ParseMode)
	assert.Contains(t, s.sent[0].Text, "Neutral → Bullish")
	assert.Contains(t, s.sent[0].Text, "\\+2\\.50%")
}

func TestInitialCategorySeedsBaseline(t *testing.T) {
	s := &fakeSender{}
	n := NewNotifier(s, 1, applogger.Nop(), WithInitialCategory(models.CategoryBearish))

	sent, err := n.Observe(context.Background(), rec(models.CategoryNeutral, 0))
	require.NoError(t, err)
	assert.True(t, sent)
}

func TestSendRetries(t *testing.T) {
	s := &fakeSender{failures: 2}
	n := NewNotifier(s, 1, applogger.Nop(), WithRetry(3, time.Millisecond), WithInitialCategory(models.CategoryNeutral))

	sent, err := n.Observe(context.Background(), rec(models.CategoryBearish, -3))
	require.NoError(t, err)
	assert.True(t, sent)
	assert.Equal(t, 3, s.attempts)
	assert.Len(t, s.sent, 1)
}

func TestSendGivesUp(t *testing.T) {
	s := &fakeSender{failures: 10}
	n := NewNotifier(s, 1, applogger.Nop(), WithRetry(2, time.Millisecond), WithInitialCategory(models.CategoryNeutral))

	_, err := n.Observe(context.Background(), rec(models.CategoryBearish, -3))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "send after 2 attempts")
	assert.Equal(t, 2, s.attempts)
}

func TestRunStopsWhenChannelCloses(t *testing.T) {
	s := &fakeSender{}
	n := NewNotifier(s, 1, applogger.Nop())
	ch := make(chan models.PredictionRecord, 2)
	ch <- rec(models.CategoryNeutral, 0)
	ch <- rec(models.CategoryBearish, -4)
	close(ch)

	done := make(chan struct{})
	go func() {
		n.Run(context.Background(), ch)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return")
	}
	assert.Len(t, s.sent, 1)
}

func TestFormatChangeListsDegradedPillars(t *testing.T) {
	r := rec(models.CategoryBearish, -2.25)
	r.DegradedPillars = []models.Pillar{models.PillarSocial}
	msg := FormatChange(models.CategoryNeutral, r)

	assert.Contains(t, msg, "📉")
	assert.Contains(t, msg, "Neutral fallback: social")
	assert.Contains(t, msg, "\\-2\\.25%")
	assert.Contains(t, msg, "55\\.50")
}
