package notify

import (
	"context"
	"errors"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	sent []tgbotapi.Chattable
	err  error
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, f.err
}

func TestTelegramNotifierSendsToConfiguredChat(t *testing.T) {
	sender := &fakeSender{}
	n := NewTelegramNotifierWithSender(sender, 12345, nil)

	require.NoError(t, n.Notify(context.Background(), "order_1 paid"))
	require.Len(t, sender.sent, 1)
	msg, ok := sender.sent[0].(tgbotapi.MessageConfig)
	require.True(t, ok)
	assert.Equal(t, int64(12345), msg.ChatID)
	assert.Equal(t, "order_1 paid", msg.Text)
}

func TestTelegramNotifierErrors(t *testing.T) {
	sender := &fakeSender{err: errors.New("blocked")}
	n := NewTelegramNotifierWithSender(sender, 1, nil)
	assert.Error(t, n.Notify(context.Background(), "x"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, n.Notify(ctx, "x"), context.Canceled)
	assert.NoError(t, Nop{}.Notify(context.Background(), "x"))
}
