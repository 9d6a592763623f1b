package mailer

import (
	"context"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/wichananm65/storefront-backend/internal/config"
)

func TestNew_SelectsDriver(t *testing.T) {
	_, ok := New(config.MailConfig{Driver: "log"}, zap.NewNop()).(*Log)
	assert.True(t, ok)
	_, ok = New(config.MailConfig{Driver: "smtp"}, zap.NewNop()).(*Log)
	assert.True(t, ok, "smtp without host falls back to log")
	_, ok = New(config.MailConfig{Driver: "smtp", Host: "mail.local"}, zap.NewNop()).(*SMTP)
	assert.True(t, ok)
}

func TestLog_Send(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	m := NewLog(zap.New(core))

	require.NoError(t, m.Send(context.Background(), Message{To: []string{"a@example.com"}, Subject: "hi"}))
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "hi", logs.All()[0].ContextMap()["subject"])

	assert.ErrorIs(t, m.Send(context.Background(), Message{}), ErrNoRecipients)
}

func TestSMTP_Send(t *testing.T) {
	s := NewSMTP(config.MailConfig{Host: "mail.local", Port: 2525, Username: "u", Password: "p", From: "shop@example.com"})
	s.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }

	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte
	s.send = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
		return nil
	}

	err := s.Send(context.Background(), Message{
		To:      []string{"c@example.com"},
		ReplyTo: "r@example.com",
		Subject: "Order #1001",
		Body:    "line1\nline2",
	})
	require.NoError(t, err)
	assert.Equal(t, "mail.local:2525", gotAddr)
	assert.Equal(t, "shop@example.com", gotFrom)
	assert.Equal(t, []string{"c@example.com"}, gotTo)

	raw := string(gotMsg)
	assert.Contains(t, raw, "To: c@example.com\r\n")
	assert.Contains(t, raw, "Reply-To: r@example.com\r\n")
	assert.Contains(t, raw, "Subject: Order #1001\r\n")
	assert.True(t, strings.HasSuffix(raw, "line1\r\nline2"))
}

func TestSMTP_CanceledContext(t *testing.T) {
	s := NewSMTP(config.MailConfig{Host: "mail.local"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Send(ctx, Message{To: []string{"a@example.com"}}), context.Canceled)
}
