package notification

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/avast/retry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSMTPTransport_BuildMsg(t *testing.T) {
	p := NewSMTPTransport(SMTPConfig{FromAddr: "MEDSystem <system@jlh-tonga.com>"}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	_, err := p.buildMsg(Message{Subject: "METAR Submission", Body: "x"})
	assert.EqualError(t, err, "no recipients")

	m, err := p.buildMsg(Message{
		To:        []string{"a@example.com", "b@example.com"},
		Subject:   "METAR Submission",
		Body:      "<pre>x</pre>",
		Format:    FormatHTML,
		PlainText: "x",
	})
	require.NoError(t, err)
	to := m.GetTo()
	require.Len(t, to, 2)
	assert.Equal(t, "a@example.com", to[0].Address)
	assert.Equal(t, "b@example.com", to[1].Address)
}

func TestSMTPTransport_InvalidFrom(t *testing.T) {
	p := NewSMTPTransport(SMTPConfig{FromAddr: "not an address"}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	err := p.Send(context.Background(), Message{To: []string{"a@example.com"}})
	assert.ErrorContains(t, err, "invalid from address")
}

func TestSMTPTransport_ConnectionRefused(t *testing.T) {
	p := NewSMTPTransport(SMTPConfig{
		Host:          "127.0.0.1",
		Port:          1, // nothing listens here
		FromAddr:      "system@jlh-tonga.com",
		Encryption:    "none",
		RetryAttempts: 1,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := p.Send(ctx, Message{To: []string{"a@example.com"}, Subject: "s", Body: "b"})
	require.Error(t, err)
	var rerr retry.Error
	assert.False(t, errors.As(err, &rerr), "retry wrapper should be unpacked")
}

func TestLastError(t *testing.T) {
	first := errors.New("first")
	last := errors.New("last")

	assert.Equal(t, last, lastError(retry.Error{first, last, nil}))
	assert.Equal(t, first, lastError(first))
	assert.NoError(t, lastError(nil))
}
