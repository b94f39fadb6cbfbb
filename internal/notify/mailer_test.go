package notify

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wneessen/go-mail"

	"github.com/mr1hm/go-flood-alerts/internal/config"
)

type fakeSender struct {
	sent []*mail.Msg
	err  error
}

func (f *fakeSender) DialAndSendWithContext(_ context.Context, messages ...*mail.Msg) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, messages...)
	return nil
}

func TestMailer_Send(t *testing.T) {
	sender := &fakeSender{}
	m := &Mailer{from: "alerts@hydroalert.test", client: sender}

	err := m.Send(context.Background(), "user@example.com", "Flood Risk HIGH", "Flood risk in Aluva is now HIGH. Please take precautions.")
	require.NoError(t, err)
	require.Len(t, sender.sent, 1)

	msg := sender.sent[0]
	rcpts, err := msg.GetRecipients()
	require.NoError(t, err)
	assert.Equal(t, []string{"user@example.com"}, rcpts)
	assert.Equal(t, []string{"Flood Risk HIGH"}, msg.GetGenHeader(mail.HeaderSubject))
}

func TestMailer_SendError(t *testing.T) {
	sender := &fakeSender{err: errors.New("421 too many connections")}
	m := &Mailer{from: "alerts@hydroalert.test", client: sender}

	err := m.Send(context.Background(), "user@example.com", "s", "b")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "421")
}

func TestMailer_InvalidRecipient(t *testing.T) {
	sender := &fakeSender{}
	m := &Mailer{from: "alerts@hydroalert.test", client: sender}

	err := m.Send(context.Background(), "not an address", "s", "b")
	require.Error(t, err)
	assert.Empty(t, sender.sent)
}

func TestRenderHTML_EscapesBody(t *testing.T) {
	html, err := renderHTML(`Flood risk in <script>x</script> is now HIGH.`)
	require.NoError(t, err)

	assert.NotContains(t, html, "<script>")
	assert.True(t, strings.Contains(html, "HydroAlert Team"))
}

func TestNewMailer(t *testing.T) {
	m, err := NewMailer(config.MailConfig{Host: "smtp.example.com", Port: 587, Username: "u", Password: "p", From: "alerts@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "alerts@example.com", m.from)
}

func TestLogNotifier(t *testing.T) {
	assert.NoError(t, LogNotifier{}.Send(context.Background(), "a@b.c", "s", "b"))
}
