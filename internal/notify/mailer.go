package notify

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"github.com/wneessen/go-mail"

	"github.com/mr1hm/go-flood-alerts/internal/config"
)

const senderName = "HydroAlert"

var alertTemplate = template.Must(template.New("alert").Parse(`<div style="font-family: Arial, sans-serif;">
  <h2>&#x1F6A8; Flood Alert</h2>
  <p>{{.}}</p>
  <p><strong>Stay safe,<br/>HydroAlert Team</strong></p>
</div>`))

// smtpSender is the part of *mail.Client the Mailer uses.
type smtpSender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

type Mailer struct {
	from   string
	client smtpSender
}

func NewMailer(cfg config.MailConfig) (*Mailer, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTLSPolicy(mail.TLSMandatory),
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("error creating smtp client: %w", err)
	}
	return &Mailer{from: cfg.From, client: client}, nil
}

func (m *Mailer) Send(ctx context.Context, address, subject, body string) error {
	msg, err := m.newMessage(address, subject, body)
	if err != nil {
		return err
	}
	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("error sending mail to %s: %w", address, err)
	}
	return nil
}

func (m *Mailer) newMessage(address, subject, body string) (*mail.Msg, error) {
	html, err := renderHTML(body)
	if err != nil {
		return nil, err
	}

	msg := mail.NewMsg()
	if err := msg.FromFormat(senderName, m.from); err != nil {
		return nil, fmt.Errorf("invalid sender address %q: %w", m.from, err)
	}
	if err := msg.To(address); err != nil {
		return nil, fmt.Errorf("invalid recipient address %q: %w", address, err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, html)
	msg.AddAlternativeString(mail.TypeTextPlain, body)
	return msg, nil
}

func renderHTML(body string) (string, error) {
	var buf bytes.Buffer
	if err := alertTemplate.Execute(&buf, body); err != nil {
		return "", fmt.Errorf("error rendering alert email: %w", err)
	}
	return buf.String(), nil
}
