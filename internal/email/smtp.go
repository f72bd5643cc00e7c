package email

import (
	"context"
	"fmt"

	"github.com/wneessen/go-mail"
)

// SMTPConfig holds the SMTP relay settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPProvider delivers mail through an authenticated SMTP relay.
type SMTPProvider struct {
	cfg SMTPConfig
}

func NewSMTPProvider(cfg SMTPConfig) *SMTPProvider {
	return &SMTPProvider{cfg: cfg}
}

var _ Provider = (*SMTPProvider)(nil)

func (p *SMTPProvider) Send(ctx context.Context, msg Message) error {
	m := mail.NewMsg()
	if err := m.From(p.cfg.From); err != nil {
		return &SendError{Kind: KindSendFailed, Message: "invalid from address", Cause: err}
	}
	if err := m.To(msg.To); err != nil {
		return &SendError{Kind: KindInvalidFormat, Message: "invalid recipient address", Cause: err}
	}
	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextHTML, msg.HTML)

	client, err := mail.NewClient(p.cfg.Host,
		mail.WithPort(p.cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(p.cfg.Username),
		mail.WithPassword(p.cfg.Password),
		mail.WithTLSPortPolicy(mail.TLSMandatory),
	)
	if err != nil {
		return &SendError{Kind: KindSendFailed, Message: "failed to create smtp client", Cause: err}
	}

	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return ClassifySMTPError(fmt.Errorf("smtp delivery to %s failed: %w", msg.To, err))
	}
	return nil
}
