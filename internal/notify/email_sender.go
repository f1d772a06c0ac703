package notify

import (
	"context"
	"time"

	gomail "gopkg.in/mail.v2"

	"github.com/shanehull/cs2news/internal/logger"
	"github.com/shanehull/cs2news/internal/types"
)

// EmailConfig holds SMTP configuration for the email mirror.
type EmailConfig struct {
	SMTPServer string
	SMTPPort   int
	SMTPUser   string
	SMTPPass   string
	FromEmail  string
	ToEmail    string
}

// Enabled reports whether enough is set to send mail.
func (c EmailConfig) Enabled() bool {
	return c.SMTPServer != "" && c.SMTPUser != "" && c.SMTPPass != "" && c.ToEmail != ""
}

// RenderedMessage is a ready-to-send email.
type RenderedMessage struct {
	Subject string
	Text    string
	HTML    string
}

// Sender delivers rendered messages.
type Sender interface {
	Send(msg *RenderedMessage) error
}

// EmailSender delivers messages via SMTP.
type EmailSender struct {
	cfg EmailConfig
}

// NewEmailSender creates a sender with the given SMTP configuration.
func NewEmailSender(cfg EmailConfig) *EmailSender {
	if cfg.FromEmail == "" {
		cfg.FromEmail = cfg.SMTPUser
	}
	return &EmailSender{cfg: cfg}
}

// Send delivers an email with HTML body and plain text fallback.
func (s *EmailSender) Send(msg *RenderedMessage) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.cfg.FromEmail)
	m.SetHeader("To", s.cfg.ToEmail)
	m.SetHeader("Subject", msg.Subject)

	if msg.HTML != "" {
		m.SetBody("text/plain", msg.Text)
		m.AddAlternative("text/html", msg.HTML)
	} else {
		m.SetBody("text/plain", msg.Text)
	}

	dialer := gomail.NewDialer(s.cfg.SMTPServer, s.cfg.SMTPPort, s.cfg.SMTPUser, s.cfg.SMTPPass)
	dialer.Timeout = 10 * time.Second

	return dialer.DialAndSend(m)
}

// Mirror delivers through the primary notifier, then copies the item by
// email. Mail failures are logged and never fail the delivery.
type Mirror struct {
	primary  Notifier
	sender   Sender
	renderer *HTMLEmailRenderer
	log      logger.Logger
}

func NewMirror(primary Notifier, sender Sender, log logger.Logger) *Mirror {
	return &Mirror{
		primary:  primary,
		sender:   sender,
		renderer: NewHTMLEmailRenderer(),
		log:      log,
	}
}

func (m *Mirror) Deliver(ctx context.Context, item types.Item) error {
	if err := m.primary.Deliver(ctx, item); err != nil {
		return err
	}

	msg, err := m.renderer.Render(item)
	if err != nil {
		m.log.Warn("email render failed", logger.Error(err))
		return nil
	}

	if err := m.sender.Send(msg); err != nil {
		m.log.Warn("email mirror failed", logger.String("subject", msg.Subject), logger.Error(err))
		return nil
	}

	m.log.Info("email mirror sent", logger.String("subject", msg.Subject))
	return nil
}
