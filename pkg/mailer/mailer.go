package mailer

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/swaaagray/CvSU-SAOMS-sub006/config"
)

var ErrNoAddress = errors.New("recipient has no email address")

// Recipient one addressee.
type Recipient struct {
	Name  string
	Email string
}

// Message a rendered email addressed to one recipient.
type Message struct {
	From    string
	To      Recipient
	Subject string
	Text    string
	HTML    string
}

// Transport delivers a rendered message.
type Transport interface {
	Deliver(ctx context.Context, msg *Message) error
}

// Mailer renders templates and hands them to a Transport, throttled by a token bucket.
type Mailer struct {
	templates *Templates
	transport Transport
	limiter   *rate.Limiter
	from      string
	portalURL string
	logger    *zap.Logger
}

// New builds a Mailer. With no SMTP host configured, messages are only logged.
func New(cfg *config.MailConfig, rc *config.ReminderConfig, logger *zap.Logger) (*Mailer, error) {
	var transport Transport
	if cfg.Enabled() {
		transport = NewSMTPTransport(cfg)
	} else {
		transport = NewLogTransport(logger)
	}
	return NewWithTransport(cfg, rc, transport, logger)
}

// NewWithTransport builds a Mailer over an explicit transport.
func NewWithTransport(cfg *config.MailConfig, rc *config.ReminderConfig, transport Transport, logger *zap.Logger) (*Mailer, error) {
	tpl, err := LoadTemplates()
	if err != nil {
		return nil, err
	}

	limit := rate.Inf
	burst := 1
	if rc != nil && rc.EmailRatePerSec > 0 {
		limit = rate.Limit(rc.EmailRatePerSec)
		burst = rc.EmailBurst
		if burst <= 0 {
			burst = 1
		}
	}

	return &Mailer{
		templates: tpl,
		transport: transport,
		limiter:   rate.NewLimiter(limit, burst),
		from:      cfg.From,
		portalURL: cfg.PortalURL,
		logger:    logger,
	}, nil
}

// Send renders template for data and delivers it to to. It waits for a send token
// and gives up when ctx ends.
func (m *Mailer) Send(ctx context.Context, template string, to Recipient, data map[string]any) error {
	if to.Email == "" {
		return ErrNoAddress
	}

	vars := make(map[string]any, len(data)+2)
	for k, v := range data {
		vars[k] = v
	}
	vars["RecipientName"] = to.Name
	if _, ok := vars["PortalURL"]; !ok {
		vars["PortalURL"] = m.portalURL
	}

	rendered, err := m.templates.Render(template, vars)
	if err != nil {
		return err
	}

	if err := m.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("email throttle: %w", err)
	}

	msg := &Message{
		From:    m.from,
		To:      to,
		Subject: rendered.Subject,
		Text:    rendered.Text,
		HTML:    rendered.HTML,
	}
	if err := m.transport.Deliver(ctx, msg); err != nil {
		return fmt.Errorf("deliver to %s: %w", to.Email, err)
	}
	return nil
}

// LogTransport writes messages to the log instead of sending them.
type LogTransport struct {
	logger *zap.Logger
}

// NewLogTransport creates a LogTransport.
func NewLogTransport(logger *zap.Logger) *LogTransport {
	return &LogTransport{logger: logger}
}

func (t *LogTransport) Deliver(_ context.Context, msg *Message) error {
	t.logger.Info("email (smtp disabled)",
		zap.String("to", msg.To.Email),
		zap.String("subject", msg.Subject),
	)
	return nil
}
