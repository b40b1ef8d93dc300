package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/swaaagray/CvSU-SAOMS-sub006/config"
)

// RunFinished is published on <prefix>.<pipeline> when a pipeline run ends.
type RunFinished struct {
	RunID      string          `json:"run_id"`
	Pipeline   string          `json:"pipeline"`
	Status     string          `json:"status"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
	Counts     json.RawMessage `json:"counts"`
	Errors     []string        `json:"errors"`
}

// Publisher sends run summaries to NATS core subjects.
type Publisher struct {
	conn   *nats.Conn
	prefix string
	logger *zap.Logger
}

// NewPublisher connects to cfg.NATSURL.
func NewPublisher(cfg *config.EventsConfig, logger *zap.Logger) (*Publisher, error) {
	conn, err := nats.Connect(cfg.NATSURL,
		nats.Name("saoms"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}

	prefix := cfg.SubjectPrefix
	if prefix == "" {
		prefix = "saoms.runs"
	}

	logger.Info("nats connected", zap.String("url", conn.ConnectedUrl()), zap.String("prefix", prefix))
	return &Publisher{conn: conn, prefix: prefix, logger: logger}, nil
}

// Subject returns the subject a pipeline's summaries go to.
func (p *Publisher) Subject(pipeline string) string {
	return p.prefix + "." + pipeline
}

// Publish sends ev and flushes so the summary leaves before a one-shot process exits.
func (p *Publisher) Publish(ev *RunFinished) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal run event: %w", err)
	}
	if err := p.conn.Publish(p.Subject(ev.Pipeline), data); err != nil {
		return fmt.Errorf("publish run event: %w", err)
	}
	if err := p.conn.FlushTimeout(2 * time.Second); err != nil {
		return fmt.Errorf("flush run event: %w", err)
	}
	return nil
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
	}
}
