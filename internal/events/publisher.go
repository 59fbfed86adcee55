// Package events announces analysis lifecycle transitions on NATS so
// downstream consumers (dashboards, digest jobs) can react without polling.
// The service runs fine without NATS configured; publishing is best-effort.
package events

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

const (
	SubjectAnalysisTriggered = "gongintel.analysis.triggered"
	SubjectAnalysisCompleted = "gongintel.analysis.completed"
	SubjectAnalysisFailed    = "gongintel.analysis.failed"
)

// AnalysisEvent is the payload for every analysis lifecycle subject.
type AnalysisEvent struct {
	EventID    string `json:"event_id"`
	AnalysisID string `json:"analysis_id"`
	CallID     string `json:"call_id"`
	UserID     string `json:"user_id"`
	Version    int    `json:"version"`
	Status     string `json:"status"`
	Error      string `json:"error,omitempty"`
	Timestamp  string `json:"timestamp"`
}

type Publisher struct {
	conn   *nats.Conn
	logger *slog.Logger
}

func NewPublisher(url, token string, logger *slog.Logger) (*Publisher, error) {
	opts := []nats.Option{
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(60),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("nats reconnected")
		}),
	}
	if token != "" {
		opts = append(opts, nats.Token(token))
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	return &Publisher{conn: nc, logger: logger}, nil
}

// PublishAnalysis emits one lifecycle event. A nil publisher is a no-op so
// callers never need to branch on whether NATS is configured.
func (p *Publisher) PublishAnalysis(subject string, evt AnalysisEvent) {
	if p == nil {
		return
	}
	evt.EventID = uuid.New().String()
	evt.Timestamp = time.Now().UTC().Format(time.RFC3339)

	payload, err := json.Marshal(evt)
	if err != nil {
		p.logger.Warn("failed to marshal analysis event", "subject", subject, "error", err)
		return
	}
	if err := p.conn.Publish(subject, payload); err != nil {
		p.logger.Warn("failed to publish analysis event", "subject", subject, "analysis_id", evt.AnalysisID, "error", err)
	}
}

func (p *Publisher) Close() {
	if p == nil {
		return
	}
	p.conn.Close()
}
