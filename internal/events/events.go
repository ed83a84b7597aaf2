// Package events publishes accepted result notifications to a message broker so that
// downstream services (order fulfilment, reconciliation) learn about completed payments.
//
// The backend is chosen by EVENTS_BACKEND: none, nats (JetStream) or kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/information-sharing-networks/codi-gateway/internal/codi"
	"github.com/information-sharing-networks/codi-gateway/internal/config"
)

// AcceptedResult is published for every notification answered with result code 0.
type AcceptedResult struct {
	ID          uuid.UUID    `json:"id"`
	AuditID     string       `json:"auditId,omitempty"`
	Environment string       `json:"environment"`
	ReceivedAt  time.Time    `json:"receivedAt"`
	Resultado   codi.Summary `json:"resultado"`
}

// NewAcceptedResult returns an event with a new id.
func NewAcceptedResult(environment, auditID string, summary codi.Summary) AcceptedResult {
	return AcceptedResult{
		ID:          uuid.New(),
		AuditID:     auditID,
		Environment: environment,
		ReceivedAt:  time.Now().UTC(),
		Resultado:   summary,
	}
}

// key partitions events so results for one collection message stay in order.
func (e AcceptedResult) key() string {
	return e.Resultado.IDMensajeCobro
}

// Publisher sends accepted results to a broker.
type Publisher interface {
	Publish(ctx context.Context, event AcceptedResult) error
	Close() error
}

// New returns the publisher configured by EVENTS_BACKEND.
func New(cfg *config.ServerEnvironment, logger *slog.Logger) (Publisher, error) {
	switch cfg.EventsBackend {
	case "", "none":
		return NoopPublisher{}, nil
	case "nats":
		p, err := NewNATSPublisher(cfg.NatsURL, cfg.EventsSubject)
		if err != nil {
			return nil, err
		}
		logger.Info("publishing accepted results to NATS", slog.String("subject", cfg.EventsSubject))
		return p, nil
	case "kafka":
		logger.Info("publishing accepted results to Kafka",
			slog.String("topic", cfg.EventsSubject),
			slog.Any("brokers", cfg.KafkaBrokers),
		)
		return NewKafkaPublisher(cfg.KafkaBrokers, cfg.EventsSubject), nil
	default:
		return nil, fmt.Errorf("unknown events backend %q", cfg.EventsBackend)
	}
}

// NoopPublisher discards events.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, AcceptedResult) error { return nil }
func (NoopPublisher) Close() error                                  { return nil }

func encode(event AcceptedResult) ([]byte, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to encode event: %w", err)
	}
	return data, nil
}
