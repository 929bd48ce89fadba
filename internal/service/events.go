package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// Subjects published for roadmap generation outcomes.
const (
	SubjectRoadmapGenerated = "skillpath.roadmap.generated"
	SubjectRoadmapFailed    = "skillpath.roadmap.failed"
)

// RoadmapEvent is emitted after every generation attempt.
type RoadmapEvent struct {
	Career        string    `json:"career"`
	UserID        string    `json:"user_id,omitempty"`
	RoadmapID     uint      `json:"roadmap_id,omitempty"`
	Model         string    `json:"model,omitempty"`
	CacheHit      bool      `json:"cache_hit"`
	ErrorKind     string    `json:"error_kind,omitempty"`
	Error         string    `json:"error,omitempty"`
	LatencyMS     int64     `json:"latency_ms"`
	CorrelationID string    `json:"correlation_id,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// EventPublisher delivers domain events to downstream consumers.
type EventPublisher interface {
	Publish(ctx context.Context, subject string, event interface{}) error
}

type natsPublisher struct {
	conn   *nats.Conn
	logger zerolog.Logger
}

// NewNATSPublisher publishes JSON encoded events on a NATS connection. A nil connection
// yields a publisher that drops every event.
func NewNATSPublisher(conn *nats.Conn, logger zerolog.Logger) EventPublisher {
	if conn == nil {
		return NopPublisher{}
	}
	return &natsPublisher{
		conn:   conn,
		logger: logger.With().Str("component", "event_publisher").Logger(),
	}
}

func (p *natsPublisher) Publish(ctx context.Context, subject string, event interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	if err := p.conn.Publish(subject, payload); err != nil {
		return err
	}
	p.logger.Debug().Str("subject", subject).Int("bytes", len(payload)).Msg("event published")
	return nil
}

// NopPublisher discards events.
type NopPublisher struct{}

// Publish implements EventPublisher.
func (NopPublisher) Publish(context.Context, string, interface{}) error { return nil }
