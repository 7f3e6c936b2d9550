package telemetry

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any) error
	Close() error
}

// AuditRecord is one group or game lifecycle action worth keeping.
type AuditRecord struct {
	Level     string
	Action    string
	Text      string
	RequestID string
	UserID    *string
	GroupID   int
	GameID    int
}

// AuditEmitter publishes audit envelopes for group and game lifecycle actions.
type AuditEmitter struct {
	publisher   Publisher
	routingKey  string
	service     string
	environment string
	now         func() time.Time
}

type AuditEnvelope struct {
	SchemaVersion int          `json:"schema_version"`
	EventType     string       `json:"event_type"`
	OccurredAt    string       `json:"occurred_at"`
	Service       string       `json:"service"`
	Environment   string       `json:"environment"`
	RequestID     string       `json:"request_id"`
	UserID        *string      `json:"user_id,omitempty"`
	Payload       AuditPayload `json:"payload"`
}

type AuditPayload struct {
	Level   string `json:"level"`
	Action  string `json:"action"`
	Text    string `json:"text"`
	GroupID int    `json:"group_id,omitempty"`
	GameID  int    `json:"game_id,omitempty"`
}

func NewAuditEmitter(publisher Publisher, routingKey, service, environment string) *AuditEmitter {
	return &AuditEmitter{
		publisher:   publisher,
		routingKey:  routingKey,
		service:     service,
		environment: environment,
		now:         time.Now,
	}
}

// Emit publishes one audit record. Publish failures are logged, never returned.
func (e *AuditEmitter) Emit(ctx context.Context, rec AuditRecord) {
	if e == nil || e.publisher == nil {
		return
	}

	entry := logrus.WithFields(logrus.Fields{
		"audit_level": rec.Level,
		"action":      rec.Action,
		"request_id":  rec.RequestID,
	})
	if rec.UserID != nil {
		entry = entry.WithField("user_id", *rec.UserID)
	}
	if rec.GroupID != 0 {
		entry = entry.WithField("group_id", rec.GroupID)
	}
	if rec.GameID != 0 {
		entry = entry.WithField("game_id", rec.GameID)
	}
	entry.Debug(rec.Text)

	envelope := AuditEnvelope{
		SchemaVersion: 2,
		EventType:     "audit_log",
		OccurredAt:    e.now().UTC().Format(time.RFC3339Nano),
		Service:       e.service,
		Environment:   e.environment,
		RequestID:     rec.RequestID,
		UserID:        rec.UserID,
		Payload: AuditPayload{
			Level:   rec.Level,
			Action:  rec.Action,
			Text:    rec.Text,
			GroupID: rec.GroupID,
			GameID:  rec.GameID,
		},
	}

	if err := e.publisher.Publish(ctx, e.routingKey, envelope); err != nil {
		entry.WithError(err).Warn("audit publish failed")
	}
}
