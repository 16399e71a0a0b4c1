package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/ahmetcoskunkizilkaya/account-backend/internal/models"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

const (
	UserCreated           = "user.created"
	UserUpdated           = "user.updated"
	UserDeactivated       = "user.deactivated"
	UserGoogleProvisioned = "user.google_provisioned"
)

type AccountEvent struct {
	EventType  string           `json:"event_type"`
	UserID     uuid.UUID        `json:"user_id"`
	Username   string           `json:"username"`
	Email      string           `json:"email"`
	LoginType  models.LoginType `json:"logintype"`
	OccurredAt time.Time        `json:"occurred_at"`
}

func NewAccountEvent(eventType string, user *models.User) AccountEvent {
	return AccountEvent{
		EventType:  eventType,
		UserID:     user.ID,
		Username:   user.Username,
		Email:      user.Email,
		LoginType:  user.LoginType,
		OccurredAt: time.Now().UTC(),
	}
}

type Publisher interface {
	Publish(ctx context.Context, event AccountEvent) error
}

type NatsPublisher struct {
	conn *nats.Conn
}

func NewNatsPublisher(natsURL string) (*NatsPublisher, error) {
	nc, err := nats.Connect(natsURL,
		nats.Name("account-backend"),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &NatsPublisher{conn: nc}, nil
}

// Publish sends the event on a subject equal to its type.
func (p *NatsPublisher) Publish(_ context.Context, event AccountEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", event.EventType, err)
	}
	if err := p.conn.Publish(event.EventType, body); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", event.EventType, err)
	}
	slog.Debug("account event published", "subject", event.EventType, "user_id", event.UserID.String())
	return nil
}

func (p *NatsPublisher) Close() {
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
	}
}

// NopPublisher drops every event. Used when NATS_URL is unset.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, AccountEvent) error { return nil }
