package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/veletic/gatehouse/pkg/logger"
)

type Publisher interface {
	Publish(ctx context.Context, subject string, data interface{}) error
	Close() error
}

type Subscriber interface {
	// QueueSubscribe delivers each message on subject to one member of the
	// named queue group, so replicas do not double-consume.
	QueueSubscribe(subject, queue string, handler func(msg *Message)) error
	Close() error
}

type EventBus interface {
	Publisher
	Subscriber
}

type Message struct {
	Subject   string
	Data      []byte
	Timestamp time.Time
}

type NATSEventBus struct {
	conn *nats.Conn
}

func NewNATSEventBus(url string) (*NATSEventBus, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &NATSEventBus{conn: conn}, nil
}

func (n *NATSEventBus) Publish(ctx context.Context, subject string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	logger.DebugContext(ctx, "Publishing event", "subject", subject, "data", string(payload))

	return n.conn.Publish(subject, payload)
}

func (n *NATSEventBus) QueueSubscribe(subject, queue string, handler func(msg *Message)) error {
	_, err := n.conn.QueueSubscribe(subject, queue, func(msg *nats.Msg) {
		handler(&Message{
			Subject:   msg.Subject,
			Data:      msg.Data,
			Timestamp: time.Now(),
		})
	})
	return err
}

func (n *NATSEventBus) Close() error {
	n.conn.Close()
	return nil
}

// Subjects
const (
	PersonCreated = "person.created"
	PersonEntered = "person.entered"
	PersonExited  = "person.exited"

	SessionCreated = "session.created"
	SessionRevoked = "session.revoked"

	UserDisabled = "user.disabled"
)

// Event payloads
type PersonCrossingEvent struct {
	PersonID   int64     `json:"person_id"`
	Identifier string    `json:"identifier"`
	Building   string    `json:"building"`
	Creator    string    `json:"creator"`
	Timestamp  time.Time `json:"timestamp"`
}

type PersonCreatedEvent struct {
	PersonID   int64     `json:"person_id"`
	Identifier string    `json:"identifier"`
	Type       string    `json:"type"`
	Building   string    `json:"building"`
	Creator    string    `json:"creator"`
	Timestamp  time.Time `json:"timestamp"`
}

type SessionEvent struct {
	UserID    int64     `json:"user_id"`
	Username  string    `json:"username"`
	Building  string    `json:"building,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NoopEventBus satisfies EventBus when NATS is not configured (tests, local
// runs without a broker).
type NoopEventBus struct{}

func (NoopEventBus) Publish(context.Context, string, interface{}) error { return nil }
func (NoopEventBus) QueueSubscribe(string, string, func(msg *Message)) error {
	return nil
}
func (NoopEventBus) Close() error { return nil }
