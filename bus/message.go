package bus

import (
	"time"

	"github.com/google/uuid"
)

// Message is the unit exchanged on the event bus. Messages are immutable
// after creation - all fields are set during construction and cannot be
// modified. They carry no delivery state: the bus keeps no history, and a
// subscriber that attaches after emission never sees past messages.
//
// Construction uses the functional options pattern:
//
//	// Simple message (most common)
//	msg := bus.NewMessage("island:a1:stateChange", payload)
//
//	// Attributed to an island
//	msg := bus.NewMessage("island:a1:action:save", payload, bus.WithSource("a1"))
//
//	// With a specific timestamp (testing/replay of captured traffic)
//	msg := bus.NewMessage("case:statusChange", payload, bus.WithTime(pastTime))
type Message struct {
	id        string
	topic     string
	payload   any
	sourceID  string
	timestamp time.Time
}

// Option is a functional option for configuring Message construction.
type Option func(*Message)

// WithSource attributes the message to the island or subsystem that raised
// it. Page-originated messages leave the source empty.
func WithSource(sourceID string) Option {
	return func(m *Message) {
		m.sourceID = sourceID
	}
}

// WithTime sets a specific emission timestamp instead of time.Now().
// Timestamps are informational only; delivery ordering never derives
// from them.
func WithTime(ts time.Time) Option {
	return func(m *Message) {
		m.timestamp = ts
	}
}

// NewMessage creates an immutable message for the given topic.
func NewMessage(topic string, payload any, opts ...Option) Message {
	m := Message{
		id:        uuid.New().String(),
		topic:     topic,
		payload:   payload,
		timestamp: time.Now(),
	}

	for _, opt := range opts {
		opt(&m)
	}

	return m
}

// ID returns the unique identifier for this message instance.
func (m Message) ID() string {
	return m.id
}

// Topic returns the hierarchical topic the message was published on.
func (m Message) Topic() string {
	return m.topic
}

// Payload returns the opaque message payload.
func (m Message) Payload() any {
	return m.payload
}

// SourceID returns the id of the island or subsystem that raised the
// message. Empty for page-originated messages.
func (m Message) SourceID() string {
	return m.sourceID
}

// Timestamp returns the emission time. Display and debugging only.
func (m Message) Timestamp() time.Time {
	return m.timestamp
}
