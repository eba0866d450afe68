package bus

import (
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/surgify/islandkit/errors"
	"github.com/surgify/islandkit/metric"
)

// Handler is invoked with each message matching a subscription's pattern.
// Handlers run synchronously on the publisher's call stack; a handler that
// panics is recovered at the bus boundary and never prevents delivery to
// the remaining subscribers.
type Handler func(msg Message)

// Subscription is the handle returned by Subscribe and accepted by
// Unsubscribe. A subscription identifies exactly one registration;
// unsubscribing twice is a no-op.
type Subscription struct {
	id      uint64
	pattern string
	bus     *Bus
}

// Pattern returns the subscription's topic pattern.
func (s *Subscription) Pattern() string {
	return s.pattern
}

// Unsubscribe removes this registration from its bus. Idempotent.
func (s *Subscription) Unsubscribe() {
	if s != nil && s.bus != nil {
		s.bus.Unsubscribe(s)
	}
}

// entry pairs a subscription with its handler. Entries are kept in
// registration order so delivery order equals subscription order.
type entry struct {
	id      uint64
	pattern string
	handler Handler
}

// Bus is an in-process publish/subscribe channel with hierarchical topics.
// Delivery is synchronous and snapshot-iterated: a publish delivers to the
// subscriber set as it existed when the publish began, in registration
// order. Handlers may subscribe or unsubscribe from within their own
// invocation; such mutations take effect for the next publish, never the
// one in progress.
//
// The bus keeps no history. A message published with zero matching
// subscribers is dropped and counted, never buffered.
type Bus struct {
	mu      sync.RWMutex
	entries []*entry
	nextID  uint64
	closed  bool

	logger  *slog.Logger
	metrics *metric.CoreMetrics
}

// NewBus creates a new event bus. The metrics registry may be nil; the bus
// then runs without instrumentation.
func NewBus(logger *slog.Logger, registry *metric.Registry) *Bus {
	if logger == nil {
		logger = slog.Default()
	}

	b := &Bus{
		logger: logger.With("component", "bus"),
	}
	if registry != nil {
		b.metrics = registry.Core
	}

	return b
}

// Subscribe registers a handler for every message whose topic matches the
// given pattern. Returns the subscription handle used to unsubscribe.
func (b *Bus) Subscribe(pattern string, handler Handler) (*Subscription, error) {
	if err := ValidatePattern(pattern); err != nil {
		return nil, errors.Wrap(err, "Bus", "Subscribe", "pattern validation")
	}
	if handler == nil {
		return nil, errors.WrapInvalid(errors.ErrHandlerRequired, "Bus", "Subscribe", "handler validation")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, errors.WrapFatal(errors.ErrBusClosed, "Bus", "Subscribe", "closed bus check")
	}

	b.nextID++
	e := &entry{
		id:      b.nextID,
		pattern: pattern,
		handler: handler,
	}
	b.entries = append(b.entries, e)

	return &Subscription{id: e.id, pattern: pattern, bus: b}, nil
}

// Unsubscribe removes exactly the given registration. Safe to call multiple
// times; calls after the first are no-ops. A delivery already in progress
// still completes against its snapshot.
func (b *Bus) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for i, e := range b.entries {
		if e.id == sub.id {
			b.entries = append(b.entries[:i], b.entries[i+1:]...)
			return
		}
	}
}

// Publish delivers the message synchronously to every currently-subscribed
// matching handler, in subscription-registration order. Publish never
// returns an error to its caller: an invalid topic or a closed bus is
// logged and the message dropped, and handler faults are isolated at the
// bus boundary.
func (b *Bus) Publish(msg Message) {
	if err := ValidateTopic(msg.Topic()); err != nil {
		b.logger.Warn("Dropping message with invalid topic",
			"topic", msg.Topic(), "error", err)
		return
	}

	// Snapshot matching entries so handler-driven subscribe/unsubscribe
	// takes effect only for the next publish.
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		b.logger.Debug("Dropping message on closed bus", "topic", msg.Topic())
		return
	}
	var matched []*entry
	for _, e := range b.entries {
		if MatchTopic(e.pattern, msg.Topic()) {
			matched = append(matched, e)
		}
	}
	b.mu.RUnlock()

	root := metric.TopicRoot(msg.Topic())
	start := time.Now()

	if len(matched) == 0 {
		b.recordDropped(root)
		b.logger.Debug("No subscribers for topic, message dropped",
			"topic", msg.Topic(), "message_id", msg.ID())
		return
	}

	for _, e := range matched {
		b.deliver(e, msg, root)
	}

	b.recordPublished(root, time.Since(start).Seconds())
}

// deliver invokes a single handler with panic isolation. One broken island
// must never break another.
func (b *Bus) deliver(e *entry, msg Message, root string) {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 2048)
			n := runtime.Stack(buf, false)
			b.recordFault(root)
			b.logger.Error("Subscriber handler fault",
				"topic", msg.Topic(),
				"pattern", e.pattern,
				"subscription_id", e.id,
				"panic", fmt.Sprintf("%v", r),
				"stack", string(buf[:n]))
		}
	}()

	e.handler(msg)
}

// SubscriberCount returns the number of registrations whose pattern matches
// the given concrete topic.
func (b *Bus) SubscriberCount(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	count := 0
	for _, e := range b.entries {
		if MatchTopic(e.pattern, topic) {
			count++
		}
	}
	return count
}

// Close marks the bus closed and drops all registrations. Publish and
// Subscribe after Close are no-ops and errors respectively.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	b.entries = nil
}

func (b *Bus) recordPublished(root string, seconds float64) {
	if b.metrics == nil {
		return
	}
	b.metrics.MessagesPublished.WithLabelValues(root).Inc()
	b.metrics.PublishDuration.WithLabelValues(root).Observe(seconds)
}

func (b *Bus) recordDropped(root string) {
	if b.metrics == nil {
		return
	}
	b.metrics.MessagesDropped.WithLabelValues(root).Inc()
}

func (b *Bus) recordFault(root string) {
	if b.metrics == nil {
		return
	}
	b.metrics.HandlerFaults.WithLabelValues(root).Inc()
}
