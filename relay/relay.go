package relay

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/surgify/islandkit/bus"
	"github.com/surgify/islandkit/errors"
	"github.com/surgify/islandkit/metric"
)

// ConnectionStatus represents the state of the broker connection.
type ConnectionStatus int

// Possible connection statuses
const (
	StatusDisconnected ConnectionStatus = iota
	StatusConnecting
	StatusConnected
	StatusReconnecting
)

// String returns the string representation of ConnectionStatus
func (s ConnectionStatus) String() string {
	switch s {
	case StatusDisconnected:
		return "disconnected"
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	case StatusReconnecting:
		return "reconnecting"
	default:
		return "unknown"
	}
}

// envelope is the wire format for relayed messages. The instance id lets
// every relay discard its own traffic echoed back by the broker.
type envelope struct {
	Instance  string          `json:"instance"`
	Topic     string          `json:"topic"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	SourceID  string          `json:"source_id,omitempty"`
	MessageID string          `json:"message_id"`
	Timestamp time.Time       `json:"timestamp"`
}

// Config holds relay connection settings.
type Config struct {
	// URL is the NATS server URL
	URL string `json:"url"`
	// SubjectPrefix namespaces relayed subjects; defaults to "islands"
	SubjectPrefix string `json:"subject_prefix,omitempty"`
	// Name identifies this client to the broker
	Name string `json:"name,omitempty"`
	// ReconnectWait is the delay between reconnection attempts
	ReconnectWait time.Duration `json:"reconnect_wait,omitempty"`
	// MaxReconnects caps reconnection attempts; -1 retries forever
	MaxReconnects int `json:"max_reconnects,omitempty"`
}

func (c *Config) withDefaults() Config {
	out := *c
	if out.SubjectPrefix == "" {
		out.SubjectPrefix = DefaultSubjectPrefix
	}
	if out.Name == "" {
		out.Name = "islandkit-relay"
	}
	if out.ReconnectWait == 0 {
		out.ReconnectWait = 2 * time.Second
	}
	if out.MaxReconnects == 0 {
		out.MaxReconnects = -1
	}
	return out
}

// Relay mirrors group traffic between the in-process bus and a NATS broker
// so islands on separate page sessions can coordinate. Only group:* topics
// cross the relay; island-addressed and page-local topics stay in process.
//
// Messages the relay itself injected into the local bus are recognized by
// message id and never relayed back out, and envelopes carrying this relay's
// instance id are discarded on arrival. Together the two checks break every
// echo loop the broker can produce.
type Relay struct {
	cfg        Config
	instanceID string
	eventBus   *bus.Bus
	logger     *slog.Logger
	metrics    *metric.CoreMetrics

	status atomic.Value // ConnectionStatus

	mu       sync.Mutex
	conn     *nats.Conn
	natsSub  *nats.Subscription
	busSub   *bus.Subscription
	injected map[string]struct{}
	closed   bool
}

// New creates a relay bound to the given bus. The relay is inert until
// Start is called. The metrics registry may be nil.
func New(cfg Config, eventBus *bus.Bus, logger *slog.Logger, registry *metric.Registry) (*Relay, error) {
	if cfg.URL == "" {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "Relay", "New", "url validation")
	}
	if eventBus == nil {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "Relay", "New", "bus validation")
	}
	if logger == nil {
		logger = slog.Default()
	}

	r := &Relay{
		cfg:        cfg.withDefaults(),
		instanceID: uuid.New().String(),
		eventBus:   eventBus,
		logger:     logger.With("component", "relay"),
		injected:   make(map[string]struct{}),
	}
	if registry != nil {
		r.metrics = registry.Core
	}
	r.status.Store(StatusDisconnected)

	return r, nil
}

// Status returns the current connection status.
func (r *Relay) Status() ConnectionStatus {
	return r.status.Load().(ConnectionStatus)
}

// IsHealthy reports whether the relay is connected to the broker.
func (r *Relay) IsHealthy() bool {
	return r.Status() == StatusConnected
}

// Start connects to the broker and begins mirroring group traffic in both
// directions.
func (r *Relay) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return errors.WrapFatal(errors.ErrShuttingDown, "Relay", "Start", "closed relay check")
	}
	if r.conn != nil {
		return nil
	}

	r.status.Store(StatusConnecting)
	r.logger.Info("Connecting to broker", "url", r.cfg.URL)

	conn, err := nats.Connect(r.cfg.URL,
		nats.Name(r.cfg.Name),
		nats.ReconnectWait(r.cfg.ReconnectWait),
		nats.MaxReconnects(r.cfg.MaxReconnects),
		nats.DisconnectErrHandler(r.handleDisconnect),
		nats.ReconnectHandler(r.handleReconnect),
		nats.ClosedHandler(r.handleClosed),
	)
	if err != nil {
		r.status.Store(StatusDisconnected)
		return errors.WrapTransient(err, "Relay", "Start", "broker connection")
	}
	r.conn = conn

	inbound, err := conn.Subscribe(r.cfg.SubjectPrefix+".group.>", r.handleInbound)
	if err != nil {
		conn.Close()
		r.conn = nil
		r.status.Store(StatusDisconnected)
		return errors.WrapTransient(err, "Relay", "Start", "broker subscription")
	}
	r.natsSub = inbound

	busSub, err := r.eventBus.Subscribe("group:>", r.handleOutbound)
	if err != nil {
		_ = inbound.Unsubscribe()
		conn.Close()
		r.conn = nil
		r.natsSub = nil
		r.status.Store(StatusDisconnected)
		return errors.Wrap(err, "Relay", "Start", "bus subscription")
	}
	r.busSub = busSub

	r.status.Store(StatusConnected)
	r.setConnectedGauge(1)
	r.logger.Info("Relay connected", "url", r.cfg.URL, "instance", r.instanceID)

	// Honor cancellation that raced the connect.
	select {
	case <-ctx.Done():
		r.teardownLocked()
		return errors.WrapTransient(ctx.Err(), "Relay", "Start", "start cancelled")
	default:
	}

	return nil
}

// Close stops mirroring and drains the broker connection. Idempotent.
func (r *Relay) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	r.teardownLocked()
	r.logger.Info("Relay closed")
	return nil
}

// teardownLocked releases subscriptions and the connection. Callers hold mu.
func (r *Relay) teardownLocked() {
	if r.busSub != nil {
		r.busSub.Unsubscribe()
		r.busSub = nil
	}
	if r.natsSub != nil {
		if err := r.natsSub.Unsubscribe(); err != nil {
			r.logger.Warn("Broker unsubscribe failed", "error", err)
		}
		r.natsSub = nil
	}
	if r.conn != nil {
		if err := r.conn.Drain(); err != nil {
			r.logger.Warn("Broker drain failed", "error", err)
			r.conn.Close()
		}
		r.conn = nil
	}
	if r.Status() == StatusConnected {
		r.setConnectedGauge(0)
	}
	r.status.Store(StatusDisconnected)
}

// handleOutbound forwards a locally published group message to the broker.
func (r *Relay) handleOutbound(msg bus.Message) {
	if r.wasInjected(msg.ID()) {
		return
	}

	subject, err := TopicToSubject(r.cfg.SubjectPrefix, msg.Topic())
	if err != nil {
		r.logger.Debug("Topic not relayable, kept local", "topic", msg.Topic(), "error", err)
		return
	}

	payload, err := json.Marshal(msg.Payload())
	if err != nil {
		r.logger.Warn("Group payload not serializable, kept local",
			"topic", msg.Topic(), "error", err)
		return
	}

	data, err := json.Marshal(envelope{
		Instance:  r.instanceID,
		Topic:     msg.Topic(),
		Payload:   payload,
		SourceID:  msg.SourceID(),
		MessageID: msg.ID(),
		Timestamp: msg.Timestamp(),
	})
	if err != nil {
		r.logger.Warn("Envelope encoding failed", "topic", msg.Topic(), "error", err)
		return
	}

	r.mu.Lock()
	conn := r.conn
	r.mu.Unlock()

	if conn == nil || !conn.IsConnected() {
		r.logger.Debug("Broker unavailable, group message kept local", "topic", msg.Topic())
		return
	}

	if err := conn.Publish(subject, data); err != nil {
		r.logger.Warn("Broker publish failed", "subject", subject, "error", err)
		return
	}
	r.recordForwarded("outbound")
}

// handleInbound republishes a broker message on the local bus.
func (r *Relay) handleInbound(msg *nats.Msg) {
	var env envelope
	if err := json.Unmarshal(msg.Data, &env); err != nil {
		r.logger.Warn("Malformed relay envelope dropped", "subject", msg.Subject, "error", err)
		return
	}
	if env.Instance == r.instanceID {
		return
	}

	topic, err := SubjectToTopic(r.cfg.SubjectPrefix, msg.Subject)
	if err != nil {
		r.logger.Warn("Unmappable relay subject dropped", "subject", msg.Subject, "error", err)
		return
	}

	var payload any
	if len(env.Payload) > 0 {
		if err := json.Unmarshal(env.Payload, &payload); err != nil {
			r.logger.Warn("Relay payload decoding failed", "topic", topic, "error", err)
			return
		}
	}

	local := bus.NewMessage(topic, payload, bus.WithSource(env.SourceID), bus.WithTime(env.Timestamp))

	r.markInjected(local.ID())
	r.eventBus.Publish(local)
	r.clearInjected(local.ID())

	r.recordForwarded("inbound")
}

// markInjected records a message id the relay is about to publish locally so
// the outbound handler skips it. Publish is synchronous, so the window is
// exactly one bus delivery.
func (r *Relay) markInjected(id string) {
	r.mu.Lock()
	r.injected[id] = struct{}{}
	r.mu.Unlock()
}

func (r *Relay) clearInjected(id string) {
	r.mu.Lock()
	delete(r.injected, id)
	r.mu.Unlock()
}

func (r *Relay) wasInjected(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.injected[id]
	return ok
}

func (r *Relay) handleDisconnect(_ *nats.Conn, err error) {
	r.status.Store(StatusReconnecting)
	r.setConnectedGauge(0)
	r.logger.Warn("Broker connection lost, reconnecting", "error", err)
}

func (r *Relay) handleReconnect(conn *nats.Conn) {
	r.status.Store(StatusConnected)
	r.setConnectedGauge(1)
	r.logger.Info("Broker connection restored", "url", conn.ConnectedUrl())
}

func (r *Relay) handleClosed(_ *nats.Conn) {
	r.status.Store(StatusDisconnected)
	r.setConnectedGauge(0)
}

func (r *Relay) setConnectedGauge(v float64) {
	if r.metrics == nil {
		return
	}
	r.metrics.RelayConnected.Set(v)
}

func (r *Relay) recordForwarded(direction string) {
	if r.metrics == nil {
		return
	}
	r.metrics.RelayForwarded.WithLabelValues(direction).Inc()
}
