package island

import (
	"log/slog"
	"sync"
	"time"

	"github.com/surgify/islandkit/errors"
)

// MountRecord is the runtime record for one mounted island. The registry is
// the record's exclusive owner: no other component may call lifecycle
// methods on the view handle.
type MountRecord struct {
	// Descriptor the record was created from. Immutable.
	Descriptor Descriptor
	// MountedAt is when the record was registered
	MountedAt time.Time

	viewHandle ViewHandle
	state      any
	stateMu    sync.RWMutex
}

// LastKnownState returns the most recent state snapshot reported by the
// island, or nil if the island has not reported yet.
func (mr *MountRecord) LastKnownState() any {
	mr.stateMu.RLock()
	defer mr.stateMu.RUnlock()
	return mr.state
}

// setState records a new state snapshot. Registry-internal.
func (mr *MountRecord) setState(state any) {
	mr.stateMu.Lock()
	defer mr.stateMu.Unlock()
	mr.state = state
}

// Registry tracks which islands are currently mounted. It provides
// thread-safe registration and lookup, with at most one MountRecord per
// island id at any time.
type Registry struct {
	records map[string]*MountRecord
	mu      sync.RWMutex
	logger  *slog.Logger
}

// NewRegistry creates a new empty mount registry
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		records: make(map[string]*MountRecord),
		logger:  logger.With("component", "mount-registry"),
	}
}

// Register records a mounted island. Idempotent: if a record for the
// descriptor's id already exists, the existing record is returned unchanged,
// no side effect occurs, and created is false. The caller keeps ownership of
// the redundant handle in that case and must dispose it.
func (r *Registry) Register(descriptor Descriptor, handle ViewHandle) (record *MountRecord, created bool, err error) {
	if verr := descriptor.Validate(); verr != nil {
		return nil, false, errors.Wrap(verr, "Registry", "Register", "descriptor validation")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, exists := r.records[descriptor.ID]; exists {
		r.logger.Debug("Duplicate mount ignored", "island_id", descriptor.ID)
		return existing, false, nil
	}

	rec := &MountRecord{
		Descriptor: descriptor,
		MountedAt:  time.Now(),
		viewHandle: handle,
	}
	r.records[descriptor.ID] = rec

	return rec, true, nil
}

// Unregister releases ownership of the island's view handle by invoking its
// teardown, removes the record, and reports whether an entry existed.
// Teardown failures are logged, not retried, and never block the caller.
func (r *Registry) Unregister(id string) bool {
	r.mu.Lock()
	record, exists := r.records[id]
	if exists {
		delete(r.records, id)
	}
	r.mu.Unlock()

	if !exists {
		return false
	}

	if record.viewHandle != nil {
		if err := record.viewHandle.Dispose(); err != nil {
			r.logger.Warn("View handle teardown failed",
				"island_id", id, "error", err)
		}
	}

	return true
}

// Get returns the mount record for an island id, or nil if not mounted.
func (r *Registry) Get(id string) *MountRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.records[id]
}

// All returns all currently mounted islands.
func (r *Registry) All() []*MountRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*MountRecord, 0, len(r.records))
	for _, record := range r.records {
		result = append(result, record)
	}
	return result
}

// ByGroup returns the mounted islands carrying the given group tag.
// Linear over mounted islands; island counts are bounded by visible UI.
func (r *Registry) ByGroup(tag string) []*MountRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*MountRecord
	for _, record := range r.records {
		if record.Descriptor.HasTag(tag) {
			result = append(result, record)
		}
	}
	return result
}

// DeliverToGroup invokes OnMessage on every mounted island that carries the
// tag and whose handle implements Receiver. A panicking receiver is logged
// and does not stop delivery to the rest of the group. Returns the number of
// islands that received the message.
func (r *Registry) DeliverToGroup(tag, topic string, payload any, sourceID string) int {
	delivered := 0
	for _, record := range r.ByGroup(tag) {
		receiver, ok := record.viewHandle.(Receiver)
		if !ok {
			continue
		}
		r.deliver(record.Descriptor.ID, receiver, topic, payload, sourceID)
		delivered++
	}
	return delivered
}

func (r *Registry) deliver(id string, receiver Receiver, topic string, payload any, sourceID string) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("Receiver panicked during group delivery",
				"island_id", id, "topic", topic, "panic", rec)
		}
	}()
	receiver.OnMessage(topic, payload, sourceID)
}

// UpdateState records a new state snapshot for a mounted island.
func (r *Registry) UpdateState(id string, state any) error {
	r.mu.RLock()
	record, exists := r.records[id]
	r.mu.RUnlock()

	if !exists {
		return errors.WrapInvalid(errors.ErrNotMounted, "Registry", "UpdateState", "record lookup")
	}

	record.setState(state)
	return nil
}

// Count returns the number of currently mounted islands.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.records)
}
