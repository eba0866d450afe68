package bridge

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/surgify/islandkit/bus"
	"github.com/surgify/islandkit/document"
	"github.com/surgify/islandkit/errors"
	"github.com/surgify/islandkit/island"
	"github.com/surgify/islandkit/metric"
	"github.com/surgify/islandkit/pageupdate"
)

// Option configures optional Bridge behavior.
type Option func(*Bridge)

// WithOperationTimeout bounds the server calls made from island callbacks.
func WithOperationTimeout(d time.Duration) Option {
	return func(b *Bridge) {
		b.opTimeout = d
	}
}

// pendingMount tracks an in-flight component load so a concurrent Unmount
// can cancel it. Identity of the entry (not just the id) is what the resume
// path checks: a pending entry replaced by a later scan makes the earlier
// resolution stale.
type pendingMount struct {
	cancel context.CancelFunc
}

// Bridge is the orchestration layer: it scans the document for island
// markers, mounts the matching view components with injected callbacks,
// routes structured messages between islands and groups, and forwards
// server-sync work to the page-update adapter.
//
// A Bridge is owned and constructed once per page session and passed
// explicitly to anything that needs it. Multiple independent instances can
// coexist (tests rely on this); there is no ambient global.
type Bridge struct {
	registry *island.Registry
	loaders  *island.LoaderRegistry
	bus      *bus.Bus
	doc      *document.Document
	updater  pageupdate.Updater
	logger   *slog.Logger
	metrics  *metric.CoreMetrics

	opTimeout time.Duration

	mu       sync.Mutex
	pending  map[string]*pendingMount
	phases   map[string]island.Phase
	degraded map[string]struct{}
	closed   bool

	groupSub *bus.Subscription
}

// New creates a bridge wired to its collaborators. The metrics registry may
// be nil. The bridge immediately subscribes to group traffic so cross-group
// forwarding works from the first publish.
func New(
	registry *island.Registry,
	loaders *island.LoaderRegistry,
	eventBus *bus.Bus,
	doc *document.Document,
	updater pageupdate.Updater,
	logger *slog.Logger,
	metricsRegistry *metric.Registry,
	opts ...Option,
) (*Bridge, error) {
	if registry == nil || loaders == nil || eventBus == nil || doc == nil {
		return nil, errors.WrapFatal(errors.ErrInvalidConfig, "Bridge", "New", "collaborator validation")
	}
	if logger == nil {
		logger = slog.Default()
	}

	b := &Bridge{
		registry:  registry,
		loaders:   loaders,
		bus:       eventBus,
		doc:       doc,
		updater:   updater,
		logger:    logger.With("component", "bridge"),
		opTimeout: 15 * time.Second,
		pending:   make(map[string]*pendingMount),
		phases:    make(map[string]island.Phase),
		degraded:  make(map[string]struct{}),
	}
	if metricsRegistry != nil {
		b.metrics = metricsRegistry.Core
	}
	for _, opt := range opts {
		opt(b)
	}

	// Cross-group forwarding: every island carrying a tag receives
	// group:<tag>:* traffic whether or not it subscribed itself.
	sub, err := eventBus.Subscribe("group:>", b.forwardGroupMessage)
	if err != nil {
		return nil, errors.Wrap(err, "Bridge", "New", "group subscription")
	}
	b.groupSub = sub

	return b, nil
}

// Scan discovers not-yet-mounted island markers in the document and mounts
// each one. Per-island failures (unknown type, load or render failure,
// malformed marker) are logged and skipped; the scan always continues and
// only a closed bridge yields an error. Returns the number of islands
// mounted by this scan.
func (b *Bridge) Scan(ctx context.Context) (int, error) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return 0, errors.WrapFatal(errors.ErrShuttingDown, "Bridge", "Scan", "closed bridge check")
	}
	b.mu.Unlock()

	markers, malformed := b.doc.FindMarkers()
	for _, merr := range malformed {
		b.logger.Warn("Skipping malformed island marker", "error", merr)
	}

	mounted := 0
	for _, marker := range markers {
		if b.mountMarker(ctx, marker) {
			mounted++
		}
	}

	return mounted, nil
}

// mountMarker mounts a single discovered marker. Returns whether a new
// island was mounted.
func (b *Bridge) mountMarker(ctx context.Context, marker *document.Marker) bool {
	descriptor := marker.Descriptor
	id := descriptor.ID

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return false
	}
	if b.registry.Get(id) != nil || b.pending[id] != nil {
		b.mu.Unlock()
		b.logger.Debug("Island already mounted or mounting, skipping", "island_id", id)
		b.recordMount(descriptor.Type, "duplicate")
		return false
	}

	loader, ok := b.loaders.Resolve(descriptor.Type)
	if !ok {
		b.mu.Unlock()
		b.logger.Warn("Unknown island type, skipping marker",
			"island_id", id, "type", descriptor.Type)
		b.recordFailure(descriptor.Type, "unknown_type")
		return false
	}

	loadCtx, cancel := context.WithCancel(ctx)
	entry := &pendingMount{cancel: cancel}
	b.pending[id] = entry
	b.phases[id] = island.PhaseMounting
	b.mu.Unlock()

	defer cancel()

	// The only suspension point in the coordination layer: component
	// resolution may require asynchronous loading.
	component, err := loader.Load(loadCtx, descriptor.Type)

	b.mu.Lock()
	if b.pending[id] != entry {
		// Unmounted (or superseded) while the load was in flight.
		b.mu.Unlock()
		b.logger.Debug("Discarding stale mount resolution", "island_id", id)
		b.recordFailure(descriptor.Type, "stale")
		return false
	}
	if err != nil {
		delete(b.pending, id)
		b.phases[id] = island.PhaseUndiscovered
		b.degraded[id] = struct{}{}
		b.mu.Unlock()
		b.logger.Error("Component load failed, island degraded",
			"island_id", id, "type", descriptor.Type, "error", err)
		b.recordFailure(descriptor.Type, "load_failure")
		b.setFallback(id)
		return false
	}
	b.mu.Unlock()

	handle, err := component.Render(marker.Container(), descriptor.InitialProperties, b.callbacks(id))

	b.mu.Lock()
	if b.pending[id] != entry {
		b.mu.Unlock()
		b.logger.Debug("Discarding stale render", "island_id", id)
		b.recordFailure(descriptor.Type, "stale")
		if handle != nil {
			// Late resolution must not resurrect an unmounted island
			if derr := handle.Dispose(); derr != nil {
				b.logger.Debug("Stale handle dispose failed", "island_id", id, "error", derr)
			}
		}
		return false
	}
	if err != nil {
		delete(b.pending, id)
		b.phases[id] = island.PhaseUndiscovered
		b.degraded[id] = struct{}{}
		b.mu.Unlock()
		b.logger.Error("Component render failed, island degraded",
			"island_id", id, "type", descriptor.Type, "error", err)
		b.recordFailure(descriptor.Type, "render_failure")
		b.setFallback(id)
		return false
	}

	delete(b.pending, id)
	delete(b.degraded, id)
	b.mu.Unlock()

	_, created, err := b.registry.Register(descriptor, handle)
	if err != nil || !created {
		// Registry rejected or raced; the handle never became owned.
		if derr := handle.Dispose(); derr != nil {
			b.logger.Debug("Redundant handle dispose failed", "island_id", id, "error", derr)
		}
		if err != nil {
			b.logger.Error("Mount registration failed", "island_id", id, "error", err)
			b.recordFailure(descriptor.Type, "registration_failure")
		}
		return false
	}

	b.mu.Lock()
	b.phases[id] = island.PhaseMounted
	b.mu.Unlock()

	b.recordMount(descriptor.Type, "success")
	b.recordMountedGauge(1)
	b.logger.Info("Island mounted",
		"island_id", id, "type", descriptor.Type, "groups", descriptor.GroupTags)
	return true
}

// Unmount tears down a mounted island, or cancels its in-flight mount.
// Returns whether anything existed for the id.
func (b *Bridge) Unmount(id string) bool {
	b.mu.Lock()
	cancelled := false
	if entry, ok := b.pending[id]; ok {
		entry.cancel()
		delete(b.pending, id)
		delete(b.phases, id)
		cancelled = true
	} else {
		b.phases[id] = island.PhaseUnmounting
	}
	b.mu.Unlock()

	existed := b.registry.Unregister(id)
	if existed {
		b.recordMountedGauge(-1)
		b.logger.Info("Island unmounted", "island_id", id)
	}

	b.mu.Lock()
	delete(b.phases, id)
	delete(b.degraded, id)
	b.mu.Unlock()

	return existed || cancelled
}

// SweepDetached unmounts every island whose marker has been removed from
// the document since the last sweep. Returns the number swept.
func (b *Bridge) SweepDetached() int {
	swept := 0
	for _, record := range b.registry.All() {
		id := record.Descriptor.ID
		if !b.doc.Contains(id) {
			if b.Unmount(id) {
				swept++
			}
		}
	}
	return swept
}

// DegradedIslands returns the ids of islands currently showing fallback
// content after a failed mount. An id leaves the set when a later scan
// mounts it or its marker goes away.
func (b *Bridge) DegradedIslands() []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	ids := make([]string, 0, len(b.degraded))
	for id := range b.degraded {
		ids = append(ids, id)
	}
	return ids
}

// MountedCount reports how many islands are currently registered.
func (b *Bridge) MountedCount() int {
	return b.registry.Count()
}

// Phase reports an island's lifecycle phase. Islands with no record are
// Undiscovered.
func (b *Bridge) Phase(id string) island.Phase {
	b.mu.Lock()
	defer b.mu.Unlock()

	if phase, ok := b.phases[id]; ok {
		return phase
	}
	return island.PhaseUndiscovered
}

// Close cancels pending mounts, unmounts every island, and detaches from
// the bus. The bridge cannot be reused afterwards.
func (b *Bridge) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	for id, entry := range b.pending {
		entry.cancel()
		delete(b.pending, id)
	}
	b.mu.Unlock()

	if b.groupSub != nil {
		b.groupSub.Unsubscribe()
	}

	for _, record := range b.registry.All() {
		if b.registry.Unregister(record.Descriptor.ID) {
			b.recordMountedGauge(-1)
		}
	}

	b.mu.Lock()
	b.phases = make(map[string]island.Phase)
	b.degraded = make(map[string]struct{})
	b.mu.Unlock()

	b.logger.Info("Bridge closed")
}

// forwardGroupMessage fans a group:<tag>:... message out to every mounted
// island carrying the tag. This is the one piece of routing beyond plain
// pub/sub: islands come and go dynamically and must not need to know the
// topic names other islands use.
func (b *Bridge) forwardGroupMessage(msg bus.Message) {
	tokens := strings.Split(msg.Topic(), bus.TopicSeparator)
	if len(tokens) < 3 {
		b.logger.Debug("Group topic missing tag or subject, ignoring", "topic", msg.Topic())
		return
	}
	tag := tokens[1]

	delivered := b.registry.DeliverToGroup(tag, msg.Topic(), msg.Payload(), msg.SourceID())
	if delivered > 0 {
		b.logger.Debug("Group message forwarded",
			"topic", msg.Topic(), "tag", tag, "delivered", delivered)
	}
}

// setFallback replaces a failed island's content with a minimal placeholder.
// The rest of the page keeps working.
func (b *Bridge) setFallback(id string) {
	if err := b.doc.SetFallback(id, "This section failed to load."); err != nil {
		b.logger.Debug("Could not set fallback content", "island_id", id, "error", err)
	}
}

func (b *Bridge) recordMount(islandType, status string) {
	if b.metrics == nil {
		return
	}
	b.metrics.MountsTotal.WithLabelValues(islandType, status).Inc()
}

func (b *Bridge) recordFailure(islandType, reason string) {
	if b.metrics == nil {
		return
	}
	b.metrics.MountsTotal.WithLabelValues(islandType, "failure").Inc()
	b.metrics.MountFailures.WithLabelValues(islandType, reason).Inc()
}

func (b *Bridge) recordMountedGauge(delta float64) {
	if b.metrics == nil {
		return
	}
	b.metrics.IslandsMounted.Add(delta)
}
