package bridge

import (
	"context"

	"github.com/surgify/islandkit/bus"
	"github.com/surgify/islandkit/island"
)

// callbacks builds the callback set injected into one island's properties.
// Every callback closes over the island id so emitted messages are
// attributed to their source.
func (b *Bridge) callbacks(id string) island.Callbacks {
	return island.Callbacks{
		OnStateChange: func(newState any) {
			b.onStateChange(id, newState)
		},
		OnAction: func(name string, data any, sync *island.ServerSync) {
			b.onAction(id, name, data, sync)
		},
		OnNavigate: func(path string) {
			b.onNavigate(id, path)
		},
	}
}

// onStateChange records the snapshot and announces it on the bus. A state
// change from an island that was unmounted mid-flight is dropped silently.
func (b *Bridge) onStateChange(id string, newState any) {
	if err := b.registry.UpdateState(id, newState); err != nil {
		b.logger.Debug("State change from unmounted island dropped", "island_id", id)
		return
	}

	b.bus.Publish(bus.NewMessage(
		"island"+bus.TopicSeparator+id+bus.TopicSeparator+"stateChange",
		newState,
		bus.WithSource(id),
	))
}

// onAction announces the action on the bus and, when the action carries a
// server-sync directive, forwards it to the page-update adapter. A failed
// sync leaves the page as it was; the action message has already gone out.
func (b *Bridge) onAction(id, name string, data any, sync *island.ServerSync) {
	topic := "island" + bus.TopicSeparator + id + bus.TopicSeparator + "action" + bus.TopicSeparator + name
	if err := bus.ValidateTopic(topic); err != nil {
		b.logger.Warn("Action name produced an invalid topic, dropping",
			"island_id", id, "action", name, "error", err)
		return
	}

	b.bus.Publish(bus.NewMessage(topic, data, bus.WithSource(id)))

	if sync == nil || b.updater == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), b.opTimeout)
	defer cancel()

	if err := b.updater.ApplyPartialUpdate(ctx, sync.Target, sync.Endpoint, data); err != nil {
		b.logger.Error("Server sync failed",
			"island_id", id, "action", name, "target", sync.Target, "error", err)
		return
	}

	// The splice may have introduced or removed markers.
	b.rescan(ctx)
}

// onNavigate forwards a route-change request to the page-update adapter and
// reconciles the mounted set against the new document.
func (b *Bridge) onNavigate(id, path string) {
	if b.updater == nil {
		b.logger.Warn("Navigation requested with no page updater", "island_id", id, "path", path)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), b.opTimeout)
	defer cancel()

	if err := b.updater.Navigate(ctx, path); err != nil {
		b.logger.Error("Navigation failed", "island_id", id, "path", path, "error", err)
		return
	}

	b.rescan(ctx)
}

// rescan reconciles mounted islands with the current document after a
// content change: detached islands are swept, new markers are mounted.
func (b *Bridge) rescan(ctx context.Context) {
	swept := b.SweepDetached()
	mounted, err := b.Scan(ctx)
	if err != nil {
		b.logger.Debug("Post-update scan skipped", "error", err)
		return
	}
	if swept > 0 || mounted > 0 {
		b.logger.Info("Document reconciled", "swept", swept, "mounted", mounted)
	}
}
