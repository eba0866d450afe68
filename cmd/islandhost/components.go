package main

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"log/slog"
	"sync"

	"github.com/surgify/islandkit/bus"
	"github.com/surgify/islandkit/config"
	"github.com/surgify/islandkit/island"
)

// demoPage is the page served when no template is given. Each marked
// element becomes a live island on the first scan.
const demoPage = `<!DOCTYPE html>
<html>
<head><title>Islandhost Demo</title></head>
<body>
<h1>Workstation</h1>
<div data-island="analytics" data-island-id="analytics-main"
     data-island-groups="analytics"
     data-island-props='{"region":"emea","metric":"throughput"}'></div>
<div data-island="workflow" data-island-id="workflow-queue"
     data-island-groups="workflow"
     data-island-props-ref="workflow-props"></div>
<div data-island="notifications" data-island-id="notify-tray"
     data-island-groups="analytics workflow"></div>
<script type="application/json" id="workflow-props">{"queue":"intake","limit":5}</script>
</body>
</html>`

// registerIslandTypes installs the built-in component loaders. Real
// deployments register their own types the same way.
func registerIslandTypes(loaders *island.LoaderRegistry, eventBus *bus.Bus, logger *slog.Logger) error {
	registrations := []island.LoaderRegistration{
		{
			Type:        "analytics",
			Loader:      island.LoaderFunc(loadAnalytics),
			Description: "Metric panel scoped to a region",
			Version:     Version,
		},
		{
			Type:        "workflow",
			Loader:      island.LoaderFunc(loadWorkflow),
			Description: "Work queue panel",
			Version:     Version,
		},
		{
			Type: "notifications",
			Loader: island.LoaderFunc(func(context.Context, string) (island.Component, error) {
				return &notificationsComponent{eventBus: eventBus, logger: logger}, nil
			}),
			Description: "Cross-group activity tray",
			Version:     Version,
		},
	}

	for _, reg := range registrations {
		if err := loaders.Register(reg); err != nil {
			return err
		}
	}
	return nil
}

// decodeProps unmarshals an island's property payload into a map.
func decodeProps(raw json.RawMessage) map[string]any {
	props := map[string]any{}
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &props)
	}
	return props
}

func loadAnalytics(_ context.Context, _ string) (island.Component, error) {
	return &analyticsComponent{}, nil
}

type analyticsComponent struct{}

func (c *analyticsComponent) Render(container island.Container, props json.RawMessage, cb island.Callbacks) (island.ViewHandle, error) {
	p := decodeProps(props)
	h := &analyticsHandle{
		container: container,
		callbacks: cb,
		region:    config.GetString(p, "region", "global"),
		metric:    config.GetString(p, "metric", "throughput"),
	}
	if err := h.render(); err != nil {
		return nil, err
	}
	return h, nil
}

type analyticsHandle struct {
	container island.Container
	callbacks island.Callbacks

	mu        sync.Mutex
	region    string
	metric    string
	dateRange string
}

func (h *analyticsHandle) render() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	rangeLabel := h.dateRange
	if rangeLabel == "" {
		rangeLabel = "last 7 days"
	}
	return h.container.SetHTML(fmt.Sprintf(
		`<section class="analytics"><h2>%s (%s)</h2><p>Range: %s</p></section>`,
		template.HTMLEscapeString(h.metric),
		template.HTMLEscapeString(h.region),
		template.HTMLEscapeString(rangeLabel)))
}

// OnMessage reacts to analytics group traffic by adopting shared filters.
func (h *analyticsHandle) OnMessage(topic string, payload any, _ string) {
	if topic != "group:analytics:dateRangeChanged" {
		return
	}
	rangeLabel, ok := payload.(string)
	if !ok {
		return
	}

	h.mu.Lock()
	h.dateRange = rangeLabel
	h.mu.Unlock()

	_ = h.render()
	if h.callbacks.OnStateChange != nil {
		h.callbacks.OnStateChange(map[string]any{"dateRange": rangeLabel})
	}
}

func (h *analyticsHandle) Dispose() error {
	return nil
}

func loadWorkflow(_ context.Context, _ string) (island.Component, error) {
	return &workflowComponent{}, nil
}

type workflowComponent struct{}

func (c *workflowComponent) Render(container island.Container, props json.RawMessage, cb island.Callbacks) (island.ViewHandle, error) {
	p := decodeProps(props)
	h := &workflowHandle{
		container: container,
		callbacks: cb,
		queue:     config.GetString(p, "queue", "default"),
		limit:     config.GetInt(p, "limit", 10),
	}
	if err := h.render(0); err != nil {
		return nil, err
	}
	return h, nil
}

type workflowHandle struct {
	container island.Container
	callbacks island.Callbacks
	queue     string
	limit     int
}

func (h *workflowHandle) render(assigned int) error {
	return h.container.SetHTML(fmt.Sprintf(
		`<section class="workflow"><h2>Queue: %s</h2><p>%d assigned, showing up to %d</p></section>`,
		template.HTMLEscapeString(h.queue), assigned, h.limit))
}

// OnMessage counts case assignments flowing through the workflow group.
func (h *workflowHandle) OnMessage(topic string, payload any, _ string) {
	if topic != "group:workflow:caseAssigned" {
		return
	}
	count := 1
	if p, ok := payload.(map[string]any); ok {
		count = config.GetInt(p, "count", 1)
	}
	_ = h.render(count)
}

func (h *workflowHandle) Dispose() error {
	return nil
}

// notificationsComponent listens on both groups and raises actions back
// through the bridge when activity passes a threshold.
type notificationsComponent struct {
	eventBus *bus.Bus
	logger   *slog.Logger
}

func (c *notificationsComponent) Render(container island.Container, _ json.RawMessage, cb island.Callbacks) (island.ViewHandle, error) {
	h := &notificationsHandle{
		container: container,
		callbacks: cb,
		logger:    c.logger,
	}
	if err := h.render(); err != nil {
		return nil, err
	}
	return h, nil
}

type notificationsHandle struct {
	container island.Container
	callbacks island.Callbacks
	logger    *slog.Logger

	mu     sync.Mutex
	events int
}

func (h *notificationsHandle) render() error {
	h.mu.Lock()
	events := h.events
	h.mu.Unlock()

	return h.container.SetHTML(fmt.Sprintf(
		`<aside class="notifications"><p>%d recent events</p></aside>`, events))
}

// OnMessage tallies all group activity this island is tagged into.
func (h *notificationsHandle) OnMessage(topic string, _ any, sourceID string) {
	h.mu.Lock()
	h.events++
	events := h.events
	h.mu.Unlock()

	if err := h.render(); err != nil && h.logger != nil {
		h.logger.Debug("Notification render failed", "error", err)
	}

	if events%10 == 0 && h.callbacks.OnAction != nil {
		h.callbacks.OnAction("activityBurst", map[string]any{
			"events": events,
			"topic":  topic,
			"source": sourceID,
		}, nil)
	}
}

func (h *notificationsHandle) Dispose() error {
	return nil
}
