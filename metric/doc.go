// Package metric provides Prometheus-based metrics for the IslandKit
// coordination layer.
//
// Registry wraps a private Prometheus registry with duplicate-registration
// protection and pre-registers the core coordination metrics (mount lifecycle,
// bus delivery, page updates, relay). Components register their own metrics
// through the Registrar interface under a "component.metric" key.
//
// Server exposes the registry over HTTP at /metrics in OpenMetrics format.
//
// All metric label sets are bounded: island types and topic roots are small
// fixed vocabularies, never user-controlled identifiers.
package metric
