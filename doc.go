// Package islandkit is a coordination layer for independently mounted UI
// islands sharing one document. It discovers island markers, resolves and
// mounts their components, routes structured messages between them over a
// hierarchical topic bus, and applies server-driven partial updates and
// navigations to the page.
//
// The packages compose explicitly, with no ambient globals:
//
//   - bus: in-process pub/sub with colon-separated hierarchical topics
//   - island: descriptors, lifecycle contracts, mount and loader registries
//   - document: HTML document model, marker discovery, fragment splicing
//   - bridge: scan/mount/route/unmount orchestration
//   - pageupdate: HTTP partial updates and navigation, with live WebSocket
//     mirroring
//   - relay: optional NATS bridge for cross-session group traffic
//   - errors, metric, health, config: classification, instrumentation, and
//     host plumbing
//
// cmd/islandhost assembles everything into a runnable host.
package islandkit
