// Package bridge is the coordination core: it scans a document for island
// markers, resolves and mounts the matching view components, injects the
// callback set that connects islands back to the bus, and keeps the mounted
// set reconciled with the document as partial updates and navigations
// rewrite it.
//
// The bridge composes, it does not own: the mount registry, loader registry,
// event bus, document, and page updater are all injected. Mount is the only
// suspending operation; an Unmount racing an in-flight load cancels it, and
// a load that resolves after its island was unmounted is discarded.
package bridge
