// Package island defines the data model of the coordination layer:
// descriptors for mountable UI fragments, the mount registry that owns
// their runtime records, and the loader registry that resolves island
// types to renderable components.
//
// The mount registry holds at most one MountRecord per island id; a
// duplicate registration is an idempotent no-op, never an error. The
// registry is the exclusive owner of each record's view handle - teardown
// happens only through Unregister.
//
// The loader registry replaces string-keyed switch dispatch with
// registration: an island type becomes mountable when a Loader is
// registered for it, and a marker with an unregistered type is skipped
// (logged) rather than failing the scan.
package island
