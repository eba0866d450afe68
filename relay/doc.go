// Package relay mirrors group traffic between the in-process event bus and
// a NATS broker, letting islands hosted in separate page sessions coordinate
// through the same group topics they use locally.
//
// Only group:* topics cross the relay. Colon-separated topics map onto
// dot-separated broker subjects under a configurable namespace prefix, and
// every envelope carries the publishing relay's instance id so echoed
// traffic is discarded instead of looping.
package relay
