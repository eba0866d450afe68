// Package bus implements the in-process publish/subscribe channel used for
// island-to-island and island-to-page notifications.
//
// Topics are hierarchical colon-separated strings. Subscriptions match
// topics exactly or through wildcards: "*" matches exactly one token,
// ">" matches one or more trailing tokens. A subscriber on
// "group:analytics:*" receives "group:analytics:metrics" but not
// "group:workflow:metrics".
//
// Delivery is synchronous, on the publisher's call stack, in
// subscription-registration order, over a snapshot of the subscriber list
// taken when the publish begins. There is no queuing, no retry, and no
// history: a message published with zero subscribers is dropped.
//
// A handler that panics is recovered at the bus boundary, logged with the
// offending topic and subscriber identity, and delivery continues to the
// remaining handlers. Publish never returns an error to its caller.
//
// Ordering guarantees are deliberately weak across topics: within one topic
// delivery order equals publish order for a single publishing goroutine,
// and nothing stronger should be inferred.
package bus
