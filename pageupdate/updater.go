package pageupdate

import "context"

// Updater is the page-update surface the bridge delegates to. The bridge
// never talks to the server directly; issuing requests and splicing the
// response into the document happen behind this interface.
type Updater interface {
	// ApplyPartialUpdate issues a request to the endpoint and splices the
	// response fragment into the document region identified by target.
	ApplyPartialUpdate(ctx context.Context, target, endpoint string, payload any) error

	// Navigate performs a client-side route change without a full page
	// reload, preserving the coordination state of mounted islands.
	Navigate(ctx context.Context, path string) error
}
