package island

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/surgify/islandkit/errors"
)

// Container is the render target handed to a component. The document layer
// provides the concrete implementation; components only need an identity
// and a way to replace the fragment's content.
type Container interface {
	// ID returns the marker element's island id
	ID() string
	// SetHTML replaces the container's content with the given fragment
	SetHTML(fragment string) error
}

// ViewHandle is the opaque, exclusively-owned runtime object representing a
// mounted component instance. Only the mount registry may call Dispose.
type ViewHandle interface {
	Dispose() error
}

// Receiver is the optional capability a view handle implements to receive
// group-routed messages. Handles without it are silently skipped during
// group delivery.
type Receiver interface {
	OnMessage(topic string, payload any, sourceID string)
}

// ServerSync is the explicit directive an action may carry to request that
// the action be forwarded to the page-update layer.
type ServerSync struct {
	// Target is the document region the response splices into
	Target string `json:"target"`
	// Endpoint is the server endpoint handling the action
	Endpoint string `json:"endpoint"`
}

// Callbacks are injected into every mounted island's properties. They are
// the island's only way back into the coordination layer.
type Callbacks struct {
	// OnStateChange reports a new state snapshot for the island
	OnStateChange func(newState any)
	// OnAction raises a named action; sync is nil unless the action
	// carries an explicit server-sync directive
	OnAction func(name string, data any, sync *ServerSync)
	// OnNavigate requests a client-side route change without a full reload
	OnNavigate func(path string)
}

// Component is a renderable view resolved by a Loader. Render is synchronous;
// all asynchronous work belongs in the loader's Load.
type Component interface {
	Render(container Container, properties json.RawMessage, callbacks Callbacks) (ViewHandle, error)
}

// Loader resolves a type string to a renderable component. Loading may
// require asynchronous work (fetching a component definition), so it takes
// a context and is the only suspension point in the mount path.
type Loader interface {
	Load(ctx context.Context, islandType string) (Component, error)
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(ctx context.Context, islandType string) (Component, error)

// Load implements Loader.
func (f LoaderFunc) Load(ctx context.Context, islandType string) (Component, error) {
	return f(ctx, islandType)
}

// LoaderRegistration holds a loader and metadata for one island type.
type LoaderRegistration struct {
	Type        string // Island type key (e.g. "analytics", "workflow")
	Loader      Loader
	Description string // Human-readable description
	Version     string // Component version
}

// Info holds metadata about an available island type
type Info struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Version     string `json:"version"`
}

// LoaderRegistry maps island type names to component loaders. Types are
// extended by registration, not by editing a central dispatch.
type LoaderRegistry struct {
	loaders map[string]*LoaderRegistration
	mu      sync.RWMutex
}

// NewLoaderRegistry creates a new empty loader registry
func NewLoaderRegistry() *LoaderRegistry {
	return &LoaderRegistry{
		loaders: make(map[string]*LoaderRegistration),
	}
}

// Register registers a loader for an island type.
// Returns an error if the type is already registered.
func (r *LoaderRegistry) Register(registration LoaderRegistration) error {
	if registration.Type == "" {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "LoaderRegistry", "Register", "type validation")
	}
	if err := validateName(registration.Type); err != nil {
		return errors.Wrap(err, "LoaderRegistry", "Register", "type charset validation")
	}
	if registration.Loader == nil {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "LoaderRegistry", "Register", "loader validation")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.loaders[registration.Type]; exists {
		msg := fmt.Errorf("loader for type '%s' is already registered", registration.Type)
		return errors.WrapInvalid(msg, "LoaderRegistry", "Register", "duplicate loader check")
	}

	r.loaders[registration.Type] = &registration
	return nil
}

// Resolve returns the loader for an island type.
func (r *LoaderRegistry) Resolve(islandType string) (Loader, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	registration, exists := r.loaders[islandType]
	if !exists {
		return nil, false
	}
	return registration.Loader, true
}

// Types returns all registered island type names
func (r *LoaderRegistry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.loaders))
	for name := range r.loaders {
		names = append(names, name)
	}
	return names
}

// Available returns information about all registered island types
func (r *LoaderRegistry) Available() map[string]Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[string]Info, len(r.loaders))
	for name, registration := range r.loaders {
		result[name] = Info{
			Type:        name,
			Description: registration.Description,
			Version:     registration.Version,
		}
	}
	return result
}
