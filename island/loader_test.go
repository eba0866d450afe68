package island

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/surgify/islandkit/errors"
)

// mockComponent implements Component for testing
type mockComponent struct {
	rendered int
}

func (c *mockComponent) Render(_ Container, _ json.RawMessage, _ Callbacks) (ViewHandle, error) {
	c.rendered++
	return &mockHandle{}, nil
}

func staticLoader(c Component) Loader {
	return LoaderFunc(func(_ context.Context, _ string) (Component, error) {
		return c, nil
	})
}

func TestLoaderRegistryRegisterAndResolve(t *testing.T) {
	registry := NewLoaderRegistry()
	component := &mockComponent{}

	err := registry.Register(LoaderRegistration{
		Type:        "analytics",
		Loader:      staticLoader(component),
		Description: "Analytics dashboard fragment",
		Version:     "1.0.0",
	})
	require.NoError(t, err)

	loader, ok := registry.Resolve("analytics")
	require.True(t, ok)

	loaded, err := loader.Load(context.Background(), "analytics")
	require.NoError(t, err)
	assert.Same(t, component, loaded)

	_, ok = registry.Resolve("unknown-widget")
	assert.False(t, ok)
}

func TestLoaderRegistryValidation(t *testing.T) {
	registry := NewLoaderRegistry()

	err := registry.Register(LoaderRegistration{Type: "", Loader: staticLoader(&mockComponent{})})
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))

	err = registry.Register(LoaderRegistration{Type: "analytics", Loader: nil})
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))

	err = registry.Register(LoaderRegistration{Type: "bad type!", Loader: staticLoader(&mockComponent{})})
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
}

func TestLoaderRegistryDuplicate(t *testing.T) {
	registry := NewLoaderRegistry()

	require.NoError(t, registry.Register(LoaderRegistration{
		Type:   "analytics",
		Loader: staticLoader(&mockComponent{}),
	}))

	err := registry.Register(LoaderRegistration{
		Type:   "analytics",
		Loader: staticLoader(&mockComponent{}),
	})
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
}

func TestLoaderRegistryTypesAndAvailable(t *testing.T) {
	registry := NewLoaderRegistry()

	require.NoError(t, registry.Register(LoaderRegistration{
		Type:        "analytics",
		Loader:      staticLoader(&mockComponent{}),
		Description: "Analytics dashboard fragment",
		Version:     "1.2.0",
	}))
	require.NoError(t, registry.Register(LoaderRegistration{
		Type:   "workflow",
		Loader: staticLoader(&mockComponent{}),
	}))

	assert.ElementsMatch(t, []string{"analytics", "workflow"}, registry.Types())

	available := registry.Available()
	require.Contains(t, available, "analytics")
	assert.Equal(t, "Analytics dashboard fragment", available["analytics"].Description)
	assert.Equal(t, "1.2.0", available["analytics"].Version)
}

func TestDescriptorHasTag(t *testing.T) {
	d := testDescriptor("a1", "analytics", "analytics", "dashboard")
	assert.True(t, d.HasTag("analytics"))
	assert.True(t, d.HasTag("dashboard"))
	assert.False(t, d.HasTag("workflow"))
}
