package island

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/surgify/islandkit/errors"
)

// mockHandle implements ViewHandle for testing
type mockHandle struct {
	disposed   int
	disposeErr error
}

func (h *mockHandle) Dispose() error {
	h.disposed++
	return h.disposeErr
}

func testDescriptor(id, islandType string, tags ...string) Descriptor {
	return Descriptor{
		ID:                id,
		Type:              islandType,
		GroupTags:         tags,
		InitialProperties: json.RawMessage(`{"title":"Test"}`),
	}
}

func TestRegisterAndGet(t *testing.T) {
	registry := NewRegistry(slog.Default())
	handle := &mockHandle{}

	record, created, err := registry.Register(testDescriptor("a1", "analytics", "analytics"), handle)
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.True(t, created)
	assert.Equal(t, "a1", record.Descriptor.ID)
	assert.False(t, record.MountedAt.IsZero())
	assert.Nil(t, record.LastKnownState())

	got := registry.Get("a1")
	require.NotNil(t, got)
	assert.Same(t, record, got)

	assert.Nil(t, registry.Get("missing"))
}

func TestRegisterIdempotent(t *testing.T) {
	registry := NewRegistry(slog.Default())
	first := &mockHandle{}
	second := &mockHandle{}

	original, created, err := registry.Register(testDescriptor("a1", "analytics"), first)
	require.NoError(t, err)
	require.True(t, created)

	// Duplicate registration returns the existing record unchanged
	duplicate, created, err := registry.Register(testDescriptor("a1", "workflow"), second)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Same(t, original, duplicate)
	assert.Equal(t, "analytics", duplicate.Descriptor.Type)
	assert.Equal(t, 1, registry.Count())

	// The redundant handle stays with the caller; registry never touched it
	registry.Unregister("a1")
	assert.Equal(t, 1, first.disposed)
	assert.Zero(t, second.disposed)
}

func TestRegisterValidation(t *testing.T) {
	registry := NewRegistry(slog.Default())

	tests := []struct {
		name       string
		descriptor Descriptor
	}{
		{"empty id", Descriptor{Type: "analytics"}},
		{"empty type", Descriptor{ID: "a1"}},
		{"bad id charset", Descriptor{ID: "a1<script>", Type: "analytics"}},
		{"invalid props", Descriptor{ID: "a1", Type: "analytics", InitialProperties: json.RawMessage(`{bad`)}},
		{"empty group tag", Descriptor{ID: "a1", Type: "analytics", GroupTags: []string{""}}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, _, err := registry.Register(test.descriptor, &mockHandle{})
			require.Error(t, err)
			assert.True(t, errors.IsInvalid(err))
		})
	}

	assert.Zero(t, registry.Count())
}

func TestUnregister(t *testing.T) {
	registry := NewRegistry(slog.Default())
	handle := &mockHandle{}

	_, _, err := registry.Register(testDescriptor("a1", "analytics"), handle)
	require.NoError(t, err)

	assert.True(t, registry.Unregister("a1"))
	assert.Equal(t, 1, handle.disposed)
	assert.Nil(t, registry.Get("a1"))

	// Second unregister reports no entry
	assert.False(t, registry.Unregister("a1"))
	assert.Equal(t, 1, handle.disposed)
}

func TestUnregisterDisposeFailureDoesNotBlock(t *testing.T) {
	registry := NewRegistry(slog.Default())
	handle := &mockHandle{disposeErr: fmt.Errorf("teardown broke")}

	_, _, err := registry.Register(testDescriptor("a1", "analytics"), handle)
	require.NoError(t, err)

	// Teardown failure is logged, not surfaced; the record is still removed
	assert.True(t, registry.Unregister("a1"))
	assert.Nil(t, registry.Get("a1"))
}

func TestByGroup(t *testing.T) {
	registry := NewRegistry(slog.Default())

	_, _, err := registry.Register(testDescriptor("a1", "analytics", "analytics"), &mockHandle{})
	require.NoError(t, err)
	_, _, err = registry.Register(testDescriptor("a2", "analytics", "analytics", "dashboard"), &mockHandle{})
	require.NoError(t, err)
	_, _, err = registry.Register(testDescriptor("w1", "workflow", "workflow"), &mockHandle{})
	require.NoError(t, err)

	analytics := registry.ByGroup("analytics")
	assert.Len(t, analytics, 2)

	workflow := registry.ByGroup("workflow")
	require.Len(t, workflow, 1)
	assert.Equal(t, "w1", workflow[0].Descriptor.ID)

	assert.Empty(t, registry.ByGroup("imaging"))
}

func TestUpdateState(t *testing.T) {
	registry := NewRegistry(slog.Default())

	record, _, err := registry.Register(testDescriptor("a1", "analytics"), &mockHandle{})
	require.NoError(t, err)

	require.NoError(t, registry.UpdateState("a1", map[string]any{"metric": 42}))
	assert.Equal(t, map[string]any{"metric": 42}, record.LastKnownState())

	err = registry.UpdateState("missing", "state")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotMounted))
}

func TestAll(t *testing.T) {
	registry := NewRegistry(slog.Default())
	assert.Empty(t, registry.All())

	_, _, err := registry.Register(testDescriptor("a1", "analytics"), &mockHandle{})
	require.NoError(t, err)
	_, _, err = registry.Register(testDescriptor("w1", "workflow"), &mockHandle{})
	require.NoError(t, err)

	all := registry.All()
	assert.Len(t, all, 2)
	assert.Equal(t, 2, registry.Count())
}

// receivingHandle implements both ViewHandle and Receiver
type receivingHandle struct {
	mockHandle
	topics    []string
	panicking bool
}

func (h *receivingHandle) OnMessage(topic string, _ any, _ string) {
	if h.panicking {
		panic("receiver failure")
	}
	h.topics = append(h.topics, topic)
}

func TestDeliverToGroup(t *testing.T) {
	registry := NewRegistry(slog.Default())

	analytics := &receivingHandle{}
	workflow := &receivingHandle{}
	deaf := &mockHandle{} // no Receiver capability

	_, _, err := registry.Register(testDescriptor("a1", "analytics", "analytics"), analytics)
	require.NoError(t, err)
	_, _, err = registry.Register(testDescriptor("w1", "workflow", "workflow"), workflow)
	require.NoError(t, err)
	_, _, err = registry.Register(testDescriptor("n1", "notifications", "analytics"), deaf)
	require.NoError(t, err)

	delivered := registry.DeliverToGroup("analytics", "group:analytics:dateRangeChanged", "Q3", "a1")

	assert.Equal(t, 1, delivered, "non-receiving handles are skipped")
	assert.Equal(t, []string{"group:analytics:dateRangeChanged"}, analytics.topics)
	assert.Empty(t, workflow.topics)
}

func TestDeliverToGroupSurvivesPanickingReceiver(t *testing.T) {
	registry := NewRegistry(slog.Default())

	bad := &receivingHandle{panicking: true}
	good := &receivingHandle{}

	_, _, err := registry.Register(testDescriptor("b1", "analytics", "analytics"), bad)
	require.NoError(t, err)
	_, _, err = registry.Register(testDescriptor("g1", "analytics", "analytics"), good)
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		delivered := registry.DeliverToGroup("analytics", "group:analytics:metrics", nil, "")
		assert.Equal(t, 2, delivered)
	})
	assert.Equal(t, []string{"group:analytics:metrics"}, good.topics)
}
