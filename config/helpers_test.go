package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetString(t *testing.T) {
	props := map[string]any{"region": "emea", "count": 3}

	assert.Equal(t, "emea", GetString(props, "region", "global"))
	assert.Equal(t, "global", GetString(props, "missing", "global"))
	assert.Equal(t, "global", GetString(props, "count", "global"), "wrong type falls back")
}

func TestGetInt(t *testing.T) {
	props := map[string]any{
		"limit":   10,
		"decoded": float64(25), // JSON numbers decode as float64
		"label":   "five",
	}

	assert.Equal(t, 10, GetInt(props, "limit", 1))
	assert.Equal(t, 25, GetInt(props, "decoded", 1))
	assert.Equal(t, 1, GetInt(props, "label", 1))
	assert.Equal(t, 1, GetInt(props, "missing", 1))
}

func TestGetBool(t *testing.T) {
	props := map[string]any{"live": true}

	assert.True(t, GetBool(props, "live", false))
	assert.False(t, GetBool(props, "missing", false))
}

func TestGetStringSlice(t *testing.T) {
	props := map[string]any{
		"tags":  []any{"analytics", "workflow"},
		"mixed": []any{"ok", 2},
	}

	assert.Equal(t, []string{"analytics", "workflow"}, GetStringSlice(props, "tags", nil))
	assert.Nil(t, GetStringSlice(props, "mixed", nil), "mixed element types fall back")
	assert.Equal(t, []string{"x"}, GetStringSlice(props, "missing", []string{"x"}))
}

func TestHasKey(t *testing.T) {
	props := map[string]any{"region": "emea"}

	assert.True(t, HasKey(props, "region"))
	assert.False(t, HasKey(props, "missing"))
}
