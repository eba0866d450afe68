package bus

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchTopic(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		topic   string
		matches bool
	}{
		{"exact", "island:a1:stateChange", "island:a1:stateChange", true},
		{"exact mismatch", "island:a1:stateChange", "island:a2:stateChange", false},
		{"single wildcard", "group:analytics:*", "group:analytics:metrics", true},
		{"single wildcard wrong group", "group:analytics:*", "group:workflow:metrics", false},
		{"single wildcard too deep", "group:analytics:*", "group:analytics:alert:high", false},
		{"single wildcard too shallow", "group:analytics:*", "group:analytics", false},
		{"mid wildcard", "island:*:action:save", "island:a1:action:save", true},
		{"mid wildcard mismatch", "island:*:action:save", "island:a1:action:delete", false},
		{"tail wildcard", "group:analytics:>", "group:analytics:alert:high", true},
		{"tail wildcard one token", "group:analytics:>", "group:analytics:metrics", true},
		{"tail wildcard requires token", "group:analytics:>", "group:analytics", false},
		{"tail wildcard everything", ">", "anything:at:all", true},
		{"prefix is not a match", "group:analytics", "group:analytics:metrics", false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.matches, MatchTopic(test.pattern, test.topic))
		})
	}
}

func TestValidateTopic(t *testing.T) {
	assert.NoError(t, ValidateTopic("island:a1:stateChange"))
	assert.NoError(t, ValidateTopic("case"))
	assert.Error(t, ValidateTopic(""))
	assert.Error(t, ValidateTopic("island::stateChange"))
	assert.Error(t, ValidateTopic("island:*"))
	assert.Error(t, ValidateTopic("island:>"))
}

func TestValidatePattern(t *testing.T) {
	assert.NoError(t, ValidatePattern("island:a1:stateChange"))
	assert.NoError(t, ValidatePattern("group:analytics:*"))
	assert.NoError(t, ValidatePattern("group:analytics:>"))
	assert.NoError(t, ValidatePattern(">"))
	assert.Error(t, ValidatePattern(""))
	assert.Error(t, ValidatePattern("group:>:alert"))
	assert.Error(t, ValidatePattern("group::alert"))
}
