package relay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopicToSubject(t *testing.T) {
	tests := []struct {
		name    string
		topic   string
		want    string
		wantErr bool
	}{
		{
			name:  "group topic",
			topic: "group:analytics:dateRangeChanged",
			want:  "islands.group.analytics.dateRangeChanged",
		},
		{
			name:  "single token",
			topic: "heartbeat",
			want:  "islands.heartbeat",
		},
		{
			name:    "dot in token",
			topic:   "group:analytics:v1.2",
			wantErr: true,
		},
		{
			name:    "wildcard",
			topic:   "group:analytics:*",
			wantErr: true,
		},
		{
			name:    "empty",
			topic:   "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := TopicToSubject(DefaultSubjectPrefix, tt.topic)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSubjectToTopic(t *testing.T) {
	topic, err := SubjectToTopic(DefaultSubjectPrefix, "islands.group.workflow.caseAssigned")
	require.NoError(t, err)
	assert.Equal(t, "group:workflow:caseAssigned", topic)

	_, err = SubjectToTopic(DefaultSubjectPrefix, "other.group.workflow.caseAssigned")
	assert.Error(t, err, "foreign namespace rejected")

	_, err = SubjectToTopic(DefaultSubjectPrefix, "islands.")
	assert.Error(t, err)
}

func TestSubjectMappingRoundTrip(t *testing.T) {
	topics := []string{
		"group:analytics:dateRangeChanged",
		"group:workflow:case:statusChange",
	}

	for _, topic := range topics {
		subject, err := TopicToSubject("app", topic)
		require.NoError(t, err)

		back, err := SubjectToTopic("app", subject)
		require.NoError(t, err)
		assert.Equal(t, topic, back)
	}
}
