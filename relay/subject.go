package relay

import (
	"strings"

	"github.com/surgify/islandkit/bus"
	"github.com/surgify/islandkit/errors"
)

// DefaultSubjectPrefix namespaces relayed traffic on the broker so multiple
// applications can share one NATS deployment.
const DefaultSubjectPrefix = "islands"

// TopicToSubject maps a bus topic onto a NATS subject by swapping the
// separator and prefixing the namespace: "group:analytics:dateRange" becomes
// "islands.group.analytics.dateRange". Topics containing the NATS separator
// or whitespace are rejected so the mapping stays reversible.
func TopicToSubject(prefix, topic string) (string, error) {
	if err := bus.ValidateTopic(topic); err != nil {
		return "", errors.Wrap(err, "Relay", "TopicToSubject", "topic validation")
	}
	if strings.ContainsAny(topic, ". \t") {
		return "", errors.WrapInvalid(errors.ErrInvalidTopic, "Relay", "TopicToSubject",
			"topic token not representable as subject")
	}

	return prefix + "." + strings.ReplaceAll(topic, bus.TopicSeparator, "."), nil
}

// SubjectToTopic reverses TopicToSubject. Subjects outside the prefix are
// rejected.
func SubjectToTopic(prefix, subject string) (string, error) {
	rest, ok := strings.CutPrefix(subject, prefix+".")
	if !ok || rest == "" {
		return "", errors.WrapInvalid(errors.ErrInvalidTopic, "Relay", "SubjectToTopic",
			"subject outside relay namespace")
	}

	topic := strings.ReplaceAll(rest, ".", bus.TopicSeparator)
	if err := bus.ValidateTopic(topic); err != nil {
		return "", errors.Wrap(err, "Relay", "SubjectToTopic", "topic validation")
	}

	return topic, nil
}
