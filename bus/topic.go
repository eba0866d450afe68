package bus

import (
	"strings"

	"github.com/surgify/islandkit/errors"
)

// Topic separator and wildcard tokens. Topics are hierarchical colon-separated
// strings ("island:a1:stateChange", "group:analytics:metrics"). Subscription
// patterns may use a single-level wildcard for exactly one token or a tail
// wildcard for one or more trailing tokens.
const (
	TopicSeparator = ":"
	// WildcardToken matches exactly one token at its position
	WildcardToken = "*"
	// WildcardTail matches one or more trailing tokens; must be last
	WildcardTail = ">"
)

// ValidateTopic checks that a topic is publishable: non-empty, no empty
// tokens, and no wildcard tokens (wildcards belong to patterns only).
func ValidateTopic(topic string) error {
	if topic == "" {
		return errors.WrapInvalid(errors.ErrInvalidTopic, "Bus", "ValidateTopic", "empty topic")
	}

	for _, token := range strings.Split(topic, TopicSeparator) {
		if token == "" {
			return errors.WrapInvalid(errors.ErrInvalidTopic, "Bus", "ValidateTopic", "empty topic token")
		}
		if token == WildcardToken || token == WildcardTail {
			return errors.WrapInvalid(errors.ErrInvalidTopic, "Bus", "ValidateTopic", "wildcard in concrete topic")
		}
	}

	return nil
}

// ValidatePattern checks that a subscription pattern is well-formed.
// The tail wildcard may only appear as the final token.
func ValidatePattern(pattern string) error {
	if pattern == "" {
		return errors.WrapInvalid(errors.ErrInvalidPattern, "Bus", "ValidatePattern", "empty pattern")
	}

	tokens := strings.Split(pattern, TopicSeparator)
	for i, token := range tokens {
		if token == "" {
			return errors.WrapInvalid(errors.ErrInvalidPattern, "Bus", "ValidatePattern", "empty pattern token")
		}
		if token == WildcardTail && i != len(tokens)-1 {
			return errors.WrapInvalid(errors.ErrInvalidPattern, "Bus", "ValidatePattern", "tail wildcard not last")
		}
	}

	return nil
}

// MatchTopic reports whether a concrete topic matches a subscription pattern.
// "group:analytics:*" matches "group:analytics:metrics" but not
// "group:workflow:metrics" and not "group:analytics:alert:high";
// "group:analytics:>" matches both of the analytics topics.
func MatchTopic(pattern, topic string) bool {
	if pattern == topic {
		return true
	}

	patternTokens := strings.Split(pattern, TopicSeparator)
	topicTokens := strings.Split(topic, TopicSeparator)

	for i, pt := range patternTokens {
		if pt == WildcardTail {
			// Tail wildcard consumes one or more remaining tokens
			return len(topicTokens) > i
		}
		if i >= len(topicTokens) {
			return false
		}
		if pt != WildcardToken && pt != topicTokens[i] {
			return false
		}
	}

	return len(patternTokens) == len(topicTokens)
}
