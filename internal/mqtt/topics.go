package mqtt

import "strings"

// Default topics of the glove bridge. The mirror topics live outside the
// glove-flex filter so the server never ingests its own output.
const (
	DefaultGloveFlexTopic      = "glove/+/flex"
	DefaultSampleMirrorTopic   = "glove-backend/simulated/flex"
	DefaultInterpretationTopic = "glove-backend/interpretations"
)

// TopicMatches reports whether topic is selected by filter, honouring the
// single-level "+" and multi-level "#" wildcards.
func TopicMatches(filter, topic string) bool {
	if strings.HasPrefix(topic, "$") && (strings.HasPrefix(filter, "+") || strings.HasPrefix(filter, "#")) {
		return false
	}
	filterLevels := strings.Split(filter, "/")
	topicLevels := strings.Split(topic, "/")
	for i, level := range filterLevels {
		if level == "#" {
			return true
		}
		if i >= len(topicLevels) {
			return false
		}
		if level != "+" && level != topicLevels[i] {
			return false
		}
	}
	return len(filterLevels) == len(topicLevels)
}
