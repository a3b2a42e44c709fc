package broker

import (
	"fmt"
	"strings"
)

// MatchTopic reports whether topic matches an MQTT topic filter.
func MatchTopic(filter, topic string) bool {
	fs := strings.Split(filter, "/")
	ts := strings.Split(topic, "/")
	for i, f := range fs {
		if f == "#" {
			return true
		}
		if i >= len(ts) {
			return false
		}
		if f != "+" && f != ts[i] {
			return false
		}
	}
	return len(fs) == len(ts)
}

// HasWildcard reports whether the filter contains MQTT wildcards.
func HasWildcard(filter string) bool {
	return strings.ContainsAny(filter, "+#")
}

// TopicMapping rewrites MQTT topic syntax for a transport with dotted
// subjects (NATS, AMQP topic exchanges).
type TopicMapping struct {
	Separator string
	Single    string
	Multi     string
}

var (
	NATSTopics = TopicMapping{Separator: ".", Single: "*", Multi: ">"}
	AMQPTopics = TopicMapping{Separator: ".", Single: "*", Multi: "#"}
)

// Name converts a concrete topic.
func (m TopicMapping) Name(topic string) string {
	return strings.ReplaceAll(topic, "/", m.Separator)
}

// Filter converts a topic filter, validating wildcard placement.
func (m TopicMapping) Filter(filter string) (string, error) {
	parts := strings.Split(filter, "/")
	for i, p := range parts {
		switch {
		case p == "+":
			parts[i] = m.Single
		case p == "#":
			if i != len(parts)-1 {
				return "", fmt.Errorf("topic %q: '#' must be the last level", filter)
			}
			parts[i] = m.Multi
		case strings.ContainsAny(p, "+#"):
			return "", fmt.Errorf("topic %q: wildcard must occupy a whole level", filter)
		}
	}
	return strings.Join(parts, m.Separator), nil
}

// Topic converts a transport subject back to MQTT syntax.
func (m TopicMapping) Topic(name string) string {
	return strings.ReplaceAll(name, m.Separator, "/")
}
