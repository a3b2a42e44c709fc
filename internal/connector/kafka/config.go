package kafka

import (
	"strings"

	"github.com/cuongceg/symbiot/internal/broker"
)

// Kafka topic names cannot contain "/", so MQTT levels become dots.
var topics = broker.TopicMapping{Separator: ".", Single: "", Multi: ""}

type Config struct {
	Brokers  []string
	ClientID string
}

// configFrom reads the seed broker from the host and optional extra seeds
// from ?brokers=b2:9092,b3:9092.
func configFrom(ep broker.Endpoint) Config {
	brokers := []string{ep.Host()}
	if extra := ep.Query("brokers", ""); extra != "" {
		for _, b := range strings.Split(extra, ",") {
			if b = strings.TrimSpace(b); b != "" {
				brokers = append(brokers, b)
			}
		}
	}
	return Config{Brokers: brokers, ClientID: ep.ClientID}
}

func groupID(clientID, topic string) string {
	return clientID + "." + topics.Name(topic)
}
