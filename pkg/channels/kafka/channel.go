// Package kafka provides the Kafka-backed channel for multi-process
// deployments where acquisition and processing run on separate hosts.
package kafka

import (
	"errors"
	"os"
	"strings"

	"github.com/IBM/sarama"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v3/pkg/kafka"
)

// Config holds the broker and consumer settings of the run-event channel.
type Config struct {
	Brokers       []string
	ConsumerGroup string
	OTELEnabled   bool
}

// ConfigFromEnv reads KAFKA_BROKERS and KAFKA_CONSUMER_GROUP. The consumer
// group defaults to "cg-"+serviceName so every diffract binary consumes the
// run topic with its own offset; tracing follows the TRACING variable used
// by the binaries' --tracing flag.
func ConfigFromEnv(serviceName string) (Config, error) {
	brokers := strings.Split(os.Getenv("KAFKA_BROKERS"), ",")
	if len(brokers) == 0 || brokers[0] == "" {
		return Config{}, errors.New("KAFKA_BROKERS environment variable is not set or empty")
	}

	group := os.Getenv("KAFKA_CONSUMER_GROUP")
	if group == "" {
		group = "cg-" + serviceName
	}

	return Config{
		Brokers:       brokers,
		ConsumerGroup: group,
		OTELEnabled:   os.Getenv("TRACING") != "",
	}, nil
}

// CreateChannel creates the Kafka publisher and subscriber pair the event
// bus runs on. The subscriber starts from the oldest offset so a consumer
// attached after a run began still sees the full run history.
func CreateChannel(logger watermill.LoggerAdapter, cfg Config) (*kafka.Publisher, *kafka.Subscriber, error) {
	if len(cfg.Brokers) == 0 {
		return nil, nil, errors.New("no Kafka brokers configured")
	}

	saramaSubscriberConfig := kafka.DefaultSaramaSubscriberConfig()
	saramaSubscriberConfig.Consumer.Offsets.Initial = sarama.OffsetOldest

	subscriber, err := kafka.NewSubscriber(
		kafka.SubscriberConfig{
			Brokers:               cfg.Brokers,
			Unmarshaler:           kafka.DefaultMarshaler{},
			OverwriteSaramaConfig: saramaSubscriberConfig,
			ConsumerGroup:         cfg.ConsumerGroup,
			OTELEnabled:           cfg.OTELEnabled,
		},
		logger,
	)
	if err != nil {
		return nil, nil, err
	}

	saramaPublisherConfig := sarama.NewConfig()
	saramaPublisherConfig.Producer.Return.Successes = true

	publisher, err := kafka.NewPublisher(
		kafka.PublisherConfig{
			Brokers:               cfg.Brokers,
			Marshaler:             kafka.DefaultMarshaler{},
			OverwriteSaramaConfig: saramaPublisherConfig,
			OTELEnabled:           cfg.OTELEnabled,
		},
		logger,
	)
	if err != nil {
		return nil, nil, err
	}

	return publisher, subscriber, nil
}
