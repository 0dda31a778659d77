package cmd

import (
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"

	"github.com/stormlab/diffract/pkg/channels/gochannel"
	"github.com/stormlab/diffract/pkg/channels/kafka"
	"github.com/stormlab/diffract/pkg/eventbus"
)

// NewEventBus creates an event bus instance based on the provider name.
func NewEventBus(provider string, logger *slog.Logger) eventbus.EventBus {
	switch provider {
	case "kafka":
		cfg, err := kafka.ConfigFromEnv("diffract")
		if err != nil {
			panic(fmt.Errorf("failed to configure Kafka: %w", err))
		}

		pub, sub, err := kafka.CreateChannel(watermill.NewSlogLogger(logger), cfg)
		if err != nil {
			panic(fmt.Errorf("failed to create Kafka pub/sub: %w", err))
		}

		return eventbus.NewWatermillEventBus(pub, sub)
	case "gochannel":
		pub, sub, err := gochannel.CreateChannel(watermill.NewSlogLogger(logger))
		if err != nil {
			panic(fmt.Errorf("failed to create in-memory pub/sub: %w", err))
		}

		return eventbus.NewWatermillEventBus(pub, sub)
	default:
		panic("Unsupported event bus provider: " + provider)
	}
}
