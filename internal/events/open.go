package events

import (
	"fmt"
	"log"

	"storefront/internal/config"
)

// Open returns the publisher selected by EVENTS_BROKER, or Discard when none is set.
func Open(cfg config.Config, logger *log.Logger) (Publisher, error) {
	switch cfg.EventsBroker {
	case "":
		return Discard{}, nil
	case "kafka":
		return NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
	case "rabbitmq":
		return NewRabbitPublisher(cfg.RabbitMQURL, cfg.RabbitMQExchange, logger)
	default:
		return nil, fmt.Errorf("unknown events broker %q", cfg.EventsBroker)
	}
}
