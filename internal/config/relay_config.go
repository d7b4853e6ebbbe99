package config

// RelayConfig holds configuration for the outbox relay service.
// This is a minimal config that only includes what the relay needs.
type RelayConfig struct {
	DatabaseURL         string
	RabbitMQURL         string
	TransitionQueueName string
	HealthPort          string
}

func LoadRelayConfig() *RelayConfig {
	v := newViper()
	v.SetDefault("relay_health_port", "8090")

	dbURL := v.GetString("db_connection_string")
	if dbURL == "" {
		panic("DB_CONNECTION_STRING environment variable is required")
	}

	rabbitURL := v.GetString("rabbitmq_url")
	if rabbitURL == "" {
		panic("RABBITMQ_URL environment variable is required")
	}

	return &RelayConfig{
		DatabaseURL:         dbURL,
		RabbitMQURL:         rabbitURL,
		TransitionQueueName: v.GetString("transition_queue_name"),
		HealthPort:          v.GetString("relay_health_port"),
	}
}
