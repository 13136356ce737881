package config

import (
	"os"
	"strings"
)

// Server captures process-level configuration.
type Server struct {
	Addr string
	// DatabaseURL selects the PostgreSQL store; empty runs the in-memory
	// store for local development.
	DatabaseURL string
	// KafkaBrokers enables the audit outbox relay when non-empty. Only
	// meaningful together with DatabaseURL.
	KafkaBrokers []string
	AuditTopic   string
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("CONTACTLINK_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	topic := os.Getenv("CONTACTLINK_AUDIT_TOPIC")
	if topic == "" {
		topic = "contactlink.audit"
	}

	var brokers []string
	if raw := os.Getenv("CONTACTLINK_KAFKA_BROKERS"); raw != "" {
		for _, broker := range strings.Split(raw, ",") {
			if broker = strings.TrimSpace(broker); broker != "" {
				brokers = append(brokers, broker)
			}
		}
	}

	return Server{
		Addr:         addr,
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		KafkaBrokers: brokers,
		AuditTopic:   topic,
	}
}
