// Package config reads service settings from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

type Config struct {
	Port           string
	Store          string
	DatabaseURL    string
	RequestTimeout time.Duration
	NotifyTimeout  time.Duration
	KafkaBrokers   []string
	KafkaTopic     string
	KafkaGroupID   string
	OutboxInterval time.Duration
	SeedFile       string
	LogLevel       string
	OrderBaseURL   string
}

// Load reads the environment. Unset variables take their defaults; set but
// malformed ones are an error.
func Load() (Config, error) {
	c := Config{
		Port:         getenv("PORT", "8080"),
		Store:        strings.ToLower(getenv("STORE", StoreMemory)),
		DatabaseURL:  getenv("DATABASE_URL", ""),
		KafkaBrokers: splitList(getenv("KAFKA_BROKERS", "")),
		KafkaTopic:   getenv("KAFKA_TOPIC", "coffee.orders"),
		KafkaGroupID: getenv("KAFKA_GROUP_ID", "notification-service"),
		SeedFile:     getenv("SEED_FILE", ""),
		LogLevel:     getenv("LOG_LEVEL", "info"),
		OrderBaseURL: strings.TrimRight(getenv("ORDER_BASE_URL", "http://localhost:8080"), "/"),
	}

	var err error
	if c.RequestTimeout, err = millis("REQUEST_TIMEOUT_MS", "2500"); err != nil {
		return Config{}, err
	}
	if c.NotifyTimeout, err = millis("NOTIFY_TIMEOUT_MS", "2000"); err != nil {
		return Config{}, err
	}
	if c.OutboxInterval, err = millis("OUTBOX_INTERVAL_MS", "1000"); err != nil {
		return Config{}, err
	}

	switch c.Store {
	case StoreMemory:
	case StorePostgres:
		if c.DatabaseURL == "" {
			return Config{}, errors.New("DATABASE_URL is required when STORE=postgres")
		}
	default:
		return Config{}, fmt.Errorf("STORE must be %q or %q, got %q", StoreMemory, StorePostgres, c.Store)
	}
	return c, nil
}

func (c Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

func millis(key, def string) (time.Duration, error) {
	raw := getenv(key, def)
	ms, err := strconv.Atoi(raw)
	if err != nil || ms <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", key, raw)
	}
	return time.Duration(ms) * time.Millisecond, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getenv(k, def string) string {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	return v
}
