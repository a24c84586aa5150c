package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "STORE", "DATABASE_URL", "REQUEST_TIMEOUT_MS", "NOTIFY_TIMEOUT_MS",
		"KAFKA_BROKERS", "KAFKA_TOPIC", "KAFKA_GROUP_ID", "OUTBOX_INTERVAL_MS", "SEED_FILE", "LOG_LEVEL", "ORDER_BASE_URL"} {
		t.Setenv(k, "")
	}

	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", c.Port)
	assert.Equal(t, StoreMemory, c.Store)
	assert.Equal(t, 2500*time.Millisecond, c.RequestTimeout)
	assert.Equal(t, 2*time.Second, c.NotifyTimeout)
	assert.Equal(t, time.Second, c.OutboxInterval)
	assert.Equal(t, "coffee.orders", c.KafkaTopic)
	assert.False(t, c.KafkaEnabled())
	assert.Equal(t, "http://localhost:8080", c.OrderBaseURL)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("STORE", "Postgres")
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/coffee")
	t.Setenv("KAFKA_BROKERS", " kafka-1:9092, ,kafka-2:9092 ")
	t.Setenv("NOTIFY_TIMEOUT_MS", "150")
	t.Setenv("ORDER_BASE_URL", "http://orders:8080/")

	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, StorePostgres, c.Store)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, c.KafkaBrokers)
	assert.True(t, c.KafkaEnabled())
	assert.Equal(t, 150*time.Millisecond, c.NotifyTimeout)
	assert.Equal(t, "http://orders:8080", c.OrderBaseURL)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"postgres without url", map[string]string{"STORE": "postgres", "DATABASE_URL": ""}},
		{"unknown store", map[string]string{"STORE": "redis"}},
		{"bad timeout", map[string]string{"STORE": "memory", "REQUEST_TIMEOUT_MS": "soon"}},
		{"zero interval", map[string]string{"STORE": "memory", "OUTBOX_INTERVAL_MS": "0"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
