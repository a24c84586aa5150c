package logging

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogEmitsOnlySetFields(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	l := Wrap(zap.New(core), "order-service")

	l.Log(Fields{AttemptID: "a-1", ClientID: 2, Step: "load_basket", Status: "BASKET_LOADED", Message: "checkout step"})

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "checkout step", entry.Message)
	ctx := entry.ContextMap()
	assert.Equal(t, "order-service", ctx["service"])
	assert.Equal(t, "a-1", ctx["attempt_id"])
	assert.Equal(t, int64(2), ctx["client_id"])
	assert.Equal(t, "BASKET_LOADED", ctx["status"])
	assert.NotContains(t, ctx, "order_id")
	assert.NotContains(t, ctx, "duration_ms")
}

func TestErrorAttachesCause(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	l := Wrap(zap.New(core), "notification-service")

	l.Error(Fields{OrderID: 7, Message: "notify failed"}, errors.New("broker down"))

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, zapcore.ErrorLevel, entry.Level)
	assert.Equal(t, "broker down", entry.ContextMap()["error"])
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New("x", "loud")
	assert.Error(t, err)

	l, err := New("x", "debug")
	require.NoError(t, err)
	assert.NotNil(t, l.Zap())
}
