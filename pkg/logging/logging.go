package logging

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Fields struct {
	Service    string
	AttemptID  string
	ClientID   int64
	OrderID    int64
	ProductID  int64
	EventID    string
	Step       string
	Status     string
	DurationMS int64
	Message    string
}

type Logger struct {
	z       *zap.Logger
	service string
}

func New(service, level string) (*Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.RFC3339NanoTimeEncoder
	lvl, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return nil, err
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	z, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return Wrap(z, service), nil
}

// Wrap adapts an existing zap logger, e.g. an observer core in tests.
func Wrap(z *zap.Logger, service string) *Logger {
	return &Logger{z: z.With(zap.String("service", service)), service: service}
}

func NewNop() *Logger {
	return &Logger{z: zap.NewNop()}
}

func (l *Logger) Zap() *zap.Logger { return l.z }

func (l *Logger) Sync() error { return l.z.Sync() }

func (l *Logger) Log(f Fields) {
	l.z.Info(f.Message, f.zapFields()...)
}

func (l *Logger) Warn(f Fields, err error) {
	l.z.Warn(f.Message, append(f.zapFields(), zap.Error(err))...)
}

func (l *Logger) Error(f Fields, err error) {
	l.z.Error(f.Message, append(f.zapFields(), zap.Error(err))...)
}

// zapFields skips zero values so log lines stay short.
func (f Fields) zapFields() []zap.Field {
	out := make([]zap.Field, 0, 8)
	if f.Service != "" {
		out = append(out, zap.String("component", f.Service))
	}
	if f.AttemptID != "" {
		out = append(out, zap.String("attempt_id", f.AttemptID))
	}
	if f.ClientID != 0 {
		out = append(out, zap.Int64("client_id", f.ClientID))
	}
	if f.OrderID != 0 {
		out = append(out, zap.Int64("order_id", f.OrderID))
	}
	if f.ProductID != 0 {
		out = append(out, zap.Int64("product_id", f.ProductID))
	}
	if f.EventID != "" {
		out = append(out, zap.String("event_id", f.EventID))
	}
	if f.Step != "" {
		out = append(out, zap.String("step", f.Step))
	}
	if f.Status != "" {
		out = append(out, zap.String("status", f.Status))
	}
	if f.DurationMS != 0 {
		out = append(out, zap.Int64("duration_ms", f.DurationMS))
	}
	return out
}
