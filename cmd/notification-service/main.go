package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"coffee-eshop-go/internal/config"
	"coffee-eshop-go/internal/notify"
	"coffee-eshop-go/internal/store/postgres"
	"coffee-eshop-go/pkg/kafka"
	"coffee-eshop-go/pkg/logging"
	"coffee-eshop-go/pkg/metrics"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if !cfg.KafkaEnabled() {
		log.Fatal("KAFKA_BROKERS is required")
	}
	logger, err := logging.New("notification-service", cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Error(logging.Fields{Message: "notification-service stopped"}, err)
		_ = logger.Sync()
		log.Fatal(err)
	}
}

func run(cfg config.Config, logger *logging.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		inbox  notify.Inbox = notify.NewMemInbox()
		health              = func(context.Context) error { return nil }
	)
	if cfg.Store == config.StorePostgres {
		openCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		db, err := postgres.Open(openCtx, cfg.DatabaseURL)
		if err == nil {
			err = db.Migrate(openCtx)
		}
		cancel()
		if err != nil {
			return fmt.Errorf("store: %w", err)
		}
		defer db.Close()
		inbox = postgres.NewInbox(db)
		health = db.Ping
	}

	reader := kafka.NewClient(cfg.KafkaBrokers).NewReader(cfg.KafkaTopic, cfg.KafkaGroupID)
	defer reader.Close()
	consumer := notify.NewConsumer(inbox, logger)
	done := make(chan struct{})
	go func() {
		consumer.Run(ctx, reader, 2*time.Second)
		close(done)
	}()

	reg := prometheus.NewRegistry()
	srvMetrics := metrics.NewServerMetrics(reg, "notification_service")

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.GET("/health", func(c *gin.Context) {
		start := time.Now()
		code, status := http.StatusOK, "ok"
		if err := health(c.Request.Context()); err != nil {
			code, status = http.StatusServiceUnavailable, "db_error"
		}
		c.JSON(code, gin.H{"status": status})
		srvMetrics.Requests.WithLabelValues("health", strconv.Itoa(code)).Inc()
		srvMetrics.LatencyMS.WithLabelValues("health").Observe(float64(time.Since(start).Milliseconds()))
	})
	router.GET("/metrics", gin.WrapH(metrics.Handler(reg)))

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: router, ReadHeaderTimeout: 5 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		logger.Log(logging.Fields{Status: "listening", Message: fmt.Sprintf("notification-service on :%s (topic=%s)", cfg.Port, cfg.KafkaTopic)})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		stop()
		<-done
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	<-done
	return err
}
