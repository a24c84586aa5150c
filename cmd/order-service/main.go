package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"coffee-eshop-go/internal/basket"
	"coffee-eshop-go/internal/catalog"
	"coffee-eshop-go/internal/config"
	"coffee-eshop-go/internal/httpapi"
	"coffee-eshop-go/internal/notify"
	"coffee-eshop-go/internal/order/checkout"
	"coffee-eshop-go/internal/order/tx"
	"coffee-eshop-go/internal/store/memory"
	"coffee-eshop-go/internal/store/postgres"
	"coffee-eshop-go/pkg/kafka"
	"coffee-eshop-go/pkg/logging"
	"coffee-eshop-go/pkg/metrics"
	"coffee-eshop-go/pkg/outbox"
)

type backend struct {
	uow     tx.UnitOfWork
	journal tx.Journal
	outbox  outbox.Store
	health  func(ctx context.Context) error
	close   func()
}

func openBackend(ctx context.Context, cfg config.Config, seed catalog.Seed) (backend, error) {
	if cfg.Store == config.StoreMemory {
		store := memory.New(seed)
		return backend{uow: store, journal: memory.NewJournal(), outbox: outbox.NewMemStore(), close: func() {}}, nil
	}

	openCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	db, err := postgres.Open(openCtx, cfg.DatabaseURL)
	if err != nil {
		return backend{}, err
	}
	if err := db.Migrate(openCtx); err != nil {
		db.Close()
		return backend{}, err
	}
	if err := db.Seed(openCtx, seed); err != nil {
		db.Close()
		return backend{}, err
	}
	return backend{
		uow:     db,
		journal: postgres.NewJournal(db),
		outbox:  outbox.NewPGStore(db.Pool()),
		health:  db.Ping,
		close:   db.Close,
	}, nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	logger, err := logging.New("order-service", cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Error(logging.Fields{Message: "order-service stopped"}, err)
		_ = logger.Sync()
		log.Fatal(err)
	}
}

func run(cfg config.Config, logger *logging.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	seed, err := catalog.Load(cfg.SeedFile)
	if err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	be, err := openBackend(ctx, cfg, seed)
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}
	defer be.close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	notifiers := notify.Multi{notify.NewLogNotifier(logger)}
	if cfg.KafkaEnabled() {
		producer, err := kafka.NewClient(cfg.KafkaBrokers).NewProducer()
		if err != nil {
			return err
		}
		defer producer.Close()
		notifiers = append(notifiers, notify.NewKafkaNotifier(producer, cfg.KafkaTopic, be.outbox))

		relay := outbox.NewRelay(be.outbox, producer, cfg.OutboxInterval, logger)
		go relay.Run(ctx)
	}

	checkoutSvc := checkout.NewService(be.uow, notifiers,
		checkout.WithJournal(be.journal),
		checkout.WithLogger(logger),
		checkout.WithMetrics(metrics.NewCheckoutMetrics(reg)),
		checkout.WithNotifyTimeout(cfg.NotifyTimeout),
	)

	gin.SetMode(gin.ReleaseMode)
	router := httpapi.NewRouter(httpapi.Deps{
		UoW:            be.uow,
		Basket:         basket.NewService(be.uow, logger),
		Checkout:       checkoutSvc,
		Health:         be.health,
		Metrics:        metrics.NewServerMetrics(reg, "order_service"),
		Gatherer:       reg,
		Log:            logger,
		RequestTimeout: cfg.RequestTimeout,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Log(logging.Fields{Status: "listening", Message: fmt.Sprintf("order-service on :%s (STORE=%s, kafka=%v)", cfg.Port, cfg.Store, cfg.KafkaEnabled())})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
