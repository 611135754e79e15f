package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/rasyaandrean/order-service/internal/config"
	"github.com/rasyaandrean/order-service/internal/httpx"
	kafkax "github.com/rasyaandrean/order-service/internal/kafka"
	"github.com/rasyaandrean/order-service/internal/listener"
	"github.com/rasyaandrean/order-service/internal/metrics"
	"github.com/rasyaandrean/order-service/internal/orders"
	"github.com/rasyaandrean/order-service/internal/postgres"
	"github.com/rasyaandrean/order-service/internal/redisx"
	"github.com/rasyaandrean/order-service/internal/security"
)

func main() {
	_ = godotenv.Load()

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})))

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		slog.Error("db connect", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producer (shared across topics). It outlives ctx so consumers
	// draining during shutdown can still publish; Close() stops it.
	prod := kafkax.NewProducer(cfg.KafkaBrokers, 1024)
	prod.Start(context.Background())

	// Metrics + security log
	m := metrics.New()
	seclog := security.NewLog()
	seclog.SetObserver(func(ev security.Event) {
		m.SecurityEvents.Inc()
		m.SecurityEventsBySeverity.WithLabelValues(ev.Severity).Inc()
	})

	// Service & handler
	store := &orders.Repo{DB: db}
	cache := redisx.NewOrderCache(rdb, cfg.OrderCacheTTL)
	svc := orders.NewService(store, prod, cache, seclog, m, cfg.ServiceName)

	router := httpx.NewRouter()
	oh := &httpx.OrdersHandler{Service: svc}
	oh.Register(router)

	// Inbound fulfillment consumers
	l := &listener.Listener{Service: svc, Dedup: redisx.NewEventDedup(rdb, cfg.KafkaGroup)}
	var consumers sync.WaitGroup
	consume := func(topic string, h kafkax.Handler) {
		c := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.KafkaGroup, topic, 4)
		consumers.Add(1)
		go func() {
			defer consumers.Done()
			if err := c.Start(ctx, h); err != nil {
				slog.Error("consumer stopped", "topic", topic, "err", err)
			}
		}()
	}
	consume(orders.TopicPaymentCompleted, l.HandlePaymentCompleted)
	consume(orders.TopicInventoryReserved, l.HandleInventoryReserved)
	consume(orders.TopicShippingLabelCreated, l.HandleShippingLabelCreated)

	// Metrics endpoint on its own listener
	metricsSrv := &http.Server{Addr: cfg.MetricsAddr, Handler: m.Handler()}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics listen", "err", err)
		}
	}()

	// HTTP server
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}
	go func() {
		slog.Info("HTTP listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("listen", "err", err)
			os.Exit(1)
		}
	}()

	// wait signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	slog.Info("shutting down")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	_ = metricsSrv.Shutdown(ctx2)
	cancel()          // stop consumers
	consumers.Wait()  // in-flight handlers finish publishing
	prod.Close()      // close inbox -> flush & close writer
	prod.WaitClosed() // drain
}
