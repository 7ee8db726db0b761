package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"NovaRamp/internal/chain"
	"NovaRamp/internal/config"
	"NovaRamp/internal/db"
	"NovaRamp/internal/events"
	"NovaRamp/internal/logging"
	"NovaRamp/internal/metrics"
	"NovaRamp/internal/services"
	"NovaRamp/internal/worker"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
)

type options struct {
	Config string `short:"c" long:"config" description:"path to config.yaml"`
}

func main() {
	var opts options
	if _, err := flags.Parse(&opts); err != nil {
		os.Exit(2)
	}
	_ = godotenv.Load()

	cfg, err := config.Load(opts.Config)
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}
	logger, closer, err := logging.Setup(logging.Options{
		Level:    cfg.Log.Level,
		Format:   cfg.Log.Format,
		File:     cfg.Log.File,
		MaxKB:    cfg.Log.MaxKB,
		MaxRolls: cfg.Log.MaxRolls,
	})
	if err != nil {
		slog.Error("logging setup failed", "err", err)
		os.Exit(1)
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, release, err := db.OpenRepository(ctx, cfg, logger)
	if err != nil {
		logger.Error("store open failed", "err", err)
		os.Exit(1)
	}
	defer release()

	met := metrics.New(prometheus.NewRegistry())
	if cfg.Worker.MetricsAddr != "" {
		metricsServer := &http.Server{Addr: cfg.Worker.MetricsAddr, Handler: met.Handler(), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			logger.Info("worker metrics listening", "addr", cfg.Worker.MetricsAddr)
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", "err", err)
			}
		}()
		defer metricsServer.Close()
	}

	var publisher events.Publisher = events.Nop{}
	if len(cfg.Kafka.Brokers) > 0 {
		kp := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.OrderTopic)
		defer kp.Close()
		publisher = kp
	}

	w := &worker.Worker{
		SweepInterval:  time.Duration(cfg.Worker.SweepIntervalSeconds) * time.Second,
		HealthInterval: time.Duration(cfg.Worker.HealthIntervalSeconds) * time.Second,
		Logger:         logger,
	}
	if cfg.Orders.TTLMinutes > 0 {
		w.Orders = services.OrderService{
			Store:   repo,
			Events:  publisher,
			Metrics: met,
			Logger:  logger,
			TTL:     time.Duration(cfg.Orders.TTLMinutes) * time.Minute,
		}
	} else {
		logger.Info("order expiry disabled, orders.ttl_minutes is 0")
	}

	endpoints, err := chain.NewEndpoints(cfg.Chains.Networks)
	if err != nil {
		logger.Error("chain endpoints invalid", "err", err)
		os.Exit(1)
	}
	if len(endpoints) > 0 {
		w.Health = &chain.Checker{
			Endpoints:     endpoints,
			SlowThreshold: time.Duration(cfg.Chains.SlowThresholdMs) * time.Millisecond,
			Metrics:       met,
			Logger:        logger,
		}
	}

	if err := w.Run(ctx); err != nil {
		logger.Error("worker exited", "err", err)
		os.Exit(1)
	}
}
