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

	"NovaRamp/internal/auth"
	"NovaRamp/internal/chain"
	"NovaRamp/internal/config"
	"NovaRamp/internal/db"
	"NovaRamp/internal/events"
	internalhttp "NovaRamp/internal/http"
	"NovaRamp/internal/logging"
	"NovaRamp/internal/metrics"
	"NovaRamp/internal/pricing"
	"NovaRamp/internal/proxy"
	"NovaRamp/internal/services"
	"NovaRamp/internal/zktls"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
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

	if err := run(cfg, logger); err != nil {
		logger.Error("api exited", "err", err)
		closer.Close()
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, release, err := db.OpenRepository(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer release()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	met := metrics.New(reg)

	verifier, err := newVerifier(cfg, logger)
	if err != nil {
		return err
	}

	hub := events.NewHub(logger, cfg.Server.AllowedOrigins)
	publishers := events.Multi{hub}
	if len(cfg.Kafka.Brokers) > 0 {
		kp := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.OrderTopic)
		defer kp.Close()
		publishers = append(publishers, kp)
		logger.Info("publishing order events to kafka", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.OrderTopic)
	}

	proofs, err := newProofStore(ctx, cfg)
	if err != nil {
		return err
	}
	simOpts := zktls.Options{
		Installed:         cfg.ZKTLS.Installed,
		Seed:              cfg.ZKTLS.Seed,
		ConnectDelay:      millis(cfg.ZKTLS.ConnectDelayMs),
		AuthenticateDelay: millis(cfg.ZKTLS.AuthenticateDelayMs),
		MetadataDelay:     millis(cfg.ZKTLS.MetadataDelayMs),
		ProofDelay:        millis(cfg.ZKTLS.ProofDelayMs),
	}
	extensions, err := zktls.NewRegistry(cfg.ZKTLS.MaxUsers, func(owner string) *zktls.Simulator {
		return zktls.NewSimulator(owner, simOpts, proofs)
	})
	if err != nil {
		return err
	}

	endpoints, err := chain.NewEndpoints(cfg.Chains.Networks)
	if err != nil {
		return err
	}
	checker := &chain.Checker{
		Endpoints:     endpoints,
		SlowThreshold: millis(cfg.Chains.SlowThresholdMs),
		Metrics:       met,
		Logger:        logger,
	}

	users := services.UserService{Store: repo, Logger: logger}
	makers := services.MakerService{
		Store:           repo,
		Metrics:         met,
		Logger:          logger,
		DefaultCurrency: cfg.Orders.DefaultCurrency,
	}
	if cfg.Dev.SeedDeposits {
		if _, err := makers.SeedDemo(ctx, users); err != nil {
			return err
		}
	}

	h := &internalhttp.Handler{
		Users: users,
		Quotes: services.QuoteService{
			Store:           repo,
			Pricing:         pricing.NewService(cfg.Pricing.ProtocolFeeRate),
			Metrics:         met,
			DefaultCurrency: cfg.Orders.DefaultCurrency,
		},
		Orders: services.OrderService{
			Store:           repo,
			Events:          publishers,
			Metrics:         met,
			Logger:          logger,
			DefaultChainID:  cfg.Orders.DefaultChainID,
			DefaultCurrency: cfg.Orders.DefaultCurrency,
			TTL:             time.Duration(cfg.Orders.TTLMinutes) * time.Minute,
		},
		Makers:     makers,
		Verifier:   verifier,
		Hub:        hub,
		Extensions: extensions,
		Chains:     checker,
		Logger:     logger,
	}
	srv := internalhttp.NewServer(h, internalhttp.Options{
		Auth:           auth.Middleware{Verifier: verifier, Logger: logger},
		Metrics:        met,
		Proxy:          proxy.New(cfg.Proxy.BaseURL, cfg.Proxy.APIKey, "/proxy", time.Duration(cfg.Proxy.TimeoutSeconds)*time.Second, logger),
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Logger:         logger,
	})

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("api listening", "addr", cfg.Server.Addr, "db_driver", cfg.DB.Driver)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	logger.Info("shutting down")
	return httpServer.Shutdown(shutdownCtx)
}

// newVerifier picks the static token table when one is configured, otherwise
// the remote verifier, and puts a TTL cache in front of either.
func newVerifier(cfg *config.Config, logger *slog.Logger) (auth.Verifier, error) {
	var next auth.Verifier
	if len(cfg.Auth.StaticTokens) > 0 {
		logger.Warn("using static auth tokens", "count", len(cfg.Auth.StaticTokens))
		next = auth.StaticVerifier(cfg.Auth.StaticTokens)
	} else {
		if cfg.Auth.VerifyURL == "" {
			return nil, errors.New("auth.verify_url or auth.static_tokens is required")
		}
		next = auth.NewHTTPVerifier(cfg.Auth.VerifyURL, cfg.Auth.AppID, cfg.Auth.AppSecret,
			time.Duration(cfg.Auth.TimeoutSeconds)*time.Second, logger)
	}
	return auth.NewCachedVerifier(next, cfg.Auth.CacheSize, time.Duration(cfg.Auth.CacheTTLSeconds)*time.Second)
}

func newProofStore(ctx context.Context, cfg *config.Config) (zktls.ProofStore, error) {
	s3cfg := cfg.Proofs.S3
	if s3cfg.Bucket == "" {
		return zktls.NewMemoryProofStore(), nil
	}
	return zktls.NewS3ProofStore(ctx, zktls.S3Options{
		Bucket:          s3cfg.Bucket,
		Prefix:          s3cfg.Prefix,
		Region:          s3cfg.Region,
		Endpoint:        s3cfg.Endpoint,
		AccessKeyID:     s3cfg.AccessKeyID,
		SecretAccessKey: s3cfg.SecretAccessKey,
	})
}

func millis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
