package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"leaf-kart/internal/auth"
	"leaf-kart/internal/config"
	"leaf-kart/internal/database"
	"leaf-kart/internal/events"
	"leaf-kart/internal/handler"
	"leaf-kart/internal/idempotency"
	"leaf-kart/internal/members"
	"leaf-kart/internal/payment"
	"leaf-kart/internal/pickup"
	"leaf-kart/internal/repository"
	"leaf-kart/internal/router"
	"leaf-kart/internal/service"

	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize logger
	logger := config.NewLogger(cfg.Logger)
	logger.Info().Msg("starting leaf-kart API server")

	// Create context for application lifecycle
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database connection pool
	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer pool.Close()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, pool, logger); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	// Initialize repositories
	productRepo := repository.NewProductRepository(pool, logger)
	orderRepo := repository.NewOrderRepository(pool, logger)
	cartRepo := repository.NewCartRepository(pool, logger)

	checker, err := newMemberChecker(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize member roster: %w", err)
	}
	defer checker.Close()

	idem, err := newIdempotencyStore(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize idempotency store: %w", err)
	}
	defer idem.Close()

	publisher, err := newPublisher(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize event publisher: %w", err)
	}
	defer publisher.Close()

	gateway := payment.NewClient(cfg.Payment, logger)
	verifier := payment.NewVerifier(gateway, cfg.Payment.Currency, cfg.Payment.PollAttempts, cfg.Payment.PollInterval, logger)

	// Initialize services
	productService := service.NewProductService(productRepo, logger)
	cartService := service.NewCartService(cartRepo, productService, logger)
	checkoutService := service.NewCheckoutService(service.CheckoutDeps{
		Orders:      orderRepo,
		Products:    productService,
		Carts:       cartRepo,
		Issuer:      pickup.NewIssuer(cfg.Pickup.CodeAttempts, logger),
		Gateway:     gateway,
		Verifier:    verifier,
		Members:     checker,
		Idempotency: idem,
		Publisher:   publisher,
	}, logger)
	pickupService := service.NewPickupService(orderRepo, publisher, logger)

	// Initialize router
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	mux := router.New(router.Handlers{
		Products: handler.NewProductHandler(productService, logger),
		Cart:     handler.NewCartHandler(cartService, logger),
		Orders:   handler.NewOrderHandler(checkoutService, logger),
		Payments: handler.NewPaymentHandler(checkoutService, cfg.Payment.WebhookSecret, logger),
		Pickup:   handler.NewPickupHandler(pickupService, logger),
	}, tokens, logger)

	// The write timeout covers the payment verification polling budget.
	writeTimeout := 15*time.Second + time.Duration(cfg.Payment.PollAttempts)*(cfg.Payment.PollInterval+cfg.Payment.Timeout)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: writeTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Channel to listen for errors from the server
	serverErrors := make(chan error, 1)

	// Start HTTP server in a goroutine
	go func() {
		logger.Info().
			Str("address", cfg.Server.Address()).
			Msg("HTTP server started")
		serverErrors <- server.ListenAndServe()
	}()

	// Channel to listen for interrupt signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a signal or an error
	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Info().
			Str("signal", sig.String()).
			Msg("shutdown signal received, starting graceful shutdown")

		// Create a context with timeout for shutdown
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		// Attempt graceful shutdown
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("failed to shutdown server gracefully")
			// Force close
			if closeErr := server.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("failed to close server")
			}
			return fmt.Errorf("server shutdown failed: %w", err)
		}

		logger.Info().Msg("server shutdown completed")
	}

	return nil
}

// newMemberChecker loads the member rosters, preferring S3 with a local
// fallback. With the gate disabled every authenticated customer may order.
func newMemberChecker(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (members.Checker, error) {
	if !cfg.Members.Enabled {
		logger.Info().Msg("members gate disabled, all authenticated customers may order")
		return members.NewOpenChecker(), nil
	}

	fileLoader := members.NewFileLoader(logger)
	var s3Loader members.Loader

	if cfg.S3.Enabled {
		loader, err := members.NewS3Loader(ctx, cfg.S3.Bucket, cfg.S3.Region, logger)
		if err != nil {
			logger.Warn().
				Err(err).
				Msg("failed to initialise S3 loader, falling back to local file system only")
		} else {
			s3Loader = loader
		}
	} else {
		logger.Info().Msg("using local file system for member rosters (S3 disabled)")
	}

	loader := members.NewFallbackLoader(s3Loader, fileLoader, cfg.S3.Prefix, s3Loader != nil, logger)
	return members.NewChecker(ctx, cfg.Members.FilePaths, loader, logger)
}

func newIdempotencyStore(cfg *config.Config, logger zerolog.Logger) (idempotency.Store, error) {
	if !cfg.Redis.Enabled {
		logger.Info().Msg("redis disabled, checkout retries are not deduplicated")
		return idempotency.NopStore{}, nil
	}
	return idempotency.NewRedisStore(cfg.Redis.Addr, cfg.Redis.PoolSize, cfg.Redis.IdempotencyTTL, logger)
}

func newPublisher(cfg *config.Config, logger zerolog.Logger) (events.Publisher, error) {
	if !cfg.RabbitMQ.Enabled {
		logger.Info().Msg("rabbitmq disabled, order events are dropped")
		return events.NopPublisher{}, nil
	}
	return events.NewRabbitMQPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange, logger)
}
