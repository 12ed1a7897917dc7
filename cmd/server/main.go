package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rentamate/booking-backend/internal/config"
	"github.com/rentamate/booking-backend/internal/database"
	"github.com/rentamate/booking-backend/internal/handlers"
	"github.com/rentamate/booking-backend/internal/lock"
	"github.com/rentamate/booking-backend/internal/metrics"
	"github.com/rentamate/booking-backend/internal/services"
	"github.com/rentamate/booking-backend/pkg/jwt"
	"github.com/rentamate/booking-backend/pkg/validator"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

var (
	version   = "1.0.0"
	buildTime = "unknown"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	logger.Info("Starting Rent-a-Mate booking backend")
	logger.Infof("Version: %s, Build Time: %s", version, buildTime)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	logLevel, err := logrus.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		logger.Warn("Invalid log level, using INFO")
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	if err := validator.RegisterWithGin(); err != nil {
		logger.Fatalf("Failed to register validators: %v", err)
	}

	if err := run(cfg, logger); err != nil {
		logger.Fatalf("Server stopped: %v", err)
	}
	logger.Info("Server exited successfully")
}

func run(cfg *config.Config, logger *logrus.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("Connecting to database...")
	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()
	logger.Info("Database connection established")

	if cfg.Database.AutoMigrate {
		logger.Info("Applying schema migrations...")
		if err := database.RunMigrations(db.DB.DB); err != nil {
			return err
		}
	}

	var locker lock.Locker = lock.NoopLocker{}
	if cfg.Redis.URL != "" {
		client, err := lock.NewRedisClient(ctx, cfg.Redis.URL)
		if err != nil {
			return err
		}
		defer client.Close()
		locker = lock.NewRedisLocker(client, "booking:webhook", cfg.Redis.LockTTL)
		logger.Info("Redis webhook guard enabled")
	} else {
		logger.Info("REDIS_URL not set, webhook guard disabled (database dedup only)")
	}

	m := metrics.New()

	runner := database.NewTxRunner(db, cfg.Database.MaxTxRetries, logger)
	runner.OnRetry(m.TxRetriesTotal.Inc)

	bookingRepo := database.NewBookingRepository(db)
	profileRepo := database.NewMateProfileRepository(db)
	eventRepo := database.NewPaymentEventRepository(db, logger)
	userRepo := database.NewUserRepository(db)

	gateway := services.NewStripeService(&cfg.Payment, logger)
	if !gateway.IsConfigured() {
		return fmt.Errorf("stripe gateway is not configured")
	}

	detector := services.NewConflictDetector(bookingRepo, profileRepo)
	ratings := services.NewRatingService(runner, bookingRepo, profileRepo, logger, m)
	bookings := services.NewBookingService(runner, bookingRepo, profileRepo, detector, gateway, ratings, cfg, logger, m)
	reconciler := services.NewPaymentReconciler(gateway, runner, eventRepo, bookings, locker, logger, m)
	profiles := services.NewMateProfileService(profileRepo, userRepo, logger)
	logger.WithField("expiry_policy", cfg.Booking.ExpiryPolicy).Info("Services initialized")

	cronService := services.NewCronService(bookings, cfg.Booking.CompletionSchedule, logger)
	if err := cronService.Start(); err != nil {
		return err
	}
	defer cronService.Stop()

	router := handlers.NewRouter(handlers.RouterDeps{
		Config:   cfg,
		Logger:   logger,
		Metrics:  m,
		Gatherer: prometheus.DefaultGatherer,
		JWT:      jwt.NewService(cfg.JWT.Secret, cfg.JWT.AccessTokenExpiry),
		Bookings: handlers.NewBookingHandler(bookings, logger),
		Profiles: handlers.NewMateProfileHandler(profiles, logger),
		Webhooks: handlers.NewWebhookHandler(reconciler, logger),
		Health:   handlers.NewHealthHandler(db),
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Infof("Server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}
