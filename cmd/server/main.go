package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"carpool/internal/app"
	"carpool/internal/config"
	"carpool/internal/handler"
	internalRedis "carpool/internal/redis"
	"carpool/internal/repository/postgres"
	"carpool/internal/service"
)

func main() {
	// Load configuration.
	cfg := config.Load()
	logger := app.NewLogger(cfg.Log)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize New Relic FIRST (before database so we can instrument DB).
	var nrApp *newrelic.Application
	var err error
	if cfg.NewRelic.Enabled && cfg.NewRelic.LicenseKey != "" {
		nrApp, err = newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.NewRelic.AppName),
			newrelic.ConfigLicense(cfg.NewRelic.LicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			logger.WithError(err).Warn("failed to initialize New Relic")
		} else {
			logger.WithField("app", cfg.NewRelic.AppName).Info("New Relic enabled")
		}
	}

	// Initialize database with New Relic instrumentation.
	db, err := app.NewDatabase(ctx, cfg.Database, nrApp, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to database")
	}
	defer db.Close()
	logger.Info("connected to PostgreSQL")

	// Redis is optional: without it there is no read cache, no sweep lease
	// and no idempotent replay.
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = app.NewRedisClient(ctx, cfg.Redis, nrApp)
		if err != nil {
			logger.WithError(err).Fatal("failed to connect to redis")
		}
		defer redisClient.Close()
		logger.Info("connected to Redis")
	}

	// Notifications go to RabbitMQ when configured, otherwise to the log.
	var publisher service.Publisher = service.NewLogPublisher(logger)
	if cfg.RabbitMQ.URL != "" {
		rabbitPublisher, conn, err := app.NewRabbitPublisher(cfg.RabbitMQ, logger)
		if err != nil {
			logger.WithError(err).Fatal("failed to connect to rabbitmq")
		}
		defer conn.Close()
		defer rabbitPublisher.Close()
		publisher = rabbitPublisher
		logger.WithField("exchange", cfg.RabbitMQ.Exchange).Info("connected to RabbitMQ")
	}

	notificationService := service.NewNotificationService(publisher, logger, cfg.Notification.BufferSize, cfg.Notification.PublishTimeout)
	notificationService.Start()

	// Wire dependencies.
	server, sweeper := wireServer(db, redisClient, nrApp, notificationService, logger, cfg)

	runCtx, stopRun := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	if sweeper != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sweeper.Run(runCtx)
		}()
		logger.WithField("interval", cfg.Sweeper.Interval).Info("lifecycle sweeper started")
	}

	// Start server in goroutine.
	go func() {
		logger.WithField("port", cfg.Server.Port).Info("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("server error")
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("server forced to shutdown")
	}

	stopRun()
	wg.Wait()

	// Drain queued notifications before the publisher closes.
	notificationService.Close()

	if nrApp != nil {
		nrApp.Shutdown(5 * time.Second)
	}

	logger.Info("server exited")
}

// wireServer wires all dependencies and returns the HTTP server and, when
// enabled, the lifecycle sweeper.
func wireServer(
	db *sql.DB,
	redisClient *redis.Client,
	nrApp *newrelic.Application,
	notificationService *service.NotificationService,
	logger *logrus.Logger,
	cfg *config.Config,
) (*http.Server, *service.Sweeper) {
	// Initialize Redis stores.
	var rideCache internalRedis.RideCacheInterface
	var leaseStore internalRedis.LeaseStoreInterface
	if redisClient != nil {
		rideCache = internalRedis.NewCacheStore(redisClient)
		leaseStore = internalRedis.NewLockStore(redisClient)
	}

	// Initialize repositories.
	store := postgres.NewStore(db)
	rideRepo := postgres.NewRideRepository(db)
	bookingRepo := postgres.NewBookingRepository(db)
	paymentRepo := postgres.NewPaymentRepository(db)
	profileRepo := postgres.NewProfileRepository(db)
	vehicleRepo := postgres.NewVehicleRepository(db)
	locationRepo := postgres.NewLocationRepository(db)

	// Initialize services.
	ledger := service.NewLedger(logger)
	gateway := service.NewStubGateway()
	rideService := service.NewRideService(store, rideRepo, bookingRepo, vehicleRepo, locationRepo, ledger, rideCache, notificationService, logger)
	reservationService := service.NewReservationService(store, rideRepo, bookingRepo, ledger, gateway, rideCache, notificationService, logger)
	paymentService := service.NewPaymentService(paymentRepo, bookingRepo)
	profileService := service.NewProfileService(profileRepo)

	var sweeper *service.Sweeper
	if cfg.Sweeper.Enabled {
		opts := []service.SweeperOption{service.WithSweeperNewRelic(nrApp)}
		if leaseStore != nil {
			opts = append(opts, service.WithSweeperLease(leaseStore, cfg.Sweeper.LeaseTTL))
		}
		if rideCache != nil {
			opts = append(opts, service.WithSweeperCache(rideCache))
		}
		sweeper = service.NewSweeper(store, cfg.Sweeper.Interval, logger.WithField("component", "sweeper"), opts...)
	}

	// Initialize handlers.
	rideHandler := handler.NewRideHandler(rideService, logger)
	bookingHandler := handler.NewBookingHandler(reservationService, logger)
	paymentHandler := handler.NewPaymentHandler(paymentService, logger)
	profileHandler := handler.NewProfileHandler(profileService, logger)

	// Create router.
	router := app.NewRouter(app.RouterDeps{
		RideHandler:        rideHandler,
		BookingHandler:     bookingHandler,
		PaymentHandler:     paymentHandler,
		ProfileHandler:     profileHandler,
		RedisClient:        redisClient,
		NewRelicApp:        nrApp,
		Logger:             logger,
		JWTSecret:          cfg.Auth.JWTSecret,
		CORSAllowedOrigins: cfg.Server.CORSAllowedOrigins,
	})

	// Create HTTP server.
	return &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, sweeper
}
