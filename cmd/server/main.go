package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"

	"ridedispatch/internal/app"
	"ridedispatch/internal/auth"
	"ridedispatch/internal/config"
	"ridedispatch/internal/events"
	"ridedispatch/internal/geo"
	"ridedispatch/internal/handler"
	internalRedis "ridedispatch/internal/redis"
	"ridedispatch/internal/repository/postgres"
	"ridedispatch/internal/service"
	"ridedispatch/internal/ws"
)

func main() {
	cfg := config.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// New Relic first so the database and Redis clients can be instrumented.
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
			log.Printf("failed to initialize New Relic: %v", err)
		} else {
			log.Printf("New Relic enabled: app=%s", cfg.NewRelic.AppName)
		}
	}

	db, err := app.NewDatabase(ctx, cfg.Database, nrApp)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Connected to PostgreSQL")

	redisClient, err := app.NewRedisClient(ctx, cfg.Redis, nrApp)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()
	log.Println("Connected to Redis")

	// The message broker is optional; without it lifecycle events are only
	// delivered over websockets and push.
	var publisher *events.Publisher
	if cfg.AMQP.Enabled {
		conn, err := app.NewAMQPConnection(cfg.AMQP)
		if err != nil {
			log.Fatalf("failed to connect to amqp broker: %v", err)
		}
		defer conn.Close()

		publisher, err = events.NewPublisher(conn)
		if err != nil {
			log.Fatalf("failed to open amqp channel: %v", err)
		}
		defer publisher.Close()
		log.Println("Connected to AMQP broker")
	}

	// Geo client with its provider request queue.
	queue := geo.NewRequestQueue(cfg.Geo.ThrottleInterval)
	defer queue.Close()

	geoClient := geo.NewClient(geo.Config{
		GeocodeURL:            cfg.Geo.GeocodeURL,
		ReverseURL:            cfg.Geo.ReverseURL,
		RouteEndpoints:        cfg.Geo.RouteEndpoints,
		UserAgent:             cfg.Geo.UserAgent,
		AllowInsecureTLSRetry: cfg.Geo.AllowInsecureTLSRetry,
	}, queue)

	// Redis stores.
	locationStore := internalRedis.NewLocationStore(redisClient)
	denylistStore := internalRedis.NewDenylistStore(redisClient)

	// Repositories.
	userRepo := postgres.NewUserRepository(db)
	driverRepo := postgres.NewDriverRepository(db)
	rideRepo := postgres.NewRideRepository(db)

	// Realtime hub.
	hub := ws.NewHub()

	// Services.
	discoveryService := service.NewDiscoveryService(locationStore)
	dispatchService := service.NewDispatchService(geoClient, discoveryService, locationStore, rideRepo, hub, publisher)
	dispatchService.Start()
	defer dispatchService.Stop()

	rideService := service.NewRideService(rideRepo, driverRepo, geoClient, dispatchService)
	pushService := service.NewPushService(service.LogPushSender{})

	gateway := service.NewHTTPGateway(cfg.Payment.BaseURL, cfg.Payment.KeyID, cfg.Payment.KeySecret)
	paymentService := service.NewPaymentService(rideRepo, gateway, cfg.Payment.KeyID, cfg.Payment.KeySecret, cfg.Payment.Currency)

	tokens := auth.NewTokens(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	// Handlers.
	rideHandler := handler.NewRideHandler(rideService, geoClient, hub, pushService, publisher)
	paymentHandler := handler.NewPaymentHandler(paymentService)
	mapsHandler := handler.NewMapsHandler(geoClient)
	driverHandler := handler.NewDriverHandler(driverRepo, locationStore, tokens)
	userHandler := handler.NewUserHandler(userRepo, tokens)
	authHandler := handler.NewAuthHandler(denylistStore, cfg.Auth.TokenTTL)
	wsHandler := handler.NewWSHandler(hub, locationStore)

	router := app.NewRouter(app.RouterDeps{
		RideHandler:    rideHandler,
		PaymentHandler: paymentHandler,
		MapsHandler:    mapsHandler,
		DriverHandler:  driverHandler,
		UserHandler:    userHandler,
		AuthHandler:    authHandler,
		WSHandler:      wsHandler,
		TokenParser:    tokens,
		Denylist:       denylistStore,
		RedisClient:    redisClient,
		NewRelicApp:    nrApp,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Printf("Starting server on port %s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
