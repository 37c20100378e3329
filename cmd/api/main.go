package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/Harsh-GAMMARAYS/walmart-sparkathon/api/controllers"
	"github.com/Harsh-GAMMARAYS/walmart-sparkathon/api/routes"
	"github.com/Harsh-GAMMARAYS/walmart-sparkathon/internal/activity"
	"github.com/Harsh-GAMMARAYS/walmart-sparkathon/internal/assistant"
	"github.com/Harsh-GAMMARAYS/walmart-sparkathon/internal/auth"
	product "github.com/Harsh-GAMMARAYS/walmart-sparkathon/internal/products"
	"github.com/Harsh-GAMMARAYS/walmart-sparkathon/internal/users"
	"github.com/Harsh-GAMMARAYS/walmart-sparkathon/pkg/aiclient"
	"github.com/Harsh-GAMMARAYS/walmart-sparkathon/pkg/auth/session"
	"github.com/Harsh-GAMMARAYS/walmart-sparkathon/pkg/config"
	"github.com/Harsh-GAMMARAYS/walmart-sparkathon/pkg/db"
	"github.com/Harsh-GAMMARAYS/walmart-sparkathon/pkg/instance"
	"github.com/Harsh-GAMMARAYS/walmart-sparkathon/pkg/logger"
	"github.com/Harsh-GAMMARAYS/walmart-sparkathon/pkg/metrics"
	"github.com/Harsh-GAMMARAYS/walmart-sparkathon/pkg/migrate"
	"github.com/Harsh-GAMMARAYS/walmart-sparkathon/pkg/mongo"
	"github.com/Harsh-GAMMARAYS/walmart-sparkathon/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(ctx, "failed to create session manager", err)
		os.Exit(1)
	}

	healthChecks := map[string]controllers.Pinger{
		"db":    dbClient,
		"redis": redisClient,
	}

	userRepo := users.NewRepository(dbClient.DB())

	// The SQL store seeds each account's record inside the registration
	// transaction; the document store creates it on first write.
	var (
		activityRepo activity.Repository
		initializer  auth.ActivityInitializer
	)
	if cfg.Activity.UsesMongo() {
		mongoClient, err := mongo.New(ctx, cfg.Mongo, logg)
		if err != nil {
			logg.Error(ctx, "failed to bootstrap mongo", err)
			os.Exit(1)
		}
		defer func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), cfg.Mongo.Timeout)
			defer cancel()
			if err := mongoClient.Close(closeCtx); err != nil {
				logg.Error(context.Background(), "error closing mongo", err)
			}
		}()
		activityRepo = activity.NewMongoRepository(mongoClient.Collection(cfg.Mongo.Collection))
		healthChecks["mongo"] = mongoClient
	} else {
		gormActivity := activity.NewGormRepository(dbClient.DB())
		activityRepo = gormActivity
		initializer = gormActivity
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	activityService, err := activity.NewService(activity.ServiceParams{
		Repo:    activityRepo,
		Users:   userRepo,
		Logger:  logg,
		Metrics: metrics.NewActivityMetrics(registry),
		Config:  cfg.Activity,
	})
	if err != nil {
		logg.Error(ctx, "failed to create activity service", err)
		os.Exit(1)
	}

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       userRepo,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
		Logger:         logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create auth service", err)
		os.Exit(1)
	}

	registerService, err := auth.NewRegisterService(auth.RegisterServiceParams{
		DB:             dbClient,
		Activity:       initializer,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		logg.Error(ctx, "failed to create register service", err)
		os.Exit(1)
	}

	productService, err := product.NewService(product.ServiceParams{
		Repo:   product.NewRepository(dbClient.DB()),
		Cache:  redisClient,
		Logger: logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create product service", err)
		os.Exit(1)
	}

	aiClient, err := aiclient.NewClient(cfg.Assistant.BaseURL, aiclient.WithTimeout(cfg.Assistant.RequestTimeout))
	if err != nil {
		logg.Error(ctx, "failed to create ai client", err)
		os.Exit(1)
	}

	assistantService, err := assistant.NewService(assistant.ServiceParams{
		AI:       aiClient,
		Activity: activityService,
		Catalog:  productService,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create assistant service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx = logg.WithFields(ctx, map[string]any{
		"env":            cfg.App.Env,
		"addr":           addr,
		"activity_store": cfg.Activity.Store,
		"instance":       instance.GetID(),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, routes.Dependencies{
			Redis:          redisClient,
			Sessions:       sessionManager,
			Auth:           authService,
			Register:       registerService,
			Users:          userRepo,
			Activity:       activityService,
			Products:       productService,
			Assistant:      assistantService,
			HealthChecks:   healthChecks,
			Gatherer:       registry,
			RequestMetrics: metrics.NewHTTPMetrics(registry),
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logg.Info(ctx, "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(shutdownCtx, "graceful shutdown failed", err)
		}
	}
}
