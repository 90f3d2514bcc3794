// File: commerce-backend/cmd/main.go
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"commerce-backend/internal/api"
	"commerce-backend/internal/auth"
	"commerce-backend/internal/config"
	"commerce-backend/internal/events"
	"commerce-backend/internal/gateway"
	"commerce-backend/internal/service/account"
	"commerce-backend/internal/service/cart"
	"commerce-backend/internal/service/checkout"
	"commerce-backend/internal/store"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
)

const (
	defaultAppName = "CommerceBackend" // App name for logger
)

func main() {
	if err := godotenv.Load(); err != nil {
		// The application can still proceed if environment variables are set
		// in other ways, so a missing .env file is not fatal.
		log.Println("INFO: No .env file found or failed to load, relying on system environment")
	}
	logger := log.New(os.Stdout, fmt.Sprintf("[%s] ", defaultAppName), log.LstdFlags|log.Lshortfile|log.Lmicroseconds)
	logger.Println("INFO: Starting service...")

	// --- Configuration Loading ---
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("FATAL: Error loading configuration: %v", err)
	}
	logger.Printf("INFO: Configuration loaded for APP_ENV: %s, LogLevel: %s", cfg.AppEnv, cfg.LogLevel)

	// --- Database Connection ---
	db, err := sql.Open("postgres", cfg.Postgres.DSN())
	if err != nil {
		logger.Fatalf("FATAL: Failed to initialize database connection: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Printf("WARN: Error closing database on deferred cleanup: %v", err)
		}
	}()

	if err := db.PingContext(context.Background()); err != nil {
		logger.Fatalf("FATAL: Failed to ping database: %v", err)
	}
	logger.Println("INFO: Database connection established successfully.")
	dbStore := store.NewPostgresStore(db)

	// --- Redis Connection (revoked access tokens) ---
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		logger.Fatalf("FATAL: Failed to ping redis: %v", err)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Printf("WARN: Error closing redis client: %v", err)
		}
	}()
	logger.Println("INFO: Redis connection established successfully.")

	// --- Auth & Events ---
	tokenManager := auth.NewManager(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.AccessTokenTTL)
	revocations := auth.NewRevocationStore(redisClient)

	publisher := events.NewPublisher()
	emailSender := gateway.ConsoleEmailSender{}
	publisher.Register("client.created", func(ctx context.Context, event events.Event) {
		created, ok := event.(events.ClientCreated)
		if !ok {
			return
		}
		link := cfg.BaseURL + cfg.Checkout.VerificationLinkBasePath + "?token=" + created.VerificationToken
		name := created.Client.FirstName + " " + created.Client.LastName
		if err := emailSender.SendVerificationEmail(ctx, created.Client.Email, name, link); err != nil {
			logger.Printf("WARN: Failed to send verification email to %s: %v", created.Client.Email, err)
		}
	})
	publisher.Register("order.placed", func(_ context.Context, event events.Event) {
		placed, ok := event.(events.OrderPlaced)
		if !ok {
			return
		}
		logger.Printf("INFO: Order %s placed by client %d, total %.2f", placed.Order.Number, placed.Order.ClientID, placed.Order.GrandTotal)
	})

	// --- Services ---
	accountService := account.NewService(dbStore, tokenManager, revocations, publisher, cfg.Checkout.VerificationTokenTTL, cfg.JWT.RefreshTokenTTL)
	cartService := cart.NewService(dbStore)
	checkoutService := checkout.NewService(dbStore, gateway.NewMockGateway(), publisher, cfg.Checkout.ShippingFee)

	// --- Initialize API Handler ---
	httpAPIHandler := api.NewHTTPHandler(
		dbStore, dbStore, dbStore, dbStore, dbStore,
		accountService, cartService, checkoutService,
		tokenManager, revocations,
	)

	// --- Setup & Start HTTP Server ---
	httpRouter := chi.NewRouter()
	setupBaseMiddleware(httpRouter, logger, cfg.Cors.AllowedOrigin)
	registerHealthCheck(httpRouter, logger, db, redisClient)
	httpAPIHandler.RegisterRoutes(httpRouter)

	httpServer := &http.Server{
		Addr:         ":" + cfg.HttpServer.Port,
		Handler:      httpRouter,
		ReadTimeout:  cfg.HttpServer.TimeoutRead,
		WriteTimeout: cfg.HttpServer.TimeoutWrite,
		IdleTimeout:  cfg.HttpServer.TimeoutIdle,
	}

	go func() {
		logger.Printf("INFO: HTTP server listening on port %s", cfg.HttpServer.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("FATAL: HTTP server ListenAndServe error: %v", err)
		}
		logger.Println("INFO: HTTP server has stopped.")
	}()

	// --- Graceful Shutdown ---
	shutdownComplete := make(chan struct{})
	go waitForShutdown(logger, httpServer, shutdownComplete)

	<-shutdownComplete
	logger.Println("INFO: Service shutdown sequence finished.")
}

func setupBaseMiddleware(router *chi.Mux, logger *log.Logger, allowedOrigin string) {
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{allowedOrigin},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	logger.Println("INFO: Base HTTP middleware registered.")
}

func registerHealthCheck(router *chi.Mux, logger *log.Logger, db *sql.DB, redisClient *redis.Client) {
	healthPath := "/api/v1/healthz"
	router.Get(healthPath, func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		dbStatus := "healthy"
		if err := db.PingContext(ctx); err != nil {
			dbStatus = "unhealthy"
			logger.Printf("WARN: Health check DB ping failed: %v", err)
		}
		redisStatus := "healthy"
		if err := redisClient.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
			logger.Printf("WARN: Health check redis ping failed: %v", err)
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK) // Always 200, but payload indicates detailed status
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":      "healthy",
			"serviceName": defaultAppName,
			"timestamp":   time.Now().UTC().Format(time.RFC3339),
			"database":    dbStatus,
			"redis":       redisStatus,
		})
	})
	logger.Printf("INFO: HTTP health check registered at %s", healthPath)
}

func waitForShutdown(
	logger *log.Logger,
	httpServer *http.Server,
	shutdownComplete chan struct{},
) {
	defer close(shutdownComplete)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	receivedSignal := <-sigChan
	logger.Printf("INFO: Received signal: %s. Starting graceful shutdown...", receivedSignal)

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	logger.Println("INFO: Attempting to gracefully shut down HTTP server...")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Printf("WARN: HTTP server graceful shutdown failed: %v", err)
	} else {
		logger.Println("INFO: HTTP server gracefully shut down.")
	}

	logger.Println("INFO: Graceful shutdown sequence completed.")
}
