package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/GG-IM/tiendas-mass-orders/internal/cache"
	"github.com/GG-IM/tiendas-mass-orders/internal/gateway"
	h "github.com/GG-IM/tiendas-mass-orders/internal/http"
	"github.com/GG-IM/tiendas-mass-orders/internal/pricing"
	"github.com/GG-IM/tiendas-mass-orders/internal/publisher"
	"github.com/GG-IM/tiendas-mass-orders/internal/repository"
	"github.com/GG-IM/tiendas-mass-orders/internal/service"
)

type Config struct {
	HTTPPort        string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
	TaxRate         decimal.Decimal
	KafkaBrokers    []string
	RedisAddr       string
	RedisPassword   string
	Gateway         gateway.Config
	DB              repository.Credentials
}

func loadConfig() *Config {
	taxRate, err := decimal.NewFromString(getEnv("TAX_RATE", "0.08"))
	if err != nil {
		log.Fatalf("invalid TAX_RATE: %v", err)
	}

	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		log.Fatalf("invalid DB_PORT: %v", err)
	}

	return &Config{
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		RequestTimeout:  30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		TaxRate:         taxRate,
		KafkaBrokers:    strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
		RedisAddr:       getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		Gateway: gateway.Config{
			AccessToken:   getEnv("MP_ACCESS_TOKEN", ""),
			BaseURL:       getEnv("MP_BASE_URL", "https://api.mercadopago.com"),
			PublicBaseURL: getEnv("PUBLIC_BASE_URL", ""),
			SuccessURL:    getEnv("MP_SUCCESS_URL", ""),
			FailureURL:    getEnv("MP_FAILURE_URL", ""),
			PendingURL:    getEnv("MP_PENDING_URL", ""),
			BinaryMode:    getEnv("MP_BINARY_MODE", "false") == "true",
			UseSandbox:    getEnv("MP_USE_SANDBOX", "true") == "true",
		},
		DB: repository.Credentials{
			Host:              getEnv("DB_HOST", "localhost"),
			Port:              dbPort,
			User:              getEnv("DB_USER", "postgres"),
			Password:          getEnv("DB_PASSWORD", "postgres"),
			DBName:            getEnv("DB_NAME", "ordersdb"),
			MigrationsDirPath: getEnv("MIGRATIONS_PATH", "internal/repository/migrations"),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	cfg := loadConfig()

	repo, err := repository.NewRepository(&cfg.DB)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer repo.Close()
	log.Printf("connected to postgres at %s:%d", cfg.DB.Host, cfg.DB.Port)

	if err := repo.RunMigrations(&cfg.DB); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})
	defer redisClient.Close()

	catalog := cache.NewCachedCatalog(repo, redisClient)
	gatewayClient := gateway.NewClient(cfg.Gateway)
	calc := pricing.NewCalculator(cfg.TaxRate)
	svc := service.NewOrderService(catalog, repo, gatewayClient, calc)

	ordersHandler := h.NewOrdersHandler(svc, catalog, cfg.RequestTimeout)
	paymentsHandler := h.NewPaymentsHandler(svc, cfg.Gateway.UseSandbox, cfg.RequestTimeout)

	pollerCtx, pollerCancel := context.WithCancel(context.Background())
	defer pollerCancel()

	outboxPoller := publisher.NewOutboxPoller(repo, cfg.KafkaBrokers...)
	defer outboxPoller.Close()
	go outboxPoller.Run(pollerCtx)

	// Setup router
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(h.RequestIDMiddleware)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.Compress(5))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/orders", func(r chi.Router) {
			r.Post("/", ordersHandler.CreateOrder)
			r.Get("/{id}", ordersHandler.GetOrder)
			r.Patch("/{id}/payment-status", ordersHandler.UpdatePaymentStatus)
		})
		r.Route("/payments", func(r chi.Router) {
			r.Post("/preference", paymentsHandler.CreatePreference)
			r.Post("/webhook", paymentsHandler.Webhook)
			r.Get("/webhook", paymentsHandler.Webhook)
			r.Post("/confirm", paymentsHandler.Confirm)
		})
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 40 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("orders service starting on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down server...")
	pollerCancel()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}

	log.Println("server exited")
}
