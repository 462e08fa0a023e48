package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"ms-orders/internal/auth"
	"ms-orders/internal/config"
	"ms-orders/internal/database/migrations"
	"ms-orders/internal/logger"
	"ms-orders/internal/notification"
	"ms-orders/internal/order"
	"ms-orders/internal/order/db"
	"ms-orders/internal/order/order_api"
	"ms-orders/internal/payment"
	"ms-orders/internal/ratelimit"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	log := logger.NewLogger()
	defer log.Close()

	ctx := context.Background()

	// --- PostgreSQL ---
	connector := pgdriver.NewConnector(pgdriver.WithDSN(cfg.Database.DSN))
	sqldb := sql.OpenDB(connector)
	defer sqldb.Close()

	sqldb.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.Database.MaxLifetime)

	if err := sqldb.PingContext(ctx); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("failed to connect to Postgres: %v", err))
	}
	bunDB := bun.NewDB(sqldb, pgdialect.New())

	runner := migrations.NewRunner(bunDB, migrations.DefaultOptions())
	if err := runner.MigrateUp(); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("migrations failed: %v", err))
	}

	// --- Redis ---
	redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Warn("REDIS", fmt.Sprintf("redis unavailable, rate limiting degraded: %v", err))
	}

	// --- Dependencies ---
	dbLayer := db.New(bunDB)
	gateway := payment.NewClient(cfg.Razorpay, log)
	emailer := notification.NewEmailSender(cfg.Email, log)

	var notifier order.Notifier
	if cfg.Kafka.Enabled {
		producer := notification.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.NotificationTopic, log)
		defer producer.Close()
		notifier = producer
	} else {
		notifier = notification.NewLogSink(log)
	}

	service := order.NewService(dbLayer, gateway, notifier, emailer, cfg.Checkout, log)
	handler := order_api.NewHandler(service, log)
	limiter := ratelimit.New(redisClient, log, 100, time.Minute)

	// --- Background reaper ---
	reaperCtx, stopReaper := context.WithCancel(ctx)
	defer stopReaper()
	go service.RunReaper(reaperCtx, 15*time.Minute)

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(limiter.Middleware)
	r.Use(auth.Middleware(cfg.Auth.JWTSecret))
	r.Mount("/order", handler.Routes())

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("SERVER", fmt.Sprintf("order service listening on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("SERVER", fmt.Sprintf("http server error: %v", err))
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("SERVER", "shutdown signal received")

	stopReaper()
	ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Fatal("SERVER", fmt.Sprintf("forced shutdown: %v", err))
	}
	log.Info("SERVER", "server exited gracefully")
}
