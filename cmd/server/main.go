package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bumikarya/contact-api/internal/config"
	"github.com/bumikarya/contact-api/internal/database"
	"github.com/bumikarya/contact-api/internal/handlers"
	"github.com/bumikarya/contact-api/internal/mailer"
	"github.com/bumikarya/contact-api/internal/ratelimit"
	"github.com/bumikarya/contact-api/internal/retention"
	"github.com/bumikarya/contact-api/internal/seclog"
	"github.com/bumikarya/contact-api/internal/session"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

func main() {
	_ = godotenv.Load()

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg := config.Load()

	db, err := database.NewPostgresDB(logger, database.PostgresConfig{
		User:     cfg.PostgresUser,
		Password: cfg.PostgresPassword,
		Host:     cfg.PostgresHost,
		Port:     cfg.PostgresPort,
		DBName:   cfg.PostgresDatabase,
		SSLMode:  cfg.PostgresSSLMode,
	})
	if err != nil {
		logger.WithError(err).Fatal("Database setup failed")
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		logger.WithError(err).Fatal("Redis connection failed")
	}

	audit, err := seclog.New(logger, db, cfg.SecurityLogFile)
	if err != nil {
		logger.WithError(err).Fatal("Security log setup failed")
	}
	defer audit.Close()

	sessions := session.NewManager(logger, session.NewRedisStore(redisClient), cfg.CSRFTokenTTL, cfg.SessionTTL)
	limiter := ratelimit.NewLimiter(ratelimit.NewPostgresStore(db), cfg.RateLimitMaxAttempts, cfg.RateLimitWindow, cfg.MinSubmissionGap)
	notifier := mailer.NewSendGridNotifier(logger, cfg)

	contactHandler := handlers.NewContactHandler(logger, cfg, sessions, limiter, notifier, audit)

	r := mux.NewRouter()
	r.Use(handlers.SecurityHeadersMiddleware(cfg))
	r.Use(handlers.LoggingMiddleware(logger, db))
	r.Use(handlers.RateLimitMiddleware(cfg))
	handlers.RegisterRoutes(r, contactHandler)

	purgerCtx, cancelPurger := context.WithCancel(context.Background())
	defer cancelPurger()
	go retention.NewPurger(logger, db, cfg).Start(purgerCtx)

	server := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, syscall.SIGINT, syscall.SIGTERM)
		<-sigint

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.WithError(err).Error("Server shutdown error")
		}
	}()

	logger.WithField("addr", server.Addr).Info("Starting server")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.WithError(err).Fatal("Server failed")
	}
}
