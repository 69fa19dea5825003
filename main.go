// main.go

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"bookstore-backend/auth"
	"bookstore-backend/cache"
	"bookstore-backend/config"
	"bookstore-backend/controllers"
	"bookstore-backend/feed"
	"bookstore-backend/imagehost"
	"bookstore-backend/mailer"
	"bookstore-backend/middlewares"
	"bookstore-backend/payment"
	"bookstore-backend/routes"
	"bookstore-backend/store"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

const maxBodyBytes = 5 << 20

func newLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.GinMode == gin.ReleaseMode {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (store.Store, error) {
	if strings.EqualFold(cfg.DBDriver, "memory") {
		logger.Warn("using in-memory store, data is lost on restart")
		return store.NewMemory(), nil
	}
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	s, err := store.ConnectMongo(connectCtx, cfg.MongoURL, cfg.MongoDB)
	if err != nil {
		return nil, err
	}
	logger.Info("connected to mongodb", "database", cfg.MongoDB)
	return s, nil
}

func openCache(ctx context.Context, cfg *config.Config, logger *slog.Logger) cache.Products {
	if cfg.RedisURL == "" {
		return cache.Noop{}
	}
	c, err := cache.NewRedis(ctx, cfg.RedisURL, cache.DefaultTTL, logger)
	if err != nil {
		logger.Warn("product cache disabled", "error", err)
		return cache.Noop{}
	}
	return c
}

func openImages(ctx context.Context, cfg *config.Config, logger *slog.Logger) (imagehost.Host, error) {
	if cfg.S3Bucket == "" {
		logger.Warn("S3_BUCKET not set, images are kept in memory")
		return imagehost.NewMemory(), nil
	}
	host, err := imagehost.NewS3FromEnv(ctx, cfg.S3Bucket, cfg.S3PublicURL)
	if err != nil {
		return nil, err
	}
	return host, nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger := newLogger(cfg)
	slog.SetDefault(logger)
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("store unavailable", "error", err)
		os.Exit(1)
	}

	images, err := openImages(ctx, cfg, logger)
	if err != nil {
		logger.Error("image host unavailable", "error", err)
		os.Exit(1)
	}

	var payments payment.Processor
	if cfg.StripeSecretKey != "" {
		payments = payment.NewStripe(cfg.StripeAPIURL, cfg.StripeSecretKey)
	} else {
		logger.Warn("STRIPE_SECRET_KEY not set, payments are not verified")
	}

	var mail mailer.Sender = mailer.Log{Logger: logger}
	if cfg.SMTPUser != "" {
		mail = mailer.NewSMTP(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.MailFrom)
	}

	hub := feed.NewHub(logger, cfg.CORSOrigins)
	go hub.Run(ctx)

	productCache := openCache(ctx, cfg, logger)

	controllers.RegisterValidators()
	h := controllers.New(controllers.Handler{
		Store:    db,
		Tokens:   auth.NewTokens(cfg.JWTSecret, cfg.JWTExpires, cfg.ActivationTokenTTL),
		Payments: payments,
		Images:   images,
		Mail:     mail,
		Cache:    productCache,
		Feed:     hub,
		Logger:   logger,
		Config:   cfg,
	})

	r := gin.New()
	r.Use(middlewares.Recovery(logger), middlewares.RequestLogger(logger))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "token"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(middlewares.BodyLimit(maxBodyBytes))
	routes.Register(r, h)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("server listening", "addr", srv.Addr, "mode", cfg.GinMode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", "error", err)
	}
	if err := db.Close(shutdownCtx); err != nil {
		logger.Error("closing store", "error", err)
	}
	if err := productCache.Close(); err != nil {
		logger.Error("closing product cache", "error", err)
	}
}
