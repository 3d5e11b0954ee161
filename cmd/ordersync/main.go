// Package main запускает HTTP-сервер сервиса синхронизации заказов.
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

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/ordersync/internal/auth"
	"github.com/mmeshcher/ordersync/internal/config"
	"github.com/mmeshcher/ordersync/internal/handler"
	"github.com/mmeshcher/ordersync/internal/middleware"
	"github.com/mmeshcher/ordersync/internal/repository"
	"github.com/mmeshcher/ordersync/internal/service"
	"github.com/mmeshcher/ordersync/internal/shopify"
	"github.com/mmeshcher/ordersync/internal/wms"
)

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}

	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	return zcfg.Build()
}

func main() {
	cfg, err := config.Parse()
	if err != nil {
		fmt.Fprintln(os.Stderr, "configuration error:", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger initialization error:", err)
		os.Exit(1)
	}
	defer logger.Sync()

	sugar := logger.Sugar()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, err := repository.NewPostgresRepository(ctx, cfg.DatabaseURI)
	if err != nil {
		sugar.Fatalw("database initialization error", "error", err.Error())
	}

	// Интерфейс OrderSource остаётся nil, если витрина не настроена.
	var source service.OrderSource
	if cfg.ShopifyConfigured() {
		client, err := shopify.NewClient(shopify.Config{
			ShopName:          cfg.ShopName,
			AccessToken:       cfg.ShopifyAccessToken,
			APIVersion:        cfg.ShopifyAPIVersion,
			RequestsPerSecond: cfg.ShopifyRequestsPerSecond,
			MaxRetries:        cfg.ShopifyMaxRetries,
		}, logger)
		if err != nil {
			sugar.Fatalw("shopify client initialization error", "error", err.Error())
		}
		source = client
		sugar.Infow("shopify client configured", "shop", cfg.ShopName, "api_version", cfg.ShopifyAPIVersion, "scopes", cfg.ShopifyScopes)
	} else {
		sugar.Warn("shopify is not configured, source sync and push are disabled")
	}
	if cfg.WebhookSecret() == "" {
		sugar.Warn("webhook secret is empty, all webhooks will be rejected")
	}

	gateway := wms.NewRetryingGateway(wms.NewStubGateway(logger), cfg.WMSMaxRetries, logger)

	var blacklist auth.Blacklist
	if cfg.RedisAddr != "" {
		rb, err := auth.NewRedisBlacklist(ctx, cfg.RedisAddr)
		if err != nil {
			sugar.Fatalw("redis initialization error", "error", err.Error())
		}
		defer rb.Close()
		blacklist = rb
	} else {
		blacklist = auth.NewMemoryBlacklist()
	}

	tokens, err := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTExpiry, blacklist)
	if err != nil {
		sugar.Fatalw("token manager initialization error", "error", err.Error())
	}

	svc := service.NewService(repo, source, gateway, logger)
	defer svc.Close()

	authMiddleware := middleware.NewAuthMiddleware(tokens, logger)
	h := handler.NewHandler(svc, tokens, logger, authMiddleware, handler.Options{
		WebhookSecret: cfg.WebhookSecret(),
		CORSOrigins:   cfg.CORSOrigins,
	})

	server := &http.Server{
		Addr:              cfg.RunAddress,
		Handler:           h.SetupRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		sugar.Infow("starting ordersync server", "addr", cfg.RunAddress)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Остановка по сигналу или ошибке сервера.
	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		sugar.Info("server stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Errorw("application terminated with error", "error", err)
	}
}
