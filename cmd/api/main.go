package main

import (
	"context"
	"github.com/joho/godotenv"
	"github.com/luqea/luqea-wallet/internal/api"
	"github.com/luqea/luqea-wallet/internal/config"
	"github.com/luqea/luqea-wallet/internal/directory"
	"github.com/luqea/luqea-wallet/internal/payme"
	"github.com/luqea/luqea-wallet/internal/storage/localstore"
	"github.com/luqea/luqea-wallet/internal/wallet"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	_ = godotenv.Load()

	cfg := config.MustLoad()

	log := setupLogger(cfg.Env)

	log.Info("Starting application",
		slog.String("env", cfg.Env),
		slog.String("host", cfg.ApiHost),
		slog.Int("port", cfg.ApiPort),
	)

	store, err := localstore.New(cfg.Storage.Path)
	if err != nil {
		log.Error("Failed to open local store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	dir, err := directory.New(store, log)
	if err != nil {
		log.Error("Failed to load credential directory", "error", err)
		os.Exit(1)
	}

	ledger := wallet.New(dir, store, log)

	bridge := api.NewWidgetBridge()
	authClient := payme.NewAuthClient(cfg.Payme, log)
	handshake := payme.NewHandshake(authClient, bridge, cfg.Payme.MerchantCode, log)

	apiServer := api.New(cfg, log, ledger, handshake, bridge, []byte(cfg.JwtSecret))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		apiServer.MustStart()
	}()

	<-sigChan
	log.Info("Got signal to shutdown server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Stop(ctx); err != nil {
		log.Error("Stopping server error", "error", err)
	}
}

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger
	switch env {
	case envLocal:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	default:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	}
	return log
}
