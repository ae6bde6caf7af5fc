package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jacemadedev/Supastart-by-Klip-sub001/internal/app"
	"github.com/jacemadedev/Supastart-by-Klip-sub001/internal/config"
)

func main() {
	os.Exit(run())
}

// run returns the process exit code once deferred cleanup has finished.
func run() int {
	// Handle SIGINT/SIGTERM for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("config_invalid", "error", err)
		return 1
	}

	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(log)

	application, err := app.NewApp(ctx, cfg, log)
	if err != nil {
		log.Error("startup_failed", "error", err)
		return 1
	}
	defer application.Close()

	log.Info("supastart_running", "port", cfg.Port)
	if err := application.Run(ctx); err != nil {
		log.Error("server_failed", "error", err)
		return 1
	}
	log.Info("shut_down")
	return 0
}
