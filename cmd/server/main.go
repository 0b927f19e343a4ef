package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"spacebio-rag/internal/bootstrap"
	"spacebio-rag/internal/config"
	"spacebio-rag/internal/platform/logger"
	httptransport "spacebio-rag/internal/transport/http"
)

func main() {
	_ = godotenv.Load()
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config failed: %v", err)
	}
	logg, err := logger.New(cfg.Log.Mode)
	if err != nil {
		log.Fatalf("init logger failed: %v", err)
	}
	defer logg.Sync()

	app, err := bootstrap.New(ctx, cfg, logg)
	if err != nil {
		logg.Error("bootstrap failed", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := app.Close(); err != nil {
			logg.Warn("close resources failed", "error", err)
		}
	}()

	router := httptransport.NewRouter(app)
	server := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logg.Info("server starting", "addr", server.Addr, "boot_mode", cfg.Index.BootMode)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logg.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	waitForShutdown(server, logg)
}

func waitForShutdown(server *http.Server, logg *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logg.Warn("server shutdown failed", "error", err)
	}
}
