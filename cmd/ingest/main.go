// Command ingest builds a new index from the configured PDF directory and
// publishes it. A running server picks it up on reload.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"spacebio-rag/internal/bootstrap"
	"spacebio-rag/internal/config"
	"spacebio-rag/internal/index"
	"spacebio-rag/internal/ingest"
	"spacebio-rag/internal/platform/logger"
)

func main() {
	_ = godotenv.Load()

	pdfDir := flag.String("pdf-dir", "", "directory of PDFs (overrides config)")
	indexDir := flag.String("index-dir", "", "index directory (overrides config)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config failed: %v", err)
	}
	if *pdfDir != "" {
		cfg.Index.PDFDir = *pdfDir
	}
	if *indexDir != "" {
		cfg.Index.Dir = *indexDir
	}

	logg, err := logger.New(cfg.Log.Mode)
	if err != nil {
		log.Fatalf("init logger failed: %v", err)
	}
	defer logg.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logg); err != nil {
		logg.Error("ingest failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) error {
	db, repo, err := bootstrap.OpenRunRepository(ctx, cfg)
	if err != nil {
		return err
	}
	var runs ingest.RunRecorder
	if repo != nil {
		runs = repo
		if sqlDB, err := db.DB(); err == nil {
			defer sqlDB.Close()
		}
	}

	store := index.NewStore(cfg.Index.Dir, logg)
	pipeline, err := bootstrap.NewPipeline(cfg, bootstrap.NewLLMClient(cfg), store, runs, logg)
	if err != nil {
		return err
	}

	result, err := pipeline.Run(ctx, "", "cli")
	if err != nil {
		return err
	}
	logg.Info("build published", "build_id", result.BuildID, "dir", cfg.Index.Dir, "vectors", result.Vectors)
	return nil
}
