package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"brain/config"
	"brain/document"
	"brain/loader"
	"brain/model"
	"brain/store"

	"github.com/joho/godotenv"
)

func init() {
	loadEnvVariables()
}

func main() {
	cfg := config.MustLoad()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	pool, err := store.NewPostgresStore(ctx, cfg.PostgresDSN())
	if err != nil {
		log.Fatal("error to connect to Postgres database: ", err)
	}

	if err := pool.Init(ctx); err != nil {
		log.Fatal("error to create tables: ", err)
	}

	l, err := loader.New(loader.Config{
		WatchDir:   getEnv("LOADER_WATCH_DIR", "inbox"),
		ArchiveDir: getEnv("LOADER_ARCHIVE_DIR", "archive"),
		FailedDir:  getEnv("LOADER_FAILED_DIR", "failed"),
		Interval:   getDuration("LOADER_SCAN_INTERVAL", 10*time.Second),
		ChunkSize:  cfg.ChunkSize,
	},
		document.NewExtractor(nil),
		model.NewOllamaEmbedder(cfg.OllamaEmbeddingURL, cfg.OllamaEmbeddingModel),
		pool,
		nil,
	)
	if err != nil {
		log.Fatal("error to build loader: ", err)
	}

	l.Run(ctx)

	if err := pool.Close(); err != nil {
		log.Printf("error closing pool: %v\n", err)
	}
}

func loadEnvVariables() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, relying on process environment")
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
