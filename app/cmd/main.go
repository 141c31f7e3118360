package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"brain/app/server"
	"brain/config"
	"brain/store"

	"github.com/joho/godotenv"
)

func init() {
	loadEnvVariables()
}

func main() {
	cfg := config.MustLoad()

	ctx := context.Background()
	pool, err := store.NewPostgresStore(ctx, cfg.PostgresDSN())
	if err != nil {
		log.Fatal("error to connect to Postgres database: ", err)
	}

	if err := pool.Init(ctx); err != nil {
		log.Fatal("error to create tables: ", err)
	}

	s, err := server.New(cfg, pool)
	if err != nil {
		log.Fatal("error to build server: ", err)
	}

	go s.Run()

	sigch := make(chan os.Signal, 1)
	signal.Notify(sigch, os.Interrupt, syscall.SIGTERM)
	<-sigch
	log.Println("Received shutdown signal, shutting down server...")

	s.Stop()
	if err := pool.Close(); err != nil {
		log.Printf("error closing pool: %v\n", err)
	}
}

func loadEnvVariables() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, relying on process environment")
	}
}
