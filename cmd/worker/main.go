package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/youruser/emsapp/internal/app"
	"github.com/youruser/emsapp/internal/config"
	"github.com/youruser/emsapp/internal/worker"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if !cfg.UseQueue() {
		log.Fatal("EMS_REDIS_ADDR is required")
	}
	// The server reads job artifacts back from the same bucket.
	if !cfg.UseS3() {
		log.Fatal("EMS_S3_ENDPOINT is required")
	}

	store, closeStore, err := app.OpenEmployees(ctx, cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer closeStore()

	artifactStore, err := app.OpenArtifacts(ctx, cfg)
	if err != nil {
		log.Fatalf("init storage: %v", err)
	}
	pipe, err := app.NewPipeline(cfg, nil)
	if err != nil {
		log.Fatalf("init pipeline: %v", err)
	}

	server := asynq.NewServer(app.RedisOpt(cfg), asynq.Config{
		Concurrency: cfg.WorkerConcurrency,
	})
	processor := worker.NewProcessor(store, pipe, artifactStore, nil)
	mux := processor.Handler()

	go func() {
		<-ctx.Done()
		server.Shutdown()
	}()

	if err := server.Run(mux); err != nil {
		log.Printf("worker stopped: %v", err)
		os.Exit(1)
	}
}
