package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/youruser/emsapp/internal/api"
	"github.com/youruser/emsapp/internal/app"
	"github.com/youruser/emsapp/internal/artifacts"
	"github.com/youruser/emsapp/internal/config"
	"github.com/youruser/emsapp/internal/credential"
	"github.com/youruser/emsapp/internal/queue"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
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
	downloads := artifacts.NewDownloads(artifactStore, cfg.DownloadTTL, "/api/downloads/", nil)
	go downloads.RunSweeper(ctx, time.Minute)
	ctrl := credential.NewController(pipe, downloads, nil)

	deps := api.Deps{
		Employees:   store,
		Renderer:    pipe,
		Barcode:     pipe.BarcodeOptions(),
		Controller:  ctrl,
		Downloads:   downloads,
		Artifacts:   artifactStore,
		BaseContext: ctx,
	}
	if cfg.UseQueue() {
		jobs := queue.NewJobs(app.RedisOpt(cfg))
		defer jobs.Close()
		deps.Jobs = jobs
	}

	r := gin.Default()
	api.RegisterRoutes(r, deps)

	srv := &http.Server{Addr: cfg.Address, Handler: r}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Println("shutdown:", err)
		}
	}()

	log.Println("starting server on " + cfg.Address)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
}
