// Package app wires configuration into the services shared by the server,
// the worker and the CLI.
package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/hibiken/asynq"

	"github.com/youruser/emsapp/internal/artifacts"
	"github.com/youruser/emsapp/internal/config"
	"github.com/youruser/emsapp/internal/credential"
	"github.com/youruser/emsapp/internal/employees"
	imagepkg "github.com/youruser/emsapp/internal/image"
)

func NewPipeline(cfg *config.Config, logger *log.Logger) (*credential.Pipeline, error) {
	sym, err := imagepkg.ParseSymbology(cfg.Symbology)
	if err != nil {
		return nil, err
	}
	bc := imagepkg.DefaultBarcodeOptions()
	bc.Symbology = sym
	composer, err := imagepkg.NewComposer(cfg.OrgMark)
	if err != nil {
		return nil, err
	}
	enc := credential.NewEncoder()
	if t := cfg.DocumentTime; !t.IsZero() {
		enc.Now = func() time.Time { return t }
	}
	return credential.NewPipeline(credential.Options{
		Barcode:       bc,
		Composer:      composer,
		Encoder:       enc,
		Photos:        imagepkg.NewPhotoLoader(cfg.PhotoTimeout, cfg.PhotoRoot),
		StepTimeout:   cfg.PhotoTimeout,
		PhotoFallback: cfg.PhotoFallback,
		Logger:        logger,
	})
}

// OpenEmployees uses Postgres when a DSN is configured. Otherwise employees
// live in memory, seeded from the data dir (best-effort).
func OpenEmployees(ctx context.Context, cfg *config.Config) (employees.Store, func(), error) {
	if cfg.DatabaseURL != "" {
		pool, err := employees.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect database: %w", err)
		}
		if err := employees.EnsureSchema(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("ensure schema: %w", err)
		}
		return employees.NewPostgresStore(pool), pool.Close, nil
	}

	store := employees.NewMemoryStore()
	list, err := employees.LoadFromDataDir(cfg.DataDir)
	if err != nil {
		log.Println("Warning: failed to load roster at startup:", err)
		return store, func() {}, nil
	}
	if err := store.Replace(ctx, list); err != nil {
		log.Println("Warning: roster rejected:", err)
	} else {
		log.Printf("loaded %d employees from %s", len(list), cfg.DataDir)
	}
	return store, func() {}, nil
}

// OpenArtifacts returns the S3 store when an endpoint is configured and an
// in-memory store otherwise.
func OpenArtifacts(ctx context.Context, cfg *config.Config) (artifacts.Store, error) {
	if !cfg.UseS3() {
		return artifacts.NewMemoryStore(), nil
	}
	s3, err := artifacts.NewS3Store(artifacts.S3Config{
		Endpoint:  cfg.S3Endpoint,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
		Bucket:    cfg.S3Bucket,
		Region:    cfg.S3Region,
		UseSSL:    cfg.S3UseSSL,
	})
	if err != nil {
		return nil, err
	}
	if err := s3.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	return s3, nil
}

func RedisOpt(cfg *config.Config) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}
}
