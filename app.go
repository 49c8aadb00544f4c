package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"docconverter/config"
	"docconverter/services"

	"github.com/redis/go-redis/v9"
)

// app holds the services shared by the serve and worker commands.
type app struct {
	cfg     *config.Config
	gateway *services.Gateway
	queue   *services.RedisQueue

	redisClient *redis.Client
	db          *services.DatabaseService
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg}

	scratch, err := services.NewScratch(cfg.InputDir(), cfg.OutputDir())
	if err != nil {
		return nil, err
	}
	if removed := scratch.Sweep(time.Duration(cfg.ScratchMaxAge) * time.Second); removed > 0 {
		log.Printf("Removed %d stale scratch directories", removed)
	}

	converters, err := services.NewConverters(cfg, services.NewCommandRunner())
	if err != nil {
		return nil, err
	}
	log.Printf("DOCX -> PDF engine: %s", cfg.DocxEngine)

	var store services.ObjectStore
	if s, err := services.NewObjectStore(cfg); err != nil {
		log.Printf("Warning: object storage unavailable, storage trigger disabled: %v", err)
	} else {
		store = s
		log.Printf("Object storage: %s (%s -> %s)", cfg.StorageBackend, cfg.UploadBucket, cfg.OutputBucket)
	}

	var audit services.AuditStore
	if cfg.DatabaseEnabled() {
		db, err := services.NewDatabaseService(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := db.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, err
		}
		a.db = db
		audit = db
		log.Println("Connected to database successfully")
	}

	if cfg.RedisEnabled() {
		client, err := services.NewRedisClient(ctx, cfg)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.redisClient = client
		a.queue = services.NewRedisQueue(client, cfg)
		log.Println("Connected to Redis successfully")
	}

	a.gateway = services.NewGateway(cfg, converters, store, scratch, audit)
	return a, nil
}

func (a *app) requireQueue() error {
	if a.queue == nil {
		return fmt.Errorf("workers need a Redis queue: set REDIS_ADDR")
	}
	return nil
}

func (a *app) Close() {
	if a.redisClient != nil {
		a.redisClient.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
}
