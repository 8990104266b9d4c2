package main

import (
	"context"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/wildmind/studio-api/internal/client"
	"github.com/wildmind/studio-api/internal/config"
	"github.com/wildmind/studio-api/internal/metrics"
	"github.com/wildmind/studio-api/internal/service"
	"github.com/wildmind/studio-api/internal/storage"
	"github.com/wildmind/studio-api/internal/store"
	ws "github.com/wildmind/studio-api/internal/websocket"
)

// app holds the process wide dependencies shared by all commands.
type app struct {
	cfg     *config.Config
	metrics *metrics.Metrics

	redis     *redis.Client
	asynq     *asynq.Client
	inspector *asynq.Inspector
	hub       *ws.Hub

	blobs       storage.BlobStore
	blobsStored bool

	flux    *client.FluxClient
	minimax *client.MiniMaxClient
	backend *client.BackendClient

	jobs    *service.JobService
	runner  *service.ShotRunner
	videos  *service.VideoService
	images  *service.ImageService
	music   *service.MusicService
	media   *service.MediaService
	uploads *service.UploadService
	library *service.LibraryService
}

func redisOpt(cfg *config.Config) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}
}

func newApp(ctx context.Context, cfg *config.Config) *app {
	a := &app{cfg: cfg, metrics: metrics.Default()}

	a.redis = redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := a.redis.Ping(ctx).Err(); err != nil {
		log.WithError(err).Warn("Redis not available")
	}

	a.asynq = asynq.NewClient(redisOpt(cfg))
	a.inspector = asynq.NewInspector(redisOpt(cfg))
	a.hub = ws.NewRelayHub(a.redis)

	blobs, err := storage.New(ctx, &cfg.Storage)
	if err != nil {
		log.WithError(err).Warn("Blob storage not initialized, using in-memory storage")
		a.blobs = storage.NewMemoryStore("")
	} else {
		a.blobs = blobs
		a.blobsStored = true
	}

	breakers := client.NewBreakers(cfg.Breaker, a.metrics)
	a.flux = client.NewFluxClient(&cfg.Flux, &cfg.Generation, breakers, a.metrics)
	a.minimax = client.NewMiniMaxClient(&cfg.MiniMax, breakers, a.metrics)
	a.backend = client.NewBackendClient(&cfg.Backend, breakers, a.metrics)

	downloader := client.NewDownloader(2 * time.Minute)
	rehoster := service.NewRehoster(downloader, a.blobs, a.metrics)
	sets := store.NewRedisSetStore(a.redis)

	var generator client.ImageGenerator = a.flux
	var shotRehoster service.AssetRehoster = rehoster
	if !a.flux.IsConfigured() {
		// placeholders stay on their own host so cleanup can find them
		log.Warn("BFL_API_KEY not set, project shots are placeholder images and are not saved to storage")
		generator = client.NewMockGenerator(500 * time.Millisecond)
		shotRehoster = nil
	}

	a.jobs = service.NewJobService(a.redis, a.asynq, a.inspector)
	a.hub.SetSnapshot(func(ctx context.Context, jobID string) (interface{}, error) {
		return a.jobs.GetStatus(ctx, jobID)
	})
	a.runner = service.NewShotRunner(generator, shotRehoster, sets, cfg.Generation.StepDelay, a.metrics)
	a.videos = service.NewVideoService(a.minimax, rehoster, cfg.Generation.PollInterval, cfg.Generation.MaxPollAttempts, a.metrics)
	a.images = service.NewImageService(a.backend, rehoster)
	a.music = service.NewMusicService(a.minimax, a.blobs)
	a.media = service.NewMediaService(downloader, a.blobs, cfg.Generation.ProxyAllowedHosts)
	a.uploads = service.NewUploadService(a.blobs)
	a.library = service.NewLibraryService(sets, a.blobs, rehoster, a.metrics)

	return a
}

func (a *app) Close() {
	a.asynq.Close()
	a.inspector.Close()
	a.blobs.Close()
	a.redis.Close()
}

func asynqLogLevel(level string) asynq.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return asynq.DebugLevel
	case "warn", "warning":
		return asynq.WarnLevel
	case "error":
		return asynq.ErrorLevel
	}
	return asynq.InfoLevel
}
