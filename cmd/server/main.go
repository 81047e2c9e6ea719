package main

import (
	"context"
	"os"

	"github.com/suPer8Hu/tutor-platform/internal/ai"
	"github.com/suPer8Hu/tutor-platform/internal/chat"
	"github.com/suPer8Hu/tutor-platform/internal/config"
	"github.com/suPer8Hu/tutor-platform/internal/db"
	"github.com/suPer8Hu/tutor-platform/internal/httpapi"
	"github.com/suPer8Hu/tutor-platform/internal/httpapi/handlers"
	"github.com/suPer8Hu/tutor-platform/internal/jobs"
	"github.com/suPer8Hu/tutor-platform/internal/logger"
	"github.com/suPer8Hu/tutor-platform/internal/material"
	"github.com/suPer8Hu/tutor-platform/internal/storage"
	"github.com/suPer8Hu/tutor-platform/internal/store/rabbitmq"
	"github.com/suPer8Hu/tutor-platform/internal/store/redisstore"
	"github.com/suPer8Hu/tutor-platform/internal/user"
)

func main() {
	cfg := config.Load()

	log, err := logger.New(os.Getenv("APP_ENV"))
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	gdb, err := db.Connect(cfg.DBDSN)
	if err != nil {
		log.Fatal("db connect", "err", err)
	}
	if err := db.Migrate(gdb); err != nil {
		log.Fatal("db migrate", "err", err)
	}

	ctx := context.Background()

	store, err := storage.NewMinioStore(ctx, storage.Config{
		Endpoint:  cfg.MinioEndpoint,
		AccessKey: cfg.MinioAccessKey,
		SecretKey: cfg.MinioSecretKey,
		Bucket:    cfg.MinioBucket,
		UseSSL:    cfg.MinioUseSSL,
	})
	if err != nil {
		log.Fatal("minio init", "err", err)
	}

	reg := ai.NewRegistry()
	reg.Register("ollama", func(ctx context.Context) (ai.Provider, error) {
		return ai.NewOllamaProvider(cfg.OllamaBaseURL, cfg.OllamaChatModel, cfg.OllamaEmbedModel, cfg.OllamaVisionModel), nil
	})
	reg.Register("openrouter", func(ctx context.Context) (ai.Provider, error) {
		return ai.NewOpenRouterProvider(cfg.OpenRouterBaseURL, cfg.OpenRouterAPIKey, cfg.OpenRouterModel,
			cfg.OpenRouterEmbedModel, cfg.OpenRouterSiteURL, cfg.OpenRouterAppName), nil
	})
	provider, err := reg.Get(ctx, cfg.AIProvider)
	if err != nil {
		log.Fatal("ai provider", "err", err)
	}

	var cache material.EmbeddingCache
	rds := redisstore.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err := rds.Ping(ctx); err != nil {
		log.Warn("redis unavailable, query embedding cache disabled", "err", err)
	} else {
		cache = rds
	}

	matRepo := material.NewRepo(gdb)
	userRepo := user.NewRepo(gdb)
	chatRepo := chat.NewRepo(gdb)

	// Processing is dispatched to RabbitMQ when it is reachable;
	// otherwise it runs on an in-process pool so a single binary still
	// works end to end.
	var dispatcher material.Dispatcher
	pub, err := rabbitmq.NewPublisher(cfg.RabbitURL, cfg.RabbitQueue)
	if err != nil {
		log.Warn("rabbitmq unavailable, processing materials in-process", "err", err)
		processor := material.NewProcessor(matRepo, provider, store, material.ProcessorConfig{
			MaxRetryAttempts: cfg.MaxRetryAttempts,
			RetryDelay:       cfg.RetryDelay,
			RetryBackoff:     cfg.RetryBackoff,
			OCRTimeout:       cfg.OCRTimeout,
			EmbedTimeout:     cfg.EmbedTimeout,
		}, log)
		pool, perr := jobs.NewPool(cfg.WorkerConcurrency, log)
		if perr != nil {
			log.Fatal("worker pool", "err", perr)
		}
		dispatcher = jobs.NewInlineDispatcher(pool, processor.Process)
	} else {
		defer pub.Close()
		dispatcher = pub
	}

	matSvc := material.NewService(matRepo, store, dispatcher, log)
	searcher := material.NewSearcher(matRepo, provider, cache, material.SearchConfig{
		DefaultLimit:    cfg.SearchDefaultLimit,
		MaxLimit:        cfg.SearchMaxLimit,
		MinQueryLen:     cfg.SearchMinQueryLen,
		ExcerptMaxChars: cfg.ExcerptMaxChars,
	}, log)

	builder := chat.NewContextBuilder(userRepo, chatRepo, searcher, chat.BuilderConfig{
		HistoryWindow: cfg.ChatHistoryWindow,
		SoftTimeout:   cfg.ContextSoftTimeout,
		HardTimeout:   cfg.ContextHardTimeout,
		SearchLimit:   cfg.SearchDefaultLimit,
	}, log)
	chatSvc := chat.NewService(chatRepo, provider, builder, log)

	h := handlers.NewHandler(cfg, userRepo, matSvc, searcher, chatSvc, provider, log)
	r := httpapi.NewRouter(h, cfg)

	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	log.Info("server listening", "addr", addr)
	if err := r.Run(addr); err != nil {
		log.Fatal("server exited", "err", err)
	}
}
