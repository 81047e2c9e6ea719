package main

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/suPer8Hu/tutor-platform/internal/ai"
	"github.com/suPer8Hu/tutor-platform/internal/config"
	"github.com/suPer8Hu/tutor-platform/internal/db"
	"github.com/suPer8Hu/tutor-platform/internal/jobs"
	"github.com/suPer8Hu/tutor-platform/internal/logger"
	"github.com/suPer8Hu/tutor-platform/internal/material"
	"github.com/suPer8Hu/tutor-platform/internal/storage"
	"github.com/suPer8Hu/tutor-platform/internal/store/rabbitmq"
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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

	provider, err := buildProvider(ctx, cfg)
	if err != nil {
		log.Fatal("ai provider", "err", err)
	}

	repo := material.NewRepo(gdb)
	processor := material.NewProcessor(repo, provider, store, material.ProcessorConfig{
		MaxRetryAttempts: cfg.MaxRetryAttempts,
		RetryDelay:       cfg.RetryDelay,
		RetryBackoff:     cfg.RetryBackoff,
		OCRTimeout:       cfg.OCRTimeout,
		EmbedTimeout:     cfg.EmbedTimeout,
	}, log)

	pub, err := rabbitmq.NewPublisher(cfg.RabbitURL, cfg.RabbitQueue)
	if err != nil {
		log.Fatal("rabbit publisher", "err", err)
	}
	defer pub.Close()

	conn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		log.Fatal("rabbit dial", "err", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		log.Fatal("rabbit channel", "err", err)
	}
	defer ch.Close()

	if err := ch.Qos(cfg.WorkerConcurrency, 0, false); err != nil {
		log.Fatal("qos", "err", err)
	}

	msgs, err := ch.Consume(cfg.RabbitQueue, "", false, false, false, false, nil)
	if err != nil {
		log.Fatal("consume", "err", err)
	}

	pool, err := jobs.NewPool(cfg.WorkerConcurrency, log)
	if err != nil {
		log.Fatal("worker pool", "err", err)
	}
	defer pool.Release()

	// Requeue materials stuck in pending/processing: a crash mid
	// pipeline leaves rows that nothing would ever pick up again.
	go sweepLoop(ctx, repo, pub, cfg.StuckThreshold, log)

	log.Info("worker started", "queue", cfg.RabbitQueue, "concurrency", cfg.WorkerConcurrency)

	for {
		select {
		case <-ctx.Done():
			log.Info("worker shutting down")
			return

		case d, ok := <-msgs:
			if !ok {
				log.Warn("delivery channel closed")
				time.Sleep(1 * time.Second)
				continue
			}
			delivery := d
			if _, err := pool.Submit(ctx, "material_job", func(ctx context.Context) error {
				return handleDelivery(ctx, processor, delivery, log)
			}); err != nil {
				log.Error("submit failed", "err", err)
				_ = delivery.Nack(false, true)
			}
		}
	}
}

func buildProvider(ctx context.Context, cfg config.Config) (ai.Provider, error) {
	reg := ai.NewRegistry()
	reg.Register("ollama", func(ctx context.Context) (ai.Provider, error) {
		return ai.NewOllamaProvider(cfg.OllamaBaseURL, cfg.OllamaChatModel, cfg.OllamaEmbedModel, cfg.OllamaVisionModel), nil
	})
	reg.Register("openrouter", func(ctx context.Context) (ai.Provider, error) {
		return ai.NewOpenRouterProvider(cfg.OpenRouterBaseURL, cfg.OpenRouterAPIKey, cfg.OpenRouterModel,
			cfg.OpenRouterEmbedModel, cfg.OpenRouterSiteURL, cfg.OpenRouterAppName), nil
	})
	return reg.Get(ctx, cfg.AIProvider)
}

func handleDelivery(ctx context.Context, processor *material.Processor, d amqp.Delivery, log *logger.Logger) error {
	var m rabbitmq.JobMessage
	if err := json.Unmarshal(d.Body, &m); err != nil || m.MaterialID == "" {
		log.Error("bad job message", "err", err)
		_ = d.Nack(false, false) // to DLQ
		return err
	}

	start := time.Now()
	err := processor.Process(ctx, m.MaterialID)
	switch {
	case err == nil:
		log.Info("job done", "material_id", m.MaterialID, "cost", time.Since(start))
		return d.Ack(false)
	case errors.Is(err, material.ErrAlreadyClaimed):
		// Another worker owns it; this delivery is redundant.
		return d.Ack(false)
	default:
		var ue *material.UpdateError
		if errors.As(err, &ue) {
			// Terminal state did not persist; let the DLQ keep it.
			_ = d.Nack(false, false)
			return err
		}
		// Failure is recorded on the material row itself.
		return d.Ack(false)
	}
}

func sweepLoop(ctx context.Context, repo *material.Repo, pub *rabbitmq.Publisher, threshold time.Duration, log *logger.Logger) {
	ticker := time.NewTicker(threshold)
	defer ticker.Stop()

	for {
		sweepOnce(ctx, repo, pub, threshold, log)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func sweepOnce(ctx context.Context, repo *material.Repo, pub *rabbitmq.Publisher, threshold time.Duration, log *logger.Logger) {
	ids, err := repo.ResetStuck(ctx, time.Now().Add(-threshold))
	if err != nil {
		log.Error("stuck sweep failed", "err", err)
		return
	}
	for _, id := range ids {
		if err := pub.Dispatch(ctx, id); err != nil {
			log.Error("requeue stuck material failed", "material_id", id, "err", err)
			continue
		}
		log.Info("requeued stuck material", "material_id", id)
	}
}
