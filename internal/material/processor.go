package material

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/suPer8Hu/tutor-platform/internal/ai"
	"github.com/suPer8Hu/tutor-platform/internal/logger"
	"github.com/suPer8Hu/tutor-platform/internal/storage"
)

type ProcessorConfig struct {
	MaxRetryAttempts int
	RetryDelay       time.Duration
	RetryBackoff     float64
	OCRTimeout       time.Duration
	EmbedTimeout     time.Duration
}

func (c *ProcessorConfig) fillDefaults() {
	if c.MaxRetryAttempts <= 0 {
		c.MaxRetryAttempts = 3
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = 2 * time.Second
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = 2.0
	}
	if c.OCRTimeout <= 0 {
		c.OCRTimeout = 120 * time.Second
	}
	if c.EmbedTimeout <= 0 {
		c.EmbedTimeout = 30 * time.Second
	}
}

// Processor drives one material through
// pending -> processing -> {completed, failed}. Nothing escapes to the
// caller that matters for the upload path: every terminal failure ends
// up as status=failed plus a stored diagnostic.
type Processor struct {
	repo     *Repo
	provider ai.Provider
	store    storage.Downloader
	cfg      ProcessorConfig
	log      *logger.Logger
	sleep    sleepFunc
}

func NewProcessor(repo *Repo, provider ai.Provider, store storage.Downloader, cfg ProcessorConfig, log *logger.Logger) *Processor {
	cfg.fillDefaults()
	return &Processor{
		repo:     repo,
		provider: provider,
		store:    store,
		cfg:      cfg,
		log:      log,
		sleep:    sleepCtx,
	}
}

// Process runs the full pipeline for one material id. The returned
// error is for job observability only; terminal state is already
// persisted by the time it returns.
func (p *Processor) Process(ctx context.Context, materialID string) error {
	log := p.log.With("material_id", materialID)

	// Claim pending -> processing. The optimistic guard makes a second
	// concurrent invocation for the same id lose cleanly.
	if err := p.repo.ClaimProcessing(ctx, materialID); err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			log.Error("material missing, aborting", "err", err)
			return err
		case errors.Is(err, ErrAlreadyClaimed):
			log.Warn("skipping, already claimed")
			return err
		default:
			return &UpdateError{MaterialID: materialID, Field: "status", Err: err}
		}
	}

	m, err := p.repo.GetByID(ctx, materialID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// Deleted between claim and fetch; no further status writes.
			log.Error("material vanished after claim")
			return err
		}
		return p.fail(ctx, materialID, fmt.Errorf("fetch material: %w", err))
	}

	data, err := p.downloadWithRetry(ctx, m.FilePath)
	if err != nil {
		return p.fail(ctx, materialID, err)
	}

	if err := p.waitForProvider(ctx); err != nil {
		return p.fail(ctx, materialID, err)
	}

	text, err := p.extractTextWithRetry(ctx, data, contentTypeFor(m.FileType))
	if err != nil {
		return p.fail(ctx, materialID, err)
	}

	// Empty extraction is a valid terminal state: completed, no embedding.
	if strings.TrimSpace(text) == "" {
		if err := p.repo.MarkCompleted(ctx, materialID, "", nil); err != nil {
			return p.fail(ctx, materialID, &UpdateError{MaterialID: materialID, Field: "completed", Err: err})
		}
		log.Info("processed material with empty text, skipping embedding")
		return nil
	}

	vec, err := p.embedWithRetry(ctx, text)
	if err != nil {
		return p.fail(ctx, materialID, err)
	}

	if err := p.repo.MarkCompleted(ctx, materialID, text, vec); err != nil {
		return p.fail(ctx, materialID, &UpdateError{MaterialID: materialID, Field: "completed", Err: err})
	}

	log.Info("material processed", "text_len", len(text), "dim", len(vec))
	return nil
}

func (p *Processor) downloadWithRetry(ctx context.Context, path string) ([]byte, error) {
	var data []byte
	err := p.retry(ctx, transientAlways, func() error {
		var err error
		data, err = p.store.Download(ctx, path)
		if err != nil {
			return &DownloadError{Path: path, Err: err}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

// waitForProvider gates the AI calls on the provider health check so a
// briefly unavailable backend is ridden out by the normal retry policy.
func (p *Processor) waitForProvider(ctx context.Context) error {
	return p.retry(ctx, transientAlways, func() error {
		if err := p.provider.HealthCheck(ctx); err != nil {
			return fmt.Errorf("provider unavailable: %w", err)
		}
		return nil
	})
}

func (p *Processor) extractTextWithRetry(ctx context.Context, data []byte, mimeType string) (string, error) {
	var text string
	err := p.retry(ctx, transientOCR, func() error {
		callCtx, cancel := context.WithTimeout(ctx, p.cfg.OCRTimeout)
		defer cancel()
		var err error
		text, err = p.provider.ExtractText(callCtx, data, mimeType)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("ocr: %w", err)
	}
	return text, nil
}

func (p *Processor) embedWithRetry(ctx context.Context, text string) ([]float32, error) {
	var vec []float32
	err := p.retry(ctx, transientEmbed, func() error {
		callCtx, cancel := context.WithTimeout(ctx, p.cfg.EmbedTimeout)
		defer cancel()
		var err error
		vec, err = p.provider.GenerateEmbedding(callCtx, text)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("embedding: %w", err)
	}
	return vec, nil
}

func (p *Processor) retry(ctx context.Context, transient func(error) bool, op func() error) error {
	return retryWithBackoff(ctx, p.cfg.MaxRetryAttempts, p.cfg.RetryDelay, p.cfg.RetryBackoff, p.sleep, transient, op)
}

func (p *Processor) fail(ctx context.Context, materialID string, cause error) error {
	// Status must be recorded even when the pipeline context is gone.
	writeCtx := context.WithoutCancel(ctx)
	if err := p.repo.MarkFailed(writeCtx, materialID, cause.Error()); err != nil {
		p.log.Error("mark failed did not stick", "material_id", materialID, "err", err, "cause", cause)
		return cause
	}
	p.log.Error("material processing failed", "material_id", materialID, "err", cause)
	return cause
}

func transientAlways(error) bool { return true }

// transientOCR: connection failures and 5xx are worth retrying, but an
// OCR timeout means the file is too large or complex and will time out
// again.
func transientOCR(err error) bool {
	var pe *ai.ProviderError
	if errors.As(err, &pe) {
		if pe.Timeout() {
			return false
		}
		return pe.ServerSide()
	}
	return false
}

// transientEmbed: same as OCR except timeouts are retried; embedding
// latency is load-dependent, not input-dependent.
func transientEmbed(err error) bool {
	var pe *ai.ProviderError
	if errors.As(err, &pe) {
		return pe.Timeout() || pe.ServerSide()
	}
	return false
}
