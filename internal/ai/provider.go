package ai

import "context"

type Message struct {
	Role    string
	Content string
}

// Provider is the capability set the tutoring core consumes from a model
// backend. Implementations are selected once at construction time via
// configuration; see Registry.
type Provider interface {
	// ExtractText performs OCR / text extraction on raw file bytes.
	ExtractText(ctx context.Context, data []byte, mimeType string) (string, error)

	// GenerateEmbedding returns a fixed-dimension vector for the text.
	// The dimension is fixed per deployment by the configured model.
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)

	// Chat produces a completion for the given messages (oldest first).
	Chat(ctx context.Context, messages []Message) (string, error)

	// HealthCheck reports whether the backend is reachable.
	HealthCheck(ctx context.Context) error
}
