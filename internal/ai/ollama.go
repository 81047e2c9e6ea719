package ai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// OllamaProvider talks to a local Ollama daemon. Chat, embeddings and
// OCR may each use a different model; OCR goes through a vision model
// via /api/generate with the file attached as a base64 image.
type OllamaProvider struct {
	BaseURL     string
	ChatModel   string
	EmbedModel  string
	VisionModel string
	Client      *http.Client
}

func NewOllamaProvider(baseURL, chatModel, embedModel, visionModel string) *OllamaProvider {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if chatModel == "" {
		chatModel = "llama3:latest"
	}
	if embedModel == "" {
		embedModel = "nomic-embed-text"
	}
	if visionModel == "" {
		visionModel = "llava:latest"
	}
	return &OllamaProvider{
		BaseURL:     baseURL,
		ChatModel:   chatModel,
		EmbedModel:  embedModel,
		VisionModel: visionModel,
		Client:      &http.Client{Timeout: 180 * time.Second},
	}
}

type ollamaMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatReq struct {
	Model    string      `json:"model"`
	Messages []ollamaMsg `json:"messages"`
	Stream   bool        `json:"stream"`
}

type ollamaChatResp struct {
	Message ollamaMsg `json:"message"`
	Error   string    `json:"error,omitempty"`
}

func (p *OllamaProvider) Chat(ctx context.Context, messages []Message) (string, error) {
	reqBody := ollamaChatReq{
		Model:  p.ChatModel,
		Stream: false,
		Messages: func() []ollamaMsg {
			out := make([]ollamaMsg, 0, len(messages))
			for _, m := range messages {
				out = append(out, ollamaMsg{Role: m.Role, Content: m.Content})
			}
			return out
		}(),
	}

	var decoded ollamaChatResp
	if err := p.post(ctx, OpChat, "/api/chat", reqBody, &decoded); err != nil {
		return "", err
	}
	if decoded.Error != "" {
		return "", wrapErr("ollama", OpChat, 0, errors.New(decoded.Error))
	}
	return decoded.Message.Content, nil
}

type ollamaEmbedReq struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbedResp struct {
	Embedding []float32 `json:"embedding"`
	Error     string    `json:"error,omitempty"`
}

func (p *OllamaProvider) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	var decoded ollamaEmbedResp
	if err := p.post(ctx, OpEmbed, "/api/embeddings", ollamaEmbedReq{Model: p.EmbedModel, Prompt: text}, &decoded); err != nil {
		return nil, err
	}
	if decoded.Error != "" {
		return nil, wrapErr("ollama", OpEmbed, 0, errors.New(decoded.Error))
	}
	if len(decoded.Embedding) == 0 {
		return nil, wrapErr("ollama", OpEmbed, 0, errors.New("empty embedding"))
	}
	return decoded.Embedding, nil
}

type ollamaGenerateReq struct {
	Model  string   `json:"model"`
	Prompt string   `json:"prompt"`
	Images []string `json:"images,omitempty"`
	Stream bool     `json:"stream"`
}

type ollamaGenerateResp struct {
	Response string `json:"response"`
	Error    string `json:"error,omitempty"`
}

const ocrPrompt = "Extract all text from this document verbatim. Output only the extracted text, nothing else. If the document contains no text, output nothing."

func (p *OllamaProvider) ExtractText(ctx context.Context, data []byte, mimeType string) (string, error) {
	if len(data) == 0 {
		return "", wrapErr("ollama", OpOCR, 400, errors.New("empty file"))
	}
	reqBody := ollamaGenerateReq{
		Model:  p.VisionModel,
		Prompt: ocrPrompt,
		Images: []string{base64.StdEncoding.EncodeToString(data)},
		Stream: false,
	}
	_ = mimeType // ollama sniffs the image format itself

	var decoded ollamaGenerateResp
	if err := p.post(ctx, OpOCR, "/api/generate", reqBody, &decoded); err != nil {
		return "", err
	}
	if decoded.Error != "" {
		return "", wrapErr("ollama", OpOCR, 0, errors.New(decoded.Error))
	}
	return decoded.Response, nil
}

func (p *OllamaProvider) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.BaseURL+"/api/tags", nil)
	if err != nil {
		return wrapErr("ollama", OpHealth, 0, err)
	}
	resp, err := p.Client.Do(req)
	if err != nil {
		return wrapErr("ollama", OpHealth, 0, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return wrapErr("ollama", OpHealth, resp.StatusCode, fmt.Errorf("status %d", resp.StatusCode))
	}
	return nil
}

func (p *OllamaProvider) post(ctx context.Context, op, path string, body any, out any) error {
	if p.Client == nil {
		return wrapErr("ollama", op, 0, errors.New("http client is nil"))
	}

	b, err := json.Marshal(body)
	if err != nil {
		return wrapErr("ollama", op, 0, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.BaseURL+path, bytes.NewReader(b))
	if err != nil {
		return wrapErr("ollama", op, 0, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.Client.Do(req)
	if err != nil {
		return wrapErr("ollama", op, 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return wrapErr("ollama", op, resp.StatusCode, fmt.Errorf("status %d", resp.StatusCode))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return wrapErr("ollama", op, 0, err)
	}
	return nil
}
