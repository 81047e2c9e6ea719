package ai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// OpenRouterProvider talks to OpenRouter's OpenAI-compatible API.
// OCR is done through a vision-capable chat model with the file inlined
// as a data URL.
type OpenRouterProvider struct {
	BaseURL    string
	APIKey     string
	Model      string
	EmbedModel string
	SiteURL    string
	AppName    string
	Client     *http.Client
}

func NewOpenRouterProvider(baseURL, apiKey, model, embedModel, siteURL, appName string) *OpenRouterProvider {
	if baseURL == "" {
		baseURL = "https://openrouter.ai/api/v1"
	}
	if embedModel == "" {
		embedModel = "text-embedding-3-small"
	}
	return &OpenRouterProvider{
		BaseURL:    baseURL,
		APIKey:     apiKey,
		Model:      model,
		EmbedModel: embedModel,
		SiteURL:    siteURL,
		AppName:    appName,
		Client:     &http.Client{Timeout: 180 * time.Second},
	}
}

type openRouterMsg struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type openRouterChatReq struct {
	Model    string          `json:"model"`
	Messages []openRouterMsg `json:"messages"`
	Stream   bool            `json:"stream"`
}

type openRouterChatResp struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (p *OpenRouterProvider) Chat(ctx context.Context, messages []Message) (string, error) {
	msgs := make([]openRouterMsg, 0, len(messages))
	for _, m := range messages {
		role := m.Role
		// OpenRouter follows the OpenAI role vocabulary.
		if role == "model" {
			role = "assistant"
		}
		msgs = append(msgs, openRouterMsg{Role: role, Content: m.Content})
	}
	return p.chatCompletion(ctx, OpChat, openRouterChatReq{Model: p.Model, Messages: msgs})
}

func (p *OpenRouterProvider) chatCompletion(ctx context.Context, op string, reqBody openRouterChatReq) (string, error) {
	if strings.TrimSpace(p.APIKey) == "" {
		return "", wrapErr("openrouter", op, 401, errors.New("api key is required"))
	}
	if strings.TrimSpace(reqBody.Model) == "" {
		return "", wrapErr("openrouter", op, 400, errors.New("model is required"))
	}

	var decoded openRouterChatResp
	if err := p.post(ctx, op, "/chat/completions", reqBody, &decoded); err != nil {
		return "", err
	}
	if decoded.Error != nil {
		return "", wrapErr("openrouter", op, 0, errors.New(decoded.Error.Message))
	}
	if len(decoded.Choices) == 0 {
		return "", wrapErr("openrouter", op, 0, errors.New("no choices in response"))
	}
	return decoded.Choices[0].Message.Content, nil
}

type openRouterEmbedReq struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type openRouterEmbedResp struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (p *OpenRouterProvider) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(p.APIKey) == "" {
		return nil, wrapErr("openrouter", OpEmbed, 401, errors.New("api key is required"))
	}

	var decoded openRouterEmbedResp
	if err := p.post(ctx, OpEmbed, "/embeddings", openRouterEmbedReq{Model: p.EmbedModel, Input: text}, &decoded); err != nil {
		return nil, err
	}
	if decoded.Error != nil {
		return nil, wrapErr("openrouter", OpEmbed, 0, errors.New(decoded.Error.Message))
	}
	if len(decoded.Data) == 0 || len(decoded.Data[0].Embedding) == 0 {
		return nil, wrapErr("openrouter", OpEmbed, 0, errors.New("empty embedding"))
	}
	return decoded.Data[0].Embedding, nil
}

func (p *OpenRouterProvider) ExtractText(ctx context.Context, data []byte, mimeType string) (string, error) {
	if len(data) == 0 {
		return "", wrapErr("openrouter", OpOCR, 400, errors.New("empty file"))
	}
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	dataURL := fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data))

	content := []map[string]any{
		{"type": "text", "text": ocrPrompt},
		{"type": "image_url", "image_url": map[string]string{"url": dataURL}},
	}
	return p.chatCompletion(ctx, OpOCR, openRouterChatReq{
		Model:    p.Model,
		Messages: []openRouterMsg{{Role: "user", Content: content}},
	})
}

func (p *OpenRouterProvider) HealthCheck(ctx context.Context) error {
	url := strings.TrimRight(p.BaseURL, "/") + "/models"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return wrapErr("openrouter", OpHealth, 0, err)
	}
	if p.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.APIKey)
	}
	resp, err := p.Client.Do(req)
	if err != nil {
		return wrapErr("openrouter", OpHealth, 0, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return wrapErr("openrouter", OpHealth, resp.StatusCode, fmt.Errorf("status %d", resp.StatusCode))
	}
	return nil
}

func (p *OpenRouterProvider) post(ctx context.Context, op, path string, body any, out any) error {
	if p.Client == nil {
		return wrapErr("openrouter", op, 0, errors.New("http client is nil"))
	}

	b, err := json.Marshal(body)
	if err != nil {
		return wrapErr("openrouter", op, 0, err)
	}

	url := strings.TrimRight(p.BaseURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return wrapErr("openrouter", op, 0, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.APIKey)
	if p.SiteURL != "" {
		req.Header.Set("HTTP-Referer", p.SiteURL)
	}
	if p.AppName != "" {
		req.Header.Set("X-Title", p.AppName)
	}

	resp, err := p.Client.Do(req)
	if err != nil {
		return wrapErr("openrouter", op, 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return wrapErr("openrouter", op, resp.StatusCode, fmt.Errorf("status %d", resp.StatusCode))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return wrapErr("openrouter", op, 0, err)
	}
	return nil
}
