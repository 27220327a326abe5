package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jsalazar/toolforge/internal/domain/tool"
)

const (
	mimeJSON          = "application/json"
	headerContentType = "Content-Type"
)

// OpenRouterProvider implements Provider against the OpenRouter
// chat-completions REST API. Endpoints used:
//   - POST /chat/completions — non-streaming completion with tools
//   - GET  /models           — health check (lists available models)
type OpenRouterProvider struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewOpenRouterProvider creates a provider with a 60s default timeout.
func NewOpenRouterProvider(baseURL, apiKey, model string) *OpenRouterProvider {
	return &OpenRouterProvider{
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

type openRouterChatRequest struct {
	Model       string            `json:"model"`
	Messages    []Message         `json:"messages"`
	Tools       []tool.Definition `json:"tools,omitempty"`
	Temperature float64           `json:"temperature,omitempty"`
	MaxTokens   int               `json:"max_tokens,omitempty"`
}

type openRouterChatResponse struct {
	Choices []struct {
		Message struct {
			Content   string            `json:"content"`
			ToolCalls []ToolCallRequest `json:"tool_calls"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// ChatCompletion performs a non-streaming completion via POST /chat/completions.
func (p *OpenRouterProvider) ChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	model := req.Model
	if model == "" {
		model = p.model
	}

	body, err := json.Marshal(openRouterChatRequest{
		Model:       model,
		Messages:    req.Messages,
		Tools:       req.Tools,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return nil, err
	}

	respBody, postErr := p.doPost(ctx, "/chat/completions", body)
	if postErr != nil {
		return nil, postErr
	}
	defer respBody.Close()

	var decoded openRouterChatResponse
	if decodeErr := json.NewDecoder(respBody).Decode(&decoded); decodeErr != nil {
		return nil, fmt.Errorf("decode chat response: %w", decodeErr)
	}
	if decoded.Error != nil {
		return nil, fmt.Errorf("openrouter chat: %s", decoded.Error.Message)
	}
	if len(decoded.Choices) == 0 {
		return nil, fmt.Errorf("openrouter chat: empty choices")
	}

	choice := decoded.Choices[0]
	return &ChatResponse{
		Content:    choice.Message.Content,
		ToolCalls:  choice.Message.ToolCalls,
		StopReason: choice.FinishReason,
	}, nil
}

// ModelInfo returns static metadata for this provider/model.
func (p *OpenRouterProvider) ModelInfo() ModelMeta {
	return ModelMeta{
		ID:        p.model,
		Provider:  "openrouter",
		MaxTokens: 8192,
	}
}

// HealthCheck calls GET /models — returns nil if the API is reachable.
func (p *OpenRouterProvider) HealthCheck(ctx context.Context) error {
	url := p.baseURL + "/models"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("openrouter healthcheck: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("openrouter healthcheck: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("openrouter healthcheck: status %d", resp.StatusCode)
	}
	return nil
}

// doPost sends a POST request to baseURL+path and returns the response body.
// Caller is responsible for closing the returned ReadCloser.
func (p *OpenRouterProvider) doPost(ctx context.Context, path string, body []byte) (io.ReadCloser, error) {
	url := p.baseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("openrouter post %s: build request: %w", path, err)
	}
	req.Header.Set(headerContentType, mimeJSON)
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openrouter post %s: %w", path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close() //nolint:errcheck
		return nil, fmt.Errorf("openrouter post %s: status %d", path, resp.StatusCode)
	}
	return resp.Body, nil
}
