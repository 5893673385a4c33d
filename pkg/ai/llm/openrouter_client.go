package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/formlift/formlift/pkg/domain"
)

// OpenRouterClient talks to the OpenRouter API over its OpenAI-compatible
// wire format. It is hand-written rather than SDK-backed because the image
// fallback path needs the modalities request flag and the images payload in
// chat responses, which the SDK does not model.
type OpenRouterClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *log.Logger
}

// OpenRouterConfig for the OpenRouter client
type OpenRouterConfig struct {
	BaseURL string // default: https://openrouter.ai/api/v1
	APIKey  string
	Timeout time.Duration // default: 60s, the generation upper bound
}

// NewOpenRouterClient creates a new OpenRouter client
func NewOpenRouterClient(cfg OpenRouterConfig, logger *log.Logger) *OpenRouterClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://openrouter.ai/api/v1"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	if logger == nil {
		logger = log.Default()
	}

	return &OpenRouterClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger,
	}
}

// wire types

type orChatMessage struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"` // string or []orContentPart
}

type orContentPart struct {
	Type     string      `json:"type"` // text, image_url
	Text     string      `json:"text,omitempty"`
	ImageURL *orImageURL `json:"image_url,omitempty"`
}

type orImageURL struct {
	URL string `json:"url"`
}

type orChatRequest struct {
	Model       string          `json:"model"`
	Messages    []orChatMessage `json:"messages"`
	Temperature float32         `json:"temperature,omitempty"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
	Modalities  []string        `json:"modalities,omitempty"`
}

type orChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
			Images  []struct {
				Type     string     `json:"type"`
				ImageURL orImageURL `json:"image_url"`
			} `json:"images"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

type orImageRequest struct {
	Model       string `json:"model"`
	Prompt      string `json:"prompt"`
	AspectRatio string `json:"aspect_ratio,omitempty"`
}

type orImageResponse struct {
	Data []struct {
		URL     string `json:"url"`
		B64JSON string `json:"b64_json"`
	} `json:"data"`
}

type orErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// Chat sends a chat completion request to OpenRouter
func (c *OpenRouterClient) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if req.Model == "" {
		return nil, fmt.Errorf("chat request has no model")
	}
	c.logger.Printf("🔀 OpenRouter Chat: %d messages, model: %s", len(req.Messages), req.Model)

	messages := make([]orChatMessage, len(req.Messages))
	for i, msg := range req.Messages {
		messages[i] = orChatMessage{Role: msg.Role, Content: msg.Content}
	}

	var resp orChatResponse
	err := c.post(ctx, "/chat/completions", orChatRequest{
		Model:       req.Model,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("openrouter chat failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from openrouter")
	}

	return &ChatResponse{
		Message:      resp.Choices[0].Message.Content,
		TokensUsed:   resp.Usage.TotalTokens,
		FinishReason: resp.Choices[0].FinishReason,
	}, nil
}

// Complete sends a simple completion request (helper for single prompts)
func (c *OpenRouterClient) Complete(ctx context.Context, modelID, prompt string, systemPrompt ...string) (string, error) {
	messages := []ChatMessage{}

	if len(systemPrompt) > 0 && systemPrompt[0] != "" {
		messages = append(messages, ChatMessage{Role: "system", Content: systemPrompt[0]})
	}
	messages = append(messages, ChatMessage{Role: "user", Content: prompt})

	resp, err := c.Chat(ctx, ChatRequest{Model: modelID, Messages: messages})
	if err != nil {
		return "", err
	}
	return resp.Message, nil
}

// CreateImage calls the dedicated image-generation endpoint. When the
// provider has no route serving the model (a capability gap, not a
// transient failure) the error is classified as a capability error so the
// caller can switch to the chat-based fallback.
func (c *OpenRouterClient) CreateImage(ctx context.Context, modelID, prompt, aspectRatio string) ([]string, error) {
	c.logger.Printf("🔀 OpenRouter Image: model: %s", modelID)

	var resp orImageResponse
	err := c.post(ctx, "/images/generations", orImageRequest{
		Model:       modelID,
		Prompt:      prompt,
		AspectRatio: aspectRatio,
	}, &resp)
	if err != nil {
		if isMissingEndpoint(err.Error()) {
			return nil, domain.NewBackendCapabilityError("openrouter", modelID, err)
		}
		return nil, err
	}

	images := make([]string, 0, len(resp.Data))
	for _, d := range resp.Data {
		switch {
		case d.URL != "":
			images = append(images, d.URL)
		case d.B64JSON != "":
			images = append(images, "data:image/png;base64,"+d.B64JSON)
		}
	}
	return images, nil
}

// ChatImage requests image output through the general-purpose chat
// interface, for models that only expose image generation there. Reference
// images (URLs or data URIs) are packed into the message content.
func (c *OpenRouterClient) ChatImage(ctx context.Context, modelID, prompt string, referenceImages []string) ([]string, error) {
	c.logger.Printf("🔀 OpenRouter ChatImage: model: %s, refs: %d", modelID, len(referenceImages))

	parts := []orContentPart{{Type: "text", Text: prompt}}
	for _, ref := range referenceImages {
		parts = append(parts, orContentPart{Type: "image_url", ImageURL: &orImageURL{URL: ref}})
	}

	var resp orChatResponse
	err := c.post(ctx, "/chat/completions", orChatRequest{
		Model:      modelID,
		Messages:   []orChatMessage{{Role: "user", Content: parts}},
		Modalities: []string{"image", "text"},
	}, &resp)
	if err != nil {
		return nil, err
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from openrouter")
	}

	var images []string
	for _, img := range resp.Choices[0].Message.Images {
		if img.ImageURL.URL != "" {
			images = append(images, img.ImageURL.URL)
		}
	}
	return images, nil
}

// post executes one JSON request/response round trip
func (c *OpenRouterClient) post(ctx context.Context, path string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("openrouter returned status %d: %s", resp.StatusCode, apiErrorMessage(raw))
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// apiErrorMessage extracts the error message from an API error body,
// falling back to the raw body
func apiErrorMessage(raw []byte) string {
	var apiErr orErrorResponse
	if err := json.Unmarshal(raw, &apiErr); err == nil && apiErr.Error.Message != "" {
		return apiErr.Error.Message
	}
	return strings.TrimSpace(string(raw))
}

// isMissingEndpoint matches the provider's "no route serves this model"
// signal. The match is on error wording, which is brittle; keeping it in
// one predicate means hardening it later touches nothing else.
func isMissingEndpoint(msg string) bool {
	msg = strings.ToLower(msg)
	return strings.Contains(msg, "no endpoints found") || strings.Contains(msg, "no allowed providers")
}
