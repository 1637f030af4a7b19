// Package litellm provides an HTTP client for the LiteLLM proxy, used to
// generate explanation narratives through its OpenAI-compatible API.
package litellm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Strob0t/MailWarden/internal/port/narrative"
	"github.com/Strob0t/MailWarden/internal/resilience"
)

// Model represents a configured model in LiteLLM.
type Model struct {
	ModelName string         `json:"model_name"`
	Provider  string         `json:"litellm_provider,omitempty"`
	ModelInfo map[string]any `json:"model_info,omitempty"`
}

// Message is a single chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the body of a chat completion call.
type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature"`
}

// Usage reports token consumption of a completion.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

// ChatResponse is the decoded completion.
type ChatResponse struct {
	Model   string `json:"model"`
	Content string `json:"-"`
	Usage   Usage  `json:"usage"`
}

// ErrEmptyCompletion is returned when the proxy answers without choices.
var ErrEmptyCompletion = errors.New("litellm returned no choices")

// Client talks to the LiteLLM proxy.
type Client struct {
	baseURL    string
	masterKey  string
	httpClient *http.Client
	breaker    *resilience.Breaker
}

// NewClient creates a new LiteLLM client.
func NewClient(baseURL, masterKey string) *Client {
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		masterKey: masterKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SetBreaker attaches a circuit breaker to all outgoing HTTP calls.
func (c *Client) SetBreaker(b *resilience.Breaker) {
	c.breaker = b
}

// ChatCompletion sends a chat completion request.
func (c *Client) ChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal chat request: %w", err)
	}

	data, err := c.doRequest(ctx, http.MethodPost, "/v1/chat/completions", body)
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}

	var raw struct {
		Model   string `json:"model"`
		Choices []struct {
			Message Message `json:"message"`
		} `json:"choices"`
		Usage Usage `json:"usage"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal chat response: %w", err)
	}
	if len(raw.Choices) == 0 {
		return nil, ErrEmptyCompletion
	}
	return &ChatResponse{Model: raw.Model, Content: raw.Choices[0].Message.Content, Usage: raw.Usage}, nil
}

// ListModels returns all configured models from LiteLLM.
func (c *Client) ListModels(ctx context.Context) ([]Model, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/model/info", nil)
	if err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}

	var result struct {
		Data []Model `json:"data"`
	}
	if err := json.Unmarshal(resp, &result); err != nil {
		return nil, fmt.Errorf("unmarshal models: %w", err)
	}
	return result.Data, nil
}

// Health checks if LiteLLM is healthy.
func (c *Client) Health(ctx context.Context) (bool, error) {
	_, err := c.doRequest(ctx, http.MethodGet, "/health/liveliness", nil)
	return err == nil, err
}

// Generator adapts the client to the narrative port for one model.
type Generator struct {
	client *Client
	model  string
}

// DefaultModel is used when no model is configured.
const DefaultModel = "gpt-4o-mini"

// NewGenerator creates a narrative generator backed by model.
func NewGenerator(c *Client, model string) *Generator {
	if model == "" {
		model = DefaultModel
	}
	return &Generator{client: c, model: model}
}

// Generate implements narrative.Generator.
func (g *Generator) Generate(ctx context.Context, req narrative.Request) (string, error) {
	msgs := make([]Message, 0, 2)
	if req.System != "" {
		msgs = append(msgs, Message{Role: "system", Content: req.System})
	}
	msgs = append(msgs, Message{Role: "user", Content: req.Prompt})

	resp, err := g.client.ChatCompletion(ctx, ChatRequest{
		Model:       g.model,
		Messages:    msgs,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	})
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

func (c *Client) doRequest(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	var result []byte
	call := func() error {
		var bodyReader io.Reader
		if body != nil {
			bodyReader = bytes.NewReader(body)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}

		req.Header.Set("Content-Type", "application/json")
		if c.masterKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.masterKey)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("http request: %w", err)
		}
		defer func() { _ = resp.Body.Close() }()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}

		if resp.StatusCode >= 400 {
			return fmt.Errorf("litellm API error %d: %s", resp.StatusCode, string(data))
		}

		result = data
		return nil
	}

	if c.breaker != nil {
		if err := c.breaker.Execute(call); err != nil {
			return nil, err
		}
		return result, nil
	}

	if err := call(); err != nil {
		return nil, err
	}
	return result, nil
}
