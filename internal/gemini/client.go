package gemini

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/genai"

	"vibeforge/internal/config"
	"vibeforge/internal/logging"
)

// ErrContentBlocked is returned when the API refuses to complete a request
// because of safety or recitation filtering. Callers can retry with a
// different prompt or strategy.
var ErrContentBlocked = errors.New("content blocked by model filters")

// Client wraps the Gemini API for code correction. Every request carries a
// persona system prompt so the model answers as the right specialist.
type Client struct {
	client      *genai.Client
	model       string
	temperature float32
	maxTokens   int32
	timeout     time.Duration
}

// NewClient creates a Gemini client from configuration.
func NewClient(ctx context.Context, cfg config.GeminiConfig) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	model := cfg.Model
	if model == "" {
		model = "gemini-2.0-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	timeout, err := time.ParseDuration(cfg.Timeout)
	if err != nil {
		timeout = 120 * time.Second
	}

	logging.API("Gemini client initialized with model: %s", model)

	return &Client{
		client:      client,
		model:       model,
		temperature: float32(cfg.Temperature),
		maxTokens:   int32(cfg.MaxTokens),
		timeout:     timeout,
	}, nil
}

// FixCode asks the model to repair a single file and returns the corrected
// content. On API failure the original content is returned alongside the
// error so callers can keep going with what they had.
func (c *Client) FixCode(ctx context.Context, path, content string, errList []string, strategy string, persona Persona) (string, error) {
	prompt := BuildFixPrompt(path, content, errList, strategy)

	response, err := c.generate(ctx, prompt, persona)
	if err != nil {
		logging.APIError("Fix request failed for %s: %v", path, err)
		return content, err
	}

	return ExtractCode(response), nil
}

// RegenerateFile asks the model to rewrite a file from scratch. Used by the
// rewrite strategy when incremental fixes keep failing.
func (c *Client) RegenerateFile(ctx context.Context, path, content string, errList []string) (string, error) {
	prompt := BuildRewritePrompt(path, content, errList)

	response, err := c.generate(ctx, prompt, PersonaSeniorDeveloper)
	if err != nil {
		logging.APIError("Rewrite request failed for %s: %v", path, err)
		return content, err
	}

	return ExtractCode(response), nil
}

// Close releases client resources. The SDK client holds no resources that
// need explicit release, so this is a no-op hook for callers.
func (c *Client) Close() error {
	return nil
}

func (c *Client) generate(ctx context.Context, prompt string, persona Persona) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(persona.SystemPrompt(), genai.RoleUser),
	}
	if c.temperature > 0 {
		cfg.Temperature = genai.Ptr(c.temperature)
	}
	if c.maxTokens > 0 {
		cfg.MaxOutputTokens = c.maxTokens
	}

	result, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), cfg)
	if err != nil {
		return "", fmt.Errorf("gemini generation failed: %w", err)
	}

	if len(result.Candidates) > 0 {
		switch result.Candidates[0].FinishReason {
		case genai.FinishReasonSafety, genai.FinishReasonProhibitedContent:
			return "", fmt.Errorf("%w: safety filter", ErrContentBlocked)
		case genai.FinishReasonRecitation:
			return "", fmt.Errorf("%w: recitation filter", ErrContentBlocked)
		}
	}

	text := result.Text()
	if text == "" {
		return "", fmt.Errorf("empty response from model")
	}

	return text, nil
}
