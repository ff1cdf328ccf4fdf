// Package invoke sends resolved prompts to a hosted model and returns the raw
// text or parsed JSON object, tagged with provenance.
//
// Invoke never validates against a schema; that is the normalizer's job once
// defaults have been filled.
package invoke

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/waks132/messiahx-sub000/internal/prompts"
	"github.com/waks132/messiahx-sub000/internal/providers"
)

// Format selects the expected output shape.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

var (
	// ErrEmptyResponse is returned when the model succeeds with no text.
	ErrEmptyResponse = errors.New("model returned an empty response")

	// ErrMalformedOutput is returned when JSON output cannot be parsed.
	ErrMalformedOutput = errors.New("model output is not valid JSON")
)

// Config is the fixed per-action model configuration.
type Config struct {
	Temperature float64
	Format      Format
	Schema      json.RawMessage // JSON schema document for FormatJSON
	SchemaName  string
	MaxTokens   int
	Model       string // Provider default when empty
	Provider    string // Adapter default when empty
}

// Provenance identifies where a response came from.
type Provenance struct {
	Feature   string `json:"feature"`
	Style     string `json:"style,omitempty"`
	Provider  string `json:"provider,omitempty"`
	Model     string `json:"model,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// Usage is token and cost accounting for one call.
type Usage struct {
	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
	TotalTokens      int     `json:"total_tokens"`
	CostUSD          float64 `json:"cost_usd"`
}

// Response is the outcome of one model call.
type Response struct {
	Provenance Provenance
	Text       string
	Object     json.RawMessage // Set for FormatJSON
	Usage      Usage
	Latency    time.Duration
}

// InvocationError is a transport or model failure.
type InvocationError struct {
	Message string
	Cause   error
	Details map[string]any
}

func (e *InvocationError) Error() string {
	return e.Message
}

func (e *InvocationError) Unwrap() error {
	return e.Cause
}

// Clients looks up a model client by provider name.
type Clients interface {
	GetLLM(name string) (providers.LLMClient, error)
}

// Adapter invokes hosted models through a provider registry.
type Adapter struct {
	clients Clients
	logger  *slog.Logger

	mu       sync.RWMutex
	provider string
}

// NewAdapter creates an adapter that uses provider unless a call overrides it.
func NewAdapter(clients Clients, provider string, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{clients: clients, provider: provider, logger: logger}
}

// Provider returns the default provider name.
func (a *Adapter) Provider() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.provider
}

// SetProvider changes the default provider for later calls.
func (a *Adapter) SetProvider(name string) {
	a.mu.Lock()
	a.provider = name
	a.mu.Unlock()
}

// Invoke sends prompt to the configured model. The returned Response is
// non-nil whenever err is an *InvocationError, ErrEmptyResponse or
// ErrMalformedOutput, so callers can keep its provenance.
func (a *Adapter) Invoke(ctx context.Context, prompt prompts.ResolvedPrompt, cfg Config) (*Response, error) {
	start := time.Now()

	providerName := cfg.Provider
	if providerName == "" {
		providerName = a.Provider()
	}
	resp := &Response{
		Provenance: Provenance{
			Feature:   string(prompt.Feature),
			Style:     prompt.Style,
			Provider:  providerName,
			Model:     cfg.Model,
			RequestID: uuid.New().String(),
		},
	}

	client, err := a.clients.GetLLM(providerName)
	if err != nil {
		return resp, &InvocationError{
			Message: fmt.Sprintf("no model provider available (%s)", providerName),
			Cause:   err,
		}
	}

	req := &providers.ChatRequest{
		Messages:    buildMessages(prompt),
		Model:       cfg.Model,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
		RequestID:   resp.Provenance.RequestID,
	}
	if cfg.Format == FormatJSON {
		req.ResponseFormat = responseFormat(prompt, cfg)
	}

	result, err := client.Chat(ctx, req)
	resp.Latency = time.Since(start)
	if result != nil {
		resp.Usage = Usage{
			PromptTokens:     result.PromptTokens,
			CompletionTokens: result.CompletionTokens,
			TotalTokens:      result.TotalTokens,
			CostUSD:          result.CostUSD,
		}
		if result.ModelUsed != "" {
			resp.Provenance.Model = result.ModelUsed
		}
	}
	if err != nil {
		a.logger.Warn("model invocation failed",
			"feature", prompt.Feature,
			"style", prompt.Style,
			"provider", providerName,
			"error", err)
		return resp, invocationError(err)
	}

	resp.Text = result.Content
	if strings.TrimSpace(result.Content) == "" && len(result.ParsedJSON) == 0 {
		return resp, ErrEmptyResponse
	}

	if cfg.Format == FormatJSON {
		obj := result.ParsedJSON
		if len(obj) == 0 {
			obj, err = providers.ParseStructuredJSON(result.Content)
			if err != nil {
				a.logger.Warn("model returned malformed JSON",
					"feature", prompt.Feature,
					"style", prompt.Style,
					"provider", providerName,
					"error", err)
				return resp, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
			}
		}
		// A bare null carries no content.
		if bytes.Equal(bytes.TrimSpace(obj), []byte("null")) {
			return resp, ErrEmptyResponse
		}
		resp.Object = obj
	}

	a.logger.Debug("model invocation complete",
		"feature", prompt.Feature,
		"style", prompt.Style,
		"provider", providerName,
		"model", resp.Provenance.Model,
		"tokens", resp.Usage.TotalTokens,
		"latency", resp.Latency)
	return resp, nil
}

// buildMessages sends the system body only when the template has one.
func buildMessages(prompt prompts.ResolvedPrompt) []providers.Message {
	msgs := make([]providers.Message, 0, 2)
	if strings.TrimSpace(prompt.System) != "" {
		msgs = append(msgs, providers.Message{Role: "system", Content: prompt.System})
	}
	return append(msgs, providers.Message{Role: "user", Content: prompt.User})
}

func responseFormat(prompt prompts.ResolvedPrompt, cfg Config) *providers.ResponseFormat {
	if len(cfg.Schema) == 0 {
		return &providers.ResponseFormat{Type: "json_object"}
	}
	name := cfg.SchemaName
	if name == "" {
		name = strings.ReplaceAll(string(prompt.Feature), "-", "_")
	}
	return providers.NewJSONSchemaFormat(name, cfg.Schema)
}

// invocationError keeps the provider's own message and payload when the
// failure came from the provider API.
func invocationError(err error) *InvocationError {
	var apiErr *providers.APIError
	if errors.As(err, &apiErr) {
		details := map[string]any{"provider": apiErr.Provider}
		if apiErr.StatusCode != 0 {
			details["status"] = apiErr.StatusCode
		}
		if apiErr.Code != "" {
			details["code"] = apiErr.Code
		}
		for k, v := range apiErr.Details {
			details[k] = v
		}
		msg := apiErr.Message
		if msg == "" {
			msg = err.Error()
		}
		return &InvocationError{Message: msg, Cause: err, Details: details}
	}
	return &InvocationError{Message: err.Error(), Cause: err}
}
