package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	OpenRouterName    = "openrouter"
	OpenRouterBaseURL = "https://openrouter.ai/api/v1"
)

// OpenRouterConfig holds configuration for the OpenRouter client.
type OpenRouterConfig struct {
	APIKey       string
	BaseURL      string
	DefaultModel string
	Timeout      time.Duration
	MaxRetries   int           // Max HTTP attempts (default: 3)
	RetryDelay   time.Duration // Base delay between retries (default: 1s)
}

// OpenRouterClient implements LLMClient using the OpenRouter API.
type OpenRouterClient struct {
	apiKey       string
	baseURL      string
	defaultModel string
	client       *http.Client
	maxRetries   int
	retryDelay   time.Duration
}

// NewOpenRouterClient creates a new OpenRouter client.
func NewOpenRouterClient(cfg OpenRouterConfig) *OpenRouterClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = OpenRouterBaseURL
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = "google/gemini-2.5-flash"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = time.Second
	}

	return &OpenRouterClient{
		apiKey:       cfg.APIKey,
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		defaultModel: cfg.DefaultModel,
		client:       &http.Client{Timeout: cfg.Timeout},
		maxRetries:   cfg.MaxRetries,
		retryDelay:   cfg.RetryDelay,
	}
}

// Name returns the client identifier.
func (c *OpenRouterClient) Name() string {
	return OpenRouterName
}

// Chat sends a chat completion request. When a response format is set and the
// reply cannot be parsed as JSON, the model is asked to repair its output.
func (c *OpenRouterClient) Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	start := time.Now()

	requestID := req.RequestID
	if requestID == "" {
		requestID = uuid.New().String()
	}

	model := req.Model
	if model == "" {
		model = c.defaultModel
	}

	orReq := openRouterRequest{
		Model:       model,
		Messages:    make([]openRouterMessage, 0, len(req.Messages)),
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Usage:       &openRouterUsageRequest{Include: true},
	}
	for _, m := range req.Messages {
		orReq.Messages = append(orReq.Messages, openRouterMessage{Role: m.Role, Content: m.Content})
	}

	rf, err := adaptedResponseFormat(model, req.ResponseFormat)
	if err != nil {
		return nil, err
	}
	orReq.ResponseFormat = rf

	result := &ChatResult{
		RequestID: requestID,
		Provider:  OpenRouterName,
	}

	for repair := 0; ; repair++ {
		result.Attempts++

		orResp, httpErr := c.doRequest(ctx, "/chat/completions", &orReq)
		if httpErr != nil {
			result.Success = false
			result.ErrorType = "http_error"
			result.ErrorMessage = httpErr.Error()
			result.TotalTime = time.Since(start)
			return result, httpErr
		}

		content, err := messageContent(orResp.Choices[0].Message.Content)
		if err != nil {
			result.Success = false
			result.ErrorType = "content_marshal_error"
			result.ErrorMessage = err.Error()
			result.TotalTime = time.Since(start)
			return result, err
		}

		result.Content = content
		result.ModelUsed = orResp.Model
		result.PromptTokens += orResp.Usage.PromptTokens
		result.CompletionTokens += orResp.Usage.CompletionTokens
		result.TotalTokens += orResp.Usage.TotalTokens
		result.CostUSD += orResp.Usage.Cost

		if req.ResponseFormat == nil || strings.TrimSpace(content) == "" {
			break
		}
		parsed, parseErr := ParseStructuredJSON(content)
		if parseErr == nil {
			result.ParsedJSON = parsed
			break
		}
		if repair >= maxStructuredRepairAttempts {
			result.ErrorType = "json_parse"
			result.ErrorMessage = parseErr.Error()
			break
		}
		orReq.Messages = append(orReq.Messages,
			openRouterMessage{Role: "assistant", Content: content},
			openRouterMessage{Role: "user", Content: structuredRepairPrompt(req.ResponseFormat, content, parseErr)},
		)
	}

	result.Success = true
	result.ExecutionTime = time.Since(start)
	result.TotalTime = result.ExecutionTime
	return result, nil
}

// messageContent flattens string or multipart message content to text.
func messageContent(content any) (string, error) {
	switch c := content.(type) {
	case nil:
		return "", nil
	case string:
		return c, nil
	case []any:
		var b strings.Builder
		for _, part := range c {
			if m, ok := part.(map[string]any); ok {
				if text, ok := m["text"].(string); ok {
					b.WriteString(text)
				}
			}
		}
		return b.String(), nil
	default:
		raw, err := json.Marshal(c)
		if err != nil {
			return "", fmt.Errorf("failed to marshal content: %w", err)
		}
		return string(raw), nil
	}
}

// Verify interface
var _ LLMClient = (*OpenRouterClient)(nil)
