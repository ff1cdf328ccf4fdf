package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"google.golang.org/genai"
)

const (
	GeminiName         = "gemini"
	geminiDefaultModel = "gemini-2.5-flash"
)

// GeminiConfig holds configuration for the Gemini client.
type GeminiConfig struct {
	APIKey       string
	DefaultModel string
	Timeout      time.Duration
	BaseURL      string       // Optional (tests)
	HTTPClient   *http.Client // Optional (tests)
}

// GeminiClient implements LLMClient using the Google GenAI SDK.
type GeminiClient struct {
	apiKey       string
	defaultModel string
	client       *genai.Client
}

// NewGeminiClient creates a new Gemini client.
func NewGeminiClient(ctx context.Context, cfg GeminiConfig) (*GeminiClient, error) {
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = geminiDefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	clientCfg := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &GeminiClient{
		apiKey:       cfg.APIKey,
		defaultModel: cfg.DefaultModel,
		client:       client,
	}, nil
}

// Name returns the client identifier.
func (c *GeminiClient) Name() string {
	return GeminiName
}

// Chat sends a generateContent request. System messages become the system
// instruction; everything else is sent as user content.
func (c *GeminiClient) Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	start := time.Now()

	requestID := req.RequestID
	if requestID == "" {
		requestID = uuid.New().String()
	}
	model := req.Model
	if model == "" {
		model = c.defaultModel
	}

	system, user := messagesToPair(req.Messages)
	contents := []*genai.Content{
		genai.NewContentFromText(user, genai.RoleUser),
	}

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(req.Temperature)),
	}
	if system != "" {
		config.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxTokens)
	}
	if req.ResponseFormat != nil {
		schema, err := req.ResponseFormat.Schema()
		if err != nil {
			return nil, err
		}
		config.ResponseMIMEType = "application/json"
		if len(schema) > 0 {
			var schemaDoc map[string]any
			if err := json.Unmarshal(schema, &schemaDoc); err != nil {
				return nil, fmt.Errorf("invalid response schema: %w", err)
			}
			config.ResponseJsonSchema = schemaDoc
		}
	}

	result := &ChatResult{
		RequestID: requestID,
		Provider:  GeminiName,
		Attempts:  1,
	}

	resp, err := c.client.Models.GenerateContent(ctx, model, contents, config)
	if err != nil {
		err = geminiError(err)
		result.ErrorType = "api_error"
		result.ErrorMessage = err.Error()
		result.TotalTime = time.Since(start)
		return result, err
	}

	content := resp.Text()
	result.Success = true
	result.Content = content
	result.ModelUsed = resp.ModelVersion
	if result.ModelUsed == "" {
		result.ModelUsed = model
	}
	if resp.UsageMetadata != nil {
		result.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
		result.CompletionTokens = int(resp.UsageMetadata.CandidatesTokenCount)
		result.TotalTokens = int(resp.UsageMetadata.TotalTokenCount)
	}
	result.ExecutionTime = time.Since(start)
	result.TotalTime = result.ExecutionTime

	if req.ResponseFormat != nil && content != "" {
		if parsed, err := ParseStructuredJSON(content); err == nil {
			result.ParsedJSON = parsed
		} else {
			result.ErrorType = "json_parse"
			result.ErrorMessage = err.Error()
		}
	}
	return result, nil
}

// geminiError converts SDK errors to *APIError.
func geminiError(err error) error {
	var apiErr genai.APIError
	if ptr := (*genai.APIError)(nil); errors.As(err, &ptr) && ptr != nil {
		apiErr = *ptr
	} else if !errors.As(err, &apiErr) {
		return err
	}
	out := &APIError{
		Provider:   GeminiName,
		StatusCode: apiErr.Code,
		Code:       apiErr.Status,
		Message:    apiErr.Message,
	}
	if len(apiErr.Details) > 0 {
		out.Details = map[string]any{"details": apiErr.Details}
	}
	return out
}

// Verify interface
var _ LLMClient = (*GeminiClient)(nil)
