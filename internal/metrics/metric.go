// Package metrics provides cost, usage and outcome tracking for model calls,
// template resolution and remote configuration refreshes.
package metrics

// Outcome labels the result of one action.
type Outcome string

const (
	OutcomeSuccess         Outcome = "success"
	OutcomeInvocationError Outcome = "invocation_error"
	OutcomeEmptyResponse   Outcome = "empty_response"
	OutcomeTooLarge        Outcome = "payload_too_large"
	OutcomeInvalidResponse Outcome = "invalid_response"
)

// Metric represents a single recorded action outcome.
type Metric struct {
	// Attribution
	Feature string `json:"feature"`
	Style   string `json:"style,omitempty"`

	// Provider info
	Provider string `json:"provider,omitempty"`
	Model    string `json:"model,omitempty"`

	// Cost and tokens
	CostUSD          float64 `json:"cost_usd,omitempty"`
	PromptTokens     int     `json:"prompt_tokens,omitempty"`
	CompletionTokens int     `json:"completion_tokens,omitempty"`
	TotalTokens      int     `json:"total_tokens,omitempty"`

	// Timing
	TotalSeconds float64 `json:"total_seconds,omitempty"`

	Outcome Outcome `json:"outcome"`
}

// Success reports whether the action produced model content.
func (m Metric) Success() bool {
	return m.Outcome == OutcomeSuccess
}
