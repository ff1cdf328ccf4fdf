// Package normalize turns model responses and failures into result objects
// that always validate against the action's schema.
package normalize

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/waks132/messiahx-sub000/internal/i18n"
	"github.com/waks132/messiahx-sub000/internal/invoke"
	"github.com/waks132/messiahx-sub000/internal/prompts"
)

// Spec describes the expected result of one action.
type Spec struct {
	Feature prompts.Feature
	Style   string
	Format  invoke.Format
	Schema  json.RawMessage

	// MessageField is the dot path of the string field that carries the
	// text output for FormatText and the error message on failure.
	MessageField string
}

// Result is a normalized, schema-valid action result.
type Result struct {
	Value      map[string]any    `json:"result"`
	Provenance invoke.Provenance `json:"provenance"`
	Locale     i18n.Locale       `json:"locale"`
	Failed     bool              `json:"failed"`
	Outcome    string            `json:"outcome"`
	Message    string            `json:"message,omitempty"`
	Usage      invoke.Usage      `json:"usage"`
}

// Outcome values.
const (
	OutcomeSuccess         = "success"
	OutcomeInvocationError = "invocation_error"
	OutcomeEmptyResponse   = "empty_response"
	OutcomeTooLarge        = "payload_too_large"
	OutcomeInvalidResponse = "invalid_response"
)

// Decode re-encodes the result value into out.
func (r Result) Decode(out any) error {
	data, err := json.Marshal(r.Value)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode result: %w", err)
	}
	return nil
}

// Normalizer fills and validates results. It caches compiled schemas and is
// safe for concurrent use.
type Normalizer struct {
	logger *slog.Logger

	mu       sync.RWMutex
	compiled map[string]*jsonschema.Schema
}

// New creates a normalizer.
func New(logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{
		logger:   logger,
		compiled: make(map[string]*jsonschema.Schema),
	}
}

// Normalize converts the outcome of one invocation into a Result. err is the
// error returned by the adapter, or by a pre-call check such as
// prompts.CheckLength; resp may be nil. Normalize has no side effects and
// returns equal results for equal inputs.
func (n *Normalizer) Normalize(resp *invoke.Response, err error, spec Spec, language string) Result {
	loc := i18n.Resolve(language)
	res := Result{
		Locale:     loc,
		Provenance: provenance(resp, spec),
		Outcome:    OutcomeSuccess,
	}
	if resp != nil {
		res.Usage = resp.Usage
	}

	schema, schemaErr := ParseSchema(spec.Schema)
	if schemaErr != nil {
		n.logger.Error("invalid result schema", "feature", spec.Feature, "error", schemaErr)
	}

	if err != nil {
		outcome, msg := failureMessage(loc, spec, err)
		return n.failure(res, schema, spec, outcome, msg)
	}
	if resp == nil {
		return n.failure(res, schema, spec, OutcomeEmptyResponse, i18n.Message(loc, i18n.MsgEmptyResponse))
	}

	var value any
	switch spec.Format {
	case invoke.FormatJSON:
		if jsonErr := json.Unmarshal(resp.Object, &value); jsonErr != nil {
			return n.failure(res, schema, spec, OutcomeInvalidResponse, invalidMessage(loc, spec, jsonErr.Error()))
		}
	default:
		obj := map[string]any{}
		SetPath(obj, spec.MessageField, resp.Text)
		value = obj
	}

	filled := Fill(schema, value)
	obj, ok := filled.(map[string]any)
	if !ok {
		return n.failure(res, schema, spec, OutcomeInvalidResponse, invalidMessage(loc, spec, "expected a JSON object"))
	}
	if vErr := n.validate(spec.Schema, obj); vErr != nil {
		n.logger.Warn("model response failed schema validation",
			"feature", spec.Feature,
			"style", spec.Style,
			"error", vErr)
		return n.failure(res, schema, spec, OutcomeInvalidResponse, invalidMessage(loc, spec, summarizeValidation(vErr)))
	}

	res.Value = obj
	return res
}

// failure builds a schema-valid result whose message field holds msg.
func (n *Normalizer) failure(res Result, schema map[string]any, spec Spec, outcome, msg string) Result {
	obj := map[string]any{}
	SetPath(obj, spec.MessageField, msg)
	filled, _ := Fill(schema, obj).(map[string]any)
	if filled == nil {
		filled = obj
	}
	res.Value = filled
	res.Failed = true
	res.Outcome = outcome
	res.Message = msg
	return res
}

func provenance(resp *invoke.Response, spec Spec) invoke.Provenance {
	if resp != nil {
		p := resp.Provenance
		if p.Feature == "" {
			p.Feature = string(spec.Feature)
		}
		if p.Style == "" {
			p.Style = spec.Style
		}
		return p
	}
	return invoke.Provenance{Feature: string(spec.Feature), Style: spec.Style}
}

// failureMessage maps an error to its outcome and localized message.
func failureMessage(loc i18n.Locale, spec Spec, err error) (string, string) {
	var tooLarge *prompts.PayloadTooLargeError
	var invErr *invoke.InvocationError
	switch {
	case errors.As(err, &tooLarge):
		return OutcomeTooLarge, i18n.Message(loc, i18n.MsgPayloadTooLarge, tooLarge.Length, tooLarge.Max)
	case errors.Is(err, invoke.ErrEmptyResponse):
		return OutcomeEmptyResponse, i18n.Message(loc, i18n.MsgEmptyResponse)
	case errors.Is(err, invoke.ErrMalformedOutput):
		return OutcomeInvalidResponse, invalidMessage(loc, spec, err.Error())
	case errors.As(err, &invErr):
		return OutcomeInvocationError, i18n.FailureMessage(loc, string(spec.Feature), spec.Style, invErr.Message)
	default:
		return OutcomeInvocationError, i18n.FailureMessage(loc, string(spec.Feature), spec.Style, err.Error())
	}
}

func invalidMessage(loc i18n.Locale, spec Spec, detail string) string {
	return i18n.FailureMessage(loc, string(spec.Feature), spec.Style, i18n.Message(loc, i18n.MsgInvalidResponse, detail))
}

// validate checks obj against the raw schema. An empty schema accepts anything.
func (n *Normalizer) validate(raw json.RawMessage, obj map[string]any) error {
	if len(raw) == 0 {
		return nil
	}
	schema, err := n.compile(raw)
	if err != nil {
		return err
	}
	// Round-trip so numbers and nested values have the decoded JSON shapes
	// the validator expects.
	data, err := json.Marshal(obj)
	if err != nil {
		return fmt.Errorf("failed to encode result for validation: %w", err)
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to decode result for validation: %w", err)
	}
	return schema.Validate(doc)
}

func (n *Normalizer) compile(raw json.RawMessage) (*jsonschema.Schema, error) {
	sum := sha256.Sum256(raw)
	key := hex.EncodeToString(sum[:8])

	n.mu.RLock()
	s, ok := n.compiled[key]
	n.mu.RUnlock()
	if ok {
		return s, nil
	}

	url := key + ".json"
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(url, bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("failed to load result schema: %w", err)
	}
	s, err := compiler.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("failed to compile result schema: %w", err)
	}

	n.mu.Lock()
	n.compiled[key] = s
	n.mu.Unlock()
	return s, nil
}

// summarizeValidation keeps the first line of a validation error.
func summarizeValidation(err error) string {
	var vErr *jsonschema.ValidationError
	if errors.As(err, &vErr) {
		leaf := vErr
		for len(leaf.Causes) > 0 {
			leaf = leaf.Causes[0]
		}
		loc := leaf.InstanceLocation
		if loc == "" {
			loc = "/"
		}
		return fmt.Sprintf("%s: %s", loc, leaf.Message)
	}
	msg := err.Error()
	if i := strings.IndexByte(msg, '\n'); i >= 0 {
		msg = msg[:i]
	}
	return msg
}
