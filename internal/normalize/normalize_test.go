package normalize

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/waks132/messiahx-sub000/internal/i18n"
	"github.com/waks132/messiahx-sub000/internal/invoke"
	"github.com/waks132/messiahx-sub000/internal/prompts"
)

var classificationSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"classifiedCategories": {
			"type": "array",
			"items": {
				"type": "object",
				"properties": {
					"category": {"type": "string"},
					"score": {"type": "number"}
				},
				"required": ["category", "score"]
			}
		},
		"overallClassification": {
			"type": "object",
			"default": {"type": "other", "score": 0, "reasoning": ""},
			"properties": {
				"type": {"type": "string", "default": "other"},
				"score": {"type": "number", "minimum": 0, "maximum": 1},
				"reasoning": {"type": "string"}
			},
			"required": ["type", "score", "reasoning"]
		}
	},
	"required": ["classifiedCategories", "overallClassification"]
}`)

var summarySchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"summary": {"type": "string"},
		"keyPoints": {"type": "array", "items": {"type": "string"}}
	},
	"required": ["summary", "keyPoints"],
	"additionalProperties": false
}`)

var reformulationSchema = json.RawMessage(`{
	"type": "object",
	"properties": {"reformulatedText": {"type": "string"}},
	"required": ["reformulatedText"]
}`)

func classifySpec() Spec {
	return Spec{
		Feature:      prompts.FeatureClassify,
		Style:        "default",
		Format:       invoke.FormatJSON,
		Schema:       classificationSchema,
		MessageField: "overallClassification.reasoning",
	}
}

func summarySpec() Spec {
	return Spec{
		Feature:      prompts.FeatureSummarize,
		Style:        "critical",
		Format:       invoke.FormatJSON,
		Schema:       summarySchema,
		MessageField: "summary",
	}
}

func TestNormalize_FillsMissingFields(t *testing.T) {
	n := New(nil)
	resp := &invoke.Response{
		Provenance: invoke.Provenance{Feature: "classify", Style: "default", Provider: "mock"},
		Object:     json.RawMessage(`{"classifiedCategories": []}`),
	}

	res := n.Normalize(resp, nil, classifySpec(), "en")
	if res.Failed {
		t.Fatalf("unexpected failure: %s", res.Message)
	}

	want := map[string]any{
		"classifiedCategories": []any{},
		"overallClassification": map[string]any{
			"type":      "other",
			"score":     float64(0),
			"reasoning": "",
		},
	}
	if diff := cmp.Diff(want, res.Value); diff != "" {
		t.Errorf("Value mismatch (-want +got):\n%s", diff)
	}
	if res.Provenance.Provider != "mock" {
		t.Errorf("Provenance = %+v", res.Provenance)
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	n := New(nil)
	resp := &invoke.Response{
		Provenance: invoke.Provenance{Feature: "classify", RequestID: "r1"},
		Object:     json.RawMessage(`{"classifiedCategories":[{"category":"propaganda"}],"overallClassification":{"type":"propaganda"}}`),
	}

	first := n.Normalize(resp, nil, classifySpec(), "fr")
	second := n.Normalize(resp, nil, classifySpec(), "fr")
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("Normalize not idempotent (-first +second):\n%s", diff)
	}

	// Feeding a normalized value back in changes nothing.
	data, _ := json.Marshal(first.Value)
	again := n.Normalize(&invoke.Response{Provenance: resp.Provenance, Object: data}, nil, classifySpec(), "fr")
	if diff := cmp.Diff(first, again); diff != "" {
		t.Errorf("re-normalizing changed the result (-first +again):\n%s", diff)
	}

	failed := []Result{
		n.Normalize(nil, errors.New("boom"), summarySpec(), "en"),
		n.Normalize(nil, errors.New("boom"), summarySpec(), "en"),
	}
	if diff := cmp.Diff(failed[0], failed[1]); diff != "" {
		t.Errorf("failure normalization not idempotent:\n%s", diff)
	}
}

func TestNormalize_Failures(t *testing.T) {
	n := New(nil)

	t.Run("invocation error in french", func(t *testing.T) {
		err := &invoke.InvocationError{Message: "quota exceeded", Cause: errors.New("quota exceeded")}
		res := n.Normalize(&invoke.Response{}, err, summarySpec(), "fr")

		if !res.Failed || res.Outcome != OutcomeInvocationError {
			t.Fatalf("Failed = %v, Outcome = %q", res.Failed, res.Outcome)
		}
		msg, _ := res.Value["summary"].(string)
		if !strings.HasPrefix(msg, "Échec de la génération du résumé critique") {
			t.Errorf("summary = %q", msg)
		}
		if !strings.Contains(msg, "quota exceeded") {
			t.Errorf("summary = %q, want cause text", msg)
		}
		if kp, ok := res.Value["keyPoints"].([]any); !ok || len(kp) != 0 {
			t.Errorf("keyPoints = %#v, want empty array", res.Value["keyPoints"])
		}
		if res.Locale != i18n.French {
			t.Errorf("Locale = %q", res.Locale)
		}
	})

	t.Run("plain error uses error text", func(t *testing.T) {
		res := n.Normalize(nil, errors.New("dial tcp: refused"), summarySpec(), "en")
		if got := res.Value["summary"]; got != "Failed to generate summary critical: dial tcp: refused" {
			t.Errorf("summary = %q", got)
		}
		if res.Provenance.Feature != "summarize" || res.Provenance.Style != "critical" {
			t.Errorf("Provenance = %+v", res.Provenance)
		}
	})

	t.Run("empty response", func(t *testing.T) {
		spec := Spec{
			Feature:      prompts.FeatureReformulate,
			Style:        "paranoid",
			Format:       invoke.FormatText,
			Schema:       reformulationSchema,
			MessageField: "reformulatedText",
		}
		res := n.Normalize(&invoke.Response{}, invoke.ErrEmptyResponse, spec, "en")
		if res.Outcome != OutcomeEmptyResponse {
			t.Errorf("Outcome = %q", res.Outcome)
		}
		if got := res.Value["reformulatedText"]; got != i18n.Message(i18n.English, i18n.MsgEmptyResponse) {
			t.Errorf("reformulatedText = %q", got)
		}
	})

	t.Run("payload too large", func(t *testing.T) {
		err := prompts.CheckLength(strings.Repeat("a", prompts.MaxInputLength+1))
		res := n.Normalize(nil, err, summarySpec(), "en")
		if res.Outcome != OutcomeTooLarge {
			t.Errorf("Outcome = %q", res.Outcome)
		}
		msg := res.Value["summary"].(string)
		if !strings.Contains(msg, "100001") || !strings.Contains(msg, "100000") {
			t.Errorf("summary = %q, want exact counts", msg)
		}
	})

	t.Run("malformed output", func(t *testing.T) {
		err := errors.Join(invoke.ErrMalformedOutput)
		res := n.Normalize(&invoke.Response{Text: "nope"}, err, summarySpec(), "en")
		if res.Outcome != OutcomeInvalidResponse {
			t.Errorf("Outcome = %q", res.Outcome)
		}
	})

	t.Run("schema violation becomes failure", func(t *testing.T) {
		resp := &invoke.Response{Object: json.RawMessage(`{"summary": 42}`)}
		res := n.Normalize(resp, nil, summarySpec(), "en")
		if !res.Failed || res.Outcome != OutcomeInvalidResponse {
			t.Fatalf("Failed = %v, Outcome = %q", res.Failed, res.Outcome)
		}
		msg := res.Value["summary"].(string)
		if !strings.HasPrefix(msg, "Failed to generate summary critical: invalid model response") {
			t.Errorf("summary = %q", msg)
		}
	})

	t.Run("non-object output becomes failure", func(t *testing.T) {
		resp := &invoke.Response{Object: json.RawMessage(`["a","b"]`)}
		res := n.Normalize(resp, nil, summarySpec(), "en")
		if res.Outcome != OutcomeInvalidResponse {
			t.Errorf("Outcome = %q", res.Outcome)
		}
	})

	t.Run("nested message field", func(t *testing.T) {
		res := n.Normalize(nil, errors.New("boom"), classifySpec(), "en")
		oc, _ := res.Value["overallClassification"].(map[string]any)
		if oc["type"] != "other" || oc["score"] != float64(0) {
			t.Errorf("overallClassification = %#v", oc)
		}
		if !strings.Contains(oc["reasoning"].(string), "boom") {
			t.Errorf("reasoning = %q", oc["reasoning"])
		}
	})
}

func TestNormalize_FailuresAreSchemaValid(t *testing.T) {
	n := New(nil)
	errs := []error{
		errors.New("boom"),
		invoke.ErrEmptyResponse,
		&prompts.PayloadTooLargeError{Length: 5, Max: 4},
	}
	for _, spec := range []Spec{summarySpec(), classifySpec()} {
		for _, err := range errs {
			res := n.Normalize(nil, err, spec, "fr")
			if vErr := n.validate(spec.Schema, res.Value); vErr != nil {
				t.Errorf("%s/%v: failure result does not validate: %v", spec.Feature, err, vErr)
			}
		}
	}
}

func TestNormalize_Text(t *testing.T) {
	n := New(nil)
	spec := Spec{
		Feature:      prompts.FeatureReformulate,
		Style:        "poetic",
		Format:       invoke.FormatText,
		Schema:       reformulationSchema,
		MessageField: "reformulatedText",
	}
	res := n.Normalize(&invoke.Response{Text: "roses"}, nil, spec, "en")
	if res.Failed {
		t.Fatalf("unexpected failure: %s", res.Message)
	}
	if res.Value["reformulatedText"] != "roses" {
		t.Errorf("Value = %v", res.Value)
	}

	var out struct {
		ReformulatedText string `json:"reformulatedText"`
	}
	if err := res.Decode(&out); err != nil || out.ReformulatedText != "roses" {
		t.Errorf("Decode() = %+v, %v", out, err)
	}
}
