// Package analysis implements the model-backed actions: analyze, summarize,
// classify, detect narratives, reformulate, research, generate a persona and
// chat with it.
//
// Every action resolves its template, checks the payload size, invokes the
// model and normalizes the outcome. Model-side failures never surface as Go
// errors; they come back as a failed Envelope whose message field explains
// what happened in the caller's language.
package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/waks132/messiahx-sub000/internal/i18n"
	"github.com/waks132/messiahx-sub000/internal/invoke"
	"github.com/waks132/messiahx-sub000/internal/metrics"
	"github.com/waks132/messiahx-sub000/internal/normalize"
	"github.com/waks132/messiahx-sub000/internal/prompts"
)

// TemplateResolver resolves prompt templates.
type TemplateResolver interface {
	Resolve(ctx context.Context, feature prompts.Feature, style string) (*prompts.Template, error)
}

// Invoker sends resolved prompts to a model.
type Invoker interface {
	Invoke(ctx context.Context, prompt prompts.ResolvedPrompt, cfg invoke.Config) (*invoke.Response, error)
}

// Options configures a Service.
type Options struct {
	Provider  string // Adapter default when empty
	Model     string // Provider default when empty
	MaxTokens int
	Recorder  *metrics.Recorder
	Logger    *slog.Logger
}

// Service runs actions.
type Service struct {
	resolver   TemplateResolver
	invoker    Invoker
	normalizer *normalize.Normalizer
	opts       Options
	logger     *slog.Logger
}

// NewService creates an action service.
func NewService(resolver TemplateResolver, invoker Invoker, normalizer *normalize.Normalizer, opts Options) *Service {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if normalizer == nil {
		normalizer = normalize.New(opts.Logger)
	}
	return &Service{
		resolver:   resolver,
		invoker:    invoker,
		normalizer: normalizer,
		opts:       opts,
		logger:     opts.Logger,
	}
}

// action is the fixed configuration of one feature.
type action struct {
	feature      prompts.Feature
	format       invoke.Format
	schema       json.RawMessage
	messageField string
	temperature  float64
}

var (
	analyzeAction = action{
		feature:      prompts.FeatureAnalyze,
		format:       invoke.FormatJSON,
		schema:       analysisSchema,
		messageField: "analysisSummary",
		temperature:  0.2,
	}
	summarizeAction = action{
		feature:      prompts.FeatureSummarize,
		format:       invoke.FormatJSON,
		schema:       summarySchema,
		messageField: "summary",
		temperature:  0.4,
	}
	classifyAction = action{
		feature:      prompts.FeatureClassify,
		format:       invoke.FormatJSON,
		schema:       classificationSchema,
		messageField: "overallClassification.reasoning",
		temperature:  0.2,
	}
	detectAction = action{
		feature:      prompts.FeatureDetectNarrative,
		format:       invoke.FormatJSON,
		schema:       narrativeSchema,
		messageField: "overallAssessment",
		temperature:  0.2,
	}
	reformulateAction = action{
		feature:      prompts.FeatureReformulate,
		format:       invoke.FormatText,
		schema:       reformulationSchema,
		messageField: "reformulatedText",
		temperature:  0.7,
	}
	researchAction = action{
		feature:      prompts.FeatureResearch,
		format:       invoke.FormatJSON,
		schema:       researchSchema,
		messageField: "answer",
		temperature:  0.4,
	}
	personaAction = action{
		feature:      prompts.FeatureGeneratePersona,
		format:       invoke.FormatJSON,
		schema:       personaSchema,
		messageField: "description",
		temperature:  0.7,
	}
	chatAction = action{
		feature:      prompts.FeatureChat,
		format:       invoke.FormatText,
		schema:       chatSchema,
		messageField: "reply",
		temperature:  0.8,
	}
)

// call is one action invocation.
type call struct {
	style    string
	language string
	values   prompts.Values
	payloads []string // Checked against prompts.MaxInputLength before the model call
}

func run[T any](ctx context.Context, s *Service, a action, c call) *Envelope[T] {
	start := time.Now()
	style := prompts.NormalizeStyle(a.feature, c.style)
	spec := normalize.Spec{
		Feature:      a.feature,
		Style:        style,
		Format:       a.format,
		Schema:       a.schema,
		MessageField: a.messageField,
	}

	loc := i18n.Resolve(c.language)
	c.values.Language = loc.Name()

	resp, err := s.execute(ctx, a, style, c)
	res := s.normalizer.Normalize(resp, err, spec, c.language)

	s.record(res, time.Since(start))
	if res.Failed {
		s.logger.Warn("action failed",
			"feature", a.feature,
			"style", style,
			"outcome", res.Outcome,
			"message", res.Message)
	} else {
		s.logger.Debug("action complete",
			"feature", a.feature,
			"style", style,
			"provider", res.Provenance.Provider,
			"model", res.Provenance.Model)
	}

	env := &Envelope[T]{
		Provenance: res.Provenance,
		Locale:     res.Locale.String(),
		Failed:     res.Failed,
		Outcome:    res.Outcome,
		Message:    res.Message,
	}
	if err := res.Decode(&env.Result); err != nil {
		s.logger.Error("failed to decode normalized result", "feature", a.feature, "error", err)
	}
	return env
}

// execute checks payloads, resolves the template and calls the model.
func (s *Service) execute(ctx context.Context, a action, style string, c call) (*invoke.Response, error) {
	for _, p := range c.payloads {
		if err := prompts.CheckLength(p); err != nil {
			return nil, err
		}
	}

	tmpl, err := s.resolver.Resolve(ctx, a.feature, style)
	if err != nil {
		return nil, fmt.Errorf("resolve template: %w", err)
	}
	prompt := tmpl.Render(c.values)

	return s.invoker.Invoke(ctx, prompt, invoke.Config{
		Temperature: a.temperature,
		Format:      a.format,
		Schema:      a.schema,
		MaxTokens:   s.opts.MaxTokens,
		Model:       s.opts.Model,
		Provider:    s.opts.Provider,
	})
}

func (s *Service) record(res normalize.Result, elapsed time.Duration) {
	s.opts.Recorder.Record(metrics.Metric{
		Feature:          res.Provenance.Feature,
		Style:            res.Provenance.Style,
		Provider:         res.Provenance.Provider,
		Model:            res.Provenance.Model,
		CostUSD:          res.Usage.CostUSD,
		PromptTokens:     res.Usage.PromptTokens,
		CompletionTokens: res.Usage.CompletionTokens,
		TotalTokens:      res.Usage.TotalTokens,
		TotalSeconds:     elapsed.Seconds(),
		Outcome:          metrics.Outcome(res.Outcome),
	})
}

// Analyze looks for manipulative techniques, cognitive biases and
// unverifiable claims in text.
func (s *Service) Analyze(ctx context.Context, text, language string) *Envelope[AnalysisResult] {
	return run[AnalysisResult](ctx, s, analyzeAction, call{
		language: language,
		values:   prompts.Values{Text: text},
		payloads: []string{text},
	})
}

// Summarize summarizes text in the given style.
func (s *Service) Summarize(ctx context.Context, text, style, language string) *Envelope[SummaryResult] {
	return run[SummaryResult](ctx, s, summarizeAction, call{
		style:    style,
		language: language,
		values:   prompts.Values{Text: text},
		payloads: []string{text},
	})
}

// Classify classifies a text from its prior analysis.
func (s *Service) Classify(ctx context.Context, analysis AnalysisResult, language string) *Envelope[ClassificationResult] {
	rendered := RenderAnalysis(analysis)
	return run[ClassificationResult](ctx, s, classifyAction, call{
		language: language,
		values:   prompts.Values{Analysis: rendered},
		payloads: []string{rendered},
	})
}

// DetectNarratives detects narrative structures in text.
func (s *Service) DetectNarratives(ctx context.Context, text, style, language string) *Envelope[NarrativeResult] {
	return run[NarrativeResult](ctx, s, detectAction, call{
		style:    style,
		language: language,
		values:   prompts.Values{Text: text},
		payloads: []string{text},
	})
}

// Reformulate rewrites text in the given style.
func (s *Service) Reformulate(ctx context.Context, text, style, language string) *Envelope[ReformulationResult] {
	return run[ReformulationResult](ctx, s, reformulateAction, call{
		style:    style,
		language: language,
		values:   prompts.Values{Text: text},
		payloads: []string{text},
	})
}

// Research answers query using text as context.
func (s *Service) Research(ctx context.Context, query, text, style, language string) *Envelope[ResearchResult] {
	return run[ResearchResult](ctx, s, researchAction, call{
		style:    style,
		language: language,
		values:   prompts.Values{Query: query, Text: text},
		payloads: []string{text, query},
	})
}

// GeneratePersona creates a persona from a free-form description.
func (s *Service) GeneratePersona(ctx context.Context, description, language string) *Envelope[Persona] {
	return run[Persona](ctx, s, personaAction, call{
		language: language,
		values:   prompts.Values{Text: description},
		payloads: []string{description},
	})
}

// Chat answers message in the voice of persona.
func (s *Service) Chat(ctx context.Context, persona Persona, history []ChatTurn, message, language string) *Envelope[ChatReply] {
	rendered := RenderPersona(persona)
	transcript := RenderHistory(persona, history)
	return run[ChatReply](ctx, s, chatAction, call{
		language: language,
		values: prompts.Values{
			Persona: rendered,
			History: transcript,
			Message: message,
		},
		payloads: []string{message, rendered, transcript},
	})
}

// RenderAnalysis formats an analysis for the classification prompt.
func RenderAnalysis(a AnalysisResult) string {
	var b strings.Builder
	writeList(&b, "Manipulative techniques", a.ManipulativeTechniques)
	writeList(&b, "Cognitive biases", a.CognitiveBiases)
	writeList(&b, "Unverifiable facts", a.UnverifiableFacts)
	b.WriteString("Summary: ")
	b.WriteString(a.AnalysisSummary)
	return b.String()
}

func writeList(b *strings.Builder, title string, items []string) {
	b.WriteString(title)
	b.WriteString(":")
	if len(items) == 0 {
		b.WriteString(" none\n")
		return
	}
	b.WriteString("\n")
	for _, it := range items {
		b.WriteString("- ")
		b.WriteString(it)
		b.WriteString("\n")
	}
}

// RenderPersona formats a persona for the chat system prompt.
func RenderPersona(p Persona) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Name: %s\n", p.Name)
	fmt.Fprintf(&b, "Description: %s\n", p.Description)
	if len(p.Traits) > 0 {
		fmt.Fprintf(&b, "Traits: %s\n", strings.Join(p.Traits, ", "))
	}
	if p.SpeakingStyle != "" {
		fmt.Fprintf(&b, "Speaking style: %s\n", p.SpeakingStyle)
	}
	if p.Background != "" {
		fmt.Fprintf(&b, "Background: %s\n", p.Background)
	}
	return strings.TrimRight(b.String(), "\n")
}

// RenderHistory formats prior turns, one per line, labelled with the speaker.
func RenderHistory(p Persona, history []ChatTurn) string {
	if len(history) == 0 {
		return "(no previous messages)"
	}
	name := p.Name
	if name == "" {
		name = "Persona"
	}
	lines := make([]string, 0, len(history))
	for _, turn := range history {
		speaker := "User"
		if turn.Role != "user" {
			speaker = name
		}
		lines = append(lines, speaker+": "+turn.Content)
	}
	return strings.Join(lines, "\n")
}
