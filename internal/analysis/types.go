package analysis

import (
	"github.com/waks132/messiahx-sub000/internal/invoke"
)

// Envelope wraps a typed action result with its provenance and outcome.
// Result is schema-complete whether or not the action failed.
type Envelope[T any] struct {
	Result     T                 `json:"result"`
	Provenance invoke.Provenance `json:"provenance"`
	Locale     string            `json:"locale"`
	Failed     bool              `json:"failed"`
	Outcome    string            `json:"outcome"`
	Message    string            `json:"message,omitempty"`
}

// AnalysisResult is the output of Analyze.
type AnalysisResult struct {
	ManipulativeTechniques []string `json:"manipulativeTechniques"`
	CognitiveBiases        []string `json:"cognitiveBiases"`
	UnverifiableFacts      []string `json:"unverifiableFacts"`
	AnalysisSummary        string   `json:"analysisSummary"`
}

// SummaryResult is the output of Summarize.
type SummaryResult struct {
	Summary   string   `json:"summary"`
	KeyPoints []string `json:"keyPoints"`
}

// Classification is one scored category.
type Classification struct {
	Type      string  `json:"type"`
	Score     float64 `json:"score"`
	Reasoning string  `json:"reasoning"`
}

// ClassificationResult is the output of Classify.
type ClassificationResult struct {
	ClassifiedCategories  []Classification `json:"classifiedCategories"`
	OverallClassification Classification   `json:"overallClassification"`
}

// Narrative is one detected narrative structure.
type Narrative struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Confidence  float64  `json:"confidence"`
	Indicators  []string `json:"indicators"`
}

// NarrativeResult is the output of DetectNarratives.
type NarrativeResult struct {
	Narratives        []Narrative `json:"narratives"`
	OverallAssessment string      `json:"overallAssessment"`
}

// ReformulationResult is the output of Reformulate.
type ReformulationResult struct {
	ReformulatedText string `json:"reformulatedText"`
}

// Source is a research reference.
type Source struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// ResearchResult is the output of Research.
type ResearchResult struct {
	Answer      string   `json:"answer"`
	KeyFindings []string `json:"keyFindings"`
	Sources     []Source `json:"sources"`
}

// Persona is a generated conversation partner.
type Persona struct {
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	Traits        []string `json:"traits"`
	SpeakingStyle string   `json:"speakingStyle"`
	Background    string   `json:"background"`
}

// ChatTurn is one message of a persona conversation.
type ChatTurn struct {
	Role    string `json:"role"` // "user" or "persona"
	Content string `json:"content"`
}

// ChatReply is the output of Chat.
type ChatReply struct {
	Reply string `json:"reply"`
}
