package endpoints

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/waks132/messiahx-sub000/internal/analysis"
	"github.com/waks132/messiahx-sub000/internal/api"
	"github.com/waks132/messiahx-sub000/internal/prompts"
	"github.com/waks132/messiahx-sub000/internal/svcctx"
)

// TextRequest is the request body for actions on a single text.
type TextRequest struct {
	Text     string `json:"text"`
	Style    string `json:"style,omitempty"`
	Language string `json:"language,omitempty"`
}

// ClassifyRequest is the request body for classification.
type ClassifyRequest struct {
	Analysis analysis.AnalysisResult `json:"analysis"`
	Language string                  `json:"language,omitempty"`
}

// ResearchRequest is the request body for research.
type ResearchRequest struct {
	Query    string `json:"query"`
	Text     string `json:"text,omitempty"`
	Style    string `json:"style,omitempty"`
	Language string `json:"language,omitempty"`
}

// PersonaRequest is the request body for persona generation.
type PersonaRequest struct {
	Description string `json:"description"`
	Language    string `json:"language,omitempty"`
}

// ChatRequest is the request body for persona chat.
type ChatRequest struct {
	Persona  analysis.Persona    `json:"persona"`
	History  []analysis.ChatTurn `json:"history,omitempty"`
	Message  string              `json:"message"`
	Language string              `json:"language,omitempty"`
}

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 32 * prompts.MaxInputLength

// decodeBody reads a size-limited JSON body into v. It writes a 413 or 400
// response and returns false when the body cannot be used.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// decodeRequest decodes a JSON body and resolves the service. It writes the
// error response itself and returns ok=false when the request cannot proceed.
func decodeRequest[T any](w http.ResponseWriter, r *http.Request) (req T, svc *analysis.Service, ok bool) {
	if !decodeBody(w, r, &req) {
		return req, nil, false
	}
	svc = svcctx.ActionsFrom(r.Context())
	if svc == nil {
		writeError(w, http.StatusServiceUnavailable, "action service not initialized")
		return req, nil, false
	}
	return req, svc, true
}

// language returns the request language, or the server default.
func language(r *http.Request, lang string) string {
	if strings.TrimSpace(lang) != "" {
		return lang
	}
	return svcctx.LanguageFrom(r.Context())
}

// AnalyzeEndpoint handles POST /api/analyze.
type AnalyzeEndpoint struct{}

func (e *AnalyzeEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/analyze", e.handler
}

func (e *AnalyzeEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Analyze a text
//	@Description	Detect manipulative techniques, cognitive biases and unverifiable facts
//	@Tags			actions
//	@Accept			json
//	@Produce		json
//	@Param			request	body		TextRequest	true	"Text to analyze"
//	@Success		200		{object}	analysis.Envelope[analysis.AnalysisResult]
//	@Failure		400		{object}	ErrorResponse
//	@Router			/api/analyze [post]
func (e *AnalyzeEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	req, svc, ok := decodeRequest[TextRequest](w, r)
	if !ok {
		return
	}
	if req.Text == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}
	writeJSON(w, http.StatusOK, svc.Analyze(r.Context(), req.Text, language(r, req.Language)))
}

func (e *AnalyzeEndpoint) Command(getServerURL func() string) *cobra.Command {
	var in textInput
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze a text for manipulation and bias",
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := in.read(cmd.InOrStdin())
			if err != nil {
				return err
			}
			var resp analysis.Envelope[analysis.AnalysisResult]
			body := TextRequest{Text: text, Language: in.language}
			if err := api.NewClient(getServerURL()).Post(cmd.Context(), "/api/analyze", body, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	in.bind(cmd, false)
	return cmd
}

// SummarizeEndpoint handles POST /api/summarize.
type SummarizeEndpoint struct{}

func (e *SummarizeEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/summarize", e.handler
}

func (e *SummarizeEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary	Summarize a text
//	@Tags		actions
//	@Accept		json
//	@Produce	json
//	@Param		request	body		TextRequest	true	"Text and style (critical, academic, simple, bullet)"
//	@Success	200		{object}	analysis.Envelope[analysis.SummaryResult]
//	@Failure	400		{object}	ErrorResponse
//	@Router		/api/summarize [post]
func (e *SummarizeEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	req, svc, ok := decodeRequest[TextRequest](w, r)
	if !ok {
		return
	}
	if req.Text == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}
	writeJSON(w, http.StatusOK, svc.Summarize(r.Context(), req.Text, req.Style, language(r, req.Language)))
}

func (e *SummarizeEndpoint) Command(getServerURL func() string) *cobra.Command {
	var in textInput
	cmd := &cobra.Command{
		Use:   "summarize",
		Short: "Summarize a text",
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := in.read(cmd.InOrStdin())
			if err != nil {
				return err
			}
			var resp analysis.Envelope[analysis.SummaryResult]
			body := TextRequest{Text: text, Style: in.style, Language: in.language}
			if err := api.NewClient(getServerURL()).Post(cmd.Context(), "/api/summarize", body, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	in.bind(cmd, true)
	return cmd
}

// ClassifyEndpoint handles POST /api/classify.
type ClassifyEndpoint struct{}

func (e *ClassifyEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/classify", e.handler
}

func (e *ClassifyEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Classify an analyzed text
//	@Description	Classify a text from the result of /api/analyze
//	@Tags			actions
//	@Accept			json
//	@Produce		json
//	@Param			request	body		ClassifyRequest	true	"Prior analysis"
//	@Success		200		{object}	analysis.Envelope[analysis.ClassificationResult]
//	@Failure		400		{object}	ErrorResponse
//	@Router			/api/classify [post]
func (e *ClassifyEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	req, svc, ok := decodeRequest[ClassifyRequest](w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, svc.Classify(r.Context(), req.Analysis, language(r, req.Language)))
}

func (e *ClassifyEndpoint) Command(getServerURL func() string) *cobra.Command {
	var analysisFile, lang string
	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Classify a text from a prior analysis (JSON file, or - for stdin)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if analysisFile == "" {
				return fmt.Errorf("--analysis is required")
			}
			var a analysis.AnalysisResult
			if err := readJSONFile(analysisFile, cmd.InOrStdin(), &a); err != nil {
				return err
			}
			var resp analysis.Envelope[analysis.ClassificationResult]
			body := ClassifyRequest{Analysis: a, Language: lang}
			if err := api.NewClient(getServerURL()).Post(cmd.Context(), "/api/classify", body, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().StringVar(&analysisFile, "analysis", "", "Analysis result JSON file (required)")
	cmd.Flags().StringVar(&lang, "language", "", "Result language (fr or en)")
	return cmd
}

// DetectNarrativesEndpoint handles POST /api/detect-narrative.
type DetectNarrativesEndpoint struct{}

func (e *DetectNarrativesEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/detect-narrative", e.handler
}

func (e *DetectNarrativesEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary	Detect narrative structures
//	@Tags		actions
//	@Accept		json
//	@Produce	json
//	@Param		request	body		TextRequest	true	"Text and style (default, paranoid, conspiracy, messianic)"
//	@Success	200		{object}	analysis.Envelope[analysis.NarrativeResult]
//	@Failure	400		{object}	ErrorResponse
//	@Router		/api/detect-narrative [post]
func (e *DetectNarrativesEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	req, svc, ok := decodeRequest[TextRequest](w, r)
	if !ok {
		return
	}
	if req.Text == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}
	writeJSON(w, http.StatusOK, svc.DetectNarratives(r.Context(), req.Text, req.Style, language(r, req.Language)))
}

func (e *DetectNarrativesEndpoint) Command(getServerURL func() string) *cobra.Command {
	var in textInput
	cmd := &cobra.Command{
		Use:   "detect-narrative",
		Short: "Detect narrative structures in a text",
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := in.read(cmd.InOrStdin())
			if err != nil {
				return err
			}
			var resp analysis.Envelope[analysis.NarrativeResult]
			body := TextRequest{Text: text, Style: in.style, Language: in.language}
			if err := api.NewClient(getServerURL()).Post(cmd.Context(), "/api/detect-narrative", body, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	in.bind(cmd, true)
	return cmd
}

// ReformulateEndpoint handles POST /api/reformulate.
type ReformulateEndpoint struct{}

func (e *ReformulateEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/reformulate", e.handler
}

func (e *ReformulateEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary	Reformulate a text
//	@Tags		actions
//	@Accept		json
//	@Produce	json
//	@Param		request	body		TextRequest	true	"Text and style (neutral, academic, simple, paranoid, messianic, poetic)"
//	@Success	200		{object}	analysis.Envelope[analysis.ReformulationResult]
//	@Failure	400		{object}	ErrorResponse
//	@Router		/api/reformulate [post]
func (e *ReformulateEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	req, svc, ok := decodeRequest[TextRequest](w, r)
	if !ok {
		return
	}
	if req.Text == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}
	writeJSON(w, http.StatusOK, svc.Reformulate(r.Context(), req.Text, req.Style, language(r, req.Language)))
}

func (e *ReformulateEndpoint) Command(getServerURL func() string) *cobra.Command {
	var in textInput
	cmd := &cobra.Command{
		Use:   "reformulate",
		Short: "Rewrite a text in another style",
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := in.read(cmd.InOrStdin())
			if err != nil {
				return err
			}
			var resp analysis.Envelope[analysis.ReformulationResult]
			body := TextRequest{Text: text, Style: in.style, Language: in.language}
			if err := api.NewClient(getServerURL()).Post(cmd.Context(), "/api/reformulate", body, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	in.bind(cmd, true)
	return cmd
}

// ResearchEndpoint handles POST /api/research.
type ResearchEndpoint struct{}

func (e *ResearchEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/research", e.handler
}

func (e *ResearchEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary	Research a question
//	@Tags		actions
//	@Accept		json
//	@Produce	json
//	@Param		request	body		ResearchRequest	true	"Query, optional context text and style (default, deep)"
//	@Success	200		{object}	analysis.Envelope[analysis.ResearchResult]
//	@Failure	400		{object}	ErrorResponse
//	@Router		/api/research [post]
func (e *ResearchEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	req, svc, ok := decodeRequest[ResearchRequest](w, r)
	if !ok {
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}
	writeJSON(w, http.StatusOK, svc.Research(r.Context(), req.Query, req.Text, req.Style, language(r, req.Language)))
}

func (e *ResearchEndpoint) Command(getServerURL func() string) *cobra.Command {
	var in textInput
	var query string
	cmd := &cobra.Command{
		Use:   "research",
		Short: "Research a question, optionally with a context text",
		RunE: func(cmd *cobra.Command, args []string) error {
			if query == "" {
				return fmt.Errorf("--query is required")
			}
			var text string
			if in.text != "" || in.file != "" {
				var err error
				if text, err = in.read(cmd.InOrStdin()); err != nil {
					return err
				}
			}
			var resp analysis.Envelope[analysis.ResearchResult]
			body := ResearchRequest{Query: query, Text: text, Style: in.style, Language: in.language}
			if err := api.NewClient(getServerURL()).Post(cmd.Context(), "/api/research", body, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().StringVar(&query, "query", "", "Question to research (required)")
	in.bind(cmd, true)
	return cmd
}

// GeneratePersonaEndpoint handles POST /api/personas.
type GeneratePersonaEndpoint struct{}

func (e *GeneratePersonaEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/personas", e.handler
}

func (e *GeneratePersonaEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary	Generate a persona
//	@Tags		actions
//	@Accept		json
//	@Produce	json
//	@Param		request	body		PersonaRequest	true	"Free-form persona description"
//	@Success	200		{object}	analysis.Envelope[analysis.Persona]
//	@Failure	400		{object}	ErrorResponse
//	@Router		/api/personas [post]
func (e *GeneratePersonaEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	req, svc, ok := decodeRequest[PersonaRequest](w, r)
	if !ok {
		return
	}
	if req.Description == "" {
		writeError(w, http.StatusBadRequest, "description is required")
		return
	}
	writeJSON(w, http.StatusOK, svc.GeneratePersona(r.Context(), req.Description, language(r, req.Language)))
}

func (e *GeneratePersonaEndpoint) Command(getServerURL func() string) *cobra.Command {
	var in textInput
	cmd := &cobra.Command{
		Use:   "persona",
		Short: "Generate a persona from a description",
		RunE: func(cmd *cobra.Command, args []string) error {
			desc, err := in.read(cmd.InOrStdin())
			if err != nil {
				return err
			}
			var resp analysis.Envelope[analysis.Persona]
			body := PersonaRequest{Description: desc, Language: in.language}
			if err := api.NewClient(getServerURL()).Post(cmd.Context(), "/api/personas", body, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	in.bind(cmd, false)
	return cmd
}

// ChatEndpoint handles POST /api/chat.
type ChatEndpoint struct{}

func (e *ChatEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/chat", e.handler
}

func (e *ChatEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Chat with a persona
//	@Description	The client keeps the conversation and sends the full history on every turn
//	@Tags			actions
//	@Accept			json
//	@Produce		json
//	@Param			request	body		ChatRequest	true	"Persona, history and new message"
//	@Success		200		{object}	analysis.Envelope[analysis.ChatReply]
//	@Failure		400		{object}	ErrorResponse
//	@Router			/api/chat [post]
func (e *ChatEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	req, svc, ok := decodeRequest[ChatRequest](w, r)
	if !ok {
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}
	writeJSON(w, http.StatusOK, svc.Chat(r.Context(), req.Persona, req.History, req.Message, language(r, req.Language)))
}

func (e *ChatEndpoint) Command(getServerURL func() string) *cobra.Command {
	var personaFile, message, lang string
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Send one message to a persona (persona JSON file, or - for stdin)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if personaFile == "" || message == "" {
				return fmt.Errorf("--persona and --message are required")
			}
			var p analysis.Persona
			if err := readJSONFile(personaFile, cmd.InOrStdin(), &p); err != nil {
				return err
			}
			var resp analysis.Envelope[analysis.ChatReply]
			body := ChatRequest{Persona: p, Message: message, Language: lang}
			if err := api.NewClient(getServerURL()).Post(cmd.Context(), "/api/chat", body, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().StringVar(&personaFile, "persona", "", "Persona JSON file (required)")
	cmd.Flags().StringVar(&message, "message", "", "Message to send (required)")
	cmd.Flags().StringVar(&lang, "language", "", "Reply language (fr or en)")
	return cmd
}

// textInput holds the shared text flags of action commands.
type textInput struct {
	text     string
	file     string
	style    string
	language string
}

func (in *textInput) bind(cmd *cobra.Command, withStyle bool) {
	cmd.Flags().StringVar(&in.text, "text", "", "Input text")
	cmd.Flags().StringVar(&in.file, "file", "", "Read input text from a file (- for stdin)")
	cmd.Flags().StringVar(&in.language, "language", "", "Result language (fr or en)")
	if withStyle {
		cmd.Flags().StringVar(&in.style, "style", "", "Template style (feature default when empty)")
	}
}

func (in *textInput) read(stdin io.Reader) (string, error) {
	switch {
	case in.text != "":
		return in.text, nil
	case in.file == "-":
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	case in.file != "":
		data, err := os.ReadFile(in.file)
		if err != nil {
			return "", fmt.Errorf("failed to read input file: %w", err)
		}
		return string(data), nil
	default:
		return "", fmt.Errorf("--text or --file is required")
	}
}

func readJSONFile(path string, stdin io.Reader, v any) error {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}
