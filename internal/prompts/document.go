package prompts

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
)

// DocumentVersion is the current static document format version.
const DocumentVersion = 1

// validKeyPattern matches remote template keys.
var validKeyPattern = regexp.MustCompile(`^[A-Z][A-Z0-9_]*_(SYSTEM|USER)_PROMPT$`)

// Document is the human-editable JSON mirror of the default templates.
// The resolver never reads it.
type Document struct {
	Version int               `json:"version"`
	Prompts map[string]string `json:"prompts"`
}

// ExportDocument builds a document from the resolver's embedded defaults.
func ExportDocument(r *Resolver) *Document {
	doc := &Document{Version: DocumentVersion, Prompts: make(map[string]string)}
	for _, p := range r.AllEmbedded() {
		doc.Prompts[p.Key] = p.Text
	}
	return doc
}

// Keys returns the document keys in sorted order.
func (d *Document) Keys() []string {
	keys := make([]string, 0, len(d.Prompts))
	for k := range d.Prompts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Validate checks the version and every key.
func (d *Document) Validate() error {
	if d.Version != DocumentVersion {
		return fmt.Errorf("unsupported document version %d (want %d)", d.Version, DocumentVersion)
	}
	var errs []error
	for _, k := range d.Keys() {
		if !validKeyPattern.MatchString(k) {
			errs = append(errs, fmt.Errorf("invalid prompt key: %s", k))
		}
	}
	return errors.Join(errs...)
}

// LoadDocument reads and validates a document from path.
func LoadDocument(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompt document: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse prompt document: %w", err)
	}
	if doc.Prompts == nil {
		doc.Prompts = make(map[string]string)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// SaveDocument validates doc and writes it to path, creating parent
// directories as needed.
func SaveDocument(path string, doc *Document) error {
	if err := doc.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create document directory: %w", err)
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal prompt document: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write prompt document: %w", err)
	}
	return nil
}
