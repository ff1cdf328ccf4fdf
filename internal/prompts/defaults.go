package prompts

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"strings"
)

//go:embed defaults/*.tmpl
var defaultsFS embed.FS

// LoadDefaults reads the compiled-in templates. File names follow
// {feature}.{style}.{role}.tmpl.
func LoadDefaults() ([]EmbeddedPrompt, error) {
	entries, err := fs.ReadDir(defaultsFS, "defaults")
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded defaults: %w", err)
	}

	var out []EmbeddedPrompt
	for _, e := range entries {
		if e.IsDir() || path.Ext(e.Name()) != ".tmpl" {
			continue
		}
		parts := strings.Split(strings.TrimSuffix(e.Name(), ".tmpl"), ".")
		if len(parts) != 3 {
			return nil, fmt.Errorf("malformed default template name: %s", e.Name())
		}
		f, err := ParseFeature(parts[0])
		if err != nil {
			return nil, fmt.Errorf("default template %s: %w", e.Name(), err)
		}
		role := Role(parts[2])
		if role != RoleSystem && role != RoleUser {
			return nil, fmt.Errorf("default template %s: unknown role %q", e.Name(), parts[2])
		}

		data, err := defaultsFS.ReadFile(path.Join("defaults", e.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", e.Name(), err)
		}
		text := strings.TrimRight(string(data), "\n")

		out = append(out, EmbeddedPrompt{
			Key:          Key(f, parts[1], role),
			Feature:      f,
			Style:        parts[1],
			Role:         role,
			Text:         text,
			Placeholders: ExtractPlaceholders(text),
			Hash:         HashText(text),
		})
	}
	return out, nil
}
