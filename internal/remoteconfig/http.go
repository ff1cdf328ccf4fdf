package remoteconfig

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPSource reads values from a JSON document served over HTTP.
//
// Two shapes are accepted: a flat object of string values, and a Firebase
// Remote Config template where each key sits under
// parameters.KEY.defaultValue.value.
type HTTPSource struct {
	url     string
	headers map[string]string
	client  *http.Client
}

// NewHTTPSource creates an HTTP-backed source.
func NewHTTPSource(url string, headers map[string]string, timeout time.Duration) *HTTPSource {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPSource{
		url:     url,
		headers: headers,
		client:  &http.Client{Timeout: timeout},
	}
}

// Name returns the source name.
func (s *HTTPSource) Name() string {
	return "http"
}

// Fetch downloads and decodes the document.
func (s *HTTPSource) Fetch(ctx context.Context) (map[string]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range s.headers {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("remote config returned status %d", resp.StatusCode)
	}
	return decodeDocument(body)
}

type firebaseTemplate struct {
	Parameters map[string]struct {
		DefaultValue struct {
			Value string `json:"value"`
		} `json:"defaultValue"`
	} `json:"parameters"`
}

func decodeDocument(body []byte) (map[string]string, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse remote config: %w", err)
	}

	if _, ok := raw["parameters"]; ok {
		var tmpl firebaseTemplate
		if err := json.Unmarshal(body, &tmpl); err != nil {
			return nil, fmt.Errorf("failed to parse remote config template: %w", err)
		}
		out := make(map[string]string, len(tmpl.Parameters))
		for k, p := range tmpl.Parameters {
			out[k] = p.DefaultValue.Value
		}
		return out, nil
	}

	out := make(map[string]string, len(raw))
	for k, v := range raw {
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			// Non-string values are not templates.
			continue
		}
		out[k] = s
	}
	return out, nil
}
