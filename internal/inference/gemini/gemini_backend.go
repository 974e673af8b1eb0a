package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"fiscaldoc/internal/config"
	"fiscaldoc/internal/inference"
	"fiscaldoc/internal/port"
)

const (
	apiBaseURL   = "https://generativelanguage.googleapis.com/v1beta/models"
	providerName = "gemini"
)

// Backend implements port.InferenceBackend using Google's Gemini API.
type Backend struct {
	apiKey   string
	model    string
	endpoint string
	client   *http.Client
}

// NewBackend creates a Gemini backend.
func NewBackend(cfg *config.ProviderConfig) *Backend {
	return newBackend(cfg, "")
}

// NewBackendWithEndpoint creates a backend pointing at a custom API endpoint (for testing).
func NewBackendWithEndpoint(cfg *config.ProviderConfig, endpoint string) *Backend {
	return newBackend(cfg, endpoint)
}

// Factory adapts NewBackend to inference.ProviderFactory.
func Factory(cfg *config.ProviderConfig) (port.InferenceBackend, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini: api key is required")
	}
	return NewBackend(cfg), nil
}

func newBackend(cfg *config.ProviderConfig, endpoint string) *Backend {
	model := cfg.DefaultModel
	if model == "" {
		model = "gemini-2.0-flash"
	}
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	if endpoint == "" {
		endpoint = fmt.Sprintf("%s/%s:generateContent", apiBaseURL, model)
	}
	return &Backend{
		apiKey:   cfg.APIKey,
		model:    model,
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

func (b *Backend) Name() string { return providerName }

func (b *Backend) SupportsStructuredOutput() bool { return false }

func (b *Backend) Complete(ctx context.Context, in port.CompletionRequest) (*port.CompletionResponse, error) {
	system, contents := buildContents(in.Messages)

	reqBody := map[string]interface{}{
		"contents": contents,
		"generationConfig": map[string]interface{}{
			"temperature":     in.Temperature,
			"maxOutputTokens": in.MaxTokens,
		},
	}
	if system != "" {
		reqBody["systemInstruction"] = map[string]interface{}{
			"parts": []map[string]interface{}{{"text": system}},
		}
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, errors.Wrap(err, "marshaling request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, errors.Wrap(err, "creating request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", b.apiKey)

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "calling gemini API")
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "reading response")
	}

	if err := inference.CheckStatus(providerName, resp, respBody); err != nil {
		return nil, err
	}

	return parseResponse(respBody, b.model)
}

func buildContents(msgs []port.Message) (string, []map[string]interface{}) {
	var system []string
	var contents []map[string]interface{}
	for _, m := range msgs {
		if m.Role == port.RoleSystem {
			system = append(system, m.Text)
			continue
		}
		role := "user"
		if m.Role == port.RoleAssistant {
			role = "model"
		}
		var parts []map[string]interface{}
		for _, img := range m.Images {
			parts = append(parts, map[string]interface{}{
				"inline_data": map[string]interface{}{
					"mime_type": img.MediaType,
					"data":      base64.StdEncoding.EncodeToString(img.Data),
				},
			})
		}
		if m.Text != "" {
			parts = append(parts, map[string]interface{}{"text": m.Text})
		}
		contents = append(contents, map[string]interface{}{
			"role":  role,
			"parts": parts,
		})
	}
	return strings.Join(system, "\n\n"), contents
}

// geminiResponse models the Gemini API response.
type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
}

func parseResponse(body []byte, model string) (*port.CompletionResponse, error) {
	var resp geminiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, errors.Wrap(err, "unmarshaling response")
	}

	if len(resp.Candidates) == 0 {
		return nil, errors.New("empty response from API: no candidates")
	}
	candidate := resp.Candidates[0]
	if candidate.FinishReason == "MAX_TOKENS" {
		return nil, errors.Wrap(inference.ErrTruncated, "finishReason MAX_TOKENS")
	}
	if len(candidate.Content.Parts) == 0 {
		return nil, errors.New("empty response from API: no parts")
	}

	var text strings.Builder
	for _, p := range candidate.Content.Parts {
		text.WriteString(p.Text)
	}

	return &port.CompletionResponse{
		Text:       text.String(),
		Model:      model,
		StopReason: candidate.FinishReason,
	}, nil
}
