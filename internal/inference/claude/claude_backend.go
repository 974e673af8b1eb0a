package claude

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
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
	apiURL       = "https://api.anthropic.com/v1/messages"
	apiVersion   = "2023-06-01"
	providerName = "claude"
)

// Backend implements port.InferenceBackend using the Anthropic Messages API.
type Backend struct {
	apiKey   string
	model    string
	endpoint string
	client   *http.Client
}

// NewBackend creates a Claude backend from a provider config.
func NewBackend(cfg *config.ProviderConfig) *Backend {
	return newBackend(cfg, apiURL)
}

// NewBackendWithEndpoint creates a backend pointing at a custom API endpoint (for testing).
func NewBackendWithEndpoint(cfg *config.ProviderConfig, endpoint string) *Backend {
	return newBackend(cfg, endpoint)
}

// Factory adapts NewBackend to inference.ProviderFactory.
func Factory(cfg *config.ProviderConfig) (port.InferenceBackend, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("claude: api key is required")
	}
	return NewBackend(cfg), nil
}

func newBackend(cfg *config.ProviderConfig, endpoint string) *Backend {
	model := cfg.DefaultModel
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	return &Backend{
		apiKey:   cfg.APIKey,
		model:    model,
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

func (b *Backend) Name() string { return providerName }

// SupportsStructuredOutput is false: the schema travels in the prompt.
func (b *Backend) SupportsStructuredOutput() bool { return false }

func (b *Backend) Complete(ctx context.Context, in port.CompletionRequest) (*port.CompletionResponse, error) {
	system, messages := buildMessages(in.Messages)

	reqBody := map[string]interface{}{
		"model":       b.model,
		"max_tokens":  in.MaxTokens,
		"temperature": in.Temperature,
		"messages":    messages,
	}
	if system != "" {
		reqBody["system"] = system
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
	req.Header.Set("x-api-key", b.apiKey)
	req.Header.Set("anthropic-version", apiVersion)

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "calling anthropic API")
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

// buildMessages lifts system messages into the top-level system prompt and
// renders the rest as content blocks, images first.
func buildMessages(msgs []port.Message) (string, []map[string]interface{}) {
	var system []string
	var out []map[string]interface{}
	for _, m := range msgs {
		if m.Role == port.RoleSystem {
			system = append(system, m.Text)
			continue
		}
		var blocks []map[string]interface{}
		for _, img := range m.Images {
			blocks = append(blocks, map[string]interface{}{
				"type": "image",
				"source": map[string]interface{}{
					"type":       "base64",
					"media_type": img.MediaType,
					"data":       base64.StdEncoding.EncodeToString(img.Data),
				},
			})
		}
		if m.Text != "" {
			blocks = append(blocks, map[string]interface{}{
				"type": "text",
				"text": m.Text,
			})
		}
		out = append(out, map[string]interface{}{
			"role":    string(m.Role),
			"content": blocks,
		})
	}
	return strings.Join(system, "\n\n"), out
}

// apiResponse models the Anthropic Messages API response.
type apiResponse struct {
	Model   string `json:"model"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

func parseResponse(body []byte, model string) (*port.CompletionResponse, error) {
	var resp apiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, errors.Wrap(err, "unmarshaling response")
	}

	if resp.StopReason == "max_tokens" {
		return nil, errors.Wrap(inference.ErrTruncated, "stop_reason max_tokens")
	}

	var text strings.Builder
	for _, c := range resp.Content {
		if c.Type == "text" {
			text.WriteString(c.Text)
		}
	}
	if text.Len() == 0 {
		return nil, errors.New("empty response from API")
	}

	if resp.Model != "" {
		model = resp.Model
	}
	return &port.CompletionResponse{
		Text:       text.String(),
		Model:      model,
		StopReason: resp.StopReason,
	}, nil
}
