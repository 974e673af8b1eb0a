package openai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"

	"fiscaldoc/internal/config"
	"fiscaldoc/internal/inference"
	"fiscaldoc/internal/port"
)

const (
	apiURL       = "https://api.openai.com/v1/chat/completions"
	providerName = "openai"
)

// Backend implements port.InferenceBackend using the OpenAI Chat Completions API.
// It supports native structured output through json_schema response formats.
type Backend struct {
	apiKey   string
	model    string
	endpoint string
	client   *http.Client
}

// NewBackend creates an OpenAI backend from a provider config.
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
		return nil, errors.New("openai: api key is required")
	}
	return NewBackend(cfg), nil
}

func newBackend(cfg *config.ProviderConfig, endpoint string) *Backend {
	model := cfg.DefaultModel
	if model == "" {
		model = "gpt-4o"
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

func (b *Backend) SupportsStructuredOutput() bool { return true }

func (b *Backend) Complete(ctx context.Context, in port.CompletionRequest) (*port.CompletionResponse, error) {
	reqBody := map[string]interface{}{
		"model":                 b.model,
		"max_completion_tokens": in.MaxTokens,
		"temperature":           in.Temperature,
		"messages":              buildMessages(in.Messages),
	}
	if in.Schema != nil {
		reqBody["response_format"] = map[string]interface{}{
			"type": "json_schema",
			"json_schema": map[string]interface{}{
				"name":   in.Schema.Name,
				"schema": in.Schema.Definition,
				"strict": false,
			},
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
	req.Header.Set("Authorization", "Bearer "+b.apiKey)

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "calling openai API")
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

func buildMessages(msgs []port.Message) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(msgs))
	for _, m := range msgs {
		if len(m.Images) == 0 {
			out = append(out, map[string]interface{}{
				"role":    string(m.Role),
				"content": m.Text,
			})
			continue
		}
		var parts []map[string]interface{}
		for _, img := range m.Images {
			dataURI := fmt.Sprintf("data:%s;base64,%s", img.MediaType, base64.StdEncoding.EncodeToString(img.Data))
			parts = append(parts, map[string]interface{}{
				"type":      "image_url",
				"image_url": map[string]interface{}{"url": dataURI},
			})
		}
		if m.Text != "" {
			parts = append(parts, map[string]interface{}{
				"type": "text",
				"text": m.Text,
			})
		}
		out = append(out, map[string]interface{}{
			"role":    string(m.Role),
			"content": parts,
		})
	}
	return out
}

// apiResponse models the OpenAI Chat Completions API response.
type apiResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

func parseResponse(body []byte, model string) (*port.CompletionResponse, error) {
	var resp apiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, errors.Wrap(err, "unmarshaling response")
	}

	if len(resp.Choices) == 0 {
		return nil, errors.New("empty response from API: no choices")
	}
	choice := resp.Choices[0]
	if choice.FinishReason == "length" {
		return nil, errors.Wrap(inference.ErrTruncated, "finish_reason length")
	}

	if resp.Model != "" {
		model = resp.Model
	}
	return &port.CompletionResponse{
		Text:       choice.Message.Content,
		Model:      model,
		StopReason: choice.FinishReason,
	}, nil
}
