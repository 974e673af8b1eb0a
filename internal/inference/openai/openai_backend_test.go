package openai_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fiscaldoc/internal/config"
	"fiscaldoc/internal/domain"
	"fiscaldoc/internal/inference"
	"fiscaldoc/internal/inference/openai"
	"fiscaldoc/internal/port"
)

func newTestBackend(serverURL string) *openai.Backend {
	return openai.NewBackendWithEndpoint(&config.ProviderConfig{
		Provider: "openai",
		APIKey:   "sk-test",
	}, serverURL)
}

func TestOpenAIBackend_Complete_NativeSchema(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var reqBody map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&reqBody))
		assert.Equal(t, "gpt-4o", reqBody["model"])
		assert.Equal(t, float64(2048), reqBody["max_completion_tokens"])

		format := reqBody["response_format"].(map[string]interface{})
		assert.Equal(t, "json_schema", format["type"])
		schema := format["json_schema"].(map[string]interface{})
		assert.Equal(t, "classification", schema["name"])

		messages := reqBody["messages"].([]interface{})
		require.Len(t, messages, 2)
		assert.Equal(t, "sys", messages[0].(map[string]interface{})["content"])
		parts := messages[1].(map[string]interface{})["content"].([]interface{})
		require.Len(t, parts, 2)
		imageURL := parts[0].(map[string]interface{})["image_url"].(map[string]interface{})["url"].(string)
		assert.True(t, strings.HasPrefix(imageURL, "data:image/png;base64,"))

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"model": "gpt-4o-2024-08-06",
			"choices": []map[string]interface{}{{
				"finish_reason": "stop",
				"message":       map[string]interface{}{"content": `{"type":"service_invoice"}`},
			}},
		})
	}))
	defer server.Close()

	b := newTestBackend(server.URL)
	resp, err := b.Complete(context.Background(), port.CompletionRequest{
		Messages: []port.Message{
			{Role: port.RoleSystem, Text: "sys"},
			{Role: port.RoleUser, Text: "go", Images: []domain.Image{{Data: []byte{1, 2}, MediaType: "image/png"}}},
		},
		MaxTokens: 2048,
		Schema:    &port.StructuredSchema{Name: "classification", Definition: map[string]any{"type": "object"}},
	})

	require.NoError(t, err)
	assert.Equal(t, `{"type":"service_invoice"}`, resp.Text)
	assert.Equal(t, "gpt-4o-2024-08-06", resp.Model)
	assert.True(t, b.SupportsStructuredOutput())
}

func TestOpenAIBackend_Complete_NoSchemaNoResponseFormat(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var reqBody map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&reqBody))
		_, hasFormat := reqBody["response_format"]
		assert.False(t, hasFormat)
		_, _ = w.Write([]byte(`{"choices":[{"finish_reason":"stop","message":{"content":"plain"}}]}`))
	}))
	defer server.Close()

	resp, err := newTestBackend(server.URL).Complete(context.Background(), port.CompletionRequest{
		Messages: []port.Message{{Role: port.RoleUser, Text: "hi"}},
	})

	require.NoError(t, err)
	assert.Equal(t, "plain", resp.Text)
}

func TestOpenAIBackend_Complete_Length(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[{"finish_reason":"length","message":{"content":"{"}}]}`))
	}))
	defer server.Close()

	_, err := newTestBackend(server.URL).Complete(context.Background(), port.CompletionRequest{})

	assert.True(t, errors.Is(err, inference.ErrTruncated))
}

func TestOpenAIBackend_Complete_Unauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"invalid key"}`))
	}))
	defer server.Close()

	_, err := newTestBackend(server.URL).Complete(context.Background(), port.CompletionRequest{})

	var se *inference.StatusError
	require.True(t, errors.As(err, &se))
	assert.False(t, se.Retryable())
}
