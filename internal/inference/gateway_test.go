package inference_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"fiscaldoc/internal/domain"
	"fiscaldoc/internal/inference"
	"fiscaldoc/internal/port"
	"fiscaldoc/mocks"
)

var testSchema = port.StructuredSchema{
	Name: "test_answer",
	Definition: map[string]any{
		"type":     "object",
		"required": []any{"answer"},
		"properties": map[string]any{
			"answer": map[string]any{"type": "string"},
			"score":  map[string]any{"type": []any{"number", "null"}},
		},
	},
}

type answer struct {
	Answer string   `json:"answer"`
	Score  *float64 `json:"score"`
}

func newBackend(native bool) *mocks.MockInferenceBackend {
	b := new(mocks.MockInferenceBackend)
	b.On("Name").Return("fake")
	b.On("SupportsStructuredOutput").Return(native)
	return b
}

func newGateway(b port.InferenceBackend, retries int) *inference.Gateway {
	return inference.NewGateway(b,
		inference.WithMaxRetries(retries),
		inference.WithBackoffBase(time.Millisecond),
		inference.WithTimeout(time.Second),
	)
}

func userMsg(text string) []port.Message {
	return []port.Message{
		{Role: port.RoleSystem, Text: "You read fiscal documents."},
		{Role: port.RoleUser, Text: text},
	}
}

func TestGateway_Generate_Success(t *testing.T) {
	b := newBackend(false)
	b.On("Complete", mock.Anything, mock.MatchedBy(func(req port.CompletionRequest) bool {
		return req.Temperature == 0.1 && req.MaxTokens == 8192 && req.Schema == nil
	})).Return(&port.CompletionResponse{Text: "hello"}, nil)

	text, err := newGateway(b, 3).Generate(context.Background(), userMsg("hi"), port.GenerateOptions{})

	require.NoError(t, err)
	assert.Equal(t, "hello", text)
	b.AssertNumberOfCalls(t, "Complete", 1)
}

func TestGateway_GenerateStructured_EmbedsSchemaInstruction(t *testing.T) {
	b := newBackend(false)
	var captured port.CompletionRequest
	b.On("Complete", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { captured = args.Get(1).(port.CompletionRequest) }).
		Return(&port.CompletionResponse{Text: "```json\n{\"answer\":\"42\",\"score\":0.5}\n```"}, nil)

	msgs := userMsg("question")
	var out answer
	err := newGateway(b, 0).GenerateStructured(context.Background(), msgs, testSchema, port.GenerateOptions{}, &out)

	require.NoError(t, err)
	assert.Equal(t, "42", out.Answer)
	require.NotNil(t, out.Score)
	assert.InDelta(t, 0.5, *out.Score, 1e-9)

	assert.Nil(t, captured.Schema)
	require.Len(t, captured.Messages, 2)
	assert.Contains(t, captured.Messages[0].Text, "JSON Schema")
	assert.Contains(t, captured.Messages[0].Text, `"answer"`)
	assert.Equal(t, "You read fiscal documents.", msgs[0].Text, "caller messages must not be modified")
}

func TestGateway_GenerateStructured_NativeSchema(t *testing.T) {
	b := newBackend(true)
	b.On("Complete", mock.Anything, mock.MatchedBy(func(req port.CompletionRequest) bool {
		return req.Schema != nil && req.Schema.Name == "test_answer" &&
			!strings.Contains(req.Messages[0].Text, "JSON Schema")
	})).Return(&port.CompletionResponse{Text: `{"answer":"ok"}`}, nil)

	var out answer
	err := newGateway(b, 0).GenerateStructured(context.Background(), userMsg("q"), testSchema, port.GenerateOptions{}, &out)

	require.NoError(t, err)
	assert.Equal(t, "ok", out.Answer)
}

func TestGateway_GenerateStructured_PrependsSystemMessage(t *testing.T) {
	b := newBackend(false)
	b.On("Complete", mock.Anything, mock.MatchedBy(func(req port.CompletionRequest) bool {
		return len(req.Messages) == 2 && req.Messages[0].Role == port.RoleSystem
	})).Return(&port.CompletionResponse{Text: `{"answer":"ok"}`}, nil)

	var out answer
	err := newGateway(b, 0).GenerateStructured(context.Background(),
		[]port.Message{{Role: port.RoleUser, Text: "q"}}, testSchema, port.GenerateOptions{}, &out)

	require.NoError(t, err)
}

func TestGateway_GenerateStructured_MalformedThenValid(t *testing.T) {
	b := newBackend(false)
	b.On("Complete", mock.Anything, mock.Anything).Return(&port.CompletionResponse{Text: "not json at all"}, nil).Once()
	b.On("Complete", mock.Anything, mock.Anything).Return(&port.CompletionResponse{Text: `{"answer":"second"}`}, nil).Once()

	var out answer
	err := newGateway(b, 3).GenerateStructured(context.Background(), userMsg("q"), testSchema, port.GenerateOptions{}, &out)

	require.NoError(t, err)
	assert.Equal(t, "second", out.Answer)
	b.AssertNumberOfCalls(t, "Complete", 2)
}

func TestGateway_GenerateStructured_SchemaViolationExhaustsRetries(t *testing.T) {
	b := newBackend(false)
	b.On("Complete", mock.Anything, mock.Anything).Return(&port.CompletionResponse{Text: `{"score":1}`}, nil)

	var out answer
	err := newGateway(b, 2).GenerateStructured(context.Background(), userMsg("q"), testSchema, port.GenerateOptions{}, &out)

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInferenceBackend))
	var ibe *domain.InferenceBackendError
	require.True(t, errors.As(err, &ibe))
	assert.Equal(t, domain.BackendErrorSchema, ibe.Kind)
	b.AssertNumberOfCalls(t, "Complete", 3)
}

func TestGateway_NonRetryableStatusFailsFast(t *testing.T) {
	b := newBackend(false)
	b.On("Complete", mock.Anything, mock.Anything).
		Return(nil, &inference.StatusError{Provider: "fake", StatusCode: 401, Body: "bad key"})

	_, err := newGateway(b, 3).Generate(context.Background(), userMsg("q"), port.GenerateOptions{})

	require.Error(t, err)
	var ibe *domain.InferenceBackendError
	require.True(t, errors.As(err, &ibe))
	assert.Equal(t, domain.BackendErrorStatus, ibe.Kind)
	assert.False(t, ibe.Retryable)
	b.AssertNumberOfCalls(t, "Complete", 1)
}

func TestGateway_RetriesServerErrors(t *testing.T) {
	b := newBackend(false)
	b.On("Complete", mock.Anything, mock.Anything).
		Return(nil, &inference.StatusError{Provider: "fake", StatusCode: 503}).Twice()
	b.On("Complete", mock.Anything, mock.Anything).Return(&port.CompletionResponse{Text: "fine"}, nil).Once()

	text, err := newGateway(b, 3).Generate(context.Background(), userMsg("q"), port.GenerateOptions{})

	require.NoError(t, err)
	assert.Equal(t, "fine", text)
	b.AssertNumberOfCalls(t, "Complete", 3)
}

func TestGateway_RateLimitIsClassified(t *testing.T) {
	b := newBackend(false)
	b.On("Complete", mock.Anything, mock.Anything).
		Return(nil, inference.NewRateLimitError("fake", errors.New("429"), 1))

	_, err := newGateway(b, 1).Generate(context.Background(), userMsg("q"), port.GenerateOptions{})

	require.Error(t, err)
	var ibe *domain.InferenceBackendError
	require.True(t, errors.As(err, &ibe))
	assert.Equal(t, domain.BackendErrorRateLimit, ibe.Kind)
	var rl *inference.RateLimitError
	assert.True(t, errors.As(err, &rl))
	b.AssertNumberOfCalls(t, "Complete", 2)
}

func TestGateway_AttemptTimeout(t *testing.T) {
	b := newBackend(false)
	b.On("Complete", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			<-args.Get(0).(context.Context).Done()
		}).
		Return(nil, context.DeadlineExceeded)

	g := inference.NewGateway(b,
		inference.WithMaxRetries(1),
		inference.WithBackoffBase(time.Millisecond),
		inference.WithTimeout(10*time.Millisecond))

	_, err := g.Generate(context.Background(), userMsg("q"), port.GenerateOptions{})

	require.Error(t, err)
	var ibe *domain.InferenceBackendError
	require.True(t, errors.As(err, &ibe))
	assert.Equal(t, domain.BackendErrorTimeout, ibe.Kind)
	b.AssertNumberOfCalls(t, "Complete", 2)
}

func TestGateway_EmptyResponseIsMalformed(t *testing.T) {
	b := newBackend(false)
	b.On("Complete", mock.Anything, mock.Anything).Return(&port.CompletionResponse{Text: ""}, nil)

	_, err := newGateway(b, 0).Generate(context.Background(), userMsg("q"), port.GenerateOptions{})

	var ibe *domain.InferenceBackendError
	require.True(t, errors.As(err, &ibe))
	assert.Equal(t, domain.BackendErrorMalformed, ibe.Kind)
}

func TestGateway_CustomOptionsOverrideDefaults(t *testing.T) {
	b := newBackend(false)
	b.On("Complete", mock.Anything, mock.MatchedBy(func(req port.CompletionRequest) bool {
		return req.Temperature == 0.7 && req.MaxTokens == 100
	})).Return(&port.CompletionResponse{Text: "x"}, nil)

	_, err := newGateway(b, 0).Generate(context.Background(), userMsg("q"),
		port.GenerateOptions{Temperature: floatPtr(0.7), MaxTokens: 100})

	require.NoError(t, err)
}

func TestGateway_ExplicitZeroTemperatureIsKept(t *testing.T) {
	b := newBackend(false)
	b.On("Complete", mock.Anything, mock.MatchedBy(func(req port.CompletionRequest) bool {
		return req.Temperature == 0 && req.MaxTokens == 8192
	})).Return(&port.CompletionResponse{Text: "x"}, nil)

	_, err := newGateway(b, 0).Generate(context.Background(), userMsg("q"),
		port.GenerateOptions{Temperature: floatPtr(0)})

	require.NoError(t, err)
	b.AssertExpectations(t)
}

func floatPtr(f float64) *float64 { return &f }

func TestGateway_InvalidSchemaIsNotABackendError(t *testing.T) {
	b := newBackend(false)
	bad := port.StructuredSchema{Name: "bad", Definition: map[string]any{"type": 12}}

	var out answer
	err := newGateway(b, 0).GenerateStructured(context.Background(), userMsg("q"), bad, port.GenerateOptions{}, &out)

	require.Error(t, err)
	assert.False(t, errors.Is(err, domain.ErrInferenceBackend))
	b.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
}
