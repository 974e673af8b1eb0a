package inference_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fiscaldoc/internal/inference"
)

func TestNewRateLimitError_DefaultRetryAfter(t *testing.T) {
	err := inference.NewRateLimitError("claude", errors.New("429"), 0)
	assert.Equal(t, 60*time.Second, err.RetryAfter)
	assert.Contains(t, err.Error(), "claude rate limited")
}

func TestParseRetryAfterHeader(t *testing.T) {
	assert.Equal(t, 0, inference.ParseRetryAfterHeader(""))
	assert.Equal(t, 0, inference.ParseRetryAfterHeader("Wed, 21 Oct 2015 07:28:00 GMT"))
	assert.Equal(t, 15, inference.ParseRetryAfterHeader("15"))
}

func TestCheckStatus(t *testing.T) {
	ok := &http.Response{StatusCode: http.StatusOK, Header: http.Header{}}
	assert.NoError(t, inference.CheckStatus("x", ok, nil))

	limited := &http.Response{StatusCode: http.StatusTooManyRequests, Header: http.Header{"Retry-After": []string{"7"}}}
	err := inference.CheckStatus("x", limited, []byte("slow down"))
	var rl *inference.RateLimitError
	require.True(t, errors.As(err, &rl))
	assert.Equal(t, 7*time.Second, rl.RetryAfter)

	failed := &http.Response{StatusCode: http.StatusBadGateway, Header: http.Header{}}
	err = inference.CheckStatus("x", failed, []byte("upstream"))
	var se *inference.StatusError
	require.True(t, errors.As(err, &se))
	assert.True(t, se.Retryable())
	assert.Contains(t, se.Error(), "status 502")
}
