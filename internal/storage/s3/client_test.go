package s3_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fiscaldoc/internal/config"
	"fiscaldoc/internal/port"
	s3storage "fiscaldoc/internal/storage/s3"
)

type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch r.Method {
	case http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		f.objects[r.URL.Path] = body
		w.Header().Set("ETag", `"etag-1"`)
		w.WriteHeader(http.StatusOK)
	case http.MethodGet:
		data, ok := f.objects[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `<?xml version="1.0"?><Error><Code>NoSuchKey</Code><Message>missing</Message></Error>`)
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write(data)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newTestClient(t *testing.T, fake *fakeS3) *s3storage.Client {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	c, err := s3storage.NewClient(context.Background(), config.S3Config{
		Region:    "us-east-1",
		Endpoint:  srv.URL,
		AccessKey: "test",
		SecretKey: "test",
	})
	require.NoError(t, err)
	return c
}

func TestClient_Download(t *testing.T) {
	fake := &fakeS3{objects: map[string][]byte{"/docs/nota.pdf": []byte("%PDF-1.4")}}
	c := newTestClient(t, fake)

	data, err := c.Download(context.Background(), "docs", "nota.pdf")

	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.4"), data)
}

func TestClient_DownloadMissing(t *testing.T) {
	c := newTestClient(t, &fakeS3{objects: map[string][]byte{}})

	_, err := c.Download(context.Background(), "docs", "missing.pdf")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "s3://docs/missing.pdf")
}

func TestClient_Upload(t *testing.T) {
	fake := &fakeS3{objects: map[string][]byte{}}
	c := newTestClient(t, fake)

	out, err := c.Upload(context.Background(), port.UploadInput{
		Bucket:      "results",
		Key:         "run/results.json",
		Body:        strings.NewReader(`{"ok":true}`),
		ContentType: "application/json",
	})

	require.NoError(t, err)
	assert.Equal(t, `"etag-1"`, out.ETag)
	assert.Contains(t, out.Location, "/results/run/results.json")
	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.Contains(t, string(fake.objects["/results/run/results.json"]), `{"ok":true}`)
}
