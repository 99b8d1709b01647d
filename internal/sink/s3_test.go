package sink

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeS3 is a path-style object server supporting PUT and GET.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch r.Method {
	case http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		f.objects[r.URL.Path] = body
		f.types[r.URL.Path] = r.Header.Get("Content-Type")
		w.Header().Set("ETag", `"etag"`)
		w.WriteHeader(http.StatusOK)
	case http.MethodGet:
		body, ok := f.objects[r.URL.Path]
		if !ok {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `<?xml version="1.0"?><Error><Code>NoSuchKey</Code><Message>not found</Message></Error>`)
			return
		}
		_, _ = w.Write(body)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newTestS3(t *testing.T) (*S3, *fakeS3) {
	t.Helper()
	fake := &fakeS3{objects: map[string][]byte{}, types: map[string]string{}}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	s, err := NewS3(context.Background(), "exports", "sprawl", S3Options{
		Region:    "us-east-1",
		Endpoint:  srv.URL,
		PathStyle: true,
		Creds:     credentials.NewStaticCredentialsProvider("AKID", "SECRET", ""),
	})
	require.NoError(t, err)
	return s, fake
}

func TestS3_PutGet(t *testing.T) {
	s, fake := newTestS3(t)

	uri, err := s.Put(context.Background(), "urban_sprawl_2021.csv", "text/csv", strings.NewReader("a,b\n"))
	require.NoError(t, err)
	assert.Equal(t, "s3://exports/sprawl/urban_sprawl_2021.csv", uri)
	assert.Equal(t, "a,b\n", string(fake.objects["/exports/sprawl/urban_sprawl_2021.csv"]))
	assert.Equal(t, "text/csv", fake.types["/exports/sprawl/urban_sprawl_2021.csv"])

	rc, err := s.Get(context.Background(), "urban_sprawl_2021.csv")
	require.NoError(t, err)
	defer rc.Close() //nolint:errcheck
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "a,b\n", string(data))
}

func TestS3_GetMissing(t *testing.T) {
	s, _ := newTestS3(t)
	_, err := s.Get(context.Background(), "missing.csv")
	assert.ErrorContains(t, err, "s3://exports/sprawl/missing.csv")
}
