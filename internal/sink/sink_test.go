package sink

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseURI(t *testing.T) {
	tests := []struct {
		uri                    string
		scheme, bucket, prefix string
	}{
		{"exports", "file", "", "exports"},
		{"/tmp/out", "file", "", "/tmp/out"},
		{"file:///tmp/out", "file", "", "/tmp/out"},
		{"file://exports", "file", "", "exports"},
		{"gs://my-bucket/sprawl/2021/", "gs", "my-bucket", "sprawl/2021"},
		{"s3://my-bucket", "s3", "my-bucket", ""},
	}
	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			scheme, bucket, prefix, err := ParseURI(tt.uri)
			require.NoError(t, err)
			assert.Equal(t, tt.scheme, scheme)
			assert.Equal(t, tt.bucket, bucket)
			assert.Equal(t, tt.prefix, prefix)
		})
	}
}

func TestParseURI_Errors(t *testing.T) {
	for _, uri := range []string{"", "ftp://host/x", "gs:///no-bucket"} {
		_, _, _, err := ParseURI(uri)
		assert.Error(t, err, uri)
	}
}

func TestJoinKey(t *testing.T) {
	assert.Equal(t, "a.csv", joinKey("", "a.csv"))
	assert.Equal(t, "p/q/a.csv", joinKey("/p/q/", "a.csv"))
}

func TestLocal_PutGet(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "exports")
	s, err := Open(context.Background(), "file://"+dir, Options{})
	require.NoError(t, err)
	defer s.Close() //nolint:errcheck

	uri, err := s.Put(context.Background(), "2021/urban_sprawl_2021.csv", "text/csv", strings.NewReader("a,b\n"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(uri, "file://"))
	assert.True(t, strings.HasSuffix(uri, "2021/urban_sprawl_2021.csv"))

	data, err := os.ReadFile(filepath.Join(dir, "2021", "urban_sprawl_2021.csv"))
	require.NoError(t, err)
	assert.Equal(t, "a,b\n", string(data))

	rc, err := s.Get(context.Background(), "2021/urban_sprawl_2021.csv")
	require.NoError(t, err)
	defer rc.Close() //nolint:errcheck
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "a,b\n", string(got))

	_, err = s.Get(context.Background(), "missing.csv")
	assert.Error(t, err)
}

func TestLocal_PutFailedReaderLeavesNoFile(t *testing.T) {
	dir := t.TempDir()
	l, err := NewLocal(dir)
	require.NoError(t, err)

	_, err = l.Put(context.Background(), "out.csv", "", io.MultiReader(strings.NewReader("x"), errReader{}))
	require.Error(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

type errReader struct{}

func (errReader) Read([]byte) (int, error) { return 0, errors.New("read failed") }

type failSink struct{ err error }

func (f failSink) Put(context.Context, string, string, io.Reader) (string, error) { return "", f.err }
func (f failSink) Get(context.Context, string) (io.ReadCloser, error)             { return nil, f.err }
func (f failSink) Close() error                                                   { return f.err }

func TestMulti(t *testing.T) {
	a, err := NewLocal(filepath.Join(t.TempDir(), "a"))
	require.NoError(t, err)
	b, err := NewLocal(filepath.Join(t.TempDir(), "b"))
	require.NoError(t, err)

	m := Multi{a, b}
	uris, err := m.Put(context.Background(), "x.csv", "text/csv", bytes.NewReader([]byte("data")))
	require.NoError(t, err)
	assert.Len(t, strings.Split(uris, ","), 2)

	rc, err := m.Get(context.Background(), "x.csv")
	require.NoError(t, err)
	_ = rc.Close()
	assert.NoError(t, m.Close())
}

func TestMulti_CollectsErrors(t *testing.T) {
	a, err := NewLocal(t.TempDir())
	require.NoError(t, err)

	m := Multi{failSink{errors.New("first")}, a, failSink{errors.New("second")}}
	uris, err := m.Put(context.Background(), "x.csv", "", strings.NewReader("d"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "first")
	assert.Contains(t, err.Error(), "second")
	assert.True(t, strings.HasSuffix(uris, "x.csv"))

	err = m.Close()
	assert.Contains(t, err.Error(), "2 errors occurred")
}

func TestOpenAll_Single(t *testing.T) {
	s, err := OpenAll(context.Background(), []string{t.TempDir()}, Options{})
	require.NoError(t, err)
	_, ok := s.(*Local)
	assert.True(t, ok)
}
