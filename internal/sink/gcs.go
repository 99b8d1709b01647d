package sink

import (
	"context"
	"io"

	"cloud.google.com/go/storage"
	"github.com/rotisserie/eris"
)

// GCS stores objects in a Cloud Storage bucket using application default
// credentials.
type GCS struct {
	client *storage.Client
	bucket string
	prefix string
}

// NewGCS creates a Cloud Storage sink.
func NewGCS(ctx context.Context, bucket, prefix string) (*GCS, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "sink: create gcs client")
	}
	return &GCS{client: client, bucket: bucket, prefix: prefix}, nil
}

// Put uploads r as a single object.
func (g *GCS) Put(ctx context.Context, key, contentType string, r io.Reader) (string, error) {
	name := joinKey(g.prefix, key)
	w := g.client.Bucket(g.bucket).Object(name).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return "", eris.Wrapf(err, "sink: upload gs://%s/%s", g.bucket, name)
	}
	if err := w.Close(); err != nil {
		return "", eris.Wrapf(err, "sink: finalize gs://%s/%s", g.bucket, name)
	}
	return "gs://" + g.bucket + "/" + name, nil
}

// Get opens an object for reading.
func (g *GCS) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	name := joinKey(g.prefix, key)
	rc, err := g.client.Bucket(g.bucket).Object(name).NewReader(ctx)
	if err != nil {
		return nil, eris.Wrapf(err, "sink: open gs://%s/%s", g.bucket, name)
	}
	return rc, nil
}

// Close closes the client.
func (g *GCS) Close() error {
	return eris.Wrap(g.client.Close(), "sink: close gcs client")
}
