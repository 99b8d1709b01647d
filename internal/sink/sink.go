// Package sink stores exported files on the local filesystem, Google Cloud
// Storage or S3, addressed by URI.
package sink

import (
	"bytes"
	"context"
	"io"
	"net/url"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/rotisserie/eris"
)

// Sink is a destination for exported files.
type Sink interface {
	// Put stores the contents of r under key and returns the object URI.
	Put(ctx context.Context, key, contentType string, r io.Reader) (string, error)
	// Get opens the object stored under key.
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	// Close releases client resources.
	Close() error
}

// Options configure cloud sinks.
type Options struct {
	S3 S3Options
}

// Open returns the sink for a destination URI: a bare path or file://,
// gs://bucket/prefix or s3://bucket/prefix.
func Open(ctx context.Context, uri string, opts Options) (Sink, error) {
	scheme, bucket, prefix, err := ParseURI(uri)
	if err != nil {
		return nil, err
	}
	switch scheme {
	case "file":
		return NewLocal(prefix)
	case "gs":
		return NewGCS(ctx, bucket, prefix)
	case "s3":
		return NewS3(ctx, bucket, prefix, opts.S3)
	}
	return nil, eris.Errorf("sink: unsupported scheme %q", scheme)
}

// ParseURI splits a destination URI. For file URIs the bucket is empty and
// prefix is the directory.
func ParseURI(uri string) (scheme, bucket, prefix string, err error) {
	if uri == "" {
		return "", "", "", eris.New("sink: empty destination")
	}
	if !strings.Contains(uri, "://") {
		return "file", "", uri, nil
	}

	u, err := url.Parse(uri)
	if err != nil {
		return "", "", "", eris.Wrapf(err, "sink: parse %s", uri)
	}
	switch u.Scheme {
	case "file":
		return "file", "", u.Host + u.Path, nil
	case "gs", "s3":
		if u.Host == "" {
			return "", "", "", eris.Errorf("sink: %s has no bucket", uri)
		}
		return u.Scheme, u.Host, strings.Trim(u.Path, "/"), nil
	}
	return "", "", "", eris.Errorf("sink: unsupported scheme %q", u.Scheme)
}

func joinKey(prefix, key string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return key
	}
	return prefix + "/" + key
}

// Multi fans writes out to several sinks.
type Multi []Sink

// OpenAll opens every destination. A single destination is returned as is.
func OpenAll(ctx context.Context, uris []string, opts Options) (Sink, error) {
	var out Multi
	for _, uri := range uris {
		s, err := Open(ctx, uri, opts)
		if err != nil {
			_ = out.Close()
			return nil, err
		}
		out = append(out, s)
	}
	if len(out) == 1 {
		return out[0], nil
	}
	return out, nil
}

// Put buffers r and writes it to every sink. The returned URIs are joined
// with commas; errors from all sinks are collected.
func (m Multi) Put(ctx context.Context, key, contentType string, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", eris.Wrap(err, "sink: buffer object")
	}

	var (
		uris   []string
		result *multierror.Error
	)
	for _, s := range m {
		uri, err := s.Put(ctx, key, contentType, bytes.NewReader(data))
		if err != nil {
			result = multierror.Append(result, err)
			continue
		}
		uris = append(uris, uri)
	}
	return strings.Join(uris, ","), result.ErrorOrNil()
}

// Get reads from the first sink that has the object.
func (m Multi) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	var result *multierror.Error
	for _, s := range m {
		rc, err := s.Get(ctx, key)
		if err == nil {
			return rc, nil
		}
		result = multierror.Append(result, err)
	}
	if result == nil {
		return nil, eris.New("sink: no destinations")
	}
	return nil, result.ErrorOrNil()
}

// Close closes every sink.
func (m Multi) Close() error {
	var result *multierror.Error
	for _, s := range m {
		if err := s.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}
