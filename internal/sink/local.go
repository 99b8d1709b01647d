package sink

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
)

// Local writes files under a directory.
type Local struct {
	Dir string
}

// NewLocal creates dir if needed.
func NewLocal(dir string) (*Local, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "sink: create %s", dir)
	}
	return &Local{Dir: dir}, nil
}

// Put writes the object through a temp file and renames it into place.
func (l *Local) Put(_ context.Context, key, _ string, r io.Reader) (string, error) {
	dest := filepath.Join(l.Dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", eris.Wrapf(err, "sink: create dir for %s", key)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".sprawl-*")
	if err != nil {
		return "", eris.Wrap(err, "sink: create temp file")
	}
	if _, err := io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return "", eris.Wrapf(err, "sink: write %s", key)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return "", eris.Wrapf(err, "sink: close %s", key)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		_ = os.Remove(tmp.Name())
		return "", eris.Wrapf(err, "sink: rename %s", key)
	}

	abs, err := filepath.Abs(dest)
	if err != nil {
		abs = dest
	}
	return "file://" + filepath.ToSlash(abs), nil
}

// Get opens a stored file.
func (l *Local) Get(_ context.Context, key string) (io.ReadCloser, error) {
	f, err := os.Open(filepath.Join(l.Dir, filepath.FromSlash(key))) // #nosec G304 -- key is operator supplied
	if err != nil {
		return nil, eris.Wrapf(err, "sink: open %s", key)
	}
	return f, nil
}

// Close is a no-op.
func (l *Local) Close() error { return nil }
