package tiger

import (
	"archive/zip"
	"context"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/sprawl-cli/internal/resilience"
)

// downloadBackoff governs retries of transient Census server failures.
var downloadBackoff = resilience.DownloadBackoff()

// Download fetches a TIGER/Line ZIP into destDir, extracts it and returns
// the path of the .shp file. An existing non-empty ZIP is reused.
func Download(ctx context.Context, url, destDir string) (string, error) {
	log := zap.L().With(
		zap.String("component", "tiger.download"),
		zap.String("url", url),
	)

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", eris.Wrap(err, "tiger: create dest dir")
	}

	zipName := path.Base(url)
	zipPath := filepath.Join(destDir, zipName)

	if info, err := os.Stat(zipPath); err == nil && info.Size() > 0 {
		log.Debug("zip cached", zap.String("path", zipPath))
	} else {
		log.Info("downloading county boundaries")
		err := resilience.Do(ctx, downloadBackoff, "tiger.download", func(ctx context.Context) error {
			return fetch(ctx, url, zipPath)
		})
		if err != nil {
			_ = os.Remove(zipPath)
			return "", eris.Wrap(err, "tiger: download")
		}
	}

	extractDir := filepath.Join(destDir, strings.TrimSuffix(zipName, ".zip"))
	if err := unzip(zipPath, extractDir); err != nil {
		return "", eris.Wrap(err, "tiger: extract")
	}

	shpPath, err := findShapefile(extractDir)
	if err != nil {
		return "", eris.Wrap(err, "tiger: locate shapefile")
	}
	return shpPath, nil
}

func fetch(ctx context.Context, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return eris.Wrap(err, "build request")
	}

	client := &http.Client{Timeout: 10 * time.Minute}
	resp, err := client.Do(req)
	if err != nil {
		return eris.Wrap(err, "get")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return resilience.HTTPStatusError(resp.StatusCode)
	}

	f, err := os.Create(dest) // #nosec G304 -- dest is under the configured temp dir
	if err != nil {
		return eris.Wrap(err, "create file")
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		_ = f.Close()
		return eris.Wrap(err, "write file")
	}
	return eris.Wrap(f.Close(), "close file")
}

// unzip flattens every file entry of the archive into destDir.
func unzip(zipPath, destDir string) error {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return eris.Wrap(err, "create extract dir")
	}

	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return eris.Wrap(err, "open zip")
	}
	defer r.Close() //nolint:errcheck

	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		if err := extractEntry(f, filepath.Join(destDir, filepath.Base(f.Name))); err != nil {
			return eris.Wrapf(err, "extract %s", f.Name)
		}
	}
	return nil
}

func extractEntry(f *zip.File, dest string) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close() //nolint:errcheck

	out, err := os.Create(dest) // #nosec G304 -- base name only
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil { // #nosec G110 -- census archives are trusted
		_ = out.Close()
		return err
	}
	return out.Close()
}

func findShapefile(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", eris.Wrap(err, "read directory")
	}
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".shp") {
			return filepath.Join(dir, e.Name()), nil
		}
	}
	return "", eris.Errorf("no .shp file in %s", dir)
}
