package aqi

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
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/sprawl-cli/internal/resilience"
)

// downloadBackoff governs retries of transient EPA server failures.
var downloadBackoff = resilience.DownloadBackoff()

// Download fetches a daily AQI archive into destDir and returns the ZIP
// path. An existing non-empty ZIP is reused.
func Download(ctx context.Context, url, destDir string) (string, error) {
	log := zap.L().With(
		zap.String("component", "aqi.download"),
		zap.String("url", url),
	)

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", eris.Wrap(err, "aqi: create dest dir")
	}
	zipPath := filepath.Join(destDir, path.Base(url))

	if info, err := os.Stat(zipPath); err == nil && info.Size() > 0 {
		log.Debug("zip cached", zap.String("path", zipPath))
		return zipPath, nil
	}

	log.Info("downloading daily AQI")
	err := resilience.Do(ctx, downloadBackoff, "aqi.download", func(ctx context.Context) error {
		return fetch(ctx, url, zipPath)
	})
	if err != nil {
		_ = os.Remove(zipPath)
		return "", eris.Wrap(err, "aqi: download")
	}
	return zipPath, nil
}

func fetch(ctx context.Context, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return eris.Wrap(err, "build request")
	}

	client := &http.Client{Timeout: 5 * time.Minute}
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

// ReadArchive decodes the first CSV entry of a daily AQI ZIP.
func ReadArchive(zipPath string) ([]Daily, error) {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, eris.Wrap(err, "aqi: open zip")
	}
	defer r.Close() //nolint:errcheck

	for _, f := range r.File {
		if f.FileInfo().IsDir() || !strings.EqualFold(filepath.Ext(f.Name), ".csv") {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, eris.Wrapf(err, "aqi: open %s", f.Name)
		}
		days, err := ReadDaily(rc)
		_ = rc.Close()
		if err != nil {
			return nil, eris.Wrapf(err, "aqi: read %s", f.Name)
		}
		return days, nil
	}
	return nil, eris.Errorf("aqi: no CSV file in %s", filepath.Base(zipPath))
}

// FetchYear downloads and decodes one year of daily observations.
func FetchYear(ctx context.Context, baseURL string, year int, destDir string) ([]Daily, error) {
	zipPath, err := Download(ctx, URL(baseURL, year), destDir)
	if err != nil {
		return nil, err
	}
	return ReadArchive(zipPath)
}

// FetchYears downloads every year in [from, to] with up to workers at once.
// A year that fails is logged and reported in failed rather than aborting
// the others; only cancellation of ctx is returned as an error. Daily
// observations come back in year order.
func FetchYears(ctx context.Context, baseURL string, from, to int, destDir string, workers int) (days []Daily, failed map[int]error, err error) {
	if to < from {
		return nil, nil, eris.Errorf("aqi: year range %d-%d is empty", from, to)
	}
	if workers < 1 {
		workers = 1
	}
	log := zap.L().With(zap.String("component", "aqi.fetch"))

	perYear := make([][]Daily, to-from+1)
	errs := make([]error, to-from+1)

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range perYear {
		year := from + i
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			d, err := FetchYear(gCtx, baseURL, year, destDir)
			if err != nil {
				log.Warn("skipping year", zap.Int("year", year), zap.Error(err))
				errs[i] = err
				return nil
			}
			log.Info("year processed", zap.Int("year", year), zap.Int("records", len(d)))
			perYear[i] = d
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, eris.Wrap(err, "aqi: fetch years")
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, eris.Wrap(err, "aqi: fetch years")
	}

	failed = make(map[int]error)
	for i, d := range perYear {
		if errs[i] != nil {
			failed[from+i] = errs[i]
			continue
		}
		days = append(days, d...)
	}
	return days, failed, nil
}
