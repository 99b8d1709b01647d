package main

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/sprawl-cli/internal/config"
	"github.com/sells-group/sprawl-cli/internal/export"
	"github.com/sells-group/sprawl-cli/internal/sink"
	"github.com/sells-group/sprawl-cli/internal/sprawl"
	"github.com/sells-group/sprawl-cli/internal/store"
	ee "github.com/sells-group/sprawl-cli/pkg/earthengine"
)

func initStore(ctx context.Context) (store.Store, error) {
	st, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, err
	}
	return st, nil
}

func initEarthEngine(ctx context.Context) (ee.Client, error) {
	hc, err := ee.NewAuthorizedHTTPClient(ctx, cfg.EarthEngine.CredentialsFile)
	if err != nil {
		return nil, err
	}
	hc.Timeout = time.Duration(cfg.EarthEngine.TimeoutSecs) * time.Second
	return ee.NewClient(cfg.EarthEngine.Project,
		ee.WithBaseURL(cfg.EarthEngine.BaseURL),
		ee.WithHTTPClient(hc),
	), nil
}

func initSink(ctx context.Context, destinations string) (sink.Sink, error) {
	uris := splitAndTrim(destinations)
	if len(uris) == 0 {
		return nil, eris.New("no output destination configured")
	}
	return sink.OpenAll(ctx, uris, sink.Options{S3: sink.S3Options{
		Region:    cfg.S3.Region,
		Endpoint:  cfg.S3.Endpoint,
		PathStyle: cfg.S3.PathStyle,
	}})
}

// graphOptions builds the pipeline parameters from config and the --year flag.
func graphOptions(cmd *cobra.Command) (sprawl.GraphOptions, error) {
	catalog, err := sprawl.DefaultCatalog().WithOverrides(cfg.Pipeline.LandcoverIDs, cfg.Pipeline.CountyTable)
	if err != nil {
		return sprawl.GraphOptions{}, err
	}
	return sprawl.GraphOptions{
		Year:      yearFlag(cmd, cfg.Pipeline),
		Catalog:   catalog,
		Scale:     cfg.Pipeline.Scale,
		TileScale: cfg.Pipeline.TileScale,
		SimplifyM: cfg.Pipeline.SimplifyM,
	}, nil
}

func yearFlag(cmd *cobra.Command, p config.PipelineConfig) int {
	if y, _ := cmd.Flags().GetInt("year"); y > 0 {
		return y
	}
	return p.Year
}

// outputKey names an exported table, e.g. urban_sprawl_2021.csv.
func outputKey(prefix string, year int, f export.Format) string {
	return sprawl.ExportDescription(prefix, year) + f.Extension()
}

// splitAndTrim splits a comma-separated string and drops empty parts.
func splitAndTrim(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// statsStore returns the county statistics side of st, which only the
// Postgres backend provides.
func statsStore(st store.Store) (store.StatsStore, error) {
	ss, ok := st.(store.StatsStore)
	if !ok {
		return nil, eris.Errorf("store driver %q cannot hold county statistics; use postgres", cfg.Store.Driver)
	}
	return ss, nil
}

// recordFailure marks run as failed. The update outlives ctx so an
// interrupted command still leaves a FAILED row behind.
func recordFailure(ctx context.Context, st store.Store, run *store.Run, cause error) {
	run.State = store.RunStateFailed
	run.Error = cause.Error()
	if err := st.UpdateRun(context.WithoutCancel(ctx), run); err != nil {
		zap.L().Warn("failed to record run failure",
			zap.String("run_id", run.ID), zap.Error(err))
	}
}
