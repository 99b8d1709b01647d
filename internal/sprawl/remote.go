package sprawl

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	ee "github.com/sells-group/sprawl-cli/pkg/earthengine"
)

// Export destinations.
const (
	DestinationDrive = "drive"
	DestinationGCS   = "gcs"
)

// Destination describes where the platform writes the exported table.
type Destination struct {
	Kind        string // drive or gcs
	Folder      string // Drive folder
	Bucket      string // Cloud Storage bucket
	FileFormat  string
	Description string
}

// ExportRequest builds the table export request for a final collection.
// The destination is passed through without validation.
func ExportRequest(final *ee.Expr, dest Destination) (*ee.ExportTableRequest, error) {
	expr, err := ee.Encode(final)
	if err != nil {
		return nil, eris.Wrap(err, "sprawl: encode export graph")
	}

	format := strings.ToUpper(dest.FileFormat)
	if format == "" {
		format = ee.FormatCSV
	}

	opts := &ee.TableFileOptions{FileFormat: format}
	switch dest.Kind {
	case DestinationGCS:
		opts.CloudStorageDestination = &ee.CloudStorageDestination{
			Bucket:         dest.Bucket,
			FilenamePrefix: joinPrefix(dest.Folder, dest.Description),
		}
	default:
		opts.DriveDestination = &ee.DriveDestination{
			Folder:         dest.Folder,
			FilenamePrefix: dest.Description,
		}
	}

	return &ee.ExportTableRequest{
		Expression:        expr,
		Description:       dest.Description,
		FileExportOptions: opts,
		Selectors:         append([]string(nil), Columns...),
		RequestID:         uuid.New().String(),
	}, nil
}

func joinPrefix(folder, name string) string {
	folder = strings.Trim(folder, "/")
	if folder == "" {
		return name
	}
	return folder + "/" + name
}

// SubmitExport builds the graph and submits one export job. It returns as
// soon as the platform accepts the task; it does not poll or retry.
func SubmitExport(ctx context.Context, client ee.Client, opts GraphOptions, dest Destination) (*ee.Operation, error) {
	log := zap.L().With(
		zap.String("component", "sprawl.remote"),
		zap.Int("year", opts.Year),
	)

	req, err := ExportRequest(BuildGraph(opts), dest)
	if err != nil {
		return nil, err
	}

	log.Info("submitting export",
		zap.String("landcover", opts.Catalog.LandcoverID(opts.Year)),
		zap.String("counties", opts.Catalog.CountyTable),
		zap.String("description", dest.Description),
		zap.Int("graph_values", len(req.Expression.Values)),
	)

	op, err := client.ExportTable(ctx, req)
	if err != nil {
		return nil, eris.Wrap(err, "sprawl: submit export")
	}
	return op, nil
}

// Preview summarizes the final collection without exporting it.
type Preview struct {
	CountyCount int             `json:"county_count"`
	Example     json.RawMessage `json:"example"`
}

// RunPreview computes the county count and the first output feature.
func RunPreview(ctx context.Context, client ee.Client, opts GraphOptions) (*Preview, error) {
	final := BuildGraph(opts)

	countExpr, err := ee.Encode(CountGraph(final))
	if err != nil {
		return nil, eris.Wrap(err, "sprawl: encode count graph")
	}
	raw, err := client.ComputeValue(ctx, countExpr)
	if err != nil {
		return nil, eris.Wrap(err, "sprawl: compute county count")
	}
	var count int
	if err := json.Unmarshal(raw, &count); err != nil {
		return nil, eris.Wrap(err, "sprawl: decode county count")
	}

	firstExpr, err := ee.Encode(FirstGraph(final))
	if err != nil {
		return nil, eris.Wrap(err, "sprawl: encode first graph")
	}
	example, err := client.ComputeValue(ctx, firstExpr)
	if err != nil {
		return nil, eris.Wrap(err, "sprawl: compute example county")
	}

	return &Preview{CountyCount: count, Example: example}, nil
}
