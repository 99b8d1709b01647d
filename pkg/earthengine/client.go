// Package earthengine provides a client for the Earth Engine REST API:
// computation graph encoding, table exports and operation lookups.
package earthengine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Client defines the Earth Engine operations used by the exporter.
type Client interface {
	// ExportTable starts an asynchronous table export and returns its operation.
	ExportTable(ctx context.Context, req *ExportTableRequest) (*Operation, error)
	// GetOperation fetches the current state of a long-running operation.
	GetOperation(ctx context.Context, name string) (*Operation, error)
	// ComputeValue evaluates an expression synchronously and returns the raw result.
	ComputeValue(ctx context.Context, expr *Expression) (json.RawMessage, error)
}

// File formats accepted by table exports.
const (
	FormatCSV     = "CSV"
	FormatGeoJSON = "GEO_JSON"
	FormatKML     = "KML"
	FormatSHP     = "SHP"
)

// ExportTableRequest is the body of projects.table.export.
type ExportTableRequest struct {
	Expression        *Expression       `json:"expression"`
	Description       string            `json:"description,omitempty"`
	FileExportOptions *TableFileOptions `json:"fileExportOptions,omitempty"`
	Selectors         []string          `json:"selectors,omitempty"`
	RequestID         string            `json:"requestId,omitempty"`
	MaxErrorMeters    float64           `json:"maxErrorMeters,omitempty"`
}

// TableFileOptions selects the exported file format and destination.
type TableFileOptions struct {
	FileFormat              string                   `json:"fileFormat"`
	DriveDestination        *DriveDestination        `json:"driveDestination,omitempty"`
	CloudStorageDestination *CloudStorageDestination `json:"cloudStorageDestination,omitempty"`
}

// DriveDestination writes the export into a Google Drive folder.
type DriveDestination struct {
	Folder         string `json:"folder,omitempty"`
	FilenamePrefix string `json:"filenamePrefix,omitempty"`
}

// CloudStorageDestination writes the export into a Cloud Storage bucket.
type CloudStorageDestination struct {
	Bucket         string `json:"bucket"`
	FilenamePrefix string `json:"filenamePrefix,omitempty"`
}

// Operation is a long-running export task.
type Operation struct {
	Name     string             `json:"name"`
	Metadata *OperationMetadata `json:"metadata,omitempty"`
	Done     bool               `json:"done,omitempty"`
	Error    *Status            `json:"error,omitempty"`
}

// OperationMetadata describes task progress.
type OperationMetadata struct {
	Type            string    `json:"@type,omitempty"`
	State           string    `json:"state,omitempty"`
	Description     string    `json:"description,omitempty"`
	TaskType        string    `json:"type,omitempty"`
	Progress        float64   `json:"progress,omitempty"`
	CreateTime      time.Time `json:"createTime,omitempty"`
	UpdateTime      time.Time `json:"updateTime,omitempty"`
	StartTime       time.Time `json:"startTime,omitempty"`
	EndTime         time.Time `json:"endTime,omitempty"`
	DestinationURIs []string  `json:"destinationUris,omitempty"`
	Attempt         int       `json:"attempt,omitempty"`
}

// Status is a google.rpc.Status error payload.
type Status struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status,omitempty"`
}

// State returns the metadata state or "" when unknown.
func (o *Operation) State() string {
	if o == nil || o.Metadata == nil {
		return ""
	}
	return o.Metadata.State
}

// ID returns the trailing operation id of the resource name.
func (o *Operation) ID() string {
	if o == nil {
		return ""
	}
	if i := strings.LastIndexByte(o.Name, '/'); i >= 0 {
		return o.Name[i+1:]
	}
	return o.Name
}

// APIError is returned for non-2xx responses.
type APIError struct {
	HTTPStatus int
	Status     Status
}

func (e *APIError) Error() string {
	if e.Status.Message != "" {
		return fmt.Sprintf("earthengine: HTTP %d %s: %s", e.HTTPStatus, e.Status.Status, e.Status.Message)
	}
	return fmt.Sprintf("earthengine: HTTP %d", e.HTTPStatus)
}

// Option configures the Earth Engine client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = strings.TrimRight(url, "/")
	}
}

// WithHTTPClient sets a custom HTTP client, typically an oauth2 client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	project string
	baseURL string
	http    *http.Client
}

// NewClient creates a new Earth Engine client for a cloud project.
func NewClient(project string, opts ...Option) Client {
	c := &httpClient{
		project: project,
		baseURL: "https://earthengine.googleapis.com/v1",
		http:    &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) projectURL(method string) string {
	return fmt.Sprintf("%s/projects/%s/%s", c.baseURL, c.project, method)
}

func (c *httpClient) ExportTable(ctx context.Context, req *ExportTableRequest) (*Operation, error) {
	if req == nil || req.Expression == nil {
		return nil, eris.New("earthengine: export table: missing expression")
	}

	var op Operation
	if err := c.do(ctx, http.MethodPost, c.projectURL("table:export"), req, &op); err != nil {
		return nil, eris.Wrap(err, "earthengine: export table")
	}

	zap.L().Info("earthengine: export submitted",
		zap.String("component", "earthengine"),
		zap.String("operation", op.Name),
		zap.String("description", req.Description),
	)
	return &op, nil
}

func (c *httpClient) GetOperation(ctx context.Context, name string) (*Operation, error) {
	if name == "" {
		return nil, eris.New("earthengine: get operation: empty name")
	}
	if !strings.HasPrefix(name, "projects/") {
		name = fmt.Sprintf("projects/%s/operations/%s", c.project, name)
	}

	var op Operation
	if err := c.do(ctx, http.MethodGet, c.baseURL+"/"+name, nil, &op); err != nil {
		return nil, eris.Wrapf(err, "earthengine: get operation %s", name)
	}
	return &op, nil
}

func (c *httpClient) ComputeValue(ctx context.Context, expr *Expression) (json.RawMessage, error) {
	body := struct {
		Expression *Expression `json:"expression"`
	}{Expression: expr}

	var out struct {
		Result json.RawMessage `json:"result"`
	}
	if err := c.do(ctx, http.MethodPost, c.projectURL("value:compute"), body, &out); err != nil {
		return nil, eris.Wrap(err, "earthengine: compute value")
	}
	return out.Result, nil
}

// do issues a single request. Requests are not retried: an export that
// fails is reported and left to the caller.
func (c *httpClient) do(ctx context.Context, method, url string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return eris.Wrap(err, "marshal request")
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return eris.Wrap(err, "build request")
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	data, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return eris.Wrap(err, "read response")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{HTTPStatus: resp.StatusCode}
		var envelope struct {
			Error Status `json:"error"`
		}
		if json.Unmarshal(data, &envelope) == nil {
			apiErr.Status = envelope.Error
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return eris.Wrap(err, "decode response")
	}
	return nil
}
