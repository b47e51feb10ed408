// Package backend calls the webapp backend that computes graph data. The
// backend itself is external; this package only speaks its HTTP contract.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/recera/graphchart/pkg/render"
	"github.com/recera/graphchart/pkg/webapp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// GraphDataPath is the backend route serving graph data
const GraphDataPath = "get_graph_data"

const tracerName = "github.com/recera/graphchart/pkg/backend"

// maxErrorBody bounds how much of an error body is kept for display
const maxErrorBody = 64 << 10

// Request is one graph data query
type Request struct {
	Config     webapp.EffectiveConfig
	Filters    webapp.FilterSet
	ScaleRatio float64
}

// payload is the wire form: config and filters travel as JSON strings
type payload struct {
	Config     string  `json:"config"`
	Filters    string  `json:"filters"`
	ScaleRatio float64 `json:"scale_ratio"`
}

// Encode returns the request body
func (r Request) Encode() ([]byte, error) {
	cfg, err := json.Marshal(r.Config)
	if err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	filters := r.Filters
	if filters == nil {
		filters = webapp.FilterSet{}
	}
	fs, err := json.Marshal(filters)
	if err != nil {
		return nil, fmt.Errorf("failed to encode filters: %w", err)
	}
	return json.Marshal(payload{
		Config:     string(cfg),
		Filters:    string(fs),
		ScaleRatio: r.ScaleRatio,
	})
}

// Options configures the client
type Options struct {
	// BaseURL is the backend root, e.g. "http://localhost:8000/backend"
	BaseURL string

	// Timeout bounds one request (default 60s)
	Timeout time.Duration

	// HTTPClient overrides the transport
	HTTPClient *http.Client

	// TracerProvider overrides the global otel provider
	TracerProvider trace.TracerProvider
}

// Client fetches graph data from the backend
type Client struct {
	endpoint string
	http     *http.Client
	tracer   trace.Tracer
}

// NewClient creates a backend client
func NewClient(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("backend URL is required")
	}
	if opts.Timeout == 0 {
		opts.Timeout = 60 * time.Second
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}
	tp := opts.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}

	return &Client{
		endpoint: strings.TrimRight(opts.BaseURL, "/") + "/" + GraphDataPath,
		http:     httpClient,
		tracer:   tp.Tracer(tracerName),
	}, nil
}

// Endpoint returns the graph data URL
func (c *Client) Endpoint() string {
	return c.endpoint
}

// GetGraphData posts req and decodes the graph. Errors are one of
// *BackendUnavailableError, *BackendResponseError, *MalformedResponseError,
// or a transport error.
func (c *Client) GetGraphData(ctx context.Context, req Request) (data *render.GraphData, err error) {
	ctx, span := c.tracer.Start(ctx, "backend.GetGraphData", trace.WithAttributes(
		attribute.String("graphchart.dataset", req.Config.Dataset),
		attribute.Int("graphchart.max_nodes", req.Config.MaxNodes),
		attribute.Float64("graphchart.scale_ratio", req.ScaleRatio),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetAttributes(
				attribute.Int("graphchart.nodes", len(data.Nodes)),
				attribute.Int("graphchart.edges", len(data.Edges)),
			)
		}
		span.End()
	}()

	body, err := req.Encode()
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to reach backend: %w", err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	if resp.StatusCode == http.StatusBadGateway {
		io.Copy(io.Discard, resp.Body)
		return nil, &BackendUnavailableError{StatusCode: resp.StatusCode}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &BackendResponseError{StatusCode: resp.StatusCode, Body: string(text)}
	}

	var graph render.GraphData
	if err := json.NewDecoder(resp.Body).Decode(&graph); err != nil {
		return nil, &MalformedResponseError{Err: err}
	}
	return &graph, nil
}
