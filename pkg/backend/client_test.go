package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/recera/graphchart/pkg/webapp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func testRequest() Request {
	return Request{
		Config: webapp.EffectiveConfig{
			Dataset:  "edges",
			Source:   "src",
			Target:   "dst",
			MaxNodes: 50,
		},
		Filters:    webapp.FilterSet{"src": map[string]any{"column": "src", "filterType": "ALPHANUM_FACET"}},
		ScaleRatio: 1.5,
	}
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *tracetest.SpanRecorder) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))

	c, err := NewClient(Options{BaseURL: srv.URL + "/backend/", TracerProvider: tp})
	require.NoError(t, err)
	return c, sr
}

func TestNewClient(t *testing.T) {
	_, err := NewClient(Options{})
	assert.Error(t, err)

	c, err := NewClient(Options{BaseURL: "http://localhost:8000/"})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8000/get_graph_data", c.Endpoint())
}

func TestRequest_Encode(t *testing.T) {
	body, err := testRequest().Encode()
	require.NoError(t, err)

	var p payload
	require.NoError(t, json.Unmarshal(body, &p))
	assert.Equal(t, 1.5, p.ScaleRatio)
	assert.JSONEq(t, `{"dataset_name":"edges","source":"src","target":"dst","max_nodes":50,"directed_edges":false}`, p.Config)
	assert.JSONEq(t, `[{"column":"src","filterType":"ALPHANUM_FACET"}]`, p.Filters)

	t.Run("nil filters encode as empty list", func(t *testing.T) {
		req := testRequest()
		req.Filters = nil
		body, err := req.Encode()
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &p))
		assert.Equal(t, "[]", p.Filters)
	})
}

func TestGetGraphData(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		c, sr := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/backend/get_graph_data", r.URL.Path)

			body, _ := io.ReadAll(r.Body)
			var p payload
			assert.NoError(t, json.Unmarshal(body, &p))
			assert.Contains(t, p.Config, `"dataset_name":"edges"`)

			w.Header().Set("Content-Type", "application/json")
			io.WriteString(w, `{"nodes":[{"id":"a","label":"a"},{"id":"b","label":"b"}],"edges":[{"from":"a","to":"b"}],"groups":[{"name":"g","color":"#fff"}]}`)
		})

		data, err := c.GetGraphData(context.Background(), testRequest())
		require.NoError(t, err)
		assert.Len(t, data.Nodes, 2)
		assert.Len(t, data.Edges, 1)
		assert.Equal(t, "g", data.Groups[0].Name)

		spans := sr.Ended()
		require.Len(t, spans, 1)
		assert.Equal(t, "backend.GetGraphData", spans[0].Name())
		assert.NotEqual(t, codes.Error, spans[0].Status().Code)
	})

	t.Run("502 means not started", func(t *testing.T) {
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		})

		_, err := c.GetGraphData(context.Background(), testRequest())
		var unavailable *BackendUnavailableError
		require.ErrorAs(t, err, &unavailable)
		assert.True(t, IsTransient(err))
	})

	t.Run("500 carries body", func(t *testing.T) {
		c, sr := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "Dataframe is empty", http.StatusInternalServerError)
		})

		_, err := c.GetGraphData(context.Background(), testRequest())
		var respErr *BackendResponseError
		require.ErrorAs(t, err, &respErr)
		assert.Equal(t, http.StatusInternalServerError, respErr.StatusCode)
		assert.Contains(t, respErr.Error(), "Dataframe is empty")
		assert.False(t, IsTransient(err))

		spans := sr.Ended()
		require.Len(t, spans, 1)
		assert.Equal(t, codes.Error, spans[0].Status().Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, "<html>oops</html>")
		})

		_, err := c.GetGraphData(context.Background(), testRequest())
		var malformed *MalformedResponseError
		require.ErrorAs(t, err, &malformed)
		assert.NotNil(t, errors.Unwrap(err))
	})

	t.Run("cancelled context", func(t *testing.T) {
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, `{"nodes":[],"edges":[]}`)
		})

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := c.GetGraphData(ctx, testRequest())
		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
	})
}
