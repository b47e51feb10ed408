package live

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/recera/graphchart/pkg/backend"
	"github.com/recera/graphchart/pkg/render"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticFetcher struct {
	data *render.GraphData
}

func (f *staticFetcher) GetGraphData(ctx context.Context, req backend.Request) (*render.GraphData, error) {
	return f.data, nil
}

// A-B, A-C, B-D, D-E
func chainGraph() *render.GraphData {
	g := &render.GraphData{}
	for _, id := range []string{"A", "B", "C", "D", "E"} {
		g.Nodes = append(g.Nodes, render.Node{ID: render.NodeID(id), Label: id})
	}
	for _, e := range [][2]string{{"A", "B"}, {"A", "C"}, {"B", "D"}, {"D", "E"}} {
		g.Edges = append(g.Edges, render.Edge{From: render.NodeID(e[0]), To: render.NodeID(e[1])})
	}
	return g
}

func startServer(t *testing.T, opts Options) (*Server, *httptest.Server) {
	t.Helper()
	if opts.Fetcher == nil {
		opts.Fetcher = &staticFetcher{data: chainGraph()}
	}
	srv := NewServer(opts)
	mux := http.NewServeMux()
	mux.HandleFunc(PathPrefix, srv.HandleWebSocket)
	ts := httptest.NewServer(mux)
	t.Cleanup(func() {
		srv.Close()
		ts.Close()
	})
	return srv, ts
}

func dial(t *testing.T, ts *httptest.Server, path string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + path
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMsg(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	var msg map[string]any
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func configMsg(cfg map[string]any) map[string]any {
	return map[string]any{
		"type":         "config",
		"webAppConfig": cfg,
		"filters":      []any{},
		"viewport":     map[string]any{"width": 800, "height": 600},
	}
}

func validConfig() map[string]any {
	return map[string]any{
		"dataset":   "edges",
		"source":    "src",
		"target":    "dst",
		"max_nodes": 50,
	}
}

func TestSession_Handshake(t *testing.T) {
	_, ts := startServer(t, Options{})
	conn := dial(t, ts, PathPrefix+"s1")

	msg := readMsg(t, conn)
	assert.Equal(t, "sendConfig", msg["type"])
}

func TestSession_ConfigRendersGraph(t *testing.T) {
	_, ts := startServer(t, Options{})
	conn := dial(t, ts, PathPrefix+"s1")
	readMsg(t, conn)

	require.NoError(t, conn.WriteJSON(configMsg(validConfig())))

	assert.Equal(t, "loading", readMsg(t, conn)["type"])

	msg := readMsg(t, conn)
	require.Equal(t, "render", msg["type"])
	assert.Len(t, msg["nodes"], 5)
	assert.Len(t, msg["edges"], 4)
	options, ok := msg["options"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, options, "physics")
}

func TestSession_DoubleClickHighlights(t *testing.T) {
	_, ts := startServer(t, Options{})
	conn := dial(t, ts, PathPrefix+"s1")
	readMsg(t, conn)

	require.NoError(t, conn.WriteJSON(configMsg(validConfig())))
	readMsg(t, conn)
	require.Equal(t, "render", readMsg(t, conn)["type"])

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "dblclick", "node": "A"}))
	msg := readMsg(t, conn)
	require.Equal(t, "colors", msg["type"])

	colors := msg["colors"].(map[string]any)
	assert.Equal(t, "", colors["A"])
	assert.Equal(t, "", colors["B"])
	assert.Equal(t, "", colors["C"])
	assert.Equal(t, "rgba(150,150,150,0.75)", colors["D"])
	assert.Equal(t, "rgba(200,200,200,0.5)", colors["E"])

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "dblclick", "node": nil}))
	msg = readMsg(t, conn)
	require.Equal(t, "colors", msg["type"])
	for id, color := range msg["colors"].(map[string]any) {
		assert.Equal(t, "", color, "node %s should be reset", id)
	}
}

func TestSession_InvalidConfigShowsError(t *testing.T) {
	_, ts := startServer(t, Options{})
	conn := dial(t, ts, PathPrefix+"s1")
	readMsg(t, conn)

	cfg := validConfig()
	delete(cfg, "source")
	require.NoError(t, conn.WriteJSON(configMsg(cfg)))

	msg := readMsg(t, conn)
	require.Equal(t, "error", msg["type"])
	assert.Contains(t, msg["message"], "source")
}

func TestSession_MalformedMessageIsIgnored(t *testing.T) {
	_, ts := startServer(t, Options{})
	conn := dial(t, ts, PathPrefix+"s1")
	readMsg(t, conn)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	require.NoError(t, conn.WriteJSON(map[string]any{"type": "bogus"}))
	require.NoError(t, conn.WriteJSON(configMsg(validConfig())))

	assert.Equal(t, "loading", readMsg(t, conn)["type"])
}

func TestServer_SessionLifecycle(t *testing.T) {
	srv, ts := startServer(t, Options{})

	conn := dial(t, ts, PathPrefix)
	readMsg(t, conn)
	require.Eventually(t, func() bool { return srv.SessionCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	named := dial(t, ts, PathPrefix+"named")
	readMsg(t, named)
	require.Eventually(t, func() bool {
		_, ok := srv.GetSession("named")
		return ok
	}, 2*time.Second, 10*time.Millisecond)

	conn.Close()
	named.Close()
	require.Eventually(t, func() bool { return srv.SessionCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestServer_CheckOrigin(t *testing.T) {
	_, ts := startServer(t, Options{AllowedOrigins: []string{"https://dss.example.com"}})
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + PathPrefix + "s1"

	header := http.Header{}
	header.Set("Origin", "https://evil.example.com")
	_, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	header.Set("Origin", "https://dss.example.com")
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	conn.Close()
}
