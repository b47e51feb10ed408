package main

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"path/filepath"
	"runtime"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/recera/graphchart/cmd/graphchart/internal/config"
	"github.com/recera/graphchart/internal/graphcache"
	"github.com/recera/graphchart/pkg/backend"
	"github.com/recera/graphchart/pkg/live"
	"github.com/recera/graphchart/pkg/reconciler"
	"github.com/recera/graphchart/pkg/webapp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

//go:embed static/index.html
var indexHTML []byte

type chartServer struct {
	config      *config.Config
	descriptors *webapp.DescriptorStore
	watcher     *fsnotify.Watcher
	cache       graphcache.Store
	liveServer  *live.Server
	started     time.Time

	reloadMu sync.Mutex
	reloads  int
}

func newServeCommand(cfgFile *string) *cobra.Command {
	v := config.New()

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the chart server",
		Long:  `Serves the chart page and its WebSocket endpoint, relaying chart configurations to the webapp backend.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(v, *cfgFile)
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg)
		},
	}

	cmd.Flags().IntP("port", "p", 8080, "Port to listen on")
	cmd.Flags().StringP("host", "H", "localhost", "Host to bind to")
	cmd.Flags().String("backend", "", "Webapp backend URL")
	cmd.Flags().String("descriptor", "", "Parameter descriptor file (YAML, JSON or TOML)")
	cmd.Flags().Bool("watch", true, "Reload the descriptor when it changes")
	cmd.Flags().String("cache", "", "Response cache: none, memory or redis")

	bindFlags(v, cmd, map[string]string{
		"server.port":       "port",
		"server.host":       "host",
		"backend.url":       "backend",
		"webapp.descriptor": "descriptor",
		"webapp.watch":      "watch",
		"cache.kind":        "cache",
	})

	return cmd
}

// bindFlags makes flags override config values when set
func bindFlags(v *viper.Viper, cmd *cobra.Command, keys map[string]string) {
	for key, name := range keys {
		v.BindPFlag(key, cmd.Flags().Lookup(name))
	}
}

func runServe(ctx context.Context, cfg *config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server, err := newChartServer(cfg)
	if err != nil {
		return err
	}
	defer server.Close()

	if cfg.Webapp.Watch && cfg.Webapp.Descriptor != "" {
		if err := server.startWatcher(); err != nil {
			log.Printf("⚠️  Descriptor watch disabled: %v", err)
		}
	}

	httpServer := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           server.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("🚀 Chart server listening on http://%s", cfg.Addr())
		log.Printf("🔗 Backend: %s", cfg.Backend.URL)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Println("🛑 Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	server.liveServer.Close()
	return httpServer.Shutdown(shutdownCtx)
}

// newChartServer wires the backend client, cache and live server
func newChartServer(cfg *config.Config) (*chartServer, error) {
	desc := webapp.DefaultDescriptor()
	if cfg.Webapp.Descriptor != "" {
		loaded, err := webapp.LoadDescriptor(cfg.Webapp.Descriptor)
		if err != nil {
			return nil, err
		}
		desc = loaded
	}

	client, err := backend.NewClient(backend.Options{
		BaseURL: cfg.Backend.URL,
		Timeout: cfg.Backend.Timeout,
	})
	if err != nil {
		return nil, err
	}

	store, err := graphcache.Open(cfg.GraphCache())
	if err != nil {
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}

	var fetcher reconciler.Fetcher = client
	if store != nil {
		fetcher = &graphcache.Fetcher{Next: client, Store: store}
		log.Printf("🗄️  Response cache: %s", cfg.Cache.Kind)
	}

	s := &chartServer{
		config:      cfg,
		descriptors: webapp.NewDescriptorStore(desc),
		cache:       store,
		started:     time.Now(),
	}
	s.liveServer = live.NewServer(live.Options{
		Fetcher:        fetcher,
		Descriptor:     s.descriptors.Load,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Debounce:       cfg.Webapp.Debounce,
		FetchTimeout:   cfg.Backend.Timeout,
	})
	return s, nil
}

func (s *chartServer) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(live.PathPrefix, s.liveServer.HandleWebSocket)
	mux.HandleFunc("/health", s.serveHealth)
	mux.HandleFunc("/", s.serveIndex)
	return mux
}

func (s *chartServer) serveIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && r.URL.Path != "/index.html" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Write(indexHTML)
}

// HealthResponse is the /health payload
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Service   string            `json:"service"`
	Uptime    string            `json:"uptime,omitempty"`
	Sessions  int               `json:"sessions"`
	Cache     *graphcache.Stats `json:"cache,omitempty"`
	Details   map[string]string `json:"details,omitempty"`
}

func (s *chartServer) serveHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Service:   "graphchart",
		Uptime:    time.Since(s.started).String(),
		Sessions:  s.liveServer.SessionCount(),
		Details: map[string]string{
			"go_version": runtime.Version(),
			"version":    version,
			"backend":    s.config.Backend.URL,
			"reloads":    strconv.Itoa(s.reloadCount()),
		},
	}
	if s.cache != nil {
		stats := s.cache.Stats()
		response.Cache = &stats
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Printf("Failed to write health response: %v", err)
	}
}

// startWatcher reloads the descriptor when its file changes. The directory
// is watched so that editors replacing the file are still seen.
func (s *chartServer) startWatcher() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	path, err := filepath.Abs(s.config.Webapp.Descriptor)
	if err != nil {
		watcher.Close()
		return err
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return err
	}
	s.watcher = watcher
	go s.watchDescriptor(path)
	log.Printf("👀 Watching %s", path)
	return nil
}

func (s *chartServer) watchDescriptor(path string) {
	debounce := time.NewTimer(0)
	<-debounce.C // drain initial timer

	for {
		select {
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			debounce.Reset(100 * time.Millisecond)

		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			log.Println("Watcher error:", err)

		case <-debounce.C:
			s.reloadDescriptor(path)
		}
	}
}

// reloadDescriptor swaps in the descriptor at path. A broken file keeps the
// current one.
func (s *chartServer) reloadDescriptor(path string) {
	desc, err := webapp.LoadDescriptor(path)
	if err != nil {
		log.Printf("⚠️  Descriptor reload failed, keeping previous: %v", err)
		return
	}
	s.descriptors.Store(desc)

	s.reloadMu.Lock()
	s.reloads++
	s.reloadMu.Unlock()
	log.Printf("🔄 Descriptor reloaded (%d mandatory top-bar params)", countMandatory(desc.TopBarParams))
}

func countMandatory(params []webapp.ParameterSpec) int {
	n := 0
	for _, p := range params {
		if p.Mandatory {
			n++
		}
	}
	return n
}

func (s *chartServer) reloadCount() int {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()
	return s.reloads
}

// Close releases the watcher, sessions and cache
func (s *chartServer) Close() {
	if s.watcher != nil {
		s.watcher.Close()
	}
	s.liveServer.Close()
	if s.cache != nil {
		if err := s.cache.Close(); err != nil {
			log.Printf("Failed to close cache: %v", err)
		}
	}
}
