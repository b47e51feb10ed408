// Package live serves the chart page over WebSocket. Each connection is a
// session with its own event loop, configuration reconciler and highlight
// engine.
package live

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/recera/graphchart/pkg/highlight"
	"github.com/recera/graphchart/pkg/reconciler"
	"github.com/recera/graphchart/pkg/render"
	"github.com/recera/graphchart/pkg/scheduler"
	"github.com/recera/graphchart/pkg/webapp"
)

// PathPrefix is where the WebSocket endpoint is mounted. The session id
// follows it; a missing id gets a fresh one.
const PathPrefix = "/graphchart/live/"

const (
	readTimeout  = 300 * time.Second
	writeTimeout = 10 * time.Second
	pingPeriod   = 54 * time.Second
)

// Options configures the server
type Options struct {
	// Fetcher serves graph data to every session
	Fetcher reconciler.Fetcher

	// Descriptor returns the current parameter descriptor
	Descriptor func() *webapp.Descriptor

	// AllowedOrigins restricts browser origins. Empty or "*" allows all.
	AllowedOrigins []string

	// Debounce and FetchTimeout are passed to each reconciler
	Debounce     time.Duration
	FetchTimeout time.Duration

	// Style overrides the render defaults
	Style *render.Style
}

// Server handles WebSocket connections for chart pages
type Server struct {
	opts     Options
	upgrader websocket.Upgrader
	sessions map[string]*Session
	mu       sync.RWMutex
}

// Session represents a live connection
type Session struct {
	ID     string
	server *Server
	conn   *websocket.Conn

	loop       *scheduler.Loop
	reconciler *reconciler.Reconciler
	engine     *highlight.Engine // owned by loop

	sendTextChan chan []byte
	closeChan    chan struct{}
	closeOnce    sync.Once
}

// NewServer creates a new live protocol server
func NewServer(opts Options) *Server {
	s := &Server{
		opts:     opts,
		sessions: make(map[string]*Session),
	}
	s.upgrader = websocket.Upgrader{
		CheckOrigin:     s.checkOrigin,
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
	}
	return s
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(s.opts.AllowedOrigins) == 0 {
		return true
	}
	for _, allowed := range s.opts.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	log.Printf("[Live Server] Rejected origin %s", origin)
	return false
}

// HandleWebSocket upgrades the connection and runs its session
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.Trim(strings.TrimPrefix(r.URL.Path, PathPrefix), "/")
	if sessionID == "" || strings.Contains(sessionID, "/") {
		sessionID = uuid.NewString()
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[Live Server] Failed to upgrade connection: %v", err)
		return
	}

	session := s.newSession(sessionID, conn)
	go session.handleConnection()
}

// newSession registers a session, replacing one with the same id
func (s *Server) newSession(sessionID string, conn *websocket.Conn) *Session {
	session := &Session{
		ID:           sessionID,
		server:       s,
		conn:         conn,
		loop:         scheduler.NewLoop(256),
		engine:       highlight.NewEngine(nil),
		sendTextChan: make(chan []byte, 64),
		closeChan:    make(chan struct{}),
	}
	session.loop.SetErrorHandler(func(err interface{}) {
		log.Printf("[Live Session %s] Handler panic: %v", sessionID, err)
	})
	session.reconciler = reconciler.New(session.loop, s.opts.Fetcher, session, reconciler.Options{
		Descriptor:   s.opts.Descriptor,
		Debounce:     s.opts.Debounce,
		FetchTimeout: s.opts.FetchTimeout,
		Style:        s.opts.Style,
		Name:         sessionID,
	})

	s.mu.Lock()
	old := s.sessions[sessionID]
	s.sessions[sessionID] = session
	s.mu.Unlock()

	if old != nil {
		log.Printf("[Live Session %s] Replaced by a new connection", sessionID)
		old.Close()
	}
	return session
}

// GetSession retrieves a session by ID
func (s *Server) GetSession(sessionID string) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, exists := s.sessions[sessionID]
	return session, exists
}

// SessionCount returns the number of open sessions
func (s *Server) SessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// removeSession unregisters session unless it was already replaced
func (s *Server) removeSession(session *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sessions[session.ID] == session {
		delete(s.sessions, session.ID)
	}
}

// Close closes every session
func (s *Server) Close() {
	s.mu.Lock()
	sessions := make([]*Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		sessions = append(sessions, session)
	}
	s.mu.Unlock()

	for _, session := range sessions {
		session.Close()
	}
}

// Close ends the session's connection. The read loop then tears down the
// rest.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.closeChan)
		s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		s.conn.Close()
	})
}

// handleConnection manages the WebSocket connection for a session
func (s *Session) handleConnection() {
	s.loop.Start()
	go s.writer()

	defer func() {
		s.Close()
		s.reconciler.Close()
		s.loop.Stop()
		s.server.removeSession(s)
		log.Printf("[Live Session %s] Closed", s.ID)
	}()

	// The page forwards this to the host, which answers with a config message
	s.send(Outbound{Type: MsgSendConfig})
	log.Printf("[Live Session %s] Requested configuration", s.ID)

	s.conn.SetReadDeadline(time.Now().Add(readTimeout))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(readTimeout))
		return nil
	})

	for {
		messageType, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[Live Session %s] Unexpected close: %v", s.ID, err)
			}
			return
		}

		if messageType != websocket.TextMessage {
			log.Printf("[Live Session %s] Ignoring binary message, %d bytes", s.ID, len(data))
			continue
		}
		s.handleTextMessage(data)
	}
}

// writer handles writing messages to the WebSocket
func (s *Session) writer() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case message := <-s.sendTextChan:
			s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := s.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("[Live Session %s] Failed to write message: %v", s.ID, err)
				s.Close()
				return
			}

		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.Close()
				return
			}

		case <-s.closeChan:
			return
		}
	}
}

// handleTextMessage decodes a page message and routes it to the loop
func (s *Session) handleTextMessage(data []byte) {
	var msg Inbound
	if err := json.Unmarshal(data, &msg); err != nil {
		log.Printf("[Live Session %s] Failed to decode message: %v", s.ID, err)
		return
	}

	switch msg.Type {
	case MsgConfig:
		update := reconciler.Update{
			Config:  msg.WebAppConfig,
			Filters: msg.Filters,
		}
		if msg.Viewport != nil {
			update.Width = msg.Viewport.Width
			update.Height = msg.Viewport.Height
		}
		if err := s.reconciler.Submit(update); err != nil {
			log.Printf("[Live Session %s] Failed to queue config: %v", s.ID, err)
		}

	case MsgDoubleClick:
		var id render.NodeID
		if msg.Node != nil {
			id = *msg.Node
		}
		if err := s.loop.Post(func() { s.doubleClick(id) }); err != nil {
			log.Printf("[Live Session %s] Failed to queue double-click: %v", s.ID, err)
		}

	default:
		log.Printf("[Live Session %s] Unknown message type %q", s.ID, msg.Type)
	}
}

func (s *Session) doubleClick(id render.NodeID) {
	colors := s.engine.DoubleClick(id)
	if len(colors) == 0 {
		return
	}
	if selected, ok := s.engine.Selected(); ok {
		log.Printf("[Live Session %s] Highlighting %s", s.ID, selected)
	}
	s.send(Outbound{Type: MsgColors, Colors: colors})
}

// send queues a message for the writer. It blocks while the buffer is full
// and gives up once the session is closed.
func (s *Session) send(msg Outbound) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("[Live Session %s] Failed to encode %s message: %v", s.ID, msg.Type, err)
		return
	}
	select {
	case s.sendTextChan <- data:
	case <-s.closeChan:
	}
}

// Loading implements reconciler.Sink
func (s *Session) Loading() {
	s.send(Outbound{Type: MsgLoading})
}

// Render implements reconciler.Sink. A new graph resets the highlight.
func (s *Session) Render(frame render.Frame) {
	s.engine = highlight.NewEngine(highlight.NewGraph(&render.GraphData{
		Nodes: frame.Nodes,
		Edges: frame.Edges,
	}))
	s.send(Outbound{Type: MsgRender, Frame: &frame})
}

// Clear implements reconciler.Sink
func (s *Session) Clear() {
	s.engine = highlight.NewEngine(nil)
	s.send(Outbound{Type: MsgClear})
}

// DisplayFatalError implements reconciler.Sink
func (s *Session) DisplayFatalError(msg string) {
	s.send(Outbound{Type: MsgError, Message: msg})
}
