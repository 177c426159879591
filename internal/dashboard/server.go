// Package dashboard serves sync activity to WebSocket clients.
//
// Clients connect to /ws and receive record changes, sync summaries,
// per-file failures and record statistics as JSON messages. A client may
// restrict what it receives with a types query parameter, for example
// /ws?types=failure,stats.
package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

const (
	writeTimeout = 5 * time.Second

	// clientQueue is how many messages may wait for a slow client before
	// it is disconnected.
	clientQueue = 64
)

// Config holds server configuration.
type Config struct {
	// Port to listen on. 0 picks a free port.
	Port int

	// Logger for server activity (default: log.Default()).
	Logger *log.Logger
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Port:   8080,
		Logger: log.Default(),
	}
}

// client is one connected WebSocket peer with its own outgoing queue.
type client struct {
	conn  *websocket.Conn
	types map[MessageType]bool // nil means everything
	send  chan []byte
}

func (c *client) wants(typ MessageType) bool {
	return c.types == nil || c.types[typ]
}

// Server fans dashboard messages out to WebSocket clients.
type Server struct {
	addr     string
	listener net.Listener
	http     *http.Server
	logger   *log.Logger

	mu      sync.RWMutex
	clients map[*client]struct{}
	welcome func() Message

	broadcasts atomic.Uint64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer creates a server. It does not listen until Start.
func NewServer(config *Config) *Server {
	if config == nil {
		config = DefaultConfig()
	}
	logger := config.Logger
	if logger == nil {
		logger = log.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		addr:    fmt.Sprintf(":%d", config.Port),
		logger:  logger,
		clients: make(map[*client]struct{}),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// SetWelcome sets the function building the first message every new
// client receives. Without one clients get an empty stats message.
func (s *Server) SetWelcome(fn func() Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.welcome = fn
}

// Start listens and serves in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.listener = ln

	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", s.handleWebSocket)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /{$}", s.handleRoot)

	s.http = &http.Server{
		Handler:     mux,
		ReadTimeout: 10 * time.Second,
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.logger.Printf("Dashboard server listening on %s", ln.Addr())
		if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Printf("Server error: %v", err)
		}
	}()
	return nil
}

// Stop disconnects every client and shuts the HTTP server down.
func (s *Server) Stop() error {
	s.logger.Println("Stopping dashboard server")
	s.cancel()

	s.mu.Lock()
	for c := range s.clients {
		delete(s.clients, c)
		close(c.send)
	}
	s.mu.Unlock()

	if s.http == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.http.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}
	s.wg.Wait()

	s.logger.Println("Dashboard server stopped")
	return nil
}

// Broadcast queues msg for every client subscribed to its type. A client
// whose queue is full is disconnected rather than slowing the others.
func (s *Server) Broadcast(msg Message) {
	if s.ctx.Err() != nil {
		return
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	data, err := json.Marshal(msg)
	if err != nil {
		s.logger.Printf("Failed to marshal message: %v", err)
		return
	}
	s.broadcasts.Add(1)

	var slow []*client
	s.mu.RLock()
	for c := range s.clients {
		if !c.wants(msg.Type) {
			continue
		}
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	s.mu.RUnlock()

	for _, c := range slow {
		s.logger.Println("Warning: client too slow, disconnecting")
		s.removeClient(c, websocket.StatusPolicyViolation, "too slow")
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	types, err := parseTypes(r.URL.Query().Get("types"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"}, // local tool
	})
	if err != nil {
		s.logger.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	c := &client{conn: conn, types: types, send: make(chan []byte, clientQueue)}

	s.mu.RLock()
	build := s.welcome
	s.mu.RUnlock()
	welcome := Message{Type: MessageTypeStats, Timestamp: time.Now()}
	if build != nil {
		welcome = build()
	}

	s.mu.Lock()
	if s.ctx.Err() != nil {
		s.mu.Unlock()
		_ = conn.Close(websocket.StatusGoingAway, "Server shutting down")
		return
	}
	s.clients[c] = struct{}{}
	total := len(s.clients)
	s.mu.Unlock()

	s.logger.Printf("Client connected (total: %d)", total)

	ctx, cancel := context.WithTimeout(s.ctx, writeTimeout)
	err = wsjson.Write(ctx, conn, welcome)
	cancel()
	if err != nil {
		s.removeClient(c, websocket.StatusInternalError, "")
		_ = conn.CloseNow()
		return
	}

	go s.writeLoop(c)
	go s.readLoop(c)
}

// writeLoop drains the client's queue until it is closed.
func (s *Server) writeLoop(c *client) {
	for data := range c.send {
		ctx, cancel := context.WithTimeout(s.ctx, writeTimeout)
		err := c.conn.Write(ctx, websocket.MessageText, data)
		cancel()
		if err != nil {
			s.removeClient(c, websocket.StatusInternalError, "")
			return
		}
	}
	_ = c.conn.Close(websocket.StatusGoingAway, "Server shutting down")
}

// readLoop discards client messages and notices disconnects.
func (s *Server) readLoop(c *client) {
	for {
		if _, _, err := c.conn.Read(s.ctx); err != nil {
			s.removeClient(c, websocket.StatusNormalClosure, "")
			return
		}
	}
}

func (s *Server) removeClient(c *client, code websocket.StatusCode, reason string) {
	s.mu.Lock()
	if _, ok := s.clients[c]; !ok {
		s.mu.Unlock()
		return
	}
	delete(s.clients, c)
	close(c.send)
	total := len(s.clients)
	s.mu.Unlock()

	_ = c.conn.Close(code, reason)
	s.logger.Printf("Client disconnected (total: %d)", total)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":  "ok",
		"clients": s.ClientCount(),
	})
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	_, _ = fmt.Fprintf(w, `<!DOCTYPE html>
<html>
<head><title>i18nsync</title></head>
<body>
    <h1>i18nsync</h1>
    <p>WebSocket endpoint: <code>ws://%s/ws</code> (filter with <code>?types=failure,stats</code>)</p>
    <p>Health check: <a href="/health">/health</a></p>
</body>
</html>`, r.Host)
}

// parseTypes parses a comma-separated list of message types. An empty
// list selects every type.
func parseTypes(raw string) (map[MessageType]bool, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	types := make(map[MessageType]bool)
	for _, name := range strings.Split(raw, ",") {
		typ := MessageType(strings.TrimSpace(name))
		switch typ {
		case MessageTypeRecordUpdate, MessageTypeSyncComplete, MessageTypeFailure, MessageTypeStats:
			types[typ] = true
		case "":
		default:
			return nil, fmt.Errorf("unknown message type %q", name)
		}
	}
	return types, nil
}

// GetAddr returns the listening address, or the configured one before
// Start.
func (s *Server) GetAddr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// ClientCount returns the number of connected clients.
func (s *Server) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}
