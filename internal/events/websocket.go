package events

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/dgnsrekt/narrator/tts"
)

const writeTimeout = 5 * time.Second

// WebSocketServer accepts chat events from browser frontends and pushes
// status and notices back to every connected client.
type WebSocketServer struct {
	addr string
	path string
	log  *log.Logger

	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*wsClient]struct{}
	bound   net.Addr

	lastStatus *tts.Status
}

type wsClient struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsClient) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteJSON(v)
}

// NewWebSocketServer creates a server for cfg.
func NewWebSocketServer(cfg tts.WebSocketConfig, logger *log.Logger) *WebSocketServer {
	if logger == nil {
		logger = log.Default()
	}
	return &WebSocketServer{
		addr: cfg.Addr,
		path: cfg.Path,
		log:  logger.WithPrefix("websocket"),
		// Chat frontends run on their own origin.
		upgrader: websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
		clients:  make(map[*wsClient]struct{}),
	}
}

// Name returns "websocket".
func (s *WebSocketServer) Name() string { return "websocket" }

// Handler returns the HTTP handler serving the event endpoint.
func (s *WebSocketServer) Handler(d *Dispatcher) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(s.path, func(w http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(w, r, nil)
		if err != nil {
			s.log.Debug("upgrade failed", "remote", r.RemoteAddr, "err", err)
			return
		}
		s.serve(r.Context(), conn, d)
	})
	return mux
}

func (s *WebSocketServer) serve(ctx context.Context, conn *websocket.Conn, d *Dispatcher) {
	c := &wsClient{conn: conn}
	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()
	s.log.Info("client connected", "remote", conn.RemoteAddr())

	defer func() {
		s.mu.Lock()
		delete(s.clients, c)
		s.mu.Unlock()
		conn.Close()
		s.log.Info("client disconnected", "remote", conn.RemoteAddr())
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Debug("read failed", "err", err)
			}
			return
		}
		reply := d.HandleJSON(ctx, data)
		if err := c.writeJSON(reply); err != nil {
			s.log.Debug("write failed", "err", err)
			return
		}
	}
}

// Broadcast sends v to every connected client. Clients that cannot keep
// up are dropped.
func (s *WebSocketServer) Broadcast(v any) {
	s.mu.Lock()
	clients := make([]*wsClient, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.Unlock()

	for _, c := range clients {
		if err := c.writeJSON(v); err != nil {
			s.log.Debug("broadcast failed, dropping client", "err", err)
			c.conn.Close()
		}
	}
}

// Clients returns the number of connected clients.
func (s *WebSocketServer) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// Addr returns the address the server listens on once Run has bound it.
func (s *WebSocketServer) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bound
}

// Run listens on the configured address until ctx is done.
func (s *WebSocketServer) Run(ctx context.Context, d *Dispatcher) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.bound = ln.Addr()
	s.mu.Unlock()

	srv := &http.Server{
		Handler:           s.Handler(d),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		s.closeClients()
	}()

	s.log.Info("listening for chat events", "addr", ln.Addr().String(), "path", s.path)
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *WebSocketServer) closeClients() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		c.conn.Close()
	}
}

// StatusEnvelope is what Broadcast sends for pipeline status changes.
type StatusEnvelope struct {
	Type   string     `json:"type"`
	Status tts.Status `json:"status"`
}

// NoticeEnvelope is what Broadcast sends for user-facing notices.
type NoticeEnvelope struct {
	Type  string `json:"type"`
	Level string `json:"level"`
	Text  string `json:"text"`
}

// Notify implements tts.Notifier by broadcasting the notice.
func (s *WebSocketServer) Notify(level tts.NoticeLevel, msg string) {
	s.Broadcast(NoticeEnvelope{Type: "notice", Level: level.String(), Text: msg})
}

// PublishStatus broadcasts a pipeline status snapshot when it differs from
// the previous one.
func (s *WebSocketServer) PublishStatus(st tts.Status) {
	s.mu.Lock()
	if s.lastStatus != nil && *s.lastStatus == st {
		s.mu.Unlock()
		return
	}
	s.lastStatus = &st
	s.mu.Unlock()

	s.Broadcast(StatusEnvelope{Type: "status", Status: st})
}
