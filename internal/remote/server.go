// ABOUTME: WebSocket control endpoint for the process engine
// ABOUTME: Routes start/stop/destroy/status requests to the host entry points
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"sync"
	"time"

	"github.com/Resonate-Protocol/audio-engine/internal/version"
	"github.com/Resonate-Protocol/audio-engine/pkg/engine"
	"github.com/Resonate-Protocol/audio-engine/pkg/host"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// DefaultPath is where the control endpoint is mounted
	DefaultPath = "/control"

	writeTimeout   = 5 * time.Second
	maxRequestSize = 4096
)

// Commands understood by the control endpoint
const (
	CommandStart   = "start"
	CommandStop    = "stop"
	CommandDestroy = "destroy"
	CommandStatus  = "status"
)

// Request is a single control message from a client
type Request struct {
	ID      string `json:"id,omitempty"`
	Command string `json:"command"`
}

// Response answers a Request with the host result code
type Response struct {
	ID      string         `json:"id"`
	Command string         `json:"command"`
	Code    int            `json:"code"`
	State   string         `json:"state"`
	Error   string         `json:"error,omitempty"`
	Status  *engine.Status `json:"status,omitempty"`
	Version string         `json:"version,omitempty"`
}

// Backend is the set of entry points the endpoint drives
type Backend interface {
	StartAudioPlayer() int
	StopAudioPlayer() int
	DestroyEngine() int
	Status() engine.Status
}

// Host drives the process-wide engine in pkg/host
type Host struct{}

func (Host) StartAudioPlayer() int { return host.StartAudioPlayer() }
func (Host) StopAudioPlayer() int  { return host.StopAudioPlayer() }
func (Host) DestroyEngine() int    { return host.DestroyEngine() }
func (Host) Status() engine.Status { return host.Status() }

// Config holds server configuration
type Config struct {
	Addr    string
	Path    string
	Backend Backend
	Logger  *slog.Logger
}

// Server exposes a Backend over WebSocket
type Server struct {
	config   Config
	log      *slog.Logger
	upgrader websocket.Upgrader
	mux      *http.ServeMux

	// backend calls are serialized so replies observe a consistent state
	backendMu sync.Mutex

	mu         sync.Mutex
	httpServer *http.Server
	listener   net.Listener
	conns      map[string]*websocket.Conn
	closed     bool
	wg         sync.WaitGroup
}

// New creates a server; call Start to listen or mount Handler elsewhere
func New(config Config) *Server {
	if config.Path == "" {
		config.Path = DefaultPath
	}
	if config.Backend == nil {
		config.Backend = Host{}
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	log := config.Logger.With("component", "remote")

	s := &Server{
		config: config,
		log:    log,
		mux:    http.NewServeMux(),
		conns:  make(map[string]*websocket.Conn),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					// non-browser clients
					return true
				}
				if isLoopbackOrigin(origin) {
					return true
				}
				log.Warn("Rejecting control connection", "origin", origin)
				return false
			},
		},
	}
	s.mux.HandleFunc(config.Path, s.handleWebSocket)
	return s
}

// isLoopbackOrigin accepts pages served from this machine on any port
func isLoopbackOrigin(origin string) bool {
	u, err := url.Parse(origin)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return false
	}
	host := u.Hostname()
	if host == "localhost" {
		return true
	}
	addr, err := netip.ParseAddr(host)
	return err == nil && addr.IsLoopback()
}

// Handler returns the HTTP handler serving the control endpoint
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start listens on the configured address and serves in the background
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errors.New("server shut down")
	}
	if s.httpServer != nil {
		return errors.New("server already started")
	}

	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Addr, err)
	}

	s.listener = ln
	s.httpServer = &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("Control server stopped", "error", err)
		}
	}()

	s.log.Info("Control endpoint listening", "addr", ln.Addr().String(), "path", s.config.Path)
	return nil
}

// Addr returns the bound address once started
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Shutdown stops accepting connections and closes the open ones
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	srv := s.httpServer
	for id, conn := range s.conns {
		conn.Close()
		delete(s.conns, id)
	}
	s.mu.Unlock()

	var err error
	if srv != nil {
		err = srv.Shutdown(ctx)
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return errors.Join(err, ctx.Err())
	}

	s.log.Info("Control endpoint stopped")
	return err
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("WebSocket upgrade failed", "error", err)
		return
	}

	id := uuid.New().String()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		conn.Close()
		return
	}
	s.conns[id] = conn
	s.wg.Add(1)
	s.mu.Unlock()

	defer s.wg.Done()
	s.handleConnection(id, conn)
}

func (s *Server) handleConnection(id string, conn *websocket.Conn) {
	log := s.log.With("conn", id, "remote_addr", conn.RemoteAddr().String())
	log.Info("Control client connected")

	defer func() {
		s.mu.Lock()
		delete(s.conns, id)
		s.mu.Unlock()
		conn.Close()
		log.Info("Control client disconnected")
	}()

	conn.SetReadLimit(maxRequestSize)

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug("Read error", "error", err)
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		resp := s.handleMessage(data)
		log.Debug("Handled request", "id", resp.ID, "command", resp.Command, "code", resp.Code)

		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteJSON(resp); err != nil {
			log.Debug("Write error", "error", err)
			return
		}
	}
}

func (s *Server) handleMessage(data []byte) Response {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return s.reply(Response{
			ID:    uuid.New().String(),
			Code:  host.CodeUnknown,
			Error: fmt.Sprintf("malformed request: %v", err),
		})
	}
	if req.ID == "" {
		req.ID = uuid.New().String()
	}
	return s.reply(s.Execute(req))
}

// reply fills in the current state when the response lacks one
func (s *Server) reply(resp Response) Response {
	if resp.State == "" {
		s.backendMu.Lock()
		resp.State = s.config.Backend.Status().State.String()
		s.backendMu.Unlock()
	}
	return resp
}

// Execute runs a single request against the backend
func (s *Server) Execute(req Request) Response {
	s.backendMu.Lock()
	defer s.backendMu.Unlock()

	b := s.config.Backend
	resp := Response{ID: req.ID, Command: req.Command}

	switch req.Command {
	case CommandStart:
		resp.Code = b.StartAudioPlayer()
	case CommandStop:
		resp.Code = b.StopAudioPlayer()
	case CommandDestroy:
		resp.Code = b.DestroyEngine()
	case CommandStatus:
		status := b.Status()
		resp.Status = &status
		resp.Version = version.Version
	default:
		resp.Code = host.CodeUnknown
		resp.Error = fmt.Sprintf("unknown command %q", req.Command)
		return resp
	}

	status := b.Status()
	resp.State = status.State.String()
	if resp.Code != host.CodeOK {
		resp.Error = host.Describe(resp.Code)
		if resp.Code != host.CodeInvalidState && status.LastError != "" {
			resp.Error += ": " + status.LastError
		}
	}
	return resp
}
