// Package ws maintains named WebSocket connections that reconnect with
// exponential backoff when the link drops. Message semantics are left to
// the caller: received frames are handed to a callback as raw bytes.
package ws

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Config describes one reconnecting socket.
type Config struct {
	// URL is the ws:// or wss:// endpoint. Mandatory.
	URL string

	// Header holds extra handshake headers, e.g. Authorization.
	Header http.Header

	// DialTimeout bounds each dial attempt. Defaults to 10s.
	DialTimeout time.Duration

	// ReconnectWait is the base backoff delay. Defaults to 500ms.
	ReconnectWait time.Duration

	// ReconnectMaxWait caps the backoff delay. Defaults to 30s.
	ReconnectMaxWait time.Duration

	// MaxReconnects limits consecutive failed dials before the socket
	// gives up. Zero means reconnect forever.
	MaxReconnects int

	// OnMessage receives every frame read from the connection.
	OnMessage func(name string, data []byte)

	// OnReconnect is invoked after a successful reconnect with the
	// number of failed dials that preceded it.
	OnReconnect func(name string, failures int)
}

func (cfg *Config) withDefaults() Config {
	out := *cfg
	if out.DialTimeout <= 0 {
		out.DialTimeout = 10 * time.Second
	}
	if out.ReconnectWait <= 0 {
		out.ReconnectWait = 500 * time.Millisecond
	}
	if out.ReconnectMaxWait <= 0 {
		out.ReconnectMaxWait = 30 * time.Second
	}
	return out
}

// Socket is a single named reconnecting connection.
type Socket struct {
	name string
	cfg  Config

	mu   sync.Mutex
	conn *websocket.Conn

	cancel context.CancelFunc
	done   chan struct{}
}

// Name returns the socket's registry name.
func (s *Socket) Name() string {
	return s.name
}

// Send writes a text frame. It fails when the socket is between
// connections.
func (s *Socket) Send(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return errors.New("socket not connected")
	}
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

// run dials, reads until the connection drops, then redials with
// exponential backoff until the context is canceled or the reconnect
// budget is exhausted.
func (s *Socket) run(ctx context.Context) {
	defer close(s.done)

	failures := 0
	for {
		conn, err := s.dial(ctx)
		if err != nil {
			failures++
			if s.cfg.MaxReconnects > 0 && failures >= s.cfg.MaxReconnects {
				return
			}
			if !sleep(ctx, backoffDelay(failures, s.cfg.ReconnectWait, s.cfg.ReconnectMaxWait)) {
				return
			}
			continue
		}

		if failures > 0 && s.cfg.OnReconnect != nil {
			s.cfg.OnReconnect(s.name, failures)
		}
		failures = 0

		s.setConn(conn)
		s.readLoop(conn)
		s.setConn(nil)

		// Wait the base delay before redialing a dropped link.
		if !sleep(ctx, s.cfg.ReconnectWait) {
			return
		}
	}
}

func (s *Socket) dial(ctx context.Context) (*websocket.Conn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, s.cfg.DialTimeout)
	defer cancel()

	conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, s.cfg.URL, s.cfg.Header)
	return conn, err
}

func (s *Socket) readLoop(conn *websocket.Conn) {
	defer conn.Close()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if s.cfg.OnMessage != nil {
			s.cfg.OnMessage(s.name, data)
		}
	}
}

func (s *Socket) setConn(conn *websocket.Conn) {
	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()
}

func (s *Socket) stop() {
	s.cancel()
	s.mu.Lock()
	if s.conn != nil {
		s.conn.Close()
	}
	s.mu.Unlock()
	<-s.done
}

// Manager is a registry of named sockets.
type Manager struct {
	mu      sync.Mutex
	sockets map[string]*Socket
}

// NewManager creates an empty socket registry.
func NewManager() *Manager {
	return &Manager{sockets: make(map[string]*Socket)}
}

// Open starts a reconnecting socket under name. The name must be unused
// and the config must carry a URL.
func (m *Manager) Open(ctx context.Context, name string, cfg Config) (*Socket, error) {
	if cfg.URL == "" {
		return nil, errors.New("socket URL must be set")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sockets[name]; exists {
		return nil, errors.New("socket " + name + " already open")
	}

	runCtx, cancel := context.WithCancel(ctx)
	socket := &Socket{
		name:   name,
		cfg:    cfg.withDefaults(),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	m.sockets[name] = socket

	go socket.run(runCtx)
	return socket, nil
}

// Get returns the named socket, if open.
func (m *Manager) Get(name string) (*Socket, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	socket, ok := m.sockets[name]
	return socket, ok
}

// Close stops the named socket and removes it from the registry.
func (m *Manager) Close(name string) {
	m.mu.Lock()
	socket, ok := m.sockets[name]
	delete(m.sockets, name)
	m.mu.Unlock()

	if ok {
		socket.stop()
	}
}

// CloseAll stops every socket.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	sockets := make([]*Socket, 0, len(m.sockets))
	for _, socket := range m.sockets {
		sockets = append(sockets, socket)
	}
	m.sockets = make(map[string]*Socket)
	m.mu.Unlock()

	for _, socket := range sockets {
		socket.stop()
	}
}

// sleep waits for d or until ctx is done, reporting whether the full delay
// elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// backoffDelay doubles wait per consecutive failure, capped at maxWait.
func backoffDelay(failures int, wait, maxWait time.Duration) time.Duration {
	if failures < 1 {
		failures = 1
	}

	delay := wait << uint(failures-1)
	if delay <= 0 || delay > maxWait {
		return maxWait
	}
	return delay
}
