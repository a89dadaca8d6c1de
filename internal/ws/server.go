package ws

import (
	"net/http"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"broadside/internal/match"
	"broadside/internal/store"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	defaultPingInterval = 25 * time.Second
	defaultPongWait     = 60 * time.Second
	writeWait           = 10 * time.Second
	maxMessageBytes     = 8 << 10
	sendBuffer          = 64
)

// MatchHandler is the match side of the hub. Calls are made without any hub
// lock held.
type MatchHandler interface {
	Connect(connID string) (match.SlotIndex, error)
	Handle(connID string, frame []byte) error
	Disconnect(connID string)
}

type Options struct {
	PingInterval time.Duration
	PongWait     time.Duration
	NewID        func() string
}

type Client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

// Stats are cumulative hub counters.
type Stats struct {
	Connections int64 `json:"connections"`
	Active      int64 `json:"active"`
	FramesIn    int64 `json:"frames_in"`
	FramesOut   int64 `json:"frames_out"`
	Dropped     int64 `json:"dropped"`
	Panics      int64 `json:"panics"`
}

// Server upgrades /ws requests and shuttles frames between sockets and the
// match. It implements match.Transport.
type Server struct {
	opts     Options
	upgrader websocket.Upgrader
	handler  MatchHandler

	mu      sync.Mutex
	clients map[string]*Client

	connections atomic.Int64
	framesIn    atomic.Int64
	framesOut   atomic.Int64
	dropped     atomic.Int64
	panics      atomic.Int64
}

func NewServer(opts Options) *Server {
	if opts.PingInterval <= 0 {
		opts.PingInterval = defaultPingInterval
	}
	if opts.PongWait <= 0 {
		opts.PongWait = defaultPongWait
	}
	if opts.PingInterval >= opts.PongWait {
		opts.PingInterval = opts.PongWait * 9 / 10
	}
	if opts.NewID == nil {
		opts.NewID = store.NewID
	}
	return &Server{
		opts:     opts,
		upgrader: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		clients:  map[string]*Client{},
	}
}

// Bind attaches the match. It must be called before serving.
func (s *Server) Bind(h MatchHandler) {
	s.handler = h
}

func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Str("remote_addr", r.RemoteAddr).Msg("ws_upgrade_failed")
		return
	}
	client := &Client{id: s.opts.NewID(), conn: conn, send: make(chan []byte, sendBuffer)}
	s.register(client)
	log.Info().Str("conn_id", client.id).Str("remote_addr", r.RemoteAddr).Msg("ws_connected")

	go s.writeLoop(client)
	s.readLoop(client)
}

func (s *Server) register(c *Client) {
	s.mu.Lock()
	s.clients[c.id] = c
	s.mu.Unlock()
	s.connections.Add(1)
}

func (s *Server) unregister(c *Client) bool {
	s.mu.Lock()
	cur, ok := s.clients[c.id]
	if ok && cur == c {
		delete(s.clients, c.id)
	}
	s.mu.Unlock()
	safeClose(c.send)
	return ok && cur == c
}

func (s *Server) readLoop(c *Client) {
	defer func() {
		if s.unregister(c) && s.handler != nil {
			s.handler.Disconnect(c.id)
		}
		_ = c.conn.Close()
		log.Info().Str("conn_id", c.id).Msg("ws_disconnected")
	}()

	c.conn.SetReadLimit(maxMessageBytes)
	_ = c.conn.SetReadDeadline(time.Now().Add(s.opts.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(s.opts.PongWait))
	})

	if s.handler == nil {
		return
	}
	s.safely(c, "connect", func() { _, _ = s.handler.Connect(c.id) })

	for {
		typ, msg, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Warn().Err(err).Str("conn_id", c.id).Msg("ws_read_failed")
			}
			return
		}
		if typ != websocket.TextMessage {
			continue
		}
		// Any inbound frame proves liveness, not only pongs.
		_ = c.conn.SetReadDeadline(time.Now().Add(s.opts.PongWait))
		s.framesIn.Add(1)
		s.safely(c, "handle", func() {
			if err := s.handler.Handle(c.id, msg); err != nil {
				log.Debug().Err(err).Str("conn_id", c.id).Msg("ws_frame_rejected")
			}
		})
	}
}

// safely keeps a panic in one connection's handling from taking down the hub.
func (s *Server) safely(c *Client, op string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			s.panics.Add(1)
			log.Error().
				Str("conn_id", c.id).
				Str("op", op).
				Interface("panic", r).
				Bytes("stack", debug.Stack()).
				Msg("ws_handler_panic")
		}
	}()
	fn()
}

func (s *Server) writeLoop(c *Client) {
	ticker := time.NewTicker(s.opts.PingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
			s.framesOut.Add(1)
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

// Send queues a frame without blocking. A client whose buffer is full is
// dropped.
func (s *Server) Send(connID string, frame []byte) bool {
	s.mu.Lock()
	c := s.clients[connID]
	s.mu.Unlock()
	if c == nil {
		return false
	}
	if safeSend(c.send, frame) {
		return true
	}
	s.dropped.Add(1)
	log.Warn().Str("conn_id", connID).Msg("ws_send_buffer_full")
	safeClose(c.send)
	return false
}

// Close flushes queued frames and then closes the socket.
func (s *Server) Close(connID string) {
	s.mu.Lock()
	c := s.clients[connID]
	s.mu.Unlock()
	if c != nil {
		safeClose(c.send)
	}
}

// Shutdown closes every connection.
func (s *Server) Shutdown() {
	s.mu.Lock()
	clients := make([]*Client, 0, len(s.clients))
	for _, c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.Unlock()
	for _, c := range clients {
		safeClose(c.send)
	}
}

func (s *Server) Stats() Stats {
	s.mu.Lock()
	active := int64(len(s.clients))
	s.mu.Unlock()
	return Stats{
		Connections: s.connections.Load(),
		Active:      active,
		FramesIn:    s.framesIn.Load(),
		FramesOut:   s.framesOut.Load(),
		Dropped:     s.dropped.Load(),
		Panics:      s.panics.Load(),
	}
}

func safeClose(ch chan []byte) {
	defer func() {
		_ = recover()
	}()
	close(ch)
}

func safeSend(ch chan []byte, msg []byte) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	select {
	case ch <- msg:
		return true
	default:
		return false
	}
}
