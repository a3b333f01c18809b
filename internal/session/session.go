package session

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/stagelab/cuems-core/internal/engine"
	"github.com/stagelab/cuems-core/internal/logging"
	"github.com/stagelab/cuems-core/internal/media"
	"github.com/stagelab/cuems-core/internal/project"
	"github.com/stagelab/cuems-core/internal/workpool"
	"github.com/stagelab/cuems-core/internal/wsproto"
)

const maxMessageSize = 512 * 1024

// Timing bundles the connection-tuning values of config.ServerConfig a
// Session needs, so this package stays independent of internal/config.
type Timing struct {
	DispatcherWorkers int
	WriteTimeout      time.Duration
	PingInterval      time.Duration
	PongTimeout       time.Duration
}

// Services bundles the domain services the dispatch table in dispatch.go
// calls into.
type Services struct {
	Projects *project.Service
	Media    *media.Service
	Engine   *engine.Bridge
	Pool     *workpool.Pool
}

// outboundFrame is either a JSON text frame or a raw binary payload
// (thumbnail/waveform bytes, already uuid-header-prefixed by the media
// service).
type outboundFrame struct {
	binary bool
	text   wsproto.Outbound
	data   []byte
}

// Session is one editor connection's per-connection pipeline: a reader, a
// writer, and DispatcherWorkers concurrent dispatcher workers sharing one
// inbound queue — the Go shape of CuemsWsUser's consumer_handler/
// producer_handler/3x consumer() split. Running more than one dispatcher
// per session is deliberate: a slow action must not block quick ones on
// the same socket.
type Session struct {
	ID   string
	conn *websocket.Conn
	hub  *Hub
	svc  Services
	cfg  Timing

	inbound  *unboundedQueue
	outbound chan outboundFrame
}

// NewSession wraps an already-upgraded WebSocket connection as a session
// bound to id, ready to run under Run.
func NewSession(id string, conn *websocket.Conn, hub *Hub, svc Services, cfg Timing) *Session {
	if cfg.DispatcherWorkers < 1 {
		cfg.DispatcherWorkers = 3
	}
	return &Session{
		ID: id, conn: conn, hub: hub, svc: svc, cfg: cfg,
		inbound:  newUnboundedQueue(),
		outbound: make(chan outboundFrame, 256),
	}
}

// Send enqueues a text frame without blocking the caller; if the peer's
// outbound buffer is full the frame is dropped and logged, so one slow
// peer never delays the broadcaster (section 5).
func (s *Session) Send(msg wsproto.Outbound) {
	select {
	case s.outbound <- outboundFrame{text: msg}:
	default:
		logging.Warn().Str("session", s.ID).Str("type", msg.Type).Msg("dropping outbound frame, peer queue full")
	}
}

// SendBinary enqueues a binary frame (thumbnail/waveform payload).
func (s *Session) SendBinary(data []byte) {
	select {
	case s.outbound <- outboundFrame{binary: true, data: data}:
	default:
		logging.Warn().Str("session", s.ID).Msg("dropping outbound binary frame, peer queue full")
	}
}

// Run drives the reader, writer, and dispatcher workers until the socket
// closes or ctx is canceled; the session ends when any of them stops, at
// which point the others are torn down together (section 4.8).
func (s *Session) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(2 + s.cfg.DispatcherWorkers)

	go func() { defer wg.Done(); defer cancel(); s.readLoop(ctx) }()
	go func() { defer wg.Done(); defer cancel(); s.writeLoop(ctx) }()
	for i := 0; i < s.cfg.DispatcherWorkers; i++ {
		go func() { defer wg.Done(); s.dispatchLoop(ctx) }()
	}

	<-ctx.Done()
	s.conn.Close()
	s.inbound.close()
	wg.Wait()
}

// readLoop drains WebSocket text frames into the unbounded inbound queue.
func (s *Session) readLoop(ctx context.Context) {
	s.conn.SetReadLimit(maxMessageSize)
	if s.cfg.PongTimeout > 0 {
		s.conn.SetReadDeadline(time.Now().Add(s.cfg.PongTimeout))
		s.conn.SetPongHandler(func(string) error {
			s.conn.SetReadDeadline(time.Now().Add(s.cfg.PongTimeout))
			return nil
		})
	}
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			return
		}
		s.inbound.push(data)
	}
}

// writeLoop dequeues outbound frames and pings idle connections.
func (s *Session) writeLoop(ctx context.Context) {
	var ticker *time.Ticker
	var tick <-chan time.Time
	if s.cfg.PingInterval > 0 {
		ticker = time.NewTicker(s.cfg.PingInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case frame := <-s.outbound:
			if err := s.writeFrame(frame); err != nil {
				return
			}
		case <-tick:
			if s.cfg.WriteTimeout > 0 {
				s.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			}
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *Session) writeFrame(frame outboundFrame) error {
	if s.cfg.WriteTimeout > 0 {
		s.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
	}
	if frame.binary {
		return s.conn.WriteMessage(websocket.BinaryMessage, frame.data)
	}
	data, err := wsproto.Encode(frame.text)
	if err != nil {
		logging.Warn().Err(err).Str("session", s.ID).Msg("failed to encode outbound frame")
		return nil
	}
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

// dispatchLoop pops inbound frames and invokes the handler for their
// action until the queue is closed.
func (s *Session) dispatchLoop(ctx context.Context) {
	for {
		data, ok := s.inbound.pop()
		if !ok {
			return
		}
		s.dispatch(ctx, data)
	}
}
