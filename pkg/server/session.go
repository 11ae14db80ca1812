package server

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/vango-dev/routeagent/pkg/agent"
	"github.com/vango-dev/routeagent/pkg/history"
	"github.com/vango-dev/routeagent/pkg/protocol"
	"github.com/vango-dev/routeagent/pkg/route"
	"github.com/vango-dev/routeagent/pkg/routepath"
	"github.com/vango-dev/routeagent/pkg/router"
	"github.com/vango-dev/routeagent/pkg/view"
)

// session is one connected tab.
type session[T any] struct {
	id      string
	conn    *websocket.Conn
	cfg     *Config
	codec   route.Codec[T]
	logger  *slog.Logger
	metrics *Metrics
	unreg   func(id string)

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once

	writeMu sync.Mutex

	history    *history.Remote
	agent      *agent.Agent[T]
	dispatcher *agent.Dispatcher[T]
	router     *router.Router[T]
}

// accept runs the handshake on conn and wires a session behind it.
func (s *Server[T]) accept(conn *websocket.Conn) (*session[T], error) {
	conn.SetReadLimit(s.cfg.MaxMessageSize)
	conn.SetReadDeadline(time.Now().Add(s.cfg.HandshakeTimeout))

	_, msg, err := conn.ReadMessage()
	if err != nil {
		s.metrics.handshakeFailed("read")
		return nil, fmt.Errorf("%w: %w", ErrInvalidHandshake, err)
	}
	hello, err := protocol.Decode(msg)
	if err == nil && hello.Type != protocol.FrameHello {
		err = fmt.Errorf("first frame is %q", hello.Type)
	}
	var loc protocol.Location
	if err == nil {
		loc, err = canonicalLocation(*hello.Location)
	}
	if err != nil {
		s.metrics.handshakeFailed("hello")
		writeRaw(conn, s.cfg.WriteTimeout, protocol.NewError(protocol.ErrHandshake, "expected hello"))
		return nil, fmt.Errorf("%w: %w", ErrInvalidHandshake, err)
	}

	id := uuid.NewString()
	ctx, cancel := context.WithCancel(context.Background())
	sess := &session[T]{
		id:      id,
		conn:    conn,
		cfg:     s.cfg,
		codec:   s.codec,
		logger:  s.logger.With("session_id", id),
		metrics: s.metrics,
		unreg:   s.unregister,
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	if err := sess.wire(s, loc); err != nil {
		s.metrics.handshakeFailed("setup")
		writeRaw(conn, s.cfg.WriteTimeout, protocol.NewError(protocol.ErrServerError, "session setup failed"))
		sess.teardown()
		return nil, err
	}

	if !s.register(sess) {
		sess.teardown()
		return nil, ErrSessionClosed
	}
	s.metrics.sessionOpened()
	s.metrics.frameReceived(protocol.FrameHello)
	sess.logger.Info("session started", "path", loc.Path)
	return sess, nil
}

// wire builds the history, agent, dispatcher and router for the session.
// The router's first render is requested last so every piece exists when
// it arrives.
func (sess *session[T]) wire(s *Server[T], loc protocol.Location) error {
	remote, err := history.NewRemote(sess, loc)
	if err != nil {
		return err
	}
	sess.history = remote

	opts := []agent.Option{
		agent.WithLogger(sess.logger),
		agent.WithMetrics(s.agentMetrics),
		agent.WithInboxSize(s.cfg.InboxSize),
		agent.WithCodec[T](s.codec),
	}
	if s.cfg.Tracer != nil {
		opts = append(opts, agent.WithTracer(s.cfg.Tracer))
	}
	ag, err := agent.New[T](remote, opts...)
	if err != nil {
		return err
	}
	sess.agent = ag

	d, err := ag.Dispatcher()
	if err != nil {
		return err
	}
	sess.dispatcher = d

	rt, err := router.New[T](sess.ctx, ag, s.options(),
		router.WithLogger(sess.logger),
		router.WithMetrics(s.agentMetrics),
		router.WithOnRender(sess.pushRender),
	)
	if err != nil {
		return err
	}
	sess.router = rt
	return nil
}

// Send implements history.Sender.
func (sess *session[T]) Send(f protocol.Frame) error {
	return sess.writeFrame(f)
}

func (sess *session[T]) writeFrame(f protocol.Frame) error {
	data, err := protocol.Encode(f)
	if err != nil {
		return fmt.Errorf("server: encode %s: %w", f.Type, err)
	}

	sess.writeMu.Lock()
	defer sess.writeMu.Unlock()

	select {
	case <-sess.done:
		return ErrSessionClosed
	default:
	}

	sess.conn.SetWriteDeadline(time.Now().Add(sess.cfg.WriteTimeout))
	if err := sess.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		sess.metrics.writeErrors.Inc()
		return fmt.Errorf("server: write %s: %w", f.Type, err)
	}
	sess.metrics.frameSent(f.Type)
	return nil
}

// pushRender sends a rendered view to the tab.
func (sess *session[T]) pushRender(node *view.Node) {
	html, err := view.HTML(node)
	if err != nil {
		sess.logger.Error("render failed", "error", err)
		_ = sess.writeFrame(protocol.NewError(protocol.ErrServerError, "render failed"))
		return
	}
	if err := sess.writeFrame(protocol.NewRender(html)); err != nil {
		sess.logger.Debug("render not delivered", "error", err)
	}
}

// readLoop handles client frames until the connection fails or closes.
func (sess *session[T]) readLoop() {
	defer sess.close()

	sess.conn.SetReadDeadline(time.Now().Add(sess.cfg.ReadTimeout))
	sess.conn.SetPongHandler(func(string) error {
		return sess.conn.SetReadDeadline(time.Now().Add(sess.cfg.ReadTimeout))
	})

	for {
		_, msg, err := sess.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseNormalClosure,
				websocket.CloseNoStatusReceived) {
				sess.logger.Warn("read error", "error", err)
			}
			return
		}
		sess.conn.SetReadDeadline(time.Now().Add(sess.cfg.ReadTimeout))

		f, err := protocol.Decode(msg)
		if err != nil {
			sess.logger.Warn("frame decode error", "error", err)
			_ = sess.writeFrame(protocol.NewError(protocol.ErrInvalidFrame, err.Error()))
			continue
		}
		sess.metrics.frameReceived(f.Type)
		sess.handleFrame(f)
	}
}

func (sess *session[T]) handleFrame(f protocol.Frame) {
	switch f.Type {
	case protocol.FramePopState:
		loc, err := canonicalLocation(*f.Location)
		if err != nil {
			_ = sess.writeFrame(protocol.NewError(protocol.ErrInvalidFrame, err.Error()))
			return
		}
		sess.history.HandlePopState(loc)

	case protocol.FrameNavigate:
		url, err := routepath.URL(f.URL)
		if err != nil {
			_ = sess.writeFrame(protocol.NewError(protocol.ErrInvalidFrame, err.Error()))
			return
		}
		f.URL = url
		r := sess.navigateRoute(f)
		req := agent.ChangeRoute(r)
		if f.Replace {
			req = agent.ReplaceRoute(r)
		}
		if err := sess.dispatcher.Send(sess.ctx, req); err != nil {
			sess.logger.Warn("navigate dropped", "url", f.URL, "error", err)
		}

	case protocol.FrameHello:
		sess.logger.Warn("duplicate hello ignored")

	default:
		_ = sess.writeFrame(protocol.NewError(protocol.ErrInvalidFrame, fmt.Sprintf("unexpected %s frame", f.Type)))
	}
}

// canonicalLocation canonicalizes the path of a location reported by the
// client. Query, fragment and state are kept.
func canonicalLocation(loc protocol.Location) (protocol.Location, error) {
	if loc.Path == "" {
		loc.Path = "/"
	}
	canon, err := routepath.Canonicalize(loc.Path)
	if err != nil {
		return protocol.Location{}, err
	}
	loc.Path = canon.Path
	return loc, nil
}

// navigateRoute builds the route for a navigate frame. A state that fails
// to decode is dropped.
func (sess *session[T]) navigateRoute(f protocol.Frame) route.Route[T] {
	if f.State == nil {
		return route.New[T](f.URL)
	}
	state, err := sess.codec.Decode(*f.State)
	if err != nil {
		sess.logger.Warn("navigate state ignored", "url", f.URL, "error", err)
		return route.New[T](f.URL)
	}
	return route.WithState(f.URL, state)
}

// pingLoop keeps the connection alive until the session closes.
func (sess *session[T]) pingLoop() {
	ticker := time.NewTicker(sess.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			deadline := time.Now().Add(sess.cfg.WriteTimeout)
			if err := sess.conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				sess.logger.Debug("ping failed", "error", err)
				sess.close()
				return
			}
		case <-sess.done:
			return
		}
	}
}

func (sess *session[T]) close() {
	sess.closeWith(websocket.CloseNormalClosure, "")
}

// closeWith tears the session down once, telling the client why.
func (sess *session[T]) closeWith(code int, reason string) {
	sess.once.Do(func() {
		sess.writeMu.Lock()
		close(sess.done)
		deadline := time.Now().Add(sess.cfg.WriteTimeout)
		_ = sess.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline)
		sess.writeMu.Unlock()

		sess.teardown()
		sess.unreg(sess.id)
		sess.logger.Info("session closed")
	})
}

// teardown releases the session's parts in reverse order of wiring.
func (sess *session[T]) teardown() {
	sess.cancel()
	if sess.router != nil {
		sess.router.Close()
	}
	if sess.dispatcher != nil {
		sess.dispatcher.Close()
	}
	if sess.agent != nil {
		sess.agent.Close()
	}
	if sess.history != nil {
		sess.history.Close()
	}
	sess.conn.Close()
}

// writeRaw writes a frame on a connection that has no session yet.
func writeRaw(conn *websocket.Conn, timeout time.Duration, f protocol.Frame) {
	data, err := protocol.Encode(f)
	if err != nil {
		return
	}
	conn.SetWriteDeadline(time.Now().Add(timeout))
	_ = conn.WriteMessage(websocket.TextMessage, data)
}
