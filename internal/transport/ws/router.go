package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"image-sizer-go/internal/platform/observability"
	"image-sizer-go/internal/utils"
)

const component = "transport.websocket"

// HandlerBuilder creates the session handler for an upgraded connection watching jobID.
type HandlerBuilder func(conn *Connection, req *http.Request, jobID string) (SessionHandler, error)

type RouterOptions struct {
	HandshakeTimeout time.Duration
	CheckOrigin      func(r *http.Request) bool
	// Accept rejects an upgrade with 404 before the handshake when it returns an error.
	Accept  func(jobID string) error
	Builder HandlerBuilder
}

// Router upgrades progress-stream requests and hands each connection to a session.
type Router struct {
	hub    *Hub
	logger *utils.Logger

	upgrader websocket.Upgrader
	timeout  time.Duration
	accept   func(jobID string) error
	build    HandlerBuilder
}

func NewRouter(hub *Hub, logger *utils.Logger, opts RouterOptions) *Router {
	timeout := opts.HandshakeTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	checkOrigin := opts.CheckOrigin
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}
	return &Router{
		hub:    hub,
		logger: logger,
		upgrader: websocket.Upgrader{
			HandshakeTimeout: timeout,
			CheckOrigin:      checkOrigin,
		},
		timeout: timeout,
		accept:  opts.Accept,
		build:   opts.Builder,
	}
}

func metric(ctx context.Context, name string, labels map[string]string) {
	if labels == nil {
		labels = map[string]string{}
	}
	labels["component"] = component
	observability.RecordMetric(ctx, name, 1, labels)
}

// Handle upgrades the request and starts a session streaming jobID.
func (r *Router) Handle(w http.ResponseWriter, req *http.Request, jobID string) {
	if r.build == nil {
		http.Error(w, "websocket handler not ready", http.StatusServiceUnavailable)
		return
	}
	if r.accept != nil {
		if err := r.accept(jobID); err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
	}

	handshakeCtx, cancel := context.WithTimeoutCause(req.Context(), r.timeout, ErrHandshakeTimeout)
	defer cancel()

	spanCtx, spanEnd := observability.StartSpan(handshakeCtx, component, "handle")
	var spanErr error
	defer func() { spanEnd(spanErr) }()

	conn, err := r.upgrader.Upgrade(w, req.WithContext(handshakeCtx), nil)
	if err != nil {
		spanErr = err
		metric(spanCtx, "websocket.upgrade.error", nil)
		r.logger.ErrorTag("WS", "upgrade failed for job %s: %v", jobID, err)
		return
	}
	wsConn := NewConnection(uuid.New().String(), conn)
	metric(spanCtx, "websocket.upgrade.success", nil)

	handler, err := r.build(wsConn, req, jobID)
	if err != nil || handler == nil {
		spanErr = err
		metric(spanCtx, "websocket.connection.error", map[string]string{"reason": "handler_creation_failed"})
		r.logger.ErrorTag("WS", "build handler for job %s failed: %v", jobID, err)
		_ = wsConn.Close()
		return
	}
	r.logger.InfoTag("WS", "connection %s watching job %s", wsConn.ID(), jobID)

	// the stream outlives both the handshake deadline and the request
	session := NewSession(context.WithoutCancel(spanCtx), handler, wsConn, r.logger)
	r.hub.Register(session)

	go session.Run(func(runErr error) {
		r.hub.Unregister(session.ID())
		if runErr != nil {
			r.logger.WarnTag("WS", "session %s ended: %v", session.ID(), runErr)
		}
		metric(session.Context(), "websocket.connection.closed", map[string]string{"job_id": jobID})
	})
}
