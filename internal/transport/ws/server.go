package ws

import (
	"time"

	"github.com/gin-gonic/gin"

	"image-sizer-go/internal/utils"
)

// Path is where progress streams are mounted.
const Path = "/ws/jobs/:id"

// ServerConfig stores the settings required to expose the websocket transport.
type ServerConfig struct {
	HandshakeTimeout time.Duration
}

// Server coordinates the websocket router, hub and lifecycle management.
type Server struct {
	cfg    ServerConfig
	hub    *Hub
	router *Router
	logger *utils.Logger
}

// NewServer wires a progress stream for every job jobs knows about.
func NewServer(cfg ServerConfig, jobs JobSource, logger *utils.Logger) *Server {
	hub := NewHub(logger)
	router := NewRouter(hub, logger, RouterOptions{
		HandshakeTimeout: cfg.HandshakeTimeout,
		Accept: func(jobID string) error {
			_, err := jobs.Get(jobID)
			return err
		},
		Builder: Builder(jobs, logger),
	})

	return &Server{
		cfg:    cfg,
		router: router,
		hub:    hub,
		logger: logger,
	}
}

// Register mounts the stream endpoint on engine.
func (s *Server) Register(engine gin.IRoutes) {
	engine.GET(Path, func(c *gin.Context) {
		s.router.Handle(c.Writer, c.Request, c.Param("id"))
	})
	if s.logger != nil {
		s.logger.InfoTag("WS", "progress streams mounted at %s", Path)
	}
}

// Stop closes every active session.
func (s *Server) Stop() error {
	s.hub.CloseAll(ErrSessionShutdown)
	return nil
}

// Count exposes the number of open streams.
func (s *Server) Count() int {
	return s.hub.Count()
}
