package httptransport

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/static"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"image-sizer-go/internal/platform/config"
	"image-sizer-go/internal/platform/observability"
	"image-sizer-go/internal/utils"
)

// Headers carrying non-fatal outcomes of a resize request.
const (
	HeaderUnrecognizedSizes = "X-Unrecognized-Sizes"
	HeaderImageWarning      = "X-Image-Warning"
	HeaderFailedSizes       = "X-Failed-Sizes"

	HeaderRequestID = "X-Request-ID"
	requestIDKey    = "request_id"
)

// Options configures the HTTP router builder.
type Options struct {
	Config *config.Config
	Logger *utils.Logger
	// StaticRoot overrides Config.Server.StaticDir.
	StaticRoot string
}

// Router bundles together the gin engine and common route groups.
type Router struct {
	Engine *gin.Engine
	API    *gin.RouterGroup
}

// Build constructs a gin engine pre-configured with logging, recovery, CORS and observability middlewares.
func Build(opts Options) (*Router, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("http router requires config")
	}
	logger := opts.Logger
	if logger == nil {
		logger = utils.DefaultLogger
	}

	if opts.Config.Log.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), requestMiddleware(logger))

	_ = engine.SetTrustedProxies(nil)

	origins := opts.Config.Server.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	engine.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", HeaderRequestID},
		ExposeHeaders: []string{
			"Content-Length",
			"Content-Disposition",
			HeaderUnrecognizedSizes,
			HeaderImageWarning,
			HeaderFailedSizes,
			HeaderRequestID,
		},
		MaxAge: 12 * time.Hour,
	}))

	staticRoot := opts.StaticRoot
	if staticRoot == "" {
		staticRoot = opts.Config.Server.StaticDir
	}
	if staticRoot != "" {
		engine.Use(static.Serve("/", static.LocalFile(staticRoot, true)))
	}

	engine.NoRoute(func(c *gin.Context) {
		RespondError(c, http.StatusNotFound, "not found", nil)
	})

	return &Router{
		Engine: engine,
		API:    engine.Group("/api"),
	}, nil
}

// requestMiddleware tags each request with an id, traces it and logs one line when it ends.
func requestMiddleware(logger *utils.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(HeaderRequestID)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set(requestIDKey, requestID)
		c.Header(HeaderRequestID, requestID)

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		ctx, spanEnd := observability.StartSpan(c.Request.Context(), "http.server", route)
		c.Request = c.Request.WithContext(ctx)

		start := time.Now()
		c.Next()
		elapsed := time.Since(start)
		status := c.Writer.Status()

		var spanErr error
		switch {
		case len(c.Errors) > 0:
			spanErr = c.Errors.Last().Err
		case status >= http.StatusInternalServerError:
			spanErr = fmt.Errorf("status %d", status)
		}
		spanEnd(spanErr)

		labels := map[string]string{"component": "http.server", "method": c.Request.Method, "path": route}
		observability.RecordMetric(ctx, "http.request.duration_ms", float64(elapsed.Milliseconds()), labels)
		labels["status"] = strconv.Itoa(status)
		observability.RecordMetric(ctx, "http.requests", 1, labels)

		if status >= http.StatusInternalServerError {
			logger.WarnTag("HTTP", "%s %s -> %d (%s) req=%s", c.Request.Method, c.Request.URL.Path, status, elapsed, requestID)
			return
		}
		logger.InfoTag("HTTP", "%s %s -> %d (%s) req=%s", c.Request.Method, c.Request.URL.Path, status, elapsed, requestID)
	}
}

// RequestID returns the id assigned to the current request.
func RequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}
