package webapi

import (
	"context"
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"

	domainimage "image-sizer-go/internal/domain/image"
	"image-sizer-go/internal/domain/sizes"
	"image-sizer-go/internal/platform/config"
	"image-sizer-go/internal/platform/errors"
	httptransport "image-sizer-go/internal/transport/http"
	"image-sizer-go/internal/utils"
)

// StatsSource reports store statistics for the health endpoint.
type StatsSource interface {
	Stats(ctx context.Context) (map[string]any, error)
}

// JobStats reports job manager counters.
type JobStats interface {
	Stats() map[string]any
}

// ImageMetrics reports decode and validation counters.
type ImageMetrics interface {
	Metrics() domainimage.Metrics
}

// Service serves the preset catalog and the health probe.
type Service struct {
	logger  *utils.Logger
	config  *config.Config
	catalog *sizes.Catalog
	store   StatsSource
	jobs    JobStats
	images  ImageMetrics
	started time.Time
}

type Options struct {
	Config  *config.Config
	Logger  *utils.Logger
	Catalog *sizes.Catalog
	Store   StatsSource
	Jobs    JobStats
	Images  ImageMetrics
}

func NewService(opts Options) (*Service, error) {
	if opts.Config == nil {
		return nil, errors.Wrap(errors.KindConfig, "webapi.new", "config is required", nil)
	}
	if opts.Logger == nil {
		return nil, errors.Wrap(errors.KindConfig, "webapi.new", "logger is required", nil)
	}
	if opts.Catalog == nil {
		opts.Catalog = sizes.Builtin()
	}

	return &Service{
		logger:  opts.Logger,
		config:  opts.Config,
		catalog: opts.Catalog,
		store:   opts.Store,
		jobs:    opts.Jobs,
		images:  opts.Images,
		started: time.Now(),
	}, nil
}

func (s *Service) Register(_ context.Context, router *gin.RouterGroup) error {
	router.GET("/presets", s.handlePresets)
	router.GET("/presets/:category", s.handleCategory)
	router.GET("/health", s.handleHealth)

	s.logger.InfoTag("HTTP", "preset and health routes registered")
	return nil
}

// CategoryView is one category with its presets.
type CategoryView struct {
	sizes.Category
	Sizes []sizes.SizeSpec `json:"sizes"`
}

// handlePresets lists every category with its presets.
// @Summary List presets
// @Tags Presets
// @Produce json
// @Success 200 {array} CategoryView
// @Router /presets [get]
func (s *Service) handlePresets(c *gin.Context) {
	categories := s.catalog.Categories()
	views := make([]CategoryView, 0, len(categories))
	for _, cat := range categories {
		specs, _ := s.catalog.ByCategory(cat.ID)
		views = append(views, CategoryView{Category: cat, Sizes: specs})
	}
	httptransport.RespondSuccess(c, http.StatusOK, views, "")
}

// handleCategory lists the presets of one category.
// @Summary List presets of a category
// @Tags Presets
// @Produce json
// @Param category path string true "category id"
// @Success 200 {array} sizes.SizeSpec
// @Failure 404 {object} httptransport.APIResponse
// @Router /presets/{category} [get]
func (s *Service) handleCategory(c *gin.Context) {
	specs, ok := s.catalog.ByCategory(c.Param("category"))
	if !ok {
		httptransport.RespondError(c, http.StatusNotFound, "unknown category "+c.Param("category"), nil)
		return
	}
	httptransport.RespondSuccess(c, http.StatusOK, specs, "")
}

// handleHealth reports process and store health.
// @Summary Health probe
// @Tags System
// @Produce json
// @Success 200 {object} httptransport.APIResponse
// @Router /health [get]
func (s *Service) handleHealth(c *gin.Context) {
	ctx := c.Request.Context()
	payload := gin.H{
		"status":     "ok",
		"uptime":     time.Since(s.started).Round(time.Second).String(),
		"goroutines": runtime.NumGoroutine(),
		"presets":    s.catalog.Len(),
	}

	system := gin.H{}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		system["memory_total"] = vm.Total
		system["memory_used_percent"] = vm.UsedPercent
	}
	if pct, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(pct) > 0 {
		system["cpu_percent"] = pct[0]
	}
	if proc, err := process.NewProcessWithContext(ctx, int32(os.Getpid())); err == nil {
		if info, err := proc.MemoryInfoWithContext(ctx); err == nil {
			system["process_rss"] = info.RSS
			system["process_rss_human"] = utils.HumanBytes(int64(info.RSS))
		}
	}
	payload["system"] = system

	if s.store != nil {
		stats, err := s.store.Stats(ctx)
		if err != nil {
			s.logger.WarnTag("HTTP", "handle store stats failed: %v", err)
			payload["status"] = "degraded"
			payload["handles"] = gin.H{"error": err.Error()}
		} else {
			payload["handles"] = stats
		}
	}
	if s.jobs != nil {
		payload["jobs"] = s.jobs.Stats()
	}
	if s.images != nil {
		payload["images"] = s.images.Metrics()
	}

	httptransport.RespondSuccess(c, http.StatusOK, payload, "")
}
