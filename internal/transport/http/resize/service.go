package resize

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"image-sizer-go/internal/domain/archive"
	"image-sizer-go/internal/domain/batch"
	"image-sizer-go/internal/domain/render"
	"image-sizer-go/internal/platform/config"
	"image-sizer-go/internal/platform/errors"
	httptransport "image-sizer-go/internal/transport/http"
	"image-sizer-go/internal/utils"
)

// Service serves the one-shot resize endpoint.
type Service struct {
	config   *config.Config
	logger   *utils.Logger
	engine   *batch.Engine
	resolver *batch.Resolver
}

func NewService(
	config *config.Config,
	logger *utils.Logger,
	engine *batch.Engine,
	resolver *batch.Resolver,
) (*Service, error) {
	if config == nil {
		return nil, errors.Wrap(errors.KindConfig, "resize.new", "config is required", nil)
	}
	if logger == nil {
		return nil, errors.Wrap(errors.KindConfig, "resize.new", "logger is required", nil)
	}
	if engine == nil {
		return nil, errors.Wrap(errors.KindConfig, "resize.new", "batch engine is required", nil)
	}
	if resolver == nil {
		resolver = batch.NewResolver(nil)
	}

	return &Service{
		config:   config,
		logger:   logger,
		engine:   engine,
		resolver: resolver,
	}, nil
}

func (s *Service) Register(_ context.Context, router *gin.RouterGroup) error {
	router.POST("/resize", s.handleResize)

	s.logger.InfoTag("HTTP", "resize routes registered")
	return nil
}

type outcome struct {
	result *batch.Result
	bundle render.Output
	err    error
}

// handleResize renders every requested size and answers with a zip.
// @Summary Resize an image into many sizes
// @Description Renders each requested size from one upload and returns them as a zip archive
// @Tags Resize
// @Accept multipart/form-data
// @Produce application/zip
// @Param image formData file true "source image"
// @Param sizeIds formData string true "JSON array of size ids"
// @Success 200 {file} file
// @Failure 400 {object} httptransport.APIResponse
// @Failure 500 {object} httptransport.APIResponse
// @Failure 504 {object} httptransport.APIResponse
// @Router /resize [post]
func (s *Service) handleResize(c *gin.Context) {
	timeout := s.config.Server.Timeout()
	ctx, cancel := httptransport.Deadline(c, timeout)
	defer cancel()

	upload, err := httptransport.ReadUpload(c, s.config.Server.MaxUploadBytes)
	if err != nil {
		s.logger.WarnTag("HTTP", "resize request rejected: %v", err)
		httptransport.Fail(c, err)
		return
	}

	resolution, err := s.resolver.ResolveStrict(upload.SizeIDs)
	if err != nil {
		s.logger.WarnTag("HTTP", "resize request rejected: %v", err)
		httptransport.Fail(c, err)
		return
	}
	if len(resolution.Unrecognized) > 0 {
		s.logger.WarnTag("HTTP", "ignoring unrecognized sizes: %s", strings.Join(resolution.Unrecognized, ", "))
		c.Header(httptransport.HeaderUnrecognizedSizes, strings.Join(resolution.Unrecognized, ","))
	}

	// The batch keeps running until its next item boundary after a timeout.
	done := make(chan outcome, 1)
	go func() {
		result, err := s.engine.NewBatch().Run(ctx, upload.Image, resolution.Specs)
		if err == nil {
			var bundle render.Output
			if bundle, err = archive.Bundle(result.Outputs); err == nil {
				done <- outcome{result: result, bundle: bundle}
				return
			}
		}
		done <- outcome{result: result, err: err}
	}()

	var out outcome
	select {
	case out = <-done:
	case <-ctx.Done():
		s.logger.WarnTag("HTTP", "resize of %s timed out after %s", upload.Filename, timeout)
		httptransport.Fail(c, errors.Wrap(errors.KindTimeout, "resize.run", "request timed out", ctx.Err()))
		return
	}

	if out.err != nil {
		s.logger.ErrorTag("HTTP", "resize of %s failed: %v", upload.Filename, out.err)
		httptransport.Fail(c, out.err)
		return
	}

	if len(out.result.Warnings) > 0 {
		c.Header(httptransport.HeaderImageWarning, strings.Join(out.result.Warnings, "; "))
	}
	if out.result.Failed > 0 {
		failed := make([]string, 0, len(out.result.Failures))
		for _, f := range out.result.Failures {
			failed = append(failed, f.SpecID)
		}
		c.Header(httptransport.HeaderFailedSizes, strings.Join(failed, ","))
	}

	s.logger.InfoTag("HTTP", "resized %s into %d files (%s)",
		upload.Filename, len(out.result.Outputs), utils.HumanBytes(int64(len(out.bundle.Content))))
	c.Header("Content-Disposition", utils.AttachmentHeader(out.bundle.Filename))
	c.Data(http.StatusOK, out.bundle.ContentType, out.bundle.Content)
}
