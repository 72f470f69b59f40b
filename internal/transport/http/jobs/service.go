package jobs

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"image-sizer-go/internal/domain/job"
	"image-sizer-go/internal/platform/config"
	"image-sizer-go/internal/platform/errors"
	httptransport "image-sizer-go/internal/transport/http"
	"image-sizer-go/internal/utils"
)

const FieldSupersedes = "supersedes"

// Service exposes the job manager over HTTP.
type Service struct {
	config  *config.Config
	logger  *utils.Logger
	manager *job.Manager
}

func NewService(config *config.Config, logger *utils.Logger, manager *job.Manager) (*Service, error) {
	if config == nil {
		return nil, errors.Wrap(errors.KindConfig, "jobs.new", "config is required", nil)
	}
	if logger == nil {
		return nil, errors.Wrap(errors.KindConfig, "jobs.new", "logger is required", nil)
	}
	if manager == nil {
		return nil, errors.Wrap(errors.KindConfig, "jobs.new", "job manager is required", nil)
	}
	return &Service{config: config, logger: logger, manager: manager}, nil
}

func (s *Service) Register(_ context.Context, router *gin.RouterGroup) error {
	group := router.Group("/jobs")
	group.POST("", s.handleSubmit)
	group.GET("/:id", s.handleGet)
	group.GET("/:id/files/:filename", s.handleFile)
	group.GET("/:id/archive", s.handleArchive)
	group.DELETE("/:id", s.handleDiscard)

	s.logger.InfoTag("HTTP", "job routes registered")
	return nil
}

// handleSubmit starts a background job.
// @Summary Submit a resize job
// @Description Starts rendering in the background; progress is available on /ws/jobs/{id}
// @Tags Jobs
// @Accept multipart/form-data
// @Produce json
// @Param image formData file true "source image"
// @Param sizeIds formData string true "JSON array of size ids"
// @Param supersedes formData string false "job to discard once this one is accepted"
// @Success 202 {object} job.Snapshot
// @Failure 400 {object} httptransport.APIResponse
// @Failure 429 {object} httptransport.APIResponse
// @Router /jobs [post]
func (s *Service) handleSubmit(c *gin.Context) {
	_, cancel := httptransport.Deadline(c, s.config.Server.Timeout())
	defer cancel()

	upload, err := httptransport.ReadUpload(c, s.config.Server.MaxUploadBytes)
	if err != nil {
		httptransport.Fail(c, err)
		return
	}

	snap, err := s.manager.Submit(context.WithoutCancel(c.Request.Context()), job.SubmitRequest{
		Source:     upload.Image,
		SizeIDs:    upload.SizeIDs,
		Supersedes: c.Request.FormValue(FieldSupersedes),
	})
	if err != nil {
		s.logger.WarnTag("HTTP", "job submit rejected: %v", err)
		httptransport.Fail(c, err)
		return
	}
	httptransport.RespondSuccess(c, http.StatusAccepted, snap, "accepted")
}

// handleGet returns a job snapshot.
// @Summary Get a job
// @Tags Jobs
// @Produce json
// @Param id path string true "job id"
// @Success 200 {object} job.Snapshot
// @Failure 404 {object} httptransport.APIResponse
// @Router /jobs/{id} [get]
func (s *Service) handleGet(c *gin.Context) {
	snap, err := s.manager.Get(c.Param("id"))
	if err != nil {
		httptransport.Fail(c, err)
		return
	}
	httptransport.RespondSuccess(c, http.StatusOK, snap, "")
}

// handleFile downloads one output of a job.
// @Summary Download one output
// @Tags Jobs
// @Produce octet-stream
// @Param id path string true "job id"
// @Param filename path string true "output filename"
// @Success 200 {file} file
// @Failure 404 {object} httptransport.APIResponse
// @Router /jobs/{id}/files/{filename} [get]
func (s *Service) handleFile(c *gin.Context) {
	out, err := s.manager.File(c.Request.Context(), c.Param("id"), c.Param("filename"))
	if err != nil {
		httptransport.Fail(c, err)
		return
	}
	httptransport.RespondFile(c, out.Filename, out.ContentType, out.Content)
}

// handleArchive downloads every output of a finished job as a zip.
// @Summary Download all outputs
// @Tags Jobs
// @Produce application/zip
// @Param id path string true "job id"
// @Success 200 {file} file
// @Failure 404 {object} httptransport.APIResponse
// @Failure 409 {object} httptransport.APIResponse
// @Router /jobs/{id}/archive [get]
func (s *Service) handleArchive(c *gin.Context) {
	out, err := s.manager.Archive(c.Request.Context(), c.Param("id"))
	if err != nil {
		httptransport.Fail(c, err)
		return
	}
	httptransport.RespondFile(c, out.Filename, out.ContentType, out.Content)
}

// handleDiscard drops a job and releases its outputs.
// @Summary Discard a job
// @Tags Jobs
// @Produce json
// @Param id path string true "job id"
// @Success 200 {object} httptransport.APIResponse
// @Failure 404 {object} httptransport.APIResponse
// @Router /jobs/{id} [delete]
func (s *Service) handleDiscard(c *gin.Context) {
	id := c.Param("id")
	if err := s.manager.Discard(c.Request.Context(), id); err != nil {
		httptransport.Fail(c, err)
		return
	}
	httptransport.RespondSuccess(c, http.StatusOK, gin.H{"id": id}, "discarded")
}
