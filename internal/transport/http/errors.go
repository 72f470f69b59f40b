package httptransport

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"image-sizer-go/internal/domain/archive"
	"image-sizer-go/internal/domain/batch"
	"image-sizer-go/internal/domain/handles"
	"image-sizer-go/internal/domain/job"
	perrors "image-sizer-go/internal/platform/errors"
	"image-sizer-go/internal/utils"
)

// StatusFor maps err onto an HTTP status and the message shown to the client.
func StatusFor(err error) (int, string) {
	var upload *UploadError
	var noValid *batch.NoValidSizesError

	switch {
	case err == nil:
		return http.StatusOK, ""
	case errors.As(err, &upload):
		return upload.Status, upload.Message
	case errors.As(err, &noValid):
		return http.StatusBadRequest, noValid.Error()
	case errors.Is(err, batch.ErrNoSpecs):
		return http.StatusBadRequest, "No sizes selected"
	case errors.Is(err, batch.ErrNoDimensions):
		return http.StatusBadRequest, "Could not read image dimensions"
	case errors.Is(err, batch.ErrUndecodable):
		return http.StatusBadRequest, "Could not decode image"
	case errors.Is(err, batch.ErrTooLarge):
		return http.StatusBadRequest, "Image exceeds size limits"
	case errors.Is(err, job.ErrNoSource):
		return http.StatusBadRequest, "No image provided"
	case errors.Is(err, context.DeadlineExceeded), perrors.IsKind(err, perrors.KindTimeout):
		return http.StatusGatewayTimeout, "Request timed out"
	case errors.Is(err, batch.ErrNoOutputs):
		return http.StatusInternalServerError, "no outputs produced"
	case errors.Is(err, job.ErrNotFound), errors.Is(err, handles.ErrNotFound), errors.Is(err, archive.ErrNotFound):
		return http.StatusNotFound, "Not found"
	case errors.Is(err, job.ErrNotReady):
		return http.StatusConflict, "Job has not finished"
	case errors.Is(err, job.ErrTooManyJobs):
		return http.StatusTooManyRequests, "Too many active jobs"
	case errors.Is(err, archive.ErrEmpty):
		return http.StatusNotFound, "Job has no outputs"
	default:
		return http.StatusInternalServerError, "Internal error"
	}
}

// Fail responds with the status StatusFor picks and records err on the context.
func Fail(c *gin.Context, err error) {
	status, message := StatusFor(err)
	_ = c.Error(err)
	if status >= http.StatusInternalServerError {
		utils.DefaultLogger.ErrorTag("HTTP", "%s %s req=%s kind=%s: %v",
			c.Request.Method, c.Request.URL.Path, RequestID(c), perrors.KindOf(err), err)
	}
	RespondError(c, status, message, nil)
}
