package httptransport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"

	perrors "image-sizer-go/internal/platform/errors"
	"image-sizer-go/internal/utils"
)

const (
	FieldImage   = "image"
	FieldSizeIDs = "sizeIds"

	multipartMemory = 32 << 20
)

// Upload is a parsed resize form.
type Upload struct {
	Image    []byte
	Filename string
	SizeIDs  []string
}

// UploadError is a malformed request. Status is always a 4xx.
type UploadError struct {
	Status  int
	Message string
	Err     error
}

func (e *UploadError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

func badRequest(message string, err error) *UploadError {
	return &UploadError{Status: http.StatusBadRequest, Message: message, Err: err}
}

// Deadline bounds the rest of the request by timeout, body reads included.
// Reads after the deadline fail even when the client keeps trickling bytes.
func Deadline(c *gin.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
	if deadline, ok := ctx.Deadline(); ok {
		// Unsupported by test recorders; the body wrapper still applies.
		_ = http.NewResponseController(c.Writer).SetReadDeadline(deadline)
	}
	c.Request = c.Request.WithContext(ctx)
	if c.Request.Body != nil {
		c.Request.Body = &deadlineBody{ctx: ctx, ReadCloser: c.Request.Body}
	}
	return ctx, cancel
}

type deadlineBody struct {
	ctx context.Context
	io.ReadCloser
}

func (b *deadlineBody) Read(p []byte) (int, error) {
	if err := b.ctx.Err(); err != nil {
		return 0, err
	}
	return b.ReadCloser.Read(p)
}

// ReadUpload parses the multipart image and sizeIds fields, capping the body at maxBytes.
func ReadUpload(c *gin.Context, maxBytes int64) (*Upload, error) {
	if maxBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
	}
	if err := c.Request.ParseMultipartForm(multipartMemory); err != nil {
		if ctxErr := c.Request.Context().Err(); ctxErr != nil {
			return nil, perrors.Wrap(perrors.KindTimeout, "upload.read", "request timed out", ctxErr)
		}
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) || strings.Contains(err.Error(), "request body too large") {
			return nil, badRequest(fmt.Sprintf("Upload exceeds %s", utils.HumanBytes(maxBytes)), nil)
		}
		return nil, badRequest("Invalid multipart form", err)
	}

	file, header, err := c.Request.FormFile(FieldImage)
	if err != nil {
		return nil, badRequest("No image provided", nil)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, badRequest("Could not read upload", err)
	}
	if len(data) == 0 {
		return nil, badRequest("No image provided", nil)
	}

	raw, ok := c.Request.MultipartForm.Value[FieldSizeIDs]
	if !ok || len(raw) == 0 || strings.TrimSpace(raw[0]) == "" {
		return nil, badRequest("No sizes selected", nil)
	}
	ids, err := ParseSizeIDs(raw[0])
	if err != nil {
		return nil, err
	}

	return &Upload{Image: data, Filename: header.Filename, SizeIDs: ids}, nil
}

// ParseSizeIDs decodes a JSON array of size ids.
func ParseSizeIDs(raw string) ([]string, error) {
	var ids []string
	if err := sonic.UnmarshalString(raw, &ids); err != nil {
		return nil, badRequest("Invalid sizeIds: expected a JSON array of strings", err)
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}
