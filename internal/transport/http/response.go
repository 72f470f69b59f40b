package httptransport

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"image-sizer-go/internal/utils"
)

// APIResponse is the JSON envelope of every non-binary response.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
	Message string      `json:"message"`
	Error   string      `json:"error,omitempty"`
	Code    int         `json:"code"`
}

func RespondSuccess(c *gin.Context, httpStatus int, data interface{}, message string) {
	if message == "" {
		message = "ok"
	}

	resp := APIResponse{
		Success: true,
		Message: message,
		Code:    httpStatus,
		Data:    data,
	}

	c.JSON(httpStatus, resp)
}

// RespondError writes message to both the message and error fields.
func RespondError(c *gin.Context, httpStatus int, message string, data interface{}) {
	resp := APIResponse{
		Success: false,
		Message: message,
		Error:   message,
		Code:    httpStatus,
		Data:    data,
	}

	c.AbortWithStatusJSON(httpStatus, resp)
}

// RespondFile sends content as an attachment.
func RespondFile(c *gin.Context, filename, contentType string, content []byte) {
	c.Header("Content-Disposition", utils.AttachmentHeader(filename))
	c.Data(http.StatusOK, contentType, content)
}
