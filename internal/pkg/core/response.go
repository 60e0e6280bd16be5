package core

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kiosk404/ferry/pkg/errorx"
	"github.com/kiosk404/ferry/pkg/logger"
)

// ErrResponse defines the return messages when an error occurred.
type ErrResponse struct {
	// Code defines the business error code.
	Code int `json:"code"`

	// Message contains the detail of this message.
	// This message is suitable to be exposed to external
	Message string `json:"message"`

	// Reason is the wrapped error chain, for operators.
	Reason string `json:"reason,omitempty"`

	// Reference returns the reference document which maybe useful to solve this error.
	Reference string `json:"reference,omitempty"`
}

// WriteResponse writes an error or the response data into http response body.
// It uses errorx.ParseCoder to parse any error into errorx.Coder.
func WriteResponse(c *gin.Context, err error, data interface{}) {
	if err != nil {
		coder := errorx.ParseCoder(err)
		logger.Warn("[Core] %s %s failed (code=%d): %v", c.Request.Method, c.Request.URL.Path, coder.Code(), err)
		c.JSON(coder.HTTPStatus(), ErrResponse{
			Code:      coder.Code(),
			Message:   coder.String(),
			Reason:    err.Error(),
			Reference: coder.Reference(),
		})
		return
	}

	c.JSON(http.StatusOK, data)
}
