// Package handlers implements the REST endpoints on top of the application
// services.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/molfrag/pkg/errors"
)

// ErrorResponse is the standard error response body.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeAppError maps err to its HTTP status. Errors that carry no code are
// masked as internal errors.
func writeAppError(c *gin.Context, err error) {
	_ = c.Error(err)
	code := errors.GetCode(err)
	if code == errors.CodeUnknown || code == errors.CodeOK {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Code:    errors.ErrCodeInternal.String(),
			Message: errors.DefaultMessageForCode(errors.ErrCodeInternal),
		})
		return
	}
	c.JSON(errors.HTTPStatusForCode(code), ErrorResponse{Code: code.String(), Message: err.Error()})
}

// writeBindError reports a malformed or incomplete request body.
func writeBindError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Code:    errors.ErrCodeBadRequest.String(),
		Message: err.Error(),
	})
}
