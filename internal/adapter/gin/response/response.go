// Package response renders the JSON envelopes shared by handlers and middleware.
package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	pkgerrors "user-management-api/pkg/errors"
	"user-management-api/pkg/logger"
)

// GenericMessage is the only text a 500 response ever carries.
const GenericMessage = "Something went wrong!"

// Error codes used in ErrorResponse.Error.
const (
	CodeValidation   = "validation_error"
	CodeExists       = "already_exists"
	CodeUnauthorized = "unauthorized"
	CodeNotFound     = "not_found"
	CodeRateLimited  = "rate_limit_exceeded"
	CodeInternal     = "internal_error"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string                 `json:"error"`
	Message string                 `json:"message"`
	Fields  []pkgerrors.FieldError `json:"fields,omitempty"`
}

// Error maps err onto its HTTP status and aborts the request.
func Error(c *gin.Context, log *zap.Logger, err error) {
	status := pkgerrors.StatusCode(err)
	body := ErrorResponse{Error: codeFor(err), Message: err.Error()}

	var verr *pkgerrors.ValidationError
	if errors.As(err, &verr) {
		body.Fields = verr.Fields
		if len(verr.Fields) > 0 {
			body.Message = verr.Fields[0].Message
		}
	}

	if status >= http.StatusInternalServerError {
		logger.WithContext(c.Request.Context(), log).Error("request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		body = ErrorResponse{Error: CodeInternal, Message: GenericMessage}
	}

	c.AbortWithStatusJSON(status, body)
}

// BadRequest aborts with a validation_error carrying message.
func BadRequest(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Error: CodeValidation, Message: message})
}

func codeFor(err error) string {
	switch {
	case pkgerrors.IsValidation(err):
		return CodeValidation
	case pkgerrors.IsAlreadyExists(err):
		return CodeExists
	case pkgerrors.IsUnauthorized(err):
		return CodeUnauthorized
	case pkgerrors.IsNotFound(err):
		return CodeNotFound
	default:
		return CodeInternal
	}
}
