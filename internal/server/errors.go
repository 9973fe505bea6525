package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/billingcore/internal/apperr"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Code    string            `json:"code,omitempty"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var ErrInvalidRequest = apperr.Validation("invalid_request")

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

// statusByKind maps every error kind to its HTTP status. Untagged errors are storage failures.
var statusByKind = map[apperr.Kind]int{
	apperr.KindValidation:             http.StatusBadRequest,
	apperr.KindNotFound:               http.StatusNotFound,
	apperr.KindConflict:               http.StatusConflict,
	apperr.KindInvalidStateTransition: http.StatusConflict,
	apperr.KindOverpayment:            http.StatusUnprocessableEntity,
	apperr.KindStorage:                http.StatusInternalServerError,
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    string(apperr.KindStorage),
			Message: "internal server error",
		}
	}

	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    string(apperr.KindValidation),
			Code:    "invalid_request",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	kind := apperr.KindOf(err)
	status, ok := statusByKind[kind]
	if !ok {
		status = http.StatusInternalServerError
	}

	if kind == apperr.KindStorage {
		return status, errorPayload{
			Type:    string(kind),
			Message: "internal server error",
		}
	}

	code := apperr.CodeOf(err)
	return status, errorPayload{
		Type:    string(kind),
		Code:    code,
		Message: errorMessage(kind),
	}
}

func errorMessage(kind apperr.Kind) string {
	switch kind {
	case apperr.KindValidation:
		return "validation error"
	case apperr.KindNotFound:
		return "not found"
	case apperr.KindConflict:
		return "conflict"
	case apperr.KindInvalidStateTransition:
		return "invalid state transition"
	case apperr.KindOverpayment:
		return "payment exceeds the outstanding balance"
	default:
		return "internal server error"
	}
}

func classifyErrorForLog(err error) (string, string) {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return string(apperr.KindValidation), "invalid_request"
	}
	return string(apperr.KindOf(err)), apperr.CodeOf(err)
}
