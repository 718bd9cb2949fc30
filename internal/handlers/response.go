package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/polizaflow/agency-backend/internal/services"
)

type APIError struct {
	Message string            `json:"message"`
	Code    string            `json:"code,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

func RespondCreated(c *gin.Context, payload any) {
	c.JSON(http.StatusCreated, payload)
}

// RespondServiceError maps service sentinels onto HTTP statuses. Anything
// unrecognized is a 500 with a generic message so internals do not leak.
func RespondServiceError(c *gin.Context, err error) {
	var vErr *services.ValidationError
	if errors.As(err, &vErr) {
		c.JSON(http.StatusUnprocessableEntity, ErrorEnvelope{
			Error: APIError{Message: vErr.Message, Code: "validation_failed", Fields: vErr.Fields},
		})
		return
	}

	switch {
	case errors.Is(err, services.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, ErrorEnvelope{
			Error: APIError{Message: "unauthorized", Code: "unauthorized"},
		})
	case errors.Is(err, services.ErrReauthRequired):
		c.JSON(http.StatusUnauthorized, ErrorEnvelope{
			Error: APIError{Message: "calendar connection expired, please reconnect", Code: "reauth_required"},
		})
	case errors.Is(err, services.ErrForbidden):
		c.JSON(http.StatusForbidden, ErrorEnvelope{
			Error: APIError{Message: "forbidden", Code: "forbidden"},
		})
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorEnvelope{
			Error: APIError{Message: "not found", Code: "not_found"},
		})
	case errors.Is(err, services.ErrConflict):
		c.JSON(http.StatusConflict, ErrorEnvelope{
			Error: APIError{Message: "conflict with current state", Code: "conflict"},
		})
	default:
		c.JSON(http.StatusInternalServerError, ErrorEnvelope{
			Error: APIError{Message: "internal server error", Code: "internal"},
		})
	}
}

func RespondBadRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorEnvelope{
		Error: APIError{Message: msg, Code: "bad_request"},
	})
}
