package apihandlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"folio/internal/models"
)

// APIError is the body of every error response.
// Example: { "error": { "code": "invalid_category", "message": "invalid category \"Games\"" } }
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error APIError `json:"error"`
}

// JSONError sends a structured error response and stops the handler chain.
func JSONError(ctx *gin.Context, status int, code, msg string) {
	ctx.AbortWithStatusJSON(status, errorResponse{Error: APIError{Code: code, Message: msg}})
}

func BadRequest(ctx *gin.Context, msg string) {
	JSONError(ctx, http.StatusBadRequest, "bad_request", msg)
}

func NotFound(ctx *gin.Context, msg string) {
	JSONError(ctx, http.StatusNotFound, "not_found", msg)
}

func Internal(ctx *gin.Context, msg string) {
	log.WithField("path", ctx.FullPath()).Error(msg)
	JSONError(ctx, http.StatusInternalServerError, "internal_error", "internal server error")
}

// RespondError maps pipeline sentinel errors onto HTTP statuses.
func RespondError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrInvalidCategory):
		JSONError(ctx, http.StatusBadRequest, "invalid_category", err.Error())
	case errors.Is(err, models.ErrEntryNotFound):
		JSONError(ctx, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, models.ErrLoadInProgress):
		JSONError(ctx, http.StatusConflict, "load_in_progress", "a load cycle is already running")
	default:
		Internal(ctx, err.Error())
	}
}
