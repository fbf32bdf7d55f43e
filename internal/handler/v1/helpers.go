package v1

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sony/gobreaker/v2"

	"github.com/dmehra2102/prod-golang-projects/oncoscan/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/oncoscan/internal/service"
)

type APIResponse[T any] struct {
	Data    T      `json:"data"`
	Message string `json:"message,omitempty"`
}

type ErrorResponse struct {
	Error   string            `json:"error"`
	Code    string            `json:"code,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

type ValidationErrorResponse struct {
	Error  string   `json:"error"`
	Fields []string `json:"fields"`
}

func respondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, APIResponse[any]{Data: data})
}

func respondMessage(c *gin.Context, data any, message string) {
	c.JSON(http.StatusOK, APIResponse[any]{Data: data, Message: message})
}

func respondCreated(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, APIResponse[any]{Data: data})
}

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, ErrorResponse{Error: message})
}

func respondServiceError(c *gin.Context, err error) {
	var validErr *service.ValidationError
	if errors.As(err, &validErr) {
		c.JSON(http.StatusBadRequest, ValidationErrorResponse{
			Error:  "validation failed",
			Fields: validErr.Fields,
		})
		return
	}

	var uploadErr *service.UploadRejectedError
	if errors.As(err, &uploadErr) {
		status := http.StatusBadGateway
		if uploadErr.StatusCode >= 400 && uploadErr.StatusCode < 500 {
			status = http.StatusUnprocessableEntity
		}
		c.JSON(status, ErrorResponse{Error: uploadErr.Message, Code: "UPLOAD_REJECTED"})
		return
	}

	var predErr *service.PredictionFailedError
	if errors.As(err, &predErr) {
		c.JSON(http.StatusBadGateway, ErrorResponse{
			Error:   "Prediction failed. The scan was uploaded and remains in your history.",
			Code:    "PREDICTION_FAILED",
			Details: map[string]string{"scan_id": predErr.ScanID.String()},
		})
		return
	}

	var deleteErr *service.DeleteRejectedError
	if errors.As(err, &deleteErr) {
		msg := deleteErr.Message
		if msg == "" {
			msg = "Failed to delete scan."
		}
		c.JSON(http.StatusBadGateway, ErrorResponse{
			Error:   msg,
			Code:    "DELETE_REJECTED",
			Details: map[string]string{"scan_id": deleteErr.ScanID.String()},
		})
		return
	}

	switch {
	case errors.Is(err, service.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "sign in required", Code: "UNAUTHENTICATED"})
		return

	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid credentials"})
		return

	case errors.Is(err, service.ErrInvalidPosition):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return

	case errors.Is(err, service.ErrNoPendingDelete),
		errors.Is(err, service.ErrDeleteInProgress):
		c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})
		return

	case errors.Is(err, gobreaker.ErrOpenState),
		errors.Is(err, gobreaker.ErrTooManyRequests):
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error: "remote service temporarily unavailable",
			Code:  "REMOTE_UNAVAILABLE",
		})
		return
	}

	var statusErr *domain.StatusError
	if errors.As(err, &statusErr) {
		status := http.StatusBadGateway
		if statusErr.StatusCode >= 400 && statusErr.StatusCode < 500 {
			status = statusErr.StatusCode
		}
		msg := statusErr.Message
		if msg == "" {
			msg = http.StatusText(status)
		}
		c.JSON(status, ErrorResponse{Error: msg})
		return
	}

	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
}

func bindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request: " + err.Error()})
		return false
	}

	return true
}

func parseQueryInt(c *gin.Context, key string, defaultVal int) int {
	if raw := c.Query(key); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			return v
		}
	}
	return defaultVal
}
