// Package response writes the JSON envelope used by the storefront routes.
// Payment webhooks answer in the processor's own shape and do not use it.
package response

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/sangkips/dinein-api/pkg/apperror"
	"github.com/sangkips/dinein-api/pkg/pagination"
)

// requestIDKey is where LoggerMiddleware stores the request id
const requestIDKey = "request_id"

// Envelope wraps every storefront response. Errors carries per-field
// validation problems for 422 responses.
type Envelope struct {
	Success bool                  `json:"success"`
	Message string                `json:"message"`
	Data    interface{}           `json:"data,omitempty"`
	Errors  []apperror.FieldError `json:"errors,omitempty"`
	Meta    Meta                  `json:"meta"`
}

// Meta ties a response to the request log line that produced it
type Meta struct {
	Timestamp string `json:"timestamp"`
	RequestID string `json:"request_id"`
}

func meta(c *gin.Context) Meta {
	id := c.GetString(requestIDKey)
	if id == "" {
		id = c.GetHeader("X-Request-ID")
	}
	if id == "" {
		id = uuid.NewString()
	}
	return Meta{Timestamp: time.Now().UTC().Format(time.RFC3339), RequestID: id}
}

func write(c *gin.Context, status int, env Envelope) {
	env.Success = status < http.StatusBadRequest
	env.Meta = meta(c)
	c.JSON(status, env)
}

// OK answers 200 with an order, session or other resource
func OK(c *gin.Context, message string, data interface{}) {
	write(c, http.StatusOK, Envelope{Message: message, Data: data})
}

// Created answers 201 for a placed order, opened session or checkout
func Created(c *gin.Context, message string, data interface{}) {
	write(c, http.StatusCreated, Envelope{Message: message, Data: data})
}

// Page answers 200 with one page of a listing, e.g. a session's orders
func Page[T any](c *gin.Context, message string, result *pagination.PaginatedResult[T]) {
	write(c, http.StatusOK, Envelope{Message: message, Data: result})
}

// Error answers with the status and message of an AppError. Anything else is
// logged and reported as a generic 500 so storage errors do not reach diners.
func Error(c *gin.Context, err error) {
	if !apperror.IsAppError(err) {
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
		write(c, http.StatusInternalServerError, Envelope{Message: "Internal server error"})
		return
	}
	appErr := apperror.GetAppError(err)
	write(c, appErr.Code, Envelope{Message: appErr.Message, Errors: appErr.Errors})
}

// BadRequest answers 400, used before a request reaches a service
func BadRequest(c *gin.Context, message string) {
	write(c, http.StatusBadRequest, Envelope{Message: message})
}

// NotFound answers 404, e.g. for an unknown restaurant slug
func NotFound(c *gin.Context, message string) {
	write(c, http.StatusNotFound, Envelope{Message: message})
}
