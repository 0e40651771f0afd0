package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sangkips/dinein-api/pkg/apperror"
)

// parseUUIDParam reads a UUID path parameter, naming it in the error
func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, error) {
	raw := c.Param(name)
	if raw == "" {
		return uuid.Nil, apperror.NewRequiredFieldError(name)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperror.NewBadRequestError(name + " must be a valid id")
	}
	return id, nil
}
