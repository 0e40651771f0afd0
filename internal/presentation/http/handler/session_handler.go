package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/sangkips/dinein-api/internal/application/service"
	"github.com/sangkips/dinein-api/internal/presentation/http/dto/response"
)

// SessionHandler handles table session HTTP requests
type SessionHandler struct {
	sessionService *service.SessionService
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(sessionService *service.SessionService) *SessionHandler {
	return &SessionHandler{sessionService: sessionService}
}

// Open handles opening a session at a table
func (h *SessionHandler) Open(c *gin.Context) {
	session, err := h.sessionService.OpenSession(c.Request.Context(), c.Param("table"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, "Session opened successfully", session)
}

// Close handles closing a session
func (h *SessionHandler) Close(c *gin.Context) {
	sessionID, err := parseUUIDParam(c, "session")
	if err != nil {
		response.Error(c, err)
		return
	}

	session, err := h.sessionService.CloseSession(c.Request.Context(), sessionID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Session closed successfully", session)
}
