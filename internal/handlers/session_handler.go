package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/mentorlink/backend/internal/services/session"
)

// SessionHandler handles mentoring session requests
type SessionHandler struct {
	sessionService *session.SessionService
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(sessionService *session.SessionService) *SessionHandler {
	return &SessionHandler{sessionService: sessionService}
}

// UpdateSession applies a mentor's edit to one of their sessions
func (h *SessionHandler) UpdateSession(c *gin.Context) {
	mentorID, ok := currentUserID(c)
	if !ok {
		return
	}

	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session ID"})
		return
	}

	var input session.UpdateSessionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.sessionService.UpdateSession(c.Request.Context(), sessionID, mentorID, input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetSession returns one session by id
func (h *SessionHandler) GetSession(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session ID"})
		return
	}

	result, err := h.sessionService.GetSession(c.Request.Context(), sessionID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ListMySessions lists the authenticated mentor's sessions
func (h *SessionHandler) ListMySessions(c *gin.Context) {
	mentorID, ok := currentUserID(c)
	if !ok {
		return
	}

	sessions, err := h.sessionService.ListSessionsByMentor(c.Request.Context(), mentorID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sessions)
}
