package httpapi

import (
	"errors"
	"net/http"

	"address-validator/internal/activitylog"
	"address-validator/internal/state"
	"address-validator/pkg/logger"

	"github.com/gin-gonic/gin"
)

// CreateSession starts a session with the initial UI state.
func (h Handlers) CreateSession(c *gin.Context) {
	if h.States == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "state store not configured"})
		return
	}
	id := activitylog.NewSessionID()
	s := state.New()
	if err := h.States.Save(c.Request.Context(), id, s); err != nil {
		logger.FromGin(c).Error("state save failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to create session"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"session": id, "state": s})
}

func (h Handlers) GetSessionState(c *gin.Context) {
	if h.States == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "state store not configured"})
		return
	}
	s, err := h.States.Load(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortStateError(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

// PutSessionState replaces the persisted state; only the persisted subset is kept.
func (h Handlers) PutSessionState(c *gin.Context) {
	if h.States == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "state store not configured"})
		return
	}
	s := state.New()
	if err := c.ShouldBindJSON(&s); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if err := s.Check(); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.States.Save(c.Request.Context(), c.Param("id"), s); err != nil {
		abortStateError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.Partialize())
}

func abortStateError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, state.ErrInvalidSessionID):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid session id"})
	case errors.Is(err, state.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "session not found"})
	case errors.Is(err, state.ErrUnsupportedVersion), errors.Is(err, state.ErrInvalidState):
		logger.FromGin(c).Warn("stored state unreadable", "err", err)
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "stored state is not readable, reset the session"})
	default:
		logger.FromGin(c).Error("state store failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "state store failed"})
	}
}
