package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"signaling-service/internal/models"
)

// PresenceSource answers presence queries.
type PresenceSource interface {
	Get(ctx context.Context, userID int64) (models.Presence, error)
}

// PresenceHandler exposes read access to user presence.
type PresenceHandler struct {
	presence PresenceSource
	log      *zap.Logger
}

// NewPresenceHandler builds a PresenceHandler.
func NewPresenceHandler(presence PresenceSource, log *zap.Logger) *PresenceHandler {
	return &PresenceHandler{presence: presence, log: log}
}

// GetPresence returns a user's last-known connectivity state. Users
// never seen by the registry report offline.
func (h *PresenceHandler) GetPresence(c *gin.Context) {
	userID, ok := pathID(c, "user_id")
	if !ok {
		return
	}

	p, err := h.presence.Get(c.Request.Context(), userID)
	if err != nil {
		h.log.Error("presence lookup failed", zap.Int64("user_id", userID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load presence"})
		return
	}

	c.JSON(http.StatusOK, p)
}
