package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"signaling-service/internal/middleware"
	"signaling-service/internal/repositories"
)

// ChatHandler manages the chat resource endpoints.
type ChatHandler struct {
	chatRepo repositories.ChatRepository
	log      *zap.Logger
}

// NewChatHandler builds a ChatHandler.
func NewChatHandler(chatRepo repositories.ChatRepository, log *zap.Logger) *ChatHandler {
	return &ChatHandler{chatRepo: chatRepo, log: log}
}

// ListChats returns the chats the authenticated user participates in,
// newest activity first, each with its most recent message.
func (h *ChatHandler) ListChats(c *gin.Context) {
	userID := middleware.UserID(c)

	chats, err := h.chatRepo.ListChatsForUser(c.Request.Context(), userID)
	if err != nil {
		h.log.Error("list chats failed", zap.Int64("user_id", userID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load chats"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"chats": chats})
}

// StartIndividual creates or returns the individual chat between the
// caller and the recipient. Idempotent: repeated requests for the same
// pair, from either end, converge on the same chat.
func (h *ChatHandler) StartIndividual(c *gin.Context) {
	var req struct {
		RecipientID int64 `json:"recipient_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := middleware.UserID(c)
	chat, err := h.chatRepo.FindOrCreateIndividual(c.Request.Context(), userID, req.RecipientID)
	if err != nil {
		respondStoreError(c, err)
		return
	}

	c.JSON(http.StatusOK, chat)
}

// CreateGroup creates a group chat with the caller as admin.
func (h *ChatHandler) CreateGroup(c *gin.Context) {
	var req struct {
		Name      string  `json:"name" binding:"required"`
		MemberIDs []int64 `json:"member_ids"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := middleware.UserID(c)
	chat, err := h.chatRepo.CreateGroup(c.Request.Context(), userID, req.Name, req.MemberIDs)
	if err != nil {
		respondStoreError(c, err)
		return
	}

	c.JSON(http.StatusCreated, chat)
}
