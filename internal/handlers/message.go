package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"signaling-service/internal/middleware"
	"signaling-service/internal/models"
	"signaling-service/internal/repositories"
	"signaling-service/internal/storage"
	"signaling-service/internal/ws"
)

const (
	defaultPageSize = 50
	maxPageSize     = 100
)

// MessageHandler manages a chat's message log endpoints.
type MessageHandler struct {
	chatRepo    repositories.ChatRepository
	messageRepo repositories.MessageRepository
	uploader    storage.Uploader
	relay       *ws.Relay
	log         *zap.Logger
}

// NewMessageHandler builds a MessageHandler.
func NewMessageHandler(chatRepo repositories.ChatRepository, messageRepo repositories.MessageRepository, uploader storage.Uploader, relay *ws.Relay, log *zap.Logger) *MessageHandler {
	return &MessageHandler{
		chatRepo:    chatRepo,
		messageRepo: messageRepo,
		uploader:    uploader,
		relay:       relay,
		log:         log,
	}
}

// requireParticipant loads the chat and checks membership, writing the
// error response itself on failure.
func requireParticipant(c *gin.Context, repo repositories.ChatRepository, chatID, userID int64) bool {
	chat, err := repo.GetChat(c.Request.Context(), chatID)
	if err != nil {
		respondStoreError(c, err)
		return false
	}
	if !chat.HasParticipant(userID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a chat participant"})
		return false
	}
	return true
}

// PostMessage appends a message to the chat. Accepts JSON, or multipart
// form data with an optional file attachment that is handed to blob
// storage for a URL before the append.
func (h *MessageHandler) PostMessage(c *gin.Context) {
	chatID, ok := pathID(c, "chat_id")
	if !ok {
		return
	}
	userID := middleware.UserID(c)
	if !requireParticipant(c, h.chatRepo, chatID, userID) {
		return
	}

	content, contentType, fileURL, ok := h.readMessageBody(c)
	if !ok {
		return
	}

	msg, err := h.messageRepo.Append(c.Request.Context(), chatID, userID, content, contentType, fileURL)
	if err != nil {
		h.log.Error("append message failed",
			zap.Int64("chat_id", chatID),
			zap.Int64("sender_id", userID),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store message"})
		return
	}

	h.relay.BroadcastToChat(context.Background(), chatID, ws.TypeMessage,
		ws.MessageEvent{Type: ws.TypeMessage, Message: &msg}, userID)

	c.JSON(http.StatusCreated, msg)
}

func (h *MessageHandler) readMessageBody(c *gin.Context) (content, contentType, fileURL string, ok bool) {
	if strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		content = c.PostForm("content")
		contentType = c.DefaultPostForm("content_type", models.ContentTypeFile)

		fileHeader, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing file"})
			return "", "", "", false
		}
		if h.uploader == nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": "uploads unavailable"})
			return "", "", "", false
		}
		fileURL, err = h.uploader.UploadFromHeader(c.Request.Context(), fileHeader, "chat")
		if err != nil {
			h.log.Warn("attachment upload failed", zap.Error(err))
			c.JSON(http.StatusBadGateway, gin.H{"error": "upload failed"})
			return "", "", "", false
		}
	} else {
		var req struct {
			Content     string `json:"content" binding:"required"`
			ContentType string `json:"content_type"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return "", "", "", false
		}
		content = req.Content
		contentType = req.ContentType
	}

	if contentType == "" {
		contentType = models.ContentTypeText
	}
	if !models.ValidContentType(contentType) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid content type"})
		return "", "", "", false
	}
	if content == "" && fileURL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "empty message"})
		return "", "", "", false
	}
	return content, contentType, fileURL, true
}

// ListMessages returns one page of the chat's messages, oldest first.
func (h *MessageHandler) ListMessages(c *gin.Context) {
	chatID, ok := pathID(c, "chat_id")
	if !ok {
		return
	}
	userID := middleware.UserID(c)
	if !requireParticipant(c, h.chatRepo, chatID, userID) {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultPageSize)))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > maxPageSize {
		pageSize = defaultPageSize
	}

	msgs, err := h.messageRepo.ListPage(c.Request.Context(), chatID, page, pageSize)
	if err != nil {
		h.log.Error("list messages failed", zap.Int64("chat_id", chatID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": msgs, "page": page})
}

// MarkRead records read receipts for the given message ids. Unknown ids
// are ignored; repeated calls are no-ops.
func (h *MessageHandler) MarkRead(c *gin.Context) {
	chatID, ok := pathID(c, "chat_id")
	if !ok {
		return
	}
	userID := middleware.UserID(c)
	if !requireParticipant(c, h.chatRepo, chatID, userID) {
		return
	}

	var req struct {
		MessageIDs []int64 `json:"message_ids" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	marked, err := h.messageRepo.MarkRead(c.Request.Context(), chatID, userID, req.MessageIDs)
	if err != nil {
		h.log.Error("mark read failed", zap.Int64("chat_id", chatID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to mark read"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"marked": marked})
}

// SetReaction sets the caller's reaction on a message.
func (h *MessageHandler) SetReaction(c *gin.Context) {
	chatID, ok := pathID(c, "chat_id")
	if !ok {
		return
	}
	messageID, ok := pathID(c, "message_id")
	if !ok {
		return
	}
	userID := middleware.UserID(c)
	if !requireParticipant(c, h.chatRepo, chatID, userID) {
		return
	}

	var req struct {
		Reaction string `json:"reaction" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !models.ValidReaction(req.Reaction) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid reaction"})
		return
	}

	if err := h.messageRepo.SetReaction(c.Request.Context(), chatID, messageID, userID, req.Reaction); err != nil {
		respondStoreError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
