package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"signaling-service/internal/calls"
	"signaling-service/internal/middleware"
	"signaling-service/internal/models"
	"signaling-service/internal/observability"
	"signaling-service/internal/rabbitmq"
	"signaling-service/internal/repositories"
	"signaling-service/internal/ws"
)

// CallHandler manages call initiation and participant responses.
type CallHandler struct {
	chatRepo  repositories.ChatRepository
	callRepo  repositories.CallRepository
	relay     *ws.Relay
	publisher rabbitmq.Publisher
	log       *zap.Logger

	// now is swappable for tests.
	now func() time.Time
}

// NewCallHandler builds a CallHandler.
func NewCallHandler(chatRepo repositories.ChatRepository, callRepo repositories.CallRepository, relay *ws.Relay, publisher rabbitmq.Publisher, log *zap.Logger) *CallHandler {
	return &CallHandler{
		chatRepo:  chatRepo,
		callRepo:  callRepo,
		relay:     relay,
		publisher: publisher,
		log:       log,
		now:       time.Now,
	}
}

func (h *CallHandler) publishEvent(ctx context.Context, name string, call models.Call) {
	if h.publisher == nil {
		return
	}
	_ = h.publisher.Publish(ctx, "call."+name, observability.EventEnvelope{
		EventType: "call",
		EventName: name,
		Payload:   call,
	}, nil)
}

// Initiate starts a call on a chat. Participants are seeded from the
// chat's current member list with the initiator pre-accepted, and a
// call_request is relayed to everyone else.
func (h *CallHandler) Initiate(c *gin.Context) {
	chatID, ok := pathID(c, "chat_id")
	if !ok {
		return
	}
	userID := middleware.UserID(c)
	if !requireParticipant(c, h.chatRepo, chatID, userID) {
		return
	}

	var req struct {
		Type string `json:"type" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Type != models.CallTypeAudio && req.Type != models.CallTypeVideo {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid call type"})
		return
	}

	call, err := h.callRepo.Create(c.Request.Context(), chatID, userID, req.Type)
	if err != nil {
		h.log.Error("create call failed",
			zap.Int64("chat_id", chatID),
			zap.Int64("initiator_id", userID),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to start call"})
		return
	}

	h.relay.BroadcastToChat(context.Background(), chatID, ws.TypeCallRequest, ws.CallEvent{
		Type:     ws.TypeCallRequest,
		ChatID:   chatID,
		CallID:   call.ID,
		CallType: call.Type,
		CallerID: userID,
	}, userID)
	h.publishEvent(c.Request.Context(), "started", call)

	c.JSON(http.StatusCreated, call)
}

// Respond applies the caller's own response (accepted, declined or
// missed) to a pending call. Responding for anyone else is forbidden.
// Once nobody remains pending the call is finalized and call_ended is
// relayed to all participants.
func (h *CallHandler) Respond(c *gin.Context) {
	chatID, ok := pathID(c, "chat_id")
	if !ok {
		return
	}
	callID, ok := pathID(c, "call_id")
	if !ok {
		return
	}
	userID := middleware.UserID(c)

	var req struct {
		Status string `json:"status" binding:"required"`
		UserID int64  `json:"user_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.UserID != 0 && req.UserID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "cannot respond for another participant"})
		return
	}
	if !calls.ValidResponse(req.Status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid call status"})
		return
	}

	call, finalized, err := h.callRepo.Respond(c.Request.Context(), chatID, callID, userID, req.Status, h.now())
	if err != nil {
		respondStoreError(c, err)
		return
	}

	eventType := ws.TypeCallAccepted
	if req.Status != models.CallStatusAccepted {
		eventType = ws.TypeCallRejected
	}
	h.relay.BroadcastToChat(context.Background(), chatID, eventType, ws.CallEvent{
		Type:   eventType,
		ChatID: chatID,
		CallID: callID,
		UserID: userID,
	}, userID)

	if finalized {
		h.relay.BroadcastToChat(context.Background(), chatID, ws.TypeCallEnded, ws.CallEvent{
			Type:     ws.TypeCallEnded,
			ChatID:   chatID,
			CallID:   callID,
			Duration: call.Duration,
		}, 0)
		h.publishEvent(c.Request.Context(), "ended", call)
	}

	c.JSON(http.StatusOK, call)
}

// Leave records that a joined participant hung up.
func (h *CallHandler) Leave(c *gin.Context) {
	chatID, ok := pathID(c, "chat_id")
	if !ok {
		return
	}
	callID, ok := pathID(c, "call_id")
	if !ok {
		return
	}
	userID := middleware.UserID(c)

	if err := h.callRepo.Leave(c.Request.Context(), chatID, callID, userID, h.now()); err != nil {
		respondStoreError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
