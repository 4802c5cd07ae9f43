package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"relay/internal/models"
	"relay/internal/ports"
	"relay/internal/registry"
	"relay/internal/services"

	"github.com/gin-gonic/gin"
)

type ChatHandler struct {
	chats    *services.ChatService
	delivery ports.IDeliveryService
	registry *registry.Registry
	logger   *slog.Logger
}

func NewChatHandler(chats *services.ChatService, delivery ports.IDeliveryService, reg *registry.Registry, logger *slog.Logger) *ChatHandler {
	return &ChatHandler{chats: chats, delivery: delivery, registry: reg, logger: logger}
}

func (h *ChatHandler) CreateChat(c *gin.Context) {
	var req struct {
		Type      string  `json:"chat_type"`
		Name      string  `json:"name"`
		MemberIDs []int64 `json:"member_ids" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	userID := c.GetInt64("user_id")
	if req.Type == "" {
		req.Type = models.ChatTypePrivate
	}

	var chatID int64
	var err error
	switch req.Type {
	case models.ChatTypePrivate:
		if len(req.MemberIDs) != 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "private chat needs exactly one other member"})
			return
		}
		chatID, err = h.chats.CreatePrivateChat(c.Request.Context(), userID, req.MemberIDs[0])
	case models.ChatTypeGroup:
		chatID, err = h.chats.CreateGroupChat(c.Request.Context(), req.Name, userID, req.MemberIDs)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown chat type"})
		return
	}

	if err != nil {
		h.logger.Warn("chat creation failed", "error", err)
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"chat_id": chatID})
}

func (h *ChatHandler) GetUserChats(c *gin.Context) {
	chats, err := h.chats.GetUserChats(c.Request.Context(), c.GetInt64("user_id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"chats": chats})
}

// GetChatMessages serves paginated history, oldest first. Membership is
// enforced by the pipeline; non-members get a 403.
func (h *ChatHandler) GetChatMessages(c *gin.Context) {
	chatID, err := strconv.ParseInt(c.Param("chatId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid chat id"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	page, err := h.delivery.History(c.Request.Context(), chatID, c.GetInt64("user_id"), limit, offset)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, page)
}

// MarkMessageRead is the REST twin of the websocket "read" frame: it marks
// the message and pushes the receipt to all of the sender's live sessions.
func (h *ChatHandler) MarkMessageRead(c *gin.Context) {
	chatID, err := strconv.ParseInt(c.Param("chatId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid chat id"})
		return
	}
	messageID, err := strconv.ParseInt(c.Param("messageId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message id"})
		return
	}

	readerID := c.GetInt64("user_id")
	senderID, err := h.delivery.MarkRead(c.Request.Context(), chatID, readerID, messageID)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	payload, _ := json.Marshal(gin.H{"type": "read", "message_id": messageID, "reader_id": readerID})
	h.registry.SendToUser(senderID, payload)

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, services.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, services.ErrMessageNotFound),
		errors.Is(err, services.ErrChatNotFound),
		errors.Is(err, services.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrChatExists):
		return http.StatusConflict
	case errors.Is(err, services.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrUnauthorized):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
