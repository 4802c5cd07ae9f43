package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"relay/internal/ports"
	"relay/internal/registry"
	"relay/internal/services"
	"relay/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const closeWriteTimeout = 5 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type WebSocketHandler struct {
	auth     *services.AuthService
	oracle   ports.IMembershipOracle
	registry *registry.Registry
	delivery ports.IDeliveryService
	logger   *slog.Logger

	onOpen  func()
	onClose func()
}

func NewWebSocketHandler(auth *services.AuthService, oracle ports.IMembershipOracle, reg *registry.Registry, delivery ports.IDeliveryService, logger *slog.Logger) *WebSocketHandler {
	return &WebSocketHandler{auth: auth, oracle: oracle, registry: reg, delivery: delivery, logger: logger}
}

// SetConnectionHooks installs callbacks fired when a session starts and
// ends, used to keep the active-connections gauge current.
func (h *WebSocketHandler) SetConnectionHooks(onOpen, onClose func()) {
	h.onOpen = onOpen
	h.onClose = onClose
}

// HandleWebSocket upgrades the transport and walks the session through its
// Connecting state: credential check, then membership check. Either
// failure closes with a policy-violation code before anything is
// registered.
func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	chatID, err := strconv.ParseInt(c.Query("chat_id"), 10, 64)
	if err != nil || chatID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid chat_id"})
		return
	}

	token := c.Query("token")
	if token == "" {
		if cookie, err := c.Request.Cookie("token"); err == nil {
			token = cookie.Value
		}
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	userID, err := h.auth.ValidateToken(c.Request.Context(), token)
	if err != nil {
		h.logger.Warn("unauthorized websocket attempt", "chatID", chatID)
		closePolicyViolation(conn, "unauthorized")
		return
	}

	if !h.oracle.IsMember(c.Request.Context(), chatID, userID) {
		h.logger.Warn("non-member websocket attempt", "chatID", chatID, "userID", userID)
		closePolicyViolation(conn, "not a chat member")
		return
	}

	sess := session.New(conn, chatID, userID, h.registry, h.delivery, h.logger)
	if h.onOpen != nil {
		h.onOpen()
	}
	if h.onClose != nil {
		sess.SetOnClose(h.onClose)
	}
	sess.Run()
}

func closePolicyViolation(conn *websocket.Conn, reason string) {
	msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason)
	conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeWriteTimeout))
	conn.Close()
}
