package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"relay/internal/ports"
	"relay/internal/registry"
	"relay/internal/services"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/tidwall/gjson"
)

const sendBufferSize = 256

var (
	errConnClosed     = errors.New("connection closed")
	errSendBufferFull = errors.New("send buffer full")
)

// Session is the control loop for one authenticated websocket connection
// subscribed to one chat. Frames are handled strictly in arrival order;
// the registry entry is removed exactly once on any exit path.
type Session struct {
	id       uuid.UUID
	chatID   int64
	userID   int64
	conn     *websocket.Conn
	registry *registry.Registry
	delivery ports.IDeliveryService
	logger   *slog.Logger

	send      chan []byte
	mu        sync.Mutex
	closed    bool
	closeOnce sync.Once
	onClose   func()
}

func New(conn *websocket.Conn, chatID, userID int64, reg *registry.Registry, delivery ports.IDeliveryService, logger *slog.Logger) *Session {
	id := uuid.New()
	return &Session{
		id:       id,
		chatID:   chatID,
		userID:   userID,
		conn:     conn,
		registry: reg,
		delivery: delivery,
		logger:   logger.With("connID", id.String(), "chatID", chatID, "userID", userID),
		send:     make(chan []byte, sendBufferSize),
	}
}

// SetOnClose installs a callback fired once when the session terminates.
func (s *Session) SetOnClose(fn func()) {
	s.onClose = fn
}

func (s *Session) ID() uuid.UUID {
	return s.id
}

// Send queues payload for delivery to the peer. It never blocks: a closed
// session or a full buffer is an error, which makes the registry drop this
// connection instead of stalling a broadcast.
func (s *Session) Send(payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errConnClosed
	}

	select {
	case s.send <- payload:
		return nil
	default:
		return errSendBufferFull
	}
}

// Run registers the session and starts the pumps. It returns immediately;
// the session lives until the peer disconnects or delivery to it fails.
func (s *Session) Run() {
	s.registry.Connect(s.chatID, s.userID, s)
	go s.writePump()
	go s.readPump()

	s.logger.Info("session active")
}

func (s *Session) readPump() {
	defer s.Close()

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				s.logger.Error("websocket read failed", "error", err)
			}
			return
		}
		s.handleFrame(context.Background(), raw)
	}
}

// handleFrame dispatches one inbound frame. Malformed and unrecognized
// frames are dropped; the session survives them.
func (s *Session) handleFrame(ctx context.Context, raw []byte) {
	switch gjson.GetBytes(raw, "type").String() {
	case "message":
		s.handleMessage(ctx, raw)
	case "read":
		s.handleRead(ctx, raw)
	default:
		s.logger.Debug("dropping unrecognized frame")
	}
}

func (s *Session) handleMessage(ctx context.Context, raw []byte) {
	text := gjson.GetBytes(raw, "text")
	if !text.Exists() {
		s.logger.Debug("dropping message frame without text")
		return
	}
	clientMessageID := gjson.GetBytes(raw, "client_message_id").String()

	msg, err := s.delivery.Send(ctx, s.chatID, s.userID, text.String(), clientMessageID)
	if err != nil {
		s.reportError(err)
		return
	}

	delivered := s.registry.Broadcast(s.chatID, encodeMessageEvent(msg))
	s.logger.Debug("message broadcast", "messageID", msg.ID, "delivered", delivered)
}

func (s *Session) handleRead(ctx context.Context, raw []byte) {
	messageID := gjson.GetBytes(raw, "message_id")
	if !messageID.Exists() || messageID.Int() <= 0 {
		s.logger.Debug("dropping read frame without message_id")
		return
	}

	senderID, err := s.delivery.MarkRead(ctx, s.chatID, s.userID, messageID.Int())
	if err != nil {
		s.reportError(err)
		return
	}

	delivered := s.registry.SendToUser(senderID, encodeReadEvent(messageID.Int(), s.userID))
	s.logger.Debug("read receipt routed", "messageID", messageID.Int(), "senderID", senderID, "delivered", delivered)
}

// reportError answers a business-rule failure on this connection only.
// Anything else is an internal fault: logged, not exposed to the peer.
func (s *Session) reportError(err error) {
	switch {
	case errors.Is(err, services.ErrForbidden),
		errors.Is(err, services.ErrMessageNotFound),
		errors.Is(err, services.ErrInvalidInput):
		if sendErr := s.Send(encodeErrorEvent(err)); sendErr != nil {
			s.logger.Warn("error frame not delivered", "error", sendErr)
		}
	default:
		s.logger.Error("pipeline call failed", "error", err)
	}
}

func (s *Session) writePump() {
	for payload := range s.send {
		if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			s.Close()
			return
		}
	}
	s.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// Close tears the session down: the registry reference goes first so no
// fan-out can pick the connection up again, then the send channel and the
// transport. Safe to call from any goroutine, any number of times.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.registry.Disconnect(s)

		s.mu.Lock()
		s.closed = true
		close(s.send)
		s.mu.Unlock()

		s.conn.Close()
		if s.onClose != nil {
			s.onClose()
		}
		s.logger.Info("session closed")
	})
}
