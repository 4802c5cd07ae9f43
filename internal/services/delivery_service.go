package services

import (
	"context"
	"errors"
	"log/slog"
	"time"
	"unicode/utf8"

	"relay/internal/models"
	"relay/internal/ports"

	"github.com/lib/pq"
)

const MaxMessageLength = 4096

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 100
)

// DeliveryService is the message and read-receipt pipeline. It authorizes
// through the membership oracle, persists exactly one message per client
// token, and hands the persisted record back to the caller for fan-out.
// Delivery itself is the registry's job; a broadcast that fails after a
// successful commit does not undo the write.
type DeliveryService struct {
	messages ports.IMessageRepository
	oracle   ports.IMembershipOracle
	logger   *slog.Logger
}

func NewDeliveryService(messages ports.IMessageRepository, oracle ports.IMembershipOracle, logger *slog.Logger) *DeliveryService {
	return &DeliveryService{messages: messages, oracle: oracle, logger: logger}
}

// Send persists a message for a chat member. Retried sends carrying the
// same client_message_id land on the store's uniqueness constraint; the
// conflict is treated as success and the original row is returned.
func (s *DeliveryService) Send(ctx context.Context, chatID, userID int64, text, clientMessageID string) (*models.Message, error) {
	if text == "" || utf8.RuneCountInString(text) > MaxMessageLength {
		return nil, ErrInvalidInput
	}

	if !s.oracle.IsMember(ctx, chatID, userID) {
		s.logger.Warn("send rejected, not a chat member", "chatID", chatID, "userID", userID)
		return nil, ErrForbidden
	}

	msg := &models.Message{
		ChatID:          chatID,
		SenderID:        userID,
		Text:            text,
		Timestamp:       time.Now().UTC(),
		ClientMessageID: clientMessageID,
	}

	err := s.messages.CreateMessage(ctx, msg)
	if err == nil {
		s.logger.Info("message persisted", "chatID", chatID, "senderID", userID, "messageID", msg.ID)
		return msg, nil
	}

	if clientMessageID != "" && isUniqueViolation(err) {
		existing, fetchErr := s.messages.GetMessageByClientID(ctx, clientMessageID)
		if fetchErr != nil {
			s.logger.Error("idempotent refetch failed", "clientMessageID", clientMessageID, "error", fetchErr)
			return nil, fetchErr
		}
		if existing == nil {
			return nil, ErrMessageNotFound
		}
		s.logger.Debug("duplicate send resolved to existing message",
			"clientMessageID", clientMessageID, "messageID", existing.ID)
		return existing, nil
	}

	s.logger.Error("message persistence failed", "chatID", chatID, "senderID", userID, "error", err)
	return nil, err
}

// MarkRead flips is_read on a message and returns the original sender's id
// so the caller can notify the sender's live connections. Marking an
// already-read message writes nothing but still returns the sender.
func (s *DeliveryService) MarkRead(ctx context.Context, chatID, userID, messageID int64) (int64, error) {
	if !s.oracle.IsMember(ctx, chatID, userID) {
		s.logger.Warn("read mark rejected, not a chat member", "chatID", chatID, "userID", userID)
		return 0, ErrForbidden
	}

	msg, err := s.messages.GetMessageByID(ctx, messageID)
	if err != nil {
		s.logger.Error("message lookup failed", "messageID", messageID, "error", err)
		return 0, err
	}
	if msg == nil {
		return 0, ErrMessageNotFound
	}

	if msg.IsRead {
		return msg.SenderID, nil
	}

	if err := s.messages.MarkRead(ctx, messageID); err != nil {
		s.logger.Error("read mark failed", "messageID", messageID, "error", err)
		return 0, err
	}

	s.logger.Info("message marked read", "messageID", messageID, "readerID", userID)
	return msg.SenderID, nil
}

// History returns one page of a chat's log ordered oldest first, with the
// total count and the clamped limit/offset echoed back.
func (s *DeliveryService) History(ctx context.Context, chatID, userID int64, limit, offset int) (*models.HistoryPage, error) {
	if !s.oracle.IsMember(ctx, chatID, userID) {
		return nil, ErrForbidden
	}

	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	if offset < 0 {
		offset = 0
	}

	messages, err := s.messages.GetMessages(ctx, chatID, limit, offset)
	if err != nil {
		s.logger.Error("history query failed", "chatID", chatID, "error", err)
		return nil, err
	}

	total, err := s.messages.CountMessages(ctx, chatID)
	if err != nil {
		s.logger.Error("history count failed", "chatID", chatID, "error", err)
		return nil, err
	}

	return &models.HistoryPage{Messages: messages, Total: total, Limit: limit, Offset: offset}, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation"
}
