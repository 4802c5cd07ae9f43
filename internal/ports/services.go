package ports

import (
	"context"

	"relay/internal/models"
)

// IMembershipOracle answers whether a user may act inside a chat. It never
// reports a store error to the caller; an unanswerable question is a denial.
type IMembershipOracle interface {
	IsMember(ctx context.Context, chatID, userID int64) bool
}

type IDeliveryService interface {
	Send(ctx context.Context, chatID, userID int64, text, clientMessageID string) (*models.Message, error)
	MarkRead(ctx context.Context, chatID, userID, messageID int64) (int64, error)
	History(ctx context.Context, chatID, userID int64, limit, offset int) (*models.HistoryPage, error)
}
