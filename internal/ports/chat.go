package ports

import (
	"context"

	"relay/internal/models"
)

type IChatRepository interface {
	CreatePrivateChat(ctx context.Context, first, second int64) (int64, error)
	CreateGroupChat(ctx context.Context, name string, creatorID int64, memberIDs []int64) (int64, error)
	FindPrivateChat(ctx context.Context, first, second int64) (int64, error)
	GetChatByID(ctx context.Context, chatID int64) (*models.Chat, error)
	GetUserChats(ctx context.Context, userID int64) ([]models.Chat, error)
}

type IMessageRepository interface {
	CreateMessage(ctx context.Context, msg *models.Message) error
	GetMessageByID(ctx context.Context, id int64) (*models.Message, error)
	GetMessageByClientID(ctx context.Context, clientMessageID string) (*models.Message, error)
	MarkRead(ctx context.Context, id int64) error
	GetMessages(ctx context.Context, chatID int64, limit, offset int) ([]models.Message, error)
	CountMessages(ctx context.Context, chatID int64) (int, error)
}

type IMembershipRepository interface {
	IsMember(ctx context.Context, chatID, userID int64) (bool, error)
}
