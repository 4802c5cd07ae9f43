package services

import (
	"context"
	"log/slog"

	"relay/internal/models"
	"relay/internal/ports"
)

type ChatService struct {
	chatRepo ports.IChatRepository
	userRepo ports.IUserRepository
	logger   *slog.Logger
}

func NewChatService(chatRepo ports.IChatRepository, userRepo ports.IUserRepository, logger *slog.Logger) *ChatService {
	return &ChatService{chatRepo: chatRepo, userRepo: userRepo, logger: logger}
}

// CreatePrivateChat creates the two-member chat between creator and other.
// The member set is fixed at creation and a second private chat between the
// same pair is rejected.
func (s *ChatService) CreatePrivateChat(ctx context.Context, creatorID, otherID int64) (int64, error) {
	if creatorID == otherID {
		return 0, ErrInvalidInput
	}

	if err := s.checkUsersExist(ctx, creatorID, otherID); err != nil {
		return 0, err
	}

	existing, err := s.chatRepo.FindPrivateChat(ctx, creatorID, otherID)
	if err != nil {
		s.logger.Error("private chat lookup failed", "error", err)
		return 0, err
	}
	if existing != 0 {
		s.logger.Warn("duplicate private chat rejected", "first", creatorID, "second", otherID)
		return 0, ErrChatExists
	}

	chatID, err := s.chatRepo.CreatePrivateChat(ctx, creatorID, otherID)
	if err != nil {
		s.logger.Error("private chat creation failed", "error", err)
		return 0, err
	}

	s.logger.Info("private chat created", "chatID", chatID, "first", creatorID, "second", otherID)
	return chatID, nil
}

func (s *ChatService) CreateGroupChat(ctx context.Context, name string, creatorID int64, memberIDs []int64) (int64, error) {
	if name == "" || len(memberIDs) == 0 {
		return 0, ErrInvalidInput
	}

	members := memberIDs
	if !containsID(members, creatorID) {
		members = append([]int64{creatorID}, members...)
	}

	if err := s.checkUsersExist(ctx, members...); err != nil {
		return 0, err
	}

	chatID, err := s.chatRepo.CreateGroupChat(ctx, name, creatorID, members)
	if err != nil {
		s.logger.Error("group chat creation failed", "name", name, "error", err)
		return 0, err
	}

	s.logger.Info("group chat created", "chatID", chatID, "name", name, "memberCount", len(members))
	return chatID, nil
}

func (s *ChatService) GetUserChats(ctx context.Context, userID int64) ([]models.Chat, error) {
	chats, err := s.chatRepo.GetUserChats(ctx, userID)
	if err != nil {
		s.logger.Error("user chats query failed", "userID", userID, "error", err)
		return nil, err
	}
	return chats, nil
}

func (s *ChatService) GetChatByID(ctx context.Context, chatID int64) (*models.Chat, error) {
	chat, err := s.chatRepo.GetChatByID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if chat == nil {
		return nil, ErrChatNotFound
	}
	return chat, nil
}

func (s *ChatService) checkUsersExist(ctx context.Context, ids ...int64) error {
	for _, id := range ids {
		user, err := s.userRepo.GetUserByID(ctx, id)
		if err != nil {
			s.logger.Error("user existence check failed", "userID", id, "error", err)
			return err
		}
		if user == nil {
			s.logger.Warn("user not found", "userID", id)
			return ErrUserNotFound
		}
	}
	return nil
}

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
