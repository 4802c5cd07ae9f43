package services

import (
	"context"
	"log/slog"

	"relay/internal/ports"
)

// MembershipService answers "is user U a member of chat C". Every send,
// read mark and history request goes through it first.
type MembershipService struct {
	repo   ports.IMembershipRepository
	logger *slog.Logger
}

func NewMembershipService(repo ports.IMembershipRepository, logger *slog.Logger) *MembershipService {
	return &MembershipService{repo: repo, logger: logger}
}

// IsMember returns false for unknown chats and users. A store failure is
// logged and answered with false: denying is safer than guessing.
func (s *MembershipService) IsMember(ctx context.Context, chatID, userID int64) bool {
	ok, err := s.repo.IsMember(ctx, chatID, userID)
	if err != nil {
		s.logger.Error("membership lookup failed", "chatID", chatID, "userID", userID, "error", err)
		return false
	}
	return ok
}
