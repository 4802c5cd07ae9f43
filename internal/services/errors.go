package services

import "errors"

var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrUnauthorized    = errors.New("invalid or expired credentials")
	ErrForbidden       = errors.New("user is not a member of this chat")
	ErrMessageNotFound = errors.New("message not found")
	ErrChatNotFound    = errors.New("chat not found")
	ErrUserNotFound    = errors.New("user not found")
	ErrEmailTaken      = errors.New("email already registered")
	ErrChatExists      = errors.New("private chat between these users already exists")
)
