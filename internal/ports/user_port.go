package ports

import (
	"context"

	"relay/internal/models"
)

type IUserRepository interface {
	IUserRepositoryReader
	IUserRepositoryWriter
}

type IUserRepositoryReader interface {
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
}

type IUserRepositoryWriter interface {
	CreateUser(ctx context.Context, name, email, passwordHash string) (int64, error)
}
