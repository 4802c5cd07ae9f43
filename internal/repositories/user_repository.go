package repositories

import (
	"context"
	"database/sql"
	"log/slog"

	_ "embed"

	"relay/internal/models"
)

//go:embed migrations/001_create_users_table_up.sql
var createUsersTableQuery string

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB, logger *slog.Logger) (*UserRepository, error) {
	if _, err := db.Exec(createUsersTableQuery); err != nil {
		logger.Error("users migration failed", "error", err)
		return nil, err
	}
	return &UserRepository{db: db}, nil
}

func (r *UserRepository) CreateUser(ctx context.Context, name, email, passwordHash string) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx,
		"INSERT INTO users (name, email, password_hash) VALUES ($1, $2, $3) RETURNING id",
		name, email, passwordHash).Scan(&id)
	return id, err
}

func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	row := r.db.QueryRowContext(ctx,
		"SELECT id, name, email, password_hash FROM users WHERE email = $1", email)
	if err := row.Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	row := r.db.QueryRowContext(ctx,
		"SELECT id, name, email, password_hash FROM users WHERE id = $1", id)
	if err := row.Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}
