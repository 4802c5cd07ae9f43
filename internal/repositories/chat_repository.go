package repositories

import (
	"context"
	"database/sql"
	"log/slog"

	_ "embed"

	"relay/internal/models"
)

//go:embed migrations/002_create_chats_table_up.sql
var createChatsTableQuery string

//go:embed migrations/003_create_chat_users_table_up.sql
var createChatUsersTableQuery string

//go:embed migrations/004_create_groups_table_up.sql
var createGroupsTableQuery string

//go:embed migrations/005_create_group_members_table_up.sql
var createGroupMembersTableQuery string

type ChatRepository struct {
	db *sql.DB
}

func NewChatRepository(db *sql.DB, logger *slog.Logger) (*ChatRepository, error) {
	for _, query := range []string{
		createChatsTableQuery,
		createChatUsersTableQuery,
		createGroupsTableQuery,
		createGroupMembersTableQuery,
	} {
		if _, err := db.Exec(query); err != nil {
			logger.Error("chat migrations failed", "error", err)
			return nil, err
		}
	}
	return &ChatRepository{db: db}, nil
}

// CreatePrivateChat inserts the chat row and both memberships in one
// transaction, so a private chat can never exist with a partial member set.
func (r *ChatRepository) CreatePrivateChat(ctx context.Context, first, second int64) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var chatID int64
	err = tx.QueryRowContext(ctx,
		"INSERT INTO chats (chat_type) VALUES ('private') RETURNING id").Scan(&chatID)
	if err != nil {
		return 0, err
	}

	for _, userID := range []int64{first, second} {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO chat_users (chat_id, user_id) VALUES ($1, $2)", chatID, userID); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return chatID, nil
}

// FindPrivateChat returns the id of the private chat shared by exactly the
// two users, or 0 when no such chat exists.
func (r *ChatRepository) FindPrivateChat(ctx context.Context, first, second int64) (int64, error) {
	var chatID int64
	err := r.db.QueryRowContext(ctx, `
		SELECT c.id
		FROM chats c
		JOIN chat_users a ON a.chat_id = c.id AND a.user_id = $1
		JOIN chat_users b ON b.chat_id = c.id AND b.user_id = $2
		WHERE c.chat_type = 'private'
		LIMIT 1`, first, second).Scan(&chatID)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, nil
		}
		return 0, err
	}
	return chatID, nil
}

func (r *ChatRepository) CreateGroupChat(ctx context.Context, name string, creatorID int64, memberIDs []int64) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var chatID int64
	err = tx.QueryRowContext(ctx,
		"INSERT INTO chats (name, chat_type) VALUES ($1, 'group') RETURNING id", name).Scan(&chatID)
	if err != nil {
		return 0, err
	}

	var groupID int64
	err = tx.QueryRowContext(ctx,
		"INSERT INTO groups (chat_id, name, creator_id) VALUES ($1, $2, $3) RETURNING id",
		chatID, name, creatorID).Scan(&groupID)
	if err != nil {
		return 0, err
	}

	for _, userID := range memberIDs {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO chat_users (chat_id, user_id) VALUES ($1, $2)", chatID, userID); err != nil {
			return 0, err
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO group_members (group_id, user_id) VALUES ($1, $2)", groupID, userID); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return chatID, nil
}

func (r *ChatRepository) GetChatByID(ctx context.Context, chatID int64) (*models.Chat, error) {
	var chat models.Chat
	var name sql.NullString
	err := r.db.QueryRowContext(ctx,
		"SELECT id, name, chat_type, created_at FROM chats WHERE id = $1", chatID).
		Scan(&chat.ID, &name, &chat.Type, &chat.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	if name.Valid {
		chat.Name = name.String
	}

	rows, err := r.db.QueryContext(ctx,
		"SELECT user_id FROM chat_users WHERE chat_id = $1", chatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var userID int64
		if err := rows.Scan(&userID); err != nil {
			return nil, err
		}
		chat.Members = append(chat.Members, userID)
	}
	return &chat, rows.Err()
}

func (r *ChatRepository) GetUserChats(ctx context.Context, userID int64) ([]models.Chat, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT c.id, c.name, c.chat_type, c.created_at
		FROM chats c
		JOIN chat_users cu ON cu.chat_id = c.id
		WHERE cu.user_id = $1
		ORDER BY cu.joined_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chats []models.Chat
	for rows.Next() {
		var chat models.Chat
		var name sql.NullString
		if err := rows.Scan(&chat.ID, &name, &chat.Type, &chat.CreatedAt); err != nil {
			return nil, err
		}
		if name.Valid {
			chat.Name = name.String
		}
		chats = append(chats, chat)
	}
	return chats, rows.Err()
}
