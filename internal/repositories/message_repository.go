package repositories

import (
	"context"
	"database/sql"
	"log/slog"

	_ "embed"

	"relay/internal/models"
)

//go:embed migrations/006_create_messages_table_up.sql
var createMessagesTableQuery string

type MessageRepository struct {
	db *sql.DB
}

func NewMessageRepository(db *sql.DB, logger *slog.Logger) (*MessageRepository, error) {
	if _, err := db.Exec(createMessagesTableQuery); err != nil {
		logger.Error("messages migration failed", "error", err)
		return nil, err
	}
	return &MessageRepository{db: db}, nil
}

// CreateMessage fills in msg.ID and msg.CreatedAt on success. A duplicate
// client_message_id surfaces as the driver's unique-violation error; the
// pipeline above decides what to do with it.
func (r *MessageRepository) CreateMessage(ctx context.Context, msg *models.Message) error {
	return r.db.QueryRowContext(ctx, `
		INSERT INTO messages (chat_id, sender_id, text, timestamp, client_message_id)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''))
		RETURNING id, created_at`,
		msg.ChatID, msg.SenderID, msg.Text, msg.Timestamp, msg.ClientMessageID).
		Scan(&msg.ID, &msg.CreatedAt)
}

func (r *MessageRepository) GetMessageByID(ctx context.Context, id int64) (*models.Message, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, chat_id, sender_id, text, timestamp, COALESCE(client_message_id, ''), is_read, created_at
		FROM messages WHERE id = $1`, id)
	return scanMessage(row)
}

func (r *MessageRepository) GetMessageByClientID(ctx context.Context, clientMessageID string) (*models.Message, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, chat_id, sender_id, text, timestamp, COALESCE(client_message_id, ''), is_read, created_at
		FROM messages WHERE client_message_id = $1`, clientMessageID)
	return scanMessage(row)
}

func (r *MessageRepository) MarkRead(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, "UPDATE messages SET is_read = TRUE WHERE id = $1", id)
	return err
}

func (r *MessageRepository) GetMessages(ctx context.Context, chatID int64, limit, offset int) ([]models.Message, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, chat_id, sender_id, text, timestamp, COALESCE(client_message_id, ''), is_read, created_at
		FROM messages
		WHERE chat_id = $1
		ORDER BY created_at ASC
		LIMIT $2 OFFSET $3`, chatID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var msg models.Message
		var ts sql.NullTime
		if err := rows.Scan(&msg.ID, &msg.ChatID, &msg.SenderID, &msg.Text, &ts,
			&msg.ClientMessageID, &msg.IsRead, &msg.CreatedAt); err != nil {
			return nil, err
		}
		if ts.Valid {
			msg.Timestamp = ts.Time
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

func (r *MessageRepository) CountMessages(ctx context.Context, chatID int64) (int, error) {
	var total int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM messages WHERE chat_id = $1", chatID).Scan(&total)
	return total, err
}

func scanMessage(row *sql.Row) (*models.Message, error) {
	var msg models.Message
	var ts sql.NullTime
	err := row.Scan(&msg.ID, &msg.ChatID, &msg.SenderID, &msg.Text, &ts,
		&msg.ClientMessageID, &msg.IsRead, &msg.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	if ts.Valid {
		msg.Timestamp = ts.Time
	}
	return &msg, nil
}
