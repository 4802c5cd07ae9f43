package repositories

import (
	"context"
	"database/sql"
)

// MembershipRepository reads the chat_users association. The table itself
// is created by the chat repository's migrations.
type MembershipRepository struct {
	db *sql.DB
}

func NewMembershipRepository(db *sql.DB) *MembershipRepository {
	return &MembershipRepository{db: db}
}

func (r *MembershipRepository) IsMember(ctx context.Context, chatID, userID int64) (bool, error) {
	var isMember bool
	err := r.db.QueryRowContext(ctx,
		"SELECT EXISTS (SELECT 1 FROM chat_users WHERE chat_id = $1 AND user_id = $2)",
		chatID, userID).Scan(&isMember)
	return isMember, err
}
