package models

import "time"

type Message struct {
	ID              int64     `json:"id"`
	ChatID          int64     `json:"chat_id"`
	SenderID        int64     `json:"sender_id"`
	Text            string    `json:"text"`
	Timestamp       time.Time `json:"timestamp"`
	ClientMessageID string    `json:"client_message_id,omitempty"`
	IsRead          bool      `json:"is_read"`
	CreatedAt       time.Time `json:"created_at"`
}

// HistoryPage is one page of a chat's message log, oldest first.
type HistoryPage struct {
	Messages []Message `json:"messages"`
	Total    int       `json:"total"`
	Limit    int       `json:"limit"`
	Offset   int       `json:"offset"`
}
