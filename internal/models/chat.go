package models

import "time"

const (
	ChatTypePrivate = "private"
	ChatTypeGroup   = "group"
)

type Chat struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name,omitempty"`
	Type      string    `json:"chat_type"`
	Members   []int64   `json:"members,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type Group struct {
	ID        int64   `json:"id"`
	ChatID    int64   `json:"chat_id"`
	Name      string  `json:"name"`
	CreatorID int64   `json:"creator_id"`
	Members   []int64 `json:"members,omitempty"`
}
