package session

import (
	"encoding/json"
	"time"

	"relay/internal/models"
)

// Outbound frame payloads. Inbound frames are read with gjson and never
// unmarshaled into structs; a frame that does not carry the expected
// fields is dropped.

type messageEvent struct {
	Type            string `json:"type"`
	ID              int64  `json:"id"`
	ChatID          int64  `json:"chat_id"`
	SenderID        int64  `json:"sender_id"`
	Text            string `json:"text"`
	Timestamp       string `json:"timestamp"`
	ClientMessageID string `json:"client_message_id,omitempty"`
}

type readEvent struct {
	Type      string `json:"type"`
	MessageID int64  `json:"message_id"`
	ReaderID  int64  `json:"reader_id"`
}

type errorEvent struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

func encodeMessageEvent(msg *models.Message) []byte {
	return mustMarshal(messageEvent{
		Type:            "message",
		ID:              msg.ID,
		ChatID:          msg.ChatID,
		SenderID:        msg.SenderID,
		Text:            msg.Text,
		Timestamp:       msg.Timestamp.Format(time.RFC3339),
		ClientMessageID: msg.ClientMessageID,
	})
}

func encodeReadEvent(messageID, readerID int64) []byte {
	return mustMarshal(readEvent{Type: "read", MessageID: messageID, ReaderID: readerID})
}

func encodeErrorEvent(err error) []byte {
	return mustMarshal(errorEvent{Type: "error", Error: err.Error()})
}

func mustMarshal(v interface{}) []byte {
	data, _ := json.Marshal(v)
	return data
}
