package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"relay/app/tests"
	"relay/internal/models"
	"relay/internal/registry"
	"relay/internal/services"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/tidwall/gjson"
)

type peerConn struct {
	id uuid.UUID

	mu       sync.Mutex
	payloads [][]byte
}

func newPeerConn() *peerConn {
	return &peerConn{id: uuid.New()}
}

func (p *peerConn) ID() uuid.UUID {
	return p.id
}

func (p *peerConn) Send(payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.payloads = append(p.payloads, payload)
	return nil
}

func (p *peerConn) last() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.payloads) == 0 {
		return nil
	}
	return p.payloads[len(p.payloads)-1]
}

func (p *peerConn) received() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.payloads)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestSession(chatID, userID int64, reg *registry.Registry, delivery *tests.MockDeliveryService) *Session {
	s := &Session{
		id:       uuid.New(),
		chatID:   chatID,
		userID:   userID,
		registry: reg,
		delivery: delivery,
		logger:   testLogger(),
		send:     make(chan []byte, sendBufferSize),
	}
	reg.Connect(chatID, userID, s)
	return s
}

func drainOne(t *testing.T, ch chan []byte) []byte {
	t.Helper()
	select {
	case payload := <-ch:
		return payload
	default:
		return nil
	}
}

func TestSession_MessageFrameBroadcastsToChat(t *testing.T) {
	reg := registry.New(testLogger())
	delivery := &tests.MockDeliveryService{}

	sender := newTestSession(10, 1, reg, delivery)
	peer := newPeerConn()
	reg.Connect(10, 2, peer)

	persisted := &models.Message{
		ID: 5, ChatID: 10, SenderID: 1, Text: "hi",
		Timestamp:       time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		ClientMessageID: "abc",
	}
	delivery.On("Send", mock.Anything, int64(10), int64(1), "hi", "abc").Return(persisted, nil)

	sender.handleFrame(context.Background(), []byte(`{"type":"message","text":"hi","client_message_id":"abc"}`))

	payload := peer.last()
	assert.NotNil(t, payload)
	assert.Equal(t, "message", gjson.GetBytes(payload, "type").String())
	assert.Equal(t, int64(5), gjson.GetBytes(payload, "id").Int())
	assert.Equal(t, int64(10), gjson.GetBytes(payload, "chat_id").Int())
	assert.Equal(t, int64(1), gjson.GetBytes(payload, "sender_id").Int())
	assert.Equal(t, "hi", gjson.GetBytes(payload, "text").String())
	assert.Equal(t, "2024-03-01T12:00:00Z", gjson.GetBytes(payload, "timestamp").String())

	// the sender's own session is subscribed to the chat too
	own := drainOne(t, sender.send)
	assert.NotNil(t, own)

	delivery.AssertExpectations(t)
}

func TestSession_ForbiddenSendAnswersOnlyTheOffender(t *testing.T) {
	reg := registry.New(testLogger())
	delivery := &tests.MockDeliveryService{}

	sender := newTestSession(10, 9, reg, delivery)
	peer := newPeerConn()
	reg.Connect(10, 2, peer)

	delivery.On("Send", mock.Anything, int64(10), int64(9), "hi", "").
		Return((*models.Message)(nil), services.ErrForbidden)

	sender.handleFrame(context.Background(), []byte(`{"type":"message","text":"hi"}`))

	assert.Equal(t, 0, peer.received())

	errFrame := drainOne(t, sender.send)
	assert.NotNil(t, errFrame)
	assert.Equal(t, "error", gjson.GetBytes(errFrame, "type").String())
}

func TestSession_MalformedFramesAreDropped(t *testing.T) {
	reg := registry.New(testLogger())
	delivery := &tests.MockDeliveryService{}
	sender := newTestSession(10, 1, reg, delivery)

	frames := [][]byte{
		[]byte(`not json at all`),
		[]byte(`{"type":"bogus"}`),
		[]byte(`{"no_type":true}`),
		[]byte(`{"type":"message"}`),
		[]byte(`{"type":"read"}`),
		[]byte(`{"type":"read","message_id":-1}`),
	}
	for _, frame := range frames {
		sender.handleFrame(context.Background(), frame)
	}

	assert.Nil(t, drainOne(t, sender.send))
	delivery.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	delivery.AssertNotCalled(t, "MarkRead", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSession_ReadFrameNotifiesEverySenderSession(t *testing.T) {
	reg := registry.New(testLogger())
	delivery := &tests.MockDeliveryService{}

	reader := newTestSession(10, 2, reg, delivery)
	senderChatA := newPeerConn()
	senderChatB := newPeerConn()
	reg.Connect(10, 1, senderChatA)
	reg.Connect(20, 1, senderChatB)

	delivery.On("MarkRead", mock.Anything, int64(10), int64(2), int64(77)).Return(int64(1), nil)

	reader.handleFrame(context.Background(), []byte(`{"type":"read","message_id":77}`))

	for _, conn := range []*peerConn{senderChatA, senderChatB} {
		payload := conn.last()
		assert.NotNil(t, payload)
		assert.Equal(t, "read", gjson.GetBytes(payload, "type").String())
		assert.Equal(t, int64(77), gjson.GetBytes(payload, "message_id").Int())
		assert.Equal(t, int64(2), gjson.GetBytes(payload, "reader_id").Int())
	}

	// the reader is not the sender and gets no receipt
	assert.Nil(t, drainOne(t, reader.send))
	delivery.AssertExpectations(t)
}

func TestSession_ReadNotFoundAnswersOffender(t *testing.T) {
	reg := registry.New(testLogger())
	delivery := &tests.MockDeliveryService{}
	reader := newTestSession(10, 2, reg, delivery)

	delivery.On("MarkRead", mock.Anything, int64(10), int64(2), int64(404)).
		Return(int64(0), services.ErrMessageNotFound)

	reader.handleFrame(context.Background(), []byte(`{"type":"read","message_id":404}`))

	errFrame := drainOne(t, reader.send)
	assert.NotNil(t, errFrame)
	assert.Equal(t, "error", gjson.GetBytes(errFrame, "type").String())
}

func TestSession_InternalErrorsAreNotExposed(t *testing.T) {
	reg := registry.New(testLogger())
	delivery := &tests.MockDeliveryService{}
	sender := newTestSession(10, 1, reg, delivery)

	delivery.On("Send", mock.Anything, int64(10), int64(1), "hi", "").
		Return((*models.Message)(nil), errors.New("store down"))

	sender.handleFrame(context.Background(), []byte(`{"type":"message","text":"hi"}`))

	assert.Nil(t, drainOne(t, sender.send))
}

func TestSession_SendFailsWhenBufferFull(t *testing.T) {
	reg := registry.New(testLogger())
	s := newTestSession(10, 1, reg, &tests.MockDeliveryService{})

	for i := 0; i < sendBufferSize; i++ {
		assert.NoError(t, s.Send([]byte("x")))
	}
	assert.Error(t, s.Send([]byte("overflow")))
}
