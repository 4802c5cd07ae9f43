package registry

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

type fakeConn struct {
	id   uuid.UUID
	fail bool

	mu       sync.Mutex
	payloads [][]byte
}

func newFakeConn() *fakeConn {
	return &fakeConn{id: uuid.New()}
}

func (f *fakeConn) ID() uuid.UUID {
	return f.id
}

func (f *fakeConn) Send(payload []byte) error {
	if f.fail {
		return errors.New("peer gone")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payloads = append(f.payloads, payload)
	return nil
}

func (f *fakeConn) received() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.payloads)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRegistry_ConnectIsIdempotent(t *testing.T) {
	r := New(testLogger())
	conn := newFakeConn()

	r.Connect(10, 1, conn)
	r.Connect(10, 1, conn)

	delivered := r.Broadcast(10, []byte("hi"))

	assert.Equal(t, 1, delivered)
	assert.Equal(t, 1, conn.received())
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_DisconnectLeavesNoStaleTarget(t *testing.T) {
	r := New(testLogger())
	conn := newFakeConn()

	r.Connect(10, 1, conn)
	r.Disconnect(conn)

	delivered := r.Broadcast(10, []byte("hi"))

	assert.Equal(t, 0, delivered)
	assert.Equal(t, 0, conn.received())
	assert.Equal(t, 0, r.Len())
}

func TestRegistry_DisconnectAbsentIsNoop(t *testing.T) {
	r := New(testLogger())

	assert.NotPanics(t, func() {
		r.Disconnect(newFakeConn())
	})
}

func TestRegistry_BroadcastIsolatesFailures(t *testing.T) {
	r := New(testLogger())
	healthy1 := newFakeConn()
	healthy2 := newFakeConn()
	broken := &fakeConn{id: uuid.New(), fail: true}

	r.Connect(10, 1, healthy1)
	r.Connect(10, 2, broken)
	r.Connect(10, 3, healthy2)

	delivered := r.Broadcast(10, []byte("hi"))

	assert.Equal(t, 2, delivered)
	assert.Equal(t, 1, healthy1.received())
	assert.Equal(t, 1, healthy2.received())

	// failing connection was disconnected as a side effect
	assert.Equal(t, 2, r.Len())
	assert.Equal(t, 2, r.Broadcast(10, []byte("again")))
}

func TestRegistry_SendToUserReachesEverySession(t *testing.T) {
	r := New(testLogger())
	senderChatA := newFakeConn()
	senderChatB := newFakeConn()
	other := newFakeConn()

	r.Connect(10, 1, senderChatA)
	r.Connect(20, 1, senderChatB)
	r.Connect(10, 2, other)

	delivered := r.SendToUser(1, []byte("read"))

	assert.Equal(t, 2, delivered)
	assert.Equal(t, 1, senderChatA.received())
	assert.Equal(t, 1, senderChatB.received())
	assert.Equal(t, 0, other.received())
}

func TestRegistry_BroadcastIsChatScoped(t *testing.T) {
	r := New(testLogger())
	inChat := newFakeConn()
	elsewhere := newFakeConn()

	r.Connect(10, 1, inChat)
	r.Connect(20, 2, elsewhere)

	r.Broadcast(10, []byte("hi"))

	assert.Equal(t, 1, inChat.received())
	assert.Equal(t, 0, elsewhere.received())
}

func TestRegistry_ConcurrentConnectDisconnect(t *testing.T) {
	r := New(testLogger())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(userID int64) {
			defer wg.Done()
			conn := newFakeConn()
			r.Connect(10, userID, conn)
			r.Broadcast(10, []byte("hi"))
			r.Disconnect(conn)
		}(int64(i))
	}
	wg.Wait()

	assert.Equal(t, 0, r.Len())
	assert.Equal(t, 0, r.Broadcast(10, []byte("after")))
}

func TestRegistry_DeliveryHookCountsFanOut(t *testing.T) {
	r := New(testLogger())
	total := 0
	r.SetDeliveryHook(func(delivered int) { total += delivered })

	r.Connect(10, 1, newFakeConn())
	r.Connect(10, 2, newFakeConn())
	r.Broadcast(10, []byte("hi"))

	assert.Equal(t, 2, total)
}
