package ws

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"signaling-service/internal/mocks"
)

// fakeConn records written frames and never delivers reads.
type fakeConn struct {
	mu       sync.Mutex
	written  [][]byte
	closed   bool
	writeErr error
}

func (f *fakeConn) ReadMessage() (int, []byte, error) {
	return 0, nil, errors.New("closed")
}

func (f *fakeConn) WriteMessage(_ int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.written = append(f.written, data)
	return nil
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeConn) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *fakeConn) frames(t *testing.T) []IceCandidateEvent {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	events := make([]IceCandidateEvent, 0, len(f.written))
	for _, raw := range f.written {
		var ev IceCandidateEvent
		require.NoError(t, json.Unmarshal(raw, &ev))
		events = append(events, ev)
	}
	return events
}

func newTestRelay(chats ParticipantSource) (*Relay, *Registry) {
	registry := NewRegistry()
	return NewRelay(registry, chats, zap.NewNop()), registry
}

func TestRelayForwardsCandidateToPeer(t *testing.T) {
	relay, registry := newTestRelay(new(mocks.ChatRepositoryMock))

	target := &fakeConn{}
	registry.Register(NewClient(2, target))

	raw := []byte(`{"type":"ice_candidate","candidate":{"sdpMid":"0"},"peerId":2}`)
	relay.HandleInbound(context.Background(), 1, raw)

	events := target.frames(t)
	require.Len(t, events, 1)
	assert.Equal(t, TypeIceCandidate, events[0].Type)
	assert.Equal(t, int64(1), events[0].SenderID)
	assert.JSONEq(t, `{"sdpMid":"0"}`, string(events[0].Candidate))
}

func TestRelayDropsCandidateForOfflinePeer(t *testing.T) {
	relay, _ := newTestRelay(new(mocks.ChatRepositoryMock))

	raw := []byte(`{"type":"ice_candidate","candidate":{},"peerId":99}`)
	// Must not panic or surface anything to the sender.
	relay.HandleInbound(context.Background(), 1, raw)
}

func TestRelayBroadcastsCandidateToChat(t *testing.T) {
	chats := new(mocks.ChatRepositoryMock)
	chats.On("ParticipantIDs", mock.Anything, int64(7)).Return([]int64{1, 2, 3}, nil).Once()

	relay, registry := newTestRelay(chats)
	sender, second, third := &fakeConn{}, &fakeConn{}, &fakeConn{}
	registry.Register(NewClient(1, sender))
	registry.Register(NewClient(2, second))
	registry.Register(NewClient(3, third))

	raw := []byte(`{"type":"ice_candidate","candidate":{"sdpMid":"1"},"chatId":7}`)
	relay.HandleInbound(context.Background(), 1, raw)

	assert.Empty(t, sender.frames(t))
	require.Len(t, second.frames(t), 1)
	require.Len(t, third.frames(t), 1)
	assert.Equal(t, int64(1), second.frames(t)[0].SenderID)
	chats.AssertExpectations(t)
}

func TestRelayDropsCandidateFromNonParticipant(t *testing.T) {
	chats := new(mocks.ChatRepositoryMock)
	chats.On("ParticipantIDs", mock.Anything, int64(7)).Return([]int64{2, 3}, nil).Once()

	relay, registry := newTestRelay(chats)
	second := &fakeConn{}
	registry.Register(NewClient(2, second))

	raw := []byte(`{"type":"ice_candidate","candidate":{},"chatId":7}`)
	relay.HandleInbound(context.Background(), 1, raw)

	assert.Empty(t, second.frames(t))
	chats.AssertExpectations(t)
}

func TestRelayIgnoresMalformedEnvelopes(t *testing.T) {
	relay, _ := newTestRelay(new(mocks.ChatRepositoryMock))

	for _, raw := range [][]byte{
		[]byte(`not json`),
		[]byte(`{"type":"teleport"}`),
		[]byte(`{"candidate":{}}`),
		[]byte(`{"type":"ice_candidate"}`),
	} {
		relay.HandleInbound(context.Background(), 1, raw)
	}
}

func TestRelayClosesDeadConnectionOnWriteError(t *testing.T) {
	relay, registry := newTestRelay(new(mocks.ChatRepositoryMock))

	dead := &fakeConn{writeErr: errors.New("broken pipe")}
	client := NewClient(2, dead)
	registry.Register(client)

	raw := []byte(`{"type":"ice_candidate","candidate":{},"peerId":2}`)
	relay.HandleInbound(context.Background(), 1, raw)

	assert.True(t, dead.isClosed())
	// The entry stays until the connection's read loop runs the shared
	// teardown; eviction and the presence flip travel together.
	_, ok := registry.Lookup(2)
	assert.True(t, ok)
}

// blockingConn parks reads until Close, like a live connection with a
// silent peer.
type blockingConn struct {
	fakeConn
	unblock chan struct{}
	once    sync.Once
}

func newBlockingConn(writeErr error) *blockingConn {
	return &blockingConn{
		fakeConn: fakeConn{writeErr: writeErr},
		unblock:  make(chan struct{}),
	}
}

func (b *blockingConn) ReadMessage() (int, []byte, error) {
	<-b.unblock
	return 0, nil, errors.New("use of closed connection")
}

func (b *blockingConn) Close() error {
	b.once.Do(func() { close(b.unblock) })
	return b.fakeConn.Close()
}

type presenceRecorder struct {
	mu      sync.Mutex
	online  []int64
	offline []int64
}

func (p *presenceRecorder) SetOnline(userID int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.online = append(p.online, userID)
}

func (p *presenceRecorder) SetOffline(userID int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.offline = append(p.offline, userID)
}

func (p *presenceRecorder) offlines() []int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]int64(nil), p.offline...)
}

func TestWriteFailureTeardownFlipsPresence(t *testing.T) {
	registry := NewRegistry()
	relay := NewRelay(registry, new(mocks.ChatRepositoryMock), zap.NewNop())
	presence := &presenceRecorder{}
	handler := NewHandler(registry, relay, presence, "secret", zap.NewNop())

	conn := newBlockingConn(errors.New("broken pipe"))
	client := NewClient(2, conn)
	registry.Register(client)

	go relay.HandleInbound(context.Background(), 1,
		[]byte(`{"type":"ice_candidate","candidate":{},"peerId":2}`))

	// Returns once the relay closes the dead connection.
	handler.readLoop(client)

	assert.True(t, conn.isClosed())
	_, ok := registry.Lookup(2)
	assert.False(t, ok)
	assert.Equal(t, []int64{2}, presence.offlines())
}

func TestRelayBroadcastToChatExcludesUser(t *testing.T) {
	chats := new(mocks.ChatRepositoryMock)
	chats.On("ParticipantIDs", mock.Anything, int64(4)).Return([]int64{1, 2}, nil).Once()

	relay, registry := newTestRelay(chats)
	first, second := &fakeConn{}, &fakeConn{}
	registry.Register(NewClient(1, first))
	registry.Register(NewClient(2, second))

	relay.BroadcastToChat(context.Background(), 4, TypeCallRequest,
		CallEvent{Type: TypeCallRequest, ChatID: 4, CallID: 9, CallerID: 1}, 1)

	assert.Empty(t, first.written)
	require.Len(t, second.written, 1)

	var ev CallEvent
	require.NoError(t, json.Unmarshal(second.written[0], &ev))
	assert.Equal(t, TypeCallRequest, ev.Type)
	assert.Equal(t, int64(9), ev.CallID)
	chats.AssertExpectations(t)
}
