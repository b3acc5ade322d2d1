package entity

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/summitcards/summit/internal/cluster"
	"github.com/summitcards/summit/internal/protocol"
)

type recorder struct {
	mu   sync.Mutex
	seen []protocol.Envelope
	done chan struct{}
	want int
}

func newRecorder(want int) *recorder {
	return &recorder{done: make(chan struct{}), want: want}
}

func (r *recorder) Receive(_ context.Context, env protocol.Envelope) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, env)
	if len(r.seen) == r.want {
		close(r.done)
	}
}

func (r *recorder) envelopes() []protocol.Envelope {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]protocol.Envelope(nil), r.seen...)
}

func (r *recorder) wait(t *testing.T) {
	t.Helper()
	select {
	case <-r.done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for messages")
	}
}

func testLogger() *log.Logger {
	return log.New(io.Discard)
}

func TestMailboxDeliversInSendOrder(t *testing.T) {
	const n = 50
	rec := newRecorder(n)
	box := NewMailbox("Bob-WaitingRoom", rec, testLogger())
	box.Start(context.Background())
	defer box.Stop()

	for i := 0; i < n; i++ {
		env, err := protocol.NewEnvelope("Bob-WaitingRoom", protocol.KindPlayedCard,
			protocol.PlayedCard{Player: "Bob", Card: i, Pile: 0})
		require.NoError(t, err)
		require.NoError(t, box.Send(env))
	}

	rec.wait(t)
	seen := rec.envelopes()
	require.Len(t, seen, n)
	for i, env := range seen {
		payload, err := env.Payload()
		require.NoError(t, err)
		assert.Equal(t, i, payload.(protocol.PlayedCard).Card, "messages arrive in send order")
	}
}

func TestMailboxStopDrainsInbox(t *testing.T) {
	const n = 10
	rec := newRecorder(n)
	box := NewMailbox("Bob", rec, testLogger())

	for i := 0; i < n; i++ {
		env, err := protocol.NewEnvelope("Bob", protocol.KindGameOver, protocol.GameOver{})
		require.NoError(t, err)
		require.NoError(t, box.Send(env))
	}

	box.Start(context.Background())
	box.Stop()

	assert.Len(t, rec.envelopes(), n, "queued messages are handled before shutdown")

	env, _ := protocol.NewEnvelope("Bob", protocol.KindGameOver, protocol.GameOver{})
	assert.ErrorIs(t, box.Send(env), ErrMailboxClosed)
}

func TestRegistryActivatesByKind(t *testing.T) {
	reg := NewRegistry(testLogger())
	reg.Start(context.Background())
	defer reg.Stop()

	var (
		mu      sync.Mutex
		created []cluster.EntityID
	)
	rec := newRecorder(2)
	reg.RegisterKind("-WaitingRoom", func(id cluster.EntityID) Handler {
		mu.Lock()
		created = append(created, id)
		mu.Unlock()
		return rec
	})

	env, err := protocol.NewEnvelope("Bob-WaitingRoom", protocol.KindAddPlayer, protocol.AddPlayer{Name: "Bob"})
	require.NoError(t, err)
	require.NoError(t, reg.Deliver(env))
	require.NoError(t, reg.Deliver(env))

	rec.wait(t)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []cluster.EntityID{"Bob-WaitingRoom"}, created, "entity is created once, on first message")
}

func TestRegistryUnknownEntity(t *testing.T) {
	reg := NewRegistry(testLogger())
	reg.Start(context.Background())
	defer reg.Stop()

	env, err := protocol.NewEnvelope("nobody", protocol.KindGameOver, protocol.GameOver{})
	require.NoError(t, err)
	assert.ErrorIs(t, reg.Deliver(env), ErrNoEntity)
}

func TestRegistryExplicitRegister(t *testing.T) {
	reg := NewRegistry(testLogger())
	reg.Start(context.Background())
	defer reg.Stop()

	rec := newRecorder(1)
	reg.Register("Alice", rec)

	env, err := protocol.NewEnvelope("Alice", protocol.KindUpdateRoster, protocol.UpdateRoster{Names: []string{"Alice"}})
	require.NoError(t, err)
	require.NoError(t, reg.Deliver(env))
	rec.wait(t)
}
