// Package entity implements the single-writer scheduling model every match
// entity runs under: each waiting room, game-state authority and player
// proxy owns a private mailbox served by exactly one goroutine. Senders only
// ever enqueue; no two messages execute concurrently against the same
// entity, which is what makes game-state mutation race-free without locks.
package entity

import (
	"context"
	"errors"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/summitcards/summit/internal/cluster"
	"github.com/summitcards/summit/internal/protocol"
)

// mailboxCap is the inbox buffer. Traffic per entity is a handful of small
// messages, so the buffer is effectively unbounded at this scale.
const mailboxCap = 256

// ErrMailboxClosed is returned when sending to a stopped entity.
var ErrMailboxClosed = errors.New("mailbox closed")

// Handler processes one message at a time, in arrival order. Handlers never
// block waiting for a reply; every answer is itself an asynchronous message.
type Handler interface {
	Receive(ctx context.Context, env protocol.Envelope)
}

// Sender delivers an envelope somewhere, fire-and-forget. The node's bus
// implements it for real routing; tests substitute loopbacks.
type Sender interface {
	Send(env protocol.Envelope) error
}

// Mailbox owns one entity's inbox and the goroutine that serves it.
type Mailbox struct {
	id      cluster.EntityID
	handler Handler
	inbox   chan protocol.Envelope
	logger  *log.Logger

	startOnce sync.Once
	stopOnce  sync.Once
	stopped   chan struct{}
	done      chan struct{}
}

// NewMailbox wraps a handler in a mailbox. Call Start before sending.
func NewMailbox(id cluster.EntityID, handler Handler, logger *log.Logger) *Mailbox {
	return &Mailbox{
		id:      id,
		handler: handler,
		inbox:   make(chan protocol.Envelope, mailboxCap),
		logger:  logger.WithPrefix("entity").With("id", id),
		stopped: make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// ID returns the entity id this mailbox serves.
func (m *Mailbox) ID() cluster.EntityID { return m.id }

// Start launches the serving goroutine. It exits when the context is
// cancelled or the mailbox is stopped.
func (m *Mailbox) Start(ctx context.Context) {
	m.startOnce.Do(func() {
		go m.serve(ctx)
	})
}

// Send enqueues an envelope. Messages from one sender are delivered in send
// order; the call never waits for the message to be handled.
func (m *Mailbox) Send(env protocol.Envelope) error {
	select {
	case <-m.stopped:
		return ErrMailboxClosed
	default:
	}
	select {
	case m.inbox <- env:
		return nil
	case <-m.stopped:
		return ErrMailboxClosed
	}
}

// Stop shuts the mailbox down. Messages already enqueued are handled before
// the serving goroutine exits.
func (m *Mailbox) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopped)
	})
	<-m.done
}

func (m *Mailbox) serve(ctx context.Context) {
	defer close(m.done)
	for {
		select {
		case env := <-m.inbox:
			m.handler.Receive(ctx, env)
		case <-m.stopped:
			m.drain(ctx)
			return
		case <-ctx.Done():
			return
		}
	}
}

func (m *Mailbox) drain(ctx context.Context) {
	for {
		select {
		case env := <-m.inbox:
			m.handler.Receive(ctx, env)
		default:
			return
		}
	}
}
