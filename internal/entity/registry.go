package entity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/summitcards/summit/internal/cluster"
	"github.com/summitcards/summit/internal/protocol"
)

// ErrNoEntity is returned when an envelope targets an entity that does not
// exist locally and no factory can create it.
var ErrNoEntity = errors.New("no entity for id")

// Factory creates the handler for a lazily activated entity.
type Factory func(id cluster.EntityID) Handler

type kindFactory struct {
	suffix  string
	factory Factory
}

// Registry holds every entity hosted by this node. Sharded entities
// (waiting rooms, game-state authorities) are created on first message,
// keyed by the role suffix in their entity id; player proxies are registered
// explicitly because they need a display and a name to exist.
type Registry struct {
	logger *log.Logger

	mu      sync.Mutex
	ctx     context.Context
	boxes   map[cluster.EntityID]*Mailbox
	kinds   []kindFactory
	stopped bool
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *log.Logger) *Registry {
	return &Registry{
		logger: logger,
		ctx:    context.Background(),
		boxes:  make(map[cluster.EntityID]*Mailbox),
	}
}

// Start sets the context under which entity goroutines run.
func (r *Registry) Start(ctx context.Context) {
	r.mu.Lock()
	r.ctx = ctx
	r.mu.Unlock()
}

// RegisterKind installs a factory for entity ids ending in suffix.
func (r *Registry) RegisterKind(suffix string, factory Factory) {
	r.mu.Lock()
	r.kinds = append(r.kinds, kindFactory{suffix: suffix, factory: factory})
	r.mu.Unlock()
}

// Register adds an explicit entity and starts its mailbox.
func (r *Registry) Register(id cluster.EntityID, handler Handler) *Mailbox {
	r.mu.Lock()
	defer r.mu.Unlock()
	box := NewMailbox(id, handler, r.logger)
	r.boxes[id] = box
	box.Start(r.ctx)
	return box
}

// Deliver routes an envelope to the local entity it addresses, activating
// the entity first if a factory matches its id.
func (r *Registry) Deliver(env protocol.Envelope) error {
	box, err := r.mailboxFor(env.To)
	if err != nil {
		return err
	}
	return box.Send(env)
}

// Stop shuts down every hosted entity, draining their inboxes.
func (r *Registry) Stop() {
	r.mu.Lock()
	r.stopped = true
	boxes := make([]*Mailbox, 0, len(r.boxes))
	for _, box := range r.boxes {
		boxes = append(boxes, box)
	}
	r.boxes = make(map[cluster.EntityID]*Mailbox)
	r.mu.Unlock()

	for _, box := range boxes {
		box.Stop()
	}
}

func (r *Registry) mailboxFor(id cluster.EntityID) (*Mailbox, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		return nil, ErrMailboxClosed
	}
	if box, ok := r.boxes[id]; ok {
		return box, nil
	}
	for _, kf := range r.kinds {
		if strings.HasSuffix(string(id), kf.suffix) {
			r.logger.Debug("activating entity", "id", id)
			box := NewMailbox(id, kf.factory(id), r.logger)
			r.boxes[id] = box
			box.Start(r.ctx)
			return box, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrNoEntity, id)
}
