package cluster

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrNoOwner is returned when a shard has no assigned node, which happens
// only before the first member joins.
var ErrNoOwner = errors.New("shard has no owning node")

// EventType classifies a membership change.
type EventType string

const (
	// NodeJoined means a node became a cluster member.
	NodeJoined EventType = "joined"
	// NodeLeft means a node left or was removed from the cluster.
	NodeLeft EventType = "left"
)

// Event describes one membership change.
type Event struct {
	Type EventType
	Node NodeID
}

// Table maps shards to owning nodes. Ownership follows cluster membership:
// whenever a node joins or leaves, shards are rebalanced across the sorted
// member list. The core never reacts to membership itself; it only asks the
// table who owns an entity right now.
type Table struct {
	cfg       Config
	mu        sync.RWMutex
	members   []NodeID
	owners    map[int]NodeID
	listeners []func(Event)
}

// NewTable creates an empty table for the given routing config.
func NewTable(cfg Config) *Table {
	return &Table{
		cfg:    cfg,
		owners: make(map[int]NodeID),
	}
}

// Watch registers a listener invoked after every membership change has been
// applied. Listeners run on the caller's goroutine with no table locks held.
func (t *Table) Watch(fn func(Event)) {
	t.mu.Lock()
	t.listeners = append(t.listeners, fn)
	t.mu.Unlock()
}

// Apply records a membership event and rebalances shard ownership.
func (t *Table) Apply(ev Event) {
	t.mu.Lock()
	switch ev.Type {
	case NodeJoined:
		if !t.isMember(ev.Node) {
			t.members = append(t.members, ev.Node)
		}
	case NodeLeft:
		for i, m := range t.members {
			if m == ev.Node {
				t.members = append(t.members[:i], t.members[i+1:]...)
				break
			}
		}
	}
	t.rebalance()
	listeners := append([]func(Event){}, t.listeners...)
	t.mu.Unlock()

	for _, fn := range listeners {
		fn(ev)
	}
}

// Members returns the current member list, sorted.
func (t *Table) Members() []NodeID {
	t.mu.RLock()
	defer t.mu.RUnlock()
	members := append([]NodeID(nil), t.members...)
	sort.Slice(members, func(i, j int) bool { return members[i] < members[j] })
	return members
}

// NodeFor returns the node owning the given shard.
func (t *Table) NodeFor(shard int) (NodeID, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	node, ok := t.owners[shard]
	if !ok {
		return "", fmt.Errorf("shard %d: %w", shard, ErrNoOwner)
	}
	return node, nil
}

// Resolve returns the node that currently owns the entity's shard.
func (t *Table) Resolve(id EntityID) (NodeID, error) {
	return t.NodeFor(t.cfg.ShardFor(id))
}

// rebalance reassigns every shard across the sorted member list. Sorting
// makes the assignment a pure function of membership, so every node that has
// seen the same events agrees on placement. Callers hold the write lock.
func (t *Table) rebalance() {
	if len(t.members) == 0 {
		t.owners = make(map[int]NodeID)
		return
	}
	members := append([]NodeID(nil), t.members...)
	sort.Slice(members, func(i, j int) bool { return members[i] < members[j] })
	owners := make(map[int]NodeID, t.cfg.Shards)
	for shard := 0; shard < t.cfg.Shards; shard++ {
		owners[shard] = members[shard%len(members)]
	}
	t.owners = owners
}

func (t *Table) isMember(node NodeID) bool {
	for _, m := range t.members {
		if m == node {
			return true
		}
	}
	return false
}
