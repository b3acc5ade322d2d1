package cluster

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntityIDs(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, EntityID("Bob-WaitingRoom"), cfg.WaitingRoomID("Bob"))
	assert.Equal(t, EntityID("Bob-GameState"), cfg.GameStateID("Bob"))
	assert.Equal(t, EntityID("Bob"), cfg.PlayerID("Bob"))

	// The two roles of one match must be placeable independently.
	assert.NotEqual(t, cfg.WaitingRoomID("Bob"), cfg.GameStateID("Bob"))
}

func TestShardForIsDeterministic(t *testing.T) {
	cfg := DefaultConfig()

	for _, id := range []EntityID{"Bob-WaitingRoom", "Bob-GameState", "Alice"} {
		first := cfg.ShardFor(id)
		for i := 0; i < 100; i++ {
			assert.Equal(t, first, cfg.ShardFor(id))
		}
		assert.GreaterOrEqual(t, first, 0)
		assert.Less(t, first, cfg.Shards)
	}
}

func TestShardForSmallShardCounts(t *testing.T) {
	for _, shards := range []int{1, 2, 4} {
		cfg := Config{Shards: shards}
		for _, id := range []EntityID{"a", "b", "c", "host-WaitingRoom"} {
			got := cfg.ShardFor(id)
			assert.GreaterOrEqual(t, got, 0)
			assert.Less(t, got, shards)
		}
	}
}

func TestTableRebalance(t *testing.T) {
	cfg := Config{Shards: 4}
	table := NewTable(cfg)

	_, err := table.Resolve("Bob-WaitingRoom")
	assert.ErrorIs(t, err, ErrNoOwner)

	table.Apply(Event{Type: NodeJoined, Node: "node-a"})
	node, err := table.Resolve("Bob-WaitingRoom")
	require.NoError(t, err)
	assert.Equal(t, NodeID("node-a"), node)

	table.Apply(Event{Type: NodeJoined, Node: "node-b"})
	seen := map[NodeID]bool{}
	for shard := 0; shard < cfg.Shards; shard++ {
		owner, err := table.NodeFor(shard)
		require.NoError(t, err)
		seen[owner] = true
	}
	assert.Len(t, seen, 2, "both members own shards after rebalance")

	table.Apply(Event{Type: NodeLeft, Node: "node-a"})
	for shard := 0; shard < cfg.Shards; shard++ {
		owner, err := table.NodeFor(shard)
		require.NoError(t, err)
		assert.Equal(t, NodeID("node-b"), owner)
	}
}

func TestTableAssignmentAgreesAcrossNodes(t *testing.T) {
	cfg := Config{Shards: 8}
	a := NewTable(cfg)
	b := NewTable(cfg)

	// Same events in different arrival order; sorting makes placement agree.
	a.Apply(Event{Type: NodeJoined, Node: "node-a"})
	a.Apply(Event{Type: NodeJoined, Node: "node-b"})
	b.Apply(Event{Type: NodeJoined, Node: "node-b"})
	b.Apply(Event{Type: NodeJoined, Node: "node-a"})

	for shard := 0; shard < cfg.Shards; shard++ {
		ownerA, err := a.NodeFor(shard)
		require.NoError(t, err)
		ownerB, err := b.NodeFor(shard)
		require.NoError(t, err)
		assert.Equal(t, ownerA, ownerB)
	}
}

func TestTableWatch(t *testing.T) {
	table := NewTable(Config{Shards: 2})

	var events []Event
	table.Watch(func(ev Event) { events = append(events, ev) })

	table.Apply(Event{Type: NodeJoined, Node: "node-a"})
	table.Apply(Event{Type: NodeLeft, Node: "node-a"})

	require.Len(t, events, 2)
	assert.Equal(t, NodeJoined, events[0].Type)
	assert.Equal(t, NodeLeft, events[1].Type)
}
