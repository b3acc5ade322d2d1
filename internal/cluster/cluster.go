// Package cluster provides the addressing scheme that locates match entities
// across cooperating processes. An entity id is derived from a host or
// player name; a stable hash of that id picks a shard, and a shard-to-node
// table picks the owning process. The hash and suffixing are pure functions
// of their input so every node resolves identically.
package cluster

import "hash/fnv"

// EntityID names an addressable, single-writer unit of state: a waiting
// room, a game-state authority or a player proxy.
type EntityID string

// NodeID identifies a process in the cluster.
type NodeID string

// Address is a fully resolved destination: which node hosts the entity and
// which entity on that node. Player proxies are pinned to the node they were
// created on, so roster entries carry the full address rather than relying
// on shard placement.
type Address struct {
	Node   NodeID   `json:"node"`
	Entity EntityID `json:"entity"`
}

const (
	// DefaultShards is the shard count used when none is configured.
	DefaultShards = 10

	defaultWaitingRoomSuffix = "-WaitingRoom"
	defaultGameStateSuffix   = "-GameState"
)

// Config carries the routing constants. It is explicit rather than
// compile-time so tests can run with tiny shard counts.
type Config struct {
	Shards            int
	WaitingRoomSuffix string
	GameStateSuffix   string
}

// DefaultConfig returns the production routing constants.
func DefaultConfig() Config {
	return Config{
		Shards:            DefaultShards,
		WaitingRoomSuffix: defaultWaitingRoomSuffix,
		GameStateSuffix:   defaultGameStateSuffix,
	}
}

// WaitingRoomID returns the entity id of the waiting room for a match hosted
// by the named player. The role suffix keeps it distinct from the game-state
// entity of the same match so the two can be placed independently.
func (c Config) WaitingRoomID(host string) EntityID {
	return EntityID(host + c.WaitingRoomSuffix)
}

// GameStateID returns the entity id of the game-state authority for a match
// hosted by the named player.
func (c Config) GameStateID(host string) EntityID {
	return EntityID(host + c.GameStateSuffix)
}

// PlayerID returns the entity id of a player's proxy.
func (c Config) PlayerID(name string) EntityID {
	return EntityID(name)
}

// ShardFor maps an entity id onto a shard. Identical input always yields
// the same shard; which node owns that shard is the Table's business.
func (c Config) ShardFor(id EntityID) int {
	h := fnv.New32a()
	h.Write([]byte(id))
	return int(h.Sum32() % uint32(c.Shards))
}
