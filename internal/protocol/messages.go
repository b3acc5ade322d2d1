// Package protocol defines the messages exchanged between player proxies,
// waiting rooms and game-state authorities, and the envelope that carries
// them between nodes. Encoding is JSON; the field lists are the contract,
// the wire format is an implementation detail of the transport.
package protocol

import (
	"github.com/summitcards/summit/internal/cluster"
	"github.com/summitcards/summit/internal/game"
)

// Kind tags the payload type of an envelope.
type Kind string

const (
	KindAddPlayer    Kind = "add_player"
	KindUpdateRoster Kind = "update_roster"
	KindStartGame    Kind = "start_game"
	KindDealCards    Kind = "deal_cards"
	KindGameReady    Kind = "game_ready"
	KindPlayedCard   Kind = "played_card"
	KindEndTurn      Kind = "end_turn"
	KindTurnStarted  Kind = "turn_started"
	KindGameOver     Kind = "game_over"
	KindRematch      Kind = "rematch"
)

// String returns the wire label of the kind.
func (k Kind) String() string { return string(k) }

// AddPlayer asks a waiting room to add a player to the roster. Address is
// where game messages for that player must be delivered.
type AddPlayer struct {
	Name    string          `json:"name"`
	Address cluster.Address `json:"address"`
}

// UpdateRoster tells a lobby member the full current roster, in arrival
// order, so the client can render it.
type UpdateRoster struct {
	Names []string `json:"names"`
}

// StartGame is the host's signal that the waiting room should hand its
// roster off to the game-state authority.
type StartGame struct {
	Difficulty string `json:"difficulty"`
}

// RosterEntry pairs a player name with the address of their proxy.
type RosterEntry struct {
	Name    string          `json:"name"`
	Address cluster.Address `json:"address"`
}

// DealCards is the waiting room's hand-off to the game-state authority:
// the full roster in arrival order, the host and the chosen difficulty.
type DealCards struct {
	Host       string        `json:"host"`
	Difficulty string        `json:"difficulty"`
	Roster     []RosterEntry `json:"roster"`
}

// GameReady tells one player that the match has started. The snapshot is an
// independent copy of the authoritative state; NextPlayer is who acts after
// this player's turn ends, fixed for the whole match.
type GameReady struct {
	Host       string        `json:"host"`
	NextPlayer string        `json:"nextPlayer"`
	Snapshot   game.Snapshot `json:"snapshot"`
	Difficulty string        `json:"difficulty"`
}

// PlayedCard reports one move: Player put Card on pile Pile. Sent by the
// acting proxy to the authority, and broadcast by the authority to every
// other player.
type PlayedCard struct {
	Player string `json:"player"`
	Card   int    `json:"card"`
	Pile   int    `json:"pile"`
}

// EndTurn is the acting proxy telling the authority its turn is over and
// who acts next.
type EndTurn struct {
	Player string `json:"player"`
	Next   string `json:"next"`
}

// TurnStarted is the authority's broadcast that a turn changed hands. Every
// proxy except the ender replays the ender's draw locally; the proxy named
// Next may act.
type TurnStarted struct {
	Ended string `json:"ended"`
	Next  string `json:"next"`
}

// GameOver is the terminal notification, in either direction: a stuck proxy
// reports a dead end to the authority, and the authority broadcasts the end
// of the match to everyone.
type GameOver struct{}

// Rematch asks a player's own proxy to rejoin the waiting room of the match
// it just finished.
type Rematch struct{}
