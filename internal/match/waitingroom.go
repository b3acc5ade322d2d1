// Package match implements the two authorities that run a match: the
// waiting room that assembles a roster under a host identity, and the
// game-state authority that owns the single source of truth once the match
// starts. Both are entities in the mailbox runtime; all their state is
// touched only from their own Receive.
package match

import (
	"context"

	"github.com/charmbracelet/log"

	"github.com/summitcards/summit/internal/cluster"
	"github.com/summitcards/summit/internal/entity"
	"github.com/summitcards/summit/internal/protocol"
)

// WaitingRoom accumulates joining players for one host identity and hands
// the roster to the game-state authority on the host's start signal. After
// the hand-off it resets to a fresh open room so the same host identity can
// run a rematch.
type WaitingRoom struct {
	id     cluster.EntityID
	cfg    cluster.Config
	bus    entity.Sender
	logger *log.Logger

	host  string
	order []string
	addrs map[string]cluster.Address
}

// NewWaitingRoom creates an open, empty waiting room.
func NewWaitingRoom(id cluster.EntityID, cfg cluster.Config, bus entity.Sender, logger *log.Logger) *WaitingRoom {
	return &WaitingRoom{
		id:     id,
		cfg:    cfg,
		bus:    bus,
		logger: logger.WithPrefix("waitingroom").With("id", id),
		addrs:  make(map[string]cluster.Address),
	}
}

// Receive dispatches one message against the room's state.
func (w *WaitingRoom) Receive(_ context.Context, env protocol.Envelope) {
	payload, err := env.Payload()
	if err != nil {
		w.logger.Warn("dropping undecodable message", "kind", env.Kind, "error", err)
		return
	}
	switch msg := payload.(type) {
	case protocol.AddPlayer:
		w.addPlayer(msg)
	case protocol.StartGame:
		w.startGame(msg)
	default:
		w.logger.Warn("dropping unexpected message", "kind", env.Kind)
	}
}

// addPlayer inserts the player in arrival order. The first arrival in a
// fresh room becomes the host. Re-adding a known name only refreshes the
// registered address. Every join rebroadcasts the full roster so lobbies
// can render it.
func (w *WaitingRoom) addPlayer(msg protocol.AddPlayer) {
	if w.host == "" && len(w.order) == 0 {
		w.host = msg.Name
		w.logger.Info("host joined", "host", msg.Name)
	}
	if _, known := w.addrs[msg.Name]; !known {
		w.order = append(w.order, msg.Name)
	}
	w.addrs[msg.Name] = msg.Address

	roster := append([]string(nil), w.order...)
	for _, name := range w.order {
		env, err := protocol.NewAddressedEnvelope(w.addrs[name], protocol.KindUpdateRoster,
			protocol.UpdateRoster{Names: roster})
		if err != nil {
			w.logger.Error("building roster update", "player", name, "error", err)
			continue
		}
		if err := w.bus.Send(env); err != nil {
			w.logger.Warn("sending roster update", "player", name, "error", err)
		}
	}
}

// startGame hands the roster and difficulty to the game-state authority for
// this host, then resets to a fresh open room. Starting an empty room should
// be unreachable (the host joins before it can start) and is a no-op.
func (w *WaitingRoom) startGame(msg protocol.StartGame) {
	if len(w.order) == 0 {
		w.logger.Warn("ignoring start for empty room")
		return
	}

	deal := protocol.DealCards{
		Host:       w.host,
		Difficulty: msg.Difficulty,
	}
	for _, name := range w.order {
		deal.Roster = append(deal.Roster, protocol.RosterEntry{Name: name, Address: w.addrs[name]})
	}

	env, err := protocol.NewEnvelope(w.cfg.GameStateID(w.host), protocol.KindDealCards, deal)
	if err != nil {
		w.logger.Error("building deal hand-off", "error", err)
		return
	}
	if err := w.bus.Send(env); err != nil {
		w.logger.Error("sending deal hand-off", "error", err)
		return
	}

	w.logger.Info("roster handed off", "host", w.host, "players", len(w.order))
	w.host = ""
	w.order = nil
	w.addrs = make(map[string]cluster.Address)
}
