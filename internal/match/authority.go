package match

import (
	"context"
	rand "math/rand/v2"

	"github.com/charmbracelet/log"

	"github.com/summitcards/summit/internal/cluster"
	"github.com/summitcards/summit/internal/entity"
	"github.com/summitcards/summit/internal/game"
	"github.com/summitcards/summit/internal/protocol"
	"github.com/summitcards/summit/internal/rules"
)

// Authority owns the authoritative game state for one match. It is a
// trusting executor: move legality and turn gating are the player proxy's
// job, so the authority only verifies that the player exists and otherwise
// applies and rebroadcasts what it is told.
type Authority struct {
	id     cluster.EntityID
	cfg    cluster.Config
	bus    entity.Sender
	logger *log.Logger
	rng    *rand.Rand

	state *game.State
	order []string
	addrs map[string]cluster.Address
}

// NewAuthority creates an idle authority. A nil rng means every deal gets a
// time-seeded shuffle; tests pass a seeded one to pin the deal.
func NewAuthority(id cluster.EntityID, cfg cluster.Config, bus entity.Sender, logger *log.Logger, rng *rand.Rand) *Authority {
	return &Authority{
		id:     id,
		cfg:    cfg,
		bus:    bus,
		logger: logger.WithPrefix("authority").With("id", id),
		rng:    rng,
	}
}

// Receive dispatches one message against the match state.
func (a *Authority) Receive(_ context.Context, env protocol.Envelope) {
	payload, err := env.Payload()
	if err != nil {
		a.logger.Warn("dropping undecodable message", "kind", env.Kind, "error", err)
		return
	}
	switch msg := payload.(type) {
	case protocol.DealCards:
		a.dealCards(msg)
	case protocol.PlayedCard:
		a.playedCard(msg)
	case protocol.EndTurn:
		a.endTurn(msg)
	case protocol.GameOver:
		a.gameOver()
	default:
		a.logger.Warn("dropping unexpected message", "kind", env.Kind)
	}
}

// dealCards builds the match state from the roster, deals the initial
// hands, fixes the turn order for the whole match and tells every player
// the game is ready. This is the only place turn order is decided.
func (a *Authority) dealCards(msg protocol.DealCards) {
	difficulty, err := rules.ParseDifficulty(msg.Difficulty)
	if err != nil {
		// The difficulty label comes from the host's own client, so this is
		// a contract violation. It kills the hand-off for this match and
		// nothing else.
		a.logger.Error("hand-off aborted", "difficulty", msg.Difficulty, "error", err)
		return
	}

	a.order = nil
	a.addrs = make(map[string]cluster.Address)
	for _, entry := range msg.Roster {
		a.order = append(a.order, entry.Name)
		a.addrs[entry.Name] = entry.Address
	}

	a.state = game.New(a.order, difficulty, a.rng)
	a.state.DealInitialHands()

	next := nextPlayerOf(a.order)
	for _, name := range a.order {
		a.sendTo(name, protocol.KindGameReady, protocol.GameReady{
			Host:       msg.Host,
			NextPlayer: next[name],
			Snapshot:   a.state.Snapshot(),
			Difficulty: difficulty.String(),
		})
	}
	a.logger.Info("match dealt", "host", msg.Host, "players", len(a.order), "difficulty", difficulty)
}

// playedCard applies a move to the authoritative state and relays it to
// every player except the actor, whose local copy already reflects it.
func (a *Authority) playedCard(msg protocol.PlayedCard) {
	if a.state == nil {
		a.logger.Warn("move before deal", "player", msg.Player)
		return
	}
	if err := a.state.PlayCard(msg.Player, msg.Card, msg.Pile); err != nil {
		a.logger.Warn("move rejected", "player", msg.Player, "card", msg.Card, "error", err)
		return
	}
	for _, name := range a.order {
		if name == msg.Player {
			continue
		}
		a.sendTo(name, protocol.KindPlayedCard, msg)
	}
}

// endTurn draws the ender back up on the authoritative state, then tells
// everyone whose turn starts. Proxies replay the same draw against their
// replicas; the shared deck order keeps every copy identical.
func (a *Authority) endTurn(msg protocol.EndTurn) {
	if a.state == nil {
		a.logger.Warn("end turn before deal", "player", msg.Player)
		return
	}
	if _, err := a.state.Draw(msg.Player); err != nil {
		a.logger.Warn("end-turn draw rejected", "player", msg.Player, "error", err)
		return
	}
	for _, name := range a.order {
		a.sendTo(name, protocol.KindTurnStarted, protocol.TurnStarted{
			Ended: msg.Player,
			Next:  msg.Next,
		})
	}
}

// gameOver broadcasts the terminal notification and discards the match.
// A rematch arrives as a fresh DealCards under the same host identity.
func (a *Authority) gameOver() {
	for _, name := range a.order {
		a.sendTo(name, protocol.KindGameOver, protocol.GameOver{})
	}
	a.logger.Info("match over", "players", len(a.order))
	a.state = nil
	a.order = nil
	a.addrs = nil
}

func (a *Authority) sendTo(name string, kind protocol.Kind, payload any) {
	env, err := protocol.NewAddressedEnvelope(a.addrs[name], kind, payload)
	if err != nil {
		a.logger.Error("building broadcast", "kind", kind, "player", name, "error", err)
		return
	}
	if err := a.bus.Send(env); err != nil {
		a.logger.Warn("sending broadcast", "kind", kind, "player", name, "error", err)
	}
}

// nextPlayerOf fixes the cyclic turn order: each roster entry is followed by
// the next one, wrapping at the end.
func nextPlayerOf(order []string) map[string]string {
	next := make(map[string]string, len(order))
	for i, name := range order {
		next[name] = order[(i+1)%len(order)]
	}
	return next
}
