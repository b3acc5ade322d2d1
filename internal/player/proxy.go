// Package player implements the per-player proxy entity. The proxy is the
// only place "is it my turn" logic lives: it gates and validates the local
// user's intents before anything reaches the game-state authority, keeps an
// independent replica of the match state in sync by replaying broadcasts,
// and drives the presentation layer through the Display callbacks.
package player

import (
	"context"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/summitcards/summit/internal/cluster"
	"github.com/summitcards/summit/internal/entity"
	"github.com/summitcards/summit/internal/game"
	"github.com/summitcards/summit/internal/protocol"
	"github.com/summitcards/summit/internal/rules"
)

// Proxy bridges one player's presentation layer and the match authorities.
// Intents (Join, SubmitMove, ...) may be called from any goroutine; they
// only build and send envelopes. Every state change happens in Receive on
// the proxy's own entity goroutine.
type Proxy struct {
	name    string
	address cluster.Address
	cfg     cluster.Config
	bus     entity.Sender
	display Display
	logger  *log.Logger

	// host is written once in Join, before any message can reference this
	// proxy, and is stable across rematches.
	host    string
	session string

	difficulty rules.Difficulty
	state      *game.State
	next       string
	myTurn     bool
	played     int
	over       bool
}

// New creates a proxy for the named player. The address is where the
// cluster delivers this proxy's messages.
func New(name string, address cluster.Address, cfg cluster.Config, bus entity.Sender, display Display, logger *log.Logger) *Proxy {
	return &Proxy{
		name:    name,
		address: address,
		cfg:     cfg,
		bus:     bus,
		display: display,
		logger:  logger.WithPrefix("player").With("name", name),
	}
}

// Address returns where this proxy receives messages.
func (p *Proxy) Address() cluster.Address { return p.address }

// Join enters the waiting room of the match hosted by the named player.
// Hosting a match is joining a room named after yourself.
func (p *Proxy) Join(host string) error {
	p.host = host
	p.session = uuid.NewString()
	p.logger.Info("joining", "host", host, "session", p.session)
	return p.send(p.cfg.WaitingRoomID(host), protocol.KindAddPlayer, protocol.AddPlayer{
		Name:    p.name,
		Address: p.address,
	})
}

// SubmitStart asks the waiting room to start the match. Only meaningful for
// the host; the difficulty chosen here is the one the match uses.
func (p *Proxy) SubmitStart(difficulty string) error {
	return p.send(p.cfg.WaitingRoomID(p.host), protocol.KindStartGame, protocol.StartGame{
		Difficulty: difficulty,
	})
}

// SubmitMove proposes playing a card on a pile. Validation happens on the
// entity goroutine when the self-addressed intent arrives.
func (p *Proxy) SubmitMove(card, pile int) error {
	return p.sendSelf(protocol.KindPlayedCard, protocol.PlayedCard{Player: p.name, Card: card, Pile: pile})
}

// SubmitEndTurn proposes ending the current turn.
func (p *Proxy) SubmitEndTurn() error {
	return p.sendSelf(protocol.KindEndTurn, protocol.EndTurn{Player: p.name})
}

// SubmitRematch asks for a fresh lobby under the same host identity.
func (p *Proxy) SubmitRematch() error {
	return p.sendSelf(protocol.KindRematch, protocol.Rematch{})
}

// Receive dispatches one message against the proxy's state.
func (p *Proxy) Receive(_ context.Context, env protocol.Envelope) {
	payload, err := env.Payload()
	if err != nil {
		p.logger.Warn("dropping undecodable message", "kind", env.Kind, "error", err)
		return
	}
	switch msg := payload.(type) {
	case protocol.UpdateRoster:
		p.display.RenderRoster(msg.Names)
	case protocol.GameReady:
		p.gameReady(msg)
	case protocol.PlayedCard:
		if msg.Player == p.name {
			p.ownMove(msg)
		} else {
			p.remoteMove(msg)
		}
	case protocol.EndTurn:
		p.ownEndTurn()
	case protocol.TurnStarted:
		p.turnStarted(msg)
	case protocol.GameOver:
		p.gameOver()
	case protocol.Rematch:
		p.rematch()
	default:
		p.logger.Warn("dropping unexpected message", "kind", env.Kind)
	}
}

// gameReady installs the replica and fixes this player's place in the turn
// cycle. The host acts first.
func (p *Proxy) gameReady(msg protocol.GameReady) {
	difficulty, err := rules.ParseDifficulty(msg.Difficulty)
	if err != nil {
		p.logger.Error("game ready rejected", "difficulty", msg.Difficulty, "error", err)
		p.display.RenderError("unexpected condition: bad difficulty in game start")
		return
	}
	state, err := game.FromSnapshot(msg.Snapshot)
	if err != nil {
		p.logger.Error("game ready rejected", "error", err)
		p.display.RenderError("unexpected condition: bad state in game start")
		return
	}

	p.difficulty = difficulty
	p.state = state
	p.next = msg.NextPlayer
	p.myTurn = p.name == msg.Host
	p.played = 0
	p.over = false
	p.logger.Info("game ready", "host", msg.Host, "next", msg.NextPlayer, "difficulty", difficulty)
	p.display.RenderGameStart(p.view())
}

// ownMove validates and applies the local user's move, then reports it to
// the authority. The authority's broadcast deliberately excludes the actor,
// so the local replica is updated here and only here.
func (p *Proxy) ownMove(msg protocol.PlayedCard) {
	if p.state == nil || p.over {
		p.display.RenderError("no match in progress")
		return
	}
	if !p.myTurn {
		p.display.RenderError("not your turn")
		return
	}
	if msg.Pile < 0 || msg.Pile >= rules.PileCount {
		p.display.RenderError("no such pile")
		return
	}
	me, _ := p.state.Player(p.name)
	if me == nil || !me.HasCard(msg.Card) {
		p.display.RenderError("card not in hand")
		return
	}
	if !rules.IsPileValid(msg.Pile, p.state.PileTops()[msg.Pile], msg.Card) {
		p.display.RenderError("card does not fit that pile")
		return
	}

	if err := p.state.PlayCard(p.name, msg.Card, msg.Pile); err != nil {
		p.logger.Error("applying own move", "error", err)
		p.display.RenderError("unexpected condition")
		return
	}
	p.played++
	if err := p.send(p.cfg.GameStateID(p.host), protocol.KindPlayedCard, msg); err != nil {
		p.logger.Warn("reporting move", "error", err)
	}
	p.display.RenderMove(p.name, msg.Card, msg.Pile, p.view())
	p.checkWin()
}

// remoteMove replays another player's broadcast move on the replica.
func (p *Proxy) remoteMove(msg protocol.PlayedCard) {
	if p.state == nil {
		p.logger.Warn("move before game ready", "player", msg.Player)
		return
	}
	if err := p.state.PlayCard(msg.Player, msg.Card, msg.Pile); err != nil {
		p.logger.Error("replaying move", "player", msg.Player, "error", err)
		p.display.RenderError("unexpected condition")
		return
	}
	p.display.RenderMove(msg.Player, msg.Card, msg.Pile, p.view())
	p.checkWin()
}

// ownEndTurn closes the local user's turn: quota permitting, draw back up
// and tell the authority who acts next.
func (p *Proxy) ownEndTurn() {
	if p.state == nil || p.over {
		p.display.RenderError("no match in progress")
		return
	}
	if !p.myTurn {
		p.display.RenderError("not your turn")
		return
	}
	if !p.canEndTurn() {
		p.display.RenderError("play more cards before ending the turn")
		return
	}

	p.myTurn = false
	p.played = 0
	if _, err := p.state.Draw(p.name); err != nil {
		p.logger.Error("drawing after turn", "error", err)
	}
	if err := p.send(p.cfg.GameStateID(p.host), protocol.KindEndTurn, protocol.EndTurn{
		Player: p.name,
		Next:   p.next,
	}); err != nil {
		p.logger.Warn("reporting end of turn", "error", err)
	}
}

// turnStarted keeps the replica in step with the turn change. Everyone but
// the ender replays the ender's draw; if the turn passes to this player and
// no legal move exists, the proxy itself reports the dead end — the
// authority never scans for stuck players.
func (p *Proxy) turnStarted(msg protocol.TurnStarted) {
	if p.state == nil {
		p.logger.Warn("turn start before game ready")
		return
	}
	if msg.Ended != p.name {
		if _, err := p.state.Draw(msg.Ended); err != nil {
			p.logger.Error("replaying draw", "player", msg.Ended, "error", err)
		}
	}
	if msg.Next == p.name && !p.over {
		p.myTurn = true
		p.played = 0
		me, _ := p.state.Player(p.name)
		if me != nil && len(me.Hand) > 0 {
			ok, err := p.state.ValidMoveExists(p.name)
			if err == nil && !ok {
				p.logger.Info("no valid move, reporting dead end")
				if err := p.send(p.cfg.GameStateID(p.host), protocol.KindGameOver, protocol.GameOver{}); err != nil {
					p.logger.Warn("reporting dead end", "error", err)
				}
			}
		}
	}
	p.display.RenderTurn(msg.Ended, msg.Next, p.view())
}

// gameOver renders the terminal notice from the authority.
func (p *Proxy) gameOver() {
	won := p.state != nil && p.state.IsWin()
	p.over = true
	p.myTurn = false
	p.display.RenderGameOver(won)
}

// rematch opens a fresh lobby session and rejoins the same host's room.
func (p *Proxy) rematch() {
	p.state = nil
	p.next = ""
	p.myTurn = false
	p.played = 0
	p.over = false
	if err := p.Join(p.host); err != nil {
		p.logger.Error("rejoining for rematch", "error", err)
		p.display.RenderError("unexpected condition: rematch failed")
	}
}

// checkWin flags a completed win on the local replica. Every proxy detects
// it independently; no terminal message is needed for the happy path.
func (p *Proxy) checkWin() {
	if p.state.IsWin() {
		p.over = true
		p.myTurn = false
		p.display.RenderGameOver(true)
	}
}

// canEndTurn applies the per-turn quota, waived once the deck is empty.
func (p *Proxy) canEndTurn() bool {
	return p.played >= rules.CardsPerTurn(p.difficulty) || p.state.DeckCount() == 0
}

func (p *Proxy) view() View {
	v := View{
		Piles:      p.state.PileTops(),
		DeckCount:  p.state.DeckCount(),
		HandCounts: p.state.HandCounts(),
		MyTurn:     p.myTurn,
		Next:       p.next,
		CanEndTurn: p.myTurn && p.canEndTurn(),
	}
	if me, ok := p.state.Player(p.name); ok {
		v.Hand = append([]int(nil), me.Hand...)
	}
	return v
}

func (p *Proxy) send(to cluster.EntityID, kind protocol.Kind, payload any) error {
	env, err := protocol.NewEnvelope(to, kind, payload)
	if err != nil {
		return err
	}
	return p.bus.Send(env)
}

func (p *Proxy) sendSelf(kind protocol.Kind, payload any) error {
	env, err := protocol.NewAddressedEnvelope(p.address, kind, payload)
	if err != nil {
		return err
	}
	return p.bus.Send(env)
}
