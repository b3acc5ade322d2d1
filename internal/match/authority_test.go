package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/summitcards/summit/internal/cluster"
	"github.com/summitcards/summit/internal/protocol"
	"github.com/summitcards/summit/internal/randutil"
	"github.com/summitcards/summit/internal/rules"
)

func dealtAuthority(t *testing.T, bus *fakeBus, names ...string) *Authority {
	t.Helper()
	cfg := cluster.DefaultConfig()
	auth := NewAuthority(cfg.GameStateID(names[0]), cfg, bus, testLogger(), randutil.New(1))

	deal := protocol.DealCards{Host: names[0], Difficulty: "normal"}
	for _, name := range names {
		deal.Roster = append(deal.Roster, protocol.RosterEntry{Name: name, Address: addr(name)})
	}
	send(t, auth, auth.id, protocol.KindDealCards, deal)
	return auth
}

func TestAuthorityDealCards(t *testing.T) {
	bus := &fakeBus{}
	auth := dealtAuthority(t, bus, "Bob", "Bill", "Alice")

	readies := bus.byKind(protocol.KindGameReady)
	require.Len(t, readies, 3)

	wantNext := map[string]string{"Bob": "Bill", "Bill": "Alice", "Alice": "Bob"}
	for _, env := range readies {
		msg := payload[protocol.GameReady](t, env)
		name := string(env.To)

		assert.Equal(t, "Bob", msg.Host)
		assert.Equal(t, wantNext[name], msg.NextPlayer, "next player is cyclic in roster order")
		assert.Equal(t, "normal", msg.Difficulty)

		require.Len(t, msg.Snapshot.Players, 3)
		for _, p := range msg.Snapshot.Players {
			assert.Len(t, p.Hand, 6, "three players on normal hold six cards")
		}
		assert.Len(t, msg.Snapshot.Deck, 97-3*6)
	}

	assert.Equal(t, 97, auth.state.CardsNotPlayed())
}

func TestAuthorityTurnCycleCloses(t *testing.T) {
	for _, n := range []int{1, 2, 3, 5} {
		names := []string{"p1", "p2", "p3", "p4", "p5"}[:n]
		next := nextPlayerOf(names)

		current := names[0]
		for i := 0; i < n; i++ {
			current = next[current]
		}
		assert.Equal(t, names[0], current, "applying next %d times returns to the start", n)
	}
}

func TestAuthorityRejectsBadDifficulty(t *testing.T) {
	bus := &fakeBus{}
	cfg := cluster.DefaultConfig()
	auth := NewAuthority(cfg.GameStateID("Bob"), cfg, bus, testLogger(), randutil.New(1))

	send(t, auth, auth.id, protocol.KindDealCards, protocol.DealCards{
		Host:       "Bob",
		Difficulty: "nightmare",
		Roster:     []protocol.RosterEntry{{Name: "Bob", Address: addr("Bob")}},
	})

	assert.Empty(t, bus.all(), "a bad label aborts the hand-off")
	assert.Nil(t, auth.state)
}

func TestAuthorityPlayedCardBroadcastExcludesActor(t *testing.T) {
	bus := &fakeBus{}
	auth := dealtAuthority(t, bus, "Bob", "Bill", "Alice")
	bob, _ := auth.state.Player("Bob")
	card := bob.Hand[len(bob.Hand)-1]

	bus.reset()
	send(t, auth, auth.id, protocol.KindPlayedCard, protocol.PlayedCard{Player: "Bob", Card: card, Pile: 0})

	moves := bus.byKind(protocol.KindPlayedCard)
	require.Len(t, moves, 2)
	for _, env := range moves {
		assert.NotEqual(t, cluster.EntityID("Bob"), env.To, "the actor's own copy is already up to date")
		assert.Equal(t, card, payload[protocol.PlayedCard](t, env).Card)
	}

	assert.Equal(t, card, auth.state.PileTops()[0])
	assert.Equal(t, 96, auth.state.CardsNotPlayed())
}

func TestAuthorityRejectsUnknownPlayer(t *testing.T) {
	bus := &fakeBus{}
	auth := dealtAuthority(t, bus, "Bob", "Bill")

	bus.reset()
	send(t, auth, auth.id, protocol.KindPlayedCard, protocol.PlayedCard{Player: "Mallory", Card: 50, Pile: 0})
	assert.Empty(t, bus.all(), "rejected moves are not broadcast")

	// The entity survives the rejection and keeps working.
	bob, _ := auth.state.Player("Bob")
	send(t, auth, auth.id, protocol.KindPlayedCard, protocol.PlayedCard{Player: "Bob", Card: bob.Hand[len(bob.Hand)-1], Pile: 0})
	assert.Len(t, bus.byKind(protocol.KindPlayedCard), 1)
}

func TestAuthorityEndTurn(t *testing.T) {
	bus := &fakeBus{}
	auth := dealtAuthority(t, bus, "Bob", "Bill", "Alice")

	bob, _ := auth.state.Player("Bob")
	played := bob.Hand[len(bob.Hand)-1]
	send(t, auth, auth.id, protocol.KindPlayedCard, protocol.PlayedCard{Player: "Bob", Card: played, Pile: 0})
	deckBefore := auth.state.DeckCount()

	bus.reset()
	send(t, auth, auth.id, protocol.KindEndTurn, protocol.EndTurn{Player: "Bob", Next: "Bill"})

	starts := bus.byKind(protocol.KindTurnStarted)
	require.Len(t, starts, 3, "turn start goes to every player")
	for _, env := range starts {
		msg := payload[protocol.TurnStarted](t, env)
		assert.Equal(t, "Bob", msg.Ended)
		assert.Equal(t, "Bill", msg.Next)
	}

	assert.Len(t, bob.Hand, 6, "the ender is drawn back up on the authoritative copy")
	assert.Equal(t, deckBefore-1, auth.state.DeckCount())
}

func TestAuthorityGameOverDiscardsMatch(t *testing.T) {
	bus := &fakeBus{}
	auth := dealtAuthority(t, bus, "Bob", "Bill")

	bus.reset()
	send(t, auth, auth.id, protocol.KindGameOver, protocol.GameOver{})

	overs := bus.byKind(protocol.KindGameOver)
	assert.Len(t, overs, 2, "terminal notice reaches every player")
	assert.Nil(t, auth.state)

	// A rematch is a fresh hand-off under the same host identity.
	bus.reset()
	send(t, auth, auth.id, protocol.KindDealCards, protocol.DealCards{
		Host:       "Bob",
		Difficulty: "impossible",
		Roster: []protocol.RosterEntry{
			{Name: "Bob", Address: addr("Bob")},
			{Name: "Bill", Address: addr("Bill")},
		},
	})
	readies := bus.byKind(protocol.KindGameReady)
	require.Len(t, readies, 2)
	for _, env := range readies {
		msg := payload[protocol.GameReady](t, env)
		assert.Equal(t, rules.Impossible.String(), msg.Difficulty)
		for _, p := range msg.Snapshot.Players {
			assert.Len(t, p.Hand, 6, "two players on impossible hold six cards")
		}
	}
}

func TestAuthorityMoveBeforeDealIsDropped(t *testing.T) {
	bus := &fakeBus{}
	cfg := cluster.DefaultConfig()
	auth := NewAuthority(cfg.GameStateID("Bob"), cfg, bus, testLogger(), randutil.New(1))

	send(t, auth, auth.id, protocol.KindPlayedCard, protocol.PlayedCard{Player: "Bob", Card: 10, Pile: 0})
	send(t, auth, auth.id, protocol.KindEndTurn, protocol.EndTurn{Player: "Bob", Next: "Bob"})
	assert.Empty(t, bus.all())
}
