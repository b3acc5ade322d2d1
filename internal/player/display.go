package player

import (
	"github.com/summitcards/summit/internal/game"
	"github.com/summitcards/summit/internal/rules"
)

// View is the read-only slice of match state a proxy hands to its
// presentation layer. It is rebuilt for every callback; the presentation
// side never touches the proxy's replica directly.
type View struct {
	Hand       []int
	Piles      [rules.PileCount]int
	DeckCount  int
	HandCounts []game.HandCount
	MyTurn     bool
	Next       string
	CanEndTurn bool
}

// Display is the presentation callback surface. Implementations render;
// they return nothing back into the core. All calls happen on the proxy's
// entity goroutine, one at a time.
type Display interface {
	// RenderRoster shows the lobby roster in arrival order.
	RenderRoster(names []string)
	// RenderGameStart shows the initial deal.
	RenderGameStart(v View)
	// RenderMove shows one played card, own or remote.
	RenderMove(playerName string, card, pile int, v View)
	// RenderTurn refreshes hand counts and deck count on a turn change.
	RenderTurn(ended, next string, v View)
	// RenderGameOver shows the terminal dialog; won distinguishes a
	// completed win from a dead end.
	RenderGameOver(won bool)
	// RenderError shows a rejected intent or other unexpected condition.
	RenderError(msg string)
}
