package game

import (
	"fmt"
	"slices"

	"github.com/summitcards/summit/internal/rules"
)

// Snapshot is the value form of a State, cloned at send time and embedded in
// the game-ready message. Each player proxy rebuilds an independent State
// from it and keeps that replica in sync purely by replaying broadcast
// moves; nothing ever aliases the authority's live state.
//
// The snapshot carries the full shuffled deck so that replicas drawing for a
// remote player produce exactly the cards the authority handed out.
type Snapshot struct {
	Players    []PlayerSnapshot     `json:"players"`
	Deck       []int                `json:"deck"`
	Piles      [rules.PileCount]int `json:"piles"`
	Difficulty string               `json:"difficulty"`
}

// PlayerSnapshot is the value form of a Player.
type PlayerSnapshot struct {
	Name string `json:"name"`
	Hand []int  `json:"hand"`
}

// Snapshot clones the state into its wire form.
func (s *State) Snapshot() Snapshot {
	snap := Snapshot{
		Deck:       slices.Clone(s.mainDeck),
		Piles:      s.piles,
		Difficulty: s.difficulty.String(),
	}
	for _, p := range s.players {
		snap.Players = append(snap.Players, PlayerSnapshot{
			Name: p.Name,
			Hand: slices.Clone(p.Hand),
		})
	}
	return snap
}

// FromSnapshot rebuilds a State from its wire form.
func FromSnapshot(snap Snapshot) (*State, error) {
	difficulty, err := rules.ParseDifficulty(snap.Difficulty)
	if err != nil {
		return nil, fmt.Errorf("snapshot difficulty %q: %w", snap.Difficulty, err)
	}
	s := &State{
		mainDeck:   slices.Clone(snap.Deck),
		piles:      snap.Piles,
		difficulty: difficulty,
	}
	for _, p := range snap.Players {
		player := &Player{Name: p.Name}
		player.setHand(p.Hand)
		s.players = append(s.players, player)
	}
	return s, nil
}
