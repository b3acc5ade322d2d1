// Package game holds the authoritative match state: the roster of players,
// the shuffled main deck and the four shared piles. Exactly one game-state
// authority owns a State instance per match; everyone else works against
// value snapshots kept in sync by replaying broadcast moves.
package game

import (
	"errors"
	"fmt"
	rand "math/rand/v2"
	"slices"

	"github.com/summitcards/summit/internal/randutil"
	"github.com/summitcards/summit/internal/rules"
)

var (
	// ErrPlayerNotFound is returned for operations naming a player that is
	// not part of this match.
	ErrPlayerNotFound = errors.New("player not found")
	// ErrCardNotInHand is returned when a play names a card the player does
	// not hold.
	ErrCardNotInHand = errors.New("card not in hand")
	// ErrInvalidPile is returned for a pile index outside [0, PileCount).
	ErrInvalidPile = errors.New("pile index out of range")
)

// HandCount pairs a player name with the size of their hand, in roster
// order.
type HandCount struct {
	Name  string `json:"name"`
	Cards int    `json:"cards"`
}

// State is the single source of truth for one match. It is not safe for
// concurrent use; the owning entity serializes all access.
type State struct {
	players    []*Player
	mainDeck   []int
	piles      [rules.PileCount]int
	difficulty rules.Difficulty
}

// New creates a match state for the given roster, in roster order. The main
// deck is shuffled exactly once here; pass a nil rng for a time-seeded
// shuffle or a randutil.New rng for a reproducible one. Hands start empty
// until DealInitialHands.
func New(names []string, difficulty rules.Difficulty, rng *rand.Rand) *State {
	if rng == nil {
		rng = randutil.NewFromTime()
	}
	s := &State{
		mainDeck:   rules.DeckValues(),
		difficulty: difficulty,
	}
	for _, name := range names {
		s.players = append(s.players, &Player{Name: name})
	}
	for i := range s.piles {
		if i < rules.PileCount/2 {
			s.piles[i] = rules.AscendingStart
		} else {
			s.piles[i] = rules.DescendingStart
		}
	}
	randutil.Shuffle(rng, s.mainDeck)
	return s
}

// DealInitialHands deals every player up to the target hand size for this
// roster and difficulty. Called once, right after New.
func (s *State) DealInitialHands() {
	target := rules.CardsInHand(len(s.players), s.difficulty)
	for _, p := range s.players {
		s.drawCards(p, target)
	}
}

// Difficulty returns the difficulty the match was created with.
func (s *State) Difficulty() rules.Difficulty {
	return s.difficulty
}

// PlayerNames returns the roster in turn order.
func (s *State) PlayerNames() []string {
	names := make([]string, len(s.players))
	for i, p := range s.players {
		names[i] = p.Name
	}
	return names
}

// Player returns the named player, or false if they are not in the match.
func (s *State) Player(name string) (*Player, bool) {
	for _, p := range s.players {
		if p.Name == name {
			return p, true
		}
	}
	return nil, false
}

// Draw tops the named player's hand back up to the target size, taking at
// most the cards the main deck still has. Drawing with a full hand is a
// no-op that returns the hand unchanged. The returned slice is the player's
// new hand in ascending order.
func (s *State) Draw(name string) ([]int, error) {
	p, ok := s.Player(name)
	if !ok {
		return nil, fmt.Errorf("draw %q: %w", name, ErrPlayerNotFound)
	}
	target := rules.CardsInHand(len(s.players), s.difficulty)
	s.drawCards(p, target-len(p.Hand))
	return slices.Clone(p.Hand), nil
}

// PlayCard removes the card from the named player's hand and makes it the
// new top of the given pile. Legality against the pile rules is the caller's
// concern; only roster membership and hand contents are checked here.
func (s *State) PlayCard(name string, card, pile int) error {
	if pile < 0 || pile >= rules.PileCount {
		return fmt.Errorf("play on pile %d: %w", pile, ErrInvalidPile)
	}
	p, ok := s.Player(name)
	if !ok {
		return fmt.Errorf("play by %q: %w", name, ErrPlayerNotFound)
	}
	if !p.RemoveCard(card) {
		return fmt.Errorf("play %d by %q: %w", card, name, ErrCardNotInHand)
	}
	s.piles[pile] = card
	return nil
}

// PileTops returns the current top value of each pile.
func (s *State) PileTops() [rules.PileCount]int {
	return s.piles
}

// DeckCount returns the number of undealt cards in the main deck.
func (s *State) DeckCount() int {
	return len(s.mainDeck)
}

// CardsNotPlayed counts the cards still in circulation: main deck plus every
// hand. It drops by exactly one per successful play and is unchanged by
// draws.
func (s *State) CardsNotPlayed() int {
	n := len(s.mainDeck)
	for _, p := range s.players {
		n += len(p.Hand)
	}
	return n
}

// HandCounts returns the hand size of every player, in roster order.
func (s *State) HandCounts() []HandCount {
	counts := make([]HandCount, len(s.players))
	for i, p := range s.players {
		counts[i] = HandCount{Name: p.Name, Cards: len(p.Hand)}
	}
	return counts
}

// ValidMoveExists reports whether the named player can legally place any
// card in hand on any pile. Evaluated on demand, never cached: the answer
// changes with every move.
func (s *State) ValidMoveExists(name string) (bool, error) {
	p, ok := s.Player(name)
	if !ok {
		return false, fmt.Errorf("valid-move check for %q: %w", name, ErrPlayerNotFound)
	}
	for _, card := range p.Hand {
		for pile := 0; pile < rules.PileCount; pile++ {
			if rules.IsPileValid(pile, s.piles[pile], card) {
				return true, nil
			}
		}
	}
	return false, nil
}

// IsWin reports whether the match is won: every hand empty and the main
// deck exhausted.
func (s *State) IsWin() bool {
	if len(s.mainDeck) > 0 {
		return false
	}
	for _, p := range s.players {
		if len(p.Hand) > 0 {
			return false
		}
	}
	return true
}

// drawCards moves up to n cards from the front of the main deck into the
// player's hand and re-sorts it. Cards leave the deck permanently.
func (s *State) drawCards(p *Player, n int) {
	if n <= 0 {
		return
	}
	take := min(n, len(s.mainDeck))
	drawn := s.mainDeck[:take]
	p.setHand(append(slices.Clone(p.Hand), drawn...))
	s.mainDeck = slices.Clone(s.mainDeck[take:])
}
