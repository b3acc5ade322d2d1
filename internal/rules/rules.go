// Package rules holds the pure rule functions for the cooperative climbing
// card game: deck composition, hand sizes, pile validity and turn quotas.
// Nothing in here carries state; the game model and the player proxies both
// consume these functions so they can never disagree on what a legal move is.
package rules

// Card values and pile constants. Cards are plain integers; there are no
// suits and cards are fungible by value.
const (
	// LowCard is the lowest card value dealt from the main deck.
	LowCard = 2
	// HighCard is the highest card value dealt from the main deck.
	HighCard = 98

	// AscendingStart is the initial top value of the two ascending piles.
	AscendingStart = LowCard - 1
	// DescendingStart is the initial top value of the two descending piles.
	DescendingStart = HighCard + 1

	// TrickGap is the exact distance that allows playing against a pile's
	// direction (the "trick" move).
	TrickGap = 10

	// PileCount is the number of shared piles. Piles 0 and 1 ascend,
	// piles 2 and 3 descend.
	PileCount = 4
)

const (
	cardsForOne  = 8
	cardsForTwo  = 7
	cardsForMore = 6

	normalQuota = 2
	hardQuota   = 3
)

// DeckValues returns the full set of card values in a fresh main deck, in
// ascending order. The caller owns the returned slice.
func DeckValues() []int {
	values := make([]int, 0, HighCard-LowCard+1)
	for v := LowCard; v <= HighCard; v++ {
		values = append(values, v)
	}
	return values
}

// DeckSize is the number of cards in a fresh main deck.
func DeckSize() int {
	return HighCard - LowCard + 1
}

// CardsInHand returns the target hand size: 8 cards solo, 7 with two
// players, 6 otherwise, one fewer on Impossible difficulty.
func CardsInHand(playerCount int, d Difficulty) int {
	var n int
	switch {
	case playerCount == 1:
		n = cardsForOne
	case playerCount == 2:
		n = cardsForTwo
	default:
		n = cardsForMore
	}
	if d == Impossible {
		n--
	}
	return n
}

// IsAscendingValid reports whether candidate may be placed on an ascending
// pile whose current top is top. Higher values are always allowed; exactly
// TrickGap below the top is the permitted trick.
func IsAscendingValid(top, candidate int) bool {
	return candidate > top || candidate == top-TrickGap
}

// IsDescendingValid reports whether candidate may be placed on a descending
// pile whose current top is top.
func IsDescendingValid(top, candidate int) bool {
	return candidate < top || candidate == top+TrickGap
}

// IsPileValid reports whether candidate may be placed on the pile with the
// given index, applying the ascending rule to piles 0-1 and the descending
// rule to piles 2-3.
func IsPileValid(pile, top, candidate int) bool {
	if pile < PileCount/2 {
		return IsAscendingValid(top, candidate)
	}
	return IsDescendingValid(top, candidate)
}

// CardsPerTurn returns the minimum number of cards a player must play before
// ending a turn. The quota is waived by callers once the main deck is empty.
func CardsPerTurn(d Difficulty) int {
	if d == Normal {
		return normalQuota
	}
	return hardQuota
}
