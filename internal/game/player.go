package game

import "slices"

// Player is a match participant: a unique name and an ascending-sorted hand
// of card values. Players are created once per match and never move between
// matches.
type Player struct {
	Name string
	Hand []int
}

// HasCard reports whether the player holds a card with the given value.
func (p *Player) HasCard(value int) bool {
	return slices.Contains(p.Hand, value)
}

// RemoveCard removes one card with the given value from the hand and reports
// whether it was present.
func (p *Player) RemoveCard(value int) bool {
	i := slices.Index(p.Hand, value)
	if i < 0 {
		return false
	}
	p.Hand = slices.Delete(p.Hand, i, i+1)
	return true
}

// setHand replaces the hand, keeping it sorted ascending.
func (p *Player) setHand(cards []int) {
	p.Hand = slices.Clone(cards)
	slices.Sort(p.Hand)
}
