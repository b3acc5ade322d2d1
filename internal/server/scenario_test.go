package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/summitcards/summit/internal/player"
)

// TestThreePlayerMatchFlow walks a whole opening turn on one node: lobby,
// deal, two plays, end of turn. Checks the concrete numbers a three player
// match on normal difficulty must produce.
func TestThreePlayerMatchFlow(t *testing.T) {
	n := testNode(t, "node-a")

	displays := map[string]*recordingDisplay{}
	proxies := map[string]*player.Proxy{}
	for _, name := range []string{"Bob", "Bill", "Alice"} {
		d := &recordingDisplay{}
		displays[name] = d
		proxies[name] = n.RegisterPlayer(name, d)
	}

	// Bob hosts; the others join his room.
	for _, name := range []string{"Bob", "Bill", "Alice"} {
		require.NoError(t, proxies[name].Join("Bob"))
	}
	require.Eventually(t, func() bool {
		r := displays["Alice"].lastRoster()
		return len(r) == 3
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"Bob", "Bill", "Alice"}, displays["Alice"].lastRoster())

	require.NoError(t, proxies["Bob"].SubmitStart("normal"))
	require.Eventually(t, func() bool {
		for _, d := range displays {
			if d.startCount() != 1 {
				return false
			}
		}
		return true
	}, 2*time.Second, 10*time.Millisecond, "every player sees the deal")

	start := displays["Bob"].firstStart()
	assert.True(t, start.MyTurn, "the host opens the match")
	assert.Len(t, start.Hand, 6, "three players on normal hold six cards")
	assert.Equal(t, 97-3*6, start.DeckCount)
	assert.Equal(t, [4]int{1, 1, 99, 99}, start.Piles)

	// The hand is sorted, so after playing the lowest card the next lowest
	// still beats the ascending pile top.
	require.NoError(t, proxies["Bob"].SubmitMove(start.Hand[0], 0))
	require.Eventually(t, func() bool {
		return displays["Alice"].moveCount() == 1 && displays["Bob"].moveCount() == 1
	}, 2*time.Second, 10*time.Millisecond, "the move is broadcast to the other players")

	seen := displays["Alice"].lastMove()
	assert.Equal(t, start.Hand[0], seen.Piles[0])
	total := seen.DeckCount
	for _, hc := range seen.HandCounts {
		total += hc.Cards
	}
	assert.Equal(t, 96, total, "one card is on a pile, the rest are in hands or the deck")

	mine := displays["Bob"].lastMove()
	require.NoError(t, proxies["Bob"].SubmitMove(mine.Hand[0], 0))
	require.Eventually(t, func() bool {
		return displays["Bob"].moveCount() == 2
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, proxies["Bob"].SubmitEndTurn())
	require.Eventually(t, func() bool {
		for _, d := range displays {
			if d.turnCount() != 1 {
				return false
			}
		}
		return true
	}, 2*time.Second, 10*time.Millisecond, "the turn change reaches everyone")

	bob := displays["Bob"].lastTurn()
	assert.False(t, bob.MyTurn)
	assert.Len(t, bob.Hand, 6, "the ender draws back up")
	assert.Equal(t, 97-3*6-2, bob.DeckCount, "two draws came off the deck")

	bill := displays["Bill"].lastTurn()
	assert.True(t, bill.MyTurn, "the turn passes in roster order")
}
