package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/summitcards/summit/internal/player"
)

// terminalDisplay renders the game as plain lines on a writer. All calls
// arrive serialized from the proxy's goroutine, so no locking is needed.
type terminalDisplay struct {
	w io.Writer
}

func newTerminalDisplay(w io.Writer) *terminalDisplay {
	return &terminalDisplay{w: w}
}

func (d *terminalDisplay) RenderRoster(names []string) {
	fmt.Fprintf(d.w, "waiting room: %s\n", strings.Join(names, ", "))
}

func (d *terminalDisplay) RenderGameStart(v player.View) {
	fmt.Fprintln(d.w, "the match begins")
	d.renderTable(v)
	d.renderPrompt(v)
}

func (d *terminalDisplay) RenderMove(playerName string, card, pile int, v player.View) {
	fmt.Fprintf(d.w, "%s played %d on pile %d\n", playerName, card, pile+1)
	d.renderTable(v)
	d.renderPrompt(v)
}

func (d *terminalDisplay) RenderTurn(ended, next string, v player.View) {
	fmt.Fprintf(d.w, "%s ended their turn, %s is up\n", ended, next)
	d.renderTable(v)
	d.renderPrompt(v)
}

func (d *terminalDisplay) RenderGameOver(won bool) {
	if won {
		fmt.Fprintln(d.w, "every card is down. you win!")
	} else {
		fmt.Fprintln(d.w, "no moves left. game over")
	}
	fmt.Fprintln(d.w, "type 'rematch' to play again")
}

func (d *terminalDisplay) RenderError(msg string) {
	fmt.Fprintf(d.w, "!! %s\n", msg)
}

func (d *terminalDisplay) renderTable(v player.View) {
	fmt.Fprintf(d.w, "  piles: up [%d %d] down [%d %d]  deck: %d\n",
		v.Piles[0], v.Piles[1], v.Piles[2], v.Piles[3], v.DeckCount)
	var counts []string
	for _, hc := range v.HandCounts {
		counts = append(counts, fmt.Sprintf("%s:%d", hc.Name, hc.Cards))
	}
	fmt.Fprintf(d.w, "  hands: %s\n", strings.Join(counts, " "))
	fmt.Fprintf(d.w, "  your hand: %s\n", joinInts(v.Hand))
}

func (d *terminalDisplay) renderPrompt(v player.View) {
	if !v.MyTurn {
		return
	}
	if v.CanEndTurn {
		fmt.Fprintln(d.w, "your turn (you may 'end')")
	} else {
		fmt.Fprintln(d.w, "your turn")
	}
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprintf("%d", v)
	}
	return strings.Join(parts, " ")
}
