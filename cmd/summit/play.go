package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/summitcards/summit/internal/player"
	"github.com/summitcards/summit/internal/server"
)

// PlayCmd runs a node and drives one player from the terminal.
type PlayCmd struct {
	Name     string   `arg:"" help:"Your player name"`
	Host     string   `help:"Name of the hosting player to join (defaults to hosting your own match)"`
	Config   string   `short:"c" default:"summit.hcl" help:"Path to HCL configuration file"`
	Peers    []string `help:"Peer node addresses to join (overrides config)"`
	LogLevel string   `short:"l" default:"warn" help:"Log level"`
}

func (c *PlayCmd) Run() error {
	cfg, err := server.LoadConfig(c.Config)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if len(c.Peers) > 0 {
		cfg.Cluster.Peers = c.Peers
	}
	cfg.Node.LogLevel = c.LogLevel
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	host := c.Host
	if host == "" {
		host = c.Name
	}

	logger := setupLogger(cfg.Node.LogLevel)
	node := server.NewNode(cfg, logger)
	proxy := node.RegisterPlayer(c.Name, newTerminalDisplay(os.Stdout))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return node.Run(ctx)
	})
	g.Go(func() error {
		defer stop()
		if err := proxy.Join(host); err != nil {
			return fmt.Errorf("joining match: %w", err)
		}
		return repl(ctx, proxy, host == c.Name)
	})
	return g.Wait()
}

const replHelp = `commands:
  start [normal|difficult|impossible]  start the match (host only)
  play <card> <pile>                   play a card on pile 1-4
  end                                  end your turn
  rematch                              queue up for another match
  help                                 show this help
  quit                                 leave`

// repl reads commands from stdin until EOF or cancellation. Intents go to
// the proxy; everything the game says back arrives through the display.
func repl(ctx context.Context, proxy *player.Proxy, hosting bool) error {
	if hosting {
		fmt.Println("you are hosting; type 'start' once everyone has joined")
	}
	fmt.Println(replHelp)

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			quit, err := dispatch(proxy, line)
			if err != nil {
				fmt.Println(err)
			}
			if quit {
				return nil
			}
		}
	}
}

func dispatch(proxy *player.Proxy, line string) (quit bool, err error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}
	switch fields[0] {
	case "start":
		difficulty := "normal"
		if len(fields) > 1 {
			difficulty = fields[1]
		}
		return false, proxy.SubmitStart(difficulty)
	case "play":
		if len(fields) != 3 {
			return false, fmt.Errorf("usage: play <card> <pile>")
		}
		card, err := strconv.Atoi(fields[1])
		if err != nil {
			return false, fmt.Errorf("bad card %q", fields[1])
		}
		pile, err := strconv.Atoi(fields[2])
		if err != nil || pile < 1 || pile > 4 {
			return false, fmt.Errorf("bad pile %q, expected 1-4", fields[2])
		}
		return false, proxy.SubmitMove(card, pile-1)
	case "end":
		return false, proxy.SubmitEndTurn()
	case "rematch":
		return false, proxy.SubmitRematch()
	case "help":
		fmt.Println(replHelp)
		return false, nil
	case "quit", "exit":
		return true, nil
	default:
		return false, fmt.Errorf("unknown command %q, try 'help'", fields[0])
	}
}
