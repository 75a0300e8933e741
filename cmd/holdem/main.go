package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/feltkit/holdem/internal/deck"
	"github.com/feltkit/holdem/internal/engine"
	"github.com/feltkit/holdem/internal/randutil"
	"github.com/feltkit/holdem/internal/rules"
	"github.com/feltkit/holdem/internal/variant"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1).
			Bold(true)

	redCardStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5555")).Bold(true)
	blackCardStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FAFAFA")).Bold(true)
	potStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#F1FA8C")).Bold(true)
	winnerStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#50FA7B")).Bold(true)
	labelStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#6272A4"))
)

type CLI struct {
	Players int   `short:"p" help:"Number of players at the table" default:"4"`
	Hands   int   `short:"n" help:"Number of hands to play" default:"3"`
	Seed    int64 `short:"s" help:"Deck seed (0 uses the clock)"`
}

func main() {
	var cli CLI
	kctx := kong.Parse(&cli)

	if cli.Players < 2 || cli.Players > 10 {
		log.Fatal("Invalid number of players. Must be between 2 and 10.")
	}

	fmt.Print(titleStyle.Render(" ♠ ♥ Texas Hold'em ♦ ♣ "))
	fmt.Println()
	fmt.Println()

	if err := playDemo(cli); err != nil {
		log.Fatal("Game failed", "error", err)
	}
	kctx.Exit(0)
}

// playDemo runs a table of check-or-call players for a few hands and prints
// each result. Every action goes through the same validation path the
// server uses.
func playDemo(cli CLI) error {
	seed := cli.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	settings, err := variant.Defaults(variant.Holdem)
	if err != nil {
		return err
	}
	settings.MaxPlayers = 10

	eng, err := variant.New(variant.Holdem, "demo", "DEMO01", settings,
		engine.WithRand(randutil.New(seed)))
	if err != nil {
		return err
	}

	hostID := "p1"
	for i := 1; i <= cli.Players; i++ {
		id := fmt.Sprintf("p%d", i)
		if err := eng.AddPlayer(id, fmt.Sprintf("Player %d", i), ""); err != nil {
			return err
		}
	}

	for hand := 1; hand <= cli.Hands; hand++ {
		if hand == 1 {
			err = eng.StartGame(hostID)
		} else {
			err = eng.NextHand(hostID)
		}
		if err != nil {
			return err
		}

		if err := playHand(eng); err != nil {
			return err
		}
		printResult(hand, eng.State())
	}

	fmt.Println(labelStyle.Render("Final stacks:"))
	for _, p := range eng.State().Players {
		fmt.Printf("  %-10s %d\n", p.Name, p.Stack)
	}
	return nil
}

// playHand drives every seat with the simplest legal line: check when the
// bet is matched, call otherwise.
func playHand(eng *engine.Engine) error {
	for {
		state := eng.State()
		if !state.Phase.Betting() || state.ActivePlayerIndex == engine.NoSeat {
			return nil
		}
		player := state.Players[state.ActivePlayerIndex]

		action := rules.Check
		if player.CurrentBet < state.CurrentBet {
			action = rules.Call
		}
		if err := eng.ProcessPlayerAction(player.ID, action, 0); err != nil {
			return fmt.Errorf("%s by %s: %w", action, player.Name, err)
		}
	}
}

func printResult(hand int, state engine.GameState) {
	fmt.Printf("%s %d\n", labelStyle.Render("Hand"), hand)
	if len(state.CommunityCards) > 0 {
		fmt.Printf("  %s %s\n", labelStyle.Render("Board:"), renderCards(state.CommunityCards))
	}
	if state.LastHandResult == nil {
		return
	}
	result := state.LastHandResult
	fmt.Printf("  %s %s\n", labelStyle.Render("Pot:"), potStyle.Render(fmt.Sprintf("%d", result.Pot)))
	for _, w := range result.Winners {
		name := w.PlayerID
		for _, p := range state.Players {
			if p.ID == w.PlayerID {
				name = p.Name
			}
		}
		line := fmt.Sprintf("%s wins %d", name, w.Amount)
		if w.Hand != "" {
			line += " with " + w.Hand
		}
		fmt.Printf("  %s\n", winnerStyle.Render(line))
	}
	fmt.Println()
}

func renderCards(cards []deck.Card) string {
	parts := make([]string, 0, len(cards))
	for _, c := range cards {
		style := blackCardStyle
		if c.Suit.IsRed() {
			style = redCardStyle
		}
		parts = append(parts, style.Render(c.String()))
	}
	return strings.Join(parts, " ")
}

func init() {
	// Demo output goes to stdout; keep the logger quiet unless something
	// actually fails.
	log.SetOutput(os.Stderr)
	log.SetLevel(log.ErrorLevel)
}
