// Command analyze prints quick, human-readable reports about deals and saved
// games. "deal" summarises the layout a seed produces and can auto-play it;
// "sessions" checks every persisted session file for a consistent state.
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/alecthomas/kong"

	"github.com/wricardo/klondike/game/config"
	"github.com/wricardo/klondike/game/engine"
	"github.com/wricardo/klondike/game/session"
)

type CLI struct {
	Deal     DealCmd     `cmd:"" help:"Summarise the deal for a seed"`
	Sessions SessionsCmd `cmd:"" help:"Check persisted session files"`
}

type DealCmd struct {
	Seed   int64  `required:"" help:"Shuffle seed"`
	Config string `help:"Rule-config file to score with (json, yaml or hcl)" type:"existingfile"`
	Play   int    `help:"Auto-play up to N moves, always taking the first legal one" default:"0"`
}

type SessionsCmd struct {
	Dir string `arg:"" optional:"" help:"Sessions directory" default:"sessions" type:"path"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("analyze"),
		kong.Description("Inspect Klondike deals and saved sessions"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)
	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}

func (c *DealCmd) Run() error {
	return c.run(os.Stdout)
}

func (c *DealCmd) run(w io.Writer) error {
	cfg := engine.DefaultGameConfig()
	if c.Config != "" {
		loaded, err := config.LoadFile(c.Config)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	seed := c.Seed
	game, err := engine.NewEngine(cfg, &seed)
	if err != nil {
		return err
	}
	state := game.GetState()

	fmt.Fprintf(w, "Seed: %d\n", state.Seed)
	fmt.Fprintf(w, "Rules: %s\n\n", cfg.Name)
	fmt.Fprintln(w, "Tableau:")
	for i, p := range state.Tableau {
		fmt.Fprintf(w, "  %d: %s\n", i, pileText(p, false))
	}
	fmt.Fprintf(w, "Stock (next card first): %s\n\n", pileText(reversed(state.Stock), true))

	for _, line := range dealHeuristics(state) {
		fmt.Fprintln(w, line)
	}
	fmt.Fprintf(w, "Opening moves: %d\n", len(game.LegalMoves()))

	if c.Play > 0 {
		fmt.Fprintln(w)
		autoPlay(w, game, c.Play)
	}
	return nil
}

// dealHeuristics reports where the aces landed and how many tableau cards
// start hidden.
func dealHeuristics(state *engine.GameState) []string {
	var lines []string

	hidden := 0
	for _, p := range state.Tableau {
		hidden += p.FaceUpFrom()
	}
	lines = append(lines, fmt.Sprintf("Face-down tableau cards: %d", hidden))

	var aces []string
	for i, p := range state.Tableau {
		for j, c := range p {
			if c.Rank == engine.Ace {
				aces = append(aces, fmt.Sprintf("%s in tableau %d under %d cards", shortCard(c), i, p.Len()-1-j))
			}
		}
	}
	for i, c := range reversed(state.Stock) {
		if c.Rank == engine.Ace {
			aces = append(aces, fmt.Sprintf("%s in stock, draw %d", shortCard(c), i+1))
		}
	}
	lines = append(lines, "Aces:")
	for _, a := range aces {
		lines = append(lines, "  "+a)
	}
	return lines
}

func autoPlay(w io.Writer, game *engine.GameEngine, limit int) {
	played := 0
	for ; played < limit && !game.IsWon(); played++ {
		moves := game.LegalMoves()
		if len(moves) == 0 {
			break
		}
		out, err := game.Apply(moves[0])
		if err != nil {
			fmt.Fprintf(w, "⚠️  move %d failed: %v\n", played+1, err)
			return
		}
		if !out.Accepted {
			fmt.Fprintf(w, "⚠️  move %d rejected: %s\n", played+1, out.Reason)
			return
		}
	}

	state := game.GetState()
	onFoundations := 0
	for _, f := range state.Foundations {
		onFoundations += f.Len()
	}
	fmt.Fprintf(w, "Auto-play: %d moves, %d cards on foundations, score %d\n", played, onFoundations, state.Score)
	if game.IsWon() {
		fmt.Fprintln(w, "✅ Won")
	}
}

func (c *SessionsCmd) Run() error {
	return c.run(os.Stdout)
}

func (c *SessionsCmd) run(w io.Writer) error {
	files, err := filepath.Glob(filepath.Join(c.Dir, "*.json"))
	if err != nil {
		return err
	}
	sort.Strings(files)
	if len(files) == 0 {
		fmt.Fprintf(w, "No session files in %s\n", c.Dir)
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SESSION\tCONFIG\tMOVES\tSCORE\tHISTORY\tFOUNDATIONS\tSTATUS")

	broken := 0
	for _, file := range files {
		id := strings.TrimSuffix(filepath.Base(file), ".json")
		status, row := checkSessionFile(file)
		if status != "ok" && status != "won" {
			broken++
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", id, row, status)
	}
	tw.Flush()

	if broken > 0 {
		return fmt.Errorf("%d of %d session files are corrupt", broken, len(files))
	}
	return nil
}

// checkSessionFile returns a status word and the middle table columns.
func checkSessionFile(path string) (string, string) {
	empty := "-\t-\t-\t-\t-"

	data, err := session.ReadSessionFile(path)
	if err != nil {
		return "unreadable: " + err.Error(), empty
	}
	if data.GameState == nil {
		return "missing game state", empty
	}

	state := data.GameState
	onFoundations := 0
	for _, f := range state.Foundations {
		onFoundations += f.Len()
	}
	row := fmt.Sprintf("%s\t%d\t%d\t%d\t%d/%d", data.ConfigName, state.Moves, state.Score, len(data.History), onFoundations, engine.DeckSize)

	if err := engine.CheckInvariants(state); err != nil {
		return err.Error(), row
	}
	if engine.IsWon(state) {
		return "won", row
	}
	return "ok", row
}

func shortCard(c engine.Card) string {
	return c.Rank.String() + strings.ToUpper(c.Suit.String()[:1])
}

// pileText renders a pile bottom to top. Face-down cards print as ## unless
// reveal is set.
func pileText(p engine.Pile, reveal bool) string {
	if p.IsEmpty() {
		return "(empty)"
	}
	parts := make([]string, len(p))
	for i, c := range p {
		if c.FaceUp || reveal {
			parts[i] = shortCard(c)
		} else {
			parts[i] = "##"
		}
	}
	return strings.Join(parts, " ")
}

// reversed returns the pile top first.
func reversed(p engine.Pile) engine.Pile {
	out := make(engine.Pile, len(p))
	for i, c := range p {
		out[len(p)-1-i] = c
	}
	return out
}
