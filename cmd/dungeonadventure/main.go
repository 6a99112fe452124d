// Package main is the entry point for Dungeon Adventure.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/gookit/color"
	"github.com/joho/godotenv"
	"golang.org/x/term"

	"github.com/samdwyer/dungeonadventure/internal/config"
	"github.com/samdwyer/dungeonadventure/internal/game"
	"github.com/samdwyer/dungeonadventure/internal/logger"
	"github.com/samdwyer/dungeonadventure/internal/save"
	"github.com/samdwyer/dungeonadventure/internal/telemetry"
	"github.com/samdwyer/dungeonadventure/internal/world"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

// run parses args and executes the requested mode. It returns the process
// exit code so deferred cleanup (log file, save store, telemetry flush)
// always runs before the process exits.
func run(args []string, stdout io.Writer) int {
	flags := flag.NewFlagSet("dungeonadventure", flag.ContinueOnError)
	configFile := flags.String("config", "config.yaml", "Path to YAML config file")
	seed := flags.String("seed", "", "Dungeon seed (overrides config)")
	showMap := flags.Bool("map", false, "Print the generated dungeon and exit")
	list := flags.Bool("list", false, "List saved games and exit")
	loadID := flags.String("load", "", "Resume the saved game with this id")
	if err := flags.Parse(args); err != nil {
		return 2
	}

	// Load .env file for local development. This makes HONEYCOMB_API_KEY
	// available to telemetry.
	if err := godotenv.Load(); err != nil {
		log.Printf("Note: .env file not loaded: %v", err)
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Printf("Failed to load config: %v", err)
		return 1
	}
	if *seed != "" {
		cfg.Game.Seed = *seed
	}

	if err := logger.Initialize(cfg.Log); err != nil {
		log.Printf("Failed to initialize logger: %v", err)
		return 1
	}
	defer logger.Close()

	ctx := context.Background()

	shutdown, err := telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		logger.Warning("telemetry setup failed, running without traces", "error", err)
	} else {
		defer func() {
			if err := shutdown(ctx); err != nil {
				logger.Error("telemetry shutdown failed", "error", err)
			}
		}()
	}

	// fail reports err on stderr and in the log file.
	fail := func(msg string, err error) int {
		log.Printf("%s: %v", msg, err)
		logger.Error(msg, "error", err)
		return 1
	}

	if *showMap {
		if err := printMap(ctx, stdout, cfg); err != nil {
			return fail("failed to generate dungeon", err)
		}
		return 0
	}

	var resume uuid.UUID
	if *loadID != "" {
		if resume, err = uuid.Parse(*loadID); err != nil {
			return fail("invalid save id", err)
		}
	}

	store, err := save.Open(cfg.Save.Path)
	if err != nil {
		return fail("failed to open save store", err)
	}
	defer store.Close()

	if *list {
		if err := printSaves(ctx, stdout, store); err != nil {
			return fail("failed to list saves", err)
		}
		return 0
	}

	g, err := game.New(ctx, cfg, store)
	if err != nil {
		return fail("failed to initialize game", err)
	}
	defer g.Close()

	if resume != uuid.Nil {
		if err := g.Session().Load(ctx, resume); err != nil {
			return fail("failed to load save", err)
		}
	}

	logger.Info("game started", "seed", g.Session().Seed())
	if err := g.Run(ctx); err != nil {
		return fail("game error", err)
	}
	logger.Info("game ended", "state", g.Session().State().String())
	return 0
}

// printMap generates a dungeon from cfg and writes its overview followed by
// every room. Color is used only when stdout is a terminal.
func printMap(ctx context.Context, w io.Writer, cfg *config.Config) error {
	session, err := game.NewSession(ctx, cfg, nil)
	if err != nil {
		return err
	}
	color.Enable = isTerminal(w)

	d := session.Dungeon()
	fmt.Fprintf(w, "seed %d, %dx%d, generated in %d attempt(s)\n\n",
		session.Seed(), d.Width(), d.Height(), d.Attempts())

	for _, row := range d.Rooms() {
		var sb strings.Builder
		for _, r := range row {
			sb.WriteString(tokenStyle(r).Sprint(world.CellToken(r)))
			sb.WriteByte(' ')
		}
		fmt.Fprintln(w, sb.String())
	}

	for _, row := range d.Rooms() {
		for _, r := range row {
			if r == nil {
				continue
			}
			gr, gc, _ := r.GridPosition()
			fmt.Fprintf(w, "\n[%d,%d] %s\n%s", gr, gc, strings.TrimSpace(world.CellToken(r)), r)
		}
	}
	return nil
}

func tokenStyle(r *world.Room) color.Style {
	switch {
	case r == nil:
		return color.Style{color.FgGray}
	case r.IsEntrance():
		return color.Style{color.FgGreen, color.OpBold}
	case r.IsExit():
		return color.Style{color.FgRed, color.OpBold}
	case r.Pillar() != world.PillarNone:
		return color.Style{color.FgYellow, color.OpBold}
	default:
		return color.Style{color.FgWhite}
	}
}

func printSaves(ctx context.Context, w io.Writer, store *save.Store) error {
	saves, err := store.List(ctx)
	if err != nil {
		return err
	}
	if len(saves) == 0 {
		fmt.Fprintln(w, "No saved games.")
		return nil
	}
	for _, s := range saves {
		fmt.Fprintf(w, "%s  %s  %-12s pillars %d/4  seed %d\n",
			s.ID, s.CreatedAt.Format("2006-01-02 15:04"), s.HeroName, s.Pillars, s.Seed)
	}
	return nil
}

// isTerminal reports whether w is a terminal file.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
