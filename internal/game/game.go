package game

import (
	"context"
	"errors"

	"github.com/gdamore/tcell/v2"
	"go.opentelemetry.io/otel/attribute"

	"github.com/samdwyer/dungeonadventure/internal/config"
	"github.com/samdwyer/dungeonadventure/internal/logger"
	"github.com/samdwyer/dungeonadventure/internal/save"
	"github.com/samdwyer/dungeonadventure/internal/telemetry"
	"github.com/samdwyer/dungeonadventure/internal/ui"
	"github.com/samdwyer/dungeonadventure/internal/world"
)

// action is a player command decoded from a key press.
type action int

const (
	actionNone action = iota
	actionQuit
	actionStep
	actionMoveRoom
	actionQuickSave
	actionQuickLoad
	actionPersist
)

// command pairs an action with its direction, when it has one.
type command struct {
	action action
	dir    world.Direction
}

// Game runs a Session on a terminal screen.
type Game struct {
	screen   *ui.Screen
	renderer *ui.Renderer
	session  *Session
	running  bool
}

// New creates a game on the terminal with a fresh session.
func New(ctx context.Context, cfg *config.Config, store *save.Store) (*Game, error) {
	tracer := telemetry.Tracer("game")
	ctx, initSpan := tracer.Start(ctx, "game.init")
	defer initSpan.End()

	session, err := NewSession(ctx, cfg, store)
	if err != nil {
		return nil, err
	}
	initSpan.SetAttributes(
		attribute.Int64("dungeon.seed", session.Seed()),
		attribute.Int("dungeon.attempts", session.Dungeon().Attempts()),
	)

	screen, err := ui.NewScreen()
	if err != nil {
		return nil, err
	}
	return NewWithScreen(screen, session), nil
}

// NewWithScreen creates a game that draws session onto screen.
func NewWithScreen(screen *ui.Screen, session *Session) *Game {
	return &Game{
		screen:   screen,
		renderer: ui.NewRenderer(screen, session.table),
		session:  session,
		running:  true,
	}
}

// Session returns the game's session.
func (g *Game) Session() *Session { return g.session }

// Run executes the main game loop until the player quits.
func (g *Game) Run(ctx context.Context) error {
	for g.running {
		g.renderer.Render(g.session.View())
		g.handleInput(ctx)
	}
	g.screen.Close()
	return nil
}

// handleInput processes a single input event.
func (g *Game) handleInput(ctx context.Context) {
	ev := g.screen.PollEvent()

	switch ev := ev.(type) {
	case *tcell.EventKey:
		g.apply(ctx, keyCommand(ev.Key(), ev.Rune(), ev.Modifiers()))
	case *tcell.EventResize:
		g.screen.Sync()
	case nil:
		// PollEvent returns nil once the screen is finalized.
		g.running = false
	}
}

// keyCommand maps a key press to a command. Arrow keys step inside the room;
// shifted arrows go straight through the door on that side.
func keyCommand(key tcell.Key, ch rune, mod tcell.ModMask) command {
	dirs := map[tcell.Key]world.Direction{
		tcell.KeyUp:    world.North,
		tcell.KeyRight: world.East,
		tcell.KeyDown:  world.South,
		tcell.KeyLeft:  world.West,
	}
	if dir, ok := dirs[key]; ok {
		if mod&tcell.ModShift != 0 {
			return command{action: actionMoveRoom, dir: dir}
		}
		return command{action: actionStep, dir: dir}
	}

	switch key {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return command{action: actionQuit}
	case tcell.KeyF5:
		return command{action: actionQuickSave}
	case tcell.KeyF9:
		return command{action: actionQuickLoad}
	case tcell.KeyRune:
		switch ch {
		case 'q', 'Q':
			return command{action: actionQuit}
		case 'w', 'k':
			return command{action: actionStep, dir: world.North}
		case 'd', 'l':
			return command{action: actionStep, dir: world.East}
		case 's', 'j':
			return command{action: actionStep, dir: world.South}
		case 'a', 'h':
			return command{action: actionStep, dir: world.West}
		case 'W':
			return command{action: actionMoveRoom, dir: world.North}
		case 'D':
			return command{action: actionMoveRoom, dir: world.East}
		case 'S':
			return command{action: actionMoveRoom, dir: world.South}
		case 'A':
			return command{action: actionMoveRoom, dir: world.West}
		case 'p', 'P':
			return command{action: actionPersist}
		}
	}
	return command{action: actionNone}
}

// apply runs one command against the session. Rule violations such as
// walking into a wall are reported through the session's message line.
func (g *Game) apply(ctx context.Context, cmd command) {
	var err error
	switch cmd.action {
	case actionQuit:
		g.running = false
	case actionStep:
		err = g.session.Step(ctx, cmd.dir)
	case actionMoveRoom:
		err = g.session.MoveRoom(ctx, cmd.dir)
	case actionQuickSave:
		g.session.QuickSave()
	case actionQuickLoad:
		err = g.session.QuickLoad()
	case actionPersist:
		_, err = g.session.Save(ctx)
	}

	if err != nil && !isRuleError(err) {
		logger.Warning("action failed", "action", int(cmd.action), "error", err)
	}
}

// isRuleError reports errors that are part of normal play.
func isRuleError(err error) bool {
	return errors.Is(err, world.ErrNoPassage) ||
		errors.Is(err, world.ErrBlocked) ||
		errors.Is(err, ErrGameOver) ||
		errors.Is(err, ErrNoQuickSave)
}

// Close cleans up game resources.
func (g *Game) Close() {
	if g.screen != nil {
		g.screen.Close()
	}
}
