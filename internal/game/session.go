package game

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/leonelquinteros/gotext"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/samdwyer/dungeonadventure/internal/config"
	"github.com/samdwyer/dungeonadventure/internal/entity"
	"github.com/samdwyer/dungeonadventure/internal/gamedata"
	"github.com/samdwyer/dungeonadventure/internal/logger"
	"github.com/samdwyer/dungeonadventure/internal/rng"
	"github.com/samdwyer/dungeonadventure/internal/save"
	"github.com/samdwyer/dungeonadventure/internal/telemetry"
	"github.com/samdwyer/dungeonadventure/internal/ui"
	"github.com/samdwyer/dungeonadventure/internal/world"
)

var (
	// ErrGameOver is returned for actions attempted after winning or dying.
	ErrGameOver = errors.New("game is over")

	// ErrNoQuickSave is returned by QuickLoad before any QuickSave.
	ErrNoQuickSave = errors.New("no quick save")

	// ErrNoStore is returned by Save and Load when no save store is attached.
	ErrNoStore = errors.New("no save store configured")
)

// quickSave is an in-memory checkpoint.
type quickSave struct {
	snapshot *world.Snapshot
	hero     *entity.Hero
	state    State
}

// Session holds the state of one game independent of any screen: the
// dungeon, the hero and the messages produced by the last action.
type Session struct {
	cfg      *config.Config
	table    *gamedata.TileTable
	registry *gamedata.MonsterRegistry
	po       *gotext.Po
	store    *save.Store

	seed     int64
	src      *rng.Source
	dungeon  *world.Dungeon
	hero     *entity.Hero
	monsters map[uuid.UUID]*entity.Monster // by room ID
	state    State
	messages []string
	quick    *quickSave
}

// NewSession starts a game using the configured seed, or a time-based seed
// when none is set. store may be nil, which disables Save and Load.
func NewSession(ctx context.Context, cfg *config.Config, store *save.Store) (*Session, error) {
	seed, ok := cfg.Game.ResolveSeed()
	if !ok {
		seed = rng.NewFromTime().Seed()
	}
	return NewSessionWithSeed(ctx, cfg, seed, store)
}

// NewSessionWithSeed starts a game whose dungeon is generated from seed.
func NewSessionWithSeed(ctx context.Context, cfg *config.Config, seed int64, store *save.Store) (*Session, error) {
	table, err := gamedata.LoadTileTable()
	if err != nil {
		return nil, fmt.Errorf("failed to load tiles: %w", err)
	}
	registry, err := gamedata.LoadMonsterRegistry()
	if err != nil {
		return nil, fmt.Errorf("failed to load monsters: %w", err)
	}
	po, err := gamedata.LoadMessages(cfg.Game.Language)
	if err != nil {
		return nil, err
	}

	s := &Session{
		cfg:      cfg,
		table:    table,
		registry: registry,
		po:       po,
		store:    store,
	}
	if err := s.generate(ctx, seed); err != nil {
		return nil, err
	}
	s.hero = entity.NewHero(cfg.Game.HeroName, cfg.Game.HeroHP)
	s.say("WELCOME")
	return s, nil
}

// generate builds the dungeon and its monsters from seed.
func (s *Session) generate(ctx context.Context, seed int64) error {
	src := rng.New(seed)
	b, err := world.NewBuilder(src, s.table, s.cfg.Dungeon)
	if err != nil {
		return err
	}
	d, err := world.New(ctx, s.cfg.Dungeon, b)
	if err != nil {
		return err
	}

	monsters := make(map[uuid.UUID]*entity.Monster)
	for _, row := range d.Rooms() {
		for _, room := range row {
			if room.IsEssential() || !src.Chance(s.cfg.Game.MonsterChance) {
				continue
			}
			if m := entity.SpawnMonster(s.registry, src); m != nil {
				monsters[room.ID()] = m
			}
		}
	}

	s.seed = seed
	s.src = src
	s.dungeon = d
	s.monsters = monsters
	s.state = StateExplore
	s.quick = nil

	logger.Info("dungeon generated",
		"seed", seed,
		"attempts", d.Attempts(),
		"monsters", len(monsters),
	)
	return nil
}

// Seed returns the seed the dungeon was generated from.
func (s *Session) Seed() int64 { return s.seed }

// Dungeon returns the current dungeon.
func (s *Session) Dungeon() *world.Dungeon { return s.dungeon }

// Hero returns the player character.
func (s *Session) Hero() *entity.Hero { return s.hero }

// State returns the current game state.
func (s *Session) State() State { return s.state }

// Message returns the messages produced by the last action.
func (s *Session) Message() string { return strings.Join(s.messages, " ") }

// MonsterHere returns the monster lurking in the player's room, or nil.
func (s *Session) MonsterHere() *entity.Monster {
	return s.monsters[s.dungeon.CharacterLocation().ID()]
}

// Status returns the localized status line.
func (s *Session) Status() string {
	h := s.hero
	return s.po.Get("STATUS", h.HP, h.MaxHP, h.PillarCount(), h.HealthPotions, h.VisionPotions)
}

// View returns everything the renderer needs for one frame.
func (s *Session) View() ui.View {
	return ui.View{
		Dungeon: s.dungeon,
		Monster: s.MonsterHere(),
		Status:  s.Status(),
		Message: s.Message(),
	}
}

// Step moves the hero one tile inside the current room. Walking into a door
// passes through it.
func (s *Session) Step(ctx context.Context, dir world.Direction) error {
	if s.state.IsOver() {
		return ErrGameOver
	}
	_, span := telemetry.Tracer("game").Start(ctx, "game.step")
	defer span.End()
	span.SetAttributes(attribute.String("direction", dir.String()))

	s.messages = nil
	out, err := s.dungeon.Step(dir)
	if err != nil {
		s.reportMoveError(dir, err)
		return err
	}

	if out.Moved {
		s.arrive(out.Move)
	}
	if out.PickedUp != 0 {
		s.pickUp(out.PickedUp)
	}
	if out.Pit {
		s.fallIntoPit()
	}
	s.checkEnd()

	span.SetAttributes(
		attribute.Bool("moved_room", out.Moved),
		attribute.String("state", s.state.String()),
	)
	return nil
}

// MoveRoom takes the hero straight through the door on side dir of the
// current room. Without a door nothing changes and ErrNoPassage is returned.
func (s *Session) MoveRoom(ctx context.Context, dir world.Direction) error {
	if s.state.IsOver() {
		return ErrGameOver
	}
	_, span := telemetry.Tracer("game").Start(ctx, "game.move_room")
	defer span.End()
	span.SetAttributes(attribute.String("direction", dir.String()))

	s.messages = nil
	mv, err := s.dungeon.Move(dir)
	if err != nil {
		s.reportMoveError(dir, err)
		return err
	}
	s.arrive(mv)
	if mv.PickedUp != 0 {
		s.pickUp(mv.PickedUp)
	}
	if mv.FellIntoPit {
		s.fallIntoPit()
	}
	s.checkEnd()
	return nil
}

func (s *Session) reportMoveError(dir world.Direction, err error) {
	switch {
	case errors.Is(err, world.ErrNoPassage):
		s.say("NO_PASSAGE", dir.String())
	case errors.Is(err, world.ErrBlocked):
		s.say("BLOCKED", dir.String())
	default:
		logger.Error("move failed", "direction", dir.String(), "error", err)
	}
}

func (s *Session) arrive(mv world.MoveResult) {
	s.say("ENTERED_ROOM", mv.Direction.String())
	if m := s.monsters[mv.To.ID()]; m != nil && m.IsAlive() {
		s.say("MONSTER_LURKS", m.Name)
	}
	row, col, _ := mv.To.GridPosition()
	logger.Debug("entered room", "row", row, "col", col, "token", world.CellToken(mv.To))
}

func (s *Session) pickUp(t world.Tile) {
	if !s.hero.Collect(t) {
		return
	}
	s.say("PICKED_UP", s.table.Name(t.Rune()))
}

func (s *Session) fallIntoPit() {
	g := s.cfg.Game
	damage := s.src.IntBetween(g.MinPitDamage, g.MaxPitDamage+1)
	s.hero.ChangeHealth(-damage)
	s.say("FELL_INTO_PIT", damage)
}

// checkEnd moves to StateDead or StateWon when the last action ended the game.
func (s *Session) checkEnd() {
	if !s.hero.IsAlive() {
		s.state = StateDead
		s.say("DEFEAT")
		return
	}

	room := s.dungeon.CharacterLocation()
	p, ok := room.PlayerPosition()
	if !ok || room.TileAt(p.X, p.Y) != world.TileExit {
		return
	}
	if s.hero.HasAllPillars() {
		s.state = StateWon
		s.say("VICTORY")
		return
	}
	s.say("EXIT_LOCKED")
}

// QuickSave checkpoints the dungeon and hero in memory.
func (s *Session) QuickSave() {
	s.messages = nil
	s.quick = &quickSave{
		snapshot: s.dungeon.Snapshot(),
		hero:     s.hero.Clone(),
		state:    s.state,
	}
	s.say("QUICK_SAVED")
}

// QuickLoad rolls back to the last QuickSave.
func (s *Session) QuickLoad() error {
	s.messages = nil
	if s.quick == nil {
		s.say("NOTHING_TO_LOAD")
		return ErrNoQuickSave
	}
	if err := s.dungeon.Restore(s.quick.snapshot); err != nil {
		return err
	}
	s.hero = s.quick.hero.Clone()
	s.state = s.quick.state
	s.say("QUICK_LOADED")
	return nil
}

// Save writes the game to the save store and returns the save's ID.
func (s *Session) Save(ctx context.Context) (uuid.UUID, error) {
	ctx, span := telemetry.Tracer("game").Start(ctx, "game.save")
	defer span.End()

	s.messages = nil
	if s.store == nil {
		s.say("PERSIST_FAILED", ErrNoStore.Error())
		return uuid.Nil, ErrNoStore
	}

	id, err := s.store.Save(ctx, save.Record{
		Seed:     s.seed,
		Snapshot: s.dungeon.Snapshot(),
		Hero:     heroState(s.hero),
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		logger.Error("save failed", "error", err)
		s.say("PERSIST_FAILED", err.Error())
		return uuid.Nil, err
	}

	span.SetAttributes(attribute.String("save.id", id.String()))
	logger.Info("game saved", "id", id.String(), "seed", s.seed)
	s.say("PERSISTED", id.String())
	return id, nil
}

// Load replaces the current game with the save stored under id. The dungeon
// is regenerated from the saved seed and then rolled forward to the saved
// rooms. On error the current game is left untouched.
func (s *Session) Load(ctx context.Context, id uuid.UUID) error {
	ctx, span := telemetry.Tracer("game").Start(ctx, "game.load")
	defer span.End()

	s.messages = nil
	if s.store == nil {
		s.say("LOAD_FAILED", ErrNoStore.Error())
		return ErrNoStore
	}

	rec, err := s.store.Load(ctx, id)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		s.say("LOAD_FAILED", err.Error())
		return err
	}

	prev := *s
	if err := s.generate(ctx, rec.Seed); err != nil {
		*s = prev
		s.say("LOAD_FAILED", err.Error())
		return err
	}
	if err := s.dungeon.Restore(rec.Snapshot); err != nil {
		*s = prev
		s.say("LOAD_FAILED", err.Error())
		return err
	}

	s.hero = heroFromState(rec.Hero)
	if !s.hero.IsAlive() {
		s.state = StateDead
	}
	logger.Info("game loaded", "id", id.String(), "seed", rec.Seed)
	s.say("LOADED", id.String())
	return nil
}

func (s *Session) say(key string, args ...any) {
	s.messages = append(s.messages, s.po.Get(key, args...))
}

func heroState(h *entity.Hero) save.HeroState {
	return save.HeroState{
		Name:          h.Name,
		HP:            h.HP,
		MaxHP:         h.MaxHP,
		HealthPotions: h.HealthPotions,
		VisionPotions: h.VisionPotions,
		Pillars:       h.Pillars(),
	}
}

func heroFromState(st save.HeroState) *entity.Hero {
	h := entity.NewHero(st.Name, st.MaxHP)
	h.HP = st.HP
	h.HealthPotions = st.HealthPotions
	h.VisionPotions = st.VisionPotions
	for _, p := range st.Pillars {
		h.Collect(p.Tile())
	}
	return h
}
