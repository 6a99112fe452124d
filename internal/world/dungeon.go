package world

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rivo/uniseg"
	"github.com/zyedidia/generic/mapset"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/samdwyer/dungeonadventure/internal/telemetry"
)

const (
	// Default placement grid dimensions
	DefaultWidth  = 6
	DefaultHeight = 6

	// essentialRooms is the entrance, the exit and one room per pillar.
	essentialRooms = 6

	cellTokenWidth = 4
)

// DoorPolicy selects how doors are carved between grid-adjacent rooms.
type DoorPolicy string

const (
	// DoorsAll connects every pair of grid-adjacent rooms.
	DoorsAll DoorPolicy = "all"
	// DoorsSparse connects each adjacent pair with SparseDoorChance; layouts
	// that strand an essential room are regenerated.
	DoorsSparse DoorPolicy = "sparse"
)

// Config holds dungeon generation options.
type Config struct {
	Width            int        `yaml:"width"`              // Placement grid columns
	Height           int        `yaml:"height"`             // Placement grid rows
	RoomWidth        int        `yaml:"room_width"`         // Tile columns per room, walls included
	RoomHeight       int        `yaml:"room_height"`        // Tile rows per room, walls included
	MaxAttempts      int        `yaml:"max_attempts"`       // Generation attempts before giving up
	DoorPolicy       DoorPolicy `yaml:"door_policy"`        // "all" or "sparse"
	SparseDoorChance float64    `yaml:"sparse_door_chance"` // Per-pair door probability under "sparse"
	ExtraWallChance  float64    `yaml:"extra_wall_chance"`  // Per-tile wall probability for filler rooms
}

// DefaultConfig returns the standard 6x6 dungeon of 7x7 rooms.
func DefaultConfig() Config {
	return Config{
		Width:            DefaultWidth,
		Height:           DefaultHeight,
		RoomWidth:        DefaultRoomWidth,
		RoomHeight:       DefaultRoomHeight,
		MaxAttempts:      10,
		DoorPolicy:       DoorsAll,
		SparseDoorChance: 0.35,
		ExtraWallChance:  0.15,
	}
}

// Validate checks that the configuration can produce a dungeon.
func (c Config) Validate() error {
	switch {
	case c.Width < 1 || c.Height < 1:
		return fmt.Errorf("%w: grid %dx%d", ErrInvalidRoomConfig, c.Width, c.Height)
	case c.Width*c.Height < essentialRooms:
		return fmt.Errorf("%w: grid %dx%d has fewer than %d cells",
			ErrInvalidRoomConfig, c.Width, c.Height, essentialRooms)
	case c.RoomWidth < minRoomSize || c.RoomHeight < minRoomSize:
		return fmt.Errorf("%w: room size %dx%d", ErrInvalidRoomConfig, c.RoomWidth, c.RoomHeight)
	case c.MaxAttempts < 1:
		return fmt.Errorf("%w: max attempts %d", ErrInvalidRoomConfig, c.MaxAttempts)
	case c.DoorPolicy != DoorsAll && c.DoorPolicy != DoorsSparse:
		return fmt.Errorf("%w: door policy %q", ErrInvalidRoomConfig, c.DoorPolicy)
	case c.SparseDoorChance < 0 || c.SparseDoorChance > 1:
		return fmt.Errorf("%w: sparse door chance %f", ErrInvalidRoomConfig, c.SparseDoorChance)
	case c.ExtraWallChance < 0 || c.ExtraWallChance > 1:
		return fmt.Errorf("%w: extra wall chance %f", ErrInvalidRoomConfig, c.ExtraWallChance)
	}
	return nil
}

// Dungeon is the placement grid of rooms plus the player's current room.
type Dungeon struct {
	rooms    [][]*Room // rooms[row][col]
	width    int
	height   int
	entrance *Room
	exit     *Room
	pillars  [4]*Room // indexed by Pillar.index()
	location *Room
	attempts int
}

// errUnreachable marks a layout that strands an essential room; it is retried.
var errUnreachable = errors.New("essential room unreachable from entrance")

// NewEssentialRooms builds the entrance, the exit and one room per pillar.
func NewEssentialRooms(b *Builder) (entrance, exit *Room, pillars [4]*Room, err error) {
	if entrance, err = b.NewRoom(true, false, PillarNone); err != nil {
		return nil, nil, pillars, err
	}
	if exit, err = b.NewRoom(false, true, PillarNone); err != nil {
		return nil, nil, pillars, err
	}
	for i, p := range AllPillars() {
		if pillars[i], err = b.NewRoom(false, false, p); err != nil {
			return nil, nil, pillars, err
		}
	}
	return entrance, exit, pillars, nil
}

// New builds a fresh set of essential rooms and generates a dungeon around them.
func New(ctx context.Context, cfg Config, b *Builder) (*Dungeon, error) {
	entrance, exit, pillars, err := NewEssentialRooms(b)
	if err != nil {
		return nil, err
	}
	return Generate(ctx, cfg, b, entrance, exit, pillars)
}

// Generate places the essential rooms at distinct random cells, fills every
// other cell with a new room, carves doors between grid neighbors and checks
// that the exit and every pillar room can be reached from the entrance.
// Unreachable layouts are regenerated up to cfg.MaxAttempts times.
func Generate(ctx context.Context, cfg Config, b *Builder, entrance, exit *Room, pillars [4]*Room) (*Dungeon, error) {
	tracer := telemetry.Tracer("world")
	ctx, span := tracer.Start(ctx, "dungeon.generate")
	defer span.End()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	essentials, err := orderEssentials(entrance, exit, pillars)
	if err != nil {
		return nil, err
	}

	startTime := time.Now()
	attempts := 0
	d, err := backoff.Retry(ctx, func() (*Dungeon, error) {
		attempts++
		d, err := generateAttempt(cfg, b, essentials)
		if err != nil && !errors.Is(err, errUnreachable) {
			return nil, backoff.Permanent(err)
		}
		return d, err
	},
		backoff.WithBackOff(&backoff.ZeroBackOff{}),
		backoff.WithMaxTries(uint(cfg.MaxAttempts)),
	)

	span.SetAttributes(
		attribute.Int("dungeon.width", cfg.Width),
		attribute.Int("dungeon.height", cfg.Height),
		attribute.String("dungeon.door_policy", string(cfg.DoorPolicy)),
		attribute.Int64("dungeon.seed", b.src.Seed()),
		attribute.Int("dungeon.attempts", attempts),
		attribute.Int64("dungeon.generation_ms", time.Since(startTime).Milliseconds()),
	)

	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		if errors.Is(err, errUnreachable) {
			return nil, fmt.Errorf("%w: %d attempts: %v", ErrGenerationFailed, attempts, err)
		}
		return nil, err
	}

	d.attempts = attempts
	return d, nil
}

// orderEssentials checks the six essential rooms and returns them with the
// pillar rooms sorted by kind.
func orderEssentials(entrance, exit *Room, pillars [4]*Room) ([]*Room, error) {
	if entrance == nil || !entrance.IsEntrance() || entrance.IsExit() || entrance.Pillar() != PillarNone {
		return nil, fmt.Errorf("%w: entrance room must be flagged as the entrance only", ErrInvalidRoomConfig)
	}
	if exit == nil || !exit.IsExit() || exit.IsEntrance() || exit.Pillar() != PillarNone {
		return nil, fmt.Errorf("%w: exit room must be flagged as the exit only", ErrInvalidRoomConfig)
	}

	var sorted [4]*Room
	for _, r := range pillars {
		if r == nil || !r.Pillar().IsValid() || r.IsEntrance() || r.IsExit() {
			return nil, fmt.Errorf("%w: every pillar room must hold exactly one pillar", ErrInvalidRoomConfig)
		}
		i := r.Pillar().index()
		if sorted[i] != nil {
			return nil, fmt.Errorf("%w: pillar %s placed in more than one room", ErrInvalidRoomConfig, r.Pillar())
		}
		sorted[i] = r
	}

	essentials := append([]*Room{entrance, exit}, sorted[:]...)
	seen := mapset.New[*Room]()
	for _, r := range essentials {
		if seen.Has(r) {
			return nil, fmt.Errorf("%w: the same room is used for two essential roles", ErrInvalidRoomConfig)
		}
		seen.Put(r)
	}
	return essentials, nil
}

// generateAttempt runs one placement and door-carving pass.
func generateAttempt(cfg Config, b *Builder, essentials []*Room) (*Dungeon, error) {
	for _, r := range essentials {
		r.clearDoors()
		r.ClearPlayer()
		r.placed = false
	}

	d := &Dungeon{
		rooms:    make([][]*Room, cfg.Height),
		width:    cfg.Width,
		height:   cfg.Height,
		entrance: essentials[0],
		exit:     essentials[1],
	}
	copy(d.pillars[:], essentials[2:])
	for row := range d.rooms {
		d.rooms[row] = make([]*Room, cfg.Width)
	}

	queue := make([]*Room, len(essentials))
	copy(queue, essentials)
	b.src.Shuffle(len(queue), func(i, j int) {
		queue[i], queue[j] = queue[j], queue[i]
	})

	// Visiting cells in a random permutation means no cell is drawn twice.
	// Each free cell takes the next essential room with probability
	// remaining/free, so every essential room is placed by the last cell.
	free := cfg.Width * cfg.Height
	for _, cell := range b.src.Perm(free) {
		row, col := cell/cfg.Width, cell%cfg.Width
		remaining := len(queue)

		var room *Room
		if remaining > 0 && (remaining >= free || b.src.Float64() < float64(remaining)/float64(free)) {
			room, queue = queue[0], queue[1:]
		} else {
			filler, err := b.NewRoom(false, false, PillarNone)
			if err != nil {
				return nil, err
			}
			b.AddExtraWalls(filler)
			room = filler
		}

		d.place(room, row, col)
		free--
	}

	if err := d.carveDoors(cfg, b); err != nil {
		return nil, err
	}

	if missing := d.unreachableEssentials(); len(missing) > 0 {
		return nil, fmt.Errorf("%w: %d of %d", errUnreachable, len(missing), essentialRooms-1)
	}

	start, ok := d.entrance.Find(TileEntrance)
	if !ok {
		start = d.entrance.EntryPosition(North)
	}
	if err := d.entrance.SetPlayerPosition(start.X, start.Y); err != nil {
		return nil, err
	}
	d.location = d.entrance
	return d, nil
}

func (d *Dungeon) place(r *Room, row, col int) {
	r.row, r.col, r.placed = row, col, true
	d.rooms[row][col] = r
}

// carveDoors connects grid neighbors to the east and south of every cell.
func (d *Dungeon) carveDoors(cfg Config, b *Builder) error {
	for row := 0; row < d.height; row++ {
		for col := 0; col < d.width; col++ {
			for _, dir := range []Direction{East, South} {
				n := d.neighborCell(row, col, dir)
				if n == nil {
					continue
				}
				if cfg.DoorPolicy == DoorsSparse && !b.src.Chance(cfg.SparseDoorChance) {
					continue
				}
				if err := Connect(d.rooms[row][col], n, dir); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// neighborCell returns the room on side dir of (row, col) in the grid, or nil.
func (d *Dungeon) neighborCell(row, col int, dir Direction) *Room {
	dx, dy := dir.Delta()
	r, c := row+dy, col+dx
	if r < 0 || r >= d.height || c < 0 || c >= d.width {
		return nil
	}
	return d.rooms[r][c]
}

// Reachable returns every room reachable from the entrance through doors, in
// breadth-first order.
func (d *Dungeon) Reachable() []*Room {
	if d.entrance == nil {
		return nil
	}

	visited := mapset.New[*Room]()
	visited.Put(d.entrance)
	order := []*Room{d.entrance}
	queue := []*Room{d.entrance}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, dir := range AllDirections() {
			n := current.Neighbor(dir)
			if n == nil || visited.Has(n) {
				continue
			}
			visited.Put(n)
			order = append(order, n)
			queue = append(queue, n)
		}
	}
	return order
}

func (d *Dungeon) unreachableEssentials() []*Room {
	reached := mapset.New[*Room]()
	for _, r := range d.Reachable() {
		reached.Put(r)
	}

	var missing []*Room
	for _, r := range append([]*Room{d.exit}, d.pillars[:]...) {
		if !reached.Has(r) {
			missing = append(missing, r)
		}
	}
	return missing
}

// Width returns the number of grid columns.
func (d *Dungeon) Width() int { return d.width }

// Height returns the number of grid rows.
func (d *Dungeon) Height() int { return d.height }

// Attempts returns how many generation passes produced this dungeon.
func (d *Dungeon) Attempts() int { return d.attempts }

// Entrance returns the entrance room.
func (d *Dungeon) Entrance() *Room { return d.entrance }

// Exit returns the exit room.
func (d *Dungeon) Exit() *Room { return d.exit }

// PillarRoom returns the room holding pillar p, or nil for PillarNone.
func (d *Dungeon) PillarRoom(p Pillar) *Room {
	if !p.IsValid() {
		return nil
	}
	return d.pillars[p.index()]
}

// Rooms returns a copy of the placement grid, indexed [row][col].
func (d *Dungeon) Rooms() [][]*Room {
	out := make([][]*Room, len(d.rooms))
	for row := range d.rooms {
		out[row] = make([]*Room, len(d.rooms[row]))
		copy(out[row], d.rooms[row])
	}
	return out
}

// RoomAt returns the room at grid row x, column y.
func (d *Dungeon) RoomAt(x, y int) (*Room, error) {
	if x < 0 || x >= d.height || y < 0 || y >= d.width {
		return nil, fmt.Errorf("%w: (%d,%d) outside %dx%d grid", ErrOutOfBounds, x, y, d.height, d.width)
	}
	return d.rooms[x][y], nil
}

// CharacterLocation returns the room the player is in.
func (d *Dungeon) CharacterLocation() *Room {
	return d.location
}

// MoveResult describes a move between rooms.
type MoveResult struct {
	From, To    *Room
	Direction   Direction
	Position    Point // player's tile in To
	PickedUp    Tile  // collectible removed from the entry tile, or 0
	FellIntoPit bool
}

// Move takes the player through the door on side dir of the current room.
// An item or pillar on the tile the player arrives on is picked up. Without
// a door it returns ErrNoPassage and changes nothing.
func (d *Dungeon) Move(dir Direction) (MoveResult, error) {
	from := d.location
	to := from.Neighbor(dir)
	if to == nil {
		return MoveResult{}, fmt.Errorf("%w: %s", ErrNoPassage, dir)
	}

	entry := to.EntryPosition(dir.Opposite())
	if err := to.SetPlayerPosition(entry.X, entry.Y); err != nil {
		return MoveResult{}, err
	}
	from.ClearPlayer()
	d.location = to

	res := MoveResult{
		From:      from,
		To:        to,
		Direction: dir,
		Position:  entry,
	}
	switch t := to.tiles[entry.Y][entry.X]; {
	case t.IsCollectible():
		res.PickedUp = t
		to.tiles[entry.Y][entry.X] = TileEmpty
	case t == TilePit:
		res.FellIntoPit = true
	}
	return res, nil
}

// StepOutcome combines an in-room step with a room change when the step
// walked into a door.
type StepOutcome struct {
	StepResult
	Moved bool       // player changed rooms
	Move  MoveResult // valid when Moved
}

// Step moves the player one tile inside the current room. Walking into a
// door tile moves the player through it.
func (d *Dungeon) Step(dir Direction) (StepOutcome, error) {
	res, err := d.location.Step(dir)
	if err != nil {
		return StepOutcome{StepResult: res}, err
	}
	if !res.AtDoor {
		return StepOutcome{StepResult: res}, nil
	}

	mv, err := d.Move(res.DoorSide)
	if err != nil {
		return StepOutcome{StepResult: res}, err
	}
	res.Pit = mv.FellIntoPit
	res.PickedUp = mv.PickedUp
	res.To = mv.Position
	return StepOutcome{StepResult: res, Moved: true, Move: mv}, nil
}

// String renders the placement grid, one 4-character token per cell
// followed by a space, one line per row.
func (d *Dungeon) String() string {
	var sb strings.Builder
	for _, row := range d.rooms {
		for _, room := range row {
			sb.WriteString(CellToken(room))
			sb.WriteByte(' ')
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// CellToken returns the overview token for a room: ENTR, EXIT, the pillar's
// character padded to four columns, ROOM, or null for an empty cell.
func CellToken(r *Room) string {
	switch {
	case r == nil:
		return "null"
	case r.IsEntrance():
		return "ENTR"
	case r.IsExit():
		return "EXIT"
	case r.Pillar() != PillarNone:
		glyph := string(r.Pillar().Rune())
		pad := cellTokenWidth - 1 - uniseg.StringWidth(glyph)
		if pad < 0 {
			pad = 0
		}
		return " " + glyph + strings.Repeat(" ", pad)
	default:
		return "ROOM"
	}
}
