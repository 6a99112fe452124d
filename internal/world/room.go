package world

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// PlayerGlyph is drawn in place of the tile the player stands on.
const PlayerGlyph = '@'

// Point is a tile coordinate inside a room.
type Point struct {
	X, Y int
}

// Add returns p offset by one step in direction d.
func (p Point) Add(d Direction) Point {
	dx, dy := d.Delta()
	return Point{X: p.X + dx, Y: p.Y + dy}
}

// Room is one cell of the dungeon's placement grid. It owns an interior tile
// grid, its door links to neighbor rooms and, while occupied, the player's
// tile position.
type Room struct {
	id     uuid.UUID
	tiles  [][]Tile // tiles[y][x]
	width  int
	height int

	entrance bool
	exit     bool
	pillar   Pillar

	neighbors [4]*Room // indexed by Direction

	row, col int
	placed   bool

	player    Point
	hasPlayer bool
}

// NewRoomFromTiles creates a room from a pre-built tile grid. Entrance, exit
// and pillar flags are derived from the markers present. The grid is copied.
func NewRoomFromTiles(tiles [][]Tile) (*Room, error) {
	if len(tiles) == 0 || len(tiles[0]) == 0 {
		return nil, fmt.Errorf("%w: empty tile grid", ErrInvalidRoomConfig)
	}

	width := len(tiles[0])
	var entrances, exits int
	pillar := PillarNone
	pillars := 0
	for y, row := range tiles {
		if len(row) != width {
			return nil, fmt.Errorf("%w: row %d has %d tiles, want %d", ErrInvalidRoomConfig, y, len(row), width)
		}
		for x, t := range row {
			switch t.Kind() {
			case KindUnknown:
				return nil, fmt.Errorf("%w: unknown tile %q at (%d,%d)", ErrInvalidRoomConfig, rune(t), x, y)
			case KindEntrance:
				entrances++
			case KindExit:
				exits++
			case KindPillar:
				pillars++
				pillar = PillarFromRune(rune(t))
			}
		}
	}
	if entrances+exits+pillars > 1 {
		return nil, fmt.Errorf("%w: %d entrance, %d exit and %d pillar markers in one room",
			ErrInvalidRoomConfig, entrances, exits, pillars)
	}

	return &Room{
		id:       uuid.New(),
		tiles:    copyTiles(tiles),
		width:    width,
		height:   len(tiles),
		entrance: entrances == 1,
		exit:     exits == 1,
		pillar:   pillar,
	}, nil
}

// ID returns the room's identifier.
func (r *Room) ID() uuid.UUID { return r.id }

// Width returns the number of tile columns.
func (r *Room) Width() int { return r.width }

// Height returns the number of tile rows.
func (r *Room) Height() int { return r.height }

// IsEntrance reports whether this is the dungeon entrance.
func (r *Room) IsEntrance() bool { return r.entrance }

// IsExit reports whether this is the dungeon exit.
func (r *Room) IsExit() bool { return r.exit }

// Pillar returns the pillar placed in this room, or PillarNone.
func (r *Room) Pillar() Pillar { return r.pillar }

// IsEssential reports whether the room is the entrance, the exit or a pillar room.
func (r *Room) IsEssential() bool {
	return r.entrance || r.exit || r.pillar != PillarNone
}

// GridPosition returns the room's row and column in the placement grid.
// ok is false until the room has been placed by a dungeon.
func (r *Room) GridPosition() (row, col int, ok bool) {
	return r.row, r.col, r.placed
}

// Tiles returns a copy of the tile grid.
func (r *Room) Tiles() [][]Tile {
	return copyTiles(r.tiles)
}

// TileAt returns the tile at (x, y), or TileWall outside the room.
func (r *Room) TileAt(x, y int) Tile {
	if !r.inBounds(Point{X: x, Y: y}) {
		return TileWall
	}
	return r.tiles[y][x]
}

// Contains reports whether any cell of the room holds tile t.
func (r *Room) Contains(t Tile) bool {
	for _, row := range r.tiles {
		for _, cell := range row {
			if cell == t {
				return true
			}
		}
	}
	return false
}

// Count returns how many cells hold tile t.
func (r *Room) Count(t Tile) int {
	n := 0
	for _, row := range r.tiles {
		for _, cell := range row {
			if cell == t {
				n++
			}
		}
	}
	return n
}

// Find returns the first position holding tile t in row-major order.
func (r *Room) Find(t Tile) (Point, bool) {
	for y, row := range r.tiles {
		for x, cell := range row {
			if cell == t {
				return Point{X: x, Y: y}, true
			}
		}
	}
	return Point{}, false
}

// Neighbor returns the room behind the door on side d, or nil.
func (r *Room) Neighbor(d Direction) *Room {
	if !d.IsValid() {
		return nil
	}
	return r.neighbors[d]
}

// HasDoor reports whether side d has a door.
func (r *Room) HasDoor(d Direction) bool {
	return r.Neighbor(d) != nil
}

// Doors returns the sides that have doors, in North, East, South, West order.
func (r *Room) Doors() []Direction {
	var doors []Direction
	for _, d := range AllDirections() {
		if r.neighbors[d] != nil {
			doors = append(doors, d)
		}
	}
	return doors
}

// DoorPosition returns the tile where a door on side d sits: the midpoint
// of that wall.
func (r *Room) DoorPosition(d Direction) Point {
	switch d {
	case North:
		return Point{X: r.width / 2, Y: 0}
	case South:
		return Point{X: r.width / 2, Y: r.height - 1}
	case West:
		return Point{X: 0, Y: r.height / 2}
	default:
		return Point{X: r.width - 1, Y: r.height / 2}
	}
}

// EntryPosition returns the tile just inside the door on side d. Players
// arriving through that door stand here.
func (r *Room) EntryPosition(d Direction) Point {
	return r.DoorPosition(d).Add(d.Opposite())
}

// FindDoorOnWall scans the wall on side d for a door tile.
func (r *Room) FindDoorOnWall(d Direction) (Point, bool) {
	switch d {
	case North, South:
		y := 0
		if d == South {
			y = r.height - 1
		}
		for x := 0; x < r.width; x++ {
			if r.tiles[y][x].IsDoor() {
				return Point{X: x, Y: y}, true
			}
		}
	case East, West:
		x := 0
		if d == East {
			x = r.width - 1
		}
		for y := 0; y < r.height; y++ {
			if r.tiles[y][x].IsDoor() {
				return Point{X: x, Y: y}, true
			}
		}
	}
	return Point{}, false
}

// HasPlayer reports whether the player is currently in this room.
func (r *Room) HasPlayer() bool { return r.hasPlayer }

// PlayerPosition returns the player's tile. ok is false when the player is
// not in this room.
func (r *Room) PlayerPosition() (p Point, ok bool) {
	return r.player, r.hasPlayer
}

// SetPlayerPosition puts the player at (x, y). The tile must be passable.
func (r *Room) SetPlayerPosition(x, y int) error {
	p := Point{X: x, Y: y}
	if !r.inBounds(p) {
		return fmt.Errorf("%w: (%d,%d) outside %dx%d room", ErrOutOfBounds, x, y, r.width, r.height)
	}
	if !r.tiles[y][x].IsPassable() {
		return fmt.Errorf("%w: tile %q at (%d,%d)", ErrBlocked, rune(r.tiles[y][x]), x, y)
	}
	r.player = p
	r.hasPlayer = true
	return nil
}

// ClearPlayer marks the room as unoccupied.
func (r *Room) ClearPlayer() {
	r.player = Point{}
	r.hasPlayer = false
}

// Connect carves a matching door pair between a and b, with b lying on side
// d of a. Both rooms are updated; there is no one-sided form. Connecting an
// already connected pair again is a no-op.
func Connect(a, b *Room, d Direction) error {
	switch {
	case a == nil || b == nil:
		return fmt.Errorf("%w: cannot connect a nil room", ErrInvalidRoomConfig)
	case a == b:
		return fmt.Errorf("%w: a room cannot connect to itself", ErrInvalidRoomConfig)
	case !d.IsValid():
		return fmt.Errorf("%w: invalid direction %d", ErrInvalidRoomConfig, d)
	}

	back := d.Opposite()
	if a.neighbors[d] == b && b.neighbors[back] == a {
		return nil
	}
	if a.neighbors[d] != nil || b.neighbors[back] != nil {
		return fmt.Errorf("%w: %s side already has a door", ErrInvalidRoomConfig, d)
	}

	a.setDoor(d, b)
	b.setDoor(back, a)
	return nil
}

// StepResult describes an in-room step.
type StepResult struct {
	From, To Point
	Tile     Tile // tile stepped onto, before any pickup
	PickedUp Tile // collectible removed from the floor, or 0
	Pit      bool

	// AtDoor is set when the step hit a door tile; the player has not moved
	// and the caller decides whether to pass through DoorSide.
	AtDoor   bool
	DoorSide Direction
}

// Step moves the player one tile in direction d. Walls block. Items and
// pillars are picked up and replaced by floor.
func (r *Room) Step(d Direction) (StepResult, error) {
	if !r.hasPlayer {
		return StepResult{}, ErrNotInRoom
	}
	if !d.IsValid() {
		return StepResult{}, fmt.Errorf("%w: invalid direction %d", ErrBlocked, d)
	}

	from := r.player
	to := from.Add(d)
	if !r.inBounds(to) {
		return StepResult{From: from, To: from}, fmt.Errorf("%w: edge of room", ErrBlocked)
	}

	t := r.tiles[to.Y][to.X]
	res := StepResult{From: from, To: to, Tile: t}
	switch {
	case t.IsDoor():
		res.To = from
		res.AtDoor = true
		res.DoorSide = r.wallSide(to)
		return res, nil
	case !t.IsPassable():
		res.To = from
		return res, fmt.Errorf("%w: %s", ErrBlocked, t.Kind())
	case t.IsCollectible():
		res.PickedUp = t
		r.tiles[to.Y][to.X] = TileEmpty
	case t == TilePit:
		res.Pit = true
	}

	r.player = to
	return res, nil
}

// String renders the tile grid as rows of space-separated characters, with
// the player drawn as '@'.
func (r *Room) String() string {
	var sb strings.Builder
	for y, row := range r.tiles {
		for x, t := range row {
			if x > 0 {
				sb.WriteByte(' ')
			}
			if r.hasPlayer && r.player.X == x && r.player.Y == y {
				sb.WriteRune(PlayerGlyph)
				continue
			}
			sb.WriteRune(t.Rune())
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

func (r *Room) setDoor(d Direction, neighbor *Room) {
	p := r.DoorPosition(d)
	r.tiles[p.Y][p.X] = d.doorTile()
	r.neighbors[d] = neighbor
}

// clearDoors walls up every door and drops the neighbor links.
func (r *Room) clearDoors() {
	for _, d := range AllDirections() {
		if r.neighbors[d] == nil {
			continue
		}
		p := r.DoorPosition(d)
		r.tiles[p.Y][p.X] = TileWall
		r.neighbors[d] = nil
	}
}

// wallSide returns which wall a border tile belongs to.
func (r *Room) wallSide(p Point) Direction {
	switch {
	case p.Y == 0:
		return North
	case p.Y == r.height-1:
		return South
	case p.X == 0:
		return West
	default:
		return East
	}
}

func (r *Room) inBounds(p Point) bool {
	return p.X >= 0 && p.X < r.width && p.Y >= 0 && p.Y < r.height
}

func (r *Room) isBorder(p Point) bool {
	return p.X == 0 || p.Y == 0 || p.X == r.width-1 || p.Y == r.height-1
}

func copyTiles(src [][]Tile) [][]Tile {
	dst := make([][]Tile, len(src))
	for y := range src {
		dst[y] = make([]Tile, len(src[y]))
		copy(dst[y], src[y])
	}
	return dst
}
