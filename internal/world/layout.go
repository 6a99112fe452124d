package world

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/zyedidia/generic/mapset"

	"github.com/samdwyer/dungeonadventure/internal/gamedata"
	"github.com/samdwyer/dungeonadventure/internal/rng"
)

const (
	// Default room interior dimensions, border walls included.
	DefaultRoomWidth  = 7
	DefaultRoomHeight = 7

	minRoomSize = 3 // Smallest room that has an interior cell
)

// Builder generates room layouts. It carries the random source, the interior
// tile table and the room dimensions shared by every room of a dungeon.
type Builder struct {
	src             *rng.Source
	table           *gamedata.TileTable
	width, height   int
	extraWallChance float64
}

// NewBuilder creates a builder for rooms of the configured size. Every glyph
// the table can pick for an interior cell must be floor, pit or an item.
func NewBuilder(src *rng.Source, table *gamedata.TileTable, cfg Config) (*Builder, error) {
	if src == nil || table == nil {
		return nil, fmt.Errorf("%w: builder needs a random source and a tile table", ErrInvalidRoomConfig)
	}
	if cfg.RoomWidth < minRoomSize || cfg.RoomHeight < minRoomSize {
		return nil, fmt.Errorf("%w: room size %dx%d below minimum %dx%d",
			ErrInvalidRoomConfig, cfg.RoomWidth, cfg.RoomHeight, minRoomSize, minRoomSize)
	}
	for _, g := range table.InteriorGlyphs() {
		switch Tile(g).Kind() {
		case KindEmpty, KindPit, KindItem:
		default:
			return nil, fmt.Errorf("%w: tile %q cannot appear in a room interior", ErrInvalidRoomConfig, g)
		}
	}

	return &Builder{
		src:             src,
		table:           table,
		width:           cfg.RoomWidth,
		height:          cfg.RoomHeight,
		extraWallChance: cfg.ExtraWallChance,
	}, nil
}

// Source returns the builder's random source.
func (b *Builder) Source() *rng.Source { return b.src }

// Table returns the builder's tile table.
func (b *Builder) Table() *gamedata.TileTable { return b.table }

// NewRoom generates a room. At most one of isEntrance, isExit and pillar may
// be set; anything else fails with ErrInvalidRoomConfig.
func (b *Builder) NewRoom(isEntrance, isExit bool, pillar Pillar) (*Room, error) {
	tiles, err := b.GenerateTiles(isEntrance, isExit, pillar)
	if err != nil {
		return nil, err
	}

	id, err := uuid.NewRandomFromReader(b.src)
	if err != nil {
		return nil, fmt.Errorf("failed to derive room id: %w", err)
	}

	return &Room{
		id:       id,
		tiles:    tiles,
		width:    b.width,
		height:   b.height,
		entrance: isEntrance,
		exit:     isExit,
		pillar:   pillar,
	}, nil
}

// GenerateTiles produces a walled tile grid with a weighted random interior
// and exactly one marker for whichever of entrance, exit or pillar is set.
func (b *Builder) GenerateTiles(isEntrance, isExit bool, pillar Pillar) ([][]Tile, error) {
	if pillar != PillarNone && !pillar.IsValid() {
		return nil, fmt.Errorf("%w: unknown pillar kind %d", ErrInvalidRoomConfig, pillar)
	}
	flags := 0
	for _, set := range []bool{isEntrance, isExit, pillar != PillarNone} {
		if set {
			flags++
		}
	}
	if flags > 1 {
		return nil, fmt.Errorf("%w: entrance=%t exit=%t pillar=%s",
			ErrInvalidRoomConfig, isEntrance, isExit, pillar)
	}

	tiles := make([][]Tile, b.height)
	for y := range tiles {
		tiles[y] = make([]Tile, b.width)
		for x := range tiles[y] {
			if x == 0 || y == 0 || x == b.width-1 || y == b.height-1 {
				tiles[y][x] = TileWall
				continue
			}
			tiles[y][x] = Tile(b.table.PickInterior(b.src))
		}
	}

	var marker Tile
	switch {
	case isEntrance:
		marker = TileEntrance
	case isExit:
		marker = TileExit
	case pillar != PillarNone:
		marker = pillar.Tile()
	}
	if marker != 0 {
		x := b.src.IntBetween(1, b.width-1)
		y := b.src.IntBetween(1, b.height-1)
		tiles[y][x] = marker
	}

	return tiles, nil
}

// AddExtraWalls turns some interior floor, pit and item tiles into walls.
// Markers, doors, door entry tiles and the player's tile are never touched,
// and a wall is only added if every passable interior tile stays reachable
// from every other. When at least one tile qualifies, at least one wall is
// added. Returns the number of walls added.
func (b *Builder) AddExtraWalls(r *Room) int {
	entries := mapset.New[Point]()
	for _, d := range AllDirections() {
		entries.Put(r.EntryPosition(d))
	}

	var candidates []Point
	for y := 1; y < r.height-1; y++ {
		for x := 1; x < r.width-1; x++ {
			p := Point{X: x, Y: y}
			t := r.tiles[y][x]
			if t == TileWall || t.IsStructural() || entries.Has(p) {
				continue
			}
			if r.hasPlayer && r.player == p {
				continue
			}
			candidates = append(candidates, p)
		}
	}
	b.src.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})

	added := 0
	var fallback *Point
	for i, p := range candidates {
		if !r.stillConnectedWithout(p) {
			continue
		}
		if fallback == nil {
			fallback = &candidates[i]
		}
		if b.src.Chance(b.extraWallChance) {
			r.tiles[p.Y][p.X] = TileWall
			added++
		}
	}
	if added == 0 && fallback != nil {
		r.tiles[fallback.Y][fallback.X] = TileWall
		added++
	}
	return added
}

// stillConnectedWithout reports whether all passable interior tiles remain
// mutually reachable if blocked became a wall.
func (r *Room) stillConnectedWithout(blocked Point) bool {
	var start *Point
	total := 0
	for y := 1; y < r.height-1; y++ {
		for x := 1; x < r.width-1; x++ {
			p := Point{X: x, Y: y}
			if p == blocked || !r.tiles[y][x].IsPassable() {
				continue
			}
			total++
			if start == nil {
				start = &Point{X: x, Y: y}
			}
		}
	}
	if start == nil {
		return false
	}

	visited := mapset.New[Point]()
	queue := []Point{*start}
	visited.Put(*start)
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, d := range AllDirections() {
			n := current.Add(d)
			if n == blocked || visited.Has(n) || !r.inBounds(n) || r.isBorder(n) {
				continue
			}
			if !r.tiles[n.Y][n.X].IsPassable() {
				continue
			}
			visited.Put(n)
			queue = append(queue, n)
		}
	}
	return visited.Size() == total
}
