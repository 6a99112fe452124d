// Package world provides dungeon generation, room layout and traversal.
package world

// Tile represents a single cell of a room's interior. A tile is identified
// by its display character.
type Tile rune

const (
	// TileEmpty is open floor.
	TileEmpty Tile = '.'
	// TileWall is an impassable wall.
	TileWall Tile = '#'
	// TileDoorHorizontal is a door carved into a north or south wall.
	TileDoorHorizontal Tile = '-'
	// TileDoorVertical is a door carved into an east or west wall.
	TileDoorVertical Tile = '|'
	// TilePit hurts whoever steps onto it.
	TilePit Tile = '^'
	// TileEntrance marks the dungeon entrance.
	TileEntrance Tile = '<'
	// TileExit marks the dungeon exit.
	TileExit Tile = '>'
	// TileHealthPotion is a healing potion lying on the floor.
	TileHealthPotion Tile = 'H'
	// TileVisionPotion is a vision potion lying on the floor.
	TileVisionPotion Tile = 'V'
)

// TileKind is the closed set of tile variants.
type TileKind int

const (
	KindUnknown TileKind = iota
	KindEmpty
	KindWall
	KindDoor
	KindPit
	KindEntrance
	KindExit
	KindItem
	KindPillar
)

// String returns a human-readable kind name.
func (k TileKind) String() string {
	switch k {
	case KindEmpty:
		return "empty"
	case KindWall:
		return "wall"
	case KindDoor:
		return "door"
	case KindPit:
		return "pit"
	case KindEntrance:
		return "entrance"
	case KindExit:
		return "exit"
	case KindItem:
		return "item"
	case KindPillar:
		return "pillar"
	default:
		return "unknown"
	}
}

// Orientation is the direction a door tile runs along its wall.
type Orientation int

const (
	OrientationNone Orientation = iota
	OrientationHorizontal
	OrientationVertical
)

// Kind classifies the tile.
func (t Tile) Kind() TileKind {
	switch t {
	case TileEmpty:
		return KindEmpty
	case TileWall:
		return KindWall
	case TileDoorHorizontal, TileDoorVertical:
		return KindDoor
	case TilePit:
		return KindPit
	case TileEntrance:
		return KindEntrance
	case TileExit:
		return KindExit
	case TileHealthPotion, TileVisionPotion:
		return KindItem
	}
	if PillarFromRune(rune(t)) != PillarNone {
		return KindPillar
	}
	return KindUnknown
}

// DoorOrientation returns the orientation of a door tile, or OrientationNone.
func (t Tile) DoorOrientation() Orientation {
	switch t {
	case TileDoorHorizontal:
		return OrientationHorizontal
	case TileDoorVertical:
		return OrientationVertical
	default:
		return OrientationNone
	}
}

// IsDoor returns true for either door tile.
func (t Tile) IsDoor() bool {
	return t.Kind() == KindDoor
}

// IsPassable returns true if the tile can be walked on.
func (t Tile) IsPassable() bool {
	k := t.Kind()
	return k != KindWall && k != KindUnknown
}

// IsStructural reports tiles that layout post-processing must never overwrite.
func (t Tile) IsStructural() bool {
	switch t.Kind() {
	case KindDoor, KindEntrance, KindExit, KindPillar:
		return true
	default:
		return false
	}
}

// IsCollectible reports tiles the player picks up by stepping on them.
func (t Tile) IsCollectible() bool {
	k := t.Kind()
	return k == KindItem || k == KindPillar
}

// Rune returns the tile's display character.
func (t Tile) Rune() rune {
	return rune(t)
}
