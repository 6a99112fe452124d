package world

// Direction is a cardinal direction.
type Direction int

const (
	North Direction = iota
	East
	South
	West
)

// AllDirections returns all valid directions for iteration.
func AllDirections() []Direction {
	return []Direction{North, East, South, West}
}

// String returns the lowercase direction name.
func (d Direction) String() string {
	switch d {
	case North:
		return "north"
	case East:
		return "east"
	case South:
		return "south"
	case West:
		return "west"
	default:
		return "unknown"
	}
}

// IsValid returns true if the direction is a valid cardinal direction.
func (d Direction) IsValid() bool {
	return d >= North && d <= West
}

// Opposite returns the opposite direction.
func (d Direction) Opposite() Direction {
	switch d {
	case North:
		return South
	case South:
		return North
	case East:
		return West
	case West:
		return East
	default:
		return d
	}
}

// Delta returns the x (column) and y (row) offsets for this direction.
func (d Direction) Delta() (dx, dy int) {
	switch d {
	case North:
		return 0, -1
	case East:
		return 1, 0
	case South:
		return 0, 1
	case West:
		return -1, 0
	default:
		return 0, 0
	}
}

// doorTile returns the door tile carved into a wall facing d.
func (d Direction) doorTile() Tile {
	if d == North || d == South {
		return TileDoorHorizontal
	}
	return TileDoorVertical
}
