// Package game provides the main game loop and state management.
package game

// State represents the current game state.
type State int

const (
	// StateExplore is the default mode where the hero walks the dungeon.
	StateExplore State = iota
	// StateWon is reached by standing on the exit holding all four pillars.
	StateWon
	// StateDead is reached when the hero's health drops to zero.
	StateDead
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateExplore:
		return "explore"
	case StateWon:
		return "won"
	case StateDead:
		return "dead"
	default:
		return "unknown"
	}
}

// IsOver reports whether the game has ended.
func (s State) IsOver() bool {
	return s == StateWon || s == StateDead
}
