package world

import "errors"

var (
	// ErrInvalidRoomConfig reports a room or set of rooms that violates the
	// essential-room rules (e.g. a room flagged as both entrance and exit).
	ErrInvalidRoomConfig = errors.New("invalid room configuration")

	// ErrGenerationFailed reports that no playable layout was produced
	// within the configured number of attempts.
	ErrGenerationFailed = errors.New("dungeon generation failed")

	// ErrNoPassage reports a move through a wall that has no door.
	ErrNoPassage = errors.New("no passage in that direction")

	// ErrBlocked reports an in-room step into a wall.
	ErrBlocked = errors.New("path blocked")

	// ErrNotInRoom reports an in-room step for a room the player is not in.
	ErrNotInRoom = errors.New("player is not in this room")

	// ErrForeignMemento reports a memento or snapshot restored onto a room or
	// dungeon that did not produce it.
	ErrForeignMemento = errors.New("memento belongs to a different room")

	// ErrCorruptMemento reports an encoded memento that fails validation.
	ErrCorruptMemento = errors.New("corrupt memento")

	// ErrOutOfBounds reports grid coordinates outside the dungeon or room.
	ErrOutOfBounds = errors.New("coordinates out of bounds")
)
