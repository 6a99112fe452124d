package world

import (
	"fmt"

	"github.com/google/uuid"
)

// Snapshot is a memento of every room in a dungeon plus the player's room.
type Snapshot struct {
	location uuid.UUID
	cells    [][]*Memento // [row][col]
}

// NewSnapshot reassembles a snapshot from stored mementos, e.g. after
// loading them from disk. cells is indexed [row][col].
func NewSnapshot(location uuid.UUID, cells [][]*Memento) *Snapshot {
	out := make([][]*Memento, len(cells))
	for row := range cells {
		out[row] = make([]*Memento, len(cells[row]))
		copy(out[row], cells[row])
	}
	return &Snapshot{location: location, cells: out}
}

// Location returns the ID of the room the player was in.
func (s *Snapshot) Location() uuid.UUID { return s.location }

// Each calls fn for every cell's memento in row-major order.
func (s *Snapshot) Each(fn func(row, col int, m *Memento)) {
	for row := range s.cells {
		for col, m := range s.cells[row] {
			fn(row, col, m)
		}
	}
}

// Snapshot captures every room's tiles and the player's position.
func (d *Dungeon) Snapshot() *Snapshot {
	cells := make([][]*Memento, d.height)
	for row := range d.rooms {
		cells[row] = make([]*Memento, d.width)
		for col, r := range d.rooms[row] {
			cells[row][col] = r.CreateMemento()
		}
	}
	return &Snapshot{location: d.location.ID(), cells: cells}
}

// Restore rolls every room back to the snapshot. Nothing is changed unless
// every memento belongs to the room in the same cell and the player appears
// in the location room's memento and no other.
func (d *Dungeon) Restore(s *Snapshot) error {
	if s == nil {
		return fmt.Errorf("%w: nil snapshot", ErrForeignMemento)
	}
	if len(s.cells) != d.height {
		return fmt.Errorf("%w: snapshot has %d rows, dungeon has %d", ErrForeignMemento, len(s.cells), d.height)
	}

	var location *Room
	for row := range d.rooms {
		if len(s.cells[row]) != d.width {
			return fmt.Errorf("%w: snapshot row %d has %d cells, dungeon has %d",
				ErrForeignMemento, row, len(s.cells[row]), d.width)
		}
		for col, r := range d.rooms[row] {
			m := s.cells[row][col]
			if err := r.checkMemento(m); err != nil {
				return fmt.Errorf("cell (%d,%d): %w", row, col, err)
			}
			here := r.ID() == s.location
			if here {
				location = r
			}
			if m.hasPlayer != here {
				return fmt.Errorf("%w: cell (%d,%d) player marker does not match the player room",
					ErrForeignMemento, row, col)
			}
		}
	}
	if location == nil {
		return fmt.Errorf("%w: player room %s is not in this dungeon", ErrForeignMemento, s.location)
	}

	for row := range d.rooms {
		for col, r := range d.rooms[row] {
			if err := r.RestoreFromMemento(s.cells[row][col]); err != nil {
				return err
			}
		}
	}
	d.location = location
	return nil
}
