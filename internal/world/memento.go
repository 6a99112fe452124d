package world

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
)

// Memento is an opaque copy of a room's mutable state: its tile grid and the
// player's position. Only the room that created it can restore it.
type Memento struct {
	owner     uuid.UUID
	tiles     [][]Tile
	player    Point
	hasPlayer bool
}

// CreateMemento captures the room's current tiles and player position.
func (r *Room) CreateMemento() *Memento {
	return &Memento{
		owner:     r.id,
		tiles:     copyTiles(r.tiles),
		player:    r.player,
		hasPlayer: r.hasPlayer,
	}
}

// RestoreFromMemento overwrites the room's tiles and player position with
// the memento's. The memento must agree with the room's door links. The
// memento stays independent of the room afterwards.
func (r *Room) RestoreFromMemento(m *Memento) error {
	if err := r.checkMemento(m); err != nil {
		return err
	}
	r.tiles = copyTiles(m.tiles)
	r.player = m.player
	r.hasPlayer = m.hasPlayer
	return nil
}

func (r *Room) checkMemento(m *Memento) error {
	if m == nil {
		return fmt.Errorf("%w: nil memento", ErrForeignMemento)
	}
	if m.owner != r.id {
		return fmt.Errorf("%w: memento of room %s restored onto room %s", ErrForeignMemento, m.owner, r.id)
	}
	if len(m.tiles) != r.height || len(m.tiles[0]) != r.width {
		return fmt.Errorf("%w: memento is %dx%d, room is %dx%d",
			ErrForeignMemento, len(m.tiles[0]), len(m.tiles), r.width, r.height)
	}
	for _, d := range AllDirections() {
		p := r.DoorPosition(d)
		if linked, door := r.neighbors[d] != nil, m.tiles[p.Y][p.X].IsDoor(); linked != door {
			return fmt.Errorf("%w: memento door on %s side is %t, room door is %t",
				ErrForeignMemento, d, door, linked)
		}
	}
	if m.hasPlayer && !r.inBounds(m.player) {
		return fmt.Errorf("%w: player at (%d,%d) outside %dx%d room",
			ErrForeignMemento, m.player.X, m.player.Y, r.width, r.height)
	}
	return nil
}

// mementoWire is the encoded body of a memento.
type mementoWire struct {
	Owner     string   `json:"owner"`
	Rows      []string `json:"rows"`
	PlayerX   int      `json:"px"`
	PlayerY   int      `json:"py"`
	HasPlayer bool     `json:"hasPlayer"`
}

const checksumSize = 8

// MarshalBinary encodes the memento for storage. The layout is private to
// this package; it ends with an xxhash64 checksum of the body.
func (m *Memento) MarshalBinary() ([]byte, error) {
	w := mementoWire{
		Owner:     m.owner.String(),
		Rows:      make([]string, len(m.tiles)),
		PlayerX:   m.player.X,
		PlayerY:   m.player.Y,
		HasPlayer: m.hasPlayer,
	}
	for y, row := range m.tiles {
		runes := make([]rune, len(row))
		for x, t := range row {
			runes[x] = rune(t)
		}
		w.Rows[y] = string(runes)
	}

	body, err := json.Marshal(w)
	if err != nil {
		return nil, fmt.Errorf("failed to encode memento: %w", err)
	}
	return binary.BigEndian.AppendUint64(body, xxhash.Sum64(body)), nil
}

// UnmarshalBinary decodes data produced by MarshalBinary.
func (m *Memento) UnmarshalBinary(data []byte) error {
	if len(data) <= checksumSize {
		return fmt.Errorf("%w: %d bytes is too short", ErrCorruptMemento, len(data))
	}
	body, sum := data[:len(data)-checksumSize], data[len(data)-checksumSize:]
	if xxhash.Sum64(body) != binary.BigEndian.Uint64(sum) {
		return fmt.Errorf("%w: checksum mismatch", ErrCorruptMemento)
	}

	var w mementoWire
	if err := json.Unmarshal(body, &w); err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptMemento, err)
	}
	owner, err := uuid.Parse(w.Owner)
	if err != nil {
		return fmt.Errorf("%w: bad owner id: %v", ErrCorruptMemento, err)
	}
	if len(w.Rows) == 0 {
		return fmt.Errorf("%w: no tile rows", ErrCorruptMemento)
	}

	tiles := make([][]Tile, len(w.Rows))
	width := -1
	for y, row := range w.Rows {
		runes := []rune(row)
		if width == -1 {
			width = len(runes)
		}
		if len(runes) != width || width == 0 {
			return fmt.Errorf("%w: ragged tile rows", ErrCorruptMemento)
		}
		tiles[y] = make([]Tile, width)
		for x, r := range runes {
			t := Tile(r)
			if t.Kind() == KindUnknown {
				return fmt.Errorf("%w: unknown tile %q", ErrCorruptMemento, r)
			}
			tiles[y][x] = t
		}
	}

	*m = Memento{
		owner:     owner,
		tiles:     tiles,
		player:    Point{X: w.PlayerX, Y: w.PlayerY},
		hasPlayer: w.HasPlayer,
	}
	return nil
}
