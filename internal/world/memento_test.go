package world

import (
	"context"
	"errors"
	"testing"
)

func TestMementoRoundTrip(t *testing.T) {
	room, err := NewRoomFromTiles(sampleTiles())
	if err != nil {
		t.Fatalf("NewRoomFromTiles: %v", err)
	}
	if err := room.SetPlayerPosition(1, 1); err != nil {
		t.Fatalf("SetPlayerPosition: %v", err)
	}
	want := room.String()
	wantTiles := room.Tiles()

	m := room.CreateMemento()

	// Mutate the live room after the snapshot.
	room.tiles[1][2] = TileWall
	if err := room.SetPlayerPosition(1, 2); err != nil {
		t.Fatalf("SetPlayerPosition: %v", err)
	}
	if room.String() == want {
		t.Fatal("mutation did not change the room")
	}

	if err := room.RestoreFromMemento(m); err != nil {
		t.Fatalf("RestoreFromMemento: %v", err)
	}
	if got := room.String(); got != want {
		t.Errorf("restored room = %q, want %q", got, want)
	}
	got := room.Tiles()
	for y := range wantTiles {
		for x := range wantTiles[y] {
			if got[y][x] != wantTiles[y][x] {
				t.Errorf("tile (%d,%d) = %q, want %q", x, y, got[y][x].Rune(), wantTiles[y][x].Rune())
			}
		}
	}
	if p, ok := room.PlayerPosition(); !ok || p != (Point{X: 1, Y: 1}) {
		t.Errorf("player = %v, %t, want (1,1)", p, ok)
	}
}

func TestMementoIsIndependent(t *testing.T) {
	room, _ := NewRoomFromTiles(sampleTiles())
	m := room.CreateMemento()

	if err := room.RestoreFromMemento(m); err != nil {
		t.Fatalf("RestoreFromMemento: %v", err)
	}
	// Mutating the room after a restore must not reach into the memento.
	room.tiles[1][1] = TileWall
	if m.tiles[1][1] != TileEmpty {
		t.Error("memento aliased by the restored room")
	}

	if err := room.RestoreFromMemento(m); err != nil {
		t.Fatalf("RestoreFromMemento: %v", err)
	}
	if room.TileAt(1, 1) != TileEmpty {
		t.Error("second restore did not reset the tile")
	}
}

func TestRestoreForeignMemento(t *testing.T) {
	a, _ := NewRoomFromTiles(sampleTiles())
	b, _ := NewRoomFromTiles(sampleTiles())

	if err := b.RestoreFromMemento(a.CreateMemento()); !errors.Is(err, ErrForeignMemento) {
		t.Errorf("foreign memento: %v", err)
	}
	if err := b.RestoreFromMemento(nil); !errors.Is(err, ErrForeignMemento) {
		t.Errorf("nil memento: %v", err)
	}
}

func TestMementoBinaryRoundTrip(t *testing.T) {
	b := newTestBuilder(t, 11)
	room, err := b.NewRoom(false, false, PillarPolymorphism)
	if err != nil {
		t.Fatalf("NewRoom: %v", err)
	}
	e := room.EntryPosition(South)
	if err := room.SetPlayerPosition(e.X, e.Y); err != nil {
		t.Fatalf("SetPlayerPosition: %v", err)
	}
	want := room.String()

	data, err := room.CreateMemento().MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary: %v", err)
	}

	room.ClearPlayer()
	room.tiles[e.Y][e.X] = TileWall

	var decoded Memento
	if err := decoded.UnmarshalBinary(data); err != nil {
		t.Fatalf("UnmarshalBinary: %v", err)
	}
	if err := room.RestoreFromMemento(&decoded); err != nil {
		t.Fatalf("RestoreFromMemento: %v", err)
	}
	if got := room.String(); got != want {
		t.Errorf("decoded restore = %q, want %q", got, want)
	}
}

func TestMementoUnmarshalCorrupt(t *testing.T) {
	room, _ := NewRoomFromTiles(sampleTiles())
	data, err := room.CreateMemento().MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary: %v", err)
	}

	flipped := append([]byte(nil), data...)
	flipped[3] ^= 0xFF

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"short", data[:4]},
		{"flipped byte", flipped},
		{"truncated", data[:len(data)-1]},
	}
	for _, tt := range tests {
		var m Memento
		if err := m.UnmarshalBinary(tt.data); !errors.Is(err, ErrCorruptMemento) {
			t.Errorf("%s: error = %v, want ErrCorruptMemento", tt.name, err)
		}
	}
}

func TestRestoreRejectsMementoBeforeDoors(t *testing.T) {
	b := newTestBuilder(t, 12)
	entrance, exit, pillars, err := NewEssentialRooms(b)
	if err != nil {
		t.Fatalf("NewEssentialRooms: %v", err)
	}
	stale := entrance.CreateMemento()

	if _, err := Generate(context.Background(), DefaultConfig(), b, entrance, exit, pillars); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	want := entrance.String()

	if err := entrance.RestoreFromMemento(stale); !errors.Is(err, ErrForeignMemento) {
		t.Fatalf("restoring a memento taken before doors were carved: %v", err)
	}
	if entrance.String() != want {
		t.Error("rejected restore modified the room")
	}
	for _, d := range entrance.Doors() {
		p := entrance.DoorPosition(d)
		if !entrance.TileAt(p.X, p.Y).IsDoor() {
			t.Errorf("%s door tile = %q after rejected restore", d, entrance.TileAt(p.X, p.Y).Rune())
		}
	}
	if !entrance.HasPlayer() {
		t.Error("player removed from the entrance by a rejected restore")
	}
}

func TestRestoreRejectsMementoAfterConnect(t *testing.T) {
	a, _ := NewRoomFromTiles(sampleTiles())
	b, _ := NewRoomFromTiles(sampleTiles())
	m := a.CreateMemento()

	if err := Connect(a, b, East); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := a.RestoreFromMemento(m); !errors.Is(err, ErrForeignMemento) {
		t.Errorf("memento without the east door: %v", err)
	}
	if p := a.DoorPosition(East); !a.TileAt(p.X, p.Y).IsDoor() {
		t.Error("east door was walled up")
	}

	// A memento taken after connecting restores cleanly.
	if err := a.RestoreFromMemento(a.CreateMemento()); err != nil {
		t.Errorf("restoring a current memento: %v", err)
	}
}
