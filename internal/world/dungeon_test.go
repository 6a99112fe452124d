package world

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func newTestDungeon(t *testing.T, seed int64) *Dungeon {
	t.Helper()
	d, err := New(context.Background(), DefaultConfig(), newTestBuilder(t, seed))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return d
}

func TestDungeonFullOccupancy(t *testing.T) {
	for seed := int64(1); seed <= 20; seed++ {
		d := newTestDungeon(t, seed)
		rooms := d.Rooms()
		if len(rooms) != DefaultHeight {
			t.Fatalf("seed %d: %d rows, want %d", seed, len(rooms), DefaultHeight)
		}
		for row := range rooms {
			if len(rooms[row]) != DefaultWidth {
				t.Fatalf("seed %d: row %d has %d cells", seed, row, len(rooms[row]))
			}
			for col, r := range rooms[row] {
				if r == nil {
					t.Fatalf("seed %d: cell (%d,%d) is empty", seed, row, col)
				}
				gr, gc, ok := r.GridPosition()
				if !ok || gr != row || gc != col {
					t.Errorf("seed %d: room at (%d,%d) reports (%d,%d,%t)", seed, row, col, gr, gc, ok)
				}
			}
		}
	}
}

func TestDungeonEssentialUniqueness(t *testing.T) {
	for seed := int64(1); seed <= 20; seed++ {
		d := newTestDungeon(t, seed)

		entrances, exits := 0, 0
		pillars := map[Pillar]int{}
		for _, row := range d.Rooms() {
			for _, r := range row {
				if r.IsEntrance() {
					entrances++
				}
				if r.IsExit() {
					exits++
				}
				if r.Pillar() != PillarNone {
					pillars[r.Pillar()]++
				}
			}
		}

		if entrances != 1 || exits != 1 {
			t.Errorf("seed %d: %d entrances, %d exits", seed, entrances, exits)
		}
		for _, p := range AllPillars() {
			if pillars[p] != 1 {
				t.Errorf("seed %d: pillar %s appears %d times", seed, p, pillars[p])
			}
			if d.PillarRoom(p) == nil || d.PillarRoom(p).Pillar() != p {
				t.Errorf("seed %d: PillarRoom(%s) mismatch", seed, p)
			}
		}
		if d.Entrance() == d.Exit() {
			t.Errorf("seed %d: entrance and exit share a room", seed)
		}
	}
}

func TestDungeonReachability(t *testing.T) {
	for seed := int64(1); seed <= 20; seed++ {
		d := newTestDungeon(t, seed)

		reached := map[*Room]bool{}
		for _, r := range d.Reachable() {
			reached[r] = true
		}
		if len(reached) != DefaultWidth*DefaultHeight {
			t.Errorf("seed %d: BFS reached %d rooms, want %d", seed, len(reached), DefaultWidth*DefaultHeight)
		}
		if !reached[d.Exit()] {
			t.Errorf("seed %d: exit unreachable", seed)
		}
		for _, p := range AllPillars() {
			if !reached[d.PillarRoom(p)] {
				t.Errorf("seed %d: pillar %s unreachable", seed, p)
			}
		}
	}
}

func TestDungeonDoorSymmetry(t *testing.T) {
	d := newTestDungeon(t, 99)
	rooms := d.Rooms()

	for row := range rooms {
		for col, r := range rooms[row] {
			for _, dir := range AllDirections() {
				n := r.Neighbor(dir)
				dx, dy := dir.Delta()
				nr, nc := row+dy, col+dx
				inGrid := nr >= 0 && nr < d.Height() && nc >= 0 && nc < d.Width()

				if !inGrid {
					if n != nil {
						t.Errorf("(%d,%d) has a %s door leading off the grid", row, col, dir)
					}
					continue
				}
				if n != rooms[nr][nc] {
					t.Errorf("(%d,%d) %s door does not lead to its grid neighbor", row, col, dir)
					continue
				}
				if n.Neighbor(dir.Opposite()) != r {
					t.Errorf("(%d,%d) %s door has no matching door back", row, col, dir)
				}
				p := r.DoorPosition(dir)
				if !r.TileAt(p.X, p.Y).IsDoor() {
					t.Errorf("(%d,%d) %s door link without a door tile", row, col, dir)
				}
			}
		}
	}
}

func TestDungeonString(t *testing.T) {
	d := newTestDungeon(t, 2024)
	out := d.String()

	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	if len(lines) != DefaultHeight {
		t.Fatalf("%d lines, want %d", len(lines), DefaultHeight)
	}
	for i, line := range lines {
		if len(line) != DefaultWidth*(cellTokenWidth+1) {
			t.Errorf("line %d length %d: %q", i, len(line), line)
		}
	}

	if n := strings.Count(out, "ENTR"); n != 1 {
		t.Errorf("ENTR count = %d, want 1", n)
	}
	if n := strings.Count(out, "EXIT"); n != 1 {
		t.Errorf("EXIT count = %d, want 1", n)
	}
	if n := strings.Count(out, "ROOM"); n != DefaultWidth*DefaultHeight-6 {
		t.Errorf("ROOM count = %d, want %d", n, DefaultWidth*DefaultHeight-6)
	}
	for _, p := range AllPillars() {
		token := " " + string(p.Rune()) + "  "
		if n := strings.Count(out, token); n != 1 {
			t.Errorf("pillar token %q count = %d, want 1", token, n)
		}
	}
	if strings.Contains(out, "null") {
		t.Error("generated dungeon should have no null cells")
	}
}

func TestCellTokenNull(t *testing.T) {
	d := &Dungeon{rooms: [][]*Room{{nil, nil}}}
	if got := d.String(); got != "null null \n" {
		t.Errorf("String() = %q", got)
	}
}

func TestDungeonReproducibility(t *testing.T) {
	d1 := newTestDungeon(t, 12345)
	d2 := newTestDungeon(t, 12345)

	if d1.String() != d2.String() {
		t.Fatalf("overview mismatch:\n%s\n%s", d1, d2)
	}

	r1, r2 := d1.Rooms(), d2.Rooms()
	for row := range r1 {
		for col := range r1[row] {
			a, b := r1[row][col], r2[row][col]
			if a.ID() != b.ID() {
				t.Errorf("room id mismatch at (%d,%d)", row, col)
			}
			if a.String() != b.String() {
				t.Errorf("tile mismatch at (%d,%d):\n%s\n%s", row, col, a, b)
			}
		}
	}
}

func TestDungeonDifferentSeeds(t *testing.T) {
	d1 := newTestDungeon(t, 12345)
	d2 := newTestDungeon(t, 54321)

	identical := d1.String() == d2.String()
	if identical {
		r1, r2 := d1.Rooms(), d2.Rooms()
		for row := range r1 {
			for col := range r1[row] {
				if r1[row][col].String() != r2[row][col].String() {
					identical = false
				}
			}
		}
	}
	if identical {
		t.Error("Dungeons with different seeds should not be identical")
	}
}

func TestGenerateWithProvidedRooms(t *testing.T) {
	b := newTestBuilder(t, 77)
	entrance, exit, pillars, err := NewEssentialRooms(b)
	if err != nil {
		t.Fatalf("NewEssentialRooms: %v", err)
	}

	d, err := Generate(context.Background(), DefaultConfig(), b, entrance, exit, pillars)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if d.Entrance() != entrance || d.Exit() != exit {
		t.Error("dungeon should alias the provided entrance and exit rooms")
	}
	for i, p := range AllPillars() {
		if d.PillarRoom(p) != pillars[i] {
			t.Errorf("pillar room %s not aliased", p)
		}
	}
	if d.CharacterLocation() != entrance {
		t.Error("player should start in the entrance room")
	}
	pos, ok := entrance.PlayerPosition()
	if !ok || entrance.TileAt(pos.X, pos.Y) != TileEntrance {
		t.Errorf("player should stand on the entrance marker, at %v (%t)", pos, ok)
	}
}

func TestGenerateRejectsInvalidRooms(t *testing.T) {
	b := newTestBuilder(t, 5)
	entrance, exit, pillars, err := NewEssentialRooms(b)
	if err != nil {
		t.Fatalf("NewEssentialRooms: %v", err)
	}
	ctx := context.Background()
	cfg := DefaultConfig()

	dup := pillars
	dup[1] = pillars[0]
	if _, err := Generate(ctx, cfg, b, entrance, exit, dup); !errors.Is(err, ErrInvalidRoomConfig) {
		t.Errorf("duplicate pillar: %v", err)
	}

	if _, err := Generate(ctx, cfg, b, exit, entrance, pillars); !errors.Is(err, ErrInvalidRoomConfig) {
		t.Errorf("swapped entrance/exit: %v", err)
	}

	plain, _ := b.NewRoom(false, false, PillarNone)
	missing := pillars
	missing[3] = plain
	if _, err := Generate(ctx, cfg, b, entrance, exit, missing); !errors.Is(err, ErrInvalidRoomConfig) {
		t.Errorf("plain room as pillar: %v", err)
	}

	tooSmall := cfg
	tooSmall.Width, tooSmall.Height = 2, 2
	if _, err := Generate(ctx, tooSmall, b, entrance, exit, pillars); !errors.Is(err, ErrInvalidRoomConfig) {
		t.Errorf("2x2 grid: %v", err)
	}
}

func TestGenerateSparseRetriesThenFails(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DoorPolicy = DoorsSparse
	cfg.SparseDoorChance = 0
	cfg.MaxAttempts = 3

	_, err := New(context.Background(), cfg, newTestBuilder(t, 3))
	if !errors.Is(err, ErrGenerationFailed) {
		t.Fatalf("error = %v, want ErrGenerationFailed", err)
	}
	if !strings.Contains(err.Error(), "3 attempts") {
		t.Errorf("error should report the attempt count: %v", err)
	}
}

func TestGenerateSparse(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DoorPolicy = DoorsSparse
	cfg.SparseDoorChance = 0.6
	cfg.MaxAttempts = 200

	d, err := New(context.Background(), cfg, newTestBuilder(t, 8))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if d.Attempts() < 1 {
		t.Errorf("Attempts() = %d", d.Attempts())
	}

	reached := map[*Room]bool{}
	for _, r := range d.Reachable() {
		reached[r] = true
	}
	if !reached[d.Exit()] {
		t.Error("exit unreachable in sparse dungeon")
	}
	for _, p := range AllPillars() {
		if !reached[d.PillarRoom(p)] {
			t.Errorf("pillar %s unreachable in sparse dungeon", p)
		}
	}
}

func TestConfigValidate(t *testing.T) {
	mutate := func(f func(*Config)) Config {
		c := DefaultConfig()
		f(&c)
		return c
	}
	tests := []struct {
		name  string
		cfg   Config
		valid bool
	}{
		{"default", DefaultConfig(), true},
		{"3x2 grid", mutate(func(c *Config) { c.Width, c.Height = 3, 2 }), true},
		{"zero width", mutate(func(c *Config) { c.Width = 0 }), false},
		{"too few cells", mutate(func(c *Config) { c.Width, c.Height = 5, 1 }), false},
		{"tiny rooms", mutate(func(c *Config) { c.RoomHeight = 2 }), false},
		{"no attempts", mutate(func(c *Config) { c.MaxAttempts = 0 }), false},
		{"bad policy", mutate(func(c *Config) { c.DoorPolicy = "maze" }), false},
		{"bad chance", mutate(func(c *Config) { c.SparseDoorChance = 1.5 }), false},
		{"bad walls", mutate(func(c *Config) { c.ExtraWallChance = -0.1 }), false},
	}

	for _, tt := range tests {
		err := tt.cfg.Validate()
		if tt.valid && err != nil {
			t.Errorf("%s: unexpected error %v", tt.name, err)
		}
		if !tt.valid && !errors.Is(err, ErrInvalidRoomConfig) {
			t.Errorf("%s: error = %v, want ErrInvalidRoomConfig", tt.name, err)
		}
	}
}

func TestRoomAt(t *testing.T) {
	d := newTestDungeon(t, 10)
	rooms := d.Rooms()

	r, err := d.RoomAt(2, 3)
	if err != nil || r != rooms[2][3] {
		t.Errorf("RoomAt(2,3) = %v, %v", r, err)
	}
	for _, c := range [][2]int{{-1, 0}, {0, -1}, {DefaultHeight, 0}, {0, DefaultWidth}} {
		if _, err := d.RoomAt(c[0], c[1]); !errors.Is(err, ErrOutOfBounds) {
			t.Errorf("RoomAt(%d,%d) error = %v", c[0], c[1], err)
		}
	}
}

// walkToEdge moves the player toward dir until the current room sits on
// that edge of the grid.
func walkToEdge(t *testing.T, d *Dungeon, dir Direction) {
	t.Helper()
	for d.CharacterLocation().HasDoor(dir) {
		if _, err := d.Move(dir); err != nil {
			t.Fatalf("Move(%s): %v", dir, err)
		}
	}
}

func TestMoveNoPassage(t *testing.T) {
	d := newTestDungeon(t, 21)
	walkToEdge(t, d, North)

	before := d.CharacterLocation()
	pos, _ := before.PlayerPosition()
	tiles := before.String()

	_, err := d.Move(North)
	if !errors.Is(err, ErrNoPassage) {
		t.Fatalf("Move(North) at edge: %v, want ErrNoPassage", err)
	}
	if d.CharacterLocation() != before {
		t.Error("rejected move changed the player's room")
	}
	if after, ok := before.PlayerPosition(); !ok || after != pos {
		t.Error("rejected move changed the player's tile")
	}
	if before.String() != tiles {
		t.Error("rejected move changed room state")
	}
}

func TestMoveThroughDoor(t *testing.T) {
	d := newTestDungeon(t, 22)
	walkToEdge(t, d, West)

	from := d.CharacterLocation()
	want := from.Neighbor(East)
	if want == nil {
		t.Fatal("a 6-wide grid always has an east neighbor on the west edge")
	}

	res, err := d.Move(East)
	if err != nil {
		t.Fatalf("Move(East): %v", err)
	}
	if d.CharacterLocation() != want || res.To != want || res.From != from {
		t.Error("player did not arrive in the east neighbor")
	}
	if from.HasPlayer() {
		t.Error("previous room still holds the player")
	}
	pos, ok := want.PlayerPosition()
	if !ok || pos != want.EntryPosition(West) || res.Position != pos {
		t.Errorf("player at %v (%t), want entry %v", pos, ok, want.EntryPosition(West))
	}
	if res.FellIntoPit != (want.TileAt(pos.X, pos.Y) == TilePit) {
		t.Error("FellIntoPit does not match the entry tile")
	}
}

func TestStepThroughDoor(t *testing.T) {
	d := newTestDungeon(t, 23)
	walkToEdge(t, d, North)

	room := d.CharacterLocation()
	south := room.Neighbor(South)
	entry := room.EntryPosition(South)
	if err := room.SetPlayerPosition(entry.X, entry.Y); err != nil {
		t.Fatalf("SetPlayerPosition: %v", err)
	}

	out, err := d.Step(South)
	if err != nil {
		t.Fatalf("Step(South): %v", err)
	}
	if !out.Moved || d.CharacterLocation() != south {
		t.Fatalf("stepping into the south door should change rooms: %+v", out)
	}
	if p, _ := south.PlayerPosition(); p != south.EntryPosition(North) {
		t.Errorf("arrived at %v, want %v", p, south.EntryPosition(North))
	}
}

func TestDungeonSnapshotRestore(t *testing.T) {
	d := newTestDungeon(t, 31)
	start := d.CharacterLocation()
	want := d.String()
	wantRooms := map[*Room]string{}
	for _, row := range d.Rooms() {
		for _, r := range row {
			wantRooms[r] = r.String()
		}
	}

	snap := d.Snapshot()

	walkToEdge(t, d, South)
	walkToEdge(t, d, East)
	d.CharacterLocation().tiles[1][1] = TileWall

	if err := d.Restore(snap); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if d.CharacterLocation() != start {
		t.Error("location not restored")
	}
	if d.String() != want {
		t.Error("overview changed after restore")
	}
	for r, s := range wantRooms {
		if r.String() != s {
			t.Errorf("room %s not restored:\n%s\nwant\n%s", r.ID(), r, s)
		}
	}
}

func TestDungeonRestoreForeignSnapshot(t *testing.T) {
	d1 := newTestDungeon(t, 40)
	d2 := newTestDungeon(t, 41)
	before := d1.CharacterLocation().String()

	if err := d1.Restore(d2.Snapshot()); !errors.Is(err, ErrForeignMemento) {
		t.Errorf("foreign snapshot: %v", err)
	}
	if err := d1.Restore(nil); !errors.Is(err, ErrForeignMemento) {
		t.Errorf("nil snapshot: %v", err)
	}
	if d1.CharacterLocation().String() != before {
		t.Error("failed restore modified the dungeon")
	}
}

func TestDungeonRestoreRejectsMixedSnapshot(t *testing.T) {
	d := newTestDungeon(t, 42)
	start := d.CharacterLocation()
	before := d.Snapshot()
	if _, err := d.Move(start.Doors()[0]); err != nil {
		t.Fatalf("Move: %v", err)
	}
	after := d.Snapshot()
	current := d.CharacterLocation()

	cellsOf := func(s *Snapshot) [][]*Memento {
		cells := make([][]*Memento, d.Height())
		for row := range cells {
			cells[row] = make([]*Memento, d.Width())
		}
		s.Each(func(row, col int, m *Memento) { cells[row][col] = m })
		return cells
	}

	// Player room taken from one snapshot, room contents from the other.
	noPlayer := NewSnapshot(after.Location(), cellsOf(before))

	// Both the old and the new player room claim the player.
	twoPlayers := cellsOf(after)
	row, col, _ := start.GridPosition()
	twoPlayers[row][col] = cellsOf(before)[row][col]

	tests := []struct {
		name string
		snap *Snapshot
	}{
		{"location room without player", noPlayer},
		{"player in two rooms", NewSnapshot(after.Location(), twoPlayers)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := d.Restore(tt.snap); !errors.Is(err, ErrForeignMemento) {
				t.Fatalf("Restore: %v", err)
			}
			if d.CharacterLocation() != current || !current.HasPlayer() || start.HasPlayer() {
				t.Error("rejected restore moved the player")
			}
		})
	}

	if _, err := d.Step(current.Doors()[0]); err != nil && !errors.Is(err, ErrBlocked) {
		t.Errorf("Step after rejected restores: %v", err)
	}
}

func TestMovePicksUpEntryItem(t *testing.T) {
	d := newTestDungeon(t, 43)
	from := d.CharacterLocation()
	dir := from.Doors()[0]
	to := from.Neighbor(dir)
	entry := to.EntryPosition(dir.Opposite())
	to.tiles[entry.Y][entry.X] = TileVisionPotion

	res, err := d.Move(dir)
	if err != nil {
		t.Fatalf("Move: %v", err)
	}
	if res.PickedUp != TileVisionPotion {
		t.Errorf("PickedUp = %q, want V", res.PickedUp.Rune())
	}
	if to.TileAt(entry.X, entry.Y) != TileEmpty {
		t.Errorf("entry tile = %q after pickup, want floor", to.TileAt(entry.X, entry.Y).Rune())
	}

	// Walking back in through the door reports the pickup on the step too.
	back := from.EntryPosition(dir)
	from.tiles[back.Y][back.X] = TileHealthPotion
	if err := to.SetPlayerPosition(entry.X, entry.Y); err != nil {
		t.Fatalf("SetPlayerPosition: %v", err)
	}
	out, err := d.Step(dir.Opposite())
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if !out.Moved || out.PickedUp != TileHealthPotion {
		t.Errorf("step through door: moved %t picked up %q", out.Moved, out.PickedUp.Rune())
	}
}

func TestSnapshotEachAndRebuild(t *testing.T) {
	d := newTestDungeon(t, 50)
	snap := d.Snapshot()

	cells := make([][]*Memento, d.Height())
	for row := range cells {
		cells[row] = make([]*Memento, d.Width())
	}
	count := 0
	snap.Each(func(row, col int, m *Memento) {
		data, err := m.MarshalBinary()
		if err != nil {
			t.Fatalf("MarshalBinary: %v", err)
		}
		var decoded Memento
		if err := decoded.UnmarshalBinary(data); err != nil {
			t.Fatalf("UnmarshalBinary: %v", err)
		}
		cells[row][col] = &decoded
		count++
	})
	if count != d.Width()*d.Height() {
		t.Fatalf("Each visited %d cells", count)
	}

	walkToEdge(t, d, North)
	if err := d.Restore(NewSnapshot(snap.Location(), cells)); err != nil {
		t.Fatalf("Restore rebuilt snapshot: %v", err)
	}
	if d.CharacterLocation() != d.Entrance() {
		t.Error("rebuilt snapshot did not restore the location")
	}
}
