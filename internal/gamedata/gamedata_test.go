package gamedata

import (
	"strings"
	"testing"
	"testing/fstest"

	"github.com/samdwyer/dungeonadventure/internal/rng"
)

func TestLoadTileTable(t *testing.T) {
	table, err := LoadTileTable()
	if err != nil {
		t.Fatalf("Failed to load tile table: %v", err)
	}

	glyphs := table.InteriorGlyphs()
	if len(glyphs) != 4 {
		t.Fatalf("Expected 4 interior glyphs, got %d", len(glyphs))
	}

	if got := table.Name('^'); got != "pit" {
		t.Errorf("Name('^') = %q, want %q", got, "pit")
	}
	if got := table.Name('?'); got != "?" {
		t.Errorf("Name('?') = %q, want %q", got, "?")
	}
	if table.Color('#') == 0 {
		t.Error("Color('#') returned zero color")
	}
}

func TestPickInteriorDeterministic(t *testing.T) {
	table := MustLoadTileTable()
	src1 := rng.New(12345)
	src2 := rng.New(12345)

	allowed := map[rune]bool{}
	for _, g := range table.InteriorGlyphs() {
		allowed[g] = true
	}

	for i := 0; i < 200; i++ {
		a, b := table.PickInterior(src1), table.PickInterior(src2)
		if a != b {
			t.Fatalf("Pick %d mismatch: %c != %c", i, a, b)
		}
		if !allowed[a] {
			t.Fatalf("Pick %d returned non-interior glyph %c", i, a)
		}
	}
}

func TestNewTileTableRejectsBadDefs(t *testing.T) {
	tests := []struct {
		name string
		file TilesFile
	}{
		{"empty", TilesFile{}},
		{"zero weight", TilesFile{Interior: []TileDef{{Glyph: ".", Name: "floor"}}}},
		{"long glyph", TilesFile{Interior: []TileDef{{Glyph: "..", Name: "floor", Weight: 1}}}},
	}

	for _, tt := range tests {
		if _, err := NewTileTable(tt.file); err == nil {
			t.Errorf("%s: expected error, got nil", tt.name)
		}
	}
}

func TestMonsterRegistry(t *testing.T) {
	registry, err := LoadMonsterRegistry()
	if err != nil {
		t.Fatalf("Failed to load registry: %v", err)
	}

	if registry.Count() != 3 {
		t.Errorf("Expected 3 monster types, got %d", registry.Count())
	}

	ogre := registry.GetByID("ogre")
	if ogre == nil {
		t.Fatal("Ogre not found by ID")
	}
	if ogre.Name != "Ogre" || ogre.GlyphRune() != 'O' {
		t.Errorf("Unexpected ogre definition: %+v", ogre)
	}
	if ogre.MinHeal > ogre.MaxHeal {
		t.Errorf("Ogre heal range inverted: %d > %d", ogre.MinHeal, ogre.MaxHeal)
	}

	src1, src2 := rng.New(7), rng.New(7)
	for i := 0; i < 10; i++ {
		if a, b := registry.SpawnRandom(src1).ID, registry.SpawnRandom(src2).ID; a != b {
			t.Errorf("Spawn %d mismatch: %s != %s", i, a, b)
		}
	}
}

func TestParseHexColor(t *testing.T) {
	tests := []struct {
		input string
		valid bool
	}{
		{"#FF0000", true},
		{"FF0000", true},
		{"#00ff00", true},
		{"#FFFFFF", true},
		{"invalid", false},
		{"#FFF", false},
		{"#GG0000", false},
	}

	for _, tt := range tests {
		_, err := ParseHexColor(tt.input)
		if tt.valid && err != nil {
			t.Errorf("ParseHexColor(%q) should be valid, got error: %v", tt.input, err)
		}
		if !tt.valid && err == nil {
			t.Errorf("ParseHexColor(%q) should be invalid, got no error", tt.input)
		}
	}
}

func TestLoadMessages(t *testing.T) {
	po, err := LoadMessages(DefaultLanguage)
	if err != nil {
		t.Fatalf("LoadMessages: %v", err)
	}

	got := po.Get("NO_PASSAGE", "north")
	if !strings.Contains(got, "north") || strings.Contains(got, "NO_PASSAGE") {
		t.Errorf("Get(NO_PASSAGE) = %q", got)
	}

	if _, err := LoadMessages("xx"); err == nil {
		t.Error("expected error for missing catalog")
	}
}

func TestLoadFrom(t *testing.T) {
	fsys := fstest.MapFS{
		"tiles.json":  {Data: []byte(`{"interior":[{"glyph":".","name":"floor","color":"#808080","weight":1}]}`)},
		"broken.json": {Data: []byte(`{"interior":`)},
	}

	file, err := LoadFrom[TilesFile](fsys, "tiles.json")
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if len(file.Interior) != 1 || file.Interior[0].Name != "floor" {
		t.Errorf("interior = %+v", file.Interior)
	}

	if _, err := LoadFrom[TilesFile](fsys, "broken.json"); err == nil {
		t.Error("expected a parse error")
	}
	if _, err := LoadFrom[TilesFile](fsys, "missing.json"); err == nil {
		t.Error("expected a read error")
	}
}
