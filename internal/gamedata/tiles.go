package gamedata

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/gdamore/tcell/v2"

	"github.com/samdwyer/dungeonadventure/internal/rng"
)

// TileDef describes one tile glyph loaded from JSON.
type TileDef struct {
	Glyph  string `json:"glyph"`  // Single display character (e.g., "^")
	Name   string `json:"name"`   // Human-readable name (e.g., "pit")
	Color  string `json:"color"`  // Hex color code used by the renderer
	Weight int    `json:"weight"` // Relative frequency for interior tiles (0 for fixed tiles)
}

// GlyphRune returns the glyph as a rune.
func (d *TileDef) GlyphRune() rune {
	r, _ := utf8.DecodeRuneInString(d.Glyph)
	if r == utf8.RuneError {
		return '?'
	}
	return r
}

// TilesFile represents the structure of tiles.json.
type TilesFile struct {
	Interior []TileDef `json:"interior"` // Weighted pool for random room interiors
	Fixed    []TileDef `json:"fixed"`    // Structural tiles (walls, doors, markers)
}

// TileTable is the weighted interior tile pool plus render metadata for every glyph.
type TileTable struct {
	interior    []TileDef
	totalWeight int
	byGlyph     map[rune]*TileDef
}

// NewTileTable builds a table from loaded definitions.
func NewTileTable(file TilesFile) (*TileTable, error) {
	t := &TileTable{
		interior: file.Interior,
		byGlyph:  make(map[rune]*TileDef, len(file.Interior)+len(file.Fixed)),
	}
	for i := range file.Interior {
		def := &file.Interior[i]
		if utf8.RuneCountInString(def.Glyph) != 1 {
			return nil, fmt.Errorf("tile %q: glyph must be a single character", def.Name)
		}
		if def.Weight <= 0 {
			return nil, fmt.Errorf("tile %q: interior weight must be positive", def.Name)
		}
		t.totalWeight += def.Weight
		t.byGlyph[def.GlyphRune()] = def
	}
	for i := range file.Fixed {
		def := &file.Fixed[i]
		if utf8.RuneCountInString(def.Glyph) != 1 {
			return nil, fmt.Errorf("tile %q: glyph must be a single character", def.Name)
		}
		t.byGlyph[def.GlyphRune()] = def
	}
	if t.totalWeight == 0 {
		return nil, errors.New("tile table has no interior tiles")
	}
	return t, nil
}

// LoadTileTable loads the table from the embedded tiles.json.
func LoadTileTable() (*TileTable, error) {
	file, err := Load[TilesFile]("tiles.json")
	if err != nil {
		return nil, err
	}
	return NewTileTable(file)
}

// MustLoadTileTable loads the embedded table, panicking on error.
func MustLoadTileTable() *TileTable {
	table, err := LoadTileTable()
	if err != nil {
		panic(err)
	}
	return table
}

// PickInterior selects an interior glyph using weighted probability.
func (t *TileTable) PickInterior(src *rng.Source) rune {
	roll := src.Intn(t.totalWeight)

	cumulative := 0
	for i := range t.interior {
		cumulative += t.interior[i].Weight
		if roll < cumulative {
			return t.interior[i].GlyphRune()
		}
	}

	return t.interior[0].GlyphRune()
}

// InteriorGlyphs returns every glyph that PickInterior can produce.
func (t *TileTable) InteriorGlyphs() []rune {
	glyphs := make([]rune, len(t.interior))
	for i := range t.interior {
		glyphs[i] = t.interior[i].GlyphRune()
	}
	return glyphs
}

// Name returns the display name for a glyph, or the glyph itself if unknown.
func (t *TileTable) Name(glyph rune) string {
	if def, ok := t.byGlyph[glyph]; ok {
		return def.Name
	}
	return string(glyph)
}

// Color returns the render color for a glyph.
func (t *TileTable) Color(glyph rune) tcell.Color {
	def, ok := t.byGlyph[glyph]
	if !ok {
		return tcell.ColorWhite
	}
	color, err := ParseHexColor(def.Color)
	if err != nil {
		return tcell.ColorWhite // fallback
	}
	return color
}
