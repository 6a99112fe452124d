package ui

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/uniseg"

	"github.com/samdwyer/dungeonadventure/internal/entity"
	"github.com/samdwyer/dungeonadventure/internal/gamedata"
	"github.com/samdwyer/dungeonadventure/internal/world"
)

// Layout offsets, in terminal cells.
const (
	marginX      = 2
	marginY      = 1
	tileSpacing  = 2 // room tiles are drawn one column apart
	overviewGap  = 4
	overviewCell = 5 // token plus separator
)

// Canvas is the drawing surface the renderer writes to.
type Canvas interface {
	Clear()
	SetContent(x, y int, r rune, style tcell.Style)
	Show()
	Size() (width, height int)
}

// View is everything one frame shows.
type View struct {
	Dungeon *world.Dungeon
	Monster *entity.Monster // lurking in the player's room, may be nil
	Status  string
	Message string
}

// Renderer handles drawing the game to the screen.
type Renderer struct {
	canvas Canvas
	table  *gamedata.TileTable
}

// NewRenderer creates a new renderer for the given canvas. Tile colors come
// from table.
func NewRenderer(canvas Canvas, table *gamedata.TileTable) *Renderer {
	return &Renderer{canvas: canvas, table: table}
}

// Render draws the player's room, the dungeon overview, the status line and
// the last message.
func (r *Renderer) Render(v View) {
	r.canvas.Clear()

	room := v.Dungeon.CharacterLocation()
	roomBottom := r.drawRoom(room)
	overviewBottom := r.drawOverview(v.Dungeon, marginX+room.Width()*tileSpacing+overviewGap)

	y := max(roomBottom, overviewBottom) + 1
	r.drawText(marginX, y, v.Status, tcell.StyleDefault.Foreground(tcell.ColorWhite).Bold(true))
	y++
	if v.Monster != nil {
		r.canvas.SetContent(marginX, y, v.Monster.DisplayChar(), tcell.StyleDefault.Foreground(v.Monster.Color()))
		r.drawText(marginX+2, y, fmt.Sprintf("%s %d/%d", v.Monster.Name, v.Monster.Health(), v.Monster.MaxHP),
			tcell.StyleDefault.Foreground(v.Monster.Color()))
		y++
	}
	r.drawText(marginX, y, v.Message, tcell.StyleDefault.Foreground(tcell.ColorSilver))

	r.canvas.Show()
}

// drawRoom draws the room's tiles with the player on top and returns the
// first row below it.
func (r *Renderer) drawRoom(room *world.Room) int {
	for y := 0; y < room.Height(); y++ {
		for x := 0; x < room.Width(); x++ {
			tile := room.TileAt(x, y)
			r.canvas.SetContent(marginX+x*tileSpacing, marginY+y, tile.Rune(), r.getTileStyle(tile))
		}
	}

	if p, ok := room.PlayerPosition(); ok {
		playerStyle := tcell.StyleDefault.
			Foreground(tcell.ColorYellow).
			Bold(true)
		r.canvas.SetContent(marginX+p.X*tileSpacing, marginY+p.Y, '@', playerStyle)
	}
	return marginY + room.Height()
}

// drawOverview draws the placement grid tokens starting at column x, with
// the player's cell highlighted, and returns the first row below it.
func (r *Renderer) drawOverview(d *world.Dungeon, x int) int {
	current := d.CharacterLocation()
	rooms := d.Rooms()
	for row := range rooms {
		for col, room := range rooms[row] {
			style := r.getTokenStyle(room)
			if room == current {
				style = style.Reverse(true)
			}
			r.drawText(x+col*overviewCell, marginY+row, world.CellToken(room), style)
		}
	}
	return marginY + len(rooms)
}

// getTileStyle returns the style for a tile, colored by the tile table.
func (r *Renderer) getTileStyle(tile world.Tile) tcell.Style {
	style := tcell.StyleDefault.Foreground(r.table.Color(tile.Rune()))
	switch tile.Kind() {
	case world.KindPillar, world.KindEntrance, world.KindExit:
		return style.Bold(true)
	case world.KindWall:
		return style.Dim(true)
	default:
		return style
	}
}

func (r *Renderer) getTokenStyle(room *world.Room) tcell.Style {
	switch {
	case room == nil:
		return tcell.StyleDefault.Foreground(tcell.ColorRed)
	case room.IsEntrance():
		return tcell.StyleDefault.Foreground(r.table.Color(world.TileEntrance.Rune()))
	case room.IsExit():
		return tcell.StyleDefault.Foreground(r.table.Color(world.TileExit.Rune()))
	case room.Pillar() != world.PillarNone:
		return tcell.StyleDefault.Foreground(r.table.Color(room.Pillar().Rune())).Bold(true)
	default:
		return tcell.StyleDefault.Foreground(tcell.ColorGray)
	}
}

// drawText writes s starting at (x, y), advancing by each grapheme's width.
func (r *Renderer) drawText(x, y int, s string, style tcell.Style) {
	g := uniseg.NewGraphemes(s)
	for g.Next() {
		runes := g.Runes()
		r.canvas.SetContent(x, y, runes[0], style)
		x += max(g.Width(), 1)
	}
}
