package entity

import (
	"github.com/zyedidia/generic/mapset"

	"github.com/samdwyer/dungeonadventure/internal/world"
)

const (
	// DefaultHeroHP is the starting and maximum health of a new hero.
	DefaultHeroHP = 100

	heroGlyph = '@'
)

// Hero is the player character.
type Hero struct {
	Name          string
	HP, MaxHP     int
	HealthPotions int
	VisionPotions int

	pillars mapset.Set[world.Pillar]
}

// NewHero creates a hero at full health with nothing collected.
func NewHero(name string, maxHP int) *Hero {
	if maxHP <= 0 {
		maxHP = DefaultHeroHP
	}
	return &Hero{
		Name:    name,
		HP:      maxHP,
		MaxHP:   maxHP,
		pillars: mapset.New[world.Pillar](),
	}
}

// DisplayChar returns the hero's map glyph.
func (h *Hero) DisplayChar() rune { return heroGlyph }

// ChangeHealth adds delta to the hero's HP, clamped to [0, MaxHP].
func (h *Hero) ChangeHealth(delta int) {
	h.HP = clampHealth(h.HP, h.MaxHP, delta)
}

// Health returns current HP.
func (h *Hero) Health() int { return h.HP }

// IsAlive returns true if the hero has HP remaining.
func (h *Hero) IsAlive() bool { return h.HP > 0 }

// Collect adds a picked-up tile to the hero's inventory. It returns false
// for tiles that cannot be collected.
func (h *Hero) Collect(t world.Tile) bool {
	switch {
	case t == world.TileHealthPotion:
		h.HealthPotions++
	case t == world.TileVisionPotion:
		h.VisionPotions++
	case t.Kind() == world.KindPillar:
		h.pillars.Put(world.PillarFromRune(t.Rune()))
	default:
		return false
	}
	return true
}

// HasPillar reports whether the hero has collected pillar p.
func (h *Hero) HasPillar(p world.Pillar) bool {
	return h.pillars.Has(p)
}

// PillarCount returns how many distinct pillars the hero holds.
func (h *Hero) PillarCount() int {
	return h.pillars.Size()
}

// HasAllPillars reports whether the hero holds all four pillars.
func (h *Hero) HasAllPillars() bool {
	for _, p := range world.AllPillars() {
		if !h.pillars.Has(p) {
			return false
		}
	}
	return true
}

// Pillars returns the collected pillars in canonical order.
func (h *Hero) Pillars() []world.Pillar {
	var out []world.Pillar
	for _, p := range world.AllPillars() {
		if h.pillars.Has(p) {
			out = append(out, p)
		}
	}
	return out
}

// Clone returns an independent copy of the hero.
func (h *Hero) Clone() *Hero {
	c := *h
	c.pillars = mapset.New[world.Pillar]()
	h.pillars.Each(func(p world.Pillar) {
		c.pillars.Put(p)
	})
	return &c
}

var _ Character = (*Hero)(nil)
