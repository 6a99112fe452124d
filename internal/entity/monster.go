package entity

import (
	"github.com/gdamore/tcell/v2"

	"github.com/samdwyer/dungeonadventure/internal/gamedata"
	"github.com/samdwyer/dungeonadventure/internal/rng"
)

// HealthHook runs after a monster's health changes. delta is the requested
// change, not the clamped one.
type HealthHook func(m *Monster, delta int)

// Monster represents a hostile creature in the dungeon.
type Monster struct {
	Def   *gamedata.MonsterDef // Reference to the monster definition
	Name  string               // Display name (e.g., "Ogre")
	HP    int                  // Current hit points
	MaxHP int                  // Maximum hit points

	hooks []HealthHook
}

// NewMonster creates a monster from a data-driven definition. Hooks run in
// the order given after every health change.
func NewMonster(def *gamedata.MonsterDef, hooks ...HealthHook) *Monster {
	return &Monster{
		Def:   def,
		Name:  def.Name,
		HP:    def.HP,
		MaxHP: def.HP,
		hooks: hooks,
	}
}

// AddHook appends a post-health-change hook.
func (m *Monster) AddHook(h HealthHook) {
	m.hooks = append(m.hooks, h)
}

// DisplayChar returns the monster's map glyph.
func (m *Monster) DisplayChar() rune { return m.Def.GlyphRune() }

// Color returns the tcell color for this monster.
func (m *Monster) Color() tcell.Color { return m.Def.TCellColor() }

// ID returns the monster's type identifier.
func (m *Monster) ID() string { return m.Def.ID }

// ChangeHealth adds delta to HP, clamped to [0, MaxHP], then runs the
// monster's hooks.
func (m *Monster) ChangeHealth(delta int) {
	m.HP = clampHealth(m.HP, m.MaxHP, delta)
	for _, h := range m.hooks {
		h(m, delta)
	}
}

// Health returns current HP.
func (m *Monster) Health() int { return m.HP }

// IsAlive returns true if the monster has HP remaining.
func (m *Monster) IsAlive() bool { return m.HP > 0 }

// HealHook returns a hook that, while the monster is still alive, rolls
// against its heal chance and restores between MinHeal and MaxHeal HP.
// The heal itself sets HP directly so it does not retrigger hooks.
func HealHook(src *rng.Source) HealthHook {
	return func(m *Monster, _ int) {
		if m.HP <= 0 || m.Def == nil {
			return
		}
		if !src.Chance(m.Def.HealChance) {
			return
		}
		amount := m.Def.MinHeal
		if m.Def.MaxHeal > m.Def.MinHeal {
			amount = src.IntBetween(m.Def.MinHeal, m.Def.MaxHeal+1)
		}
		m.HP = clampHealth(m.HP, m.MaxHP, amount)
	}
}

// SpawnMonster picks a weighted random definition from the registry and
// builds a monster that heals itself with src. It returns nil when the
// registry is empty.
func SpawnMonster(reg *gamedata.MonsterRegistry, src *rng.Source) *Monster {
	def := reg.SpawnRandom(src)
	if def == nil {
		return nil
	}
	return NewMonster(def, HealHook(src))
}

var _ Character = (*Monster)(nil)
