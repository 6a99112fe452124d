// Package entity provides the hero and the monsters that roam the dungeon.
package entity

// Character is anything that has a glyph on screen and a health pool that
// other parts of the game can change.
type Character interface {
	DisplayChar() rune
	ChangeHealth(delta int)
	Health() int
	IsAlive() bool
}

// clampHealth applies delta to hp and keeps the result within [0, maxHP].
func clampHealth(hp, maxHP, delta int) int {
	hp += delta
	if hp < 0 {
		return 0
	}
	if hp > maxHP {
		return maxHP
	}
	return hp
}
