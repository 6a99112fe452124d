package world

// Pillar identifies one of the four collectible pillars. Each kind is placed
// in exactly one room of a dungeon.
type Pillar int

const (
	PillarNone Pillar = iota
	PillarAbstraction
	PillarEncapsulation
	PillarInheritance
	PillarPolymorphism
)

// AllPillars returns the four pillar kinds in a fixed order.
func AllPillars() [4]Pillar {
	return [4]Pillar{PillarAbstraction, PillarEncapsulation, PillarInheritance, PillarPolymorphism}
}

// PillarFromRune returns the pillar displayed as r, or PillarNone.
func PillarFromRune(r rune) Pillar {
	for _, p := range AllPillars() {
		if p.Rune() == r {
			return p
		}
	}
	return PillarNone
}

// IsValid returns true for the four real pillar kinds.
func (p Pillar) IsValid() bool {
	return p >= PillarAbstraction && p <= PillarPolymorphism
}

// Rune returns the pillar's display character.
func (p Pillar) Rune() rune {
	switch p {
	case PillarAbstraction:
		return 'A'
	case PillarEncapsulation:
		return 'E'
	case PillarInheritance:
		return 'I'
	case PillarPolymorphism:
		return 'P'
	default:
		return 0
	}
}

// Tile returns the marker tile for the pillar.
func (p Pillar) Tile() Tile {
	return Tile(p.Rune())
}

// String returns the pillar's name.
func (p Pillar) String() string {
	switch p {
	case PillarAbstraction:
		return "Abstraction"
	case PillarEncapsulation:
		return "Encapsulation"
	case PillarInheritance:
		return "Inheritance"
	case PillarPolymorphism:
		return "Polymorphism"
	default:
		return "none"
	}
}

// index returns the pillar's slot in a [4] array. Only valid pillars have one.
func (p Pillar) index() int {
	return int(p - PillarAbstraction)
}
