package model

import (
	"fmt"
	"strings"
)

type Attribute string

const (
	Strength     Attribute = "strength"
	Dexterity    Attribute = "dexterity"
	Agility      Attribute = "agility"
	Vitality     Attribute = "vitality"
	Endurance    Attribute = "endurance"
	Skill        Attribute = "skill"
	Intelligence Attribute = "intelligence"
	Willpower    Attribute = "willpower"
	Faith        Attribute = "faith"
	Spirit       Attribute = "spirit"
	Luck         Attribute = "luck"
	Aptitude     Attribute = "aptitude"
)

// MaxAllocation is the per-attribute allocation cap.
const MaxAllocation = 80

// Attributes is the canonical iteration order.
var Attributes = []Attribute{
	Strength,
	Dexterity,
	Agility,
	Vitality,
	Endurance,
	Skill,
	Intelligence,
	Willpower,
	Faith,
	Spirit,
	Luck,
	Aptitude,
}

func ParseAttribute(s string) (Attribute, error) {
	normalized := Attribute(strings.ToLower(strings.TrimSpace(s)))
	for _, attr := range Attributes {
		if attr == normalized {
			return attr, nil
		}
	}
	return "", fmt.Errorf("unknown attribute: %q", s)
}

// Allocation maps attributes to allocated points.
type Allocation map[Attribute]int

func NewAllocation() Allocation {
	a := make(Allocation, len(Attributes))
	for _, attr := range Attributes {
		a[attr] = 0
	}
	return a
}

func (a Allocation) Clone() Allocation {
	out := make(Allocation, len(Attributes))
	for _, attr := range Attributes {
		out[attr] = a[attr]
	}
	return out
}

func (a Allocation) Total() int {
	total := 0
	for _, attr := range Attributes {
		total += a[attr]
	}
	return total
}

// Key is a stable textual form used for diversity counting.
func (a Allocation) Key() string {
	var b strings.Builder
	for i, attr := range Attributes {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%d", a[attr])
	}
	return b.String()
}
