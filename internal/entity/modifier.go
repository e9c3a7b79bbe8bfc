package entity

import "fmt"

// Attribute is a unit statistic that buffs and debuffs can adjust.
type Attribute int

const (
	AttrAttack Attribute = iota
	AttrDefense
)

// String returns the attribute name.
func (a Attribute) String() string {
	switch a {
	case AttrAttack:
		return "attack"
	case AttrDefense:
		return "defense"
	default:
		return "unknown"
	}
}

// ParseAttribute converts "attack" or "defense" into an Attribute.
func ParseAttribute(s string) (Attribute, error) {
	switch s {
	case "attack":
		return AttrAttack, nil
	case "defense":
		return AttrDefense, nil
	default:
		return 0, fmt.Errorf("unknown attribute %q", s)
	}
}

// MarshalText encodes the attribute as its name.
func (a Attribute) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText decodes an attribute name.
func (a *Attribute) UnmarshalText(text []byte) error {
	parsed, err := ParseAttribute(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Modifier adjusts one attribute by a signed fraction of its base value
// (0.2 is +20%).
type Modifier struct {
	Attribute Attribute `json:"attribute"`
	Magnitude float64   `json:"magnitude"`
}

// minMultiplier caps how far debuffs can reduce a stat: never below 10%.
const minMultiplier = 0.1

// floorEpsilon absorbs float error such as 10*0.7 landing just under 7.
const floorEpsilon = 1e-9

// multiplier sums matching buffs and subtracts matching debuffs. Order does
// not matter.
func multiplier(attr Attribute, buffs, debuffs []Modifier) float64 {
	m := 1.0
	for _, b := range buffs {
		if b.Attribute == attr {
			m += b.Magnitude
		}
	}
	for _, d := range debuffs {
		if d.Attribute == attr {
			m -= d.Magnitude
		}
	}
	return max(minMultiplier, m)
}
