package gamedata

import (
	"fmt"
	"maps"

	"github.com/gdamore/tcell/v2"
)

// UnitKind is one of the six combat unit archetypes.
type UnitKind int

const (
	Infantry UnitKind = iota
	Cavalry
	Archer
	Siege
	Naval
	Aircraft
)

// NumUnitKinds is the number of unit kinds, for sizing lookup tables.
const NumUnitKinds = int(Aircraft) + 1

// AllUnitKinds lists every unit kind in ordinal order.
var AllUnitKinds = []UnitKind{Infantry, Cavalry, Archer, Siege, Naval, Aircraft}

// String returns the unit kind identifier used in data files and views.
func (k UnitKind) String() string {
	switch k {
	case Infantry:
		return "infantry"
	case Cavalry:
		return "cavalry"
	case Archer:
		return "archer"
	case Siege:
		return "siege"
	case Naval:
		return "naval"
	case Aircraft:
		return "aircraft"
	default:
		return "unknown"
	}
}

// Valid reports whether k is one of the defined unit kinds.
func (k UnitKind) Valid() bool {
	return k >= Infantry && k <= Aircraft
}

// ParseUnitKind converts an identifier such as "archer" into a UnitKind.
func ParseUnitKind(s string) (UnitKind, error) {
	for _, k := range AllUnitKinds {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown unit kind %q", s)
}

// MarshalText encodes the kind as its identifier.
func (k UnitKind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("invalid unit kind %d", int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText decodes a kind identifier.
func (k *UnitKind) UnmarshalText(text []byte) error {
	parsed, err := ParseUnitKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// BaseStats are the immutable per-kind statistics every unit starts from.
type BaseStats struct {
	Health   int
	Attack   int
	Defense  int
	Movement int
	MinRange int
	MaxRange int
	Vision   int
	Cost     map[string]int
}

// UnitDef defines a unit kind loaded from JSON.
type UnitDef struct {
	ID       UnitKind       `json:"id"`       // Unit kind identifier (e.g., "archer")
	Name     string         `json:"name"`     // Display name
	Glyph    string         `json:"glyph"`    // Single character for rendering
	Color    string         `json:"color"`    // Hex color code
	Health   int            `json:"health"`   // Maximum health
	Attack   int            `json:"attack"`   // Base attack
	Defense  int            `json:"defense"`  // Base defense
	Movement int            `json:"movement"` // Movement allowance per turn
	Range    [2]int         `json:"range"`    // Inclusive Manhattan attack range (min, max)
	Vision   int            `json:"vision"`   // Vision radius
	Cost     map[string]int `json:"cost"`     // Recruitment cost by resource
}

// Stats returns the definition's base stats. The cost map is a fresh copy.
func (d *UnitDef) Stats() BaseStats {
	return BaseStats{
		Health:   d.Health,
		Attack:   d.Attack,
		Defense:  d.Defense,
		Movement: d.Movement,
		MinRange: d.Range[0],
		MaxRange: d.Range[1],
		Vision:   d.Vision,
		Cost:     maps.Clone(d.Cost),
	}
}

// GlyphRune returns the glyph as a rune for rendering.
func (d *UnitDef) GlyphRune() rune {
	if len(d.Glyph) == 0 {
		return '?'
	}
	return rune(d.Glyph[0])
}

// TCellColor returns the color as a tcell.Color.
func (d *UnitDef) TCellColor() tcell.Color {
	color, err := ParseHexColor(d.Color)
	if err != nil {
		return tcell.ColorWhite
	}
	return color
}

// UnitsFile represents the structure of units.json.
type UnitsFile struct {
	Units []UnitDef `json:"units"`
}

// LoadUnits loads unit definitions from the embedded units.json file.
func LoadUnits() ([]UnitDef, error) {
	file, err := Load[UnitsFile]("units.json")
	if err != nil {
		return nil, err
	}
	return file.Units, nil
}
