// Package world provides the battlefield grid, terrain effects and map loading.
package world

import (
	"fmt"
	"math"

	"github.com/samdwyer/skirmish/internal/gamedata"
)

// Terrain represents the kind of a single map cell.
type Terrain int

const (
	TerrainLand Terrain = iota
	TerrainWater
	TerrainMountain
	TerrainForest
	TerrainAir
)

// NumTerrains is the number of terrain kinds.
const NumTerrains = int(TerrainAir) + 1

// AllTerrains lists every terrain in ordinal order.
var AllTerrains = []Terrain{TerrainLand, TerrainWater, TerrainMountain, TerrainForest, TerrainAir}

// String returns the terrain name.
func (t Terrain) String() string {
	switch t {
	case TerrainLand:
		return "land"
	case TerrainWater:
		return "water"
	case TerrainMountain:
		return "mountain"
	case TerrainForest:
		return "forest"
	case TerrainAir:
		return "air"
	default:
		return "unknown"
	}
}

// Code returns the single-character authoring code for the terrain.
func (t Terrain) Code() rune {
	switch t {
	case TerrainLand:
		return 'L'
	case TerrainWater:
		return 'W'
	case TerrainMountain:
		return 'M'
	case TerrainForest:
		return 'F'
	case TerrainAir:
		return 'A'
	default:
		return '?'
	}
}

// Valid reports whether t is one of the defined terrains.
func (t Terrain) Valid() bool {
	return t >= TerrainLand && t <= TerrainAir
}

// ParseTerrainCode converts an authoring code into a Terrain.
func ParseTerrainCode(code rune) (Terrain, error) {
	for _, t := range AllTerrains {
		if t.Code() == code {
			return t, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown terrain code %q", ErrMalformedMap, code)
}

// Impassable is the movement cost of a cell a unit kind cannot enter.
var Impassable = math.Inf(1)

// IsImpassable reports whether a movement cost forbids entry. Check this
// before doing arithmetic with a cost.
func IsImpassable(cost float64) bool {
	return math.IsInf(cost, 1)
}

// movementCosts[terrain][unit kind] is the cost multiplier for entering a cell.
var movementCosts [NumTerrains][gamedata.NumUnitKinds]float64

// combatModifiers[terrain][unit kind] scales combat effectiveness on a cell.
// hasCombatRow marks terrains with a defined row; others report 0 for everyone.
var (
	combatModifiers [NumTerrains][gamedata.NumUnitKinds]float64
	hasCombatRow    [NumTerrains]bool
)

func init() {
	x := Impassable
	//                                    infantry cavalry archer siege naval aircraft
	movementCosts[TerrainLand] = [gamedata.NumUnitKinds]float64{1.0, 1.0, 1.0, 1.5, x, 1.0}
	movementCosts[TerrainWater] = [gamedata.NumUnitKinds]float64{x, x, x, x, 1.0, 1.0}
	movementCosts[TerrainMountain] = [gamedata.NumUnitKinds]float64{2.0, 3.0, 2.0, x, x, 1.0}
	movementCosts[TerrainForest] = [gamedata.NumUnitKinds]float64{1.5, 2.0, 1.5, 2.5, x, 1.0}
	movementCosts[TerrainAir] = [gamedata.NumUnitKinds]float64{x, x, x, x, x, 1.0}

	setCombatRow(TerrainLand, 1.0, 1.0, 1.0, 1.0, 0.5, 1.0)
	setCombatRow(TerrainMountain, 1.2, 0.7, 1.3, 0.5, 0.0, 0.8)
	setCombatRow(TerrainForest, 1.1, 0.8, 0.7, 0.6, 0.0, 0.9)
}

func setCombatRow(t Terrain, mods ...float64) {
	row := [gamedata.NumUnitKinds]float64{}
	for i := range row {
		row[i] = 1.0
	}
	copy(row[:], mods)
	combatModifiers[t] = row
	hasCombatRow[t] = true
}

// MovementCost returns the cost multiplier for a unit kind entering terrain t.
// The result is Impassable when entry is forbidden.
func MovementCost(t Terrain, kind gamedata.UnitKind) float64 {
	if !t.Valid() || !kind.Valid() {
		return Impassable
	}
	return movementCosts[t][kind]
}

// CombatModifier returns the combat effectiveness multiplier for a unit kind
// standing on terrain t. Terrains without a combat row report 0.
func CombatModifier(t Terrain, kind gamedata.UnitKind) float64 {
	if !t.Valid() || !kind.Valid() || !hasCombatRow[t] {
		return 0
	}
	return combatModifiers[t][kind]
}
