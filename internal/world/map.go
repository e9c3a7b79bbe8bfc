package world

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/samdwyer/skirmish/internal/gamedata"
)

var (
	// ErrOutOfBounds is returned for positions outside the map extents.
	ErrOutOfBounds = errors.New("position out of bounds")
	// ErrUnknownMap is returned when a named map has no definition.
	ErrUnknownMap = gamedata.ErrUnknownMap
	// ErrMalformedMap is returned for map definitions that fail validation.
	ErrMalformedMap = errors.New("malformed map definition")
)

// Mover is anything with a unit kind that can occupy map cells.
type Mover interface {
	UnitKind() gamedata.UnitKind
}

// Map is a fixed-size grid of terrain plus per-player spawn points.
type Map struct {
	Name        string
	DisplayName string
	Description string
	Width       int
	Height      int

	cells  [][]Terrain // cells[y][x]
	spawns map[string][]Position
}

// New creates a width x height map filled with a single terrain.
func New(name string, width, height int, fill Terrain) (*Map, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: size %dx%d must be positive", ErrMalformedMap, width, height)
	}
	cells := make([][]Terrain, height)
	for y := range cells {
		cells[y] = make([]Terrain, width)
		for x := range cells[y] {
			cells[y][x] = fill
		}
	}
	return &Map{
		Name:        name,
		DisplayName: name,
		Width:       width,
		Height:      height,
		cells:       cells,
		spawns:      make(map[string][]Position),
	}, nil
}

// FromDef builds a map from an authored definition. Every row must be exactly
// Width codes long and there must be exactly Height rows.
func FromDef(def *gamedata.MapDef) (*Map, error) {
	m, err := New(def.ID, def.Width, def.Height, TerrainLand)
	if err != nil {
		return nil, fmt.Errorf("map %s: %w", def.ID, err)
	}
	m.DisplayName = def.Name
	m.Description = def.Description

	if len(def.Terrain) != def.Height {
		return nil, fmt.Errorf("%w: map %s has %d rows, declared height %d",
			ErrMalformedMap, def.ID, len(def.Terrain), def.Height)
	}
	for y, row := range def.Terrain {
		codes := []rune(row)
		if len(codes) != def.Width {
			return nil, fmt.Errorf("%w: map %s row %d has %d cells, declared width %d",
				ErrMalformedMap, def.ID, y, len(codes), def.Width)
		}
		for x, code := range codes {
			t, err := ParseTerrainCode(code)
			if err != nil {
				return nil, fmt.Errorf("map %s cell (%d,%d): %w", def.ID, x, y, err)
			}
			m.cells[y][x] = t
		}
	}

	for player, points := range def.SpawnPoints {
		positions := make([]Position, len(points))
		for i, p := range points {
			positions[i] = Position{X: p[0], Y: p[1]}
		}
		m.spawns[player] = positions
	}
	return m, nil
}

var registry = sync.OnceValues(gamedata.LoadMapRegistry)

// Load builds the named map from the embedded map definitions. An unknown
// name is an error; there is no fallback map.
func Load(name string) (*Map, error) {
	reg, err := registry()
	if err != nil {
		return nil, err
	}
	def, err := reg.Get(name)
	if err != nil {
		return nil, err
	}
	return FromDef(def)
}

// Names returns the ids of the embedded maps.
func Names() []string {
	reg, err := registry()
	if err != nil {
		return nil
	}
	return reg.IDs()
}

// InBounds reports whether pos lies inside [0,Width) x [0,Height).
func (m *Map) InBounds(pos Position) bool {
	return pos.X >= 0 && pos.X < m.Width && pos.Y >= 0 && pos.Y < m.Height
}

// TerrainAt returns the terrain at pos, or ErrOutOfBounds.
func (m *Map) TerrainAt(pos Position) (Terrain, error) {
	if !m.InBounds(pos) {
		return 0, fmt.Errorf("terrain at %s: %w", pos, ErrOutOfBounds)
	}
	return m.cells[pos.Y][pos.X], nil
}

// SetTerrain replaces the terrain at pos.
func (m *Map) SetTerrain(pos Position, t Terrain) error {
	if !m.InBounds(pos) {
		return fmt.Errorf("set terrain at %s: %w", pos, ErrOutOfBounds)
	}
	m.cells[pos.Y][pos.X] = t
	return nil
}

// MovementCost returns the cost for a unit kind to enter pos. Positions off
// the map are Impassable.
func (m *Map) MovementCost(kind gamedata.UnitKind, pos Position) float64 {
	t, err := m.TerrainAt(pos)
	if err != nil {
		return Impassable
	}
	return MovementCost(t, kind)
}

// CombatModifier returns the terrain combat modifier at pos. Positions off the
// map report 0.
func (m *Map) CombatModifier(kind gamedata.UnitKind, pos Position) float64 {
	t, err := m.TerrainAt(pos)
	if err != nil {
		return 0
	}
	return CombatModifier(t, kind)
}

// CanEnter reports whether the unit's kind may stand on pos. It checks terrain
// passability of that single cell only: not distance, movement points or
// occupancy.
func (m *Map) CanEnter(u Mover, pos Position) bool {
	return m.InBounds(pos) && !IsImpassable(m.MovementCost(u.UnitKind(), pos))
}

// ReachableCells returns every cell the unit's kind could ever occupy on this
// map, ignoring distance and movement allowance.
func (m *Map) ReachableCells(u Mover) []Position {
	var cells []Position
	for x := 0; x < m.Width; x++ {
		for y := 0; y < m.Height; y++ {
			pos := Position{X: x, Y: y}
			if m.CanEnter(u, pos) {
				cells = append(cells, pos)
			}
		}
	}
	return cells
}

// SpawnPoints returns a copy of the player's configured spawn positions.
func (m *Map) SpawnPoints(playerID string) []Position {
	return slices.Clone(m.spawns[playerID])
}

// SetSpawnPoints replaces the player's spawn positions.
func (m *Map) SetSpawnPoints(playerID string, points []Position) {
	m.spawns[playerID] = slices.Clone(points)
}

// IsValidSpawn reports whether pos is one of the player's spawn points.
func (m *Map) IsValidSpawn(pos Position, playerID string) bool {
	return slices.Contains(m.spawns[playerID], pos)
}

// MapView is a read-only serialized snapshot of a map.
type MapView struct {
	Name        string                `json:"name"`
	DisplayName string                `json:"display_name"`
	Size        [2]int                `json:"size"`
	Terrain     [][]string            `json:"terrain"`
	SpawnPoints map[string][]Position `json:"spawn_points"`
}

// View returns a snapshot of the map.
func (m *Map) View() MapView {
	grid := make([][]string, m.Height)
	for y, row := range m.cells {
		grid[y] = make([]string, m.Width)
		for x, t := range row {
			grid[y][x] = string(t.Code())
		}
	}
	spawns := make(map[string][]Position, len(m.spawns))
	for player, points := range m.spawns {
		spawns[player] = slices.Clone(points)
	}
	return MapView{
		Name:        m.Name,
		DisplayName: m.DisplayName,
		Size:        [2]int{m.Width, m.Height},
		Terrain:     grid,
		SpawnPoints: spawns,
	}
}

// FromView rebuilds a map from a snapshot taken with View.
func FromView(v MapView) (*Map, error) {
	def := &gamedata.MapDef{
		ID:          v.Name,
		Name:        v.DisplayName,
		Width:       v.Size[0],
		Height:      v.Size[1],
		Terrain:     make([]string, len(v.Terrain)),
		SpawnPoints: make(map[string][][2]int, len(v.SpawnPoints)),
	}
	for y, row := range v.Terrain {
		def.Terrain[y] = strings.Join(row, "")
	}
	for player, points := range v.SpawnPoints {
		for _, p := range points {
			def.SpawnPoints[player] = append(def.SpawnPoints[player], [2]int{p.X, p.Y})
		}
	}
	return FromDef(def)
}

// CountTerrain returns how many cells hold each terrain.
func (m *Map) CountTerrain() map[Terrain]int {
	counts := make(map[Terrain]int)
	for _, row := range m.cells {
		for _, t := range row {
			counts[t]++
		}
	}
	return counts
}
