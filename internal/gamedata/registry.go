package gamedata

import (
	"errors"
	"fmt"
	"sync"
)

// =============================================================================
// UnitCatalog
// =============================================================================

// UnitCatalog holds one definition per unit kind.
type UnitCatalog struct {
	defs [NumUnitKinds]*UnitDef
	all  []UnitDef
}

// NewUnitCatalog creates a catalog from loaded unit definitions. Every unit
// kind must be defined exactly once.
func NewUnitCatalog(units []UnitDef) (*UnitCatalog, error) {
	catalog := &UnitCatalog{all: units}
	for i := range units {
		def := &units[i]
		if !def.ID.Valid() {
			return nil, fmt.Errorf("unit definition %d has invalid kind", i)
		}
		if catalog.defs[def.ID] != nil {
			return nil, fmt.Errorf("unit kind %s defined twice", def.ID)
		}
		if def.Range[0] > def.Range[1] {
			return nil, fmt.Errorf("unit kind %s has min range %d above max range %d", def.ID, def.Range[0], def.Range[1])
		}
		catalog.defs[def.ID] = def
	}
	for _, k := range AllUnitKinds {
		if catalog.defs[k] == nil {
			return nil, fmt.Errorf("unit kind %s has no definition", k)
		}
	}
	return catalog, nil
}

// LoadUnitCatalog loads and creates a catalog from the embedded units.json.
func LoadUnitCatalog() (*UnitCatalog, error) {
	units, err := LoadUnits()
	if err != nil {
		return nil, err
	}
	if len(units) == 0 {
		return nil, errors.New("no units loaded from units.json")
	}
	return NewUnitCatalog(units)
}

// MustLoadUnitCatalog loads a catalog, panicking on error.
func MustLoadUnitCatalog() *UnitCatalog {
	catalog, err := LoadUnitCatalog()
	if err != nil {
		panic(err)
	}
	return catalog
}

// Def returns the definition for a kind, or nil for an invalid kind.
func (c *UnitCatalog) Def(kind UnitKind) *UnitDef {
	if !kind.Valid() {
		return nil
	}
	return c.defs[kind]
}

// Stats returns the base stats for a kind. Invalid kinds yield zero stats.
func (c *UnitCatalog) Stats(kind UnitKind) BaseStats {
	def := c.Def(kind)
	if def == nil {
		return BaseStats{}
	}
	return def.Stats()
}

// All returns all unit definitions.
func (c *UnitCatalog) All() []UnitDef {
	return c.all
}

// Count returns the number of unit kinds in the catalog.
func (c *UnitCatalog) Count() int {
	return len(c.all)
}

// catalog is the process-wide unit catalog, loaded on first use.
var catalog = sync.OnceValue(MustLoadUnitCatalog)

// Catalog returns the shared unit catalog. It is read-only after loading and
// safe to use from any goroutine.
func Catalog() *UnitCatalog {
	return catalog()
}

// Stats returns the base stats for a kind from the shared catalog.
func Stats(kind UnitKind) BaseStats {
	return Catalog().Stats(kind)
}

// =============================================================================
// MapRegistry
// =============================================================================

// ErrUnknownMap is returned when a map id has no definition.
var ErrUnknownMap = errors.New("unknown map")

// MapRegistry holds authored map definitions keyed by id.
type MapRegistry struct {
	maps map[string]*MapDef
	all  []MapDef
}

// NewMapRegistry creates a registry from loaded map definitions.
func NewMapRegistry(defs []MapDef) *MapRegistry {
	registry := &MapRegistry{
		maps: make(map[string]*MapDef),
		all:  defs,
	}
	for i := range defs {
		registry.maps[defs[i].ID] = &defs[i]
	}
	return registry
}

// LoadMapRegistry loads and creates a registry from the embedded maps.json.
func LoadMapRegistry() (*MapRegistry, error) {
	defs, err := LoadMaps()
	if err != nil {
		return nil, err
	}
	if len(defs) == 0 {
		return nil, errors.New("no maps loaded from maps.json")
	}
	return NewMapRegistry(defs), nil
}

// MustLoadMapRegistry loads a registry, panicking on error.
func MustLoadMapRegistry() *MapRegistry {
	registry, err := LoadMapRegistry()
	if err != nil {
		panic(err)
	}
	return registry
}

// Get returns the definition with the given id, or ErrUnknownMap.
func (r *MapRegistry) Get(id string) (*MapDef, error) {
	def, ok := r.maps[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMap, id)
	}
	return def, nil
}

// IDs returns the map ids in file order.
func (r *MapRegistry) IDs() []string {
	ids := make([]string, 0, len(r.all))
	for _, def := range r.all {
		ids = append(ids, def.ID)
	}
	return ids
}

// Count returns the number of maps in the registry.
func (r *MapRegistry) Count() int {
	return len(r.all)
}
