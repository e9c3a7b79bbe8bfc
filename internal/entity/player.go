package entity

import (
	"errors"
	"maps"
)

// ErrInsufficientResources is returned when a player cannot pay a cost.
var ErrInsufficientResources = errors.New("insufficient resources")

// DefaultResources is the stockpile each player starts with.
func DefaultResources() map[string]int {
	return map[string]int{"gold": 1000, "wood": 500, "iron": 300, "food": 800}
}

// Player is a participant in the battle and the sole owner of its units.
type Player struct {
	ID        string
	Name      string
	Units     []*Unit
	Resources map[string]int
}

// NewPlayer creates a player with an empty stockpile.
func NewPlayer(id, name string) *Player {
	return &Player{
		ID:        id,
		Name:      name,
		Units:     make([]*Unit, 0),
		Resources: make(map[string]int),
	}
}

// AddUnit gives the player ownership of u.
func (p *Player) AddUnit(u *Unit) {
	u.Owner = p.ID
	p.Units = append(p.Units, u)
}

// Unit returns the player's unit with the given id, or nil.
func (p *Player) Unit(id string) *Unit {
	for _, u := range p.Units {
		if u.ID == id {
			return u
		}
	}
	return nil
}

// AliveUnits returns the player's living units in insertion order.
func (p *Player) AliveUnits() []*Unit {
	alive := make([]*Unit, 0, len(p.Units))
	for _, u := range p.Units {
		if u.IsAlive() {
			alive = append(alive, u)
		}
	}
	return alive
}

// IsDefeated returns true once every unit the player has fielded is dead. A
// player who has not fielded any unit yet is still in the battle.
func (p *Player) IsDefeated() bool {
	return len(p.Units) > 0 && len(p.AliveUnits()) == 0
}

// CanAfford reports whether the stockpile covers every resource in cost.
func (p *Player) CanAfford(cost map[string]int) bool {
	for resource, qty := range cost {
		if p.Resources[resource] < qty {
			return false
		}
	}
	return true
}

// Spend deducts cost from the stockpile, or changes nothing and returns
// ErrInsufficientResources.
func (p *Player) Spend(cost map[string]int) error {
	if !p.CanAfford(cost) {
		return ErrInsufficientResources
	}
	for resource, qty := range cost {
		p.Resources[resource] -= qty
	}
	return nil
}

// PlayerView is a read-only serialized snapshot of a player.
type PlayerView struct {
	ID        string         `json:"player_id"`
	Name      string         `json:"name"`
	Resources map[string]int `json:"resources"`
	UnitIDs   []string       `json:"unit_ids"`
}

// View returns a snapshot of the player.
func (p *Player) View() PlayerView {
	ids := make([]string, len(p.Units))
	for i, u := range p.Units {
		ids[i] = u.ID
	}
	return PlayerView{
		ID:        p.ID,
		Name:      p.Name,
		Resources: maps.Clone(p.Resources),
		UnitIDs:   ids,
	}
}
