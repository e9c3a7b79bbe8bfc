// Package game runs the turn engine and the action layer on top of it.
package game

import (
	"fmt"

	"github.com/samdwyer/skirmish/internal/entity"
	"github.com/samdwyer/skirmish/internal/world"
)

// State is the authoritative battle state: the map, the players in the order
// they joined, whose turn it is and how many full rounds have passed.
//
// State is not safe for concurrent use; Session serializes access to it.
type State struct {
	Map      *world.Map
	Turn     int
	GameOver bool
	Winner   string

	players map[string]*entity.Player
	order   []string
	current int
}

// NewState creates an empty battle on m.
func NewState(m *world.Map) *State {
	return &State{
		Map:     m,
		players: make(map[string]*entity.Player),
		current: -1,
	}
}

// AddPlayer registers p. The first player ever added becomes active. Adding
// an id that is already registered replaces the record in place.
func (s *State) AddPlayer(p *entity.Player) {
	if p == nil {
		return
	}
	if _, ok := s.players[p.ID]; !ok {
		s.order = append(s.order, p.ID)
	}
	s.players[p.ID] = p
	if s.current < 0 {
		s.current = 0
	}
}

// Player returns the player with the given id, or nil.
func (s *State) Player(id string) *entity.Player {
	return s.players[id]
}

// Players returns all players in insertion order.
func (s *State) Players() []*entity.Player {
	out := make([]*entity.Player, len(s.order))
	for i, id := range s.order {
		out[i] = s.players[id]
	}
	return out
}

// CurrentPlayerID returns the active player's id, or "" before anyone joins.
func (s *State) CurrentPlayerID() string {
	if s.current < 0 {
		return ""
	}
	return s.order[s.current]
}

// CurrentPlayer returns the active player, or nil before anyone joins.
func (s *State) CurrentPlayer() *entity.Player {
	return s.players[s.CurrentPlayerID()]
}

// UnitAt returns the first unit found at pos, scanning players and then
// their units in insertion order. Dead units are included.
func (s *State) UnitAt(pos world.Position) *entity.Unit {
	return s.findAt(pos, false)
}

// LiveUnitAt is UnitAt restricted to living units.
func (s *State) LiveUnitAt(pos world.Position) *entity.Unit {
	return s.findAt(pos, true)
}

func (s *State) findAt(pos world.Position, aliveOnly bool) *entity.Unit {
	for _, id := range s.order {
		for _, u := range s.players[id].Units {
			if u.Position != pos {
				continue
			}
			if aliveOnly && !u.IsAlive() {
				continue
			}
			return u
		}
	}
	return nil
}

// Unit returns the unit with the given id across all players, or nil.
func (s *State) Unit(id string) *entity.Unit {
	for _, pid := range s.order {
		if u := s.players[pid].Unit(id); u != nil {
			return u
		}
	}
	return nil
}

// MoveUnit sets u's position. Positions off the map are rejected without
// changing anything; passability and occupancy are the caller's concern.
func (s *State) MoveUnit(u *entity.Unit, pos world.Position) error {
	if !s.Map.InBounds(pos) {
		return fmt.Errorf("move %s to %s: %w", u.ID, pos, world.ErrOutOfBounds)
	}
	u.Position = pos
	return nil
}

// AdvanceTurn hands the turn to the next player in insertion order. The turn
// counter increases each time play wraps back to the first player.
func (s *State) AdvanceTurn() error {
	if len(s.order) == 0 {
		return ErrNoPlayers
	}
	s.current = (s.current + 1) % len(s.order)
	if s.current == 0 {
		s.Turn++
	}
	return nil
}

// Units returns every unit, living or dead, grouped by player.
func (s *State) Units() []*entity.Unit {
	var out []*entity.Unit
	for _, id := range s.order {
		out = append(out, s.players[id].Units...)
	}
	return out
}

// AliveUnits returns the living units of one player. Unknown players have none.
func (s *State) AliveUnits(playerID string) []*entity.Unit {
	p := s.players[playerID]
	if p == nil {
		return nil
	}
	return p.AliveUnits()
}

// CheckGameOver ends the battle once at most one of two or more players still
// has living units. It returns the winner ("" for mutual destruction) and
// whether the battle is over.
func (s *State) CheckGameOver() (string, bool) {
	if s.GameOver {
		return s.Winner, true
	}
	if len(s.order) < 2 {
		return "", false
	}
	var standing []string
	for _, id := range s.order {
		if !s.players[id].IsDefeated() {
			standing = append(standing, id)
		}
	}
	if len(standing) > 1 {
		return "", false
	}
	s.GameOver = true
	if len(standing) == 1 {
		s.Winner = standing[0]
	}
	return s.Winner, true
}
