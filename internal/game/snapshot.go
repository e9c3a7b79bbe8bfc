package game

import (
	"fmt"
	"maps"
	"slices"

	"github.com/samdwyer/skirmish/internal/entity"
	"github.com/samdwyer/skirmish/internal/world"
)

// Snapshot is a detached, serializable copy of a State.
type Snapshot struct {
	Map           world.MapView       `json:"map"`
	Players       []entity.PlayerView `json:"players"`
	Units         []entity.UnitView   `json:"units"`
	CurrentPlayer string              `json:"current_player"`
	Turn          int                 `json:"turn"`
	GameOver      bool                `json:"game_over"`
	Winner        string              `json:"winner,omitempty"`
}

// Snapshot captures the current state.
func (s *State) Snapshot() Snapshot {
	snap := Snapshot{
		Map:           s.Map.View(),
		Players:       make([]entity.PlayerView, 0, len(s.order)),
		Units:         make([]entity.UnitView, 0),
		CurrentPlayer: s.CurrentPlayerID(),
		Turn:          s.Turn,
		GameOver:      s.GameOver,
		Winner:        s.Winner,
	}
	for _, p := range s.Players() {
		snap.Players = append(snap.Players, p.View())
		for _, u := range p.Units {
			snap.Units = append(snap.Units, u.View())
		}
	}
	return snap
}

// Player returns the view of the given player, if present.
func (snap Snapshot) Player(id string) (entity.PlayerView, bool) {
	i := slices.IndexFunc(snap.Players, func(p entity.PlayerView) bool { return p.ID == id })
	if i < 0 {
		return entity.PlayerView{}, false
	}
	return snap.Players[i], true
}

// UnitAt returns the first living unit view at pos.
func (snap Snapshot) UnitAt(pos world.Position) (entity.UnitView, bool) {
	for _, u := range snap.Units {
		if u.Position == pos && u.Status != entity.StatusDead {
			return u, true
		}
	}
	return entity.UnitView{}, false
}

// Restore rebuilds a State from a snapshot. Unit buffs and debuffs are not
// part of a snapshot and come back empty.
func Restore(snap Snapshot) (*State, error) {
	m, err := world.FromView(snap.Map)
	if err != nil {
		return nil, fmt.Errorf("restore map: %w", err)
	}
	s := NewState(m)
	for _, pv := range snap.Players {
		p := entity.NewPlayer(pv.ID, pv.Name)
		p.Resources = maps.Clone(pv.Resources)
		if p.Resources == nil {
			p.Resources = make(map[string]int)
		}
		s.AddPlayer(p)
	}
	for _, uv := range snap.Units {
		p := s.players[uv.Owner]
		if p == nil {
			return nil, fmt.Errorf("restore unit %s: %w %q", uv.ID, ErrUnknownPlayer, uv.Owner)
		}
		if !uv.Kind.Valid() {
			return nil, fmt.Errorf("restore unit %s: invalid kind %d", uv.ID, uv.Kind)
		}
		u := entity.NewUnit(uv.ID, uv.Kind, uv.Owner, uv.Position)
		u.Restore(uv.Health, uv.Status)
		u.Level = max(1, uv.Level)
		u.Experience = max(0, uv.Experience)
		p.AddUnit(u)
	}
	if snap.CurrentPlayer != "" {
		i := slices.Index(s.order, snap.CurrentPlayer)
		if i < 0 {
			return nil, fmt.Errorf("restore: current %w %q", ErrUnknownPlayer, snap.CurrentPlayer)
		}
		s.current = i
	}
	s.Turn = snap.Turn
	s.GameOver = snap.GameOver
	s.Winner = snap.Winner
	return s, nil
}
