package entity

import (
	"errors"
	"testing"

	"github.com/samdwyer/skirmish/internal/gamedata"
	"github.com/samdwyer/skirmish/internal/world"
)

func TestPlayerUnits(t *testing.T) {
	p := NewPlayer("p1", "Red")
	a := NewUnit("a", gamedata.Infantry, "", world.Pos(0, 0))
	b := NewUnit("b", gamedata.Archer, "", world.Pos(1, 0))
	if p.IsDefeated() {
		t.Error("IsDefeated() = true before any unit was fielded")
	}
	p.AddUnit(a)
	p.AddUnit(b)

	if a.Owner != "p1" {
		t.Errorf("AddUnit() owner = %q, want p1", a.Owner)
	}
	if p.Unit("b") != b || p.Unit("zzz") != nil {
		t.Error("Unit() lookup mismatch")
	}

	b.TakeDamage(1000)
	if alive := p.AliveUnits(); len(alive) != 1 || alive[0] != a {
		t.Errorf("AliveUnits() = %v, want [a]", alive)
	}
	if p.IsDefeated() {
		t.Error("IsDefeated() = true with a living unit")
	}
	a.TakeDamage(1000)
	if !p.IsDefeated() {
		t.Error("IsDefeated() = false with no living units")
	}
}

func TestPlayerSpend(t *testing.T) {
	p := NewPlayer("p1", "Red")
	p.Resources = DefaultResources()

	siege := gamedata.Stats(gamedata.Siege).Cost
	if err := p.Spend(siege); err != nil {
		t.Fatalf("Spend(siege) error: %v", err)
	}
	if p.Resources["gold"] != 700 || p.Resources["wood"] != 400 || p.Resources["iron"] != 250 {
		t.Errorf("Resources after siege = %v", p.Resources)
	}

	tooMuch := map[string]int{"gold": 100, "iron": 1000}
	if err := p.Spend(tooMuch); !errors.Is(err, ErrInsufficientResources) {
		t.Errorf("Spend(tooMuch) error = %v, want ErrInsufficientResources", err)
	}
	if p.Resources["gold"] != 700 {
		t.Errorf("failed Spend changed gold to %d", p.Resources["gold"])
	}
	if p.CanAfford(map[string]int{"crystal": 1}) {
		t.Error("CanAfford(unknown resource) = true")
	}
}

func TestPlayerView(t *testing.T) {
	p := NewPlayer("p1", "Red")
	p.Resources = DefaultResources()
	p.AddUnit(NewUnit("a", gamedata.Infantry, "", world.Pos(0, 0)))

	view := p.View()
	view.Resources["gold"] = 0
	if p.Resources["gold"] != 1000 {
		t.Error("View() resources should be a copy")
	}
	if len(view.UnitIDs) != 1 || view.UnitIDs[0] != "a" {
		t.Errorf("View().UnitIDs = %v", view.UnitIDs)
	}
}
