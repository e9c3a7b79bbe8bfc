package combat

import (
	"testing"

	"github.com/samdwyer/skirmish/internal/gamedata"
	"github.com/samdwyer/skirmish/internal/world"
)

// mockCombatant is a test implementation of the Combatant interface.
type mockCombatant struct {
	kind     gamedata.UnitKind
	owner    string
	pos      world.Position
	hp       int
	attack   int
	defense  int
	minRange int
	maxRange int
	attacked bool
	xp       int
}

func newMockCombatant(owner string, x, y, hp, attack, defense int) *mockCombatant {
	return &mockCombatant{
		kind:     gamedata.Infantry,
		owner:    owner,
		pos:      world.Pos(x, y),
		hp:       hp,
		attack:   attack,
		defense:  defense,
		minRange: 1,
		maxRange: 1,
	}
}

func (m *mockCombatant) UnitKind() gamedata.UnitKind { return m.kind }
func (m *mockCombatant) OwnerID() string             { return m.owner }
func (m *mockCombatant) Pos() world.Position         { return m.pos }
func (m *mockCombatant) IsAlive() bool               { return m.hp > 0 }
func (m *mockCombatant) Health() int                 { return m.hp }
func (m *mockCombatant) TotalAttack() int            { return m.attack }
func (m *mockCombatant) TotalDefense() int           { return m.defense }
func (m *mockCombatant) GainExperience(xp int)       { m.xp += xp }

func (m *mockCombatant) MarkAttacked() bool {
	m.attacked = true
	return true
}

func (m *mockCombatant) CanAttack(target world.Position) bool {
	if m.attacked || m.hp <= 0 {
		return false
	}
	d := m.pos.Distance(target)
	return d >= m.minRange && d <= m.maxRange
}

func (m *mockCombatant) TakeDamage(amount int) int {
	effective := amount - m.defense
	if effective <= 0 {
		return 0
	}
	if effective > m.hp {
		effective = m.hp
	}
	m.hp -= effective
	return effective
}

// flatBoard reports the same modifier everywhere.
type flatBoard float64

func (b flatBoard) CombatModifier(gamedata.UnitKind, world.Position) float64 { return float64(b) }

func TestAttackAppliesTerrainModifier(t *testing.T) {
	resolver := NewResolver(flatBoard(1.2))

	// Strike: floor(15 * 1.2) = 18; defender defense 8 -> 10 damage
	attacker := newMockCombatant("p1", 0, 0, 100, 15, 5)
	defender := newMockCombatant("p2", 0, 1, 50, 5, 8)

	result := resolver.Attack(attacker, defender)

	if !result.Success {
		t.Fatalf("Expected success, got failure: %s", result.Message)
	}
	if result.Strike != 18 {
		t.Errorf("Strike = %d, want 18", result.Strike)
	}
	if result.Damage != 10 {
		t.Errorf("Damage = %d, want 10", result.Damage)
	}
	if defender.hp != 40 {
		t.Errorf("defender hp = %d, want 40", defender.hp)
	}
	if !attacker.attacked {
		t.Error("attacker should be marked attacked")
	}
	if attacker.xp != 10 {
		t.Errorf("attacker xp = %d, want 10", attacker.xp)
	}
}

func TestAttackFullyAbsorbed(t *testing.T) {
	resolver := NewResolver(flatBoard(0.5))

	// Strike: floor(10 * 0.5) = 5 against defense 10 -> no damage
	attacker := newMockCombatant("p1", 0, 0, 100, 10, 5)
	defender := newMockCombatant("p2", 1, 0, 50, 5, 10)

	result := resolver.Attack(attacker, defender)

	if !result.Success {
		t.Fatalf("Expected success, got failure: %s", result.Message)
	}
	if result.Damage != 0 || defender.hp != 50 {
		t.Errorf("Damage = %d, defender hp = %d; want 0, 50", result.Damage, defender.hp)
	}
}

func TestAttackKills(t *testing.T) {
	resolver := NewResolver(flatBoard(1.0))

	attacker := newMockCombatant("p1", 0, 0, 100, 40, 5)
	defender := newMockCombatant("p2", 1, 0, 10, 5, 0)

	result := resolver.Attack(attacker, defender)

	if !result.Killed {
		t.Error("Expected defender to be killed")
	}
	if result.Damage != 10 {
		t.Errorf("Damage = %d, want 10 (capped at remaining hp)", result.Damage)
	}
}

func TestAttackRejected(t *testing.T) {
	resolver := NewResolver(flatBoard(1.0))

	tests := []struct {
		name     string
		setup    func(a, d *mockCombatant)
		expected string
	}{
		{"out of range", func(a, d *mockCombatant) { d.pos = world.Pos(3, 3) }, "target not attackable from here"},
		{"friendly", func(a, d *mockCombatant) { d.owner = a.owner }, "cannot attack a friendly unit"},
		{"dead target", func(a, d *mockCombatant) { d.hp = 0 }, "target is already dead"},
		{"dead attacker", func(a, d *mockCombatant) { a.hp = 0 }, "attacker is dead"},
		{"already attacked", func(a, d *mockCombatant) { a.attacked = true }, "target not attackable from here"},
	}

	for _, tt := range tests {
		attacker := newMockCombatant("p1", 0, 0, 100, 20, 5)
		defender := newMockCombatant("p2", 1, 0, 50, 5, 5)
		tt.setup(attacker, defender)
		hpBefore := defender.hp

		result := resolver.Attack(attacker, defender)

		if result.Success {
			t.Errorf("%s: expected failure", tt.name)
		}
		if result.Message != tt.expected {
			t.Errorf("%s: Message = %q, want %q", tt.name, result.Message, tt.expected)
		}
		if defender.hp != hpBefore {
			t.Errorf("%s: defender hp changed to %d", tt.name, defender.hp)
		}
	}
}

func TestPreviewDoesNotMutate(t *testing.T) {
	resolver := NewResolver(flatBoard(1.0))

	attacker := newMockCombatant("p1", 0, 0, 100, 20, 5)
	defender := newMockCombatant("p2", 1, 0, 50, 5, 6)

	preview := resolver.Preview(attacker, defender)
	if !preview.Success || preview.Damage != 14 {
		t.Errorf("Preview() = %+v, want success with 14 damage", preview)
	}
	if defender.hp != 50 || attacker.attacked || attacker.xp != 0 {
		t.Error("Preview() should not change either combatant")
	}

	actual := resolver.Attack(attacker, defender)
	if actual.Damage != preview.Damage {
		t.Errorf("Attack() damage %d differs from preview %d", actual.Damage, preview.Damage)
	}
}

func TestPreviewCapsDamageAtHealth(t *testing.T) {
	resolver := NewResolver(flatBoard(1.0))

	attacker := newMockCombatant("p1", 0, 0, 100, 30, 5)
	defender := newMockCombatant("p2", 1, 0, 8, 5, 2)

	preview := resolver.Preview(attacker, defender)
	if preview.Strike != 30 || preview.Damage != 8 || !preview.Killed {
		t.Errorf("Preview() = %+v, want strike 30, damage 8, killed", preview)
	}

	actual := resolver.Attack(attacker, defender)
	if actual.Damage != preview.Damage || actual.Killed != preview.Killed {
		t.Errorf("Attack() = %+v, preview %+v", actual, preview)
	}
}

func TestAttackOnRealTerrain(t *testing.T) {
	m, err := world.New("test", 3, 1, world.TerrainLand)
	if err != nil {
		t.Fatal(err)
	}
	_ = m.SetTerrain(world.Pos(0, 0), world.TerrainMountain)
	resolver := NewResolver(m)

	// Infantry on a mountain: floor(10 * 1.2) = 12
	attacker := newMockCombatant("p1", 0, 0, 100, 10, 5)
	defender := newMockCombatant("p2", 1, 0, 50, 5, 0)

	result := resolver.Attack(attacker, defender)
	if result.Strike != 12 || result.Modifier != 1.2 {
		t.Errorf("Attack() strike = %d modifier = %v, want 12 and 1.2", result.Strike, result.Modifier)
	}
}
