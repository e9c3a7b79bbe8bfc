// Package combat resolves attacks between units on the map.
package combat

import (
	"fmt"
	"math"

	"github.com/samdwyer/skirmish/internal/gamedata"
	"github.com/samdwyer/skirmish/internal/world"
)

// Combatant is the interface for any unit that can take part in an attack.
type Combatant interface {
	// Identity
	UnitKind() gamedata.UnitKind
	OwnerID() string
	Pos() world.Position
	IsAlive() bool

	// Stats
	Health() int
	TotalAttack() int
	TotalDefense() int
	CanAttack(target world.Position) bool

	// Mutations
	TakeDamage(amount int) int // Returns health actually lost
	MarkAttacked() bool
	GainExperience(xp int)
}

// Board supplies terrain combat modifiers. *world.Map implements it.
type Board interface {
	CombatModifier(kind gamedata.UnitKind, pos world.Position) float64
}

// Result contains the outcome of an attack.
type Result struct {
	Success  bool
	Strike   int     // Attack strength after the terrain modifier, before defense
	Damage   int     // Health the defender actually lost
	Modifier float64 // Attacker's terrain combat modifier
	Killed   bool    // True if the defender died from this attack
	Message  string  // Human-readable description
}

// Resolver calculates and applies attacks.
type Resolver struct {
	board Board
}

// NewResolver creates a resolver that reads terrain from board.
func NewResolver(board Board) *Resolver {
	return &Resolver{board: board}
}

// Attack resolves attacker striking defender. The strike is the attacker's
// total attack scaled by the combat modifier of the terrain it stands on;
// the defender's own defense is subtracted inside TakeDamage. On success the
// attacker is marked Attacked and gains experience equal to the damage dealt.
func (r *Resolver) Attack(attacker, defender Combatant) Result {
	if reason := r.check(attacker, defender); reason != "" {
		return Result{Success: false, Message: reason}
	}

	strike, mod := r.strike(attacker)
	damage := defender.TakeDamage(strike)
	attacker.MarkAttacked()
	attacker.GainExperience(damage)

	result := Result{
		Success:  true,
		Strike:   strike,
		Damage:   damage,
		Modifier: mod,
		Killed:   !defender.IsAlive(),
		Message: fmt.Sprintf("%s at %s hits %s at %s for %d",
			attacker.UnitKind(), attacker.Pos(), defender.UnitKind(), defender.Pos(), damage),
	}
	if result.Killed {
		result.Message += ", destroying it"
	}
	return result
}

// Preview calculates the outcome of an attack without applying it. Damage is
// capped at the defender's remaining health, as TakeDamage caps it.
func (r *Resolver) Preview(attacker, defender Combatant) Result {
	if reason := r.check(attacker, defender); reason != "" {
		return Result{Success: false, Message: reason}
	}
	strike, mod := r.strike(attacker)
	damage := min(max(0, strike-defender.TotalDefense()), defender.Health())
	return Result{
		Success:  true,
		Strike:   strike,
		Damage:   damage,
		Modifier: mod,
		Killed:   damage > 0 && damage == defender.Health(),
		Message:  "preview",
	}
}

func (r *Resolver) check(attacker, defender Combatant) string {
	switch {
	case attacker == nil || defender == nil:
		return "no attacker or target"
	case !attacker.IsAlive():
		return "attacker is dead"
	case !defender.IsAlive():
		return "target is already dead"
	case attacker.OwnerID() == defender.OwnerID():
		return "cannot attack a friendly unit"
	case !attacker.CanAttack(defender.Pos()):
		return "target not attackable from here"
	}
	return ""
}

func (r *Resolver) strike(attacker Combatant) (int, float64) {
	mod := r.board.CombatModifier(attacker.UnitKind(), attacker.Pos())
	return int(math.Floor(float64(attacker.TotalAttack())*mod + 1e-9)), mod
}
