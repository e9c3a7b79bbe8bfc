package entity

import (
	"math"

	"github.com/google/uuid"

	"github.com/samdwyer/skirmish/internal/combat"
	"github.com/samdwyer/skirmish/internal/gamedata"
	"github.com/samdwyer/skirmish/internal/world"
)

// xpPerLevel is the experience needed for each level after the first.
const xpPerLevel = 100

// Unit is a single combat unit on the map.
type Unit struct {
	ID       string
	Owner    string // Owning player id
	Kind     gamedata.UnitKind
	Position world.Position

	// Base stats, copied from the catalog at creation
	MaxHealth int
	Attack    int
	Defense   int
	Movement  int
	MinRange  int
	MaxRange  int
	Vision    int

	Level      int
	Experience int
	Buffs      []Modifier
	Debuffs    []Modifier

	health int
	status Status
}

// NewID returns a fresh unit id such as "archer_1f9c2a7b".
func NewID(kind gamedata.UnitKind) string {
	return kind.String() + "_" + uuid.NewString()[:8]
}

// NewUnit creates a unit of the given kind at full health and Ready.
func NewUnit(id string, kind gamedata.UnitKind, owner string, pos world.Position) *Unit {
	stats := gamedata.Stats(kind)
	return &Unit{
		ID:        id,
		Owner:     owner,
		Kind:      kind,
		Position:  pos,
		MaxHealth: stats.Health,
		Attack:    stats.Attack,
		Defense:   stats.Defense,
		Movement:  stats.Movement,
		MinRange:  stats.MinRange,
		MaxRange:  stats.MaxRange,
		Vision:    stats.Vision,
		Level:     1,
		health:    stats.Health,
		status:    StatusReady,
	}
}

// Health returns current health.
func (u *Unit) Health() int { return u.health }

// Status returns the unit's current status.
func (u *Unit) Status() Status { return u.status }

// IsAlive returns true unless the unit is dead.
func (u *Unit) IsAlive() bool { return u.status != StatusDead }

// UnitKind returns the unit's kind.
func (u *Unit) UnitKind() gamedata.UnitKind { return u.Kind }

// OwnerID returns the owning player's id.
func (u *Unit) OwnerID() string { return u.Owner }

// Pos returns the unit's current position.
func (u *Unit) Pos() world.Position { return u.Position }

// TotalAttack returns attack after buffs and debuffs.
func (u *Unit) TotalAttack() int {
	return applyMultiplier(u.Attack, multiplier(AttrAttack, u.Buffs, u.Debuffs))
}

// TotalDefense returns defense after buffs and debuffs.
func (u *Unit) TotalDefense() int {
	return applyMultiplier(u.Defense, multiplier(AttrDefense, u.Buffs, u.Debuffs))
}

func applyMultiplier(base int, m float64) int {
	return int(math.Floor(float64(base)*m + floorEpsilon))
}

// TakeDamage applies an incoming hit reduced by total defense and returns the
// health actually lost. A unit reduced to 0 health becomes Dead for good.
func (u *Unit) TakeDamage(amount int) int {
	if u.status == StatusDead {
		return 0
	}
	effective := max(0, amount-u.TotalDefense())
	lost := min(effective, u.health)
	u.health -= lost
	if u.health == 0 {
		u.status = StatusDead
	}
	return lost
}

// Heal restores health up to MaxHealth and returns the amount restored. Dead
// units cannot be healed. Status is unchanged.
func (u *Unit) Heal(amount int) int {
	if u.status == StatusDead || amount <= 0 {
		return 0
	}
	restored := min(amount, u.MaxHealth-u.health)
	u.health += restored
	return restored
}

// CanAttack reports whether the unit may attack target this turn: it must not
// have attacked, be exhausted or be dead, and the target must lie within its
// inclusive Manhattan range.
func (u *Unit) CanAttack(target world.Position) bool {
	switch u.status {
	case StatusAttacked, StatusExhausted, StatusDead:
		return false
	}
	d := u.Position.Distance(target)
	return d >= u.MinRange && d <= u.MaxRange
}

// CanMove reports whether the unit has not yet acted this turn.
func (u *Unit) CanMove() bool {
	return u.status == StatusReady
}

// ClearStatus returns a living unit to Ready for a new turn.
func (u *Unit) ClearStatus() {
	if u.status != StatusDead {
		u.status = StatusReady
	}
}

// MarkMoved records that the unit moved. Returns false for dead units.
func (u *Unit) MarkMoved() bool { return u.transition(StatusMoved) }

// MarkAttacked records that the unit attacked. Returns false for dead units.
func (u *Unit) MarkAttacked() bool { return u.transition(StatusAttacked) }

// Exhaust ends the unit's turn. Returns false for dead units.
func (u *Unit) Exhaust() bool { return u.transition(StatusExhausted) }

func (u *Unit) transition(to Status) bool {
	if u.status == StatusDead {
		return false
	}
	u.status = to
	return true
}

// AddBuff appends a positive adjustment to an attribute.
func (u *Unit) AddBuff(attr Attribute, magnitude float64) {
	u.Buffs = append(u.Buffs, Modifier{Attribute: attr, Magnitude: magnitude})
}

// AddDebuff appends a negative adjustment to an attribute.
func (u *Unit) AddDebuff(attr Attribute, magnitude float64) {
	u.Debuffs = append(u.Debuffs, Modifier{Attribute: attr, Magnitude: magnitude})
}

// ClearModifiers removes all buffs and debuffs.
func (u *Unit) ClearModifiers() {
	u.Buffs = nil
	u.Debuffs = nil
}

// GainExperience adds experience and raises the level every xpPerLevel points.
func (u *Unit) GainExperience(xp int) {
	if xp <= 0 || u.status == StatusDead {
		return
	}
	u.Experience += xp
	u.Level = 1 + u.Experience/xpPerLevel
}

// Restore rebuilds a unit's runtime state from a saved view. Health is clamped
// to [0, MaxHealth] and zero health always restores as Dead.
func (u *Unit) Restore(health int, status Status) {
	u.health = max(0, min(health, u.MaxHealth))
	u.status = status
	if u.health == 0 {
		u.status = StatusDead
	}
}

// UnitView is a read-only serialized snapshot of a unit.
type UnitView struct {
	ID         string            `json:"unit_id"`
	Kind       gamedata.UnitKind `json:"unit_type"`
	Owner      string            `json:"player_id"`
	Position   world.Position    `json:"position"`
	Health     int               `json:"health"`
	MaxHealth  int               `json:"max_health"`
	Attack     int               `json:"attack"`
	Defense    int               `json:"defense"`
	Movement   int               `json:"movement"`
	Range      [2]int            `json:"range"`
	Vision     int               `json:"vision"`
	Status     Status            `json:"status"`
	Level      int               `json:"level"`
	Experience int               `json:"experience"`
}

// View returns a snapshot of the unit with derived attack and defense.
func (u *Unit) View() UnitView {
	return UnitView{
		ID:         u.ID,
		Kind:       u.Kind,
		Owner:      u.Owner,
		Position:   u.Position,
		Health:     u.health,
		MaxHealth:  u.MaxHealth,
		Attack:     u.TotalAttack(),
		Defense:    u.TotalDefense(),
		Movement:   u.Movement,
		Range:      [2]int{u.MinRange, u.MaxRange},
		Vision:     u.Vision,
		Status:     u.status,
		Level:      u.Level,
		Experience: u.Experience,
	}
}

// Ensure Unit implements combat.Combatant and world.Mover
var (
	_ combat.Combatant = (*Unit)(nil)
	_ world.Mover      = (*Unit)(nil)
)
