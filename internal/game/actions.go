package game

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"github.com/samdwyer/skirmish/internal/entity"
	"github.com/samdwyer/skirmish/internal/script"
	"github.com/samdwyer/skirmish/internal/world"
)

// defendBonus is the defense buff a defending unit holds until its owner's
// next turn begins.
const defendBonus = 0.5

// ActionResult is the outcome of executing one intent.
type ActionResult struct {
	Intent  script.Intent
	OK      bool
	Skipped bool // guard evaluated false
	Message string
	Damage  int // attack damage dealt, or health restored by heal
	Killed  bool
	Err     error
}

func (r ActionResult) String() string {
	switch {
	case r.Skipped:
		return fmt.Sprintf("line %d: %s skipped: %s", r.Intent.Line, r.Intent, r.Message)
	case !r.OK:
		return fmt.Sprintf("line %d: %s failed: %v", r.Intent.Line, r.Intent, r.Err)
	default:
		return fmt.Sprintf("line %d: %s", r.Intent.Line, r.Message)
	}
}

// Execute binds intent to one of playerID's units and performs it. Failures
// come back in the result with Err set; the state is unchanged in that case.
func (s *Session) Execute(ctx context.Context, playerID string, intent script.Intent) ActionResult {
	ctx, span := s.tracer.Start(ctx, "session."+intent.Action.String())
	defer span.End()
	span.SetAttributes(
		attribute.String("player", playerID),
		attribute.String("unit", intent.Unit),
		attribute.Int("line", intent.Line),
	)

	s.mu.Lock()
	res := s.execute(playerID, intent)
	ev := Event{
		Kind:     "action",
		Player:   playerID,
		Summary:  res.String(),
		OK:       res.OK,
		Snapshot: s.state.Snapshot(),
	}
	s.handOff()

	switch {
	case res.Err != nil:
		span.RecordError(res.Err)
		span.SetAttributes(attribute.Bool("failed", true))
		s.logger.Info("action rejected", "player", playerID, "intent", intent.String(), "error", res.Err)
	case res.Skipped:
		span.SetAttributes(attribute.Bool("skipped", true))
		s.logger.Debug("action skipped", "player", playerID, "intent", intent.String())
	default:
		span.SetAttributes(
			attribute.Int("damage", res.Damage),
			attribute.Bool("killed", res.Killed),
		)
		s.logger.Info("action", "player", playerID, "result", res.Message)
	}
	s.notify(ctx, ev)
	return res
}

// execute must be called with s.mu held.
func (s *Session) execute(playerID string, intent script.Intent) ActionResult {
	fail := func(err error) ActionResult {
		return ActionResult{Intent: intent, Message: err.Error(), Err: err}
	}

	p := s.state.Player(playerID)
	if p == nil {
		return fail(fmt.Errorf("%w %q", ErrUnknownPlayer, playerID))
	}
	if s.state.GameOver {
		return fail(ErrGameOver)
	}
	if s.state.CurrentPlayerID() != playerID {
		return fail(fmt.Errorf("%w: %s is active", ErrNotYourTurn, s.state.CurrentPlayerID()))
	}
	u := p.Unit(intent.Unit)
	if u == nil {
		return fail(fmt.Errorf("%w %q for %s", ErrUnknownUnit, intent.Unit, playerID))
	}

	pass, err := intent.Guard.Eval(s.guardEnv(u))
	if err != nil {
		return fail(fmt.Errorf("%w: %v", ErrBadTarget, err))
	}
	if !pass {
		return ActionResult{Intent: intent, OK: true, Skipped: true, Message: "guard " + intent.Guard.Source + " is false"}
	}

	var res ActionResult
	switch intent.Action {
	case script.ActionMove:
		res, err = s.move(u, intent.Target)
	case script.ActionAttack:
		res, err = s.attack(u, intent.Target)
	case script.ActionDefend:
		res, err = s.defend(u)
	case script.ActionHeal:
		res, err = s.heal(u, intent.Amount)
	default:
		err = fmt.Errorf("%w: action %s", ErrBadTarget, intent.Action)
	}
	if err != nil {
		return fail(err)
	}
	res.Intent = intent
	res.OK = true
	return res
}

func (s *Session) guardEnv(u *entity.Unit) script.GuardEnv {
	return script.GuardEnv{
		Health:    u.Health(),
		MaxHealth: u.MaxHealth,
		Attack:    u.TotalAttack(),
		Defense:   u.TotalDefense(),
		Turn:      s.state.Turn,
		Status:    u.Status().String(),
		Kind:      u.Kind.String(),
		Level:     u.Level,
	}
}

func (s *Session) move(u *entity.Unit, to world.Position) (ActionResult, error) {
	if !u.CanMove() {
		return ActionResult{}, fmt.Errorf("%w: %s is %s", ErrActionUnavailable, u.ID, u.Status())
	}
	if !s.state.Map.CanEnter(u, to) {
		return ActionResult{}, fmt.Errorf("%w: %s cannot enter %s", ErrActionUnavailable, u.Kind, to)
	}
	if other := s.state.LiveUnitAt(to); other != nil && other != u {
		return ActionResult{}, fmt.Errorf("%w: %s holds %s", ErrCellOccupied, other.ID, to)
	}
	if s.strict {
		reach := s.state.Map.ReachableWithin(u, u.Position, float64(u.Movement))
		if _, ok := reach[to]; !ok {
			return ActionResult{}, fmt.Errorf("%w: %s is beyond %s's movement of %d",
				ErrActionUnavailable, to, u.ID, u.Movement)
		}
	}

	from := u.Position
	if err := s.state.MoveUnit(u, to); err != nil {
		return ActionResult{}, err
	}
	u.MarkMoved()
	return ActionResult{Message: fmt.Sprintf("%s moves %s -> %s", u.ID, from, to)}, nil
}

func (s *Session) attack(u *entity.Unit, at world.Position) (ActionResult, error) {
	target := s.state.LiveUnitAt(at)
	if target == nil {
		return ActionResult{}, fmt.Errorf("%w: no unit at %s", ErrBadTarget, at)
	}
	if target.Owner == u.Owner {
		return ActionResult{}, fmt.Errorf("%w: %s is friendly", ErrBadTarget, target.ID)
	}

	out := s.resolver.Attack(u, target)
	if !out.Success {
		return ActionResult{}, fmt.Errorf("%w: %s", ErrActionUnavailable, out.Message)
	}
	s.state.CheckGameOver()
	return ActionResult{Message: out.Message, Damage: out.Damage, Killed: out.Killed}, nil
}

func (s *Session) defend(u *entity.Unit) (ActionResult, error) {
	if err := canStandDown(u); err != nil {
		return ActionResult{}, err
	}
	u.AddBuff(entity.AttrDefense, defendBonus)
	u.Exhaust()
	return ActionResult{Message: fmt.Sprintf("%s digs in, defense %d", u.ID, u.TotalDefense())}, nil
}

func (s *Session) heal(u *entity.Unit, amount int) (ActionResult, error) {
	if err := canStandDown(u); err != nil {
		return ActionResult{}, err
	}
	restored := u.Heal(amount)
	u.Exhaust()
	return ActionResult{
		Message: fmt.Sprintf("%s recovers %d, health %d/%d", u.ID, restored, u.Health(), u.MaxHealth),
		Damage:  restored,
	}, nil
}

// canStandDown reports whether u may spend its turn defending or healing.
func canStandDown(u *entity.Unit) error {
	switch u.Status() {
	case entity.StatusDead, entity.StatusExhausted:
		return fmt.Errorf("%w: %s is %s", ErrActionUnavailable, u.ID, u.Status())
	}
	return nil
}
