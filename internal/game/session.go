package game

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/samdwyer/skirmish/internal/combat"
	"github.com/samdwyer/skirmish/internal/entity"
	"github.com/samdwyer/skirmish/internal/gamedata"
	"github.com/samdwyer/skirmish/internal/script"
	"github.com/samdwyer/skirmish/internal/telemetry"
	"github.com/samdwyer/skirmish/internal/world"
)

// Event describes a completed session operation.
type Event struct {
	Kind     string // "action", "end_turn", "recruit" or "deploy"
	Player   string
	Summary  string
	OK       bool
	Snapshot Snapshot
}

// Observer is notified after every session operation, outside the state lock.
// Observers receive events one at a time, in the order the state changed, and
// must not call back into the Session.
type Observer func(ctx context.Context, ev Event)

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger. The default discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithStrictMovement limits moves to cells reachable within the unit's
// movement allowance.
func WithStrictMovement(on bool) Option {
	return func(s *Session) { s.strict = on }
}

// WithObserver registers o to receive events.
func WithObserver(o Observer) Option {
	return func(s *Session) { s.observers = append(s.observers, o) }
}

// Session is the action layer: it owns a State behind a mutex and turns
// player intents into state changes.
type Session struct {
	mu        sync.Mutex
	notifyMu  sync.Mutex // held from state change until observers return
	state     *State
	resolver  *combat.Resolver
	logger    *slog.Logger
	tracer    trace.Tracer
	strict    bool
	observers []Observer
}

// NewSession wraps state. The session takes ownership; callers should not
// touch state directly afterwards.
func NewSession(state *State, opts ...Option) *Session {
	s := &Session{
		state:    state,
		resolver: combat.NewResolver(state.Map),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		tracer:   telemetry.Tracer("session"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Snapshot()
}

// CurrentPlayer returns the id of the player whose turn it is.
func (s *Session) CurrentPlayer() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.CurrentPlayerID()
}

// EndTurn passes play to the next player and readies that player's units:
// statuses return to Ready and buffs and debuffs are cleared. Returns the id
// of the new active player.
func (s *Session) EndTurn(ctx context.Context) (string, error) {
	ctx, span := s.tracer.Start(ctx, "session.end_turn")
	defer span.End()

	s.mu.Lock()
	if s.state.GameOver {
		s.mu.Unlock()
		span.RecordError(ErrGameOver)
		return "", ErrGameOver
	}
	prev := s.state.CurrentPlayerID()
	if err := s.state.AdvanceTurn(); err != nil {
		s.mu.Unlock()
		span.RecordError(err)
		return "", err
	}
	next := s.state.CurrentPlayer()
	for _, u := range next.Units {
		u.ClearStatus()
		u.ClearModifiers()
	}
	winner, over := s.state.CheckGameOver()
	turn := s.state.Turn
	ev := Event{
		Kind:     "end_turn",
		Player:   prev,
		Summary:  fmt.Sprintf("%s ends turn, %s to act", prev, next.ID),
		OK:       true,
		Snapshot: s.state.Snapshot(),
	}
	s.handOff()

	span.SetAttributes(
		attribute.String("player.previous", prev),
		attribute.String("player.current", next.ID),
		attribute.Int("turn", turn),
		attribute.Bool("game_over", over),
	)
	s.logger.Info("turn ended", "previous", prev, "current", next.ID, "turn", turn)
	if over {
		s.logger.Info("game over", "winner", winner)
	}
	s.notify(ctx, ev)
	return next.ID, nil
}

// Recruit buys a unit of kind for the active player at one of its spawn
// points.
func (s *Session) Recruit(ctx context.Context, playerID string, kind gamedata.UnitKind, pos world.Position) (*entity.Unit, error) {
	ctx, span := s.tracer.Start(ctx, "session.recruit")
	defer span.End()
	span.SetAttributes(
		attribute.String("player", playerID),
		attribute.String("unit.kind", kind.String()),
		attribute.String("position", pos.String()),
	)

	s.mu.Lock()
	u, err := s.place(playerID, kind, pos, true)
	ev := s.placeEvent("recruit", playerID, kind, pos, u, err)
	s.handOff()

	if err != nil {
		span.RecordError(err)
		s.logger.Info("recruit rejected", "player", playerID, "kind", kind, "position", pos, "error", err)
	} else {
		s.logger.Info("unit recruited", "player", playerID, "unit", u.ID, "position", pos)
	}
	s.notify(ctx, ev)
	return u, err
}

// Deploy places a unit for free, ignoring turn order and spawn points. It is
// meant for scenario setup.
func (s *Session) Deploy(ctx context.Context, playerID string, kind gamedata.UnitKind, pos world.Position) (*entity.Unit, error) {
	ctx, span := s.tracer.Start(ctx, "session.deploy")
	defer span.End()
	span.SetAttributes(
		attribute.String("player", playerID),
		attribute.String("unit.kind", kind.String()),
		attribute.String("position", pos.String()),
	)

	s.mu.Lock()
	u, err := s.place(playerID, kind, pos, false)
	ev := s.placeEvent("deploy", playerID, kind, pos, u, err)
	s.handOff()

	if err != nil {
		span.RecordError(err)
		s.logger.Warn("deploy rejected", "player", playerID, "kind", kind, "position", pos, "error", err)
	} else {
		s.logger.Debug("unit deployed", "player", playerID, "unit", u.ID, "position", pos)
	}
	s.notify(ctx, ev)
	return u, err
}

// place must be called with s.mu held.
func (s *Session) place(playerID string, kind gamedata.UnitKind, pos world.Position, recruit bool) (*entity.Unit, error) {
	p := s.state.Player(playerID)
	if p == nil {
		return nil, fmt.Errorf("%w %q", ErrUnknownPlayer, playerID)
	}
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: unit kind %d", ErrBadTarget, kind)
	}
	if recruit {
		if s.state.GameOver {
			return nil, ErrGameOver
		}
		if s.state.CurrentPlayerID() != playerID {
			return nil, ErrNotYourTurn
		}
		if !s.state.Map.IsValidSpawn(pos, playerID) {
			return nil, fmt.Errorf("%w: %s for %s", ErrInvalidSpawn, pos, playerID)
		}
	}

	u := entity.NewUnit(entity.NewID(kind), kind, playerID, pos)
	if !s.state.Map.CanEnter(u, pos) {
		return nil, fmt.Errorf("%w: %s cannot stand at %s", ErrActionUnavailable, kind, pos)
	}
	if other := s.state.LiveUnitAt(pos); other != nil {
		return nil, fmt.Errorf("%w: %s holds %s", ErrCellOccupied, other.ID, pos)
	}
	if recruit {
		if err := p.Spend(gamedata.Stats(kind).Cost); err != nil {
			return nil, fmt.Errorf("recruit %s: %w", kind, err)
		}
	}
	p.AddUnit(u)
	return u, nil
}

func (s *Session) placeEvent(kind, playerID string, unitKind gamedata.UnitKind, pos world.Position, u *entity.Unit, err error) Event {
	ev := Event{Kind: kind, Player: playerID, OK: err == nil, Snapshot: s.state.Snapshot()}
	if err != nil {
		ev.Summary = fmt.Sprintf("%s %s at %s failed: %v", kind, unitKind, pos, err)
	} else {
		ev.Summary = fmt.Sprintf("%s %s at %s", kind, u.ID, pos)
	}
	return ev
}

// RunScript parses src and executes every intent in order on behalf of
// playerID. Lines that fail to parse are logged and skipped; a failed intent
// does not stop the rest.
func (s *Session) RunScript(ctx context.Context, playerID, src string) []ActionResult {
	ctx, span := s.tracer.Start(ctx, "session.run_script")
	defer span.End()

	parsed := script.Parse(src)
	for _, d := range parsed.Diagnostics {
		s.logger.Warn("script line skipped", "player", playerID, "line", d.Line, "text", d.Text, "error", d.Err)
	}

	results := make([]ActionResult, 0, len(parsed.Intents))
	failed := 0
	for _, intent := range parsed.Intents {
		res := s.Execute(ctx, playerID, intent)
		if !res.OK && !res.Skipped {
			failed++
		}
		results = append(results, res)
	}

	span.SetAttributes(
		attribute.String("player", playerID),
		attribute.Int("script.intents", len(parsed.Intents)),
		attribute.Int("script.diagnostics", len(parsed.Diagnostics)),
		attribute.Int("script.failed", failed),
	)
	return results
}

// handOff releases the state lock after taking the notify lock, so the next
// state change cannot reach observers before this one. Every handOff must be
// followed by notify.
func (s *Session) handOff() {
	s.notifyMu.Lock()
	s.mu.Unlock()
}

// notify delivers ev and releases the notify lock taken by handOff.
func (s *Session) notify(ctx context.Context, ev Event) {
	defer s.notifyMu.Unlock()
	for _, o := range s.observers {
		o(ctx, ev)
	}
}
