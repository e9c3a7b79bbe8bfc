// Package script parses battle scripts into unit intents.
//
// A script is one command per line:
//
//	move inf_1 3,4
//	attack arc_2 5,5 if Health > 40
//	defend inf_1
//	heal cav_1 20
//
// Lines starting with # and blank lines are skipped. A trailing
// "if <expression>" attaches a guard evaluated against the acting unit.
package script

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/samdwyer/skirmish/internal/world"
)

var (
	// ErrUnknownAction is reported for lines whose verb is not recognised.
	ErrUnknownAction = errors.New("unknown action")
	// ErrSyntax is reported for lines with missing or malformed arguments.
	ErrSyntax = errors.New("syntax error")
	// ErrGuard is reported when a guard expression fails to compile.
	ErrGuard = errors.New("invalid guard")
)

// Action is the verb of an intent.
type Action int

const (
	ActionMove Action = iota
	ActionAttack
	ActionDefend
	ActionHeal
)

// String returns the script verb for the action.
func (a Action) String() string {
	switch a {
	case ActionMove:
		return "move"
	case ActionAttack:
		return "attack"
	case ActionDefend:
		return "defend"
	case ActionHeal:
		return "heal"
	default:
		return "unknown"
	}
}

// ParseAction converts a script verb into an Action. Matching ignores case.
func ParseAction(s string) (Action, error) {
	switch strings.ToLower(s) {
	case "move":
		return ActionMove, nil
	case "attack":
		return ActionAttack, nil
	case "defend":
		return ActionDefend, nil
	case "heal":
		return ActionHeal, nil
	default:
		return 0, fmt.Errorf("%w %q", ErrUnknownAction, s)
	}
}

// Intent is one parsed command. Target is set for move and attack, Amount
// for heal.
type Intent struct {
	Line   int
	Action Action
	Unit   string
	Target world.Position
	Amount int
	Guard  *Guard
}

// String renders the intent back in script form, without its guard.
func (i Intent) String() string {
	switch i.Action {
	case ActionMove, ActionAttack:
		return fmt.Sprintf("%s %s %d,%d", i.Action, i.Unit, i.Target.X, i.Target.Y)
	case ActionHeal:
		return fmt.Sprintf("%s %s %d", i.Action, i.Unit, i.Amount)
	default:
		return fmt.Sprintf("%s %s", i.Action, i.Unit)
	}
}

// Diagnostic describes a line that could not be parsed.
type Diagnostic struct {
	Line int
	Text string
	Err  error
}

func (d Diagnostic) Error() string {
	return fmt.Sprintf("line %d: %v", d.Line, d.Err)
}

// Unwrap exposes the underlying sentinel for errors.Is.
func (d Diagnostic) Unwrap() error { return d.Err }

// Result holds everything parsed from a script. A bad line never stops
// parsing; it lands in Diagnostics and the next line is tried.
type Result struct {
	Intents     []Intent
	Diagnostics []Diagnostic
}

// OK reports whether every line parsed.
func (r Result) OK() bool { return len(r.Diagnostics) == 0 }

// GuardEnv is the environment guard expressions are evaluated against.
type GuardEnv struct {
	Health    int
	MaxHealth int
	Attack    int
	Defense   int
	Turn      int
	Status    string
	Kind      string
	Level     int
}

// Guard is a compiled boolean condition.
type Guard struct {
	Source  string
	program *vm.Program
}

// CompileGuard compiles src against GuardEnv. The expression must be boolean.
func CompileGuard(src string) (*Guard, error) {
	prog, err := expr.Compile(src, expr.Env(GuardEnv{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrGuard, src, err)
	}
	return &Guard{Source: src, program: prog}, nil
}

// Eval runs the guard. A nil guard always passes.
func (g *Guard) Eval(env GuardEnv) (bool, error) {
	if g == nil {
		return true, nil
	}
	out, err := vm.Run(g.program, env)
	if err != nil {
		return false, fmt.Errorf("guard %q: %w", g.Source, err)
	}
	ok, _ := out.(bool)
	return ok, nil
}

// Parse folds src into intents and diagnostics. Line numbers start at 1.
func Parse(src string) Result {
	var res Result
	for i, raw := range strings.Split(src, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		intent, err := ParseLine(line)
		if err != nil {
			res.Diagnostics = append(res.Diagnostics, Diagnostic{Line: i + 1, Text: line, Err: err})
			continue
		}
		intent.Line = i + 1
		res.Intents = append(res.Intents, intent)
	}
	return res
}

// ParseLine parses a single command. The returned intent has Line 0.
func ParseLine(line string) (Intent, error) {
	command, cond, hasGuard := strings.Cut(line, " if ")

	var intent Intent
	if hasGuard {
		cond = strings.TrimSpace(cond)
		if cond == "" {
			return Intent{}, fmt.Errorf("%w: empty guard", ErrSyntax)
		}
		guard, err := CompileGuard(cond)
		if err != nil {
			return Intent{}, err
		}
		intent.Guard = guard
	}

	fields := strings.Fields(command)
	if len(fields) == 0 {
		return Intent{}, fmt.Errorf("%w: empty command", ErrSyntax)
	}
	action, err := ParseAction(fields[0])
	if err != nil {
		return Intent{}, err
	}
	intent.Action = action
	args := fields[1:]

	switch action {
	case ActionMove, ActionAttack:
		if len(args) != 2 {
			return Intent{}, fmt.Errorf("%w: %s takes <unit> <x>,<y>", ErrSyntax, action)
		}
		pos, err := parsePosition(args[1])
		if err != nil {
			return Intent{}, err
		}
		intent.Unit, intent.Target = args[0], pos
	case ActionDefend:
		if len(args) != 1 {
			return Intent{}, fmt.Errorf("%w: defend takes <unit>", ErrSyntax)
		}
		intent.Unit = args[0]
	case ActionHeal:
		if len(args) != 2 {
			return Intent{}, fmt.Errorf("%w: heal takes <unit> <amount>", ErrSyntax)
		}
		amount, err := strconv.Atoi(args[1])
		if err != nil || amount < 0 {
			return Intent{}, fmt.Errorf("%w: bad heal amount %q", ErrSyntax, args[1])
		}
		intent.Unit, intent.Amount = args[0], amount
	}
	return intent, nil
}

func parsePosition(s string) (world.Position, error) {
	xs, ys, ok := strings.Cut(s, ",")
	if !ok {
		return world.Position{}, fmt.Errorf("%w: position %q must be x,y", ErrSyntax, s)
	}
	x, errX := strconv.Atoi(xs)
	y, errY := strconv.Atoi(ys)
	if errX != nil || errY != nil {
		return world.Position{}, fmt.Errorf("%w: position %q must be x,y", ErrSyntax, s)
	}
	return world.Pos(x, y), nil
}
