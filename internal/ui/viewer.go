package ui

import (
	"context"
	"fmt"

	"github.com/gdamore/tcell/v2"
	"go.opentelemetry.io/otel/attribute"

	"github.com/samdwyer/skirmish/internal/game"
	"github.com/samdwyer/skirmish/internal/telemetry"
	"github.com/samdwyer/skirmish/internal/world"
)

// Viewer is an interactive map browser over a session. Arrow keys and mouse
// clicks move the cursor, n ends the turn, q or Esc quits.
type Viewer struct {
	screen   *Screen
	renderer *Renderer
	session  *game.Session
	layout   Layout
	cursor   world.Position
	message  string
	running  bool
}

// NewViewer creates a viewer drawing session on screen.
func NewViewer(screen *Screen, session *game.Session) *Viewer {
	return &Viewer{
		screen:   screen,
		renderer: NewRenderer(screen),
		session:  session,
		message:  "arrows/click: inspect  n: end turn  q: quit",
		running:  true,
	}
}

// Run executes the input loop until the user quits. The screen is not
// closed; that is the caller's job.
func (v *Viewer) Run(ctx context.Context) error {
	_, span := telemetry.Tracer("ui").Start(ctx, "viewer.run")
	defer span.End()

	events := 0
	for v.running {
		v.draw()
		v.handleInput(ctx)
		events++
	}
	span.SetAttributes(attribute.Int("events", events))
	return nil
}

func (v *Viewer) draw() {
	snap := v.session.Snapshot()
	v.layout = v.renderer.Render(snap, v.cursor)
	_, h := v.screen.Size()
	v.renderer.RenderMessage(v.message, h-1)
}

// handleInput processes a single input event.
func (v *Viewer) handleInput(ctx context.Context) {
	ev := v.screen.PollEvent()

	switch ev := ev.(type) {
	case *tcell.EventKey:
		v.handleKeyEvent(ctx, ev)
	case *tcell.EventMouse:
		if ev.Buttons()&tcell.Button1 == 0 {
			return
		}
		if pos, ok := v.layout.CellAt(ev.Position()); ok {
			v.cursor = pos
			v.message = Describe(v.session.Snapshot(), pos)
		}
	case *tcell.EventResize:
		v.screen.Sync()
	case nil:
		// Screen finalized.
		v.running = false
	}
}

// handleKeyEvent processes keyboard input.
func (v *Viewer) handleKeyEvent(ctx context.Context, ev *tcell.EventKey) {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		v.running = false

	case tcell.KeyUp:
		v.moveCursor(0, -1)
	case tcell.KeyDown:
		v.moveCursor(0, 1)
	case tcell.KeyLeft:
		v.moveCursor(-1, 0)
	case tcell.KeyRight:
		v.moveCursor(1, 0)

	case tcell.KeyRune:
		switch ev.Rune() {
		case 'q', 'Q':
			v.running = false
		case 'n', 'N':
			next, err := v.session.EndTurn(ctx)
			if err != nil {
				v.message = "end turn: " + err.Error()
			} else {
				v.message = fmt.Sprintf("%s to act", next)
			}
		}
	}
}

// moveCursor shifts the cursor, staying on the map.
func (v *Viewer) moveCursor(dx, dy int) {
	next := world.Pos(v.cursor.X+dx, v.cursor.Y+dy)
	if next.X < 0 || next.Y < 0 || next.X >= v.layout.Width || next.Y >= v.layout.Height {
		return
	}
	v.cursor = next
	v.message = Describe(v.session.Snapshot(), next)
}
