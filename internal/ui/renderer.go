package ui

import (
	"fmt"

	"github.com/gdamore/tcell/v2"

	"github.com/samdwyer/skirmish/internal/entity"
	"github.com/samdwyer/skirmish/internal/game"
	"github.com/samdwyer/skirmish/internal/gamedata"
	"github.com/samdwyer/skirmish/internal/world"
)

// mapTop is the screen row of the first map row; rows above hold the header.
const mapTop = 2

// Player colours by join order.
var playerColors = []tcell.Color{tcell.ColorMaroon, tcell.ColorNavy, tcell.ColorDarkGreen, tcell.ColorPurple}

// Renderer handles drawing the game to the screen.
type Renderer struct {
	screen *Screen
}

// NewRenderer creates a new renderer for the given screen.
func NewRenderer(screen *Screen) *Renderer {
	return &Renderer{screen: screen}
}

// LayoutFor returns where a map of the given view is drawn.
func LayoutFor(view world.MapView) Layout {
	return Layout{OriginX: 1, OriginY: mapTop, Width: view.Size[0], Height: view.Size[1]}
}

// Render draws the snapshot: a header, the terrain grid with living units on
// top, a unit roster to the right and the cursor cell highlighted.
func (r *Renderer) Render(snap game.Snapshot, cursor world.Position) Layout {
	r.screen.Clear()
	layout := LayoutFor(snap.Map)

	header := fmt.Sprintf("%s  turn %d  %s to act", snap.Map.DisplayName, snap.Turn, snap.CurrentPlayer)
	if snap.GameOver {
		header = fmt.Sprintf("%s  game over, winner: %s", snap.Map.DisplayName, winnerName(snap.Winner))
	}
	r.screen.DrawText(0, 0, header, tcell.StyleDefault.Bold(true))

	for y, row := range snap.Map.Terrain {
		for x, code := range row {
			t, ok := cellTerrain(code)
			if !ok {
				continue
			}
			sx, sy := layout.ScreenPos(world.Pos(x, y))
			style := terrainStyle(t)
			if cursor == world.Pos(x, y) {
				style = style.Reverse(true)
			}
			r.screen.SetContent(sx, sy, terrainRune(t), style)
			r.screen.SetContent(sx+1, sy, ' ', style)
		}
	}

	owners := make(map[string]tcell.Color, len(snap.Players))
	for i, p := range snap.Players {
		owners[p.ID] = playerColors[i%len(playerColors)]
	}
	for _, u := range snap.Units {
		if u.Status == entity.StatusDead {
			continue
		}
		sx, sy := layout.ScreenPos(u.Position)
		glyph, fg := unitGlyph(u.Kind)
		style := tcell.StyleDefault.Foreground(fg).Background(owners[u.Owner]).Bold(u.Status == entity.StatusReady)
		if cursor == u.Position {
			style = style.Reverse(true)
		}
		r.screen.SetContent(sx, sy, glyph, style)
	}

	r.renderRoster(snap, layout.Right()+2, mapTop, owners)
	r.screen.Show()
	return layout
}

func (r *Renderer) renderRoster(snap game.Snapshot, x, y int, owners map[string]tcell.Color) {
	for _, p := range snap.Players {
		style := tcell.StyleDefault.Foreground(tcell.ColorWhite).Background(owners[p.ID])
		r.screen.DrawText(x, y, fmt.Sprintf("%s (%s)", p.Name, p.ID), style)
		y++
		for _, u := range snap.Units {
			if u.Owner != p.ID {
				continue
			}
			line := fmt.Sprintf(" %-16s %3d/%-3d %-9s L%d", u.ID, u.Health, u.MaxHealth, u.Status, u.Level)
			style := tcell.StyleDefault
			if u.Status == entity.StatusDead {
				style = style.Foreground(tcell.ColorDarkGray)
			}
			r.screen.DrawText(x, y, line, style)
			y++
		}
		y++
	}
}

// RenderMessage displays a message at the bottom of the screen.
func (r *Renderer) RenderMessage(msg string, y int) {
	style := tcell.StyleDefault.Foreground(tcell.ColorWhite)
	r.screen.DrawText(0, y, msg, style)
	r.screen.Show()
}

// Describe returns a one-line description of a map cell for the status line.
func Describe(snap game.Snapshot, pos world.Position) string {
	if pos.Y < 0 || pos.Y >= len(snap.Map.Terrain) || pos.X < 0 || pos.X >= len(snap.Map.Terrain[pos.Y]) {
		return fmt.Sprintf("%s: off the map", pos)
	}
	t, _ := cellTerrain(snap.Map.Terrain[pos.Y][pos.X])
	u, ok := snap.UnitAt(pos)
	if !ok {
		return fmt.Sprintf("%s: %s", pos, t)
	}
	return fmt.Sprintf("%s: %s, %s %s of %s, health %d/%d, atk %d def %d, %s",
		pos, t, u.Kind, u.ID, u.Owner, u.Health, u.MaxHealth, u.Attack, u.Defense, u.Status)
}

func cellTerrain(code string) (world.Terrain, bool) {
	runes := []rune(code)
	if len(runes) != 1 {
		return 0, false
	}
	t, err := world.ParseTerrainCode(runes[0])
	return t, err == nil
}

func terrainRune(t world.Terrain) rune {
	switch t {
	case world.TerrainLand:
		return '.'
	case world.TerrainWater:
		return '~'
	case world.TerrainMountain:
		return '^'
	case world.TerrainForest:
		return '"'
	case world.TerrainAir:
		return ' '
	default:
		return '?'
	}
}

func terrainStyle(t world.Terrain) tcell.Style {
	switch t {
	case world.TerrainLand:
		return tcell.StyleDefault.Foreground(tcell.ColorOlive)
	case world.TerrainWater:
		return tcell.StyleDefault.Foreground(tcell.ColorBlue)
	case world.TerrainMountain:
		return tcell.StyleDefault.Foreground(tcell.ColorGray)
	case world.TerrainForest:
		return tcell.StyleDefault.Foreground(tcell.ColorGreen)
	default:
		return tcell.StyleDefault
	}
}

func unitGlyph(kind gamedata.UnitKind) (rune, tcell.Color) {
	def := gamedata.Catalog().Def(kind)
	if def == nil {
		return '?', tcell.ColorWhite
	}
	return def.GlyphRune(), def.TCellColor()
}

func winnerName(id string) string {
	if id == "" {
		return "none"
	}
	return id
}
