package ui

import "github.com/samdwyer/skirmish/internal/world"

// cellWidth is how many screen columns one map cell occupies.
const cellWidth = 2

// Layout maps between screen coordinates and map cells. The map's top-left
// cell is drawn at (OriginX, OriginY).
type Layout struct {
	OriginX, OriginY int
	Width, Height    int // map size in cells
}

// CellAt returns the map cell under a screen coordinate, or false when the
// coordinate lies outside the drawn map.
func (l Layout) CellAt(screenX, screenY int) (world.Position, bool) {
	dx := screenX - l.OriginX
	dy := screenY - l.OriginY
	if dx < 0 || dy < 0 {
		return world.Position{}, false
	}
	pos := world.Pos(dx/cellWidth, dy)
	if pos.X >= l.Width || pos.Y >= l.Height {
		return world.Position{}, false
	}
	return pos, true
}

// ScreenPos returns the screen coordinate where pos is drawn.
func (l Layout) ScreenPos(pos world.Position) (x, y int) {
	return l.OriginX + pos.X*cellWidth, l.OriginY + pos.Y
}

// Right returns the first screen column past the drawn map.
func (l Layout) Right() int {
	return l.OriginX + l.Width*cellWidth
}
