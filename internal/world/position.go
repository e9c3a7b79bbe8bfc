package world

import "fmt"

// Position is a cell coordinate on the map grid.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Pos is shorthand for Position{X: x, Y: y}.
func Pos(x, y int) Position {
	return Position{X: x, Y: y}
}

// Distance returns the Manhattan distance between two positions.
func (p Position) Distance(other Position) int {
	return abs(p.X-other.X) + abs(p.Y-other.Y)
}

// Neighbors returns the four orthogonally adjacent positions.
func (p Position) Neighbors() [4]Position {
	return [4]Position{
		{p.X, p.Y - 1},
		{p.X + 1, p.Y},
		{p.X, p.Y + 1},
		{p.X - 1, p.Y},
	}
}

func (p Position) String() string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Y)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
