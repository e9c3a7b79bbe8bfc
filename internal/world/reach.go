package world

import "container/heap"

// ReachableWithin returns every cell the unit could walk to from start with a
// total movement cost of at most budget, mapped to the cheapest cost found.
// Entering a cell costs that cell's movement multiplier; the start cell costs
// nothing. Unlike ReachableCells this accounts for path length.
func (m *Map) ReachableWithin(u Mover, start Position, budget float64) map[Position]float64 {
	best := make(map[Position]float64)
	if !m.InBounds(start) || budget < 0 {
		return best
	}

	kind := u.UnitKind()
	best[start] = 0
	frontier := &costQueue{{pos: start, cost: 0}}

	for frontier.Len() > 0 {
		cur := heap.Pop(frontier).(costItem)
		if cur.cost > best[cur.pos] {
			continue
		}
		for _, next := range cur.pos.Neighbors() {
			step := m.MovementCost(kind, next)
			if IsImpassable(step) {
				continue
			}
			cost := cur.cost + step
			if cost > budget {
				continue
			}
			if prev, seen := best[next]; seen && prev <= cost {
				continue
			}
			best[next] = cost
			heap.Push(frontier, costItem{pos: next, cost: cost})
		}
	}
	return best
}

type costItem struct {
	pos  Position
	cost float64
}

// costQueue is a min-heap of positions ordered by accumulated cost.
type costQueue []costItem

func (q costQueue) Len() int { return len(q) }

func (q costQueue) Less(i, j int) bool { return q[i].cost < q[j].cost }

func (q costQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *costQueue) Push(x any) { *q = append(*q, x.(costItem)) }

func (q *costQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}
