package hexmap

// FindPath returns a shortest sequence of cells leading from source to
// destination, found by breadth-first search over passable neighbours.
//
// The path excludes the source cell and ends at the destination. When source
// and destination coincide the path is empty. The second result is false if
// either end lies outside the grid or the destination cannot be reached.
func (g *Grid) FindPath(source, destination Coordinates) ([]*Cell, bool) {
	start, ok := g.Cell(source)
	if !ok {
		return nil, false
	}
	goal, ok := g.Cell(destination)
	if !ok {
		return nil, false
	}
	if start == goal {
		return []*Cell{}, true
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	if goal.Blocked {
		return nil, false
	}

	// each visited cell maps to the cell we reached it from
	cameFrom := map[*Cell]*Cell{start: nil}
	queue := []*Cell{start}

	for len(queue) > 0 {
		cell := queue[0]
		queue = queue[1:]
		if cell == goal {
			return reconstruct(goal, cameFrom), true
		}
		for _, n := range g.Neighbours(cell) {
			if n.Blocked {
				continue
			}
			if _, seen := cameFrom[n]; seen {
				continue
			}
			cameFrom[n] = cell
			queue = append(queue, n)
		}
	}
	return nil, false
}

func reconstruct(goal *Cell, cameFrom map[*Cell]*Cell) []*Cell {
	var reversed []*Cell
	for c := goal; cameFrom[c] != nil; c = cameFrom[c] {
		reversed = append(reversed, c)
	}
	path := make([]*Cell, len(reversed))
	for i, c := range reversed {
		path[len(reversed)-1-i] = c
	}
	return path
}
