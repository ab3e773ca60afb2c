package engine

import "math"

// spatialGrid is a uniform hash grid broad phase. Bodies are inserted
// by AABB; candidate pairs are bodies sharing at least one cell.
type spatialGrid struct {
	cellSize float64
	cells    map[gridCell][]*Body
}

type gridCell struct {
	x, y, z int
}

func newSpatialGrid(cellSize float64) *spatialGrid {
	return &spatialGrid{
		cellSize: cellSize,
		cells:    make(map[gridCell][]*Body),
	}
}

func (g *spatialGrid) clear() {
	for k := range g.cells {
		delete(g.cells, k)
	}
}

func (g *spatialGrid) cellOf(x, y, z float64) gridCell {
	return gridCell{
		x: int(math.Floor(x / g.cellSize)),
		y: int(math.Floor(y / g.cellSize)),
		z: int(math.Floor(z / g.cellSize)),
	}
}

func (g *spatialGrid) insert(b *Body) {
	lo, hi := b.aabb()
	c0 := g.cellOf(lo.X, lo.Y, lo.Z)
	c1 := g.cellOf(hi.X, hi.Y, hi.Z)
	for x := c0.x; x <= c1.x; x++ {
		for y := c0.y; y <= c1.y; y++ {
			for z := c0.z; z <= c1.z; z++ {
				c := gridCell{x, y, z}
				g.cells[c] = append(g.cells[c], b)
			}
		}
	}
}

// potentialPairs returns candidate pairs from all cells, deduplicated
// by body insertion order.
func (g *spatialGrid) potentialPairs() [][2]*Body {
	type pairKey struct{ a, b int }
	seen := make(map[pairKey]struct{})
	var pairs [][2]*Body

	for _, bodies := range g.cells {
		for i := 0; i < len(bodies); i++ {
			for j := i + 1; j < len(bodies); j++ {
				a, b := bodies[i], bodies[j]
				if a.seq > b.seq {
					a, b = b, a
				}
				k := pairKey{a.seq, b.seq}
				if _, ok := seen[k]; ok {
					continue
				}
				seen[k] = struct{}{}
				pairs = append(pairs, [2]*Body{a, b})
			}
		}
	}
	return pairs
}
