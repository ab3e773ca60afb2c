package terrain

import (
	"math"
	"math/rand"
)

type point2 struct{ X, Y float64 }

// sampler generates particle layer positions. Seeded deterministically
// so both repeated runs and checkpoint-restored runs see the same body
// creation order.
type sampler struct {
	rng *rand.Rand
}

func newSampler(seed int64) *sampler {
	return &sampler{rng: rand.New(rand.NewSource(seed))}
}

// poissonDisk fills the rectangle [-hx,hx] x [-hy,hy] with points at
// least minDist apart (Bridson's algorithm with k=30 candidates per
// active point).
func (s *sampler) poissonDisk(hx, hy, minDist float64) []point2 {
	const k = 30
	cell := minDist / math.Sqrt2
	nx := int(math.Ceil(2 * hx / cell))
	ny := int(math.Ceil(2 * hy / cell))
	if nx < 1 || ny < 1 {
		return nil
	}

	grid := make([]int, nx*ny)
	for i := range grid {
		grid[i] = -1
	}
	cellOf := func(p point2) (int, int) {
		cx := int((p.X + hx) / cell)
		cy := int((p.Y + hy) / cell)
		if cx >= nx {
			cx = nx - 1
		}
		if cy >= ny {
			cy = ny - 1
		}
		return cx, cy
	}

	var points []point2
	var active []int

	place := func(p point2) {
		cx, cy := cellOf(p)
		grid[cy*nx+cx] = len(points)
		points = append(points, p)
		active = append(active, len(points)-1)
	}

	fits := func(p point2) bool {
		if p.X < -hx || p.X > hx || p.Y < -hy || p.Y > hy {
			return false
		}
		cx, cy := cellOf(p)
		for dy := -2; dy <= 2; dy++ {
			for dx := -2; dx <= 2; dx++ {
				x, y := cx+dx, cy+dy
				if x < 0 || x >= nx || y < 0 || y >= ny {
					continue
				}
				j := grid[y*nx+x]
				if j < 0 {
					continue
				}
				ddx := points[j].X - p.X
				ddy := points[j].Y - p.Y
				if ddx*ddx+ddy*ddy < minDist*minDist {
					return false
				}
			}
		}
		return true
	}

	place(point2{
		X: (2*s.rng.Float64() - 1) * hx,
		Y: (2*s.rng.Float64() - 1) * hy,
	})

	for len(active) > 0 {
		ai := s.rng.Intn(len(active))
		base := points[active[ai]]
		found := false
		for i := 0; i < k; i++ {
			ang := 2 * math.Pi * s.rng.Float64()
			rad := minDist * (1 + s.rng.Float64())
			cand := point2{X: base.X + rad*math.Cos(ang), Y: base.Y + rad*math.Sin(ang)}
			if fits(cand) {
				place(cand)
				found = true
				break
			}
		}
		if !found {
			active[ai] = active[len(active)-1]
			active = active[:len(active)-1]
		}
	}
	return points
}
