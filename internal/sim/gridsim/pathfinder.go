package gridsim

import (
	"container/heap"
	"math"
	"math/rand"

	"github.com/be2rlab/OpenSemanticMapping/internal/geom"
	"github.com/be2rlab/OpenSemanticMapping/internal/sim"
)

// navHeight is how far above or below the floor a point may be and still
// count as on it.
const navHeight = 0.5

// Pathfinder answers navmesh queries against a World.
type Pathfinder struct {
	world *World
}

var _ sim.Pathfinder = (*Pathfinder)(nil)

// NewPathfinder returns a Pathfinder over w.
func NewPathfinder(w *World) *Pathfinder { return &Pathfinder{world: w} }

// IsNavigable reports whether p lies over a floor cell.
func (p *Pathfinder) IsNavigable(pt geom.Vec3) bool {
	if pt.HasNaN() || math.Abs(pt.Y) > navHeight {
		return false
	}
	c, r := p.world.Cell(pt)
	return p.world.Free(c, r)
}

// DistanceToObstacle returns the horizontal distance from pt to the closest
// non-floor cell, capped at maxSearch.
func (p *Pathfinder) DistanceToObstacle(pt geom.Vec3, maxSearch float64) float64 {
	w := p.world
	c0, r0 := w.Cell(pt)
	if !w.Free(c0, r0) {
		return 0
	}

	reach := int(math.Ceil(maxSearch/w.CellSize)) + 1
	best := maxSearch
	for r := r0 - reach; r <= r0+reach; r++ {
		for c := c0 - reach; c <= c0+reach; c++ {
			if w.Free(c, r) {
				continue
			}
			if d := distToCell(w, pt, c, r); d < best {
				best = d
			}
		}
	}
	return best
}

// SamplePoint draws up to c.MaxTries candidates and returns the first one
// over a floor cell. When every try misses it returns a NaN point.
func (p *Pathfinder) SamplePoint(rng *rand.Rand, c sim.Constraint) (geom.Vec3, error) {
	tries := max(c.MaxTries, 1)
	maxX, maxZ := p.world.Bounds()
	for i := 0; i < tries; i++ {
		var pt geom.Vec3
		if c.Near != nil {
			rad := c.Radius * math.Sqrt(rng.Float64())
			theta := 2 * math.Pi * rng.Float64()
			pt = geom.Vec3{X: c.Near.X + rad*math.Cos(theta), Y: c.Near.Y, Z: c.Near.Z + rad*math.Sin(theta)}
		} else {
			pt = geom.Vec3{X: rng.Float64() * maxX, Z: rng.Float64() * maxZ}
		}
		if p.IsNavigable(pt) {
			return pt, nil
		}
	}
	return geom.NaN3(), nil
}

// FindPath returns floor points from start to goal through cell centers,
// ending at goal itself. It returns sim.ErrNoPath when either end is off
// the floor or the cells are not connected.
func (p *Pathfinder) FindPath(start, goal geom.Vec3) ([]geom.Vec3, error) {
	if !p.IsNavigable(start) || !p.IsNavigable(goal) {
		return nil, sim.ErrNoPath
	}
	w := p.world
	sc, sr := w.Cell(start)
	gc, gr := w.Cell(goal)

	cells, ok := astar(w, cell{sc, sr}, cell{gc, gr})
	if !ok {
		return nil, sim.ErrNoPath
	}

	path := make([]geom.Vec3, 0, len(cells)+1)
	path = append(path, start)
	for _, cl := range cells[1:] {
		path = append(path, w.Center(cl.c, cl.r))
	}
	if len(cells) > 1 {
		path = path[:len(path)-1]
	}
	path = append(path, goal)
	return path, nil
}

func distToCell(w *World, pt geom.Vec3, c, r int) float64 {
	x0, z0 := float64(c)*w.CellSize, float64(r)*w.CellSize
	dx := math.Max(math.Max(x0-pt.X, 0), pt.X-(x0+w.CellSize))
	dz := math.Max(math.Max(z0-pt.Z, 0), pt.Z-(z0+w.CellSize))
	return math.Hypot(dx, dz)
}

type cell struct{ c, r int }

type node struct {
	cell
	f     float64
	index int
}

type openSet []*node

func (o openSet) Len() int           { return len(o) }
func (o openSet) Less(i, j int) bool { return o[i].f < o[j].f }
func (o openSet) Swap(i, j int) {
	o[i], o[j] = o[j], o[i]
	o[i].index = i
	o[j].index = j
}
func (o *openSet) Push(x any) {
	n := x.(*node)
	n.index = len(*o)
	*o = append(*o, n)
}
func (o *openSet) Pop() any {
	old := *o
	n := old[len(old)-1]
	*o = old[:len(old)-1]
	return n
}

var neighbours = []struct {
	dc, dr int
	cost   float64
}{
	{1, 0, 1}, {-1, 0, 1}, {0, 1, 1}, {0, -1, 1},
	{1, 1, math.Sqrt2}, {1, -1, math.Sqrt2}, {-1, 1, math.Sqrt2}, {-1, -1, math.Sqrt2},
}

// astar searches the 8-connected floor graph. Diagonal moves require both
// adjacent orthogonal cells to be free so paths never cut a corner.
func astar(w *World, start, goal cell) ([]cell, bool) {
	h := func(a cell) float64 {
		return math.Hypot(float64(a.c-goal.c), float64(a.r-goal.r))
	}

	g := map[cell]float64{start: 0}
	from := map[cell]cell{}
	closed := map[cell]bool{}
	open := &openSet{{cell: start, f: h(start)}}

	for open.Len() > 0 {
		cur := heap.Pop(open).(*node).cell
		if cur == goal {
			path := []cell{cur}
			for cur != start {
				cur = from[cur]
				path = append(path, cur)
			}
			for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
				path[i], path[j] = path[j], path[i]
			}
			return path, true
		}
		if closed[cur] {
			continue
		}
		closed[cur] = true

		for _, n := range neighbours {
			next := cell{cur.c + n.dc, cur.r + n.dr}
			if !w.Free(next.c, next.r) || closed[next] {
				continue
			}
			if n.dc != 0 && n.dr != 0 && (!w.Free(cur.c+n.dc, cur.r) || !w.Free(cur.c, cur.r+n.dr)) {
				continue
			}
			cost := g[cur] + n.cost
			if old, seen := g[next]; seen && cost >= old {
				continue
			}
			g[next] = cost
			from[next] = cur
			heap.Push(open, &node{cell: next, f: cost + h(next)})
		}
	}
	return nil, false
}
