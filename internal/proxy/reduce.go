package proxy

import (
	"sort"

	"github.com/Bingouzi3/chrono/internal/mesh"
	"github.com/Bingouzi3/chrono/internal/phys"
	"github.com/Bingouzi3/chrono/internal/protocol"
)

// ReduceForces aggregates the cumulative contact forces on the proxies
// into per-vertex forces for the current step.
//
// At step 0 no prior mesh state exists on the terrain side, so the
// result is always empty; this is a valid protocol state, not an error.
//
// Node mode emits one (vertex, force) pair per proxy with nonzero
// force. Face mode splits each triangle force into equal thirds (the
// centroid's barycentric coordinates are uniform) and accumulates per
// vertex, since triangles share vertices; each contacted vertex is
// reported exactly once with its summed force. Output is ordered by
// vertex index so a run's reply is reproducible; floating-point
// summation order inside a vertex follows triangle order.
func (r *Registry) ReduceForces(step uint32, st mesh.State) protocol.ForceSet {
	if step == 0 {
		return protocol.ForceSet{}
	}
	switch r.mode {
	case FaceMode:
		return r.reduceFaceForces(st)
	default:
		return r.reduceNodeForces()
	}
}

func (r *Registry) reduceNodeForces() protocol.ForceSet {
	var fs protocol.ForceSet
	for _, p := range r.proxies {
		f := p.Body.ContactForce()
		if f.IsZero() {
			continue
		}
		fs.Indices = append(fs.Indices, uint32(p.MeshIndex))
		fs.Forces = append(fs.Forces, f)
	}
	return fs
}

func (r *Registry) reduceFaceForces(st mesh.State) protocol.ForceSet {
	acc := make(map[uint32]phys.Vec3)
	for _, p := range r.proxies {
		f := p.Body.ContactForce()
		if f.IsZero() {
			continue
		}
		third := f.Scale(1.0 / 3.0)
		tr := st.Triangles[p.MeshIndex]
		for _, vi := range [3]uint32{tr.V1, tr.V2, tr.V3} {
			acc[vi] = acc[vi].Add(third)
		}
	}

	indices := make([]uint32, 0, len(acc))
	for vi := range acc {
		indices = append(indices, vi)
	}
	sort.Slice(indices, func(i, j int) bool { return indices[i] < indices[j] })

	fs := protocol.ForceSet{
		Indices: indices,
		Forces:  make([]phys.Vec3, len(indices)),
	}
	for i, vi := range indices {
		fs.Forces[i] = acc[vi]
	}
	return fs
}
