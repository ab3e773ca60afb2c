package protocol

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/Bingouzi3/chrono/internal/mesh"
	"github.com/Bingouzi3/chrono/internal/phys"
)

// Material carries the tire contact material properties, sent once by
// the rig before any other exchange.
type Material struct {
	Friction     float64
	Restitution  float64
	YoungModulus float64
	PoissonRatio float64
	Kn, Gn       float64
	Kt, Gt       float64
}

// Dims is the terrain->rig handshake reply: settled terrain height
// (already adjusted for proxy radius) and the container half-length.
type Dims struct {
	Height     float64
	HalfLength float64
}

// Topology is the rig->terrain mesh size agreement. It is exchanged
// exactly once; every later mesh-state frame must match it.
type Topology struct {
	NumVertices  uint32
	NumTriangles uint32
}

// ForceSet is the variable-length terrain->rig reply: vertex indices in
// contact and the corresponding force components.
type ForceSet struct {
	Indices []uint32
	Forces  []phys.Vec3
}

func putF64(b []byte, off int, v float64) {
	binary.BigEndian.PutUint64(b[off:off+8], math.Float64bits(v))
}

func getF64(b []byte, off int) float64 {
	return math.Float64frombits(binary.BigEndian.Uint64(b[off : off+8]))
}

// --- material ---

func EncodeMaterial(m Material) Frame {
	buf := make([]byte, 8*8)
	vals := [8]float64{m.Friction, m.Restitution, m.YoungModulus, m.PoissonRatio, m.Kn, m.Gn, m.Kt, m.Gt}
	for i, v := range vals {
		putF64(buf, 8*i, v)
	}
	return NewFrame(KindMaterial, 0, 8, buf)
}

func DecodeMaterial(f Frame) (Material, error) {
	if f.Header.Kind != KindMaterial {
		return Material{}, fmt.Errorf("%w: got %s want %s", ErrKindMismatch, f.Header.Kind, KindMaterial)
	}
	if len(f.Payload) != 8*8 || f.Header.Count != 8 {
		return Material{}, fmt.Errorf("%w: material frame %d bytes, count %d", ErrSizeMismatch, len(f.Payload), f.Header.Count)
	}
	return Material{
		Friction:     getF64(f.Payload, 0),
		Restitution:  getF64(f.Payload, 8),
		YoungModulus: getF64(f.Payload, 16),
		PoissonRatio: getF64(f.Payload, 24),
		Kn:           getF64(f.Payload, 32),
		Gn:           getF64(f.Payload, 40),
		Kt:           getF64(f.Payload, 48),
		Gt:           getF64(f.Payload, 56),
	}, nil
}

// --- dims ---

func EncodeDims(d Dims) Frame {
	buf := make([]byte, 16)
	putF64(buf, 0, d.Height)
	putF64(buf, 8, d.HalfLength)
	return NewFrame(KindDims, 0, 2, buf)
}

func DecodeDims(f Frame) (Dims, error) {
	if f.Header.Kind != KindDims {
		return Dims{}, fmt.Errorf("%w: got %s want %s", ErrKindMismatch, f.Header.Kind, KindDims)
	}
	if len(f.Payload) != 16 || f.Header.Count != 2 {
		return Dims{}, fmt.Errorf("%w: dims frame %d bytes, count %d", ErrSizeMismatch, len(f.Payload), f.Header.Count)
	}
	return Dims{Height: getF64(f.Payload, 0), HalfLength: getF64(f.Payload, 8)}, nil
}

// --- topology ---

func EncodeTopology(t Topology) Frame {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint32(buf[0:4], t.NumVertices)
	binary.BigEndian.PutUint32(buf[4:8], t.NumTriangles)
	return NewFrame(KindTopology, 0, 2, buf)
}

func DecodeTopology(f Frame) (Topology, error) {
	if f.Header.Kind != KindTopology {
		return Topology{}, fmt.Errorf("%w: got %s want %s", ErrKindMismatch, f.Header.Kind, KindTopology)
	}
	if len(f.Payload) != 8 || f.Header.Count != 2 {
		return Topology{}, fmt.Errorf("%w: topology frame %d bytes, count %d", ErrSizeMismatch, len(f.Payload), f.Header.Count)
	}
	return Topology{
		NumVertices:  binary.BigEndian.Uint32(f.Payload[0:4]),
		NumTriangles: binary.BigEndian.Uint32(f.Payload[4:8]),
	}, nil
}

// --- mesh state ---

// EncodeMeshState packs N vertices x (position, velocity) vertex-major
// (all positions, then all velocities) followed by 3M triangle indices.
func EncodeMeshState(step uint32, st mesh.State) Frame {
	n := len(st.Vertices)
	m := len(st.Triangles)
	buf := make([]byte, 2*3*8*n+3*4*m)

	for i, v := range st.Vertices {
		off := 3 * 8 * i
		putF64(buf, off, v.Pos.X)
		putF64(buf, off+8, v.Pos.Y)
		putF64(buf, off+16, v.Pos.Z)
	}
	velBase := 3 * 8 * n
	for i, v := range st.Vertices {
		off := velBase + 3*8*i
		putF64(buf, off, v.Vel.X)
		putF64(buf, off+8, v.Vel.Y)
		putF64(buf, off+16, v.Vel.Z)
	}
	triBase := 2 * 3 * 8 * n
	for i, tr := range st.Triangles {
		off := triBase + 3*4*i
		binary.BigEndian.PutUint32(buf[off:off+4], tr.V1)
		binary.BigEndian.PutUint32(buf[off+4:off+8], tr.V2)
		binary.BigEndian.PutUint32(buf[off+8:off+12], tr.V3)
	}
	return NewFrame(KindMeshState, step, uint32(n), buf)
}

// DecodeMeshState unpacks a mesh-state frame using the topology agreed
// at initialization. A frame whose declared vertex count or payload
// size disagrees with that topology is a protocol violation.
func DecodeMeshState(f Frame, topo Topology) (mesh.State, error) {
	if f.Header.Kind != KindMeshState {
		return mesh.State{}, fmt.Errorf("%w: got %s want %s", ErrKindMismatch, f.Header.Kind, KindMeshState)
	}
	n := int(topo.NumVertices)
	m := int(topo.NumTriangles)
	want := 2*3*8*n + 3*4*m
	if f.Header.Count != topo.NumVertices {
		return mesh.State{}, fmt.Errorf("%w: mesh-state declares %d vertices, agreed %d",
			ErrSizeMismatch, f.Header.Count, topo.NumVertices)
	}
	if len(f.Payload) != want {
		return mesh.State{}, fmt.Errorf("%w: mesh-state payload %d bytes, agreed topology needs %d",
			ErrSizeMismatch, len(f.Payload), want)
	}

	st := mesh.State{
		Vertices:  make([]mesh.VertexState, n),
		Triangles: make([]mesh.Triangle, m),
	}
	velBase := 3 * 8 * n
	for i := 0; i < n; i++ {
		off := 3 * 8 * i
		st.Vertices[i].Pos = phys.Vec3{X: getF64(f.Payload, off), Y: getF64(f.Payload, off+8), Z: getF64(f.Payload, off+16)}
		off = velBase + 3*8*i
		st.Vertices[i].Vel = phys.Vec3{X: getF64(f.Payload, off), Y: getF64(f.Payload, off+8), Z: getF64(f.Payload, off+16)}
	}
	triBase := 2 * 3 * 8 * n
	for i := 0; i < m; i++ {
		off := triBase + 3*4*i
		tr := mesh.Triangle{
			V1: binary.BigEndian.Uint32(f.Payload[off : off+4]),
			V2: binary.BigEndian.Uint32(f.Payload[off+4 : off+8]),
			V3: binary.BigEndian.Uint32(f.Payload[off+8 : off+12]),
		}
		// Connectivity must stay inside the agreed vertex range; a
		// frame that escapes it is malformed, same as a bad length.
		for _, vi := range [3]uint32{tr.V1, tr.V2, tr.V3} {
			if vi >= topo.NumVertices {
				return mesh.State{}, fmt.Errorf("%w: triangle %d references vertex %d of %d",
					ErrSizeMismatch, i, vi, topo.NumVertices)
			}
		}
		st.Triangles[i] = tr
	}
	return st, nil
}

// --- forces ---

func EncodeForces(step uint32, fs ForceSet) Frame {
	k := len(fs.Indices)
	buf := make([]byte, 4*k+3*8*k)
	for i, idx := range fs.Indices {
		binary.BigEndian.PutUint32(buf[4*i:4*i+4], idx)
	}
	base := 4 * k
	for i, fv := range fs.Forces {
		off := base + 3*8*i
		putF64(buf, off, fv.X)
		putF64(buf, off+8, fv.Y)
		putF64(buf, off+16, fv.Z)
	}
	return NewFrame(KindForces, step, uint32(k), buf)
}

func DecodeForces(f Frame) (ForceSet, error) {
	if f.Header.Kind != KindForces {
		return ForceSet{}, fmt.Errorf("%w: got %s want %s", ErrKindMismatch, f.Header.Kind, KindForces)
	}
	k := int(f.Header.Count)
	want := 4*k + 3*8*k
	if len(f.Payload) != want {
		return ForceSet{}, fmt.Errorf("%w: forces frame declares %d vertices but carries %d bytes",
			ErrSizeMismatch, k, len(f.Payload))
	}
	fs := ForceSet{
		Indices: make([]uint32, k),
		Forces:  make([]phys.Vec3, k),
	}
	for i := 0; i < k; i++ {
		fs.Indices[i] = binary.BigEndian.Uint32(f.Payload[4*i : 4*i+4])
	}
	base := 4 * k
	for i := 0; i < k; i++ {
		off := base + 3*8*i
		fs.Forces[i] = phys.Vec3{X: getF64(f.Payload, off), Y: getF64(f.Payload, off+8), Z: getF64(f.Payload, off+16)}
	}
	return fs, nil
}

// --- barrier / abort ---

func EncodeBarrier(step uint32) Frame {
	return NewFrame(KindBarrier, step, 0, nil)
}

func EncodeAbort(reason string) Frame {
	return NewFrame(KindAbort, 0, 0, []byte(reason))
}

func AbortReason(f Frame) string {
	return string(f.Payload)
}
