package terrain

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Bingouzi3/chrono/internal/phys"
)

// Checkpoint file layout, one value row per particle:
//
//	<time>
//	<count>
//	<id> <x y z> <q0 q1 q2 q3> <vx vy vz> <wq0 wq1 wq2 wq3>
//
// Angular state is stored as the quaternion time derivative, not the
// angular velocity vector.

// WriteCheckpoint persists the granular state so later runs can skip
// the settling phase.
func (n *Node) WriteCheckpoint(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("terrain: checkpoint dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("terrain: checkpoint create: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	fmt.Fprintf(w, "%.7e\n", n.sys.Time())
	fmt.Fprintf(w, "%d\n", n.numParticles)
	for _, b := range n.particles() {
		p, q, v, d := b.Pos(), b.Rot(), b.Vel(), b.RotDeriv()
		fmt.Fprintf(w, "%d %.7e %.7e %.7e %.7e %.7e %.7e %.7e %.7e %.7e %.7e %.7e %.7e %.7e %.7e\n",
			b.Identifier(),
			p.X, p.Y, p.Z,
			q.E0, q.E1, q.E2, q.E3,
			v.X, v.Y, v.Z,
			d.E0, d.E1, d.E2, d.E3)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("terrain: checkpoint write: %w", err)
	}
	n.log.Info().Str("file", path).Int("particles", n.numParticles).Msg("wrote checkpoint")
	return nil
}

// ReadCheckpoint restores particle states written by WriteCheckpoint.
// The checkpoint must describe exactly the particle set this node
// generated; a count mismatch is fatal. Rows are applied to particles
// in identifier order, which is also file order.
func (n *Node) ReadCheckpoint(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("terrain: checkpoint open: %w", err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	var t float64
	if _, err := fmt.Fscan(r, &t); err != nil {
		return fmt.Errorf("terrain: checkpoint time: %w", err)
	}
	var count int
	if _, err := fmt.Fscan(r, &count); err != nil {
		return fmt.Errorf("terrain: checkpoint count: %w", err)
	}
	if count != n.numParticles {
		return fmt.Errorf("%w: file has %d, system has %d",
			ErrCheckpointCount, count, n.numParticles)
	}

	for _, b := range n.particles() {
		var id int
		var p, v phys.Vec3
		var q, d phys.Quat
		_, err := fmt.Fscan(r, &id,
			&p.X, &p.Y, &p.Z,
			&q.E0, &q.E1, &q.E2, &q.E3,
			&v.X, &v.Y, &v.Z,
			&d.E0, &d.E1, &d.E2, &d.E3)
		if err != nil {
			return fmt.Errorf("terrain: checkpoint particle %d: %w", b.Identifier(), err)
		}
		if id != b.Identifier() {
			return fmt.Errorf("%w: row id %d does not match particle %d",
				ErrCheckpointCount, id, b.Identifier())
		}
		b.SetPos(p)
		b.SetRot(q)
		b.SetVel(v)
		b.SetRotDeriv(d)
	}
	n.sys.SetTime(t)
	return nil
}
