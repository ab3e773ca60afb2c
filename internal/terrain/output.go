package terrain

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
)

// OutputData writes one results frame: simulation time, particle count
// and radius, then one row per particle with identifier, position, and
// velocity.
func (n *Node) OutputData(frame int) error {
	dir := n.cfg.Run.OutputDir
	if dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("terrain: output dir: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("terrain_data_%04d.dat", frame))
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("terrain: output create: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	fmt.Fprintf(w, "%.7e\n", n.sys.Time())
	fmt.Fprintf(w, "%d %.7e\n", n.numParticles, n.cfg.Terrain.ParticleRadius)
	for _, b := range n.particles() {
		p, v := b.Pos(), b.Vel()
		fmt.Fprintf(w, "%d %.7e %.7e %.7e %.7e %.7e %.7e\n",
			b.Identifier(), p.X, p.Y, p.Z, v.X, v.Y, v.Z)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("terrain: output write: %w", err)
	}
	return nil
}
