// Package driver runs the co-simulation state machine on one side of
// the channel. Both processes execute the same phase sequence; the
// phases where only one side has work (settling) are a no-op on the
// other so the two stay aligned without extra synchronization.
package driver

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/Bingouzi3/chrono/internal/config"
	"github.com/Bingouzi3/chrono/internal/observability"
	"github.com/Bingouzi3/chrono/internal/transport"
)

// Phase is the driver's lifecycle state. Transitions are strictly
// forward; any error aborts the run.
type Phase int

const (
	PhaseUninit Phase = iota
	PhaseSettling
	PhaseHandshake
	PhaseStepping
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseUninit:
		return "uninit"
	case PhaseSettling:
		return "settling"
	case PhaseHandshake:
		return "handshake"
	case PhaseStepping:
		return "stepping"
	case PhaseDone:
		return "done"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Node is one side of the co-simulation as the driver sees it.
type Node interface {
	Role() string

	// Settle runs local pre-run preparation with no communication.
	Settle() error

	// Initialize performs the node's half of the one-time handshake.
	Initialize() error

	// Synchronize performs the node's half of the step exchange.
	Synchronize(step uint32, t float64) error

	// Advance integrates the node's dynamics by dt.
	Advance(dt float64) error

	// OutputData writes one results frame.
	OutputData(frame int) error
}

// Driver owns the lifecycle of one node.
type Driver struct {
	node Node
	ep   transport.Endpoint
	log  zerolog.Logger

	steps       int
	stepSize    float64
	outputEvery int

	phase Phase
}

func New(node Node, ep transport.Endpoint, run config.RunConfig, log zerolog.Logger) *Driver {
	return &Driver{
		node:        node,
		ep:          ep,
		log:         log,
		steps:       run.Steps,
		stepSize:    run.StepSize,
		outputEvery: run.OutputEvery,
		phase:       PhaseUninit,
	}
}

func (d *Driver) Phase() Phase { return d.phase }

// Run executes the full lifecycle. Every error is fatal: the
// counterpart is told to abort and the error is returned. There is no
// recovery or resynchronization within a run.
func (d *Driver) Run() error {
	if err := d.run(); err != nil {
		d.log.Error().Err(err).Stringer("phase", d.phase).Msg("run aborted")
		d.ep.Abort(err.Error())
		return err
	}
	return nil
}

func (d *Driver) run() error {
	start := time.Now()

	d.phase = PhaseSettling
	if err := d.node.Settle(); err != nil {
		return err
	}

	d.phase = PhaseHandshake
	if err := d.node.Initialize(); err != nil {
		return err
	}

	d.phase = PhaseStepping
	frame := 0
	for is := 0; is < d.steps; is++ {
		stepStart := time.Now()
		t := float64(is) * d.stepSize

		if err := d.ep.Barrier(uint32(is)); err != nil {
			return fmt.Errorf("step %d barrier: %w", is, err)
		}
		if err := d.node.Synchronize(uint32(is), t); err != nil {
			return fmt.Errorf("step %d synchronize: %w", is, err)
		}
		if err := d.node.Advance(d.stepSize); err != nil {
			return fmt.Errorf("step %d advance: %w", is, err)
		}
		observability.RecordStep(d.node.Role(), time.Since(stepStart))

		if (is+1)%d.outputEvery == 0 {
			frame++
			if err := d.node.OutputData(frame); err != nil {
				return fmt.Errorf("step %d output: %w", is, err)
			}
		}
	}

	d.phase = PhaseDone
	d.log.Info().
		Int("steps", d.steps).
		Dur("elapsed", time.Since(start)).
		Msg("run complete")
	return nil
}
