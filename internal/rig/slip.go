package rig

import "math"

// SlipSchedule prescribes the set-toe slip angle over the run: zero
// until Delay, a linear ramp to Final over Ramp seconds, then constant.
type SlipSchedule struct {
	Delay float64
	Ramp  float64
	Final float64
}

// DefaultSlipSchedule ramps to -20 degrees starting at 0.2 s over 1 s.
func DefaultSlipSchedule() SlipSchedule {
	return SlipSchedule{
		Delay: 0.2,
		Ramp:  1.0,
		Final: -20 * math.Pi / 180,
	}
}

// At returns the slip angle in radians at time t.
func (s SlipSchedule) At(t float64) float64 {
	if t <= s.Delay {
		return 0
	}
	if s.Ramp <= 0 || t >= s.Delay+s.Ramp {
		return s.Final
	}
	return s.Final * (t - s.Delay) / s.Ramp
}
