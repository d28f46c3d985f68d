package space

import "math"

// Smooth moves current toward target by exponential damping: the result sits
// at target + (current-target)*lagWeight. The damped delta goes through
// FromDouble, so however far apart the two positions are the result is
// target plus one renormalized cell step, and no absolute coordinate is ever
// built. lagWeight is clamped to [0, 1); 0 snaps to target.
func (s *Settings) Smooth(current, target SpacePosition, lagWeight float64) SpacePosition {
	switch {
	case math.IsNaN(lagWeight) || lagWeight <= 0:
		return target
	case lagWeight >= 1:
		lagWeight = math.Nextafter(1, 0)
	}

	delta := s.Delta(current, target).Mul(lagWeight)
	cell, offset := s.FromDouble(delta)
	return target.Add(SpacePosition{Cell: cell, Offset: offset})
}

// LagWeightForHalfLife returns the per-frame weight that halves the
// remaining distance every halfLife seconds when frames are dt seconds apart.
func LagWeightForHalfLife(halfLife, dt float64) float64 {
	if halfLife <= 0 || dt <= 0 {
		return 0
	}
	return math.Pow(0.5, dt/halfLife)
}
