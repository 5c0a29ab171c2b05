package forecast

import (
	"time"
)

// SolarPhase is the position within the activity cycle.
type SolarPhase string

const (
	PhaseRising    SolarPhase = "rising"
	PhaseMaximum   SolarPhase = "maximum"
	PhaseDeclining SolarPhase = "declining"
	PhaseMinimum   SolarPhase = "minimum"
	PhaseUnknown   SolarPhase = "unknown"
)

// AllPhases lists every known phase.
var AllPhases = []SolarPhase{PhaseRising, PhaseMaximum, PhaseDeclining, PhaseMinimum}

// Label returns a display name.
func (p SolarPhase) Label() string {
	switch p {
	case PhaseRising:
		return "Rising activity"
	case PhaseMaximum:
		return "Solar maximum"
	case PhaseDeclining:
		return "Declining activity"
	case PhaseMinimum:
		return "Solar minimum"
	default:
		return "Unknown"
	}
}

// Valid reports whether p is a known phase.
func (p SolarPhase) Valid() bool {
	for _, q := range AllPhases {
		if p == q {
			return true
		}
	}
	return false
}

// PhaseAt classifies the cycle component nearest to at. The top and bottom
// quarters of the cycle's range are maximum and minimum; in between the
// slope decides rising or declining.
func PhaseAt(points []Point, at time.Time) SolarPhase {
	if len(points) < 3 {
		return PhaseUnknown
	}

	idx := 0
	best := absDuration(points[0].Date.Sub(at))
	lo, hi := points[0].Cycle, points[0].Cycle
	for i, p := range points {
		if d := absDuration(p.Date.Sub(at)); d < best {
			best, idx = d, i
		}
		lo = min(lo, p.Cycle)
		hi = max(hi, p.Cycle)
	}
	if hi == lo {
		return PhaseUnknown
	}

	level := (points[idx].Cycle - lo) / (hi - lo)
	switch {
	case level >= 0.75:
		return PhaseMaximum
	case level <= 0.25:
		return PhaseMinimum
	}

	prev, next := max(idx-1, 0), min(idx+1, len(points)-1)
	if points[next].Cycle >= points[prev].Cycle {
		return PhaseRising
	}
	return PhaseDeclining
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
