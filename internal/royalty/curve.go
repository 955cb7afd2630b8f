package royalty

import (
	"errors"
	"fmt"
	"math"
)

// Phase boundaries of the shaped adoption curve, as offsets from entry year.
const (
	slowUptakeEnd = 2
	growthEnd     = 6
	peakEnd       = 8
)

type Phase string

const (
	PhaseEntry      Phase = "entry"
	PhaseSlowUptake Phase = "slow uptake"
	PhaseGrowth     Phase = "growth"
	PhasePeak       Phase = "peak"
	PhaseDecline    Phase = "decline"
)

// PhaseAt names the shaped-curve phase of the year at offset i.
func PhaseAt(i int) Phase {
	switch {
	case i <= 0:
		return PhaseEntry
	case i <= slowUptakeEnd:
		return PhaseSlowUptake
	case i <= growthEnd:
		return PhaseGrowth
	case i <= peakEnd:
		return PhasePeak
	default:
		return PhaseDecline
	}
}

// CurveConfig holds the shaped-curve constants. A zero StabilizationFactor
// selects the simple variant where the initial penetration is the only floor.
type CurveConfig struct {
	SmallStep           float64 `json:"small_step" mapstructure:"small_step"`
	MediumStep          float64 `json:"medium_step" mapstructure:"medium_step"`
	DeclineStep         float64 `json:"decline_step" mapstructure:"decline_step"`
	Bump                float64 `json:"bump" mapstructure:"bump"`
	Cap                 float64 `json:"cap" mapstructure:"cap"`
	StabilizationFactor float64 `json:"stabilization_factor" mapstructure:"stabilization_factor"`
}

// RefinedCurve caps the peak at 80% and stabilizes the decline at 80% of peak.
func RefinedCurve() CurveConfig {
	return CurveConfig{
		SmallStep:           0.05,
		MediumStep:          0.07,
		DeclineStep:         0.02,
		Bump:                0.25,
		Cap:                 0.80,
		StabilizationFactor: 0.8,
	}
}

func SimpleCurve() CurveConfig {
	return CurveConfig{
		SmallStep:   0.05,
		MediumStep:  0.10,
		DeclineStep: 0.05,
		Bump:        0.25,
		Cap:         1.0,
	}
}

func (c CurveConfig) Validate() error {
	var errs []error
	check := func(name string, v, lo, hi float64) {
		if math.IsNaN(v) || v < lo || v > hi {
			errs = append(errs, fmt.Errorf("curve %s=%v outside [%v,%v]", name, v, lo, hi))
		}
	}
	check("small_step", c.SmallStep, 0, 1)
	check("medium_step", c.MediumStep, 0, 1)
	check("decline_step", c.DeclineStep, 0, 1)
	check("bump", c.Bump, 0, 1)
	check("cap", c.Cap, 0, 1)
	check("stabilization_factor", c.StabilizationFactor, 0, 1)
	if c.Cap == 0 {
		errs = append(errs, errors.New("curve cap must be > 0"))
	}
	return errors.Join(errs...)
}

// Peak is the plateau reached in the peak phase for the given initial fraction.
func (c CurveConfig) Peak(initial float64) float64 {
	return math.Min(c.Cap, initial+c.Bump)
}

// Floor is the lowest value the decline phase may reach.
func (c CurveConfig) Floor(initial float64) float64 {
	if c.StabilizationFactor == 0 {
		return initial
	}
	return math.Max(initial, c.Peak(initial)*c.StabilizationFactor)
}

// Shaped builds the ramp-up, peak, decline sequence. Values never drop below
// the initial fraction; once the decline phase starts they also never drop
// below Floor. An initial fraction above Cap yields a flat curve.
func (c CurveConfig) Shaped(termYears int, initial float64) (Sequence, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if termYears < 1 || termYears > MaxTermYears {
		return nil, invalid("term_years", termYears, fmt.Sprintf("must be in [1,%d]", MaxTermYears))
	}
	if math.IsNaN(initial) || initial <= 0 || initial > 1 {
		return nil, invalid("penetration", initial, "shaped initial fraction must be in (0,1]")
	}

	peak := c.Peak(initial)
	ceiling := math.Max(peak, initial)
	floor := c.Floor(initial)

	seq := make(Sequence, termYears)
	seq[0] = initial
	prev := initial
	for i := 1; i < termYears; i++ {
		var v float64
		lo := initial
		switch {
		case i <= slowUptakeEnd:
			v = prev + c.SmallStep
		case i <= growthEnd:
			v = prev + c.MediumStep
		case i <= peakEnd:
			v = peak
		default:
			v = prev - c.DeclineStep
			lo = floor
		}
		v = clamp(v, lo, ceiling)
		seq[i] = v
		prev = v
	}
	return seq, nil
}

func Constant(termYears int, fraction float64) (Sequence, error) {
	if termYears < 1 || termYears > MaxTermYears {
		return nil, invalid("term_years", termYears, fmt.Sprintf("must be in [1,%d]", MaxTermYears))
	}
	if math.IsNaN(fraction) || fraction < 0 || fraction > 1 {
		return nil, invalid("penetration", fraction, "fraction must be in [0,1]")
	}
	seq := make(Sequence, termYears)
	for i := range seq {
		seq[i] = fraction
	}
	return seq, nil
}

// BuildSequence produces the penetration sequence selected by p's mode.
func BuildSequence(p Params, curve CurveConfig) (Sequence, error) {
	fraction := p.PenetrationPct / 100
	switch p.mode() {
	case ModeConstant:
		return Constant(p.TermYears, fraction)
	case ModeShaped:
		return curve.Shaped(p.TermYears, fraction)
	default:
		return nil, invalid("penetration_mode", p.PenetrationMode, "must be constant or shaped")
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
