package quality

import "fmt"

// Cause identifies the subsystem reporting pressure.
type Cause string

const (
	CauseThermal Cause = "thermal"
	CauseMemory  Cause = "memory"
	CauseBattery Cause = "battery"
)

// PressureLevel is the severity of a pressure signal.
type PressureLevel int

const (
	PressureNominal PressureLevel = iota
	PressureFair
	PressureSerious
	PressureCritical
)

// String returns the string representation of the pressure level.
func (l PressureLevel) String() string {
	switch l {
	case PressureNominal:
		return "nominal"
	case PressureFair:
		return "fair"
	case PressureSerious:
		return "serious"
	case PressureCritical:
		return "critical"
	default:
		return fmt.Sprintf("pressure(%d)", int(l))
	}
}

// ParsePressureLevel parses a pressure level name.
func ParsePressureLevel(s string) (PressureLevel, error) {
	for l := PressureNominal; l <= PressureCritical; l++ {
		if l.String() == s {
			return l, nil
		}
	}
	return PressureNominal, fmt.Errorf("unknown pressure level %q", s)
}

// Pressure is a cause-tagged signal from an external monitor.
type Pressure struct {
	Cause Cause
	Level PressureLevel
}

// ceilingFor returns the highest quality allowed at a pressure level.
func ceilingFor(l PressureLevel) float64 {
	switch l {
	case PressureSerious:
		return 0.7
	case PressureCritical:
		return 0.5
	default:
		return MaxLevel
	}
}

// ApplyPressure records a pressure signal and recomputes the ceiling as the
// strictest limit across causes. The level is lowered immediately when it
// exceeds the new ceiling; the latency loop is unaffected otherwise.
func (c *Controller) ApplyPressure(p Pressure) {
	if p.Level == PressureNominal {
		delete(c.pressure, p.Cause)
	} else {
		c.pressure[p.Cause] = p.Level
	}

	c.ceiling = MaxLevel
	for _, l := range c.pressure {
		c.ceiling = min(c.ceiling, ceilingFor(l))
	}
	c.level = c.clamp(c.level)
}

// Pressure returns the active non-nominal signals.
func (c *Controller) Pressure() map[Cause]PressureLevel {
	out := make(map[Cause]PressureLevel, len(c.pressure))
	for k, v := range c.pressure {
		out[k] = v
	}
	return out
}
