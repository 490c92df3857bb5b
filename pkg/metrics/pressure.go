package metrics

import (
	"sync"

	"github.com/user/dualcam/pkg/ports"
	"github.com/user/dualcam/pkg/quality"
)

// PressureReporter accepts pressure signals.
type PressureReporter interface {
	ReportPressure(p quality.Pressure) error
}

// Thresholds maps memory utilisation to pressure levels. Each field is the
// lowest utilisation that reaches that level.
type Thresholds struct {
	Fair     float64
	Serious  float64
	Critical float64
}

// DefaultThresholds returns Thresholds with default values.
func DefaultThresholds() Thresholds {
	return Thresholds{Fair: 0.7, Serious: 0.85, Critical: 0.95}
}

func (t Thresholds) level(u float64) quality.PressureLevel {
	switch {
	case u >= t.Critical:
		return quality.PressureCritical
	case u >= t.Serious:
		return quality.PressureSerious
	case u >= t.Fair:
		return quality.PressureFair
	default:
		return quality.PressureNominal
	}
}

// MemoryMonitor is an Observer that turns device memory utilisation into
// memory pressure signals. It reports only level changes.
type MemoryMonitor struct {
	target     PressureReporter
	thresholds Thresholds
	logger     ports.Logger

	mu   sync.Mutex
	last quality.PressureLevel
}

// NewMemoryMonitor creates a monitor reporting to target.
func NewMemoryMonitor(target PressureReporter, thresholds Thresholds, logger ports.Logger) *MemoryMonitor {
	return &MemoryMonitor{
		target:     target,
		thresholds: thresholds,
		logger:     logger.WithComponent("metrics"),
	}
}

// Observe implements Observer.
func (m *MemoryMonitor) Observe(s Snapshot) {
	level := m.thresholds.level(s.MemoryUtilization)

	m.mu.Lock()
	defer m.mu.Unlock()
	if level == m.last {
		return
	}
	if err := m.target.ReportPressure(quality.Pressure{Cause: quality.CauseMemory, Level: level}); err != nil {
		m.logger.Warn("Failed to report pressure: %v", err)
		return
	}
	m.last = level
}
