package risk

import (
	"sync"
	"time"
)

const marginWarningRatio = 0.75

// MarginMonitor tracks per-venue margin utilization, supplementing the
// kill switch's failure-counting with an explicit health signal.
type MarginMonitor struct {
	marginBufferRatio float64

	mu               sync.Mutex
	utilizationByVenue map[string]float64
	lastCheck        time.Time
}

// NewMarginMonitor constructs a MarginMonitor. marginBufferRatio is the
// configured margin_buffer_ratio in (0,1): utilization above
// (1 - marginBufferRatio) is critical.
func NewMarginMonitor(marginBufferRatio float64) *MarginMonitor {
	return &MarginMonitor{
		marginBufferRatio: marginBufferRatio,
		utilizationByVenue: make(map[string]float64),
	}
}

// UpdateMarginUsage records venue's current utilization (0..1) and reports
// whether it is in critical or warning territory.
func (m *MarginMonitor) UpdateMarginUsage(venueName string, utilization float64) (critical, warning bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.utilizationByVenue[venueName] = utilization
	m.lastCheck = time.Now()

	critical = utilization > (1 - m.marginBufferRatio)
	warning = !critical && utilization > marginWarningRatio
	return critical, warning
}

// Snapshot returns a copy of the last-known utilization per venue.
func (m *MarginMonitor) Snapshot() map[string]float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]float64, len(m.utilizationByVenue))
	for k, v := range m.utilizationByVenue {
		out[k] = v
	}
	return out
}
