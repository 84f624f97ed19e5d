package stats

import (
	"fmt"
	"math"
)

// FormatPacketRate renders packets per second with a magnitude suffix.
func FormatPacketRate(pps float64) string {
	switch {
	case pps >= 1_000_000:
		return fmt.Sprintf("%.2fMpps", pps/1_000_000)
	case pps >= 1_000:
		return fmt.Sprintf("%.2fKpps", pps/1_000)
	default:
		return fmt.Sprintf("%.2fpps", pps)
	}
}

// FormatByteRate renders bytes per second with a decimal magnitude suffix.
func FormatByteRate(bps float64) string {
	switch {
	case bps >= 1_000_000_000:
		return fmt.Sprintf("%.2fGB/s", bps/1_000_000_000)
	case bps >= 1_000_000:
		return fmt.Sprintf("%.2fMB/s", bps/1_000_000)
	case bps >= 1_000:
		return fmt.Sprintf("%.2fKB/s", bps/1_000)
	default:
		return fmt.Sprintf("%.2fB/s", bps)
	}
}

// FormatAverage renders a session average, or "n/a" when it is undefined.
func FormatAverage(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", v)
}
