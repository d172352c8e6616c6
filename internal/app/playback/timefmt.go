package playback

import (
	"fmt"
	"math"
)

// FormatTime renders seconds as M:SS. Minutes are unbounded and not padded.
// Unknown (NaN), infinite and negative values render as "0:00".
func FormatTime(seconds float64) string {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds < 0 {
		return "0:00"
	}
	minutes := int64(seconds / 60)
	secs := int64(math.Mod(seconds, 60))
	return fmt.Sprintf("%d:%02d", minutes, secs)
}

// knownDuration reports whether d can be used as a divisor or seek base.
func knownDuration(d float64) bool {
	return !math.IsNaN(d) && !math.IsInf(d, 0) && d > 0
}
