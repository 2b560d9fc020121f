package metrics

import (
	"fmt"
	"math"
	"strings"
)

var byteUnits = []string{"B", "KB", "MB", "GB", "TB"}

// FormatBytes renders a byte count with a binary unit, e.g. "5.00 GB".
func FormatBytes(bytes float64) string {
	size := bytes
	unit := 0
	for size >= 1024 && unit < len(byteUnits)-1 {
		size /= 1024
		unit++
	}
	return fmt.Sprintf("%.2f %s", size, byteUnits[unit])
}

// FormatDuration renders seconds as milliseconds, seconds or minutes.
func FormatDuration(seconds float64) string {
	switch {
	case seconds < 1:
		return fmt.Sprintf("%.0fms", seconds*1000)
	case seconds < 60:
		return fmt.Sprintf("%.2fs", seconds)
	}
	minutes := math.Floor(seconds / 60)
	return fmt.Sprintf("%.0fm %.0fs", minutes, math.Mod(seconds, 60))
}

// FormatNumber abbreviates thousands and millions.
func FormatNumber(n float64, decimals int) string {
	switch {
	case n >= 1_000_000:
		return fmt.Sprintf("%.*fM", decimals, n/1_000_000)
	case n >= 1000:
		return fmt.Sprintf("%.*fK", decimals, n/1000)
	}
	return fmt.Sprintf("%.*f", decimals, n)
}

// FormatValue picks a formatter from the metric name suffix.
func FormatValue(name string, v float64) string {
	switch {
	case strings.HasSuffix(name, "_bytes"):
		return FormatBytes(v)
	case strings.HasSuffix(name, "_seconds"):
		return FormatDuration(v)
	}
	return FormatNumber(v, 2)
}
