// Package timecode converts between MM:SS / HH:MM:SS clock strings and
// seconds.
package timecode

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseClock converts "MM:SS" or "HH:MM:SS" to seconds. Components must be
// plain integers. Any other shape, or a non-numeric component, yields 0.0.
// The sentinel is deliberate: upstream LLM output is untrusted and a bad
// timestamp must not abort the whole run. Callers treat 0.0 as "unparsable",
// never as a legitimate zero timestamp.
func ParseClock(s string) float64 {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0
	}
	vals := make([]int, len(parts))
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || v < 0 {
			return 0
		}
		vals[i] = v
	}
	if len(vals) == 2 {
		return float64(vals[0]*60 + vals[1])
	}
	return float64(vals[0]*3600 + vals[1]*60 + vals[2])
}

// FormatClock renders seconds as zero-padded "MM:SS", truncating fractional
// seconds. Minutes may exceed two digits for sources over an hour.
func FormatClock(sec float64) string {
	t := int(sec)
	if t < 0 {
		t = 0
	}
	return fmt.Sprintf("%02d:%02d", t/60, t%60)
}
