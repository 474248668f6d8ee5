package util

import (
	"strconv"
	"strings"
)

// ParseFrameRate parses frame rate from ffprobe format (e.g., "30000/1001").
// Plain decimals are accepted too; anything unparsable or non-positive is 0.
func ParseFrameRate(s string) float64 {
	s = strings.TrimSpace(s)
	num, den, found := strings.Cut(s, "/")
	if !found {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil || v <= 0 {
			return 0
		}
		return v
	}

	n, err1 := strconv.ParseFloat(num, 64)
	d, err2 := strconv.ParseFloat(den, 64)
	if err1 != nil || err2 != nil || d == 0 || n <= 0 {
		return 0
	}
	return n / d
}
