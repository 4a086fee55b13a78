// Human-readable size parsing for the -max-size flag.
package main

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// sizeSuffixes maps size suffixes to byte multipliers. Two-letter
// suffixes come first: matching must be longest-suffix-first so "10MB"
// is not mis-parsed by stripping a bare "B" or "M".
var sizeSuffixes = []struct {
	suffix string
	mult   int64
}{
	{"KB", 1 << 10},
	{"MB", 1 << 20},
	{"GB", 1 << 30},
	{"K", 1 << 10},
	{"M", 1 << 20},
	{"G", 1 << 30},
}

// parseSize converts a size string like "1M", "500K" or "10MB" to a
// byte count. A string with no recognized suffix is parsed as a plain
// integer byte count.
func parseSize(s string) (int64, error) {
	s = strings.ToUpper(strings.TrimSpace(s))

	for _, e := range sizeSuffixes {
		if !strings.HasSuffix(s, e.suffix) {
			continue
		}
		num, err := strconv.ParseFloat(strings.TrimSuffix(s, e.suffix), 64)
		if err != nil {
			continue
		}
		return int64(num * float64(e.mult)), nil
	}

	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", errInvalidSizeFormat, s)
	}
	return n, nil
}

func humanSize(n int64) string {
	units := []string{"B", "KB", "MB", "GB", "TB"}
	f := float64(n)
	for _, u := range units {
		if math.Abs(f) < 1024 {
			return fmt.Sprintf("%.1f%s", f, u)
		}
		f /= 1024
	}
	return fmt.Sprintf("%.1f%s", f, units[len(units)-1])
}
