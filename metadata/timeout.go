package metadata

import (
	"fmt"
	"strconv"
	"time"
)

// timeoutUnits maps the single-character grpc-timeout suffix to a duration
// multiplier. Per the runtime spec's resolved Open Question, "n" is true
// nanoseconds (not the original Python runtime's microsecond-rounded
// approximation).
var timeoutUnits = map[byte]time.Duration{
	'H': time.Hour,
	'M': time.Minute,
	'S': time.Second,
	'm': time.Millisecond,
	'u': time.Microsecond,
	'n': time.Nanosecond,
}

// ParseTimeout parses a grpc-timeout header value, e.g. "2H" or "500m".
func ParseTimeout(s string) (time.Duration, error) {
	if len(s) < 2 {
		return 0, fmt.Errorf("metadata: invalid grpc-timeout %q", s)
	}
	unit, ok := timeoutUnits[s[len(s)-1]]
	if !ok {
		return 0, fmt.Errorf("metadata: unknown grpc-timeout unit in %q", s)
	}
	n, err := strconv.ParseInt(s[:len(s)-1], 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("metadata: invalid grpc-timeout value %q", s)
	}
	return time.Duration(n) * unit, nil
}

// FormatTimeout renders d back into a grpc-timeout header value, picking
// the coarsest unit that represents d exactly, falling back to nanoseconds.
func FormatTimeout(d time.Duration) string {
	switch {
	case d%time.Hour == 0:
		return fmt.Sprintf("%dH", d/time.Hour)
	case d%time.Minute == 0:
		return fmt.Sprintf("%dM", d/time.Minute)
	case d%time.Second == 0:
		return fmt.Sprintf("%dS", d/time.Second)
	case d%time.Millisecond == 0:
		return fmt.Sprintf("%dm", d/time.Millisecond)
	case d%time.Microsecond == 0:
		return fmt.Sprintf("%du", d/time.Microsecond)
	default:
		return fmt.Sprintf("%dn", d.Nanoseconds())
	}
}
