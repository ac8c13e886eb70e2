package routeros

import (
	"regexp"
	"strconv"
	"time"
)

var uptimeRe = regexp.MustCompile(`(?:(\d+)w)?(?:(\d+)d)?(?:(\d+)h)?(?:(\d+)m)?(?:(\d+)s)?`)

// ParseUptime converts a RouterOS uptime string such as "4w6h46m50s" into
// a duration. Malformed input parses as zero.
func ParseUptime(s string) time.Duration {
	m := uptimeRe.FindStringSubmatch(s)
	if m == nil {
		return 0
	}

	units := []time.Duration{
		7 * 24 * time.Hour, // weeks
		24 * time.Hour,     // days
		time.Hour,
		time.Minute,
		time.Second,
	}

	var total time.Duration

	for i, unit := range units {
		if m[i+1] == "" {
			continue
		}

		n, err := strconv.Atoi(m[i+1])
		if err != nil {
			continue
		}

		total += time.Duration(n) * unit
	}

	return total
}
