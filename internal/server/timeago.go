package server

import (
	"fmt"
	"time"
)

// createdAtLayout formats absolute notification timestamps, e.g.
// "Oct 19, 2024 02:05 PM".
const createdAtLayout = "Jan 02, 2006 03:04 PM"

// TimeAgo renders the age of t relative to now as shown in the dropdown:
// whole days first, then hours, then minutes, and "Just now" for anything
// up to a minute or in the future.
func TimeAgo(now, t time.Time) string {
	diff := now.Sub(t)
	if diff <= 0 {
		return "Just now"
	}

	days := int(diff / (24 * time.Hour))
	seconds := int((diff % (24 * time.Hour)) / time.Second)

	switch {
	case days > 0:
		return plural(days, "day")
	case seconds > 3600:
		return plural(seconds/3600, "hour")
	case seconds > 60:
		return plural(seconds/60, "minute")
	default:
		return "Just now"
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s ago", unit)
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}
