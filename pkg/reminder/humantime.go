package reminder

import (
	"fmt"
	"time"
)

// relativePhrase renders a future duration as a short English phrase, e.g.
// "in 45 minutes" or "in 1 hour and 5 minutes".
func relativePhrase(d time.Duration) string {
	minutes := int(d.Round(time.Minute) / time.Minute)
	if minutes < 1 {
		return "in under a minute"
	}

	hours := minutes / 60
	minutes = minutes % 60

	switch {
	case hours == 0:
		return fmt.Sprintf("in %s", plural(minutes, "minute"))
	case minutes == 0:
		return fmt.Sprintf("in %s", plural(hours, "hour"))
	default:
		return fmt.Sprintf("in %s and %s", plural(hours, "hour"), plural(minutes, "minute"))
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
